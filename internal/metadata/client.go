// Package metadata talks to the remote movie and tv metadata provider.
package metadata

import (
	"context"
)

// Client is the remote metadata provider. Every call is localized by the
// language code passed in.
type Client interface {
	Search(ctx context.Context, query, lang string) ([]SearchResult, error)
	GetMovie(ctx context.Context, id, lang string) (*MovieDetail, error)
	GetSeries(ctx context.Context, id, lang string) (*SeriesDetail, error)
	GetSeasonEpisodes(ctx context.Context, seriesID string, season int, lang string) ([]EpisodeDetail, error)
	ListLanguages(ctx context.Context) ([]Language, error)
}
