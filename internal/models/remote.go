package models

import (
	"context"
	"strconv"
	"time"

	"github.com/mantonx/watchlist/internal/metadata"
)

// ImageResolver materializes provider image paths into local references
type ImageResolver interface {
	Poster(ctx context.Context, kind Kind, remotePath string) string
	Backdrop(ctx context.Context, kind Kind, remotePath string) string
	SeasonPoster(ctx context.Context, showID string, season int, remotePath string) string
	Still(ctx context.Context, showID string, season int, remotePath string) string
	IsLightPoster(ref string) bool
}

// MovieFromRemote builds a movie from a provider response. User owned
// fields start at their defaults and add date is set to now.
func MovieFromRemote(ctx context.Context, d *metadata.MovieDetail, images ImageResolver, now time.Time) *Movie {
	poster := images.Poster(ctx, KindMovie, d.PosterPath)
	return &Movie{
		ID:               d.StringID(),
		Title:            d.Title,
		OriginalTitle:    d.OriginalTitle,
		Overview:         CleanOverview(d.Overview),
		Genres:           genreNames(d.Genres),
		ReleaseDate:      d.ReleaseDate,
		Runtime:          d.Runtime,
		Budget:           d.Budget,
		Revenue:          d.Revenue,
		Status:           d.Status,
		Tagline:          d.Tagline,
		PosterPath:       poster,
		BackdropPath:     images.Backdrop(ctx, KindMovie, d.BackdropPath),
		OriginalLanguage: Language{ISO6391: d.OriginalLanguage},
		AddDate:          now,
		Color:            images.IsLightPoster(poster),
	}
}

// SeriesFromRemote builds a series with its seasons. episodes maps a season
// number to the episodes fetched for it; seasons without an entry are kept
// with no episodes.
func SeriesFromRemote(ctx context.Context, d *metadata.SeriesDetail, episodes map[int][]metadata.EpisodeDetail, images ImageResolver, now time.Time) *Series {
	id := d.StringID()
	poster := images.Poster(ctx, KindSeries, d.PosterPath)

	seasons := make([]Season, 0, len(d.Seasons))
	for _, summary := range d.Seasons {
		seasons = append(seasons, SeasonFromRemote(ctx, id, summary, episodes[summary.SeasonNumber], images))
	}

	return &Series{
		ID:               id,
		Title:            d.Name,
		OriginalTitle:    d.OriginalName,
		Overview:         CleanOverview(d.Overview),
		Genres:           genreNames(d.Genres),
		CreatedBy:        creatorNames(d.CreatedBy),
		ReleaseDate:      d.FirstAirDate,
		LastAirDate:      d.LastAirDate,
		NextAirDate:      d.NextAirDate(),
		InProduction:     d.InProduction,
		SeasonsNumber:    d.NumberOfSeasons,
		EpisodesNumber:   d.NumberOfEpisodes,
		Status:           d.Status,
		Tagline:          d.Tagline,
		PosterPath:       poster,
		BackdropPath:     images.Backdrop(ctx, KindSeries, d.BackdropPath),
		OriginalLanguage: Language{ISO6391: d.OriginalLanguage},
		AddDate:          now,
		Color:            images.IsLightPoster(poster),
		Seasons:          seasons,
	}
}

// SeasonFromRemote builds a season of the given series
func SeasonFromRemote(ctx context.Context, showID string, d metadata.SeasonSummary, episodes []metadata.EpisodeDetail, images ImageResolver) Season {
	season := Season{
		ID:             strconv.FormatInt(d.ID, 10),
		Number:         d.SeasonNumber,
		Title:          d.Name,
		Overview:       CleanOverview(d.Overview),
		PosterPath:     images.SeasonPoster(ctx, showID, d.SeasonNumber, d.PosterPath),
		EpisodesNumber: d.EpisodeCount,
		ShowID:         showID,
		Episodes:       make([]Episode, 0, len(episodes)),
	}
	for _, ep := range episodes {
		season.Episodes = append(season.Episodes, EpisodeFromRemote(ctx, showID, ep, images))
	}
	return season
}

// EpisodeFromRemote builds an unwatched episode of the given series
func EpisodeFromRemote(ctx context.Context, showID string, d metadata.EpisodeDetail, images ImageResolver) Episode {
	return Episode{
		ID:           strconv.FormatInt(d.ID, 10),
		Number:       d.EpisodeNumber,
		Title:        d.Name,
		Overview:     CleanOverview(d.Overview),
		Runtime:      d.Runtime,
		SeasonNumber: d.SeasonNumber,
		ShowID:       showID,
		StillPath:    images.Still(ctx, showID, d.SeasonNumber, d.StillPath),
	}
}

// SearchResultFromRemote converts a search hit
func SearchResultFromRemote(r metadata.SearchResult) SearchResult {
	kind := KindMovie
	if r.MediaType == metadata.MediaTypeTV {
		kind = KindSeries
	}
	return SearchResult{
		ID:         strconv.FormatInt(r.ID, 10),
		MediaType:  kind,
		Title:      r.DisplayTitle(),
		Year:       r.Year(),
		Overview:   r.Overview,
		PosterPath: r.PosterPath,
	}
}

// LanguageFromRemote prefers the native name and falls back to English
func LanguageFromRemote(l metadata.Language) Language {
	name := l.Name
	if name == "" {
		name = l.EnglishName
	}
	return Language{ISO6391: l.ISO6391, Name: name}
}

func genreNames(genres []metadata.Genre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return NormalizeList(names)
}

func creatorNames(creators []metadata.Creator) []string {
	names := make([]string, 0, len(creators))
	for _, c := range creators {
		names = append(names, c.Name)
	}
	return NormalizeList(names)
}
