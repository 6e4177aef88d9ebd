// Package metadatatest provides a testify mock of the metadata client.
package metadatatest

import (
	"context"

	"github.com/mantonx/watchlist/internal/metadata"
	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of metadata.Client
type MockClient struct {
	mock.Mock
}

var _ metadata.Client = (*MockClient)(nil)

func (m *MockClient) Search(ctx context.Context, query, lang string) ([]metadata.SearchResult, error) {
	args := m.Called(ctx, query, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metadata.SearchResult), args.Error(1)
}

func (m *MockClient) GetMovie(ctx context.Context, id, lang string) (*metadata.MovieDetail, error) {
	args := m.Called(ctx, id, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metadata.MovieDetail), args.Error(1)
}

func (m *MockClient) GetSeries(ctx context.Context, id, lang string) (*metadata.SeriesDetail, error) {
	args := m.Called(ctx, id, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metadata.SeriesDetail), args.Error(1)
}

func (m *MockClient) GetSeasonEpisodes(ctx context.Context, seriesID string, season int, lang string) ([]metadata.EpisodeDetail, error) {
	args := m.Called(ctx, seriesID, season, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metadata.EpisodeDetail), args.Error(1)
}

func (m *MockClient) ListLanguages(ctx context.Context) ([]metadata.Language, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metadata.Language), args.Error(1)
}
