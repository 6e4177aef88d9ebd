package watchlist

import (
	"context"
	"testing"

	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/metadata"
	"github.com/mantonx/watchlist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func manualSeries(t *testing.T, env *testEnv) *models.Series {
	t.Helper()
	a, err := env.svc.AddManualSeries(&models.Series{
		Title: "Home Videos",
		Seasons: []models.Season{
			{Number: 1, Episodes: []models.Episode{{Number: 1}, {Number: 2}}},
		},
	}, nil, nil)
	require.NoError(t, err)
	_, err = env.finish(t, a)
	require.NoError(t, err)

	got, err := env.store.GetSeriesByID(context.Background(), "M-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func TestService_EditMovieKeepsUserState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.InsertMovie(ctx, &models.Movie{
		ID: "M-1", Title: "Draft", Manual: true, Watched: true, Color: true,
		PosterPath:   "file:///cache/movie/M-1-poster.jpg",
		BackdropPath: "file:///cache/movie/M-1-backdrop.jpg",
	}))
	old, err := env.store.GetMovieByID(ctx, "M-1")
	require.NoError(t, err)

	a, err := env.svc.EditMovie(old, &models.Movie{Title: "Final Cut", Runtime: 95}, nil, nil)
	require.NoError(t, err)
	_, err = env.finish(t, a)
	require.NoError(t, err)

	got, err := env.store.GetMovieByID(ctx, "M-1")
	require.NoError(t, err)
	assert.Equal(t, "Final Cut", got.Title)
	assert.Equal(t, 95, got.Runtime)
	assert.True(t, got.Watched)
	assert.True(t, got.Manual)
	assert.Equal(t, "file:///cache/movie/M-1-poster.jpg", got.PosterPath)
	assert.Equal(t, "file:///cache/movie/M-1-backdrop.jpg", got.BackdropPath)
	assert.True(t, got.Color)

	// Empty image data keeps the stored images too.
	a, err = env.svc.EditMovie(got, &models.Movie{Title: "Final Cut"}, &ManualImages{}, nil)
	require.NoError(t, err)
	_, err = env.finish(t, a)
	require.NoError(t, err)

	got, err = env.store.GetMovieByID(ctx, "M-1")
	require.NoError(t, err)
	assert.Equal(t, "file:///cache/movie/M-1-poster.jpg", got.PosterPath)
	assert.Equal(t, "file:///cache/movie/M-1-backdrop.jpg", got.BackdropPath)
	assert.True(t, got.Color)
}

func TestService_EditMovieReplacesPoster(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.InsertMovie(ctx, &models.Movie{ID: "M-1", Title: "Draft", Manual: true, Color: true}))
	old, err := env.store.GetMovieByID(ctx, "M-1")
	require.NoError(t, err)

	a, err := env.svc.EditMovie(old, &models.Movie{Title: "Draft"}, &ManualImages{Poster: []byte{1}}, nil)
	require.NoError(t, err)
	_, err = env.finish(t, a)
	require.NoError(t, err)

	got, err := env.store.GetMovieByID(ctx, "M-1")
	require.NoError(t, err)
	assert.Equal(t, "file:///cache/movie/M-1-poster.jpg", got.PosterPath)
	assert.False(t, got.Color)
}

func TestService_EditSeriesKeepsImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.InsertSeries(ctx, &models.Series{
		ID: "M-1", Title: "Home Videos", Manual: true, Color: true,
		PosterPath: "file:///cache/series/M-1-poster.jpg",
		Seasons: []models.Season{{
			ID: "M-1", Number: 1, PosterPath: "file:///cache/series/M-1/season1.jpg",
			Episodes: []models.Episode{{ID: "M-1", Number: 1, StillPath: "file:///cache/series/M-1/still1.jpg"}},
		}},
	}))
	old, err := env.store.GetSeriesByID(ctx, "M-1")
	require.NoError(t, err)

	updated := &models.Series{
		Title: "Home Videos",
		Seasons: []models.Season{
			{ID: "M-1", Number: 1, Episodes: []models.Episode{{ID: "M-1", Number: 1}, {Number: 2}}},
			{Number: 2},
		},
	}
	a, err := env.svc.EditSeries(old, updated, nil, nil)
	require.NoError(t, err)
	_, err = env.finish(t, a)
	require.NoError(t, err)

	got, err := env.store.GetSeriesByID(ctx, "M-1")
	require.NoError(t, err)
	assert.Equal(t, "file:///cache/series/M-1-poster.jpg", got.PosterPath)
	assert.True(t, got.Color)
	require.Len(t, got.Seasons, 2)
	assert.Equal(t, "file:///cache/series/M-1/season1.jpg", got.Seasons[0].PosterPath)
	assert.Equal(t, placeholder, got.Seasons[1].PosterPath)
	require.Len(t, got.Seasons[0].Episodes, 2)
	assert.Equal(t, "file:///cache/series/M-1/still1.jpg", got.Seasons[0].Episodes[0].StillPath)
	assert.Empty(t, got.Seasons[0].Episodes[1].StillPath)
}

func TestService_EditMissingMovie(t *testing.T) {
	env := newTestEnv(t)

	a, err := env.svc.EditMovie(&models.Movie{ID: "M-9", Title: "Ghost"}, &models.Movie{Title: "Ghost"}, nil, nil)
	require.NoError(t, err)
	_, err = env.finish(t, a)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_EditSeriesAddsEpisodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	manualSeries(t, env)
	require.NoError(t, env.svc.MarkEpisodeWatched(ctx, "M-1", true))
	old, err := env.store.GetSeriesByID(ctx, "M-1")
	require.NoError(t, err)

	updated := &models.Series{
		Title: "Home Videos",
		Seasons: []models.Season{
			{ID: "M-1", Number: 1, Episodes: []models.Episode{
				{ID: "M-1", Number: 1},
				{ID: "M-2", Number: 2},
				{Number: 3},
			}},
			{Number: 2, Episodes: []models.Episode{{Number: 1}}},
		},
	}
	a, err := env.svc.EditSeries(old, updated, nil, nil)
	require.NoError(t, err)
	_, err = env.finish(t, a)
	require.NoError(t, err)

	got, err := env.store.GetSeriesByID(ctx, "M-1")
	require.NoError(t, err)
	require.Len(t, got.Seasons, 2)
	assert.Equal(t, "M-2", got.Seasons[1].ID)

	watched := map[string]bool{}
	for _, ep := range got.Episodes() {
		watched[ep.ID] = ep.Watched
	}
	assert.Equal(t, map[string]bool{"M-1": true, "M-2": false, "M-3": false, "M-4": false}, watched)
}

func TestService_RefreshItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.InsertMovie(ctx, &models.Movie{ID: "603", Title: "Old", Watched: true}))
	env.client.On("GetMovie", mock.Anything, "603", "en").Return(&metadata.MovieDetail{ID: 603, Title: "The Matrix"}, nil)

	a, err := env.svc.RefreshItem(ctx, models.KindMovie, "603", nil)
	require.NoError(t, err)
	assert.Equal(t, "Update Old", a.Title)
	_, err = env.finish(t, a)
	require.NoError(t, err)

	got, err := env.store.GetMovieByID(ctx, "603")
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", got.Title)
	assert.True(t, got.Watched)

	_, err = env.svc.RefreshItem(ctx, models.KindMovie, "M-1", nil)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	_, err = env.svc.RefreshItem(ctx, models.KindMovie, "404", nil)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	manualSeries(t, env)

	a, err := env.svc.Delete(ctx, models.KindSeries, "M-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Remove Home Videos", a.Title)
	_, err = env.finish(t, a)
	require.NoError(t, err)

	got, err := env.store.GetSeriesByID(ctx, "M-1")
	require.NoError(t, err)
	assert.Nil(t, got)
	ep, err := env.store.GetEpisodeByID(ctx, "M-1")
	require.NoError(t, err)
	assert.Nil(t, ep)

	_, err = env.svc.Delete(ctx, models.KindSeries, "M-1", nil)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = env.svc.Delete(ctx, models.Kind("book"), "1", nil)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestService_WatchedAndNotificationFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	manualSeries(t, env)
	require.NoError(t, env.store.InsertMovie(ctx, &models.Movie{ID: "7", Title: "Seven"}))

	require.NoError(t, env.svc.MarkWatched(ctx, models.KindMovie, "7", true))
	m, err := env.store.GetMovieByID(ctx, "7")
	require.NoError(t, err)
	assert.True(t, m.Watched)

	require.NoError(t, env.svc.MarkSeasonWatched(ctx, "M-1", 1, true))
	watched, total, err := env.store.CountWatchedEpisodes(ctx, "M-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), watched)
	assert.Equal(t, int64(2), total)

	require.NoError(t, env.svc.MarkEpisodeWatched(ctx, "M-2", false))
	watched, _, err = env.store.CountWatchedEpisodes(ctx, "M-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), watched)

	require.NoError(t, env.svc.SetNotification(ctx, models.KindMovie, "7", true))
	tracked, err := env.store.GetNotificationMovies(ctx)
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	assert.Equal(t, "7", tracked[0].ID)

	assert.True(t, apperrors.IsNotFound(env.svc.MarkWatched(ctx, models.KindMovie, "8", true)))
	assert.True(t, apperrors.IsNotFound(env.svc.MarkEpisodeWatched(ctx, "M-99", true)))
}

func TestService_Bootstrap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.locale = func() string { return "de_DE.UTF-8" }
	env.client.On("ListLanguages", mock.Anything).Return([]metadata.Language{
		{ISO6391: "en", EnglishName: "English", Name: "English"},
		{ISO6391: "de", EnglishName: "German", Name: "Deutsch"},
		{ISO6391: "fr", EnglishName: "French"},
	}, nil).Once()

	require.NoError(t, env.svc.Bootstrap(ctx))

	langs, err := env.store.GetAllLanguages(ctx)
	require.NoError(t, err)
	assert.Len(t, langs, 3)
	fr, err := env.store.GetLanguageByCode(ctx, "fr")
	require.NoError(t, err)
	assert.Equal(t, "French", fr.Name)

	lang, err := env.settings.Language(ctx)
	require.NoError(t, err)
	assert.Equal(t, "de", lang)
	first, err := env.settings.FirstRun(ctx)
	require.NoError(t, err)
	assert.False(t, first)
	onboarded, err := env.settings.OnboardComplete(ctx)
	require.NoError(t, err)
	assert.True(t, onboarded)

	// Later starts skip the download.
	require.NoError(t, env.svc.Bootstrap(ctx))
	env.client.AssertNumberOfCalls(t, "ListLanguages", 1)
}

func TestService_BootstrapOffline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.settings.SetOfflineMode(ctx, true))

	require.NoError(t, env.svc.Bootstrap(ctx))
	first, err := env.settings.FirstRun(ctx)
	require.NoError(t, err)
	assert.True(t, first)
	env.client.AssertNotCalled(t, "ListLanguages", mock.Anything)
}

func TestLocaleLanguage(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"de_DE.UTF-8", "de"},
		{"pt_BR", "pt"},
		{"fr_FR@euro", "fr"},
		{"en", "en"},
		{"C", ""},
		{"POSIX", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, localeLanguage(tt.locale))
		})
	}
}
