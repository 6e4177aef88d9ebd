package watchlist

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/activity"
	"github.com/mantonx/watchlist/internal/config"
	"github.com/mantonx/watchlist/internal/database"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/events"
	"github.com/mantonx/watchlist/internal/metadata"
	"github.com/mantonx/watchlist/internal/metadata/metadatatest"
	"github.com/mantonx/watchlist/internal/models"
	"github.com/mantonx/watchlist/internal/settings"
	"github.com/mantonx/watchlist/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const placeholder = "file:///cache/placeholder.jpg"

type stubImages struct{}

func (stubImages) Poster(_ context.Context, _ models.Kind, p string) string   { return p }
func (stubImages) Backdrop(_ context.Context, _ models.Kind, p string) string { return p }
func (stubImages) SeasonPoster(_ context.Context, _ string, _ int, p string) string {
	return p
}
func (stubImages) Still(_ context.Context, _ string, _ int, p string) string { return p }
func (stubImages) IsLightPoster(ref string) bool                            { return ref == "file:///light.jpg" }
func (stubImages) PosterPlaceholder() string                                { return placeholder }
func (stubImages) Save(kind models.Kind, id, role string, _ []byte) (string, error) {
	return "file:///cache/" + string(kind) + "/" + id + "-" + role + ".jpg", nil
}

type testEnv struct {
	svc      *Service
	store    *store.Store
	settings *settings.Store
	client   *metadatatest.MockClient
	queue    *activity.Queue
	bus      events.EventBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := hclog.NewNullLogger()
	db, err := database.Open(config.DatabaseConfig{Type: "sqlite", DatabasePath: database.MemoryPath}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	st := store.New(db, nil, log)
	require.NoError(t, st.CreateSchema(context.Background()))

	bus := events.NewEventBus(events.DefaultEventBusConfig(), log)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	env := &testEnv{
		store:    st,
		settings: settings.New(db, log),
		client:   &metadatatest.MockClient{},
		queue:    activity.NewQueue(bus, log),
		bus:      bus,
	}
	env.svc = New(env.store, env.client, stubImages{}, env.settings, env.queue, bus, log)
	env.svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	env.svc.locale = func() string { return "" }
	return env
}

// finish waits for the activity and returns its outcome
func (e *testEnv) finish(t *testing.T, a *activity.Activity) (interface{}, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.queue.Wait(ctx))
	e.queue.Drain()
	require.True(t, a.Completed())
	return a.Result()
}

func TestService_AddManualMovie(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var delivered *activity.Activity
	a, err := env.svc.AddManualMovie(&models.Movie{Title: "Test Film", Genres: []string{" Drama ", ""}}, nil,
		func(a *activity.Activity, _ interface{}, _ error) { delivered = a })
	require.NoError(t, err)
	_, err = env.finish(t, a)
	require.NoError(t, err)
	assert.Same(t, a, delivered)

	got, err := env.store.GetMovieByID(ctx, "M-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Test Film", got.Title)
	assert.True(t, got.Manual)
	assert.Equal(t, []string{"Drama"}, got.Genres)
	assert.Equal(t, placeholder, got.PosterPath)

	a, err = env.svc.AddManualMovie(&models.Movie{Title: "Second"}, &ManualImages{Poster: []byte{1}}, nil)
	require.NoError(t, err)
	result, err := env.finish(t, a)
	require.NoError(t, err)
	second := result.(*models.Movie)
	assert.Equal(t, "M-2", second.ID)
	assert.Equal(t, "file:///cache/movie/M-2-poster.jpg", second.PosterPath)
}

func TestService_AddManualMovieConcurrentIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.AddManualMovie(&models.Movie{Title: fmt.Sprintf("Film %d", i)}, nil, nil)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, env.queue.Wait(waitCtx))
	env.queue.Drain()
	assert.Equal(t, n, env.queue.Summary().CompletedOK)

	movies, err := env.store.GetAllMovies(ctx, store.SortAZ)
	require.NoError(t, err)
	var ids []string
	for _, m := range movies {
		ids = append(ids, m.ID)
	}
	want := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		want = append(want, fmt.Sprintf("M-%d", i))
	}
	assert.ElementsMatch(t, want, ids)
}

func TestService_AddManualMovieRequiresTitle(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.AddManualMovie(&models.Movie{Title: "  "}, nil, nil)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	assert.Empty(t, env.queue.Snapshot())
}

func TestService_AddManualSeries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	series := &models.Series{
		Title: "Home Videos",
		Seasons: []models.Season{
			{Number: 1, Title: "Summer", Episodes: []models.Episode{{Number: 1, Title: "Beach"}, {Number: 2, Title: "Lake"}}},
			{Number: 2, Title: "Winter", Episodes: []models.Episode{{Number: 1, Title: "Snow"}}},
		},
	}
	a, err := env.svc.AddManualSeries(series, nil, nil)
	require.NoError(t, err)
	_, err = env.finish(t, a)
	require.NoError(t, err)

	got, err := env.store.GetSeriesByID(ctx, "M-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Manual)
	assert.Equal(t, 2, got.SeasonsNumber)
	assert.Equal(t, 3, got.EpisodesNumber)
	require.Len(t, got.Seasons, 2)
	assert.Equal(t, "M-1", got.Seasons[0].ID)
	assert.Equal(t, "M-2", got.Seasons[1].ID)

	var ids []string
	for _, ep := range got.Episodes() {
		ids = append(ids, ep.ID)
		assert.Equal(t, "M-1", ep.ShowID)
	}
	assert.Equal(t, []string{"M-1", "M-2", "M-3"}, ids)
}

func TestService_AddFromRemoteMovie(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.client.On("GetMovie", mock.Anything, "603", "en").Return(&metadata.MovieDetail{
		ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30", Genres: []metadata.Genre{{ID: 1, Name: "Action"}},
	}, nil).Once()

	a, err := env.svc.AddFromRemote(ctx, "603", models.KindMovie, nil)
	require.NoError(t, err)
	assert.Equal(t, activity.KindAdd, a.Kind)
	_, err = env.finish(t, a)
	require.NoError(t, err)

	got, err := env.store.GetMovieByID(ctx, "603")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "The Matrix", got.Title)
	assert.False(t, got.Manual)
	assert.Equal(t, []string{"Action"}, got.Genres)

	filter := events.EventFilter{Types: []events.EventType{events.EventContentAdded}}
	require.Eventually(t, func() bool {
		return len(env.bus.RecentEvents(filter)) == 1
	}, 5*time.Second, 5*time.Millisecond)

	// A second add of the same title fails without another fetch.
	a, err = env.svc.AddFromRemote(ctx, "603", models.KindMovie, nil)
	require.NoError(t, err)
	_, err = env.finish(t, a)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	env.client.AssertNumberOfCalls(t, "GetMovie", 1)
}

func TestService_AddFromRemoteSeries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.client.On("GetSeries", mock.Anything, "1399", "en").Return(&metadata.SeriesDetail{
		ID: 1399, Name: "Dragons",
		Seasons: []metadata.SeasonSummary{{ID: 10, SeasonNumber: 1}, {ID: 11, SeasonNumber: 2}},
	}, nil)
	env.client.On("GetSeasonEpisodes", mock.Anything, "1399", 1, "en").Return([]metadata.EpisodeDetail{
		{ID: 100, EpisodeNumber: 1, SeasonNumber: 1},
		{ID: 101, EpisodeNumber: 2, SeasonNumber: 1},
	}, nil)
	env.client.On("GetSeasonEpisodes", mock.Anything, "1399", 2, "en").Return([]metadata.EpisodeDetail{
		{ID: 200, EpisodeNumber: 1, SeasonNumber: 2},
	}, nil)

	a, err := env.svc.AddFromRemote(ctx, "1399", models.KindSeries, nil)
	require.NoError(t, err)
	result, err := env.finish(t, a)
	require.NoError(t, err)
	assert.Equal(t, "Dragons", result.(*models.Series).Title)

	got, err := env.store.GetSeriesByID(ctx, "1399")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Seasons, 2)
	assert.Len(t, got.Episodes(), 3)
}

func TestService_AddFromRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.client.On("GetMovie", mock.Anything, "1", "en").Return(nil, apperrors.NewNetworkError("/movie/1", 404, nil))

	a, err := env.svc.AddFromRemote(ctx, "1", models.KindMovie, nil)
	require.NoError(t, err)
	_, err = env.finish(t, a)
	assert.True(t, apperrors.IsNetwork(err))
	assert.Equal(t, activity.StatusCompletedError, a.Status())

	got, err := env.store.GetMovieByID(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_OfflineRefusesProviderWork(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.settings.SetOfflineMode(ctx, true))
	require.NoError(t, env.store.InsertMovie(ctx, &models.Movie{ID: "5", Title: "Five"}))

	_, err := env.svc.AddFromRemote(ctx, "603", models.KindMovie, nil)
	assert.True(t, apperrors.IsOffline(err))
	_, err = env.svc.RefreshItem(ctx, models.KindMovie, "5", nil)
	assert.True(t, apperrors.IsOffline(err))
	_, err = env.svc.Search(ctx, "matrix")
	assert.True(t, apperrors.IsOffline(err))

	assert.Empty(t, env.queue.Snapshot())
	env.client.AssertNotCalled(t, "GetMovie", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Search(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.settings.SetLanguage(ctx, "de"))

	env.client.On("Search", mock.Anything, "matrix", "de").Return([]metadata.SearchResult{
		{ID: 603, MediaType: "movie", Title: "Matrix", ReleaseDate: "1999-03-30"},
	}, nil)

	results, err := env.svc.Search(ctx, "matrix")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "603", results[0].ID)
	assert.Equal(t, models.KindMovie, results[0].MediaType)

	_, err = env.svc.Search(ctx, " ")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}
