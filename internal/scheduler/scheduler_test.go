package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/activity"
	"github.com/mantonx/watchlist/internal/config"
	"github.com/mantonx/watchlist/internal/database"
	"github.com/mantonx/watchlist/internal/events"
	"github.com/mantonx/watchlist/internal/metadata/metadatatest"
	"github.com/mantonx/watchlist/internal/models"
	"github.com/mantonx/watchlist/internal/settings"
	"github.com/mantonx/watchlist/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type passthroughImages struct{}

func (passthroughImages) Poster(_ context.Context, _ models.Kind, p string) string   { return p }
func (passthroughImages) Backdrop(_ context.Context, _ models.Kind, p string) string { return p }
func (passthroughImages) SeasonPoster(_ context.Context, _ string, _ int, p string) string {
	return p
}
func (passthroughImages) Still(_ context.Context, _ string, _ int, p string) string { return p }
func (passthroughImages) IsLightPoster(string) bool                                { return false }

type fixture struct {
	library  *store.Store
	settings *settings.Store
	client   *metadatatest.MockClient
	bus      events.EventBus
	queue    *activity.Queue
	cfg      config.SchedulerConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := hclog.NewNullLogger()
	db, err := database.Open(config.DatabaseConfig{Type: "sqlite", DatabasePath: database.MemoryPath}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	library := store.New(db, nil, log)
	require.NoError(t, library.CreateSchema(context.Background()))

	bus := events.NewEventBus(events.DefaultEventBusConfig(), log)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	return &fixture{
		library:  library,
		settings: settings.New(db, log),
		client:   &metadatatest.MockClient{},
		bus:      bus,
		queue:    activity.NewQueue(bus, log),
		cfg:      config.DefaultConfig().Scheduler,
	}
}

func (f *fixture) scanner(now time.Time) *Scanner {
	s := NewScanner(f.library, f.client, f.settings, f.bus, f.cfg, hclog.NewNullLogger())
	s.now = func() time.Time { return now }
	return s
}

func (f *fixture) refresher() *Refresher {
	return NewRefresher(f.library, f.client, passthroughImages{}, f.settings, f.cfg.RefreshWorkers, hclog.NewNullLogger())
}

func (f *fixture) scheduler(now time.Time) *Scheduler {
	return New(f.queue, f.settings, f.refresher(), f.scanner(now), f.cfg, hclog.NewNullLogger())
}

func waitQueue(t *testing.T, q *activity.Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))
}

func TestScheduler_CheckRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	s := f.scheduler(now)

	// Never refreshed: due.
	submitted, err := s.CheckRefresh(ctx, now)
	require.NoError(t, err)
	assert.True(t, submitted)
	waitQueue(t, f.queue)

	last, err := f.settings.LastUpdate(ctx)
	require.NoError(t, err)
	assert.True(t, now.Equal(last))

	// Weekly: not due a day later, due a week later.
	submitted, err = s.CheckRefresh(ctx, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, submitted)
	submitted, err = s.CheckRefresh(ctx, now.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.True(t, submitted)
	waitQueue(t, f.queue)

	require.NoError(t, f.settings.SetUpdateFrequency(ctx, settings.FrequencyNever))
	submitted, err = s.CheckRefresh(ctx, now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.False(t, submitted)
}

func TestScheduler_CheckNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	s := f.scheduler(now)

	require.NoError(t, f.settings.SetLastNotificationCheck(ctx, now.Add(-time.Hour)))
	submitted, err := s.CheckNotifications(ctx, now)
	require.NoError(t, err)
	assert.False(t, submitted)

	// A scan of the same title still running blocks a new one and leaves
	// the timestamp alone.
	release := make(chan struct{})
	blocker := activity.New(ScanTitle, activity.KindUpdate, func(context.Context, *activity.Activity) (interface{}, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, f.queue.Submit(blocker, nil))
	later := now.Add(12 * time.Hour)
	submitted, err = s.CheckNotifications(ctx, later)
	require.NoError(t, err)
	assert.False(t, submitted)
	close(release)
	waitQueue(t, f.queue)

	submitted, err = s.CheckNotifications(ctx, later)
	require.NoError(t, err)
	assert.True(t, submitted)
	waitQueue(t, f.queue)
	last, err := f.settings.LastNotificationCheck(ctx)
	require.NoError(t, err)
	assert.True(t, later.Equal(last))
}

func TestScheduler_MigrationForcesRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	s := f.scheduler(now)

	require.NoError(t, f.settings.SetUpdateFrequency(ctx, settings.FrequencyNever))
	require.NoError(t, f.settings.SetNeedsUpdate(ctx, true))

	submitted, err := s.CheckRefresh(ctx, now)
	require.NoError(t, err)
	assert.True(t, submitted)
	waitQueue(t, f.queue)

	needed, err := f.settings.NeedsUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, needed)

	submitted, err = s.CheckRefresh(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, submitted)
}

func TestScheduler_OfflineSkipsWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	s := f.scheduler(now)
	require.NoError(t, f.settings.SetOfflineMode(ctx, true))

	submitted, err := s.CheckRefresh(ctx, now)
	require.NoError(t, err)
	assert.False(t, submitted)
	submitted, err = s.CheckNotifications(ctx, now)
	require.NoError(t, err)
	assert.False(t, submitted)

	last, err := f.settings.LastUpdate(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
	assert.Empty(t, f.queue.Snapshot())
}

func TestScheduler_ClosedQueueSkipsWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	s := f.scheduler(now)
	f.queue.Close()

	submitted, err := s.CheckRefresh(ctx, now)
	require.NoError(t, err)
	assert.False(t, submitted)
	submitted, err = s.CheckNotifications(ctx, now)
	require.NoError(t, err)
	assert.False(t, submitted)

	last, err := f.settings.LastNotificationCheck(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
	assert.True(t, f.queue.CanExit())
}
