package settings

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/config"
	"github.com/mantonx/watchlist/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Type: "sqlite", DatabasePath: database.MemoryPath}, hclog.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	_, err = database.CreateSchema(context.Background(), db)
	require.NoError(t, err)
	return New(db, hclog.NewNullLogger())
}

func TestStore_Defaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lang, err := s.Language(ctx)
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	freq, err := s.UpdateFrequency(ctx)
	require.NoError(t, err)
	assert.Equal(t, FrequencyWeek, freq)

	first, err := s.FirstRun(ctx)
	require.NoError(t, err)
	assert.True(t, first)

	offline, err := s.OfflineMode(ctx)
	require.NoError(t, err)
	assert.False(t, offline)

	last, err := s.LastUpdate(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	sorting, err := s.ViewSorting(ctx)
	require.NoError(t, err)
	assert.Equal(t, "added-date-new", sorting)
}

func TestStore_SetOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetLanguage(ctx, "it"))
	require.NoError(t, s.SetLanguage(ctx, "de"))
	lang, err := s.Language(ctx)
	require.NoError(t, err)
	assert.Equal(t, "de", lang)

	require.NoError(t, s.SetOfflineMode(ctx, true))
	offline, err := s.OfflineMode(ctx)
	require.NoError(t, err)
	assert.True(t, offline)

	checked := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetLastNotificationCheck(ctx, checked))
	got, err := s.LastNotificationCheck(ctx)
	require.NoError(t, err)
	assert.True(t, checked.Equal(got))
}

func TestStore_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.SetUpdateFrequency(ctx, "hourly"))
	assert.Error(t, s.SetViewStyle(ctx, "carousel"))

	// Unknown stored values fall back to the default.
	require.NoError(t, s.Set(ctx, KeyUpdateFrequency, "fortnight"))
	freq, err := s.UpdateFrequency(ctx)
	require.NoError(t, err)
	assert.Equal(t, FrequencyWeek, freq)
}

func TestFrequency_Due(t *testing.T) {
	last := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)

	assert.False(t, FrequencyNever.Due(last, last.AddDate(10, 0, 0)))
	assert.False(t, FrequencyNever.Due(time.Time{}, last))
	assert.True(t, FrequencyWeek.Due(time.Time{}, last))

	assert.False(t, FrequencyDay.Due(last, last.Add(23*time.Hour)))
	assert.True(t, FrequencyDay.Due(last, last.Add(24*time.Hour)))

	assert.False(t, FrequencyWeek.Due(last, last.AddDate(0, 0, 6)))
	assert.True(t, FrequencyWeek.Due(last, last.AddDate(0, 0, 7)))

	// One calendar month after Jan 31 normalizes to Mar 2 in a leap year.
	assert.False(t, FrequencyMonth.Due(last, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.True(t, FrequencyMonth.Due(last, time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)))
}
