package store

import (
	"context"
	"testing"

	"github.com/mantonx/watchlist/internal/database"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countRows(t *testing.T, s *Store, model interface{}, showID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Model(model).Where("show_id = ?", showID).Count(&n).Error)
	return n
}

func TestStore_SeriesRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	series := testSeries("1399", "Thrones", 2, 3)
	series.CreatedBy = []string{"Benioff, David", "Weiss"}
	require.NoError(t, s.InsertSeries(ctx, series))

	got, err := s.GetSeriesByID(ctx, "1399")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Benioff, David", "Weiss"}, got.CreatedBy)
	require.Len(t, got.Seasons, 2)
	assert.Equal(t, 1, got.Seasons[0].Number)
	assert.Equal(t, 2, got.Seasons[1].Number)
	require.Len(t, got.Seasons[1].Episodes, 3)
	for i, ep := range got.Seasons[1].Episodes {
		assert.Equal(t, i+1, ep.Number)
		assert.Equal(t, 2, ep.SeasonNumber)
		assert.Equal(t, "1399", ep.ShowID)
	}

	episodes, err := s.GetSeasonEpisodes(ctx, "1399", 1)
	require.NoError(t, err)
	assert.Len(t, episodes, 3)

	ep, err := s.GetEpisodeByID(ctx, "1399-s2e3")
	require.NoError(t, err)
	require.NotNil(t, ep)
	assert.Equal(t, "Episode 3", ep.Title)

	missing, err := s.GetSeriesByID(ctx, "404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_UpdateSeries_PreservesWatchedEpisodes(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertSeries(ctx, testSeries("7", "Show", 1, 3)))
	require.NoError(t, s.MarkWatchedEpisode(ctx, "7-s1e1", true))
	require.NoError(t, s.MarkWatchedEpisode(ctx, "7-s1e2", true))
	require.NoError(t, s.SetNotificationFlag(ctx, models.KindSeries, "7", true))

	old, err := s.GetSeriesByID(ctx, "7")
	require.NoError(t, err)

	// The refreshed copy drops episode 3 and adds episode 4.
	updated := testSeries("7", "Show Renamed", 1, 2)
	updated.Seasons[0].Episodes = append(updated.Seasons[0].Episodes, models.Episode{ID: "7-s1e4", Number: 4, Title: "Episode 4"})
	require.NoError(t, s.UpdateSeries(ctx, old, updated))

	got, err := s.GetSeriesByID(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "Show Renamed", got.Title)
	assert.True(t, got.ActivateNotification)
	assert.True(t, old.AddDate.Equal(got.AddDate))

	watched := map[string]bool{}
	for _, ep := range got.Episodes() {
		watched[ep.ID] = ep.Watched
	}
	assert.Equal(t, map[string]bool{"7-s1e1": true, "7-s1e2": true, "7-s1e4": false}, watched)
}

func TestStore_UpdateSeries_UsesStoredWatchedState(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertSeries(ctx, testSeries("8", "Show", 1, 2)))
	require.NoError(t, s.MarkWatchedEpisode(ctx, "8-s1e2", true))

	// A stale copy without episodes still keeps the stored watched flags.
	stale := &models.Series{ID: "8"}
	require.NoError(t, s.UpdateSeries(ctx, stale, testSeries("8", "Show", 1, 2)))

	ep, err := s.GetEpisodeByID(ctx, "8-s1e2")
	require.NoError(t, err)
	assert.True(t, ep.Watched)
}

func TestStore_UpdateSeries_Missing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.UpdateSeries(ctx, &models.Series{ID: "nope"}, testSeries("nope", "Ghost", 1, 1))
	assert.True(t, apperrors.IsNotFound(err))

	got, err := s.GetSeriesByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_DeleteSeries_Cascades(t *testing.T) {
	s, images := newTestStore(t)
	ctx := context.Background()

	series := testSeries("42", "Answer", 2, 5)
	series.PosterPath = "file:///data/series/posters/42.jpg"
	require.NoError(t, s.InsertSeries(ctx, series))
	require.EqualValues(t, 2, countRows(t, s, &database.Season{}, "42"))
	require.EqualValues(t, 10, countRows(t, s, &database.Episode{}, "42"))

	require.NoError(t, s.DeleteSeries(ctx, "42"))
	assert.EqualValues(t, 0, countRows(t, s, &database.Season{}, "42"))
	assert.EqualValues(t, 0, countRows(t, s, &database.Episode{}, "42"))
	assert.Equal(t, []string{series.PosterPath}, images.removed)
	assert.Equal(t, []string{"42"}, images.dirs)

	require.NoError(t, s.DeleteSeries(ctx, "42"))
	assert.Len(t, images.dirs, 1)
}

func TestStore_MarkWatchedSeries(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	series := testSeries("3", "Three", 1, 3)
	series.NewRelease = true
	series.SoonRelease = true
	require.NoError(t, s.InsertSeries(ctx, series))

	require.NoError(t, s.MarkWatchedSeries(ctx, "3", true))
	got, err := s.GetSeriesByID(ctx, "3")
	require.NoError(t, err)
	assert.True(t, got.Watched)
	assert.False(t, got.NewRelease)
	assert.False(t, got.SoonRelease)
	assert.True(t, got.Seasons[0].Watched())

	watched, total, err := s.CountWatchedEpisodes(ctx, "3")
	require.NoError(t, err)
	assert.EqualValues(t, 3, watched)
	assert.EqualValues(t, 3, total)

	require.NoError(t, s.MarkWatchedSeason(ctx, "3", 1, false))
	watched, _, err = s.CountWatchedEpisodes(ctx, "3")
	require.NoError(t, err)
	assert.EqualValues(t, 0, watched)

	assert.True(t, apperrors.IsNotFound(s.MarkWatchedSeries(ctx, "missing", true)))
}

func TestStore_ReleaseInfoAndNotificationSeries(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	tracked := testSeries("1", "Tracked", 1, 1)
	tracked.ActivateNotification = true
	require.NoError(t, s.InsertSeries(ctx, tracked))
	require.NoError(t, s.InsertSeries(ctx, testSeries("2", "Untracked", 1, 1)))

	require.NoError(t, s.UpdateReleaseInfo(ctx, "1", "2024-01-01", "2024-01-15", false))

	all, err := s.GetNotificationSeries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2024-01-01", all[0].LastAirDate)
	assert.Equal(t, "2024-01-15", all[0].NextAirDate)
	assert.False(t, all[0].InProduction)
	assert.Empty(t, all[0].Seasons)
}

func TestStore_GetAllSeries(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertSeries(ctx, testSeries("1", "Beta", 2, 1)))
	require.NoError(t, s.InsertSeries(ctx, testSeries("2", "alpha", 1, 2)))
	require.NoError(t, s.InsertSeries(ctx, testSeries("3", "Empty", 0, 0)))

	all, err := s.GetAllSeries(ctx, SortAZ)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Title)
	assert.Len(t, all[0].Seasons, 1)
	assert.Len(t, all[0].Seasons[0].Episodes, 2)
	assert.Equal(t, "Beta", all[1].Title)
	assert.Len(t, all[1].Seasons, 2)
	assert.NotNil(t, all[2].Seasons)
	assert.Empty(t, all[2].Seasons)

	seasons, err := s.GetSeasons(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, seasons, 2)
}

func TestStore_MarkWatchedSeason(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertSeries(ctx, testSeries("11", "Show", 2, 2)))

	require.NoError(t, s.MarkWatchedSeason(ctx, "11", 2, true))
	watched, total, err := s.CountWatchedEpisodes(ctx, "11")
	require.NoError(t, err)
	assert.Equal(t, int64(2), watched)
	assert.Equal(t, int64(4), total)

	assert.True(t, apperrors.IsNotFound(s.MarkWatchedSeason(ctx, "11", 3, true)))
	assert.True(t, apperrors.IsNotFound(s.MarkWatchedSeason(ctx, "missing", 1, true)))

	watched, _, err = s.CountWatchedEpisodes(ctx, "11")
	require.NoError(t, err)
	assert.Equal(t, int64(2), watched)
}
