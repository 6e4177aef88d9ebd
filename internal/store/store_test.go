package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/config"
	"github.com/mantonx/watchlist/internal/database"
	"github.com/mantonx/watchlist/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeImages struct {
	mu      sync.Mutex
	removed []string
	dirs    []string
}

func (f *fakeImages) Remove(ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ref != "" {
		f.removed = append(f.removed, ref)
	}
	return nil
}

func (f *fakeImages) RemoveSeriesDir(showID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs = append(f.dirs, showID)
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeImages) {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Type: "sqlite", DatabasePath: database.MemoryPath}, hclog.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	images := &fakeImages{}
	s := New(db, images, hclog.NewNullLogger())
	require.NoError(t, s.CreateSchema(context.Background()))
	return s, images
}

func testMovie(id, title string) *models.Movie {
	return &models.Movie{
		ID:               id,
		Title:            title,
		OriginalTitle:    title,
		Overview:         "An overview.",
		Genres:           []string{"Drama"},
		ReleaseDate:      "2023-05-01",
		Runtime:          120,
		Status:           "Released",
		OriginalLanguage: models.Language{ISO6391: "en"},
		AddDate:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local),
	}
}

// testSeries builds a series with the given number of seasons, each with
// perSeason episodes. Episode ids are "<id>-s<season>e<episode>".
func testSeries(id, title string, seasons, perSeason int) *models.Series {
	series := &models.Series{
		ID:               id,
		Title:            title,
		OriginalTitle:    title,
		Genres:           []string{"Comedy"},
		CreatedBy:        []string{"Someone"},
		ReleaseDate:      "2020-01-01",
		Status:           "Returning Series",
		InProduction:     true,
		SeasonsNumber:    seasons,
		EpisodesNumber:   seasons * perSeason,
		OriginalLanguage: models.Language{ISO6391: "en"},
		AddDate:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local),
	}
	for n := 1; n <= seasons; n++ {
		season := models.Season{
			ID:             fmt.Sprintf("%s-s%d", id, n),
			Number:         n,
			Title:          fmt.Sprintf("Season %d", n),
			EpisodesNumber: perSeason,
		}
		for e := 1; e <= perSeason; e++ {
			season.Episodes = append(season.Episodes, models.Episode{
				ID:     fmt.Sprintf("%s-s%de%d", id, n, e),
				Number: e,
				Title:  fmt.Sprintf("Episode %d", e),
			})
		}
		series.Seasons = append(series.Seasons, season)
	}
	return series
}
