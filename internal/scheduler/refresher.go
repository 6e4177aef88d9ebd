package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/activity"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/metadata"
	"github.com/mantonx/watchlist/internal/models"
	"github.com/mantonx/watchlist/internal/store"
	"github.com/sourcegraph/conc/pool"
)

// Library is the part of the store the refresh and the scan use
type Library interface {
	GetAllMovies(ctx context.Context, order store.SortOrder) ([]*models.Movie, error)
	GetAllSeries(ctx context.Context, order store.SortOrder) ([]*models.Series, error)
	UpdateMovie(ctx context.Context, old, updated *models.Movie) error
	UpdateSeries(ctx context.Context, old, updated *models.Series) error
	GetNotificationMovies(ctx context.Context) ([]*models.Movie, error)
	GetNotificationSeries(ctx context.Context) ([]*models.Series, error)
	SetNotificationFlag(ctx context.Context, kind models.Kind, id string, v bool) error
	SetNewReleaseFlag(ctx context.Context, kind models.Kind, id string, v bool) error
	SetSoonReleaseFlag(ctx context.Context, kind models.Kind, id string, v bool) error
	UpdateReleaseInfo(ctx context.Context, id, lastAirDate, nextAirDate string, inProduction bool) error
	UpdateMovieReleaseDate(ctx context.Context, id, date string) error
}

// RefreshResult counts the outcome of a library refresh
type RefreshResult struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Refresher refetches every non-manual title from the provider
type Refresher struct {
	library  Library
	client   metadata.Client
	images   models.ImageResolver
	settings Settings
	workers  int
	now      func() time.Time
	logger   hclog.Logger
}

// NewRefresher creates a refresher running at most workers fetches at once
func NewRefresher(library Library, client metadata.Client, images models.ImageResolver, st Settings, workers int, logger hclog.Logger) *Refresher {
	if workers < 1 {
		workers = 4
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Refresher{
		library:  library,
		client:   client,
		images:   images,
		settings: st,
		workers:  workers,
		now:      time.Now,
		logger:   logger.Named("refresh"),
	}
}

// Refresh updates every non-manual title. A failing title is logged and
// counted; the refresh fails only when every title failed. a may be nil.
func (r *Refresher) Refresh(ctx context.Context, a *activity.Activity) (RefreshResult, error) {
	lang, err := r.settings.Language(ctx)
	if err != nil {
		return RefreshResult{}, err
	}
	movies, err := r.library.GetAllMovies(ctx, store.SortAddedNewest)
	if err != nil {
		return RefreshResult{}, err
	}
	series, err := r.library.GetAllSeries(ctx, store.SortAddedNewest)
	if err != nil {
		return RefreshResult{}, err
	}

	var jobs []func(context.Context) error
	for _, m := range movies {
		if m.Manual {
			continue
		}
		m := m
		jobs = append(jobs, func(ctx context.Context) error { return r.refreshMovie(ctx, m, lang) })
	}
	for _, s := range series {
		if s.Manual {
			continue
		}
		s := s
		jobs = append(jobs, func(ctx context.Context) error { return r.refreshSeries(ctx, s, lang) })
	}

	result := RefreshResult{Total: len(jobs)}
	if len(jobs) == 0 {
		return result, nil
	}

	var (
		mu       sync.Mutex
		done     int
		failed   int
		firstErr error
	)

	p := pool.New().WithMaxGoroutines(r.workers)
	for _, job := range jobs {
		job := job
		p.Go(func() {
			err := job(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
			}
			done++
			if a != nil {
				a.SetProgress(float64(done) / float64(len(jobs)))
			}
		})
	}
	p.Wait()

	result.Failed = failed
	result.Updated = result.Total - result.Failed
	r.logger.Info("library refresh finished", "total", result.Total, "updated", result.Updated, "failed", result.Failed)
	if result.Failed == result.Total {
		return result, apperrors.NewInternalError("every title failed to refresh", firstErr)
	}
	return result, nil
}

func (r *Refresher) refreshMovie(ctx context.Context, old *models.Movie, lang string) error {
	detail, err := r.client.GetMovie(ctx, old.ID, lang)
	if err != nil {
		r.logger.Warn("movie refresh failed", "id", old.ID, "title", old.Title, "error", err)
		return err
	}
	updated := models.MovieFromRemote(ctx, detail, r.images, r.now())
	if err := r.library.UpdateMovie(ctx, old, updated); err != nil {
		r.logger.Warn("storing refreshed movie failed", "id", old.ID, "error", err)
		return err
	}
	return nil
}

func (r *Refresher) refreshSeries(ctx context.Context, old *models.Series, lang string) error {
	detail, episodes, err := metadata.FetchSeries(ctx, r.client, old.ID, lang)
	if err != nil {
		r.logger.Warn("series refresh failed", "id", old.ID, "title", old.Title, "error", err)
		return err
	}
	updated := models.SeriesFromRemote(ctx, detail, episodes, r.images, r.now())
	if err := r.library.UpdateSeries(ctx, old, updated); err != nil {
		r.logger.Warn("storing refreshed series failed", "id", old.ID, "error", err)
		return err
	}
	return nil
}
