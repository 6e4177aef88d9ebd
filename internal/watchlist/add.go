package watchlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/mantonx/watchlist/internal/activity"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/events"
	"github.com/mantonx/watchlist/internal/metadata"
	"github.com/mantonx/watchlist/internal/models"
	"github.com/mantonx/watchlist/internal/store"
)

// ManualImages are user supplied images for a manual title. Nil data
// keeps the image already stored, or the placeholder for a new title.
type ManualImages struct {
	Poster   []byte
	Backdrop []byte
}

// AddFromRemote submits an activity that fetches a title from the provider
// and stores it. It refuses while offline.
func (s *Service) AddFromRemote(ctx context.Context, id string, kind models.Kind, onDone activity.DoneFunc) (*activity.Activity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if id == "" || store.IsManualID(id) {
		return nil, apperrors.NewValidationError("not a provider id: "+id, "id")
	}
	if err := s.requireOnline(ctx, "add title"); err != nil {
		return nil, err
	}

	a := activity.New(fmt.Sprintf("Add %s %s", kind, id), activity.KindAdd, func(ctx context.Context, a *activity.Activity) (interface{}, error) {
		lang, err := s.settings.Language(ctx)
		if err != nil {
			return nil, err
		}
		if kind == models.KindMovie {
			return s.addRemoteMovie(ctx, a, id, lang)
		}
		return s.addRemoteSeries(ctx, a, id, lang)
	})
	if err := s.queue.Submit(a, onDone); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) addRemoteMovie(ctx context.Context, a *activity.Activity, id, lang string) (*models.Movie, error) {
	existing, err := s.store.GetMovieByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%q is already on the watchlist", existing.Title), "id")
	}

	detail, err := s.client.GetMovie(ctx, id, lang)
	if err != nil {
		return nil, err
	}
	if a.Cancelled() {
		return nil, apperrors.NewCancelledError(a.Title)
	}
	a.SetProgress(0.5)

	m := models.MovieFromRemote(ctx, detail, s.images, s.now())
	if a.Cancelled() {
		return nil, apperrors.NewCancelledError(a.Title)
	}
	if err := s.store.InsertMovie(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("movie added", "id", m.ID, "title", m.Title)
	s.publish(events.EventContentAdded, models.KindMovie, m.ID, "Movie added", m.Title)
	return m, nil
}

func (s *Service) addRemoteSeries(ctx context.Context, a *activity.Activity, id, lang string) (*models.Series, error) {
	existing, err := s.store.GetSeriesByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%q is already on the watchlist", existing.Title), "id")
	}

	detail, episodes, err := metadata.FetchSeries(ctx, s.client, id, lang)
	if err != nil {
		return nil, err
	}
	if a.Cancelled() {
		return nil, apperrors.NewCancelledError(a.Title)
	}
	a.SetProgress(0.5)

	series := models.SeriesFromRemote(ctx, detail, episodes, s.images, s.now())
	if a.Cancelled() {
		return nil, apperrors.NewCancelledError(a.Title)
	}
	if err := s.store.InsertSeries(ctx, series); err != nil {
		return nil, err
	}
	s.logger.Info("series added", "id", series.ID, "title", series.Title, "seasons", len(series.Seasons))
	s.publish(events.EventContentAdded, models.KindSeries, series.ID, "Series added", series.Title)
	return series, nil
}

// AddManualMovie submits an activity that stores a user entered movie under
// the next free manual id
func (s *Service) AddManualMovie(m *models.Movie, images *ManualImages, onDone activity.DoneFunc) (*activity.Activity, error) {
	if m == nil || strings.TrimSpace(m.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", "title")
	}

	a := activity.New("Add "+m.Title, activity.KindAdd, func(ctx context.Context, a *activity.Activity) (interface{}, error) {
		s.manualMu.Lock()
		defer s.manualMu.Unlock()

		id, err := s.store.GetNextManualID(ctx, store.ManualMovie)
		if err != nil {
			return nil, err
		}
		m.ID = id
		m.Manual = true
		m.AddDate = s.now()
		m.Genres = models.NormalizeList(m.Genres)
		if err := s.applyManualImages(models.KindMovie, id, images, &m.PosterPath, &m.BackdropPath); err != nil {
			return nil, err
		}
		m.Color = s.images.IsLightPoster(m.PosterPath)

		if err := s.store.InsertMovie(ctx, m); err != nil {
			return nil, err
		}
		s.logger.Info("manual movie added", "id", m.ID, "title", m.Title)
		s.publish(events.EventContentAdded, models.KindMovie, m.ID, "Movie added", m.Title)
		return m, nil
	})
	if err := s.queue.Submit(a, onDone); err != nil {
		return nil, err
	}
	return a, nil
}

// AddManualSeries submits an activity that stores a user entered series.
// The series, its seasons and its episodes each get the next free manual
// id of their table.
func (s *Service) AddManualSeries(series *models.Series, images *ManualImages, onDone activity.DoneFunc) (*activity.Activity, error) {
	if series == nil || strings.TrimSpace(series.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", "title")
	}

	a := activity.New("Add "+series.Title, activity.KindAdd, func(ctx context.Context, a *activity.Activity) (interface{}, error) {
		s.manualMu.Lock()
		defer s.manualMu.Unlock()

		id, err := s.store.GetNextManualID(ctx, store.ManualSeries)
		if err != nil {
			return nil, err
		}
		series.ID = id
		series.Manual = true
		series.AddDate = s.now()
		series.Genres = models.NormalizeList(series.Genres)
		series.CreatedBy = models.NormalizeList(series.CreatedBy)
		if err := s.assignManualChildIDs(ctx, series); err != nil {
			return nil, err
		}
		if err := s.applyManualImages(models.KindSeries, id, images, &series.PosterPath, &series.BackdropPath); err != nil {
			return nil, err
		}
		series.Color = s.images.IsLightPoster(series.PosterPath)

		if err := s.store.InsertSeries(ctx, series); err != nil {
			return nil, err
		}
		s.logger.Info("manual series added", "id", series.ID, "title", series.Title, "seasons", len(series.Seasons))
		s.publish(events.EventContentAdded, models.KindSeries, series.ID, "Series added", series.Title)
		return series, nil
	})
	if err := s.queue.Submit(a, onDone); err != nil {
		return nil, err
	}
	return a, nil
}

// assignManualChildIDs gives every season and episode without an id the
// next manual id of its table. The sequences count locally so ids inside
// one series never repeat. Callers hold manualMu.
func (s *Service) assignManualChildIDs(ctx context.Context, series *models.Series) error {
	seasons, err := s.store.NewManualIDSequence(ctx, store.ManualSeason)
	if err != nil {
		return err
	}
	episodes, err := s.store.NewManualIDSequence(ctx, store.ManualEpisode)
	if err != nil {
		return err
	}

	series.SeasonsNumber = len(series.Seasons)
	total := 0
	for i := range series.Seasons {
		season := &series.Seasons[i]
		if season.ID == "" {
			season.ID = seasons.Next()
		}
		if season.PosterPath == "" {
			season.PosterPath = s.images.PosterPlaceholder()
		}
		season.EpisodesNumber = len(season.Episodes)
		for j := range season.Episodes {
			if season.Episodes[j].ID == "" {
				season.Episodes[j].ID = episodes.Next()
			}
		}
		total += len(season.Episodes)
	}
	series.EpisodesNumber = total
	return nil
}

// applyManualImages stores the supplied images of a manual title and fills
// a missing poster with the placeholder
func (s *Service) applyManualImages(kind models.Kind, id string, images *ManualImages, poster, backdrop *string) error {
	if images != nil && len(images.Poster) > 0 {
		ref, err := s.images.Save(kind, id, "poster", images.Poster)
		if err != nil {
			return err
		}
		*poster = ref
	}
	if images != nil && len(images.Backdrop) > 0 {
		ref, err := s.images.Save(kind, id, "backdrop", images.Backdrop)
		if err != nil {
			return err
		}
		*backdrop = ref
	}
	if *poster == "" {
		*poster = s.images.PosterPlaceholder()
	}
	return nil
}
