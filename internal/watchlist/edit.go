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

// EditMovie submits an activity that replaces the content of a stored
// movie. Watched state and notification flags stay as they are.
func (s *Service) EditMovie(old, updated *models.Movie, images *ManualImages, onDone activity.DoneFunc) (*activity.Activity, error) {
	if old == nil || updated == nil {
		return nil, apperrors.NewValidationError("movie is required", "movie")
	}
	if strings.TrimSpace(updated.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", "title")
	}

	a := activity.New("Update "+old.Title, activity.KindUpdate, func(ctx context.Context, a *activity.Activity) (interface{}, error) {
		updated.CarryUserState(old)
		updated.Genres = models.NormalizeList(updated.Genres)
		keepImages(&updated.PosterPath, &updated.BackdropPath, &updated.Color, old.PosterPath, old.BackdropPath, old.Color)
		if err := s.applyManualImages(models.KindMovie, old.ID, images, &updated.PosterPath, &updated.BackdropPath); err != nil {
			return nil, err
		}
		if updated.PosterPath != old.PosterPath {
			updated.Color = s.images.IsLightPoster(updated.PosterPath)
		}
		if err := s.store.UpdateMovie(ctx, old, updated); err != nil {
			return nil, err
		}
		s.publish(events.EventContentUpdated, models.KindMovie, old.ID, "Movie updated", updated.Title)
		return updated, nil
	})
	if err := s.queue.Submit(a, onDone); err != nil {
		return nil, err
	}
	return a, nil
}

// EditSeries submits an activity that replaces a stored series with its
// seasons and episodes. Seasons and episodes without an id get manual ids;
// episodes that keep their id keep their watched state.
func (s *Service) EditSeries(old, updated *models.Series, images *ManualImages, onDone activity.DoneFunc) (*activity.Activity, error) {
	if old == nil || updated == nil {
		return nil, apperrors.NewValidationError("series is required", "series")
	}
	if strings.TrimSpace(updated.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", "title")
	}

	a := activity.New("Update "+old.Title, activity.KindUpdate, func(ctx context.Context, a *activity.Activity) (interface{}, error) {
		updated.ID = old.ID
		updated.Genres = models.NormalizeList(updated.Genres)
		updated.CreatedBy = models.NormalizeList(updated.CreatedBy)

		keepImages(&updated.PosterPath, &updated.BackdropPath, &updated.Color, old.PosterPath, old.BackdropPath, old.Color)
		keepChildImages(old, updated)

		s.manualMu.Lock()
		defer s.manualMu.Unlock()
		if err := s.assignManualChildIDs(ctx, updated); err != nil {
			return nil, err
		}
		if err := s.applyManualImages(models.KindSeries, old.ID, images, &updated.PosterPath, &updated.BackdropPath); err != nil {
			return nil, err
		}
		if updated.PosterPath != old.PosterPath {
			updated.Color = s.images.IsLightPoster(updated.PosterPath)
		}
		if err := s.store.UpdateSeries(ctx, old, updated); err != nil {
			return nil, err
		}
		s.publish(events.EventContentUpdated, models.KindSeries, old.ID, "Series updated", updated.Title)
		return updated, nil
	})
	if err := s.queue.Submit(a, onDone); err != nil {
		return nil, err
	}
	return a, nil
}

// keepImages copies the stored image references into an edited title
// that does not set its own. The poster colour follows the poster.
func keepImages(poster, backdrop *string, color *bool, oldPoster, oldBackdrop string, oldColor bool) {
	if *poster == "" {
		*poster = oldPoster
		*color = oldColor
	}
	if *backdrop == "" {
		*backdrop = oldBackdrop
	}
}

// keepChildImages copies season posters and episode stills of old into the
// seasons and episodes of updated that have the same id and no image
func keepChildImages(old, updated *models.Series) {
	posters := make(map[string]string, len(old.Seasons))
	stills := make(map[string]string)
	for _, season := range old.Seasons {
		posters[season.ID] = season.PosterPath
		for _, ep := range season.Episodes {
			stills[ep.ID] = ep.StillPath
		}
	}

	for i := range updated.Seasons {
		season := &updated.Seasons[i]
		if season.ID != "" && season.PosterPath == "" {
			season.PosterPath = posters[season.ID]
		}
		for j := range season.Episodes {
			ep := &season.Episodes[j]
			if ep.ID != "" && ep.StillPath == "" {
				ep.StillPath = stills[ep.ID]
			}
		}
	}
}

// RefreshItem submits an activity that refetches one provider title and
// replaces the stored content. Manual titles cannot be refreshed.
func (s *Service) RefreshItem(ctx context.Context, kind models.Kind, id string, onDone activity.DoneFunc) (*activity.Activity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if store.IsManualID(id) {
		return nil, apperrors.NewValidationError("manual titles have no provider data", "id").With("id", id)
	}
	if err := s.requireOnline(ctx, "refresh title"); err != nil {
		return nil, err
	}
	title, err := s.titleOf(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	a := activity.New("Update "+title, activity.KindUpdate, func(ctx context.Context, a *activity.Activity) (interface{}, error) {
		lang, err := s.settings.Language(ctx)
		if err != nil {
			return nil, err
		}
		if kind == models.KindMovie {
			return s.refreshMovie(ctx, a, id, lang)
		}
		return s.refreshSeries(ctx, a, id, lang)
	})
	if err := s.queue.Submit(a, onDone); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) refreshMovie(ctx context.Context, a *activity.Activity, id, lang string) (*models.Movie, error) {
	old, err := s.store.GetMovieByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, apperrors.NewNotFoundError("movie", id)
	}
	detail, err := s.client.GetMovie(ctx, id, lang)
	if err != nil {
		return nil, err
	}
	if a.Cancelled() {
		return nil, apperrors.NewCancelledError(a.Title)
	}
	updated := models.MovieFromRemote(ctx, detail, s.images, s.now())
	updated.CarryUserState(old)
	if err := s.store.UpdateMovie(ctx, old, updated); err != nil {
		return nil, err
	}
	s.publish(events.EventContentUpdated, models.KindMovie, id, "Movie updated", updated.Title)
	return updated, nil
}

func (s *Service) refreshSeries(ctx context.Context, a *activity.Activity, id, lang string) (*models.Series, error) {
	old, err := s.store.GetSeriesByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, apperrors.NewNotFoundError("series", id)
	}
	detail, episodes, err := metadata.FetchSeries(ctx, s.client, id, lang)
	if err != nil {
		return nil, err
	}
	if a.Cancelled() {
		return nil, apperrors.NewCancelledError(a.Title)
	}
	updated := models.SeriesFromRemote(ctx, detail, episodes, s.images, s.now())
	if err := s.store.UpdateSeries(ctx, old, updated); err != nil {
		return nil, err
	}
	s.publish(events.EventContentUpdated, models.KindSeries, id, "Series updated", updated.Title)
	return updated, nil
}

// Delete submits an activity that removes a title with its cached images
func (s *Service) Delete(ctx context.Context, kind models.Kind, id string, onDone activity.DoneFunc) (*activity.Activity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	title, err := s.titleOf(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	a := activity.New("Remove "+title, activity.KindRemove, func(ctx context.Context, a *activity.Activity) (interface{}, error) {
		var err error
		if kind == models.KindMovie {
			err = s.store.DeleteMovie(ctx, id)
		} else {
			err = s.store.DeleteSeries(ctx, id)
		}
		if err != nil {
			return nil, err
		}
		s.logger.Info("title removed", "kind", kind, "id", id, "title", title)
		s.publish(events.EventContentRemoved, kind, id, "Title removed", title)
		return id, nil
	})
	if err := s.queue.Submit(a, onDone); err != nil {
		return nil, err
	}
	return a, nil
}

// MarkWatched sets the watched flag of a movie, or of a series with all of
// its episodes
func (s *Service) MarkWatched(ctx context.Context, kind models.Kind, id string, watched bool) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	var err error
	if kind == models.KindMovie {
		err = s.store.MarkWatchedMovie(ctx, id, watched)
	} else {
		err = s.store.MarkWatchedSeries(ctx, id, watched)
	}
	if err != nil {
		return err
	}
	s.publish(events.EventContentUpdated, kind, id, "Watched state changed", watchedMessage(watched))
	return nil
}

// MarkSeasonWatched sets the watched flag of every episode of a season
func (s *Service) MarkSeasonWatched(ctx context.Context, showID string, season int, watched bool) error {
	if err := s.store.MarkWatchedSeason(ctx, showID, season, watched); err != nil {
		return err
	}
	s.publish(events.EventContentUpdated, models.KindSeries, showID, "Watched state changed",
		fmt.Sprintf("season %d %s", season, watchedMessage(watched)))
	return nil
}

// MarkEpisodeWatched sets the watched flag of one episode
func (s *Service) MarkEpisodeWatched(ctx context.Context, episodeID string, watched bool) error {
	ep, err := s.store.GetEpisodeByID(ctx, episodeID)
	if err != nil {
		return err
	}
	if ep == nil {
		return apperrors.NewNotFoundError("episode", episodeID)
	}
	if err := s.store.MarkWatchedEpisode(ctx, episodeID, watched); err != nil {
		return err
	}
	s.publish(events.EventContentUpdated, models.KindSeries, ep.ShowID, "Watched state changed",
		fmt.Sprintf("episode %s %s", episodeID, watchedMessage(watched)))
	return nil
}

// SetNotification adds a title to or removes it from the release
// notification list
func (s *Service) SetNotification(ctx context.Context, kind models.Kind, id string, enabled bool) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if err := s.store.SetNotificationFlag(ctx, kind, id, enabled); err != nil {
		return err
	}
	s.logger.Debug("notification flag set", "kind", kind, "id", id, "enabled", enabled)
	return nil
}

func (s *Service) titleOf(ctx context.Context, kind models.Kind, id string) (string, error) {
	if kind == models.KindMovie {
		m, err := s.store.GetMovieByID(ctx, id)
		if err != nil {
			return "", err
		}
		if m == nil {
			return "", apperrors.NewNotFoundError("movie", id)
		}
		return m.Title, nil
	}
	series, err := s.store.GetSeriesByID(ctx, id)
	if err != nil {
		return "", err
	}
	if series == nil {
		return "", apperrors.NewNotFoundError("series", id)
	}
	return series.Title, nil
}

func watchedMessage(watched bool) string {
	if watched {
		return "watched"
	}
	return "not watched"
}
