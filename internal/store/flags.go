package store

import (
	"context"
	"fmt"

	"github.com/mantonx/watchlist/internal/database"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/models"
	"gorm.io/gorm"
)

// SetNotificationFlag turns release notifications on or off for a title
func (s *Store) SetNotificationFlag(ctx context.Context, kind models.Kind, id string, v bool) error {
	return s.setFlag(ctx, kind, id, "activate_notification", v)
}

// SetNewReleaseFlag marks a title as having a new release
func (s *Store) SetNewReleaseFlag(ctx context.Context, kind models.Kind, id string, v bool) error {
	return s.setFlag(ctx, kind, id, "new_release", v)
}

// SetSoonReleaseFlag marks a title as having a release coming soon
func (s *Store) SetSoonReleaseFlag(ctx context.Context, kind models.Kind, id string, v bool) error {
	return s.setFlag(ctx, kind, id, "soon_release", v)
}

func (s *Store) setFlag(ctx context.Context, kind models.Kind, id, column string, v bool) error {
	table, err := contentTable(kind)
	if err != nil {
		return err
	}
	if err := updateColumns(s.db.WithContext(ctx), table, id, map[string]interface{}{column: v}); err != nil {
		return dbErr("set "+column, err)
	}
	return nil
}

// MarkWatchedMovie sets the watched flag of a movie
func (s *Store) MarkWatchedMovie(ctx context.Context, id string, watched bool) error {
	err := updateColumns(s.db.WithContext(ctx), "movies", id, map[string]interface{}{"watched": watched})
	if err != nil {
		return dbErr("mark movie watched", err)
	}
	return nil
}

// MarkWatchedEpisode sets the watched flag of one episode
func (s *Store) MarkWatchedEpisode(ctx context.Context, id string, watched bool) error {
	err := updateColumns(s.db.WithContext(ctx), "episodes", id, map[string]interface{}{"watched": watched})
	if err != nil {
		return dbErr("mark episode watched", err)
	}
	return nil
}

// MarkWatchedSeason sets the watched flag of every episode of one season.
// A season without episodes is left as it is.
func (s *Store) MarkWatchedSeason(ctx context.Context, showID string, season int, watched bool) error {
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		var n int64
		err := tx.Model(&database.Season{}).
			Where("show_id = ? AND number = ?", showID, season).
			Count(&n).Error
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.NewNotFoundError("season", fmt.Sprintf("%s/%d", showID, season))
		}
		return tx.Model(&database.Episode{}).
			Where("show_id = ? AND season_number = ?", showID, season).
			Update("watched", watched).Error
	})
	if err != nil {
		return dbErr("mark season watched", err)
	}
	return nil
}

// MarkWatchedSeries sets the watched flag of a series and every one of its
// episodes. Marking a series watched also clears its release flags.
func (s *Store) MarkWatchedSeries(ctx context.Context, id string, watched bool) error {
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		values := map[string]interface{}{"watched": watched}
		if watched {
			values["new_release"] = false
			values["soon_release"] = false
		}
		if err := updateColumns(tx, "series", id, values); err != nil {
			return err
		}
		return tx.Model(&database.Episode{}).
			Where("show_id = ?", id).
			Update("watched", watched).Error
	})
	if err != nil {
		return dbErr("mark series watched", err)
	}
	if watched {
		s.logger.Debug("series marked watched", "id", id)
	}
	return nil
}

// CountWatchedEpisodes returns how many episodes of a series are watched
// and how many there are
func (s *Store) CountWatchedEpisodes(ctx context.Context, showID string) (watched, total int64, err error) {
	db := s.db.WithContext(ctx).Model(&database.Episode{}).Where("show_id = ?", showID)
	if err = db.Count(&total).Error; err != nil {
		return 0, 0, apperrors.NewDatabaseError("count episodes", err).With("show_id", showID)
	}
	err = s.db.WithContext(ctx).Model(&database.Episode{}).
		Where("show_id = ? AND watched = ?", showID, true).
		Count(&watched).Error
	if err != nil {
		return 0, 0, apperrors.NewDatabaseError("count watched episodes", err).With("show_id", showID)
	}
	return watched, total, nil
}
