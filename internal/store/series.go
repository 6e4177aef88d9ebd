package store

import (
	"context"

	"github.com/mantonx/watchlist/internal/database"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/models"
	"gorm.io/gorm"
)

const episodeBatchSize = 200

// InsertSeries stores a new series with all of its seasons and episodes in
// one transaction
func (s *Store) InsertSeries(ctx context.Context, series *models.Series) error {
	if series.ID == "" {
		return apperrors.NewValidationError("series id is required", "id")
	}
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		return insertSeriesRows(tx, series)
	})
	if err != nil {
		return dbErr("insert series", err)
	}
	s.logger.Debug("series inserted", "id", series.ID, "title", series.Title, "seasons", len(series.Seasons))
	return nil
}

// insertSeriesRows writes the series row followed by its children. Every
// child is attached to the series, and episodes to their season.
func insertSeriesRows(tx *gorm.DB, series *models.Series) error {
	if err := tx.Create(series.ToRow()).Error; err != nil {
		return err
	}

	var seasons []*database.Season
	var episodes []*database.Episode
	for i := range series.Seasons {
		season := &series.Seasons[i]
		season.ShowID = series.ID
		seasons = append(seasons, season.ToRow())
		for j := range season.Episodes {
			ep := &season.Episodes[j]
			ep.ShowID = series.ID
			ep.SeasonNumber = season.Number
			episodes = append(episodes, ep.ToRow())
		}
	}

	if len(seasons) > 0 {
		if err := tx.Create(seasons).Error; err != nil {
			return err
		}
	}
	if len(episodes) > 0 {
		if err := tx.CreateInBatches(episodes, episodeBatchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

// deleteSeriesRows removes a series and its children. Children are deleted
// explicitly so databases opened without foreign key enforcement stay
// consistent. It reports whether the series row existed.
func deleteSeriesRows(tx *gorm.DB, id string) (bool, error) {
	if err := tx.Where("show_id = ?", id).Delete(&database.Episode{}).Error; err != nil {
		return false, err
	}
	if err := tx.Where("show_id = ?", id).Delete(&database.Season{}).Error; err != nil {
		return false, err
	}
	result := tx.Where("id = ?", id).Delete(&database.Series{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateSeries replaces the stored series old.ID with updated. The user
// state of old is carried into updated first: add date, watched and
// notification flags, and the watched flag of every episode that was
// watched in old or in the stored copy and still exists in updated.
// updated is modified in place. The replacement is atomic.
func (s *Store) UpdateSeries(ctx context.Context, old, updated *models.Series) error {
	err := s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		var stored []string
		err := tx.Model(&database.Episode{}).
			Where("show_id = ? AND watched = ?", old.ID, true).
			Pluck("id", &stored).Error
		if err != nil {
			return err
		}

		updated.CarryUserState(old)
		watched := make(map[string]bool, len(stored))
		for _, id := range stored {
			watched[id] = true
		}
		updated.MarkEpisodesWatched(watched)

		existed, err := deleteSeriesRows(tx, old.ID)
		if err != nil {
			return err
		}
		if !existed {
			return apperrors.NewNotFoundError("series", old.ID)
		}
		return insertSeriesRows(tx, updated)
	})
	if err != nil {
		return dbErr("update series", err)
	}
	s.logger.Debug("series replaced", "id", old.ID, "episodes", len(updated.Episodes()))
	return nil
}

// DeleteSeries deletes a series with its seasons, episodes and cached
// images. Deleting a missing series is a no-op.
func (s *Store) DeleteSeries(ctx context.Context, id string) error {
	var row database.Series
	err := s.db.WithContext(ctx).Select("id", "poster_path", "backdrop_path").Where("id = ?", id).Take(&row).Error
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return apperrors.NewDatabaseError("delete series", err).With("id", id)
	}

	err = s.tx.WithTransaction(ctx, func(tx *gorm.DB) error {
		_, err := deleteSeriesRows(tx, id)
		return err
	})
	if err != nil {
		return dbErr("delete series", err)
	}

	s.removeImages(row.PosterPath, row.BackdropPath)
	if s.images != nil {
		if err := s.images.RemoveSeriesDir(id); err != nil {
			s.logger.Warn("failed to remove series image directory", "id", id, "error", err)
		}
	}
	s.logger.Debug("series deleted", "id", id)
	return nil
}

// GetAllSeries returns every series in the given order, with seasons and
// episodes
func (s *Store) GetAllSeries(ctx context.Context, order SortOrder) ([]*models.Series, error) {
	var rows []database.Series
	if err := s.db.WithContext(ctx).Order(order.orderBy()).Find(&rows).Error; err != nil {
		return nil, apperrors.NewDatabaseError("list series", err)
	}
	langs, err := s.languageIndex(ctx)
	if err != nil {
		return nil, err
	}

	all := make([]*models.Series, 0, len(rows))
	for i := range rows {
		series := models.SeriesFromRow(&rows[i])
		series.OriginalLanguage = langs.resolve(series.OriginalLanguage.ISO6391)
		all = append(all, series)
	}
	if err := s.attachSeasons(ctx, all); err != nil {
		return nil, err
	}
	return all, nil
}

// GetSeriesByID returns the series with the given id with its seasons and
// episodes, or nil if there is none
func (s *Store) GetSeriesByID(ctx context.Context, id string) (*models.Series, error) {
	var row database.Series
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get series", err).With("id", id)
	}

	series := models.SeriesFromRow(&row)
	lang, err := s.resolveLanguage(ctx, row.OriginalLanguage)
	if err != nil {
		return nil, err
	}
	series.OriginalLanguage = lang
	if err := s.attachSeasons(ctx, []*models.Series{series}); err != nil {
		return nil, err
	}
	return series, nil
}

// attachSeasons loads the seasons and episodes of every given series with
// two queries
func (s *Store) attachSeasons(ctx context.Context, all []*models.Series) error {
	if len(all) == 0 {
		return nil
	}
	ids := make([]string, 0, len(all))
	for _, series := range all {
		ids = append(ids, series.ID)
	}

	var seasonRows []database.Season
	err := s.db.WithContext(ctx).
		Where("show_id IN ?", ids).
		Order("show_id, number").
		Find(&seasonRows).Error
	if err != nil {
		return apperrors.NewDatabaseError("list seasons", err)
	}
	var episodeRows []database.Episode
	err = s.db.WithContext(ctx).
		Where("show_id IN ?", ids).
		Order("show_id, season_number, number").
		Find(&episodeRows).Error
	if err != nil {
		return apperrors.NewDatabaseError("list episodes", err)
	}

	type seasonKey struct {
		showID string
		number int
	}
	episodes := make(map[seasonKey][]models.Episode)
	for i := range episodeRows {
		ep := models.EpisodeFromRow(&episodeRows[i])
		key := seasonKey{ep.ShowID, ep.SeasonNumber}
		episodes[key] = append(episodes[key], ep)
	}
	seasons := make(map[string][]models.Season)
	for i := range seasonRows {
		season := models.SeasonFromRow(&seasonRows[i])
		season.Episodes = episodes[seasonKey{season.ShowID, season.Number}]
		if season.Episodes == nil {
			season.Episodes = []models.Episode{}
		}
		seasons[season.ShowID] = append(seasons[season.ShowID], season)
	}
	for _, series := range all {
		series.Seasons = seasons[series.ID]
		if series.Seasons == nil {
			series.Seasons = []models.Season{}
		}
	}
	return nil
}

// GetSeasons returns the seasons of a series ordered by number, with
// their episodes
func (s *Store) GetSeasons(ctx context.Context, showID string) ([]models.Season, error) {
	series := &models.Series{ID: showID}
	if err := s.attachSeasons(ctx, []*models.Series{series}); err != nil {
		return nil, err
	}
	return series.Seasons, nil
}

// GetSeasonEpisodes returns the episodes of one season ordered by number
func (s *Store) GetSeasonEpisodes(ctx context.Context, showID string, season int) ([]models.Episode, error) {
	var rows []database.Episode
	err := s.db.WithContext(ctx).
		Where("show_id = ? AND season_number = ?", showID, season).
		Order("number").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("list season episodes", err).With("show_id", showID).With("season", season)
	}
	episodes := make([]models.Episode, 0, len(rows))
	for i := range rows {
		episodes = append(episodes, models.EpisodeFromRow(&rows[i]))
	}
	return episodes, nil
}

// GetEpisodeByID returns the episode with the given id, or nil if there is
// none
func (s *Store) GetEpisodeByID(ctx context.Context, id string) (*models.Episode, error) {
	var row database.Episode
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get episode", err).With("id", id)
	}
	ep := models.EpisodeFromRow(&row)
	return &ep, nil
}

// UpdateReleaseInfo stores the air dates and production state of a series
func (s *Store) UpdateReleaseInfo(ctx context.Context, id, lastAirDate, nextAirDate string, inProduction bool) error {
	err := updateColumns(s.db.WithContext(ctx), "series", id, map[string]interface{}{
		"last_air_date": lastAirDate,
		"next_air_date": nextAirDate,
		"in_production": inProduction,
	})
	if err != nil {
		return dbErr("update release info", err)
	}
	return nil
}

// GetNotificationSeries returns the non-manual series with notifications
// on, without seasons
func (s *Store) GetNotificationSeries(ctx context.Context) ([]*models.Series, error) {
	var rows []database.Series
	err := s.db.WithContext(ctx).
		Where("activate_notification = ? AND manual = ?", true, false).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("list notification series", err)
	}
	all := make([]*models.Series, 0, len(rows))
	for i := range rows {
		all = append(all, models.SeriesFromRow(&rows[i]))
	}
	return all, nil
}
