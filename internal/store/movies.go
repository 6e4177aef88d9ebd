package store

import (
	"context"

	"github.com/mantonx/watchlist/internal/database"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/models"
)

// movieContentColumns are overwritten by UpdateMovie. Watched state, add
// date and notification flags belong to the user and are left alone.
var movieContentColumns = []string{
	"backdrop_path", "budget", "genres", "manual", "original_language",
	"original_title", "overview", "poster_path", "release_date", "revenue",
	"runtime", "status", "tagline", "title", "color",
}

// InsertMovie stores a new movie
func (s *Store) InsertMovie(ctx context.Context, m *models.Movie) error {
	if m.ID == "" {
		return apperrors.NewValidationError("movie id is required", "id")
	}
	if err := s.db.WithContext(ctx).Create(m.ToRow()).Error; err != nil {
		return apperrors.NewDatabaseError("insert movie", err).With("id", m.ID)
	}
	s.logger.Debug("movie inserted", "id", m.ID, "title", m.Title)
	return nil
}

// UpdateMovie overwrites the content of the stored movie old.ID with the
// content of updated
func (s *Store) UpdateMovie(ctx context.Context, old, updated *models.Movie) error {
	row := updated.ToRow()
	result := s.db.WithContext(ctx).
		Model(&database.Movie{}).
		Where("id = ?", old.ID).
		Select(movieContentColumns).
		Updates(row)
	if result.Error != nil {
		return apperrors.NewDatabaseError("update movie", result.Error).With("id", old.ID)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("movie", old.ID)
	}
	return nil
}

// DeleteMovie deletes a movie and its cached images. Deleting a missing
// movie is a no-op.
func (s *Store) DeleteMovie(ctx context.Context, id string) error {
	var row database.Movie
	err := s.db.WithContext(ctx).Select("id", "poster_path", "backdrop_path").Where("id = ?", id).Take(&row).Error
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return apperrors.NewDatabaseError("delete movie", err).With("id", id)
	}

	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&database.Movie{}).Error; err != nil {
		return apperrors.NewDatabaseError("delete movie", err).With("id", id)
	}
	s.removeImages(row.PosterPath, row.BackdropPath)
	s.logger.Debug("movie deleted", "id", id)
	return nil
}

// GetAllMovies returns every movie in the given order
func (s *Store) GetAllMovies(ctx context.Context, order SortOrder) ([]*models.Movie, error) {
	var rows []database.Movie
	if err := s.db.WithContext(ctx).Order(order.orderBy()).Find(&rows).Error; err != nil {
		return nil, apperrors.NewDatabaseError("list movies", err)
	}
	langs, err := s.languageIndex(ctx)
	if err != nil {
		return nil, err
	}

	movies := make([]*models.Movie, 0, len(rows))
	for i := range rows {
		m := models.MovieFromRow(&rows[i])
		m.OriginalLanguage = langs.resolve(m.OriginalLanguage.ISO6391)
		movies = append(movies, m)
	}
	return movies, nil
}

// GetMovieByID returns the movie with the given id, or nil if there is none
func (s *Store) GetMovieByID(ctx context.Context, id string) (*models.Movie, error) {
	var row database.Movie
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get movie", err).With("id", id)
	}

	m := models.MovieFromRow(&row)
	lang, err := s.resolveLanguage(ctx, row.OriginalLanguage)
	if err != nil {
		return nil, err
	}
	m.OriginalLanguage = lang
	return m, nil
}

// UpdateMovieReleaseDate stores a new release date for a movie
func (s *Store) UpdateMovieReleaseDate(ctx context.Context, id, date string) error {
	err := updateColumns(s.db.WithContext(ctx), "movies", id, map[string]interface{}{
		"release_date": date,
	})
	if err != nil {
		return dbErr("update movie release date", err)
	}
	return nil
}

// GetNotificationMovies returns the non-manual movies with notifications on
func (s *Store) GetNotificationMovies(ctx context.Context) ([]*models.Movie, error) {
	var rows []database.Movie
	err := s.db.WithContext(ctx).
		Where("activate_notification = ? AND manual = ?", true, false).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("list notification movies", err)
	}
	movies := make([]*models.Movie, 0, len(rows))
	for i := range rows {
		movies = append(movies, models.MovieFromRow(&rows[i]))
	}
	return movies, nil
}
