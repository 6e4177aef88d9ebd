// Package store is the persistence layer of the watchlist: movies, series
// with their seasons and episodes, and languages.
//
// Every operation is independent. Operations that write more than one row
// (inserting or replacing a series, marking a season or series watched,
// deleting a series) run in a single transaction, so concurrent readers
// never observe a partially written series. Two writers replacing the same
// series still race: the last one to commit wins.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/database"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/models"
	"gorm.io/gorm"
)

// ImageRemover deletes cached images belonging to deleted titles
type ImageRemover interface {
	Remove(ref string) error
	RemoveSeriesDir(showID string) error
}

// Store is the watchlist persistence layer
type Store struct {
	db     *gorm.DB
	tx     *database.TransactionManager
	images ImageRemover
	logger hclog.Logger
}

// New creates a store. images may be nil, in which case deletes leave
// cached files alone.
func New(db *gorm.DB, images ImageRemover, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("store")
	return &Store{
		db:     db,
		tx:     database.NewTransactionManager(db, logger),
		images: images,
		logger: logger,
	}
}

// DB returns the underlying database handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// CreateSchema creates every missing table
func (s *Store) CreateSchema(ctx context.Context) error {
	created, err := database.CreateSchema(ctx, s.db)
	if err != nil {
		return apperrors.NewDatabaseError("create schema", err)
	}
	if len(created) > 0 {
		s.logger.Info("created tables", "tables", created)
	}
	return nil
}

// MigrateSchema upgrades an existing schema in place. colorOf backfills
// the poster color flag of rows that predate it.
func (s *Store) MigrateSchema(ctx context.Context, colorOf database.ColorFunc) (database.MigrationReport, error) {
	report, err := database.MigrateSchema(ctx, s.db, colorOf, s.logger)
	if err != nil {
		return report, apperrors.NewDatabaseError("migrate schema", err)
	}
	return report, nil
}

// dbErr wraps a driver error unless it already carries a code
func dbErr(op string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewDatabaseError(op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// contentTable returns the table holding titles of the given kind
func contentTable(kind models.Kind) (string, error) {
	switch kind {
	case models.KindMovie:
		return "movies", nil
	case models.KindSeries:
		return "series", nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown content kind %q", kind), "kind")
}

// updateColumns updates columns of one row and reports a missing row as
// not found
func updateColumns(db *gorm.DB, table, id string, values map[string]interface{}) error {
	result := db.Table(table).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError(table, id)
	}
	return nil
}

// removeImages deletes cached files after their row is gone. Failures are
// logged: the title is already deleted.
func (s *Store) removeImages(refs ...string) {
	if s.images == nil {
		return
	}
	for _, ref := range refs {
		if err := s.images.Remove(ref); err != nil {
			s.logger.Warn("failed to remove cached image", "ref", ref, "error", err)
		}
	}
}
