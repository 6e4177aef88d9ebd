// Package settings is the persisted key-value store of user preferences.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/database"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys
const (
	KeyLanguage              = "tmdb-lang"
	KeyOfflineMode           = "offline-mode"
	KeyFirstRun              = "first-run"
	KeyOnboardComplete       = "onboard-complete"
	KeyViewSorting           = "view-sorting"
	KeyViewStyle             = "view-style"
	KeyDBNeedsUpdate         = "db-needs-update"
	KeyUpdateFrequency       = "update-freq"
	KeyLastUpdate            = "last-update"
	KeyLastNotificationCheck = "last-notification-check"
)

// Defaults for unset keys
const (
	DefaultLanguage  = "en"
	DefaultSorting   = "added-date-new"
	DefaultViewStyle = "grid"
	DefaultFrequency = FrequencyWeek
)

// Store reads and writes settings rows
type Store struct {
	db     *gorm.DB
	logger hclog.Logger
}

// New creates a settings store on an open database
func New(db *gorm.DB, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{db: db, logger: logger.Named("settings")}
}

// Get returns the raw value of key and whether it is set
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var row database.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewDatabaseError("get setting", err).With("key", key)
	}
	return row.Value, true, nil
}

// Set stores the raw value of key
func (s *Store) Set(ctx context.Context, key, value string) error {
	row := database.Setting{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return apperrors.NewDatabaseError("set setting", err).With("key", key)
	}
	s.logger.Debug("setting changed", "key", key, "value", value)
	return nil
}

func (s *Store) getString(ctx context.Context, key, def string) (string, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

func (s *Store) getBool(ctx context.Context, key string, def bool) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.logger.Warn("ignoring malformed boolean setting", "key", key, "value", v)
		return def, nil
	}
	return b, nil
}

func (s *Store) setBool(ctx context.Context, key string, v bool) error {
	return s.Set(ctx, key, strconv.FormatBool(v))
}

func (s *Store) getTime(ctx context.Context, key string) (time.Time, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		s.logger.Warn("ignoring malformed timestamp setting", "key", key, "value", v)
		return time.Time{}, nil
	}
	return t, nil
}

func (s *Store) setTime(ctx context.Context, key string, t time.Time) error {
	return s.Set(ctx, key, t.UTC().Format(time.RFC3339))
}

// Language returns the preferred metadata language code
func (s *Store) Language(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyLanguage, DefaultLanguage)
}

func (s *Store) SetLanguage(ctx context.Context, code string) error {
	return s.Set(ctx, KeyLanguage, code)
}

// UpdateFrequency returns how often the library is refreshed
func (s *Store) UpdateFrequency(ctx context.Context) (Frequency, error) {
	v, err := s.getString(ctx, KeyUpdateFrequency, string(DefaultFrequency))
	if err != nil {
		return DefaultFrequency, err
	}
	f, err := ParseFrequency(v)
	if err != nil {
		s.logger.Warn("ignoring unknown update frequency", "value", v)
		return DefaultFrequency, nil
	}
	return f, nil
}

func (s *Store) SetUpdateFrequency(ctx context.Context, f Frequency) error {
	if _, err := ParseFrequency(string(f)); err != nil {
		return apperrors.NewValidationError(err.Error(), KeyUpdateFrequency)
	}
	return s.Set(ctx, KeyUpdateFrequency, string(f))
}

// LastUpdate returns when a library refresh was last scheduled, zero if never
func (s *Store) LastUpdate(ctx context.Context) (time.Time, error) {
	return s.getTime(ctx, KeyLastUpdate)
}

func (s *Store) SetLastUpdate(ctx context.Context, t time.Time) error {
	return s.setTime(ctx, KeyLastUpdate, t)
}

// LastNotificationCheck returns when a release scan was last scheduled
func (s *Store) LastNotificationCheck(ctx context.Context) (time.Time, error) {
	return s.getTime(ctx, KeyLastNotificationCheck)
}

func (s *Store) SetLastNotificationCheck(ctx context.Context, t time.Time) error {
	return s.setTime(ctx, KeyLastNotificationCheck, t)
}

// OfflineMode reports whether remote calls are disabled
func (s *Store) OfflineMode(ctx context.Context) (bool, error) {
	return s.getBool(ctx, KeyOfflineMode, false)
}

func (s *Store) SetOfflineMode(ctx context.Context, v bool) error {
	return s.setBool(ctx, KeyOfflineMode, v)
}

// FirstRun reports whether the language bootstrap still has to run
func (s *Store) FirstRun(ctx context.Context) (bool, error) {
	return s.getBool(ctx, KeyFirstRun, true)
}

func (s *Store) SetFirstRun(ctx context.Context, v bool) error {
	return s.setBool(ctx, KeyFirstRun, v)
}

// OnboardComplete reports whether the bootstrap finished online
func (s *Store) OnboardComplete(ctx context.Context) (bool, error) {
	return s.getBool(ctx, KeyOnboardComplete, false)
}

func (s *Store) SetOnboardComplete(ctx context.Context, v bool) error {
	return s.setBool(ctx, KeyOnboardComplete, v)
}

// NeedsUpdate reports whether stored content predates the current schema
// and should be refetched
func (s *Store) NeedsUpdate(ctx context.Context) (bool, error) {
	return s.getBool(ctx, KeyDBNeedsUpdate, false)
}

func (s *Store) SetNeedsUpdate(ctx context.Context, v bool) error {
	return s.setBool(ctx, KeyDBNeedsUpdate, v)
}

// ViewSorting returns the library sort order
func (s *Store) ViewSorting(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyViewSorting, DefaultSorting)
}

func (s *Store) SetViewSorting(ctx context.Context, order string) error {
	return s.Set(ctx, KeyViewSorting, order)
}

// ViewStyle returns the library layout, grid or list
func (s *Store) ViewStyle(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyViewStyle, DefaultViewStyle)
}

func (s *Store) SetViewStyle(ctx context.Context, style string) error {
	if style != "grid" && style != "list" {
		return apperrors.NewValidationError(fmt.Sprintf("unknown view style %q", style), KeyViewStyle)
	}
	return s.Set(ctx, KeyViewStyle, style)
}
