package store

import (
	"context"

	"github.com/mantonx/watchlist/internal/database"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/models"
	"gorm.io/gorm/clause"
)

const languageBatchSize = 100

// InsertLanguages stores the provider languages, replacing the names of
// languages already stored
func (s *Store) InsertLanguages(ctx context.Context, langs []models.Language) error {
	if len(langs) == 0 {
		return nil
	}
	rows := make([]*database.Language, 0, len(langs))
	for _, l := range langs {
		if l.ISO6391 == "" {
			continue
		}
		rows = append(rows, l.ToRow())
	}
	if len(rows) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "iso_639_1"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).CreateInBatches(rows, languageBatchSize).Error
	if err != nil {
		return apperrors.NewDatabaseError("insert languages", err)
	}
	s.logger.Debug("languages stored", "count", len(rows))
	return nil
}

// GetAllLanguages returns every stored language ordered by name
func (s *Store) GetAllLanguages(ctx context.Context) ([]models.Language, error) {
	var rows []database.Language
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, apperrors.NewDatabaseError("list languages", err)
	}
	langs := make([]models.Language, 0, len(rows))
	for i := range rows {
		langs = append(langs, models.LanguageFromRow(&rows[i]))
	}
	return langs, nil
}

// GetLanguageByCode returns the language with the given ISO 639-1 code, or
// nil if there is none
func (s *Store) GetLanguageByCode(ctx context.Context, code string) (*models.Language, error) {
	return s.getLanguage(ctx, "iso_639_1 = ?", code)
}

// GetLanguageByName returns the language with the given name, or nil if
// there is none
func (s *Store) GetLanguageByName(ctx context.Context, name string) (*models.Language, error) {
	return s.getLanguage(ctx, "name = ?", name)
}

func (s *Store) getLanguage(ctx context.Context, query string, arg string) (*models.Language, error) {
	var row database.Language
	err := s.db.WithContext(ctx).Where(query, arg).Take(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get language", err).With("key", arg)
	}
	lang := models.LanguageFromRow(&row)
	return &lang, nil
}

// resolveLanguage turns a stored language code into a language with its
// display name. Unknown codes keep the code and an empty name.
func (s *Store) resolveLanguage(ctx context.Context, code string) (models.Language, error) {
	if code == "" || code == models.NoLanguage.ISO6391 {
		return models.NoLanguage, nil
	}
	lang, err := s.GetLanguageByCode(ctx, code)
	if err != nil {
		return models.Language{}, err
	}
	if lang == nil {
		return models.Language{ISO6391: code}, nil
	}
	return *lang, nil
}

type languageIndex map[string]models.Language

func (s *Store) languageIndex(ctx context.Context) (languageIndex, error) {
	langs, err := s.GetAllLanguages(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(languageIndex, len(langs))
	for _, l := range langs {
		idx[l.ISO6391] = l
	}
	return idx, nil
}

func (idx languageIndex) resolve(code string) models.Language {
	if code == "" || code == models.NoLanguage.ISO6391 {
		return models.NoLanguage
	}
	if l, ok := idx[code]; ok {
		return l
	}
	return models.Language{ISO6391: code}
}
