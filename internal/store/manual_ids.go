package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/models"
)

// ManualPrefix starts the id of every user created row
const ManualPrefix = "M-"

// ManualKind selects the table a manual id is allocated for
type ManualKind string

const (
	ManualMovie   ManualKind = "movies"
	ManualSeries  ManualKind = "series"
	ManualSeason  ManualKind = "seasons"
	ManualEpisode ManualKind = "episodes"
)

// ManualKindOf returns the manual kind of a content kind
func ManualKindOf(kind models.Kind) ManualKind {
	if kind == models.KindSeries {
		return ManualSeries
	}
	return ManualMovie
}

func (k ManualKind) table() (string, error) {
	switch k {
	case ManualMovie, ManualSeries, ManualSeason, ManualEpisode:
		return string(k), nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown manual id kind %q", k), "kind")
}

// IsManualID reports whether id was allocated locally
func IsManualID(id string) bool {
	return strings.HasPrefix(id, ManualPrefix)
}

// GetNextManualID returns the next free manual id of a table, one past the
// highest numeric suffix in use. An empty table yields M-1.
func (s *Store) GetNextManualID(ctx context.Context, kind ManualKind) (string, error) {
	next, err := s.nextManualNumber(ctx, kind)
	if err != nil {
		return "", err
	}
	return formatManualID(next), nil
}

func (s *Store) nextManualNumber(ctx context.Context, kind ManualKind) (int, error) {
	table, err := kind.table()
	if err != nil {
		return 0, err
	}

	var ids []string
	err = s.db.WithContext(ctx).Table(table).Where("id LIKE ?", ManualPrefix+"%").Pluck("id", &ids).Error
	if err != nil {
		return 0, apperrors.NewDatabaseError("next manual id", err).With("table", table)
	}

	highest := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, ManualPrefix))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

func formatManualID(n int) string {
	return ManualPrefix + strconv.Itoa(n)
}

// ManualIDSequence hands out consecutive manual ids for rows that are
// inserted together, such as the seasons and episodes of a new manual
// series
type ManualIDSequence struct {
	mu   sync.Mutex
	next int
}

// NewManualIDSequence starts a sequence at the next free id of a table
func (s *Store) NewManualIDSequence(ctx context.Context, kind ManualKind) (*ManualIDSequence, error) {
	next, err := s.nextManualNumber(ctx, kind)
	if err != nil {
		return nil, err
	}
	return &ManualIDSequence{next: next}, nil
}

// Next returns the next id of the sequence
func (q *ManualIDSequence) Next() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := formatManualID(q.next)
	q.next++
	return id
}
