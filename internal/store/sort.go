package store

import (
	"fmt"

	apperrors "github.com/mantonx/watchlist/internal/errors"
)

// SortOrder is a library ordering
type SortOrder string

const (
	SortAZ            SortOrder = "az"
	SortZA            SortOrder = "za"
	SortAddedNewest   SortOrder = "added-date-new"
	SortAddedOldest   SortOrder = "added-date-old"
	SortReleaseNewest SortOrder = "released-date-new"
	SortReleaseOldest SortOrder = "released-date-old"
)

// ParseSortOrder validates a stored sort order
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case SortAZ, SortZA, SortAddedNewest, SortAddedOldest, SortReleaseNewest, SortReleaseOldest:
		return o, nil
	case "":
		return SortAddedNewest, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown sort order %q", s), "order")
}

// orderBy returns the ORDER BY expression of the sort order. Ties are
// broken by id so results are stable.
func (o SortOrder) orderBy() string {
	switch o {
	case SortAZ:
		return "lower(title) ASC, id ASC"
	case SortZA:
		return "lower(title) DESC, id DESC"
	case SortAddedOldest:
		return "add_date ASC, id ASC"
	case SortReleaseNewest:
		return "release_date DESC, id DESC"
	case SortReleaseOldest:
		return "release_date ASC, id ASC"
	default:
		return "add_date DESC, id DESC"
	}
}
