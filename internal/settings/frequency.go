package settings

import (
	"fmt"
	"time"
)

// Frequency is how often the whole library is refreshed from the provider
type Frequency string

const (
	FrequencyNever Frequency = "never"
	FrequencyDay   Frequency = "day"
	FrequencyWeek  Frequency = "week"
	FrequencyMonth Frequency = "month"
)

// ParseFrequency validates a stored frequency
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case FrequencyNever, FrequencyDay, FrequencyWeek, FrequencyMonth:
		return f, nil
	}
	return "", fmt.Errorf("unknown update frequency %q", s)
}

// Next returns when the refresh after last is due. It reports false for
// never. A zero last time is always due.
func (f Frequency) Next(last time.Time) (time.Time, bool) {
	if f == FrequencyNever {
		return time.Time{}, false
	}
	if last.IsZero() {
		return time.Time{}, true
	}
	switch f {
	case FrequencyDay:
		return last.AddDate(0, 0, 1), true
	case FrequencyMonth:
		return last.AddDate(0, 1, 0), true
	default:
		return last.AddDate(0, 0, 7), true
	}
}

// Due reports whether a refresh last scheduled at last is due at now
func (f Frequency) Due(last, now time.Time) bool {
	next, ok := f.Next(last)
	if !ok {
		return false
	}
	return !now.Before(next)
}
