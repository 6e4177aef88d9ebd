package models

import (
	"regexp"
	"strings"
	"time"
)

var doubleSpace = regexp.MustCompile(`\s{2}`)

// NormalizeList trims every entry and drops empty ones. The result is never
// nil so it persists as an empty list.
func NormalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// CleanOverview collapses the double spaces the provider leaves in overviews
func CleanOverview(s string) string {
	return doubleSpace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ParseDate parses a YYYY-MM-DD date. Empty or malformed dates report false.
func ParseDate(s string) (time.Time, bool) {
	if len(s) < len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s[:len(DateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var addDateLayouts = []string{
	AddDateLayout,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	DateLayout,
}

// ParseAddDate parses a stored add date. Unknown formats yield the zero time.
func ParseAddDate(s string) time.Time {
	for _, layout := range addDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatAddDate formats an add date so that stored values sort by time
func FormatAddDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(AddDateLayout)
}
