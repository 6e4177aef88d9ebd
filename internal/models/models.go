// Package models holds the in-memory watchlist entities. Entities are built
// either from a metadata provider response (the FromRemote constructors) or
// from a persisted row (the FromRow constructors).
package models

import (
	"fmt"
	"time"
)

// Kind distinguishes movies from tv series
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "tv"
)

// ParseKind accepts the provider media types and a few aliases
func ParseKind(s string) (Kind, error) {
	switch s {
	case "movie", "movies":
		return KindMovie, nil
	case "tv", "series":
		return KindSeries, nil
	}
	return "", fmt.Errorf("unknown content kind: %q", s)
}

func (k Kind) String() string { return string(k) }

// Date layouts used by persisted rows
const (
	DateLayout    = "2006-01-02"
	AddDateLayout = "2006-01-02 15:04:05.000000"
)

// Language is a language known to the metadata provider
type Language struct {
	ISO6391 string `json:"iso_639_1"`
	Name    string `json:"name"`
}

// NoLanguage is used when the original language is unknown
var NoLanguage = Language{ISO6391: "xx", Name: "No Language"}

// Movie is a movie on the watchlist
type Movie struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	OriginalTitle        string    `json:"original_title"`
	Overview             string    `json:"overview"`
	Genres               []string  `json:"genres"`
	ReleaseDate          string    `json:"release_date"`
	Runtime              int       `json:"runtime"`
	Budget               int64     `json:"budget"`
	Revenue              int64     `json:"revenue"`
	Status               string    `json:"status"`
	Tagline              string    `json:"tagline"`
	PosterPath           string    `json:"poster_path"`
	BackdropPath         string    `json:"backdrop_path"`
	OriginalLanguage     Language  `json:"original_language"`
	Watched              bool      `json:"watched"`
	Manual               bool      `json:"manual"`
	AddDate              time.Time `json:"add_date"`
	ActivateNotification bool      `json:"activate_notification"`
	NewRelease           bool      `json:"new_release"`
	SoonRelease          bool      `json:"soon_release"`
	Color                bool      `json:"color"`
}

// CarryUserState copies the fields owned by the user, not the provider,
// from a previously stored version of the same movie
func (m *Movie) CarryUserState(old *Movie) {
	m.ID = old.ID
	m.AddDate = old.AddDate
	m.Watched = old.Watched
	m.Manual = old.Manual
	m.ActivateNotification = old.ActivateNotification
	m.NewRelease = old.NewRelease
	m.SoonRelease = old.SoonRelease
}

// Series is a tv series on the watchlist
type Series struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	OriginalTitle        string    `json:"original_title"`
	Overview             string    `json:"overview"`
	Genres               []string  `json:"genres"`
	CreatedBy            []string  `json:"created_by"`
	ReleaseDate          string    `json:"release_date"`
	LastAirDate          string    `json:"last_air_date"`
	NextAirDate          string    `json:"next_air_date"`
	InProduction         bool      `json:"in_production"`
	SeasonsNumber        int       `json:"seasons_number"`
	EpisodesNumber       int       `json:"episodes_number"`
	Status               string    `json:"status"`
	Tagline              string    `json:"tagline"`
	PosterPath           string    `json:"poster_path"`
	BackdropPath         string    `json:"backdrop_path"`
	OriginalLanguage     Language  `json:"original_language"`
	Watched              bool      `json:"watched"`
	Manual               bool      `json:"manual"`
	AddDate              time.Time `json:"add_date"`
	ActivateNotification bool      `json:"activate_notification"`
	NewRelease           bool      `json:"new_release"`
	SoonRelease          bool      `json:"soon_release"`
	Color                bool      `json:"color"`
	Seasons              []Season  `json:"seasons"`
}

// Episodes returns every episode of every season, in season order
func (s *Series) Episodes() []Episode {
	var all []Episode
	for _, season := range s.Seasons {
		all = append(all, season.Episodes...)
	}
	return all
}

// WatchedEpisodeIDs returns the ids of the watched episodes
func (s *Series) WatchedEpisodeIDs() map[string]bool {
	watched := make(map[string]bool)
	for _, season := range s.Seasons {
		for _, ep := range season.Episodes {
			if ep.Watched {
				watched[ep.ID] = true
			}
		}
	}
	return watched
}

// MarkEpisodesWatched sets watched on the episodes whose id is in ids
func (s *Series) MarkEpisodesWatched(ids map[string]bool) {
	for i := range s.Seasons {
		for j := range s.Seasons[i].Episodes {
			if ids[s.Seasons[i].Episodes[j].ID] {
				s.Seasons[i].Episodes[j].Watched = true
			}
		}
	}
}

// CarryUserState copies the fields owned by the user, not the provider,
// from a previously stored version of the same series, including the
// watched flag of every episode that still exists
func (s *Series) CarryUserState(old *Series) {
	s.ID = old.ID
	s.AddDate = old.AddDate
	s.Watched = old.Watched
	s.Manual = old.Manual
	s.ActivateNotification = old.ActivateNotification
	s.NewRelease = old.NewRelease
	s.SoonRelease = old.SoonRelease
	s.MarkEpisodesWatched(old.WatchedEpisodeIDs())
}

// Season is one season of a series
type Season struct {
	ID             string    `json:"id"`
	Number         int       `json:"number"`
	Title          string    `json:"title"`
	Overview       string    `json:"overview"`
	PosterPath     string    `json:"poster_path"`
	EpisodesNumber int       `json:"episodes_number"`
	ShowID         string    `json:"show_id"`
	Episodes       []Episode `json:"episodes"`
}

// Watched reports whether the season has episodes and all are watched
func (s Season) Watched() bool {
	if len(s.Episodes) == 0 {
		return false
	}
	for _, ep := range s.Episodes {
		if !ep.Watched {
			return false
		}
	}
	return true
}

// Episode is one episode of a season
type Episode struct {
	ID           string `json:"id"`
	Number       int    `json:"number"`
	Title        string `json:"title"`
	Overview     string `json:"overview"`
	Runtime      int    `json:"runtime"`
	SeasonNumber int    `json:"season_number"`
	ShowID       string `json:"show_id"`
	StillPath    string `json:"still_path"`
	Watched      bool   `json:"watched"`
}

// SearchResult is a search hit shown before the user adds a title
type SearchResult struct {
	ID         string `json:"id"`
	MediaType  Kind   `json:"media_type"`
	Title      string `json:"title"`
	Year       string `json:"year"`
	Overview   string `json:"overview"`
	PosterPath string `json:"poster_path"`
}
