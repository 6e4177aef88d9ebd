package metadata

import (
	"strconv"
)

// Media types returned by search
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

// SearchResult is one entry of a multi search
type SearchResult struct {
	ID               int64   `json:"id"`
	MediaType        string  `json:"media_type"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	OriginalLanguage string  `json:"original_language"`
	Popularity       float64 `json:"popularity"`
}

// DisplayTitle returns the movie title or the series name
func (r SearchResult) DisplayTitle() string {
	if r.MediaType == MediaTypeTV {
		return r.Name
	}
	return r.Title
}

// Year returns the release year, or an empty string when unknown
func (r SearchResult) Year() string {
	date := r.ReleaseDate
	if r.MediaType == MediaTypeTV {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// SearchResponse is the paged search payload
type SearchResponse struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// Genre is a named genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Creator is a series creator
type Creator struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieDetail is the full movie payload
type MovieDetail struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	Genres           []Genre `json:"genres"`
	ReleaseDate      string  `json:"release_date"`
	Runtime          int     `json:"runtime"`
	Budget           int64   `json:"budget"`
	Revenue          int64   `json:"revenue"`
	Status           string  `json:"status"`
	Tagline          string  `json:"tagline"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	OriginalLanguage string  `json:"original_language"`
}

// StringID returns the id in its stored form
func (m MovieDetail) StringID() string {
	return strconv.FormatInt(m.ID, 10)
}

// NextEpisode is the next scheduled episode of a series
type NextEpisode struct {
	ID            int64  `json:"id"`
	AirDate       string `json:"air_date"`
	EpisodeNumber int    `json:"episode_number"`
	SeasonNumber  int    `json:"season_number"`
}

// SeasonSummary is a season as listed on a series payload
type SeasonSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
}

// SeriesDetail is the full series payload
type SeriesDetail struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	OriginalName     string          `json:"original_name"`
	Overview         string          `json:"overview"`
	Genres           []Genre         `json:"genres"`
	CreatedBy        []Creator       `json:"created_by"`
	FirstAirDate     string          `json:"first_air_date"`
	LastAirDate      string          `json:"last_air_date"`
	NextEpisodeToAir *NextEpisode    `json:"next_episode_to_air"`
	InProduction     bool            `json:"in_production"`
	NumberOfEpisodes int             `json:"number_of_episodes"`
	NumberOfSeasons  int             `json:"number_of_seasons"`
	Status           string          `json:"status"`
	Tagline          string          `json:"tagline"`
	PosterPath       string          `json:"poster_path"`
	BackdropPath     string          `json:"backdrop_path"`
	OriginalLanguage string          `json:"original_language"`
	Seasons          []SeasonSummary `json:"seasons"`
}

// StringID returns the id in its stored form
func (s SeriesDetail) StringID() string {
	return strconv.FormatInt(s.ID, 10)
}

// NextAirDate returns the air date of the next episode, if one is scheduled
func (s SeriesDetail) NextAirDate() string {
	if s.NextEpisodeToAir == nil {
		return ""
	}
	return s.NextEpisodeToAir.AirDate
}

// EpisodeDetail is one episode of a season
type EpisodeDetail struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	EpisodeNumber int    `json:"episode_number"`
	SeasonNumber  int    `json:"season_number"`
	Runtime       int    `json:"runtime"`
	StillPath     string `json:"still_path"`
	AirDate       string `json:"air_date"`
	ShowID        int64  `json:"show_id"`
}

// SeasonDetail is the season payload carrying its episodes
type SeasonDetail struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	SeasonNumber int             `json:"season_number"`
	Episodes     []EpisodeDetail `json:"episodes"`
}

// Language is a language the provider can localize into
type Language struct {
	ISO6391     string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}
