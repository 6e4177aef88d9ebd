package models

import (
	"github.com/mantonx/watchlist/internal/database"
	"gorm.io/datatypes"
)

// MovieFromRow builds a movie from its stored row. Only the language code is
// known here; the store resolves the display name.
func MovieFromRow(row *database.Movie) *Movie {
	return &Movie{
		ID:                   row.ID,
		Title:                row.Title,
		OriginalTitle:        row.OriginalTitle,
		Overview:             row.Overview,
		Genres:               NormalizeList(row.Genres),
		ReleaseDate:          row.ReleaseDate,
		Runtime:              row.Runtime,
		Budget:               row.Budget,
		Revenue:              row.Revenue,
		Status:               row.Status,
		Tagline:              row.Tagline,
		PosterPath:           row.PosterPath,
		BackdropPath:         row.BackdropPath,
		OriginalLanguage:     Language{ISO6391: row.OriginalLanguage},
		Watched:              row.Watched,
		Manual:               row.Manual,
		AddDate:              ParseAddDate(row.AddDate),
		ActivateNotification: row.ActivateNotification,
		NewRelease:           row.NewRelease,
		SoonRelease:          row.SoonRelease,
		Color:                row.Color,
	}
}

// ToRow converts the movie to its stored row
func (m *Movie) ToRow() *database.Movie {
	return &database.Movie{
		ID:                   m.ID,
		AddDate:              FormatAddDate(m.AddDate),
		BackdropPath:         m.BackdropPath,
		Budget:               m.Budget,
		Genres:               datatypes.JSONSlice[string](NormalizeList(m.Genres)),
		Manual:               m.Manual,
		OriginalLanguage:     m.OriginalLanguage.ISO6391,
		OriginalTitle:        m.OriginalTitle,
		Overview:             m.Overview,
		PosterPath:           m.PosterPath,
		ReleaseDate:          m.ReleaseDate,
		Revenue:              m.Revenue,
		Runtime:              m.Runtime,
		Status:               m.Status,
		Tagline:              m.Tagline,
		Title:                m.Title,
		Watched:              m.Watched,
		Color:                m.Color,
		ActivateNotification: m.ActivateNotification,
		NewRelease:           m.NewRelease,
		SoonRelease:          m.SoonRelease,
	}
}

// SeriesFromRow builds a series from its stored row, without seasons
func SeriesFromRow(row *database.Series) *Series {
	return &Series{
		ID:                   row.ID,
		Title:                row.Title,
		OriginalTitle:        row.OriginalTitle,
		Overview:             row.Overview,
		Genres:               NormalizeList(row.Genres),
		CreatedBy:            NormalizeList(row.CreatedBy),
		ReleaseDate:          row.ReleaseDate,
		LastAirDate:          row.LastAirDate,
		NextAirDate:          row.NextAirDate,
		InProduction:         row.InProduction,
		SeasonsNumber:        row.SeasonsNumber,
		EpisodesNumber:       row.EpisodesNumber,
		Status:               row.Status,
		Tagline:              row.Tagline,
		PosterPath:           row.PosterPath,
		BackdropPath:         row.BackdropPath,
		OriginalLanguage:     Language{ISO6391: row.OriginalLanguage},
		Watched:              row.Watched,
		Manual:               row.Manual,
		AddDate:              ParseAddDate(row.AddDate),
		ActivateNotification: row.ActivateNotification,
		NewRelease:           row.NewRelease,
		SoonRelease:          row.SoonRelease,
		Color:                row.Color,
	}
}

// ToRow converts the series to its stored row. Seasons are stored separately.
func (s *Series) ToRow() *database.Series {
	return &database.Series{
		ID:                   s.ID,
		AddDate:              FormatAddDate(s.AddDate),
		BackdropPath:         s.BackdropPath,
		CreatedBy:            datatypes.JSONSlice[string](NormalizeList(s.CreatedBy)),
		EpisodesNumber:       s.EpisodesNumber,
		Genres:               datatypes.JSONSlice[string](NormalizeList(s.Genres)),
		InProduction:         s.InProduction,
		Manual:               s.Manual,
		OriginalLanguage:     s.OriginalLanguage.ISO6391,
		OriginalTitle:        s.OriginalTitle,
		Overview:             s.Overview,
		PosterPath:           s.PosterPath,
		ReleaseDate:          s.ReleaseDate,
		SeasonsNumber:        s.SeasonsNumber,
		Status:               s.Status,
		Tagline:              s.Tagline,
		Title:                s.Title,
		Watched:              s.Watched,
		Color:                s.Color,
		ActivateNotification: s.ActivateNotification,
		NewRelease:           s.NewRelease,
		SoonRelease:          s.SoonRelease,
		LastAirDate:          s.LastAirDate,
		NextAirDate:          s.NextAirDate,
	}
}

// SeasonFromRow builds a season from its stored row, without episodes
func SeasonFromRow(row *database.Season) Season {
	return Season{
		ID:             row.ID,
		Number:         row.Number,
		Title:          row.Title,
		Overview:       row.Overview,
		PosterPath:     row.PosterPath,
		EpisodesNumber: row.EpisodesNumber,
		ShowID:         row.ShowID,
	}
}

// ToRow converts the season to its stored row
func (s Season) ToRow() *database.Season {
	return &database.Season{
		ID:             s.ID,
		EpisodesNumber: s.EpisodesNumber,
		Number:         s.Number,
		Overview:       s.Overview,
		PosterPath:     s.PosterPath,
		Title:          s.Title,
		ShowID:         s.ShowID,
	}
}

// EpisodeFromRow builds an episode from its stored row
func EpisodeFromRow(row *database.Episode) Episode {
	return Episode{
		ID:           row.ID,
		Number:       row.Number,
		Title:        row.Title,
		Overview:     row.Overview,
		Runtime:      row.Runtime,
		SeasonNumber: row.SeasonNumber,
		ShowID:       row.ShowID,
		StillPath:    row.StillPath,
		Watched:      row.Watched,
	}
}

// ToRow converts the episode to its stored row
func (e Episode) ToRow() *database.Episode {
	return &database.Episode{
		ID:           e.ID,
		Number:       e.Number,
		Overview:     e.Overview,
		Runtime:      e.Runtime,
		SeasonNumber: e.SeasonNumber,
		ShowID:       e.ShowID,
		StillPath:    e.StillPath,
		Title:        e.Title,
		Watched:      e.Watched,
	}
}

// LanguageFromRow builds a language from its stored row
func LanguageFromRow(row *database.Language) Language {
	return Language{ISO6391: row.ISO6391, Name: row.Name}
}

// ToRow converts the language to its stored row
func (l Language) ToRow() *database.Language {
	return &database.Language{ISO6391: l.ISO6391, Name: l.Name}
}
