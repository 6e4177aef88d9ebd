package database

import (
	"gorm.io/datatypes"
)

// Language is a language supported by the metadata provider
type Language struct {
	ISO6391 string `gorm:"column:iso_639_1;type:text;primaryKey" json:"iso_639_1"`
	Name    string `gorm:"type:text;not null" json:"name"`
}

func (Language) TableName() string { return "languages" }

// Movie is a persisted movie row
type Movie struct {
	ID               string                      `gorm:"type:text;primaryKey" json:"id"`
	AddDate          string                      `gorm:"type:text" json:"add_date"`
	BackdropPath     string                      `gorm:"type:text" json:"backdrop_path"`
	Budget           int64                       `json:"budget"`
	Genres           datatypes.JSONSlice[string] `gorm:"type:text" json:"genres"`
	Manual           bool                        `json:"manual"`
	OriginalLanguage string                      `gorm:"type:text" json:"original_language"`
	OriginalTitle    string                      `gorm:"type:text" json:"original_title"`
	Overview         string                      `gorm:"type:text" json:"overview"`
	PosterPath       string                      `gorm:"type:text" json:"poster_path"`
	ReleaseDate      string                      `gorm:"type:text" json:"release_date"`
	Revenue          int64                       `json:"revenue"`
	Runtime          int                         `json:"runtime"`
	Status           string                      `gorm:"type:text" json:"status"`
	Tagline          string                      `gorm:"type:text" json:"tagline"`
	Title            string                      `gorm:"type:text" json:"title"`
	Watched          bool                        `json:"watched"`

	// Added after the first schema version, see MigrateSchema.
	Color                bool `gorm:"default:false" json:"color"`
	ActivateNotification bool `gorm:"default:false" json:"activate_notification"`
	NewRelease           bool `gorm:"default:false" json:"new_release"`
	SoonRelease          bool `gorm:"default:false" json:"soon_release"`
}

func (Movie) TableName() string { return "movies" }

// Series is a persisted tv series row
type Series struct {
	ID               string                      `gorm:"type:text;primaryKey" json:"id"`
	AddDate          string                      `gorm:"type:text" json:"add_date"`
	BackdropPath     string                      `gorm:"type:text" json:"backdrop_path"`
	CreatedBy        datatypes.JSONSlice[string] `gorm:"type:text" json:"created_by"`
	EpisodesNumber   int                         `json:"episodes_number"`
	Genres           datatypes.JSONSlice[string] `gorm:"type:text" json:"genres"`
	InProduction     bool                        `json:"in_production"`
	Manual           bool                        `json:"manual"`
	OriginalLanguage string                      `gorm:"type:text" json:"original_language"`
	OriginalTitle    string                      `gorm:"type:text" json:"original_title"`
	Overview         string                      `gorm:"type:text" json:"overview"`
	PosterPath       string                      `gorm:"type:text" json:"poster_path"`
	ReleaseDate      string                      `gorm:"type:text" json:"release_date"`
	SeasonsNumber    int                         `json:"seasons_number"`
	Status           string                      `gorm:"type:text" json:"status"`
	Tagline          string                      `gorm:"type:text" json:"tagline"`
	Title            string                      `gorm:"type:text" json:"title"`
	Watched          bool                        `json:"watched"`

	// Added after the first schema version, see MigrateSchema.
	Color                bool   `gorm:"default:false" json:"color"`
	ActivateNotification bool   `gorm:"default:false" json:"activate_notification"`
	NewRelease           bool   `gorm:"default:false" json:"new_release"`
	SoonRelease          bool   `gorm:"default:false" json:"soon_release"`
	LastAirDate          string `gorm:"type:text;default:''" json:"last_air_date"`
	NextAirDate          string `gorm:"type:text;default:''" json:"next_air_date"`
}

func (Series) TableName() string { return "series" }

// Season is a persisted season row. Deleting the owning series removes it.
type Season struct {
	ID             string  `gorm:"type:text;primaryKey" json:"id"`
	EpisodesNumber int     `json:"episodes_number"`
	Number         int     `json:"number"`
	Overview       string  `gorm:"type:text" json:"overview"`
	PosterPath     string  `gorm:"type:text" json:"poster_path"`
	Title          string  `gorm:"type:text" json:"title"`
	ShowID         string  `gorm:"type:text;index" json:"show_id"`
	Series         *Series `gorm:"foreignKey:ShowID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Season) TableName() string { return "seasons" }

// Episode is a persisted episode row. Deleting the owning series removes it.
type Episode struct {
	ID           string  `gorm:"type:text;primaryKey" json:"id"`
	Number       int     `json:"number"`
	Overview     string  `gorm:"type:text" json:"overview"`
	Runtime      int     `json:"runtime"`
	SeasonNumber int     `gorm:"index:idx_episodes_show_season" json:"season_number"`
	ShowID       string  `gorm:"type:text;index:idx_episodes_show_season" json:"show_id"`
	StillPath    string  `gorm:"type:text" json:"still_path"`
	Title        string  `gorm:"type:text" json:"title"`
	Watched      bool    `json:"watched"`
	Series       *Series `gorm:"foreignKey:ShowID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Episode) TableName() string { return "episodes" }

// Setting is one key of the user preference store
type Setting struct {
	Key   string `gorm:"type:text;primaryKey" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (Setting) TableName() string { return "settings" }

// AllModels returns every persisted model in creation order
func AllModels() []interface{} {
	return []interface{}{
		&Language{},
		&Movie{},
		&Series{},
		&Season{},
		&Episode{},
		&Setting{},
	}
}
