package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Image cache configuration
	Assets AssetConfig `yaml:"assets" json:"assets"`

	// Remote metadata provider configuration
	Metadata MetadataConfig `yaml:"metadata" json:"metadata"`

	// Background scheduling configuration
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DatabaseConfig holds the local store configuration
type DatabaseConfig struct {
	Type          string        `yaml:"type" json:"type" env:"WATCHLIST_DATABASE_TYPE" default:"sqlite"`
	DataDir       string        `yaml:"data_dir" json:"data_dir" env:"WATCHLIST_DATA_DIR"`
	DatabasePath  string        `yaml:"database_path" json:"database_path" env:"WATCHLIST_DATABASE_PATH"`
	DSN           string        `yaml:"dsn" json:"-" env:"WATCHLIST_DATABASE_DSN"`
	BusyTimeout   time.Duration `yaml:"busy_timeout" json:"busy_timeout" env:"WATCHLIST_DB_BUSY_TIMEOUT" default:"5s"`
	LogQueries    bool          `yaml:"log_queries" json:"log_queries" env:"WATCHLIST_DB_LOG_QUERIES" default:"false"`
	SlowThreshold time.Duration `yaml:"slow_threshold" json:"slow_threshold" env:"WATCHLIST_DB_SLOW_THRESHOLD" default:"200ms"`
}

// AssetConfig holds image cache configuration
type AssetConfig struct {
	DataDir         string        `yaml:"data_dir" json:"data_dir" env:"WATCHLIST_ASSETS_DIR"`
	MoviesDir       string        `yaml:"movies_dir" json:"movies_dir" env:"WATCHLIST_MOVIES_DIR"`
	SeriesDir       string        `yaml:"series_dir" json:"series_dir" env:"WATCHLIST_SERIES_DIR"`
	ResourcePrefix  string        `yaml:"resource_prefix" json:"resource_prefix" env:"WATCHLIST_RESOURCE_PREFIX" default:"/me/iepure/Ticketbooth"`
	ImageBaseURL    string        `yaml:"image_base_url" json:"image_base_url" env:"WATCHLIST_IMAGE_BASE_URL" default:"https://image.tmdb.org/t/p"`
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout" env:"WATCHLIST_DOWNLOAD_TIMEOUT" default:"30s"`
	DownloadRetries int           `yaml:"download_retries" json:"download_retries" env:"WATCHLIST_DOWNLOAD_RETRIES" default:"3"`
}

// MetadataConfig holds TMDB client configuration
type MetadataConfig struct {
	APIKey            string        `yaml:"api_key" json:"-" env:"TMDB_KEY"`
	BaseURL           string        `yaml:"base_url" json:"base_url" env:"WATCHLIST_TMDB_URL" default:"https://api.themoviedb.org/3"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout" env:"WATCHLIST_TMDB_TIMEOUT" default:"15s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second" env:"WATCHLIST_TMDB_RPS" default:"20"`
	Burst             int           `yaml:"burst" json:"burst" env:"WATCHLIST_TMDB_BURST" default:"5"`
}

// SchedulerConfig holds refresh and notification scan timing
type SchedulerConfig struct {
	NotificationInterval time.Duration `yaml:"notification_interval" json:"notification_interval" env:"WATCHLIST_NOTIFICATION_INTERVAL" default:"12h"`
	SoonWindow           time.Duration `yaml:"soon_window" json:"soon_window" env:"WATCHLIST_SOON_WINDOW" default:"168h"`
	DiscreteGap          time.Duration `yaml:"discrete_gap" json:"discrete_gap" env:"WATCHLIST_DISCRETE_GAP" default:"336h"`
	CheckInterval        time.Duration `yaml:"check_interval" json:"check_interval" env:"WATCHLIST_CHECK_INTERVAL" default:"1h"`
	RefreshWorkers       int           `yaml:"refresh_workers" json:"refresh_workers" env:"WATCHLIST_REFRESH_WORKERS" default:"4"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"WATCHLIST_SHUTDOWN_TIMEOUT" default:"2m"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" json:"level" env:"WATCHLIST_LOG_LEVEL" default:"info"`
	Format       string `yaml:"format" json:"format" env:"WATCHLIST_LOG_FORMAT" default:"text"`
	FilePath     string `yaml:"file_path" json:"file_path" env:"WATCHLIST_LOG_FILE"`
	MaxFileSize  int    `yaml:"max_file_size" json:"max_file_size" env:"WATCHLIST_LOG_MAX_SIZE" default:"10"`
	MaxBackups   int    `yaml:"max_backups" json:"max_backups" env:"WATCHLIST_LOG_MAX_BACKUPS" default:"3"`
	MaxAge       int    `yaml:"max_age" json:"max_age" env:"WATCHLIST_LOG_MAX_AGE" default:"30"`
	EnableColors bool   `yaml:"enable_colors" json:"enable_colors" env:"WATCHLIST_LOG_COLORS" default:"true"`
}

// ConfigManager holds the loaded configuration and reloads it on demand
type ConfigManager struct {
	config     *Config
	configPath string
	watchers   []ConfigWatcher
	mu         sync.RWMutex
}

// ConfigWatcher receives the previous and the new configuration
type ConfigWatcher func(oldConfig, newConfig *Config)

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	cfg := DefaultConfig()
	applyDerivedConfig(cfg)
	return &ConfigManager{
		config:   cfg,
		watchers: make([]ConfigWatcher, 0),
	}
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:          "sqlite",
			DataDir:       defaultDataDir(),
			BusyTimeout:   5 * time.Second,
			SlowThreshold: 200 * time.Millisecond,
		},
		Assets: AssetConfig{
			ResourcePrefix:  "/me/iepure/Ticketbooth",
			ImageBaseURL:    "https://image.tmdb.org/t/p",
			DownloadTimeout: 30 * time.Second,
			DownloadRetries: 3,
		},
		Metadata: MetadataConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			RequestTimeout:    15 * time.Second,
			RequestsPerSecond: 20,
			Burst:             5,
		},
		Scheduler: SchedulerConfig{
			NotificationInterval: 12 * time.Hour,
			SoonWindow:           7 * 24 * time.Hour,
			DiscreteGap:          14 * 24 * time.Hour,
			CheckInterval:        time.Hour,
			RefreshWorkers:       4,
			ShutdownTimeout:      2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "text",
			MaxFileSize:  10,
			MaxBackups:   3,
			MaxAge:       30,
			EnableColors: true,
		},
	}
}

// LoadConfig rebuilds the configuration from defaults, the file at
// configPath if present, and the environment, in that order. Watchers are
// notified on success.
func (cm *ConfigManager) LoadConfig(configPath string) error {
	next := DefaultConfig()
	if configPath != "" && fileExists(configPath) {
		if err := readFile(configPath, next); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
	}
	if err := applyEnv(reflect.ValueOf(next).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := validateConfig(next); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	applyDerivedConfig(next)

	cm.mu.Lock()
	prev := *cm.config
	cm.config = next
	cm.configPath = configPath
	watchers := append([]ConfigWatcher(nil), cm.watchers...)
	cm.mu.Unlock()

	for _, w := range watchers {
		go w(&prev, next)
	}
	return nil
}

// Path returns the file the configuration was loaded from
func (cm *ConfigManager) Path() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

// GetConfig returns a copy of the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	c := *cm.config
	return &c
}

// AddWatcher registers a function called after every successful reload
func (cm *ConfigManager) AddWatcher(watcher ConfigWatcher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.watchers = append(cm.watchers, watcher)
}

// SaveConfig writes the current configuration back to its file
func (cm *ConfigManager) SaveConfig() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.configPath == "" {
		return fmt.Errorf("no config path set")
	}
	return writeFile(cm.configPath, cm.config)
}

type codec struct {
	unmarshal func([]byte, interface{}) error
	marshal   func(interface{}) ([]byte, error)
}

var codecs = map[string]codec{
	".yaml": {yaml.Unmarshal, yaml.Marshal},
	".yml":  {yaml.Unmarshal, yaml.Marshal},
	".json": {json.Unmarshal, func(v interface{}) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }},
}

func codecFor(path string) (codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	c, ok := codecs[ext]
	if !ok {
		return codec{}, fmt.Errorf("unsupported config file format: %s", ext)
	}
	return c, nil
}

func readFile(path string, cfg *Config) error {
	c, err := codecFor(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.unmarshal(data, cfg)
}

func writeFile(path string, cfg *Config) error {
	c, err := codecFor(path)
	if err != nil {
		return err
	}
	data, err := c.marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var durationType = reflect.TypeOf(time.Duration(0))

// applyEnv walks the struct applying `env` overrides, then `default` tags
// to fields still zero after the file was read. Bool defaults live in
// DefaultConfig only: an explicit false in the file is zero too.
func applyEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field, meta := v.Field(i), t.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := applyEnv(field); err != nil {
				return err
			}
			continue
		}

		var raw string
		if key := meta.Tag.Get("env"); key != "" {
			raw = os.Getenv(key)
		}
		if raw == "" && field.IsZero() && field.Kind() != reflect.Bool {
			raw = meta.Tag.Get("default")
		}
		if raw == "" {
			continue
		}
		if err := setField(field, raw); err != nil {
			return fmt.Errorf("failed to set field %s: %w", meta.Name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}
	return nil
}

func validateConfig(config *Config) error {
	if config.Database.Type != "sqlite" && config.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	if config.Database.Type == "postgres" && config.Database.DSN == "" {
		return fmt.Errorf("postgres database requires a dsn")
	}

	if config.Metadata.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid requests per second: %v", config.Metadata.RequestsPerSecond)
	}

	if config.Scheduler.NotificationInterval <= 0 {
		return fmt.Errorf("invalid notification interval: %s", config.Scheduler.NotificationInterval)
	}

	if config.Scheduler.RefreshWorkers < 1 {
		return fmt.Errorf("invalid refresh worker count: %d", config.Scheduler.RefreshWorkers)
	}

	return nil
}

func applyDerivedConfig(config *Config) {
	if config.Database.DatabasePath == "" && config.Database.Type == "sqlite" {
		config.Database.DatabasePath = filepath.Join(config.Database.DataDir, "data.db")
	}

	if config.Assets.DataDir == "" {
		config.Assets.DataDir = config.Database.DataDir
	}

	if config.Assets.MoviesDir == "" {
		config.Assets.MoviesDir = filepath.Join(config.Assets.DataDir, "movies")
	}

	if config.Assets.SeriesDir == "" {
		config.Assets.SeriesDir = filepath.Join(config.Assets.DataDir, "series")
	}
}

// defaultDataDir follows the XDG data directory convention
func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "watchlist")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "watchlist")
	}
	return "watchlist-data"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
