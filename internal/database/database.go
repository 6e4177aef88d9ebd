// Package database owns the gorm connection, the persisted row types and
// the schema lifecycle of the local store.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MemoryPath opens a private in-memory sqlite database
const MemoryPath = ":memory:"

// Open connects to the configured database. SQLite connections are limited
// to a single open connection so every caller sees one consistent database
// and writers never contend for the file lock.
func Open(cfg config.DatabaseConfig, log hclog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("database")

	gormConfig := &gorm.Config{
		Logger: NewGormLogger(log, cfg.LogQueries, cfg.SlowThreshold),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Type {
	case "", "sqlite":
		db, err = connectSQLite(cfg, gormConfig)
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DSN), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connected", "type", cfg.Type, "path", cfg.DatabasePath)
	return db, nil
}

func connectSQLite(cfg config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	path := cfg.DatabasePath
	if path == "" {
		return nil, fmt.Errorf("database path is required for sqlite")
	}

	if path == MemoryPath {
		path = "file::memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path, cfg)), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return db, nil
}

func sqliteDSN(path string, cfg config.DatabaseConfig) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_foreign_keys=on"
	if cfg.BusyTimeout > 0 {
		dsn += fmt.Sprintf("&_busy_timeout=%d", cfg.BusyTimeout.Milliseconds())
	}
	return dsn
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
