package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ColorFunc reports whether the poster at the given reference is light
// enough to need a dark badge. It backfills the color column.
type ColorFunc func(posterPath string) bool

// columnAddition is a column introduced after the first schema version
type columnAddition struct {
	model  interface{}
	table  string
	column string
}

var laterColumns = []columnAddition{
	{&Movie{}, "movies", "color"},
	{&Movie{}, "movies", "activate_notification"},
	{&Movie{}, "movies", "new_release"},
	{&Movie{}, "movies", "soon_release"},
	{&Series{}, "series", "color"},
	{&Series{}, "series", "activate_notification"},
	{&Series{}, "series", "new_release"},
	{&Series{}, "series", "soon_release"},
	{&Series{}, "series", "last_air_date"},
	{&Series{}, "series", "next_air_date"},
}

// listColumns hold ordered string lists, once stored as comma separated text
var listColumns = []struct {
	table  string
	column string
}{
	{"movies", "genres"},
	{"series", "genres"},
	{"series", "created_by"},
}

// MigrationReport describes the changes a migration made
type MigrationReport struct {
	CreatedTables    []string `json:"created_tables"`
	AddedColumns     []string `json:"added_columns"`
	BackfilledColors int      `json:"backfilled_colors"`
	ConvertedLists   int      `json:"converted_lists"`
}

// Changed reports whether the migration touched the database
func (r MigrationReport) Changed() bool {
	return len(r.CreatedTables) > 0 || len(r.AddedColumns) > 0 || r.BackfilledColors > 0 || r.ConvertedLists > 0
}

// CreateSchema creates every missing table. Existing tables are left alone.
func CreateSchema(ctx context.Context, db *gorm.DB) ([]string, error) {
	db = db.WithContext(ctx)
	migrator := db.Migrator()

	var created []string
	for _, model := range AllModels() {
		if migrator.HasTable(model) {
			continue
		}
		if err := migrator.CreateTable(model); err != nil {
			return created, fmt.Errorf("failed to create table for %T: %w", model, err)
		}
		created = append(created, tableName(model))
	}
	return created, nil
}

// MigrateSchema brings an existing schema up to date. It adds the columns
// introduced by later versions, backfills the color flag of rows that
// predate it and rewrites legacy comma separated lists as JSON. Running it
// against a current schema changes nothing.
func MigrateSchema(ctx context.Context, db *gorm.DB, colorOf ColorFunc, log hclog.Logger) (MigrationReport, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("migrate")
	db = db.WithContext(ctx)

	var report MigrationReport
	created, err := CreateSchema(ctx, db)
	report.CreatedTables = created
	if err != nil {
		return report, err
	}

	migrator := db.Migrator()
	colorAdded := map[string]bool{}
	for _, add := range laterColumns {
		if migrator.HasColumn(add.model, add.column) {
			continue
		}
		if err := migrator.AddColumn(add.model, add.column); err != nil {
			return report, fmt.Errorf("failed to add column %s.%s: %w", add.table, add.column, err)
		}
		report.AddedColumns = append(report.AddedColumns, add.table+"."+add.column)
		if add.column == "color" {
			colorAdded[add.table] = true
		}
		log.Info("added column", "table", add.table, "column", add.column)
	}

	if colorOf != nil {
		for _, table := range []string{"movies", "series"} {
			if !colorAdded[table] {
				continue
			}
			n, err := backfillColors(db, table, colorOf)
			report.BackfilledColors += n
			if err != nil {
				return report, err
			}
			log.Info("backfilled poster colors", "table", table, "rows", n)
		}
	}

	for _, lc := range listColumns {
		n, err := convertLegacyLists(db, lc.table, lc.column)
		report.ConvertedLists += n
		if err != nil {
			return report, err
		}
		if n > 0 {
			log.Info("converted legacy lists", "table", lc.table, "column", lc.column, "rows", n)
		}
	}

	return report, nil
}

func backfillColors(db *gorm.DB, table string, colorOf ColorFunc) (int, error) {
	var rows []struct {
		ID         string
		PosterPath string
	}
	if err := db.Table(table).Select("id", "poster_path").Scan(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to read %s posters: %w", table, err)
	}

	for i, row := range rows {
		if err := db.Table(table).Where("id = ?", row.ID).Update("color", colorOf(row.PosterPath)).Error; err != nil {
			return i, fmt.Errorf("failed to backfill color for %s %s: %w", table, row.ID, err)
		}
	}
	return len(rows), nil
}

func convertLegacyLists(db *gorm.DB, table, column string) (int, error) {
	var rows []struct {
		ID    string
		Value *string
	}
	err := db.Table(table).
		Select("id, " + column + " AS value").
		Where(column + " IS NULL OR substr(CAST(" + column + " AS TEXT), 1, 1) <> '['").
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read %s.%s: %w", table, column, err)
	}

	converted := 0
	for _, row := range rows {
		raw := ""
		if row.Value != nil {
			raw = strings.TrimSpace(*row.Value)
		}
		if json.Valid([]byte(raw)) && strings.HasPrefix(raw, "[") {
			continue
		}
		list := datatypes.JSONSlice[string](SplitLegacyList(raw))
		if err := db.Table(table).Where("id = ?", row.ID).Update(column, list).Error; err != nil {
			return converted, fmt.Errorf("failed to convert %s.%s for %s: %w", table, column, row.ID, err)
		}
		converted++
	}
	return converted, nil
}

// SplitLegacyList decodes the comma separated encoding used before lists
// were stored as JSON
func SplitLegacyList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func tableName(model interface{}) string {
	if t, ok := model.(interface{ TableName() string }); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", model)
}
