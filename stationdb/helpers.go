package stationdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/the-lmc-group/trainflow/internal/appconf"
	"github.com/the-lmc-group/trainflow/internal/logging"
	"github.com/the-lmc-group/trainflow/internal/models"
)

//go:embed schema.sql
var ddl string

// createDB creates a new SQLite database with the station tables
func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, err
	}

	// Pool limits must be in place before the first statement: every
	// connection to :memory: is a separate database.
	configureConnectionPool(db, config)

	ctx := context.Background()
	if err := configureSQLitePerformance(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error configuring SQLite performance: %w", err)
	}

	if err := performDatabaseMigration(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate")
	for _, stmt := range statements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmedStmt); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmedStmt, err)
		}
	}
	return nil
}

// stationRecord is one entry of the stations dataset.
type stationRecord struct {
	UIC        string   `json:"uic"`
	Name       string   `json:"name"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	SnappedLat *float64 `json:"snappedLat"`
	SnappedLon *float64 `json:"snappedLon"`
}

// ParseStations decodes the stations dataset, dropping records without a UIC
// code or coordinates.
func ParseStations(b []byte) ([]models.Station, int, error) {
	var records []stationRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, 0, fmt.Errorf("decode stations: %w", err)
	}

	stations := make([]models.Station, 0, len(records))
	skipped := 0
	for _, r := range records {
		uic := strings.TrimSpace(r.UIC)
		if uic == "" || r.Lat == nil || r.Lon == nil {
			skipped++
			continue
		}
		stations = append(stations, models.Station{
			UIC:        uic,
			Name:       r.Name,
			Lat:        *r.Lat,
			Lon:        *r.Lon,
			SnappedLat: r.SnappedLat,
			SnappedLon: r.SnappedLon,
		})
	}
	return stations, skipped, nil
}

func (c *Client) importStationsWithSource(ctx context.Context, b []byte, source string) error {
	logger := slog.Default().With(slog.String("component", "station_importer"))

	startTime := time.Now()

	hash := sha256.Sum256(b)
	hashStr := hex.EncodeToString(hash[:])

	existing, err := c.Queries.GetImportMetadata(ctx)
	switch {
	case err == nil:
		if existing.FileHash == hashStr && existing.FileSource == source {
			logging.LogOperation(logger, "station_data_unchanged_skipping_import",
				slog.String("hash", hashStr[:8]))
			c.importRuntime = 0
			return nil
		}
		logging.LogOperation(logger, "station_data_changed_reimporting",
			slog.String("old_hash", shortHash(existing.FileHash)),
			slog.String("new_hash", hashStr[:8]))
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("error checking import metadata: %w", err)
	}

	stations, skipped, err := ParseStations(b)
	if err != nil {
		return err
	}
	if skipped > 0 {
		logger.Warn("skipped incomplete station records", slog.Int("count", skipped))
	}

	if err := c.replaceStations(ctx, stations, UpsertImportMetadataParams{
		FileHash:   hashStr,
		FileSource: source,
		ImportedAt: time.Now().Unix(),
	}); err != nil {
		return err
	}

	c.importRuntime = time.Since(startTime)
	logging.LogOperation(logger, "station_data_import_completed",
		slog.Int("stations", len(stations)),
		slog.Duration("duration", c.importRuntime),
		slog.String("source", source))

	return nil
}

// replaceStations swaps the whole station table and the import metadata in
// one transaction.
func (c *Client) replaceStations(ctx context.Context, stations []models.Station, meta UpsertImportMetadataParams) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	logging.LogOperation(logger, "inserting_stations",
		slog.Int("count", len(stations)))

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "bulk_insert_stations")

	qtx := c.Queries.WithTx(tx)
	if err := qtx.ClearStations(ctx); err != nil {
		return fmt.Errorf("clear stations: %w", err)
	}
	for _, s := range stations {
		err := qtx.CreateStation(ctx, CreateStationParams{
			Uic:        s.UIC,
			Name:       s.Name,
			Lat:        s.Lat,
			Lon:        s.Lon,
			SnappedLat: toNullFloat64(s.SnappedLat),
			SnappedLon: toNullFloat64(s.SnappedLon),
		})
		if err != nil {
			return fmt.Errorf("unable to create station %s: %w", s.UIC, err)
		}
	}
	if err := qtx.UpsertImportMetadata(ctx, meta); err != nil {
		return fmt.Errorf("unable to record import metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logging.LogOperation(logger, "stations_inserted",
		slog.Int("count", len(stations)))

	return nil
}

func toNullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func shortHash(h string) string {
	if len(h) < 8 {
		return h
	}
	return h[:8]
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// configureSQLitePerformance applies PRAGMA settings for the bulk import and
// the lookups that follow it.
func configureSQLitePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		name        string
		description string
	}{
		// negative value means KB
		{"PRAGMA cache_size=-64000", "Set cache size to 64MB"},
		{"PRAGMA temp_store=MEMORY", "Store temporary data in memory"},
	}

	logger := slog.Default().With(slog.String("component", "sqlite_performance"))

	for _, pragma := range pragmas {
		_, err := db.ExecContext(ctx, pragma.name)
		if err != nil {
			logging.LogError(logger, fmt.Sprintf("Failed to set %s", pragma.description), err)
			return fmt.Errorf("failed to execute %s: %w", pragma.name, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	logging.LogOperation(logger, "sqlite_performance_settings_applied",
		slog.Int("pragma_count", len(pragmas)))

	return nil
}

// configureConnectionPool sets up connection pool settings for SQLite.
//
// A :memory: database is limited to a single connection since each
// connection would otherwise open its own empty database.
func configureConnectionPool(db *sql.DB, config Config) {
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		// an idle :memory: connection must never be recycled
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
}
