package stationdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"github.com/the-lmc-group/trainflow/internal/models"
)

// Client owns the SQLite station store.
type Client struct {
	config        Config
	DB            *sql.DB
	Queries       *Queries
	importRuntime time.Duration
}

// NewClient opens the database and applies the schema.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	} else if config.verbose {
		slog.Default().Info("station tables ready", slog.String("db_path", config.DBPath))
	}

	client := &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
	}
	return client, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) GetDBPath() string {
	return c.config.DBPath
}

// ImportRuntime is the duration of the last import, zero when it was skipped.
func (c *Client) ImportRuntime() time.Duration {
	return c.importRuntime
}

// ImportFromFile loads a stations JSON file into the database. The import is
// skipped when the file content matches the previous import.
func (c *Client) ImportFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.importStationsWithSource(ctx, data, path)
}

// Stations returns every stored station ordered by UIC code.
func (c *Client) Stations(ctx context.Context) ([]models.Station, error) {
	rows, err := c.Queries.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	stations := make([]models.Station, 0, len(rows))
	for _, row := range rows {
		stations = append(stations, row.toModel())
	}
	return stations, nil
}

// SearchStations matches station names containing query, case-insensitively
// for ASCII letters.
func (c *Client) SearchStations(ctx context.Context, query string, limit int) ([]models.Station, error) {
	rows, err := c.Queries.SearchStationsByName(ctx, SearchStationsByNameParams{
		Query: query,
		Limit: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("search stations: %w", err)
	}
	stations := make([]models.Station, 0, len(rows))
	for _, row := range rows {
		stations = append(stations, row.toModel())
	}
	return stations, nil
}

func (s Station) toModel() models.Station {
	m := models.Station{
		UIC:  s.Uic,
		Name: s.Name,
		Lat:  s.Lat,
		Lon:  s.Lon,
	}
	if s.SnappedLat.Valid {
		v := s.SnappedLat.Float64
		m.SnappedLat = &v
	}
	if s.SnappedLon.Valid {
		v := s.SnappedLon.Float64
		m.SnappedLon = &v
	}
	return m
}
