package stationdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lmc-group/trainflow/internal/appconf"
)

func stationsFixture() string {
	return filepath.Join("..", "testdata", "stations", "gares.json")
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClientRejectsFileDatabaseInTests(t *testing.T) {
	_, err := NewClient(NewConfig(filepath.Join(t.TempDir(), "stations.db"), appconf.Test, false))
	require.Error(t, err)
}

func TestImportFromFile(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.ImportFromFile(ctx, stationsFixture()))
	assert.Greater(t, client.ImportRuntime().Nanoseconds(), int64(0))

	stations, err := client.Stations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 5, "records without code or coordinates are dropped")

	byUIC := make(map[string]int)
	for i, s := range stations {
		byUIC[s.UIC] = i
	}

	beta := stations[byUIC["87000002"]]
	assert.Equal(t, "Beta", beta.Name)
	require.NotNil(t, beta.SnappedLon)
	assert.InDelta(t, 2.004, *beta.SnappedLon, 1e-9)

	alpha := stations[byUIC["87000001"]]
	assert.Nil(t, alpha.SnappedLat)
	assert.Equal(t, 48.0, alpha.Lat)

	count, err := client.Queries.CountStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestImportSkipsUnchangedData(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.ImportFromFile(ctx, stationsFixture()))
	first, err := client.Queries.GetImportMetadata(ctx)
	require.NoError(t, err)

	require.NoError(t, client.ImportFromFile(ctx, stationsFixture()))
	assert.Zero(t, client.ImportRuntime(), "second import of the same file is skipped")

	second, err := client.Queries.GetImportMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.FileHash, second.FileHash)
	assert.Equal(t, first.ImportedAt, second.ImportedAt)
}

func TestImportReplacesChangedData(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "gares.json")

	require.NoError(t, os.WriteFile(path, []byte(`[{"uic":"1","name":"One","lat":1,"lon":1},{"uic":"2","name":"Two","lat":2,"lon":2}]`), 0o600))
	require.NoError(t, client.ImportFromFile(ctx, path))

	require.NoError(t, os.WriteFile(path, []byte(`[{"uic":"3","name":"Three","lat":3,"lon":3}]`), 0o600))
	require.NoError(t, client.ImportFromFile(ctx, path))

	stations, err := client.Stations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "3", stations[0].UIC)
}

func TestImportRejectsMalformedFile(t *testing.T) {
	client := newTestClient(t)
	path := filepath.Join(t.TempDir(), "gares.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"uic": "1"}`), 0o600))

	err := client.ImportFromFile(context.Background(), path)
	require.Error(t, err)

	_, err = client.Queries.GetImportMetadata(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows, "a failed import leaves no metadata behind")
}

func TestGetStation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.ImportFromFile(ctx, stationsFixture()))

	s, err := client.Queries.GetStation(ctx, "87543009")
	require.NoError(t, err)
	assert.Equal(t, "Châteaudun", s.Name)

	_, err = client.Queries.GetStation(ctx, "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSearchStations(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, client.ImportFromFile(ctx, stationsFixture()))

	found, err := client.SearchStations(ctx, "rochereau", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "58774", found[0].UIC)

	found, err = client.SearchStations(ctx, "a", 2)
	require.NoError(t, err)
	assert.Len(t, found, 2, "limit is applied")

	found, err = client.SearchStations(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, found, "LIKE wildcards are matched literally")
}

func TestTableCounts(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	client := &Client{DB: db}

	_, err = db.Exec(`
		CREATE TABLE stations (uic TEXT);
		INSERT INTO stations VALUES ('1'), ('2');

		-- Create a table NOT in the whitelist to ensure it's ignored
		CREATE TABLE secret_table (id TEXT);
	`)
	require.NoError(t, err)

	counts, err := client.TableCounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, counts["stations"], "Should count stations correctly")

	_, exists := counts["secret_table"]
	assert.False(t, exists, "Should not include tables outside the whitelist")
}
