package stationdb

import (
	"context"
)

const createStation = `
INSERT OR REPLACE INTO stations (uic, name, lat, lon, snapped_lat, snapped_lon)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateStationParams = Station

func (q *Queries) CreateStation(ctx context.Context, arg CreateStationParams) error {
	_, err := q.db.ExecContext(ctx, createStation,
		arg.Uic,
		arg.Name,
		arg.Lat,
		arg.Lon,
		arg.SnappedLat,
		arg.SnappedLon,
	)
	return err
}

const getStation = `
SELECT uic, name, lat, lon, snapped_lat, snapped_lon
FROM stations
WHERE uic = ?
`

func (q *Queries) GetStation(ctx context.Context, uic string) (Station, error) {
	row := q.db.QueryRowContext(ctx, getStation, uic)
	var i Station
	err := row.Scan(
		&i.Uic,
		&i.Name,
		&i.Lat,
		&i.Lon,
		&i.SnappedLat,
		&i.SnappedLon,
	)
	return i, err
}

const listStations = `
SELECT uic, name, lat, lon, snapped_lat, snapped_lon
FROM stations
ORDER BY uic
`

func (q *Queries) ListStations(ctx context.Context) ([]Station, error) {
	rows, err := q.db.QueryContext(ctx, listStations)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Station
	for rows.Next() {
		var i Station
		if err := rows.Scan(
			&i.Uic,
			&i.Name,
			&i.Lat,
			&i.Lon,
			&i.SnappedLat,
			&i.SnappedLon,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const searchStationsByName = `
SELECT uic, name, lat, lon, snapped_lat, snapped_lon
FROM stations
WHERE name LIKE '%' || ? || '%' ESCAPE '\'
ORDER BY name, uic
LIMIT ?
`

type SearchStationsByNameParams struct {
	Query string
	Limit int64
}

func (q *Queries) SearchStationsByName(ctx context.Context, arg SearchStationsByNameParams) ([]Station, error) {
	rows, err := q.db.QueryContext(ctx, searchStationsByName, escapeLike(arg.Query), arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Station
	for rows.Next() {
		var i Station
		if err := rows.Scan(
			&i.Uic,
			&i.Name,
			&i.Lat,
			&i.Lon,
			&i.SnappedLat,
			&i.SnappedLon,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countStations = `SELECT COUNT(*) FROM stations`

func (q *Queries) CountStations(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countStations)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const clearStations = `DELETE FROM stations`

func (q *Queries) ClearStations(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, clearStations)
	return err
}

const getImportMetadata = `
SELECT id, file_hash, file_source, imported_at
FROM import_metadata
WHERE id = 1
`

func (q *Queries) GetImportMetadata(ctx context.Context) (ImportMetadatum, error) {
	row := q.db.QueryRowContext(ctx, getImportMetadata)
	var i ImportMetadatum
	err := row.Scan(
		&i.ID,
		&i.FileHash,
		&i.FileSource,
		&i.ImportedAt,
	)
	return i, err
}

const upsertImportMetadata = `
INSERT INTO import_metadata (id, file_hash, file_source, imported_at)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    file_hash = excluded.file_hash,
    file_source = excluded.file_source,
    imported_at = excluded.imported_at
`

type UpsertImportMetadataParams struct {
	FileHash   string
	FileSource string
	ImportedAt int64
}

func (q *Queries) UpsertImportMetadata(ctx context.Context, arg UpsertImportMetadataParams) error {
	_, err := q.db.ExecContext(ctx, upsertImportMetadata, arg.FileHash, arg.FileSource, arg.ImportedAt)
	return err
}
