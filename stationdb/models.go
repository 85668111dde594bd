package stationdb

import "database/sql"

type Station struct {
	Uic        string
	Name       string
	Lat        float64
	Lon        float64
	SnappedLat sql.NullFloat64
	SnappedLon sql.NullFloat64
}

type ImportMetadatum struct {
	ID         int64
	FileHash   string
	FileSource string
	ImportedAt int64
}
