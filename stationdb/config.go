package stationdb

import "github.com/the-lmc-group/trainflow/internal/appconf"

type Config struct {
	// DBPath is a SQLite file path or ":memory:".
	DBPath  string
	Env     appconf.Environment
	verbose bool
}

func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Env:     env,
		verbose: verbose,
	}
}
