// Package buildinfo carries version control metadata injected at link time:
//
//	go build -ldflags "-X github.com/the-lmc-group/trainflow/internal/buildinfo.Version=v1.2.0 ..."
//
// Values left empty are filled from the module build info when available.
package buildinfo

import (
	"runtime/debug"
	"sync"
)

var (
	Version    = ""
	CommitHash = ""
	Branch     = ""
	BuildTime  = ""
	Dirty      = ""
)

var fillOnce sync.Once

// Fill copies vcs.* settings recorded by the go tool into unset variables.
func Fill() {
	fillOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if CommitHash == "" {
					CommitHash = s.Value
				}
			case "vcs.time":
				if BuildTime == "" {
					BuildTime = s.Value
				}
			case "vcs.modified":
				if Dirty == "" {
					Dirty = s.Value
				}
			}
		}
	})
}

// ShortHash is the seven character abbreviation of CommitHash, or "unknown".
func ShortHash() string {
	if len(CommitHash) >= 7 {
		return CommitHash[:7]
	}
	return "unknown"
}
