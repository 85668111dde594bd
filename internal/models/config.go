package models

type GitProperties struct {
	GitBranch         string `json:"git.branch"`
	GitBuildTime      string `json:"git.build.time"`
	GitBuildVersion   string `json:"git.build.version"`
	GitCommitId       string `json:"git.commit.id"`
	GitCommitIdAbbrev string `json:"git.commit.id.abbrev"`
	GitDirty          string `json:"git.dirty"`
}

// ConfigModel describes the running service: build and refresh settings.
type ConfigModel struct {
	GitProperties          GitProperties `json:"gitProperties"`
	Id                     string        `json:"id"`
	Name                   string        `json:"name"`
	RefreshIntervalSeconds float64       `json:"refreshIntervalSeconds"`
	SnapTolerance          float64       `json:"snapTolerance"`
	MergeProviders         bool          `json:"mergeProviders"`
	Providers              []string      `json:"providers"`
	Stations               int           `json:"stations"`
	RailSegments           int           `json:"railSegments"`
}
