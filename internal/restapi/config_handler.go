package restapi

import (
	"net/http"

	"github.com/the-lmc-group/trainflow/internal/buildinfo"
	"github.com/the-lmc-group/trainflow/internal/models"
)

func (api *RestAPI) configHandler(w http.ResponseWriter, r *http.Request) {
	buildinfo.Fill()

	gitProps := models.GitProperties{
		GitBranch:         buildinfo.Branch,
		GitBuildTime:      buildinfo.BuildTime,
		GitBuildVersion:   buildinfo.Version,
		GitCommitId:       buildinfo.CommitHash,
		GitCommitIdAbbrev: buildinfo.ShortHash(),
		GitDirty:          buildinfo.Dirty,
	}

	providers := make([]string, 0, len(api.Providers))
	for _, p := range api.Providers {
		if p.IsEnabled() {
			providers = append(providers, p.Name)
		}
	}

	configEntry := models.ConfigModel{
		GitProperties:          gitProps,
		Id:                     "trainflow",
		Name:                   "trainflow",
		RefreshIntervalSeconds: api.staleDetector.refresh.Seconds(),
		MergeProviders:         api.Config.MergeProviders,
		Providers:              providers,
		Stations:               api.Stations.Len(),
	}
	if api.Positioner != nil {
		configEntry.SnapTolerance = api.Positioner.Tolerance()
	}
	if api.Rails != nil {
		configEntry.RailSegments = api.Rails.SegmentCount()
	}

	api.sendResponse(w, r, models.NewOKResponse(configEntry, api.Clock))
}
