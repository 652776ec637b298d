package api

import (
	"gpx-route-map/pkg/routestore"
	"gpx-route-map/pkg/summary"
)

// RouteView is the per-route display record handed to the presentation
// layer: everything it needs to render one list row, nothing more.
type RouteView struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Color              string `json:"color"`
	Selected           bool   `json:"selected"`
	Points             int    `json:"points"`
	FormattedDistance  string `json:"formattedDistance"`
	FormattedElevation string `json:"formattedElevation,omitempty"`
}

// SummaryView aggregates the selected subset for the stats panel.
type SummaryView struct {
	LoadedCount            int    `json:"loadedCount"`
	SelectedCount          int    `json:"selectedCount"`
	FormattedTotalDistance string `json:"formattedTotalDistance"`
	FormattedMaxElevation  string `json:"formattedMaxElevation,omitempty"`
}

// StateView is the complete presentation payload after any mutation.
type StateView struct {
	Routes  []RouteView `json:"routes"`
	Summary SummaryView `json:"summary"`
}

// BuildState projects a store snapshot into display records. Elevation
// fields are left empty (omitted from JSON) when no data exists, so the
// page shows "not applicable" instead of a misleading zero.
func BuildState(snap routestore.Snapshot) StateView {
	state := StateView{Routes: make([]RouteView, 0, len(snap.Entries))}

	for _, e := range snap.Entries {
		view := RouteView{
			ID:                e.Route.ID,
			Name:              e.Route.Name,
			Color:             e.Color,
			Selected:          e.Selected,
			Points:            len(e.Route.Coordinates),
			FormattedDistance: summary.FormatDistance(e.Route.DistanceMeters),
		}
		if e.Route.ElevationValid {
			view.FormattedElevation = summary.FormatElevation(e.Route.ElevationMax)
		}
		state.Routes = append(state.Routes, view)
	}

	stats := summary.Summarize(snap.Selected())
	state.Summary = SummaryView{
		LoadedCount:            len(snap.Entries),
		SelectedCount:          stats.Count,
		FormattedTotalDistance: summary.FormatDistance(stats.TotalDistanceMeters),
	}
	if stats.MaxElevationMeters != 0 {
		state.Summary.FormattedMaxElevation = summary.FormatElevation(stats.MaxElevationMeters)
	}
	return state
}
