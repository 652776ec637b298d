// Package summary derives the aggregate figures shown next to the map:
// how many routes are selected, their combined length, and the highest
// elevation any of them reaches.
package summary

import (
	"fmt"

	"gpx-route-map/pkg/gpxfile"
)

// NotAvailable is the sentinel rendered for zero or absent values.
const NotAvailable = "N/A"

// Stats summarizes the currently selected subset of routes.
type Stats struct {
	Count               int
	TotalDistanceMeters float64
	MaxElevationMeters  float64 // 0 means "no elevation data anywhere"
}

// Summarize folds the selected routes into one Stats value. Routes without
// elevation data compare as 0, so a MaxElevationMeters of 0 tells the
// caller to present elevation as not applicable rather than as sea level.
func Summarize(selected []gpxfile.Route) Stats {
	var st Stats
	st.Count = len(selected)
	for _, r := range selected {
		st.TotalDistanceMeters += r.DistanceMeters
		if r.ElevationValid && r.ElevationMax > st.MaxElevationMeters {
			st.MaxElevationMeters = r.ElevationMax
		}
	}
	return st
}

// FormatDistance renders meters for humans: kilometers with one decimal
// from 1000 m upward, whole meters below that, NotAvailable for zero.
func FormatDistance(meters float64) string {
	switch {
	case meters <= 0:
		return NotAvailable
	case meters >= 1000:
		return fmt.Sprintf("%.1f km", meters/1000)
	default:
		return fmt.Sprintf("%.0f m", meters)
	}
}

// FormatElevation renders an elevation maximum, treating 0 as absent.
func FormatElevation(meters float64) string {
	if meters == 0 {
		return NotAvailable
	}
	return fmt.Sprintf("%.0f m", meters)
}
