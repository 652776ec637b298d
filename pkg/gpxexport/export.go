// Package gpxexport serializes the selected routes back into a GPX 1.1
// document so users can take their merged selection to other tools.
package gpxexport

import (
	"errors"

	"github.com/tkrajina/gpxgo/gpx"

	"gpx-route-map/pkg/gpxfile"
)

// ErrNothingSelected is returned when the selection is empty; callers
// translate it into a client error rather than serving an empty file.
var ErrNothingSelected = errors.New("gpxexport: no routes selected")

// Build renders every route as one single-segment track in selection
// order. Per-point elevations are not part of the in-memory model, so the
// exported points carry coordinates only.
func Build(routes []gpxfile.Route, creator string) ([]byte, error) {
	if len(routes) == 0 {
		return nil, ErrNothingSelected
	}

	doc := gpx.GPX{
		Creator: creator,
		Name:    "Selected routes",
	}
	for _, r := range routes {
		seg := gpx.GPXTrackSegment{}
		for _, c := range r.Coordinates {
			seg.Points = append(seg.Points, gpx.GPXPoint{
				Point: gpx.Point{Latitude: c[1], Longitude: c[0]},
			})
		}
		doc.Tracks = append(doc.Tracks, gpx.GPXTrack{
			Name:     r.Name,
			Segments: []gpx.GPXTrackSegment{seg},
		})
	}

	return doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}
