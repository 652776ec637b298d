package gpxexport

import (
	"errors"
	"strings"
	"testing"

	"github.com/tkrajina/gpxgo/gpx"

	"gpx-route-map/pkg/gpxfile"
)

// TestBuildRoundTrip exports two routes and parses the result back with
// the same library to prove the document is well-formed and complete.
func TestBuildRoundTrip(t *testing.T) {
	routes := []gpxfile.Route{
		{ID: "a", Name: "Morning run", Coordinates: [][2]float64{{9.0, 46.0}, {9.1, 46.1}}},
		{ID: "b", Name: "Lake loop", Coordinates: [][2]float64{{8.5, 45.5}}},
	}

	data, err := Build(routes, "gpx-route-map-test")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	parsed, err := gpx.ParseBytes(data)
	if err != nil {
		t.Fatalf("exported document does not parse back: %v", err)
	}
	if len(parsed.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(parsed.Tracks))
	}
	if parsed.Tracks[0].Name != "Morning run" || parsed.Tracks[1].Name != "Lake loop" {
		t.Errorf("track names = %q, %q", parsed.Tracks[0].Name, parsed.Tracks[1].Name)
	}
	pts := parsed.Tracks[0].Segments[0].Points
	if len(pts) != 2 || pts[0].Latitude != 46.0 || pts[0].Longitude != 9.0 {
		t.Errorf("first track points = %+v", pts)
	}
	if !strings.Contains(string(data), `creator="gpx-route-map-test"`) {
		t.Error("creator attribute missing from export")
	}
}

// TestBuildEmptySelection confirms the sentinel error for an empty
// selection so handlers can answer 400 instead of serving a hollow file.
func TestBuildEmptySelection(t *testing.T) {
	if _, err := Build(nil, "x"); !errors.Is(err, ErrNothingSelected) {
		t.Fatalf("error = %v, want ErrNothingSelected", err)
	}
}
