package elevation

import (
	"errors"
	"net/http"
	"testing"

	"gpx-route-map/pkg/gpxfile"
)

type tableLookup struct {
	values map[[2]float64]float64
	err    error
}

func (t tableLookup) GetElevation(_ *http.Client, lat, lon float64) (float64, error) {
	if t.err != nil {
		return 0, t.err
	}
	return t.values[[2]float64{lat, lon}], nil
}

// TestFillComputesMax backfills a route without elevation data and takes
// the maximum over all points.
func TestFillComputesMax(t *testing.T) {
	f := NewWithLookup(tableLookup{values: map[[2]float64]float64{
		{46.0, 9.0}: 120,
		{46.1, 9.1}: 780,
		{46.2, 9.2}: 400,
	}})

	r := gpxfile.Route{Coordinates: [][2]float64{{9.0, 46.0}, {9.1, 46.1}, {9.2, 46.2}}}
	if err := f.Fill(&r); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if !r.ElevationValid || r.ElevationMax != 780 {
		t.Errorf("elevation = (%v, %v), want (780, true)", r.ElevationMax, r.ElevationValid)
	}
}

// TestFillLeavesExistingData ensures decoded elevations always win over
// the terrain model.
func TestFillLeavesExistingData(t *testing.T) {
	f := NewWithLookup(tableLookup{values: map[[2]float64]float64{{46.0, 9.0}: 9999}})

	r := gpxfile.Route{
		Coordinates:    [][2]float64{{9.0, 46.0}},
		ElevationMax:   333,
		ElevationValid: true,
	}
	if err := f.Fill(&r); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if r.ElevationMax != 333 {
		t.Errorf("elevation overwritten: %f", r.ElevationMax)
	}
}

// TestFillLookupFailure propagates the error and leaves the route clean
// so the caller can log and continue.
func TestFillLookupFailure(t *testing.T) {
	boom := errors.New("tile unavailable")
	f := NewWithLookup(tableLookup{err: boom})

	r := gpxfile.Route{Coordinates: [][2]float64{{9.0, 46.0}}}
	if err := f.Fill(&r); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped lookup failure", err)
	}
	if r.ElevationValid {
		t.Error("route gained elevation despite the failure")
	}
}
