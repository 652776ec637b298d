package routestore

import (
	"testing"

	"gpx-route-map/pkg/gpxfile"
)

func route(id string, distance float64) gpxfile.Route {
	return gpxfile.Route{
		ID:             id,
		Name:           "route " + id,
		Coordinates:    [][2]float64{{9.0, 46.0}, {9.1, 46.1}},
		DistanceMeters: distance,
	}
}

// TestAddRemoveInvariants checks that added routes are present and
// selected, and that removal purges both the sequence and the selection
// set.
func TestAddRemoveInvariants(t *testing.T) {
	s := New(nil)
	s.AddRoutes([]gpxfile.Route{route("a", 100)})

	snap := s.Snapshot()
	if len(snap.Entries) != 1 || snap.Entries[0].Route.ID != "a" {
		t.Fatalf("entries = %+v, want single route a", snap.Entries)
	}
	if !snap.Entries[0].Selected {
		t.Error("new routes must be auto-selected")
	}

	s.RemoveRoute("a")
	snap = s.Snapshot()
	if len(snap.Entries) != 0 {
		t.Fatalf("entries after remove = %d, want 0", len(snap.Entries))
	}
	if got := snap.Selected(); len(got) != 0 {
		t.Fatalf("selection after remove = %v, want empty", got)
	}

	// Removing again must be a silent no-op.
	s.RemoveRoute("a")
}

// TestPositionalColors verifies that colors follow the position in the
// sequence, so removing the first route shifts everyone after it.
func TestPositionalColors(t *testing.T) {
	s := New(nil)
	s.AddRoutes([]gpxfile.Route{route("a", 1), route("b", 2), route("c", 3)})

	snap := s.Snapshot()
	for i, e := range snap.Entries {
		if e.Color != Palette[i] {
			t.Errorf("entry %d color = %s, want %s", i, e.Color, Palette[i])
		}
	}

	s.RemoveRoute("a")
	snap = s.Snapshot()
	if snap.Entries[0].Route.ID != "b" || snap.Entries[0].Color != Palette[0] {
		t.Errorf("after removal b = %+v, want color %s", snap.Entries[0], Palette[0])
	}
	if snap.Entries[1].Route.ID != "c" || snap.Entries[1].Color != Palette[1] {
		t.Errorf("after removal c = %+v, want color %s", snap.Entries[1], Palette[1])
	}
}

// TestToggleSelection flips a route in and out of the selected subset and
// confirms unknown IDs are ignored.
func TestToggleSelection(t *testing.T) {
	s := New(nil)
	s.AddRoutes([]gpxfile.Route{route("a", 1), route("b", 2)})

	s.ToggleSelection("a")
	snap := s.Snapshot()
	if snap.Entries[0].Selected {
		t.Error("toggle must deselect a selected route")
	}
	if got := snap.Selected(); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("selected = %v, want just b", got)
	}

	s.ToggleSelection("a")
	if snap = s.Snapshot(); !snap.Entries[0].Selected {
		t.Error("second toggle must reselect")
	}

	s.ToggleSelection("ghost") // must not panic or change anything
	if got := len(s.Snapshot().Selected()); got != 2 {
		t.Errorf("selected count after ghost toggle = %d, want 2", got)
	}
}

// TestBatchProjection asserts the camera discipline: every insert projects
// with the camera held, then exactly one fitted projection closes the
// batch. Single mutations afterwards project once with a fit.
func TestBatchProjection(t *testing.T) {
	var cameras []CameraMode
	s := New(func(snap Snapshot, camera CameraMode) {
		cameras = append(cameras, camera)
	})

	s.AddRoutes([]gpxfile.Route{route("a", 1), route("b", 2), route("c", 3)})

	want := []CameraMode{CameraHold, CameraHold, CameraHold, CameraFit}
	if len(cameras) != len(want) {
		t.Fatalf("projections = %d, want %d", len(cameras), len(want))
	}
	for i := range want {
		if cameras[i] != want[i] {
			t.Errorf("projection %d camera = %v, want %v", i, cameras[i], want[i])
		}
	}

	cameras = nil
	s.AddRoutes(nil) // empty batch: nothing to project, no camera jerk
	if len(cameras) != 0 {
		t.Fatalf("empty batch projected %d times, want 0", len(cameras))
	}

	cameras = nil
	s.ToggleSelection("b")
	if len(cameras) != 1 || cameras[0] != CameraFit {
		t.Fatalf("toggle projections = %v, want one CameraFit", cameras)
	}
}

// TestSnapshotIsolated makes sure a snapshot does not alias store
// internals: mutating it must not leak back.
func TestSnapshotIsolated(t *testing.T) {
	s := New(nil)
	s.AddRoutes([]gpxfile.Route{route("a", 1)})

	snap := s.Snapshot()
	snap.Entries[0].Selected = false

	if !s.Snapshot().Entries[0].Selected {
		t.Error("snapshot mutation leaked into the store")
	}
}
