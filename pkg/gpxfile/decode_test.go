package gpxfile

import (
	"errors"
	"math"
	"testing"
)

const trackWithMetadata = `<?xml version="1.0"?>
<gpx version="1.1" creator="test">
  <metadata><name>Metadata Name</name></metadata>
  <trk>
    <name>Track Name</name>
    <trkseg>
      <trkpt lat="46.0" lon="9.0"><ele>120.5</ele></trkpt>
      <trkpt lat="46.1" lon="9.1"><ele>340.0</ele></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="46.2" lon="9.2"></trkpt>
    </trkseg>
  </trk>
</gpx>`

// TestDecodeTrack checks the happy path: points are concatenated across all
// segments of the first track, the maximum elevation is picked up, and the
// running distance is a positive haversine sum.
func TestDecodeTrack(t *testing.T) {
	r, err := Decode([]byte(trackWithMetadata), "fallback.gpx")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(r.Coordinates) != 3 {
		t.Fatalf("coordinates = %d, want 3", len(r.Coordinates))
	}
	if r.Coordinates[0] != [2]float64{9.0, 46.0} {
		t.Errorf("first coordinate = %v, want [9 46]", r.Coordinates[0])
	}
	if !r.ElevationValid || r.ElevationMax != 340.0 {
		t.Errorf("elevation = (%v, %v), want (340, true)", r.ElevationMax, r.ElevationValid)
	}
	if r.DistanceMeters <= 0 {
		t.Errorf("distance = %f, want > 0", r.DistanceMeters)
	}
	if r.ID == "" {
		t.Error("route ID must not be empty")
	}
}

// TestDecodeNamePrecedence locks the resolution order: track name beats
// metadata name, route name is only consulted when no track exists, and
// the fallback loses its .gpx suffix.
func TestDecodeNamePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		fallback string
		want     string
	}{
		{
			name:     "track name wins over metadata",
			content:  trackWithMetadata,
			fallback: "f.gpx",
			want:     "Track Name",
		},
		{
			name: "metadata wins when track is unnamed",
			content: `<gpx><metadata><name>Meta</name></metadata>
				<trk><trkseg><trkpt lat="1" lon="2"/></trkseg></trk></gpx>`,
			fallback: "f.gpx",
			want:     "Meta",
		},
		{
			name: "route name used when no track exists",
			content: `<gpx><metadata><name>Meta</name></metadata>
				<rte><name>Planned</name><rtept lat="1" lon="2"/></rte></gpx>`,
			fallback: "f.gpx",
			want:     "Planned",
		},
		{
			name: "route name ignored when a track exists",
			content: `<gpx><metadata><name>Meta</name></metadata>
				<trk><trkseg><trkpt lat="1" lon="2"/></trkseg></trk>
				<rte><name>Planned</name><rtept lat="3" lon="4"/></rte></gpx>`,
			fallback: "f.gpx",
			want:     "Meta",
		},
		{
			name:     "fallback stripped of extension",
			content:  `<gpx><trk><trkseg><trkpt lat="1" lon="2"/></trkseg></trk></gpx>`,
			fallback: "morning-run.gpx",
			want:     "morning-run",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Decode([]byte(tc.content), tc.fallback)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if r.Name != tc.want {
				t.Errorf("name = %q, want %q", r.Name, tc.want)
			}
		})
	}
}

// TestDecodePointFiltering covers the silent-drop rules: malformed
// coordinates disappear without failing the file, non-numeric elevations
// are ignored, and extra tracks do not contribute points.
func TestDecodePointFiltering(t *testing.T) {
	content := `<gpx>
	<trk><trkseg>
		<trkpt lat="46.0" lon="9.0"/>
		<trkpt lat="oops" lon="9.1"/>
		<trkpt lat="46.2"/>
		<trkpt lat="46.3" lon="9.3"><ele>high</ele></trkpt>
	</trkseg></trk>
	<trk><trkseg><trkpt lat="50.0" lon="10.0"/></trkseg></trk>
	</gpx>`

	r, err := Decode([]byte(content), "f.gpx")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(r.Coordinates) != 2 {
		t.Fatalf("coordinates = %d, want 2 (malformed points dropped, second track ignored)", len(r.Coordinates))
	}
	if r.ElevationValid {
		t.Error("non-numeric elevation must not be collected")
	}
}

// TestDecodeRouteFallback verifies that an empty first track falls back to
// the first route element's points.
func TestDecodeRouteFallback(t *testing.T) {
	content := `<gpx>
	<trk><trkseg></trkseg></trk>
	<rte>
		<rtept lat="46.0" lon="9.0"><ele>55</ele></rtept>
		<rtept lat="46.5" lon="9.5"/>
	</rte>
	</gpx>`

	r, err := Decode([]byte(content), "f.gpx")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(r.Coordinates) != 2 {
		t.Fatalf("coordinates = %d, want 2 from the route element", len(r.Coordinates))
	}
	if !r.ElevationValid || r.ElevationMax != 55 {
		t.Errorf("elevation = (%v, %v), want (55, true)", r.ElevationMax, r.ElevationValid)
	}
}

// TestDecodeErrors distinguishes the two failure shapes: malformed XML is
// a *ParseError, zero usable points is the sentinel ErrNoRoute.
func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte("<gpx><trk>"), "f.gpx"); err == nil {
		t.Fatal("truncated XML must fail")
	} else {
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %T, want *ParseError", err)
		}
	}

	if _, err := Decode([]byte("<gpx><trk><trkseg/></trk></gpx>"), "f.gpx"); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("error = %v, want ErrNoRoute", err)
	}
}

// TestDecodeDeterministic ensures decoding the same bytes twice yields the
// same geometry and distance; only the generated ID may differ.
func TestDecodeDeterministic(t *testing.T) {
	a, err := Decode([]byte(trackWithMetadata), "f.gpx")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b, err := Decode([]byte(trackWithMetadata), "f.gpx")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if a.DistanceMeters != b.DistanceMeters {
		t.Errorf("distance differs between runs: %f vs %f", a.DistanceMeters, b.DistanceMeters)
	}
	if len(a.Coordinates) != len(b.Coordinates) {
		t.Errorf("coordinate count differs: %d vs %d", len(a.Coordinates), len(b.Coordinates))
	}
	if a.ID == b.ID {
		t.Error("IDs must be unique per decode")
	}
}

// TestHaversineMeters checks the distance math against known city pairs
// and the degenerate same-point case.
func TestHaversineMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64 // meters
	}{
		{"same point", 46.0, 9.0, 46.0, 9.0, 0},
		{"Berlin TV tower to Brandenburg Gate", 52.5208, 13.4094, 52.5163, 13.3777, 2200},
		{"New York to Los Angeles", 40.7128, -74.0060, 34.0522, -118.2437, 3940000},
	}
	for _, tc := range tests {
		got := HaversineMeters(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
		if tc.want == 0 {
			if got != 0 {
				t.Errorf("%s: got %f, want exactly 0", tc.name, got)
			}
			continue
		}
		if math.Abs(got-tc.want) > tc.want*0.05 {
			t.Errorf("%s: got %f, want about %f", tc.name, got, tc.want)
		}
	}
}

// TestPathDistanceMeters covers the empty and single-point sequences that
// must report zero distance.
func TestPathDistanceMeters(t *testing.T) {
	if d := PathDistanceMeters(nil); d != 0 {
		t.Errorf("empty path distance = %f, want 0", d)
	}
	if d := PathDistanceMeters([][2]float64{{9, 46}}); d != 0 {
		t.Errorf("single point distance = %f, want 0", d)
	}
}

// TestNewID guards the identifier shape and per-call uniqueness.
func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 10 {
			t.Fatalf("NewID length = %d, want 10", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}
