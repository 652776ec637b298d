package summary

import (
	"testing"

	"gpx-route-map/pkg/gpxfile"
)

// TestSummarize folds a mixed selection: distances add up, the elevation
// maximum only considers routes that actually carried elevation data.
func TestSummarize(t *testing.T) {
	selected := []gpxfile.Route{
		{ID: "a", DistanceMeters: 1200, ElevationMax: 900, ElevationValid: true},
		{ID: "b", DistanceMeters: 300},
		{ID: "c", DistanceMeters: 0, ElevationMax: 2500, ElevationValid: true},
	}

	st := Summarize(selected)
	if st.Count != 3 {
		t.Errorf("count = %d, want 3", st.Count)
	}
	if st.TotalDistanceMeters != 1500 {
		t.Errorf("total distance = %f, want 1500", st.TotalDistanceMeters)
	}
	if st.MaxElevationMeters != 2500 {
		t.Errorf("max elevation = %f, want 2500", st.MaxElevationMeters)
	}

	if st := Summarize(nil); st.Count != 0 || st.TotalDistanceMeters != 0 || st.MaxElevationMeters != 0 {
		t.Errorf("empty selection summary = %+v, want zeros", st)
	}
}

// TestSummarizeIgnoresInvalidElevation makes sure an ElevationMax value
// without its validity flag never wins the comparison.
func TestSummarizeIgnoresInvalidElevation(t *testing.T) {
	st := Summarize([]gpxfile.Route{{ID: "a", ElevationMax: 999, ElevationValid: false}})
	if st.MaxElevationMeters != 0 {
		t.Errorf("max elevation = %f, want 0 for invalid data", st.MaxElevationMeters)
	}
}

// TestFormatDistance locks the presentation rule the UI and the tests
// both rely on: km with one decimal from 1000 m, whole meters below,
// N/A for zero.
func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{0, NotAvailable},
		{500, "500 m"},
		{999, "999 m"},
		{1000, "1.0 km"},
		{1500, "1.5 km"},
		{12345, "12.3 km"},
	}
	for _, tc := range tests {
		if got := FormatDistance(tc.meters); got != tc.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tc.meters, got, tc.want)
		}
	}
}

func TestFormatElevation(t *testing.T) {
	if got := FormatElevation(0); got != NotAvailable {
		t.Errorf("FormatElevation(0) = %q, want %q", got, NotAvailable)
	}
	if got := FormatElevation(1873.4); got != "1873 m" {
		t.Errorf("FormatElevation(1873.4) = %q, want \"1873 m\"", got)
	}
}
