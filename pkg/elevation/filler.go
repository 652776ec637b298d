// Package elevation backfills the elevation maximum of routes whose GPX
// source carried no <ele> data, using the public SRTM tiles.
package elevation

import (
	"fmt"
	"net/http"

	"github.com/tkrajina/go-elevations/geoelevations"

	"gpx-route-map/pkg/gpxfile"
)

// Lookup resolves the terrain elevation of one coordinate. Satisfied by
// *geoelevations.Srtm; tests substitute a table.
type Lookup interface {
	GetElevation(client *http.Client, latitude, longitude float64) (float64, error)
}

// Filler queries a Lookup for every coordinate of a route and records the
// maximum. It is an optional enrichment: any lookup failure leaves the
// route untouched and is reported to the caller for logging only.
type Filler struct {
	lookup Lookup
	client *http.Client
}

// New builds a Filler backed by the SRTM dataset.
func New(client *http.Client) (*Filler, error) {
	if client == nil {
		client = http.DefaultClient
	}
	srtm, err := geoelevations.NewSrtm(client)
	if err != nil {
		return nil, fmt.Errorf("elevation: srtm init: %w", err)
	}
	return &Filler{lookup: srtm, client: client}, nil
}

// NewWithLookup wires a custom Lookup, used by tests.
func NewWithLookup(lookup Lookup) *Filler {
	return &Filler{lookup: lookup, client: http.DefaultClient}
}

// Fill sets ElevationMax on routes that have none. Routes that already
// carry elevation data are left exactly as decoded.
func (f *Filler) Fill(r *gpxfile.Route) error {
	if r.ElevationValid || len(r.Coordinates) == 0 {
		return nil
	}

	var max float64
	found := false
	for _, c := range r.Coordinates {
		ele, err := f.lookup.GetElevation(f.client, c[1], c[0])
		if err != nil {
			return fmt.Errorf("elevation: lookup %f,%f: %w", c[1], c[0], err)
		}
		if !found || ele > max {
			max = ele
			found = true
		}
	}
	if found {
		r.ElevationMax = max
		r.ElevationValid = true
	}
	return nil
}
