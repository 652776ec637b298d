// Package gpxfile decodes GPX track and route files into the Route model
// used by the rest of the application: an ordered coordinate sequence plus
// the derived distance and elevation figures.
package gpxfile

import (
	"errors"
	"fmt"
)

// Route is the decoded result of one GPX file. It is immutable once
// assembled; only the store tracks its membership and selection.
type Route struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Coordinates [][2]float64 `json:"coordinates"` // lon, lat pairs in original point order

	DistanceMeters float64 `json:"distanceMeters"`

	// ElevationMax is only meaningful when ElevationValid is set, which
	// happens when at least one point carried a numeric <ele>.
	ElevationMax   float64 `json:"elevationMax"`
	ElevationValid bool    `json:"elevationValid"`
}

// ErrNoRoute signals a well-formed GPX file with zero usable points.
// Callers skip such files instead of reporting them as broken.
var ErrNoRoute = errors.New("gpx: no usable route points")

// ParseError wraps the underlying XML error so the upload loop can tell
// "invalid file format" apart from the silent ErrNoRoute skip.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gpx: invalid file format: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
