// Package mapsync converges an abstract map surface onto the current
// route store state. The renderer never patches layers incrementally: it
// removes everything it added last pass and rebuilds, which makes Sync
// idempotent and immune to drift between the store and the map.
package mapsync

import (
	"sync"
	"time"

	"gpx-route-map/pkg/routestore"
)

// Bounds is a geographic bounding box over lon/lat coordinates.
type Bounds struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// Extend grows the box to include one coordinate.
func (b *Bounds) Extend(lon, lat float64) {
	if lon < b.MinLon {
		b.MinLon = lon
	}
	if lon > b.MaxLon {
		b.MaxLon = lon
	}
	if lat < b.MinLat {
		b.MinLat = lat
	}
	if lat > b.MaxLat {
		b.MaxLat = lat
	}
}

func emptyBounds() Bounds {
	return Bounds{MinLon: 180, MinLat: 90, MaxLon: -180, MaxLat: -90}
}

// FitOptions controls the camera animation when framing rendered routes.
type FitOptions struct {
	Padding  int           // pixels around the box
	MaxZoom  float64       // cap so a short route does not over-zoom
	Duration time.Duration // eased transition length
}

// DefaultFit is the fixed framing used after every sync that may move the
// camera.
var DefaultFit = FitOptions{Padding: 48, MaxZoom: 15, Duration: 800 * time.Millisecond}

// Surface is the map boundary: a named vector line layer per route plus a
// camera. Implementations pair each line layer with its backing geometry
// source and must detach the layer before the source on removal.
type Surface interface {
	AddLineLayer(id string, coords [][2]float64, color string)
	RemoveLineLayer(id string)
	FitBounds(b Bounds, opts FitOptions)

	// Ready reports whether the rendering surface can accept layers.
	Ready() bool
	// NotifyReady registers a one-shot callback fired when the surface
	// becomes ready.
	NotifyReady(fn func())
}

type pendingSync struct {
	snap   routestore.Snapshot
	camera routestore.CameraMode
}

// Renderer tracks which layer IDs it added so the next pass can remove
// exactly those. It is called from the store goroutine and from the
// surface readiness callback, hence the mutex.
type Renderer struct {
	mu       sync.Mutex
	surface  Surface
	fit      FitOptions
	tracked  []string
	pending  *pendingSync
	retrying bool
}

// NewRenderer builds a renderer over the given surface using DefaultFit.
func NewRenderer(surface Surface) *Renderer {
	return &Renderer{surface: surface, fit: DefaultFit}
}

// Sync converges the surface to the snapshot: one line layer per selected
// route with at least one coordinate, colored positionally. When camera
// is CameraFit and anything was rendered, the camera animates to the
// bounding box of all rendered coordinates.
//
// If the surface is not ready yet, the snapshot is parked and exactly one
// readiness callback is registered; the latest parked snapshot wins when
// the surface comes up.
func (r *Renderer) Sync(snap routestore.Snapshot, camera routestore.CameraMode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.surface.Ready() {
		r.pending = &pendingSync{snap: snap, camera: camera}
		if !r.retrying {
			r.retrying = true
			r.surface.NotifyReady(r.flushPending)
		}
		return
	}
	// A direct apply supersedes any snapshot parked earlier; a readiness
	// callback still in flight must not replay pre-apply state.
	r.pending = nil
	r.apply(snap, camera)
}

// flushPending replays the newest parked sync once the surface is ready.
func (r *Renderer) flushPending() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.retrying = false
	if r.pending == nil {
		return
	}
	p := r.pending
	r.pending = nil
	r.apply(p.snap, p.camera)
}

// LayerIDs returns the layer IDs added by the last pass, in render order.
func (r *Renderer) LayerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.tracked))
	copy(out, r.tracked)
	return out
}

func (r *Renderer) apply(snap routestore.Snapshot, camera routestore.CameraMode) {
	for _, id := range r.tracked {
		r.surface.RemoveLineLayer(id)
	}
	r.tracked = r.tracked[:0]

	bounds := emptyBounds()
	rendered := 0
	for _, e := range snap.Entries {
		if !e.Selected || len(e.Route.Coordinates) == 0 {
			continue
		}
		r.surface.AddLineLayer(e.Route.ID, e.Route.Coordinates, e.Color)
		r.tracked = append(r.tracked, e.Route.ID)
		for _, c := range e.Route.Coordinates {
			bounds.Extend(c[0], c[1])
			rendered++
		}
	}

	if camera == routestore.CameraFit && rendered > 0 {
		r.surface.FitBounds(bounds, r.fit)
	}
}
