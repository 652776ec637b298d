// Package routestore owns the ordered route collection and the selection
// set. A single goroutine processes mutation commands from a channel, so
// no locks are needed and every mutation is immediately followed by a full
// projection of the new state — the renderer and the analytics view can
// never observe a half-applied change.
package routestore

import (
	"gpx-route-map/pkg/gpxfile"
)

// Palette is the fixed rotation of display colors. A route's color is
// derived from its current position in the store, not from its identity,
// so removing a route shifts the colors of everything after it.
var Palette = []string{
	"#e6194b", // red
	"#3cb44b", // green
	"#4363d8", // blue
	"#f58231", // orange
	"#911eb4", // purple
	"#42d4f4", // cyan
}

// CameraMode tells the projection whether this pass may move the camera.
type CameraMode int

const (
	// CameraFit frames all rendered coordinates after the layers settle.
	CameraFit CameraMode = iota
	// CameraHold keeps the current camera. Used for the intermediate
	// projections inside a batch load so N files cost one animation.
	CameraHold
)

// Entry pairs a stored route with its selection flag and positional color.
type Entry struct {
	Route    gpxfile.Route
	Color    string
	Selected bool
}

// Snapshot is an immutable copy of the store state handed to projections
// and queries.
type Snapshot struct {
	Entries []Entry
}

// Selected returns the selected routes in stored order.
func (s Snapshot) Selected() []gpxfile.Route {
	var out []gpxfile.Route
	for _, e := range s.Entries {
		if e.Selected {
			out = append(out, e.Route)
		}
	}
	return out
}

// Projection receives the state after every mutation. It runs on the
// store goroutine, so implementations must not call back into the store.
type Projection func(snap Snapshot, camera CameraMode)

type cmdKind int

const (
	cmdAdd cmdKind = iota
	cmdRemove
	cmdToggle
	cmdResync
)

type command struct {
	kind   cmdKind
	routes []gpxfile.Route
	id     string
	done   chan struct{}
}

// Store is the single source of truth for loaded routes. Construct with
// New; the command loop lives for the whole process, mirroring the
// page-session lifetime of the original collection.
type Store struct {
	commands chan command
	queries  chan chan Snapshot
	project  Projection
}

// New starts the store goroutine. project may be nil when no downstream
// consumers exist (tests of the bare store).
func New(project Projection) *Store {
	s := &Store{
		commands: make(chan command),
		queries:  make(chan chan Snapshot),
		project:  project,
	}
	go s.run()
	return s
}

// AddRoutes appends a decoded batch in upload order, selecting every
// route. Intermediate projections hold the camera; one final projection
// with camera fit follows after the whole batch is committed. The call
// returns once that final projection has run.
func (s *Store) AddRoutes(routes []gpxfile.Route) {
	s.do(command{kind: cmdAdd, routes: routes})
}

// RemoveRoute deletes the route with the given ID from both the sequence
// and the selection set. Unknown IDs are a no-op.
func (s *Store) RemoveRoute(id string) {
	s.do(command{kind: cmdRemove, id: id})
}

// ToggleSelection flips the selection flag of a stored route. Unknown IDs
// are ignored rather than rejected; the UI is the only caller and a stale
// click must not crash anything.
func (s *Store) ToggleSelection(id string) {
	s.do(command{kind: cmdToggle, id: id})
}

// Resync replays the current state through the projection with a camera
// fit. Used when a new map client connects and needs the full layer set.
func (s *Store) Resync() {
	s.do(command{kind: cmdResync})
}

// Snapshot returns a copy of the current state without mutating anything.
func (s *Store) Snapshot() Snapshot {
	reply := make(chan Snapshot)
	s.queries <- reply
	return <-reply
}

func (s *Store) do(c command) {
	c.done = make(chan struct{})
	s.commands <- c
	<-c.done
}

func (s *Store) run() {
	var routes []gpxfile.Route
	selected := make(map[string]bool)

	snapshot := func() Snapshot {
		entries := make([]Entry, len(routes))
		for i, r := range routes {
			entries[i] = Entry{
				Route:    r,
				Color:    Palette[i%len(Palette)],
				Selected: selected[r.ID],
			}
		}
		return Snapshot{Entries: entries}
	}

	emit := func(camera CameraMode) {
		if s.project != nil {
			s.project(snapshot(), camera)
		}
	}

	for {
		select {
		case reply := <-s.queries:
			reply <- snapshot()

		case c := <-s.commands:
			switch c.kind {
			case cmdAdd:
				for _, r := range c.routes {
					routes = append(routes, r)
					selected[r.ID] = true
					emit(CameraHold)
				}
				if len(c.routes) > 0 {
					// Batch committed; the single camera-fit pass is
					// its own step so layer additions settle first.
					emit(CameraFit)
				}

			case cmdRemove:
				idx := -1
				for i, r := range routes {
					if r.ID == c.id {
						idx = i
						break
					}
				}
				if idx >= 0 {
					routes = append(routes[:idx], routes[idx+1:]...)
					delete(selected, c.id)
					emit(CameraFit)
				}

			case cmdToggle:
				known := false
				for _, r := range routes {
					if r.ID == c.id {
						known = true
						break
					}
				}
				if known {
					selected[c.id] = !selected[c.id]
					emit(CameraFit)
				}

			case cmdResync:
				emit(CameraFit)
			}
			close(c.done)
		}
	}
}
