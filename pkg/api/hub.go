package api

import (
	"context"
	"sync/atomic"

	"gpx-route-map/pkg/mapsync"
)

// Op is one map instruction sent to connected browsers over SSE. The
// browser page applies these verbatim; it holds no logic of its own.
type Op struct {
	Op          string       `json:"op"` // addLayer, removeLayer, fitBounds, state
	ID          string       `json:"id,omitempty"`
	Color       string       `json:"color,omitempty"`
	Coordinates [][2]float64 `json:"coordinates,omitempty"` // lon, lat
	Bounds      *BoundsView  `json:"bounds,omitempty"`
	Padding     int          `json:"padding,omitempty"`
	MaxZoom     float64      `json:"maxZoom,omitempty"`
	DurationMs  int64        `json:"durationMs,omitempty"`
	State       *StateView   `json:"state,omitempty"`
}

// BoundsView mirrors mapsync.Bounds with JSON field names.
type BoundsView struct {
	MinLon float64 `json:"minLon"`
	MinLat float64 `json:"minLat"`
	MaxLon float64 `json:"maxLon"`
	MaxLat float64 `json:"maxLat"`
}

type subscription struct {
	ch chan Op
}

// Hub fans map operations out to every connected browser and doubles as
// the renderer's Surface: the map is "ready" once at least one browser is
// listening. Producers and consumers stay decoupled through channels so a
// slow client never blocks the store goroutine.
type Hub struct {
	publish     chan Op
	subscribe   chan subscription
	unsubscribe chan subscription
	notifyReady chan func()
	ready       atomic.Bool

	// OnSubscribe runs (on its own goroutine) every time a client
	// connects, so the server can replay the current layer set to late
	// joiners. Set before Run; typically store.Resync.
	OnSubscribe func()
}

// NewHub constructs the hub; call Run to start the fan-out loop.
func NewHub() *Hub {
	return &Hub{
		publish:     make(chan Op, 64),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		notifyReady: make(chan func(), 4),
	}
}

// Run owns the subscriber set until ctx ends. Readiness callbacks fire on
// the 0→1 subscriber transition; per-subscriber sends are non-blocking
// because the periodic resync heals any missed operation.
func (h *Hub) Run(ctx context.Context) {
	var listeners []subscription
	var pendingReady []func()

	for {
		select {
		case <-ctx.Done():
			return

		case sub := <-h.subscribe:
			wasEmpty := len(listeners) == 0
			listeners = append(listeners, sub)
			h.ready.Store(true)
			if wasEmpty {
				for _, fn := range pendingReady {
					go fn()
				}
				pendingReady = nil
			}
			if h.OnSubscribe != nil {
				go h.OnSubscribe()
			}

		case sub := <-h.unsubscribe:
			kept := listeners[:0]
			for _, l := range listeners {
				if l.ch != sub.ch {
					kept = append(kept, l)
				}
			}
			listeners = kept
			if len(listeners) == 0 {
				h.ready.Store(false)
			}

		case fn := <-h.notifyReady:
			if len(listeners) > 0 {
				go fn()
			} else {
				pendingReady = append(pendingReady, fn)
			}

		case op := <-h.publish:
			for _, l := range listeners {
				select {
				case l.ch <- op:
				default:
				}
			}
		}
	}
}

// Subscribe registers a browser connection. The returned channel closes
// when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, buffer int) <-chan Op {
	ch := make(chan Op, buffer)
	sub := subscription{ch: ch}
	h.subscribe <- sub

	go func() {
		<-ctx.Done()
		h.unsubscribe <- sub
		close(ch)
	}()

	return ch
}

// Broadcast queues an operation for every listener.
func (h *Hub) Broadcast(op Op) {
	h.publish <- op
}

// BroadcastState pushes the latest display records and summary.
func (h *Hub) BroadcastState(state StateView) {
	h.Broadcast(Op{Op: "state", State: &state})
}

// --- mapsync.Surface ---------------------------------------------------

// AddLineLayer instructs clients to create the geometry source and line
// layer for one route. Clients apply the fixed line style (rounded joins
// and caps, full opacity).
func (h *Hub) AddLineLayer(id string, coords [][2]float64, color string) {
	h.Broadcast(Op{Op: "addLayer", ID: id, Coordinates: coords, Color: color})
}

// RemoveLineLayer instructs clients to detach the layer, then drop its
// backing source.
func (h *Hub) RemoveLineLayer(id string) {
	h.Broadcast(Op{Op: "removeLayer", ID: id})
}

// FitBounds animates every client camera to the given box.
func (h *Hub) FitBounds(b mapsync.Bounds, opts mapsync.FitOptions) {
	h.Broadcast(Op{
		Op:         "fitBounds",
		Bounds:     &BoundsView{MinLon: b.MinLon, MinLat: b.MinLat, MaxLon: b.MaxLon, MaxLat: b.MaxLat},
		Padding:    opts.Padding,
		MaxZoom:    opts.MaxZoom,
		DurationMs: opts.Duration.Milliseconds(),
	})
}

// Ready reports whether at least one browser is connected.
func (h *Hub) Ready() bool { return h.ready.Load() }

// NotifyReady registers a one-shot callback for the moment the first
// browser connects. Fires immediately when already ready.
func (h *Hub) NotifyReady(fn func()) {
	h.notifyReady <- fn
}
