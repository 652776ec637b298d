// Package api exposes the HTTP boundary: the map page, the upload intake,
// route commands, the GPX export, and the SSE stream feeding connected
// map clients.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"

	"gpx-route-map/pkg/elevation"
	"gpx-route-map/pkg/gpxexport"
	"gpx-route-map/pkg/gpxfile"
	"gpx-route-map/pkg/routestore"
	"gpx-route-map/pkg/uploadlog"
	"gpx-route-map/pkg/visitlog"
)

// PageData parameterizes the map template: the initial camera before any
// routes load, plus the build version shown in the footer.
type PageData struct {
	DefaultLat  float64
	DefaultLon  float64
	DefaultZoom int
	Version     string
}

// Handler wires the store, the SSE hub, and the optional services so the
// HTTP routes stay small translations between requests and commands.
type Handler struct {
	Store   *routestore.Store
	Hub     *Hub
	Visits  *visitlog.Service // nil when disabled
	Filler  *elevation.Filler // nil when disabled
	Limiter *RateLimiter      // nil grants everything immediately
	Content fs.FS             // holds public_html/map.html
	Page    PageData
	Logf    func(string, ...any)

	pageOnce sync.Once
	pageTmpl *template.Template
	pageErr  error
}

// pageTemplate parses the embedded map page on first use and caches the
// result for the life of the handler.
func (h *Handler) pageTemplate() (*template.Template, error) {
	h.pageOnce.Do(func() {
		h.pageTmpl, h.pageErr = template.ParseFS(h.Content, "public_html/map.html")
	})
	return h.pageTmpl, h.pageErr
}

// FileNotice is the per-file, user-visible outcome for files that were
// not added: wrong extension or unparseable content. Skipped-but-valid
// files (zero points) produce no notice.
type FileNotice struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// clientIP strips the port from RemoteAddr; the limiter keys on the host
// part only so one client's connections share a queue.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limit blocks until the client's turn. It reports false when the client
// went away while waiting.
func (h *Handler) limit(w http.ResponseWriter, r *http.Request, kind RequestKind) (*Permit, bool) {
	permit, err := h.Limiter.Acquire(r.Context(), clientIP(r), kind)
	if err != nil {
		http.Error(w, "request cancelled while queued", http.StatusServiceUnavailable)
		return nil, false
	}
	if permit != nil && permit.WaitNotice {
		h.logf("ratelimit: %s waited %s for %s", clientIP(r), permit.WaitDuration, r.URL.Path)
	}
	return permit, true
}

func (h *Handler) logf(format string, v ...any) {
	if h.Logf != nil {
		h.Logf(format, v...)
		return
	}
	log.Printf(format, v...)
}

// Register attaches all routes to the mux. Kept declarative on purpose:
// one line per URL, no clever routing.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleMap)
	mux.HandleFunc("/events", h.handleEvents)
	mux.HandleFunc("/upload", h.handleUpload)
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/routes/", h.handleRouteAction)
	mux.HandleFunc("/api/export.gpx", h.handleExport)
	mux.HandleFunc("/api/visits", h.handleVisits)
}

func (h *Handler) handleMap(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	tmpl, err := h.pageTemplate()
	if err != nil {
		h.logf("map template: %v", err)
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	h.Visits.PageView()
	if err := tmpl.Execute(w, h.Page); err != nil {
		h.logf("map template: %v", err)
	}
}

// handleEvents serves the SSE stream. Subscribing marks the map surface
// ready and triggers a full resync, so this client receives the complete
// current layer set.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	ctx := r.Context()
	ops := h.Hub.Subscribe(ctx, 256)

	fmt.Fprint(w, "event: hello\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case op, ok := <-ops:
			if !ok {
				return
			}
			payload, err := json.Marshal(op)
			if err != nil {
				h.logf("events: marshal: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// handleUpload processes a multipart batch. Failures are isolated per
// file: a wrong extension or broken XML produces a notice and the loop
// moves on; everything that decoded is committed to the store as one
// batch so the camera fits exactly once.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	permit, ok := h.limit(w, r, RequestHeavy)
	if !ok {
		return
	}
	defer permit.Release()

	if err := r.ParseMultipartForm(100 << 20); err != nil {
		http.Error(w, "multipart parse error", http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files[]"]
	if len(files) == 0 {
		http.Error(w, "no files selected", http.StatusBadRequest)
		return
	}

	batchID := gpxfile.NewID()
	uploadlog.Begin(batchID)
	uploadlog.Appendf(batchID, "[%-6s][Upload] ▶ start, total=%d", batchID, len(files))

	var routes []gpxfile.Route
	var notices []FileNotice

	for _, fh := range files {
		uploadlog.Appendf(batchID, "[%-6s][Upload] file received: %s", batchID, fh.Filename)

		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".gpx") {
			notices = append(notices, FileNotice{File: fh.Filename, Message: "unsupported file type, expected .gpx"})
			uploadlog.Appendf(batchID, "[%-6s][Upload] ✖ unsupported type: %s", batchID, fh.Filename)
			continue
		}

		f, err := fh.Open()
		if err != nil {
			notices = append(notices, FileNotice{File: fh.Filename, Message: "could not read file"})
			uploadlog.Appendf(batchID, "[%-6s][Upload] ✖ open %s: %v", batchID, fh.Filename, err)
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			notices = append(notices, FileNotice{File: fh.Filename, Message: "could not read file"})
			uploadlog.Appendf(batchID, "[%-6s][Upload] ✖ read %s: %v", batchID, fh.Filename, err)
			continue
		}

		route, err := gpxfile.Decode(data, fh.Filename)
		if err != nil {
			if errors.Is(err, gpxfile.ErrNoRoute) {
				// Well-formed but empty: skip silently, not an error.
				uploadlog.Appendf(batchID, "[%-6s][Decode] %s has no usable points, skipped", batchID, fh.Filename)
				continue
			}
			notices = append(notices, FileNotice{File: fh.Filename, Message: "invalid file format"})
			uploadlog.Appendf(batchID, "[%-6s][Decode] ✖ %s: %v", batchID, fh.Filename, err)
			continue
		}

		if h.Filler != nil {
			if err := h.Filler.Fill(&route); err != nil {
				// Enrichment only; the route is added either way.
				uploadlog.Appendf(batchID, "[%-6s][SRTM] %s: %v", batchID, fh.Filename, err)
			}
		}

		uploadlog.Appendf(batchID, "[%-6s][Decode] %s → %d points, %.0f m", batchID, fh.Filename, len(route.Coordinates), route.DistanceMeters)
		routes = append(routes, route)
	}

	h.Store.AddRoutes(routes)
	h.Visits.UploadBatch(len(files), len(routes))

	if len(notices) == 0 {
		uploadlog.Success(batchID, fmt.Sprintf("added %d of %d files", len(routes), len(files)))
	} else {
		uploadlog.FlushError(batchID, fmt.Errorf("added %d of %d files, %d rejected", len(routes), len(files), len(notices)))
	}

	h.respondJSON(w, struct {
		Status  string       `json:"status"`
		Added   int          `json:"added"`
		Notices []FileNotice `json:"notices,omitempty"`
		State   StateView    `json:"state"`
	}{
		Status:  "ok",
		Added:   len(routes),
		Notices: notices,
		State:   BuildState(h.Store.Snapshot()),
	})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, BuildState(h.Store.Snapshot()))
}

// handleRouteAction serves POST /api/routes/{id}/toggle and
// DELETE /api/routes/{id}. Unknown IDs are accepted quietly: the store
// treats them as no-ops and the handler answers with current state.
func (h *Handler) handleRouteAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/routes/")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(rest, "/toggle"):
		id := strings.TrimSuffix(rest, "/toggle")
		if id == "" {
			http.Error(w, "missing route id", http.StatusBadRequest)
			return
		}
		h.Store.ToggleSelection(id)

	case r.Method == http.MethodDelete && rest != "" && !strings.Contains(rest, "/"):
		h.Store.RemoveRoute(rest)

	default:
		http.Error(w, "unknown route action", http.StatusNotFound)
		return
	}

	h.respondJSON(w, BuildState(h.Store.Snapshot()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	permit, ok := h.limit(w, r, RequestHeavy)
	if !ok {
		return
	}
	defer permit.Release()

	selected := h.Store.Snapshot().Selected()
	data, err := gpxexport.Build(selected, "gpx-route-map/"+h.Page.Version)
	if err != nil {
		if errors.Is(err, gpxexport.ErrNothingSelected) {
			http.Error(w, "no routes selected", http.StatusBadRequest)
			return
		}
		h.logf("export: %v", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="routes.gpx"`)
	if _, err := w.Write(data); err != nil {
		h.logf("export write: %v", err)
	}
}

func (h *Handler) handleVisits(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Visits.Totals(r.Context())
	if err != nil {
		h.logf("visits: %v", err)
		http.Error(w, "visit totals unavailable", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, totals)
}

func (h *Handler) respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
