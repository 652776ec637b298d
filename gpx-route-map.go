// gpx-route-map serves an interactive route map: upload GPX files, toggle
// routes on and off, watch the camera follow the selection, and read the
// aggregate distance and elevation figures.
//
// Map state lives in one in-memory store owned by a single goroutine;
// every mutation is projected to connected browsers over Server-Sent
// Events, so the page itself stays a dumb display.
package main

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"runtime"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"gpx-route-map/pkg/api"
	"gpx-route-map/pkg/elevation"
	"gpx-route-map/pkg/gpxfile"
	"gpx-route-map/pkg/mapsync"
	"gpx-route-map/pkg/routestore"
	"gpx-route-map/pkg/visitlog"
)

//go:embed public_html/* samples/*
var content embed.FS

var domain = flag.String("domain", "", "Use 80 and 443 ports. Automatic HTTPS cert via Let's Encrypt.")
var port = flag.Int("port", 8765, "Port for running the server")
var version = flag.Bool("version", false, "Show the application version")
var defaultLat = flag.Float64("default-lat", 50.08804, "Default map latitude")
var defaultLon = flag.Float64("default-lon", 14.42076, "Default map longitude")
var defaultZoom = flag.Int("default-zoom", 12, "Default map zoom")
var srtmEnabled = flag.Bool("srtm", false, "Backfill missing elevations from the public SRTM dataset")
var visitDBPath = flag.String("visit-db", "", "Path to the sqlite file for visit counters (empty disables them)")
var noSamples = flag.Bool("no-samples", false, "Skip loading the bundled sample routes on startup")

// CompileVersion is stamped by the build script via -ldflags.
var CompileVersion = "dev"

// withServerHeader wraps any http.Handler, adding the header
// "Server: gpx-route-map/<CompileVersion>".
//
// A HEAD request to "/" answers 200 OK without a body so probes can
// see the service is alive.
func withServerHeader(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "gpx-route-map/"+CompileVersion)

		if r.Method == http.MethodHead && r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// serveWithDomain runs:
//   - :80  — ACME HTTP-01 + 301 redirect to https://<domain>/…
//   - :443 — HTTPS with automatic Let's Encrypt certificates.
//
// When autocert cannot issue a cert for a host/SNI, the server still
// hands out the previously obtained fallback cert instead of failing
// the handshake. All errors are logged only.
func serveWithDomain(domain string, handler http.Handler) {
	certMgr := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
		Cache:  autocert.DirCache("certs"),
		HostPolicy: func(ctx context.Context, host string) error {
			if host == domain || host == "www."+domain {
				return nil
			}
			// An IP address is not blocked; we just never request a cert for it.
			if net.ParseIP(host) != nil {
				return nil
			}
			return errors.New("acme/autocert: host not configured")
		},
	}

	// :80 — challenge endpoint plus redirect.
	go func() {
		mux80 := http.NewServeMux()
		mux80.Handle("/.well-known/acme-challenge/", certMgr.HTTPHandler(nil))
		mux80.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			target := "https://" + domain + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusMovedPermanently)
		})

		log.Printf("HTTP  server (ACME+redirect) ➜ :80")
		if err := (&http.Server{
			Addr:              ":80",
			Handler:           mux80,
			ReadHeaderTimeout: 10 * time.Second,
		}).ListenAndServe(); err != nil {
			log.Printf("HTTP  server error: %v", err)
		}
	}()

	// Daily certificate renewal check.
	go func() {
		t := time.NewTicker(24 * time.Hour)
		defer t.Stop()
		for range t.C {
			if _, err := certMgr.GetCertificate(&tls.ClientHelloInfo{ServerName: domain}); err != nil {
				log.Printf("autocert renewal check: %v", err)
			}
		}
	}()

	// :443 — HTTPS.
	tlsCfg := certMgr.TLSConfig()
	tlsCfg.MinVersion = tls.VersionTLS10
	tlsCfg.NextProtos = append([]string{"http/1.0"}, tlsCfg.NextProtos...)

	// Fallback certificate for IPs and odd SNI values.
	var defaultCert *tls.Certificate
	go func() {
		for defaultCert == nil {
			if c, err := certMgr.GetCertificate(&tls.ClientHelloInfo{ServerName: domain}); err == nil {
				defaultCert = c
			}
			time.Sleep(time.Minute)
		}
	}()
	tlsCfg.GetCertificate = func(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
		c, err := certMgr.GetCertificate(chi)
		if err == nil {
			return c, nil
		}
		if defaultCert != nil {
			return defaultCert, nil
		}
		return nil, err
	}

	log.Printf("HTTPS server ➜ :443 (domain %s)", domain)
	srv := &http.Server{
		Addr:              ":443",
		Handler:           handler,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServeTLS("", ""); err != nil {
		log.Printf("HTTPS server error: %v", err)
	}
}

// loadSamples decodes the bundled example routes and adds them as one
// batch, so a fresh install shows something on the map right away. A
// missing or undecodable sample is logged and skipped.
func loadSamples(store *routestore.Store) {
	entries, err := fs.ReadDir(content, "samples")
	if err != nil {
		log.Printf("samples: %v", err)
		return
	}

	var routes []gpxfile.Route
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := fs.ReadFile(content, "samples/"+entry.Name())
		if err != nil {
			log.Printf("samples: read %s: %v", entry.Name(), err)
			continue
		}
		route, err := gpxfile.Decode(data, entry.Name())
		if err != nil {
			log.Printf("samples: decode %s: %v", entry.Name(), err)
			continue
		}
		routes = append(routes, route)
	}

	store.AddRoutes(routes)
	log.Printf("samples: loaded %d bundled routes", len(routes))
}

func main() {
	// 1. Flags and version.
	flag.Parse()

	if *version {
		fmt.Printf("gpx-route-map version %s\n", CompileVersion)
		return
	}

	// 2. Privilege warning for :80 / :443.
	if *domain != "" && runtime.GOOS != "windows" && os.Geteuid() != 0 {
		log.Println("⚠  Binding to :80 / :443 requires super-user rights; run with sudo or as root.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Optional services.
	var visits *visitlog.Service
	if *visitDBPath != "" {
		var err error
		visits, err = visitlog.Open(*visitDBPath, log.Printf)
		if err != nil {
			log.Fatalf("visit counters: %v", err)
		}
		visits.Start(ctx)
		defer visits.Close()
	}

	var filler *elevation.Filler
	if *srtmEnabled {
		var err error
		filler, err = elevation.New(&http.Client{Timeout: 30 * time.Second})
		if err != nil {
			log.Fatalf("srtm: %v", err)
		}
	}

	// 4. Store, renderer and the SSE hub. The hub IS the map surface:
	// it becomes ready once the first browser subscribes, and the
	// renderer replays the full layer set through it on every resync.
	hub := api.NewHub()
	renderer := mapsync.NewRenderer(hub)
	store := routestore.New(func(snap routestore.Snapshot, camera routestore.CameraMode) {
		renderer.Sync(snap, camera)
		hub.BroadcastState(api.BuildState(snap))
	})
	hub.OnSubscribe = store.Resync
	go hub.Run(ctx)

	if !*noSamples {
		loadSamples(store)
	}

	// 5. Routes and static files.
	staticFS, err := fs.Sub(content, "public_html")
	if err != nil {
		log.Fatalf("static fs: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/",
		http.FileServer(http.FS(staticFS))))

	handler := &api.Handler{
		Store:   store,
		Hub:     hub,
		Visits:  visits,
		Filler:  filler,
		Limiter: api.NewRateLimiter(2 * time.Second),
		Content: content,
		Page: api.PageData{
			DefaultLat:  *defaultLat,
			DefaultLon:  *defaultLon,
			DefaultZoom: *defaultZoom,
			Version:     CompileVersion,
		},
		Logf: log.Printf,
	}
	handler.Register(mux)

	rootHandler := withServerHeader(mux)

	// 6. HTTP/HTTPS servers.
	if *domain != "" {
		go serveWithDomain(*domain, rootHandler)
	} else {
		addr := fmt.Sprintf(":%d", *port)
		go func() {
			log.Printf("HTTP server ➜ http://localhost%s", addr)
			if err := http.ListenAndServe(addr, rootHandler); err != nil {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	// 7. Keep the main goroutine alive.
	select {}
}
