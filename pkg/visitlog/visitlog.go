// Package visitlog keeps lightweight daily usage counters (page views,
// upload batches, routes added) in an embedded SQLite file. Routes
// themselves are never persisted; the map content always starts fresh.
//
// Handlers publish events into a channel and a single worker goroutine
// owns the database writes, so request paths never block on IO.
package visitlog

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

type eventKind int

const (
	eventPageView eventKind = iota
	eventUploadBatch
	eventFlush
)

type event struct {
	kind  eventKind
	files int
	added int
	done  chan struct{} // for eventFlush
}

// Totals aggregates the counters over all recorded days.
type Totals struct {
	PageViews     int64 `json:"pageViews"`
	UploadBatches int64 `json:"uploadBatches"`
	RoutesAdded   int64 `json:"routesAdded"`
}

// Service owns the counters database. Construct with Open, then Start.
type Service struct {
	db     *sql.DB
	events chan event
	logf   func(string, ...any)
	clock  func() time.Time
}

// Open connects to the SQLite file at path (":memory:" works for tests)
// and prepares the schema. logf is optional.
func Open(path string, logf func(string, ...any)) (*Service, error) {
	if logf == nil {
		logf = log.Printf
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("visitlog: open %s: %w", path, err)
	}
	// The worker goroutine is the only writer.
	db.SetMaxOpenConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS visits (
		day TEXT PRIMARY KEY,
		page_views INTEGER NOT NULL DEFAULT 0,
		upload_batches INTEGER NOT NULL DEFAULT 0,
		routes_added INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("visitlog: schema: %w", err)
	}

	return &Service{
		db:     db,
		events: make(chan event, 256),
		logf:   logf,
		clock:  time.Now,
	}, nil
}

// Start launches the worker. It drains events until ctx ends.
func (s *Service) Start(ctx context.Context) {
	if s == nil {
		return
	}
	go s.run(ctx)
}

// PageView records one page view. Never blocks; bursts beyond the buffer
// are dropped rather than stalling a request.
func (s *Service) PageView() {
	if s == nil {
		return
	}
	select {
	case s.events <- event{kind: eventPageView}:
	default:
	}
}

// UploadBatch records one processed upload batch and how many routes it
// contributed.
func (s *Service) UploadBatch(files, added int) {
	if s == nil {
		return
	}
	select {
	case s.events <- event{kind: eventUploadBatch, files: files, added: added}:
	default:
	}
}

// Flush blocks until every event published before it has been written.
func (s *Service) Flush() {
	if s == nil {
		return
	}
	done := make(chan struct{})
	s.events <- event{kind: eventFlush, done: done}
	<-done
}

// Totals sums the daily counters. Reads go straight to the database; the
// sql.DB handle is safe for concurrent use with the worker.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	if s == nil {
		return t, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(page_views), 0),
		COALESCE(SUM(upload_batches), 0),
		COALESCE(SUM(routes_added), 0)
		FROM visits`)
	if err := row.Scan(&t.PageViews, &t.UploadBatches, &t.RoutesAdded); err != nil {
		return t, fmt.Errorf("visitlog: totals: %w", err)
	}
	return t, nil
}

// Close releases the database handle.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Service) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			switch ev.kind {
			case eventFlush:
				close(ev.done)
				continue
			case eventPageView:
				s.bump(ctx, 1, 0, 0)
			case eventUploadBatch:
				s.bump(ctx, 0, 1, ev.added)
			}
		}
	}
}

func (s *Service) bump(ctx context.Context, views, batches, added int) {
	day := s.clock().UTC().Format("2006-01-02")
	_, err := s.db.ExecContext(ctx, `INSERT INTO visits (day, page_views, upload_batches, routes_added)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			page_views = page_views + excluded.page_views,
			upload_batches = upload_batches + excluded.upload_batches,
			routes_added = routes_added + excluded.routes_added`,
		day, views, batches, added)
	if err != nil {
		s.logf("visitlog: write failed: %v", err)
	}
}
