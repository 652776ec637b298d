package visitlog

import (
	"context"
	"testing"
)

// TestCounters records a few events against an in-memory database and
// checks the aggregated totals.
func TestCounters(t *testing.T) {
	svc, err := Open(":memory:", t.Logf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	svc.PageView()
	svc.PageView()
	svc.UploadBatch(3, 2)
	svc.Flush()

	totals, err := svc.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.PageViews != 2 {
		t.Errorf("page views = %d, want 2", totals.PageViews)
	}
	if totals.UploadBatches != 1 {
		t.Errorf("upload batches = %d, want 1", totals.UploadBatches)
	}
	if totals.RoutesAdded != 2 {
		t.Errorf("routes added = %d, want 2", totals.RoutesAdded)
	}
}

// TestNilService ensures the disabled configuration (no -visit-db flag)
// is safe to call everywhere without nil checks at call sites.
func TestNilService(t *testing.T) {
	var svc *Service
	svc.PageView()
	svc.UploadBatch(1, 1)
	svc.Start(context.Background())
	if totals, err := svc.Totals(context.Background()); err != nil || totals != (Totals{}) {
		t.Errorf("nil service totals = %+v, %v", totals, err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("nil service close: %v", err)
	}
}
