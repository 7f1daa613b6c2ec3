package knowledge_test

import (
	"context"
	"testing"

	"go.uber.org/goleak"

	"github.com/resolvo/resolvo/internal/knowledge"
	"github.com/resolvo/resolvo/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("github.com/testcontainers/testcontainers-go.(*Reaper).connect.func1"),
		goleak.IgnoreAnyFunction("internal/poll.runtime_pollWait"),
	)
}

func newTracker(t *testing.T) (*knowledge.Tracker, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	return knowledge.NewTracker(db.Pool), context.Background()
}

func TestTrackerChangeDetection(t *testing.T) {
	tracker, ctx := newTracker(t)

	const path = "/docs/returns.md"

	changed, err := tracker.Changed(ctx, path, "aaa", 100)
	if err != nil {
		t.Fatalf("Changed() = %v", err)
	}
	if !changed {
		t.Error("unknown file should report changed")
	}

	if err := tracker.Record(ctx, path, "aaa", 100); err != nil {
		t.Fatalf("Record() = %v", err)
	}

	changed, err = tracker.Changed(ctx, path, "aaa", 100)
	if err != nil {
		t.Fatalf("Changed() after record = %v", err)
	}
	if changed {
		t.Error("recorded file with same hash should report unchanged")
	}

	changed, err = tracker.Changed(ctx, path, "bbb", 100)
	if err != nil {
		t.Fatalf("Changed() with new hash = %v", err)
	}
	if !changed {
		t.Error("hash mismatch should report changed")
	}

	changed, err = tracker.Changed(ctx, path, "aaa", 101)
	if err != nil {
		t.Fatalf("Changed() with new size = %v", err)
	}
	if !changed {
		t.Error("size mismatch should report changed")
	}
}

func TestTrackerRecordUpserts(t *testing.T) {
	tracker, ctx := newTracker(t)

	const path = "/docs/shipping.md"
	if err := tracker.Record(ctx, path, "v1", 10); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Record(ctx, path, "v2", 20); err != nil {
		t.Fatalf("re-recording same path = %v", err)
	}

	files, err := tracker.List(ctx)
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("List() returned %d rows, want 1", len(files))
	}
	if files[0].SHA256 != "v2" || files[0].Size != 20 {
		t.Errorf("tracked state = %+v, want updated hash and size", files[0])
	}
}

func TestTrackerForget(t *testing.T) {
	tracker, ctx := newTracker(t)

	const path = "/docs/gone.md"
	if err := tracker.Record(ctx, path, "sha", 5); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Forget(ctx, path); err != nil {
		t.Fatalf("Forget() = %v", err)
	}
	if err := tracker.Forget(ctx, path); err != nil {
		t.Errorf("Forget() on unknown path = %v, want nil", err)
	}

	changed, err := tracker.Changed(ctx, path, "sha", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("forgotten file should report changed")
	}
}
