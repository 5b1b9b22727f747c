package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTemp(t)

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	runs := []Run{
		{Timestamp: base, SessionID: "s1", Path: "a.js", NodeCount: 10, EdgeCount: 20, ExportCount: 1, ImportCount: 2, Retained: 8, Total: 10, Duration: 5 * time.Millisecond},
		{Timestamp: base.Add(time.Minute), SessionID: "s2", Path: "b.js", NodeCount: 3, EdgeCount: 4, Retained: 3, Total: 3, Duration: time.Millisecond},
	}
	for _, r := range runs {
		if err := store.Record(r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	// Newest first.
	if got[0].SessionID != "s2" || got[1].SessionID != "s1" {
		t.Fatalf("unexpected order: %s, %s", got[0].SessionID, got[1].SessionID)
	}
	if got[1].Path != "a.js" || got[1].EdgeCount != 20 || got[1].Retained != 8 {
		t.Fatalf("round-trip mismatch: %+v", got[1])
	}
	if got[1].Duration != 5*time.Millisecond {
		t.Fatalf("duration = %v", got[1].Duration)
	}
	if !got[1].Timestamp.Equal(base) {
		t.Fatalf("timestamp = %v, want %v", got[1].Timestamp, base)
	}
}

func TestRecentLimit(t *testing.T) {
	store := openTemp(t)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		run := Run{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			SessionID: string(rune('a' + i)),
			Path:      "x.js",
		}
		if err := store.Record(run); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Recent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d runs, want 3", len(got))
	}
}

func TestDuplicateSessionRejected(t *testing.T) {
	store := openTemp(t)

	run := Run{Timestamp: time.Now(), SessionID: "dup", Path: "a.js"}
	if err := store.Record(run); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(run); err == nil {
		t.Fatal("expected error on duplicate session id")
	}
}

func TestOpenIsIdempotentOnSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	first, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Record(Run{Timestamp: time.Now(), SessionID: "s1", Path: "a.js"}); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	got, err := second.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d runs after reopen, want 1", len(got))
	}
}
