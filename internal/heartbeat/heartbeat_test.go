package heartbeat

import (
	"testing"
	"time"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "worker-1")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	now := time.Now().Truncate(time.Second)
	if err := w.Write(Data{Timestamp: now, CurrentTask: "bd-abc", Metrics: Metrics{APICalls: 3}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r := NewReader(dir)
	got := r.ReadHeartbeat("worker-1")
	if got == nil {
		t.Fatal("ReadHeartbeat returned nil")
	}
	if got.WorkerID != "worker-1" || got.CurrentTask != "bd-abc" || got.Metrics.APICalls != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestReadHeartbeatMissingReturnsNil(t *testing.T) {
	r := NewReader(t.TempDir())
	if got := r.ReadHeartbeat("ghost"); got != nil {
		t.Errorf("expected nil for missing heartbeat, got %+v", got)
	}
}

func TestMonotonicTimestampsObservedNonDecreasing(t *testing.T) {
	dir := t.TempDir()
	w, _ := NewWriter(dir, "worker-1")
	r := NewReader(dir)

	base := time.Now()
	var last time.Time
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		if err := w.Write(Data{Timestamp: ts}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		got := r.ReadHeartbeat("worker-1")
		if got.Timestamp.Before(last) {
			t.Fatalf("observed timestamp %v before previous %v", got.Timestamp, last)
		}
		last = got.Timestamp
	}
}

func TestCleanupStaleHeartbeats(t *testing.T) {
	dir := t.TempDir()
	wStale, _ := NewWriter(dir, "stale")
	wActive, _ := NewWriter(dir, "active")
	wFresh, _ := NewWriter(dir, "fresh-but-inactive")

	old := time.Now().Add(-2 * time.Hour)
	wStale.Write(Data{Timestamp: old})
	wActive.Write(Data{Timestamp: old})
	wFresh.Write(Data{Timestamp: time.Now()})

	r := NewReader(dir)
	removed, err := r.CleanupStaleHeartbeats(map[string]bool{"active": true})
	if err != nil {
		t.Fatalf("CleanupStaleHeartbeats: %v", err)
	}
	if len(removed) != 1 || removed[0] != "stale" {
		t.Errorf("removed = %v, want [stale]", removed)
	}

	if r.ReadHeartbeat("active") == nil {
		t.Error("active worker's heartbeat should survive cleanup")
	}
	if r.ReadHeartbeat("fresh-but-inactive") == nil {
		t.Error("fresh heartbeat should survive cleanup regardless of activity")
	}
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	fresh := &Data{Timestamp: now.Add(-10 * time.Second)}
	stale := &Data{Timestamp: now.Add(-3 * time.Minute)}

	if IsStale(fresh, now, DefaultStaleThreshold) {
		t.Error("fresh heartbeat reported stale")
	}
	if !IsStale(stale, now, DefaultStaleThreshold) {
		t.Error("stale heartbeat reported fresh")
	}
	if !IsStale(nil, now, DefaultStaleThreshold) {
		t.Error("nil heartbeat should be considered stale")
	}
}
