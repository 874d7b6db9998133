package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForEvent(t *testing.T, events <-chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestEmitInitialStateReportsExistingFilesAsCreated(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "worker-1.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig(dir)
	cfg.Debounce = 10 * time.Millisecond
	w := New(cfg)
	go w.Run()
	defer w.Stop()

	ev := waitForEvent(t, w.Events(), time.Second)
	if ev.Kind != Created {
		t.Errorf("Kind = %v, want Created", ev.Kind)
	}
}

func TestFirstModifyOnUnknownPathPromotedToCreated(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Debounce = 10 * time.Millisecond
	cfg.EmitInitialState = false
	w := New(cfg)
	go w.Run()
	defer w.Stop()

	path := filepath.Join(dir, "worker-2.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitForEvent(t, w.Events(), time.Second)
	if ev.Kind != Created {
		t.Errorf("Kind = %v, want Created (first Modify promoted)", ev.Kind)
	}

	// A second write to the same path should now be Modified.
	if err := os.WriteFile(path, []byte(`{"x":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	ev2 := waitForEvent(t, w.Events(), time.Second)
	if ev2.Kind != Modified {
		t.Errorf("second write Kind = %v, want Modified", ev2.Kind)
	}
}

func TestNonMatchingSuffixIgnored(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Debounce = 10 * time.Millisecond
	cfg.EmitInitialState = false
	w := New(cfg)
	go w.Run()
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("expected no event for non-matching suffix, got %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRemoveEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker-3.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig(dir)
	cfg.Debounce = 10 * time.Millisecond
	w := New(cfg)
	go w.Run()
	defer w.Stop()

	// Drain the initial Created event.
	waitForEvent(t, w.Events(), time.Second)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	ev := waitForEvent(t, w.Events(), time.Second)
	if ev.Kind != Removed {
		t.Errorf("Kind = %v, want Removed", ev.Kind)
	}
}

func TestPublishDropsOnFullChannel(t *testing.T) {
	w := New(Config{Dir: t.TempDir(), ChannelBuffer: 1, Debounce: time.Millisecond})
	w.publish(Event{Kind: Created, Path: "a"})
	w.publish(Event{Kind: Created, Path: "b"}) // dropped, must not block

	ev := <-w.events
	if ev.Path != "a" {
		t.Errorf("Path = %q, want %q (second publish should have been dropped)", ev.Path, "a")
	}
}
