package logtail

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadNewLinesParsesResultEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker-1.log")
	line := `{"type":"result","total_cost_usd":2.5879285,"session_id":"sess-1","usage":{"input_tokens":2,"cache_creation_input_tokens":92308,"cache_read_input_tokens":3072787,"output_tokens":18984}}` + "\n"
	writeFile(t, path, line)

	tailer := New(path, "worker-1", nil)
	calls, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	c := calls[0]
	if c.InputTokens != 2 || c.OutputTokens != 18984 {
		t.Errorf("tokens = %d/%d, want 2/18984", c.InputTokens, c.OutputTokens)
	}
	if diff := c.CostUSD - 2.5879285; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("CostUSD = %v, want ~2.5879285", c.CostUSD)
	}
	if c.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", c.SessionID)
	}
}

func TestReadNewLinesParsesAssistantEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker-2.log")
	line := `{"type":"assistant","session_id":"sess-123","message":{"model":"claude-opus-4-5-20251101","usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":200,"cache_read_input_tokens":300}}}` + "\n"
	writeFile(t, path, line)

	tailer := New(path, "worker-2", nil)
	calls, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].Model != "claude-opus-4-5-20251101" {
		t.Errorf("Model = %q", calls[0].Model)
	}
	if calls[0].CacheCreationTokens != 200 || calls[0].CacheReadTokens != 300 {
		t.Errorf("cache tokens = %d/%d, want 200/300", calls[0].CacheCreationTokens, calls[0].CacheReadTokens)
	}
}

func TestReadNewLinesGLMModelUsageFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker-glm.log")
	line := `{"type":"result","total_cost_usd":0.359457,"usage":{"input_tokens":10549,"cache_creation_input_tokens":0,"cache_read_input_tokens":727040,"output_tokens":5509},"modelUsage":{"glm-4.7":{"inputTokens":15836}},"session_id":"60e69c73"}` + "\n"
	writeFile(t, path, line)

	tailer := New(path, "worker-glm", nil)
	calls, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	if len(calls) != 1 || calls[0].Model != "glm-4.7" {
		t.Fatalf("got %+v, want model glm-4.7", calls)
	}
}

func TestReadNewLinesSkipsNonUsageEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker-3.log")
	writeFile(t, path, "{\"type\":\"system\",\"subtype\":\"init\"}\nnot json at all\n{\"type\":\"user\"}\n")

	tailer := New(path, "worker-3", nil)
	calls, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("got %d calls, want 0", len(calls))
	}
}

func TestReadNewLinesIsIncremental(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker-4.log")
	writeFile(t, path, `{"type":"assistant","message":{"model":"claude-sonnet","usage":{"input_tokens":10,"output_tokens":5}}}`+"\n")

	tailer := New(path, "worker-4", nil)
	first, err := tailer.ReadNewLines()
	if err != nil || len(first) != 1 {
		t.Fatalf("first read: %d calls, err %v", len(first), err)
	}

	second, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second read returned %d calls, want 0 (no new data)", len(second))
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"type":"assistant","message":{"model":"claude-sonnet","usage":{"input_tokens":20,"output_tokens":10}}}` + "\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	third, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("third read: %v", err)
	}
	if len(third) != 1 || third[0].InputTokens != 20 {
		t.Fatalf("third read = %+v, want exactly the appended line", third)
	}
}

func TestReadNewLinesDetectsRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker-5.log")
	writeFile(t, path, `{"type":"assistant","message":{"model":"claude-sonnet","usage":{"input_tokens":1,"output_tokens":1}}}`+"\n")

	tailer := New(path, "worker-5", nil)
	if _, err := tailer.ReadNewLines(); err != nil {
		t.Fatalf("first read: %v", err)
	}

	// Simulate rotation: remove and recreate (gets a new inode on most
	// filesystems) with fresh, shorter content.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, `{"type":"assistant","message":{"model":"claude-haiku","usage":{"input_tokens":2,"output_tokens":2}}}`+"\n")

	calls, err := tailer.ReadNewLines()
	if err != nil {
		t.Fatalf("post-rotation read: %v", err)
	}
	if len(calls) != 1 || calls[0].Model != "claude-haiku" {
		t.Fatalf("post-rotation calls = %+v, want exactly the new file's one line", calls)
	}
}

func TestBufferEvictsFIFOAndCountsDrops(t *testing.T) {
	buf := NewBuffer(2)
	for i := 0; i < 5; i++ {
		buf.Push(apiCallForTest(i))
	}
	if buf.TotalAdded() != 5 {
		t.Errorf("TotalAdded = %d, want 5", buf.TotalAdded())
	}
	if buf.DroppedCount() != 3 {
		t.Errorf("DroppedCount = %d, want 3", buf.DroppedCount())
	}
	entries := buf.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(Entries()) = %d, want 2", len(entries))
	}
	if entries[0].InputTokens != 3 || entries[1].InputTokens != 4 {
		t.Errorf("entries = %+v, want tokens [3,4] (FIFO eviction)", entries)
	}
}

func TestReadNewLinesStampsEventTimestamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "worker-1.log")
	withTS := `{"type":"assistant","timestamp":"2026-08-01T12:34:56Z","message":{"model":"claude-sonnet","usage":{"input_tokens":1,"output_tokens":1}}}` + "\n"
	withoutTS := `{"type":"assistant","message":{"model":"claude-sonnet","usage":{"input_tokens":1,"output_tokens":1}}}` + "\n"
	writeFile(t, path, withTS+withoutTS)

	before := time.Now()
	calls, err := New(path, "worker-1", nil).ReadNewLines()
	if err != nil {
		t.Fatalf("ReadNewLines: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}

	want := time.Date(2026, 8, 1, 12, 34, 56, 0, time.UTC)
	if !calls[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want the event's own %v", calls[0].Timestamp, want)
	}
	if calls[1].Timestamp.Before(before) {
		t.Errorf("a line without a timestamp should be stamped at arrival, got %v", calls[1].Timestamp)
	}
}
