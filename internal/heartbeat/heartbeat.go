// Package heartbeat implements the worker heartbeat store: an independent
// liveness signal, one file per worker, updated roughly every 30 seconds.
// A stale or missing heartbeat is what lets the activity monitor tell a
// stuck worker apart from a merely silent one.
package heartbeat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forgehq/forge/internal/ferrors"
)

// DefaultStaleThreshold is the default age at which a heartbeat is
// considered stale (≈4 beats at the nominal 30s interval).
const DefaultStaleThreshold = 2 * time.Minute

// Metrics carries the worker-reported counters that ride along with a beat.
type Metrics struct {
	APICalls        int     `json:"api_calls"`
	TokensProcessed int     `json:"tokens_processed"`
	MemoryMB        float64 `json:"memory_mb"`
}

// Data is one heartbeat file's contents.
type Data struct {
	WorkerID    string    `json:"worker_id"`
	Timestamp   time.Time `json:"timestamp"`
	CurrentTask string    `json:"current_task,omitempty"`
	Operation   string    `json:"operation,omitempty"`
	Metrics     Metrics   `json:"metrics"`
}

// Writer is used by a worker process to publish its own heartbeat.
type Writer struct {
	dir      string
	workerID string
}

// NewWriter creates the heartbeat directory (if missing) and returns a
// Writer bound to workerID.
func NewWriter(dir, workerID string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, dir, "creating heartbeat directory", err)
	}
	return &Writer{dir: dir, workerID: workerID}, nil
}

func (w *Writer) path() string {
	return filepath.Join(w.dir, w.workerID+".heartbeat")
}

// Write installs data atomically via write-temp-then-rename.
func (w *Writer) Write(data Data) error {
	data.WorkerID = w.workerID
	path := w.path()

	payload, err := json.Marshal(data)
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, path, "marshaling heartbeat", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil { //nolint:gosec // G306
		return ferrors.Wrap(ferrors.KindIO, tmp, "writing heartbeat tmp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferrors.Wrap(ferrors.KindIO, path, "installing heartbeat file", err)
	}
	return nil
}

// Beat is a zero-field convenience that just refreshes the timestamp.
func (w *Writer) Beat() error {
	return w.Write(Data{Timestamp: time.Now()})
}

// Remove clears the heartbeat file on clean worker exit.
func (w *Writer) Remove() error {
	if err := os.Remove(w.path()); err != nil && !os.IsNotExist(err) {
		return ferrors.Wrap(ferrors.KindIO, w.path(), "removing heartbeat file", err)
	}
	return nil
}

// Reader scans heartbeat files written by any worker.
type Reader struct {
	dir string
}

// NewReader returns a Reader over dir (no directory creation — readers
// should not conjure the tree into existence).
func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

// ReadHeartbeat returns nil (not an error) if the file is missing or fails
// to parse; callers only log such misses.
func (r *Reader) ReadHeartbeat(workerID string) *Data {
	path := filepath.Join(r.dir, workerID+".heartbeat")
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path built from a directory we own
	if err != nil {
		return nil
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	return &data
}

// ScanAll enumerates every "*.heartbeat" file and returns the worker ->
// Data map for those that parse successfully.
func (r *Reader) ScanAll() (map[string]*Data, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Data{}, nil
		}
		return nil, ferrors.Wrap(ferrors.KindIO, r.dir, "listing heartbeat directory", err)
	}

	out := make(map[string]*Data, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".heartbeat") {
			continue
		}
		workerID := strings.TrimSuffix(entry.Name(), ".heartbeat")
		if data := r.ReadHeartbeat(workerID); data != nil {
			out[workerID] = data
		}
	}
	return out, nil
}

// CleanupStaleHeartbeats removes heartbeat files whose worker id is not in
// activeIDs and whose timestamp is at least 1 hour old. It returns the list
// of worker ids it removed.
func (r *Reader) CleanupStaleHeartbeats(activeIDs map[string]bool) ([]string, error) {
	all, err := r.ScanAll()
	if err != nil {
		return nil, err
	}

	var removed []string
	cutoff := time.Now().Add(-1 * time.Hour)
	for workerID, data := range all {
		if activeIDs[workerID] {
			continue
		}
		if data.Timestamp.After(cutoff) {
			continue
		}
		path := filepath.Join(r.dir, workerID+".heartbeat")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, ferrors.Wrap(ferrors.KindIO, path, "removing stale heartbeat", err)
		}
		removed = append(removed, workerID)
	}
	return removed, nil
}

// IsStale reports whether data is older than threshold as of now.
func IsStale(data *Data, now time.Time, threshold time.Duration) bool {
	if data == nil {
		return true
	}
	return now.Sub(data.Timestamp) > threshold
}
