// Package status implements the worker status store: one atomically-written
// JSON file per worker under <dataDir>/status/<worker_id>.json. It is the
// worker's self-reported state; the supervisor treats the directory as
// read-mostly, per-file errors never aborting a directory scan.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forgehq/forge/internal/ferrors"
)

// State is the worker's self-reported lifecycle state.
type State string

const (
	StateStarting State = "starting"
	StateIdle     State = "idle"
	StateActive   State = "active"
	StatePaused   State = "paused"
	StateFailed   State = "failed"
	StateStopped  State = "stopped"
	StateError    State = "error"
)

// Info is the worker's self-reported state, persisted as one JSON file per
// worker. Unknown fields are ignored on read; missing fields take zero
// values. A missing file means "unknown", never "idle" — callers must
// distinguish a nil Info from a worker that reported Idle.
type Info struct {
	WorkerID       string    `json:"worker_id"`
	Status         State     `json:"status"`
	Model          string    `json:"model,omitempty"`
	Workspace      string    `json:"workspace,omitempty"`
	PID            int       `json:"pid"`
	StartedAt      time.Time `json:"started_at"`
	LastActivity   time.Time `json:"last_activity,omitempty"`
	CurrentTask    string    `json:"current_task,omitempty"`
	TasksCompleted int       `json:"tasks_completed"`
	ContainerID    string    `json:"container_id,omitempty"`
}

// Store reads and writes worker status files under a single directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if missing.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, dir, "creating status directory", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(workerID string) string {
	return filepath.Join(s.dir, workerID+".json")
}

// ReadWorker reads a single worker's status. It returns (nil, nil) if the
// file does not exist — absence means "unknown", not an error.
func (s *Store) ReadWorker(workerID string) (*Info, error) {
	path := s.path(workerID)
	data, err := os.ReadFile(path) //nolint:gosec // G304: path built from a directory we own
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ferrors.Wrap(ferrors.KindIO, path, "reading status file", err)
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, ferrors.Wrap(ferrors.KindStatusFileParse, path, "parsing status file", err)
	}
	return &info, nil
}

// ParseError names a status file that failed to parse during ReadAll; the
// file is skipped rather than aborting the whole scan.
type ParseError struct {
	WorkerID string
	Path     string
	Err      error
}

// ReadAll enumerates every "*.json" status file and returns the successfully
// parsed ones, plus the list of files that failed to parse. A parse error on
// one file never fails the whole read.
func (s *Store) ReadAll() ([]*Info, []ParseError, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, ferrors.Wrap(ferrors.KindIO, s.dir, "listing status directory", err)
	}

	var infos []*Info
	var parseErrs []ParseError
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		workerID := workerIDFromFilename(entry.Name())
		path := filepath.Join(s.dir, entry.Name())

		data, err := os.ReadFile(path) //nolint:gosec // G304
		if err != nil {
			parseErrs = append(parseErrs, ParseError{WorkerID: workerID, Path: path, Err: err})
			continue
		}
		var info Info
		if err := json.Unmarshal(data, &info); err != nil {
			parseErrs = append(parseErrs, ParseError{WorkerID: workerID, Path: path, Err: err})
			continue
		}
		infos = append(infos, &info)
	}
	return infos, parseErrs, nil
}

// ListWorkerIDs enumerates worker ids from status filenames, ignoring
// non-".json" entries.
func (s *Store) ListWorkerIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindIO, s.dir, "listing status directory", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ids = append(ids, workerIDFromFilename(entry.Name()))
	}
	return ids, nil
}

func workerIDFromFilename(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

// Write serializes info to pretty-printed JSON and installs it atomically:
// write to "<id>.json.tmp", then rename over "<id>.json". A reader never
// observes a partial file.
func (s *Store) Write(info *Info) error {
	path := s.path(info.WorkerID)
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return ferrors.Wrap(ferrors.KindIO, path, "marshaling status", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // G306: status files are not secrets
		return ferrors.Wrap(ferrors.KindIO, tmp, "writing status tmp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferrors.Wrap(ferrors.KindIO, path, "installing status file", err)
	}
	return nil
}

// Delete removes a worker's status file. Only the supervisor, and only once
// the worker is known stopped, should call this.
func (s *Store) Delete(workerID string) error {
	path := s.path(workerID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return ferrors.Wrap(ferrors.KindIO, path, "removing status file", err)
	}
	return nil
}

// ErrIllegalTransition is returned by PauseWorker/ResumeWorker when the
// worker's current state does not permit the requested transition.
var ErrIllegalTransition = fmt.Errorf("illegal status transition")

// PauseWorker performs a read-modify-write transition to Paused. Only an
// Idle worker may be paused.
func (s *Store) PauseWorker(workerID string) error {
	return s.transition(workerID, StateIdle, StatePaused)
}

// ResumeWorker performs a read-modify-write transition back to Idle. Only a
// Paused worker may be resumed.
func (s *Store) ResumeWorker(workerID string) error {
	return s.transition(workerID, StatePaused, StateIdle)
}

func (s *Store) transition(workerID string, from, to State) error {
	info, err := s.ReadWorker(workerID)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("%w: worker %s has no status file", ErrIllegalTransition, workerID)
	}
	if info.Status != from {
		return fmt.Errorf("%w: worker %s is %s, expected %s", ErrIllegalTransition, workerID, info.Status, from)
	}
	info.Status = to
	return s.Write(info)
}
