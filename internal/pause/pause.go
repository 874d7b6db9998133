// Package pause implements the pause/resume protocol workers cooperate
// with: a status-file-driven idle loop, checked before claiming the next
// task, never mid-execution.
package pause

import (
	"context"
	"fmt"
	"time"

	"github.com/forgehq/forge/internal/ferrors"
	"github.com/forgehq/forge/internal/status"
)

// DefaultCheckInterval is how often an idle worker re-reads its status.
const DefaultCheckInterval = 60 * time.Second

// Options configures CheckBeforeClaim's idle loop.
type Options struct {
	CheckInterval time.Duration
	// MaxWait bounds the idle loop; zero means wait indefinitely.
	MaxWait time.Duration
}

// CheckBeforeClaim reads workerID's status and, if Paused, idles until it
// changes. The check must happen before claiming the next task, never
// during one, so a task always finishes atomically regardless of pause
// timing.
func CheckBeforeClaim(ctx context.Context, store *status.Store, workerID string, opts Options) error {
	interval := opts.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}

	var deadline time.Time
	if opts.MaxWait > 0 {
		deadline = time.Now().Add(opts.MaxWait)
	}

	for {
		info, err := store.ReadWorker(workerID)
		if err != nil {
			return err
		}
		if info == nil || info.Status != status.StatePaused {
			return nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return &ferrors.Error{
				Kind:    ferrors.KindTimeout,
				Op:      fmt.Sprintf("wait_for_unpause(%s)", workerID),
				Message: fmt.Sprintf("timed out waiting for worker %s to resume", workerID),
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// IsAnyPaused reports whether any of ids currently has Paused status.
func IsAnyPaused(store *status.Store, ids []string) (bool, error) {
	for _, id := range ids {
		info, err := store.ReadWorker(id)
		if err != nil {
			return false, err
		}
		if info != nil && info.Status == status.StatePaused {
			return true, nil
		}
	}
	return false, nil
}

// PauseAll pauses every worker in ids, collecting (not stopping on) any
// per-worker errors.
func PauseAll(store *status.Store, ids []string) map[string]error {
	errs := make(map[string]error)
	for _, id := range ids {
		if err := store.PauseWorker(id); err != nil {
			errs[id] = err
		}
	}
	return errs
}

// ResumeAll resumes every worker in ids whose current status is Paused,
// leaving others untouched.
func ResumeAll(store *status.Store, ids []string) map[string]error {
	errs := make(map[string]error)
	for _, id := range ids {
		info, err := store.ReadWorker(id)
		if err != nil {
			errs[id] = err
			continue
		}
		if info == nil || info.Status != status.StatePaused {
			continue
		}
		if err := store.ResumeWorker(id); err != nil {
			errs[id] = err
		}
	}
	return errs
}
