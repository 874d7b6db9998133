// Package crash implements the crash recovery manager: it decides whether a
// failed health check represents an actual crash, clears the failed
// worker's task assignment in the external task store, and rate-limits
// restarts within a sliding window.
package crash

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgehq/forge/internal/health"
	"github.com/forgehq/forge/internal/taskstore"
)

// Action is what the caller should do in response to a crash decision.
type Action int

const (
	ActionRestart Action = iota
	ActionNotifyOnly
	ActionIgnore
)

func (a Action) String() string {
	switch a {
	case ActionRestart:
		return "restart"
	case ActionNotifyOnly:
		return "notify_only"
	case ActionIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}

// Record is one crash observation retained for the rate-limit window.
// CorrelationID ties a record to the alert (if any) raised for the same
// crash, since the two are created independently by different callers.
type Record struct {
	CorrelationID   string
	WorkerID        string
	Reason          string
	Message         string
	Workspace       string
	BeadID          string
	Timestamp       time.Time
	AssigneeCleared bool
	AutoRestarted   bool
}

// Config controls auto-restart policy and task-store integration.
type Config struct {
	AutoRestartEnabled    bool
	MaxCrashesInWindow    int
	CrashWindow           time.Duration
	ClearAssigneesEnabled bool
}

// DefaultConfig returns the default recovery policy.
func DefaultConfig() Config {
	return Config{
		AutoRestartEnabled:    false,
		MaxCrashesInWindow:    3,
		CrashWindow:           10 * time.Minute,
		ClearAssigneesEnabled: true,
	}
}

// Manager tracks crash history per worker and decides the recovery action.
type Manager struct {
	cfg   Config
	store taskstore.Store

	mu      sync.Mutex
	history map[string][]Record
	crashed map[string]bool
}

// NewManager builds a Manager. store may be nil if ClearAssigneesEnabled is
// false and the caller never intends to pass a bead_id/workspace.
func NewManager(cfg Config, store taskstore.Store) *Manager {
	return &Manager{
		cfg:     cfg,
		store:   store,
		history: make(map[string][]Record),
		crashed: make(map[string]bool),
	}
}

// HandleCrash runs the full decision ladder from the failed health report.
func (m *Manager) HandleCrash(ctx context.Context, workerID string, report *health.Report, workspace, beadID string) Action {
	if !hasFailedPidExists(report) {
		return ActionIgnore
	}

	m.mu.Lock()
	if m.crashed[workerID] {
		m.mu.Unlock()
		return ActionIgnore
	}
	m.mu.Unlock()

	reason, message := extractPidFailure(report)

	assigneeCleared := false
	if m.cfg.ClearAssigneesEnabled && beadID != "" && workspace != "" && m.store != nil {
		assigneeCleared = m.clearAssignee(ctx, beadID)
	}

	now := time.Now()
	record := Record{
		CorrelationID: uuid.NewString(), WorkerID: workerID, Reason: reason,
		Message: message, Workspace: workspace, BeadID: beadID,
		Timestamp: now, AssigneeCleared: assigneeCleared,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[workerID] = pruneOlderThan(append(m.history[workerID], record), now, m.cfg.CrashWindow)
	recentCount := len(m.history[workerID])
	m.crashed[workerID] = true

	if m.cfg.AutoRestartEnabled && recentCount < m.cfg.MaxCrashesInWindow {
		hist := m.history[workerID]
		hist[len(hist)-1].AutoRestarted = true
		return ActionRestart
	}
	return ActionNotifyOnly
}

func (m *Manager) clearAssignee(ctx context.Context, beadID string) bool {
	task, err := m.store.Show(ctx, beadID)
	if err != nil {
		log.Printf("crash: checking assignee for %s: %v", beadID, err)
		return false
	}
	if task.Assignee == "" {
		return false
	}
	if err := m.store.ClearAssignee(ctx, beadID); err != nil {
		log.Printf("crash: clearing assignee for %s: %v", beadID, err)
		return false
	}
	return true
}

// IsCrashed reports whether workerID has an unrecovered crash record.
func (m *Manager) IsCrashed(workerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.crashed[workerID]
}

// MarkRecovered removes the crashed flag for workerID. Recent-crash history
// is preserved so the rate limit still sees prior crashes within the window.
func (m *Manager) MarkRecovered(workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.crashed, workerID)
}

// History returns a copy of workerID's crash records within the window.
func (m *Manager) History(workerID string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.history[workerID]))
	copy(out, m.history[workerID])
	return out
}

func pruneOlderThan(records []Record, now time.Time, window time.Duration) []Record {
	cutoff := now.Add(-window)
	out := records[:0]
	for _, r := range records {
		if r.Timestamp.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func hasFailedPidExists(report *health.Report) bool {
	for _, c := range report.Checks {
		if c.Name == "PidExists" && c.Status == health.StatusFailed {
			return true
		}
	}
	return false
}

func extractPidFailure(report *health.Report) (reason, message string) {
	for _, c := range report.Checks {
		if c.Name == "PidExists" && c.Status == health.StatusFailed {
			return string(c.Kind), c.Message
		}
	}
	return "", ""
}
