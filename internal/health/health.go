// Package health runs a composite set of per-worker checks (liveness,
// activity freshness, memory, task progress) and reduces them to a single
// health score and guidance string. Checks run per worker, on demand.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/forgehq/forge/internal/procctl"
)

// Status is a single check's outcome.
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusSkipped
)

// FailureKind names why a check failed, for guidance generation.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureDeadProcess   FailureKind = "dead_process"
	FailureStaleActivity FailureKind = "stale_activity"
	FailureHighMemory    FailureKind = "high_memory"
	FailureStuckTask     FailureKind = "stuck_task"
	FailureTmuxGone      FailureKind = "tmux_gone"
)

// CheckResult is the outcome of one named check. Duration records how long
// the check took, useful when a slow /proc or tmux probe needs diagnosing.
type CheckResult struct {
	Name     string
	Status   Status
	Kind     FailureKind
	Message  string
	Duration time.Duration
}

// Report is the composite result for one worker, across all enabled checks.
type Report struct {
	WorkerID  string
	Timestamp time.Time
	Checks    []CheckResult
}

// Passed counts checks that passed or were skipped (a disabled check
// never drags the score down).
func (r *Report) Passed() int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == StatusPassed || c.Status == StatusSkipped {
			n++
		}
	}
	return n
}

// Score is passed/total, 0 when there are no checks.
func (r *Report) Score() float64 {
	if len(r.Checks) == 0 {
		return 0
	}
	return float64(r.Passed()) / float64(len(r.Checks))
}

// Indicator is a single-glyph summary of Score: healthy ≥0.8, degraded
// ≥0.5, else unhealthy.
func (r *Report) Indicator() string {
	switch {
	case r.Score() >= 0.8:
		return "●"
	case r.Score() >= 0.5:
		return "◐"
	default:
		return "○"
	}
}

// Guidance builds a human-readable remediation hint from the failed checks.
func (r *Report) Guidance() string {
	var msgs []string
	for _, c := range r.Checks {
		if c.Status != StatusFailed {
			continue
		}
		switch c.Kind {
		case FailureDeadProcess:
			msgs = append(msgs, "process is not running; worker needs to be restarted")
		case FailureStaleActivity:
			msgs = append(msgs, "no activity observed recently; worker may be stuck")
		case FailureHighMemory:
			msgs = append(msgs, "memory usage exceeds the configured limit")
		case FailureStuckTask:
			msgs = append(msgs, "current task has not progressed; consider restarting")
		case FailureTmuxGone:
			msgs = append(msgs, "tmux session is gone; worker has no terminal to attach to")
		}
	}
	if len(msgs) == 0 {
		return ""
	}
	out := msgs[0]
	for _, m := range msgs[1:] {
		out += "; " + m
	}
	return out
}

// Config names the per-check thresholds. A Limit of 0 disables that check.
type Config struct {
	StaleThreshold      time.Duration
	MemoryLimitMB       float64
	TaskStuckThreshold  time.Duration
	MaxRecoveryAttempts int
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		StaleThreshold:      2 * time.Minute,
		MemoryLimitMB:       0, // disabled unless the caller sets a limit
		TaskStuckThreshold:  15 * time.Minute,
		MaxRecoveryAttempts: 3,
	}
}

// WorkerSnapshot bundles the signals the composite check needs — callers
// assemble this from status.Info, heartbeat.Data, and a live RSS sample so
// health stays decoupled from how those stores are read.
type WorkerSnapshot struct {
	WorkerID      string
	PID           int
	ProcessExists bool
	ProcessZombie bool
	IsActiveState bool
	IsStarting    bool
	HasTask       bool
	LastActivity  *time.Time
	RSSMb         float64
}

// Run executes all four composite checks against snap and returns the
// aggregated Report.
func Run(snap WorkerSnapshot, cfg Config, now time.Time) *Report {
	report := &Report{WorkerID: snap.WorkerID, Timestamp: now}

	report.Checks = append(report.Checks, timed(func() CheckResult { return checkPidExists(snap) }))
	report.Checks = append(report.Checks, timed(func() CheckResult { return checkActivityFresh(snap, cfg, now) }))
	report.Checks = append(report.Checks, timed(func() CheckResult { return checkMemoryUsage(snap, cfg) }))
	report.Checks = append(report.Checks, timed(func() CheckResult { return checkTaskProgress(snap, cfg, now) }))

	return report
}

func timed(check func() CheckResult) CheckResult {
	start := time.Now()
	result := check()
	result.Duration = time.Since(start)
	return result
}

func checkPidExists(snap WorkerSnapshot) CheckResult {
	if !snap.ProcessExists {
		return CheckResult{Name: "PidExists", Status: StatusFailed, Kind: FailureDeadProcess,
			Message: fmt.Sprintf("pid %d not found", snap.PID)}
	}
	if snap.ProcessZombie {
		return CheckResult{Name: "PidExists", Status: StatusFailed, Kind: FailureDeadProcess,
			Message: fmt.Sprintf("pid %d is a zombie", snap.PID)}
	}
	return CheckResult{Name: "PidExists", Status: StatusPassed}
}

func checkActivityFresh(snap WorkerSnapshot, cfg Config, now time.Time) CheckResult {
	if snap.IsStarting {
		return CheckResult{Name: "ActivityFresh", Status: StatusSkipped}
	}
	if snap.LastActivity == nil {
		return CheckResult{Name: "ActivityFresh", Status: StatusFailed, Kind: FailureStaleActivity,
			Message: "no activity timestamp recorded"}
	}
	if now.Sub(*snap.LastActivity) > cfg.StaleThreshold {
		return CheckResult{Name: "ActivityFresh", Status: StatusFailed, Kind: FailureStaleActivity,
			Message: fmt.Sprintf("last activity %s ago", now.Sub(*snap.LastActivity).Round(time.Second))}
	}
	return CheckResult{Name: "ActivityFresh", Status: StatusPassed}
}

func checkMemoryUsage(snap WorkerSnapshot, cfg Config) CheckResult {
	if cfg.MemoryLimitMB <= 0 {
		return CheckResult{Name: "MemoryUsage", Status: StatusSkipped}
	}
	if snap.RSSMb > cfg.MemoryLimitMB {
		return CheckResult{Name: "MemoryUsage", Status: StatusFailed, Kind: FailureHighMemory,
			Message: fmt.Sprintf("RSS %.1fMB exceeds limit %.1fMB", snap.RSSMb, cfg.MemoryLimitMB)}
	}
	return CheckResult{Name: "MemoryUsage", Status: StatusPassed}
}

func checkTaskProgress(snap WorkerSnapshot, cfg Config, now time.Time) CheckResult {
	if !snap.IsActiveState || !snap.HasTask {
		return CheckResult{Name: "TaskProgress", Status: StatusSkipped}
	}
	if snap.LastActivity == nil || now.Sub(*snap.LastActivity) > cfg.TaskStuckThreshold {
		return CheckResult{Name: "TaskProgress", Status: StatusFailed, Kind: FailureStuckTask,
			Message: "current task has not progressed within the stuck threshold"}
	}
	return CheckResult{Name: "TaskProgress", Status: StatusPassed}
}

// AppendTmuxSessionCheck runs the optional TmuxSession check and appends its
// result to report. It is not part of Run's fixed four checks because it
// requires a live tmux probe and a session name; callers that track a tmux
// session per worker opt into it explicitly.
func AppendTmuxSessionCheck(ctx context.Context, report *Report, session string) {
	report.Checks = append(report.Checks, timed(func() CheckResult {
		if session == "" {
			return CheckResult{Name: "TmuxSession", Status: StatusSkipped}
		}
		if !procctl.TmuxSessionAlive(ctx, session) {
			return CheckResult{Name: "TmuxSession", Status: StatusFailed, Kind: FailureTmuxGone,
				Message: fmt.Sprintf("tmux session %q not found", session)}
		}
		return CheckResult{Name: "TmuxSession", Status: StatusPassed}
	}))
}

// RecoveryTracker counts consecutive recovery attempts per worker, gating
// further restarts once max_recovery_attempts is reached.
type RecoveryTracker struct {
	attempts map[string]int
	max      int
}

// NewRecoveryTracker builds a tracker that exhausts after max attempts.
func NewRecoveryTracker(max int) *RecoveryTracker {
	if max <= 0 {
		max = 3
	}
	return &RecoveryTracker{attempts: make(map[string]int), max: max}
}

// RecordAttempt increments the attempt counter for workerID.
func (t *RecoveryTracker) RecordAttempt(workerID string) {
	t.attempts[workerID]++
}

// IsExhausted reports whether workerID has hit the attempt ceiling.
func (t *RecoveryTracker) IsExhausted(workerID string) bool {
	return t.attempts[workerID] >= t.max
}

// Reset clears workerID's attempt counter after a successful recovery.
func (t *RecoveryTracker) Reset(workerID string) {
	delete(t.attempts, workerID)
}
