// Package activity classifies a worker's activity from its status and
// heartbeat signals. Classification is a pure function of inputs and wall
// clock — nothing here is persisted.
package activity

import (
	"fmt"
	"time"

	"github.com/forgehq/forge/internal/heartbeat"
	"github.com/forgehq/forge/internal/status"
)

// State is the derived activity classification.
type State string

const (
	StateIdle         State = "idle"
	StateWorking      State = "working"
	StateStuck        State = "stuck"
	StateUnresponsive State = "unresponsive"
	StateUnknown      State = "unknown"
)

// Config holds the thresholds that drive classification.
type Config struct {
	// HeartbeatStale is the age past which a heartbeat no longer counts as
	// fresh (default 120s, ≈4 missed 30s beats).
	HeartbeatStale time.Duration

	// ActivityTimeout is the age past which LastActivity alone marks a
	// worker Stuck (default 900s).
	ActivityTimeout time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		HeartbeatStale:  120 * time.Second,
		ActivityTimeout: 900 * time.Second,
	}
}

// Input bundles the signals classification needs for one worker.
type Input struct {
	WorkerID     string
	HasTask      bool
	LastActivity *time.Time
	WorkerStatus status.State
	Heartbeat    *heartbeat.Data
}

// Classify implements the §4.3 rules, evaluated in the documented order.
func Classify(in Input, now time.Time, cfg Config) State {
	hbStale := in.Heartbeat != nil && now.Sub(in.Heartbeat.Timestamp) > cfg.HeartbeatStale

	// Rule 1: a stale heartbeat while a task is assigned always means Stuck,
	// regardless of how fresh LastActivity looks — the heartbeat is the
	// worker's own liveness signal and overrides self-reported progress.
	if in.Heartbeat != nil && hbStale && in.HasTask {
		return StateStuck
	}

	// Rule 2: no task at all is always Idle.
	if !in.HasTask {
		return StateIdle
	}

	// Rule 3: a task and a LastActivity timestamp — age alone decides.
	if in.LastActivity != nil {
		if now.Sub(*in.LastActivity) > cfg.ActivityTimeout {
			return StateStuck
		}
		return StateWorking
	}

	// Rule 4: a task, no LastActivity, but a heartbeat to fall back on.
	if in.Heartbeat != nil {
		if hbStale {
			return StateStuck
		}
		return StateWorking
	}

	// Rule 5: a task, no LastActivity, no heartbeat. Starting workers are
	// presumed still working; everything else is Unknown. This asymmetry
	// (Starting always "working" here, but falling to Unknown in general
	// status displays) mirrors the source's own inconsistency — see
	// DESIGN.md open question on Starting-state treatment.
	if in.WorkerStatus == status.StateStarting {
		return StateWorking
	}
	return StateUnknown
}

// Details carries the classification plus human-facing derived fields.
type Details struct {
	State             State
	TimeSinceActivity *time.Duration
	TimeSinceBeat     *time.Duration
	Guidance          string
}

// GetActivity wraps Classify with derived timing fields and guidance text.
func GetActivity(in Input, now time.Time, cfg Config) Details {
	state := Classify(in, now, cfg)
	d := Details{State: state}

	if in.LastActivity != nil {
		delta := now.Sub(*in.LastActivity)
		d.TimeSinceActivity = &delta
	}
	if in.Heartbeat != nil {
		delta := now.Sub(in.Heartbeat.Timestamp)
		d.TimeSinceBeat = &delta
	}

	d.Guidance = guidanceFor(state, d.TimeSinceActivity)
	return d
}

func guidanceFor(state State, since *time.Duration) string {
	switch state {
	case StateStuck:
		if since != nil {
			mins := int(since.Minutes())
			return fmt.Sprintf("Worker has been stuck for %d minutes. Consider restarting.", mins)
		}
		return "Worker appears stuck. Consider restarting."
	case StateUnresponsive:
		return "Worker is unresponsive. Check the process and its tmux session."
	case StateUnknown:
		return "Worker state could not be determined from available signals."
	default:
		return ""
	}
}
