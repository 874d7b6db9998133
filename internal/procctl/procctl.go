// Package procctl wraps the small set of external process-control
// commands the supervisor shells out to: liveness probes, CLI
// availability checks, and tmux session teardown.
package procctl

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// ProcessAlive reports whether pid refers to a live process (a kill -0
// probe). It does not distinguish a zombie from a running process; callers
// needing that distinction should pair it with health.InspectProcess.
func ProcessAlive(pid int) bool {
	return processAlive(pid)
}

// CommandAvailable probes for name on PATH, mirroring the which/where
// pre-configuration check.
func CommandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// TmuxSessionAlive reports whether session is a live tmux session.
func TmuxSessionAlive(ctx context.Context, session string) bool {
	cmd := exec.CommandContext(ctx, "tmux", "has-session", "-t", session)
	return cmd.Run() == nil
}

// TmuxKillSession tears down a tmux session as a unit. The source leaves
// "graceful teardown first" to a higher layer, so this calls kill-session
// directly.
func TmuxKillSession(ctx context.Context, session string) error {
	cmd := exec.CommandContext(ctx, "tmux", "kill-session", "-t", session)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &cmdError{cmd: "tmux kill-session", output: strings.TrimSpace(string(out)), err: err}
	}
	return nil
}

// TmuxNewSession starts a detached tmux session running command in dir.
func TmuxNewSession(ctx context.Context, session, dir, command string) error {
	cmd := exec.CommandContext(ctx, "tmux", "new-session", "-d", "-s", session, "-c", dir, command)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &cmdError{cmd: "tmux new-session", output: strings.TrimSpace(string(out)), err: err}
	}
	return nil
}

type cmdError struct {
	cmd    string
	output string
	err    error
}

func (e *cmdError) Error() string {
	if e.output == "" {
		return e.cmd + ": " + e.err.Error()
	}
	return e.cmd + ": " + e.err.Error() + ": " + e.output
}

func (e *cmdError) Unwrap() error { return e.err }

// WaitTmuxGone polls until session no longer exists or the context is
// cancelled, checking at the given interval.
func WaitTmuxGone(ctx context.Context, session string, interval time.Duration) error {
	for {
		if !TmuxSessionAlive(ctx, session) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
