// Package display centralizes terminal-capability detection and
// severity/status coloring so the rest of the codebase never hand-rolls
// ANSI escapes or re-derives TTY/agent-mode checks.
package display

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal returns true if stdout is connected to a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor follows the NO_COLOR (https://no-color.org/), CLICOLOR,
// and CLICOLOR_FORCE conventions on top of the TTY check.
func ShouldUseColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if _, exists := os.LookupEnv("CLICOLOR_FORCE"); exists {
		return true
	}
	return IsTerminal()
}

// ShouldUseEmoji disables emoji decoration outside a TTY so piped output
// stays machine-readable.
func ShouldUseEmoji() bool {
	if _, exists := os.LookupEnv("FORGE_NO_EMOJI"); exists {
		return false
	}
	return IsTerminal()
}

// IsAgentMode reports whether output should be ultra-compact for an LLM
// context window, either by explicit opt-in or by auto-detecting a known
// coding-agent environment.
func IsAgentMode() bool {
	if os.Getenv("FORGE_AGENT_MODE") == "1" {
		return true
	}
	if os.Getenv("CLAUDE_CODE") != "" {
		return true
	}
	return false
}
