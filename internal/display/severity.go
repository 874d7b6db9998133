package display

import "github.com/charmbracelet/lipgloss"

var (
	styleCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleInfo     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleHealthy  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleDegraded = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleDead     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// SeverityLabel renders a severity name (Info/Warning/Critical), colored
// when ShouldUseColor() allows it, plain otherwise.
func SeverityLabel(severity string) string {
	if !ShouldUseColor() {
		return severity
	}
	switch severity {
	case "Critical":
		return styleCritical.Render(severity)
	case "Warning":
		return styleWarning.Render(severity)
	default:
		return styleInfo.Render(severity)
	}
}

// HealthIndicator colors a health indicator glyph (●/◐/○) to match its
// meaning: green for healthy, yellow for degraded, gray for unhealthy.
func HealthIndicator(glyph string) string {
	if !ShouldUseColor() {
		return glyph
	}
	switch glyph {
	case "●":
		return styleHealthy.Render(glyph)
	case "◐":
		return styleDegraded.Render(glyph)
	default:
		return styleDead.Render(glyph)
	}
}
