package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the listing title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// CardStyle wraps one message in the listing.
var CardStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// SubjectStyle renders the message subject line.
var SubjectStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// MetaStyle renders sender and recipient lines.
var MetaStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// HelpStyle is used for hints and empty-state text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// priorityLevels maps lower-cased priority words (English and Russian) to a
// level: 1 high, 2 medium, 3 low.
var priorityLevels = map[string]int{
	"high":    1,
	"urgent":  1,
	"высокий": 1,
	"medium":  2,
	"normal":  2,
	"средний": 2,
	"low":     3,
	"низкий":  3,
}

// PriorityStyle returns a color-coded badge style for a priority word as
// produced by the analysis.
func PriorityStyle(priority string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch priorityLevels[strings.ToLower(strings.TrimSpace(priority))] {
	case 1:
		return base.Foreground(ColorRed)
	case 2:
		return base.Foreground(ColorYellow)
	case 3:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// OutcomeStyle returns a color-coded style for a fetch run outcome.
func OutcomeStyle(outcome string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch outcome {
	case "ok":
		return base.Foreground(ColorGreen)
	case "connection_error", "folder_error":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}
