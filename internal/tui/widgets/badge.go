// ABOUTME: Status badge widgets for quick visual status indication
// ABOUTME: Maps device health and playback state to colored inline badges

package widgets

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/tui/icons"
)

// StatusLevel represents the severity of a status
type StatusLevel int

const (
	StatusOK StatusLevel = iota
	StatusWarning
	StatusCritical
	StatusInfo
	StatusNeutral
)

// Badge colors
var (
	BadgeOKBg      = lipgloss.Color("#10B981")
	BadgeOKFg      = lipgloss.Color("#FFFFFF")
	BadgeWarnBg    = lipgloss.Color("#F59E0B")
	BadgeWarnFg    = lipgloss.Color("#000000")
	BadgeCritBg    = lipgloss.Color("#EF4444")
	BadgeCritFg    = lipgloss.Color("#FFFFFF")
	BadgeInfoBg    = lipgloss.Color("#3B82F6")
	BadgeInfoFg    = lipgloss.Color("#FFFFFF")
	BadgeNeutralBg = lipgloss.Color("#6B7280")
	BadgeNeutralFg = lipgloss.Color("#FFFFFF")
)

func colors(level StatusLevel) (bg, fg lipgloss.Color) {
	switch level {
	case StatusOK:
		return BadgeOKBg, BadgeOKFg
	case StatusWarning:
		return BadgeWarnBg, BadgeWarnFg
	case StatusCritical:
		return BadgeCritBg, BadgeCritFg
	case StatusInfo:
		return BadgeInfoBg, BadgeInfoFg
	default:
		return BadgeNeutralBg, BadgeNeutralFg
	}
}

// Badge renders a colored status badge
func Badge(text string, level StatusLevel) string {
	bg, fg := colors(level)
	return lipgloss.NewStyle().
		Background(bg).
		Foreground(fg).
		Padding(0, 1).
		Bold(true).
		Render(text)
}

// HealthLevel maps a device health value to a status level
func HealthLevel(health string) StatusLevel {
	switch health {
	case client.HealthHealthy:
		return StatusOK
	case client.HealthUnhealthy:
		return StatusCritical
	default:
		return StatusNeutral
	}
}

// HealthBadge renders the badge for a device
func HealthBadge(d client.Device) string {
	return Badge(d.Health(), HealthLevel(d.Health()))
}

// StatusIcon returns the appropriate icon for a status level
func StatusIcon(level StatusLevel) string {
	bg, _ := colors(level)
	var icon string
	switch level {
	case StatusOK:
		icon = icons.CheckOK.String()
	case StatusWarning:
		icon = icons.Warning.String()
	case StatusCritical:
		icon = icons.Critical.String()
	case StatusInfo:
		icon = icons.Info.String()
	default:
		icon = "•"
	}
	return lipgloss.NewStyle().Foreground(bg).Render(icon)
}

// StatusText returns styled status text with icon
func StatusText(text string, level StatusLevel) string {
	bg, _ := colors(level)
	return fmt.Sprintf("%s %s", StatusIcon(level), lipgloss.NewStyle().Foreground(bg).Render(text))
}
