// ABOUTME: Playlist progress bar for the now-playing panel
// ABOUTME: Shows finished, current and queued segments as one bar

package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBarConfig holds configuration for the progress bar
type ProgressBarConfig struct {
	Width        int
	DoneColor    lipgloss.Color
	CurrentColor lipgloss.Color
	EmptyColor   lipgloss.Color
}

// DefaultProgressBarConfig returns sensible defaults
func DefaultProgressBarConfig() ProgressBarConfig {
	return ProgressBarConfig{
		Width:        30,
		DoneColor:    lipgloss.Color("#10B981"), // Green
		CurrentColor: lipgloss.Color("#22D3EE"), // Cyan
		EmptyColor:   lipgloss.Color("#374151"), // Dark gray
	}
}

// PlaylistBar renders position (0-based) within total segments. A negative
// position draws an empty bar; position == total draws a full one.
func PlaylistBar(position, total int, config ProgressBarConfig) string {
	if config.Width <= 0 {
		config.Width = 30
	}
	if total <= 0 {
		return "[" + lipgloss.NewStyle().Foreground(config.EmptyColor).Render(strings.Repeat("░", config.Width)) + "]"
	}
	position = min(max(position, -1), total)

	doneCells := position * config.Width / total
	currentCells := 0
	if position >= 0 && position < total {
		currentCells = max(1, (position+1)*config.Width/total-doneCells)
	}
	emptyCells := max(0, config.Width-doneCells-currentCells)

	var bar strings.Builder
	bar.WriteString("[")
	bar.WriteString(lipgloss.NewStyle().Foreground(config.DoneColor).Render(strings.Repeat("█", max(doneCells, 0))))
	bar.WriteString(lipgloss.NewStyle().Foreground(config.CurrentColor).Render(strings.Repeat("▓", currentCells)))
	bar.WriteString(lipgloss.NewStyle().Foreground(config.EmptyColor).Render(strings.Repeat("░", emptyCells)))
	bar.WriteString("]")
	return bar.String()
}

// PlaylistBarWithLabel appends "n/total" to the bar
func PlaylistBarWithLabel(position, total int, config ProgressBarConfig) string {
	shown := min(max(position+1, 0), total)
	return fmt.Sprintf("%s %d/%d", PlaylistBar(position, total, config), shown, total)
}
