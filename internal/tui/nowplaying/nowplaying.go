// ABOUTME: Playback panel showing the current segment and playlist position
// ABOUTME: Rendered beside the recording list while a day is being played

package nowplaying

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/flow"
	"github.com/neves-cloud/blackbox/internal/tui/icons"
	"github.com/neves-cloud/blackbox/internal/tui/styles"
	"github.com/neves-cloud/blackbox/internal/tui/widgets"
)

// Source is the read side of the browsing flow used by the panel
type Source interface {
	Phase() flow.Phase
	Segments() []client.Segment
	Current() (client.Segment, bool)
	CurrentIndex() int
	Advances() int
	Eager() bool
}

// Panel renders playback state
type Panel struct {
	source Source
	width  int
}

// New creates a playback panel
func New(source Source, width int) *Panel {
	return &Panel{source: source, width: width}
}

// SetWidth updates the panel width
func (p *Panel) SetWidth(width int) {
	p.width = width
}

// View renders the panel
func (p *Panel) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(icons.Play.String() + " Playback"))
	sb.WriteString("\n")

	segments := p.source.Segments()
	config := widgets.DefaultProgressBarConfig()
	config.Width = max(p.width-12, 10)

	switch p.source.Phase() {
	case flow.ResolvingURL, flow.Playing:
		seg, _ := p.source.Current()
		state := "Preparing"
		if p.source.Phase() == flow.Playing {
			state = "Playing"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", styles.KeyStyle.Render(state), styles.ValueStyle.Render(seg.RecordedAt.Format("15:04:05"))))
		sb.WriteString(styles.Dim.Render(seg.Length().Round(time.Second).String()))
		sb.WriteString("\n\n")
		sb.WriteString(widgets.PlaylistBarWithLabel(p.source.CurrentIndex(), len(segments), config))
	case flow.PlaylistDone:
		sb.WriteString(widgets.StatusText(fmt.Sprintf("Played %d of %d segments", p.source.Advances(), len(segments)), widgets.StatusOK))
		sb.WriteString("\n\n")
		sb.WriteString(widgets.PlaylistBarWithLabel(len(segments), len(segments), config))
	default:
		sb.WriteString(styles.Dim.Render("Idle"))
		if p.source.Advances() > 0 {
			sb.WriteString(styles.Dim.Render(fmt.Sprintf(" (stopped after %d)", p.source.Advances())))
		}
	}

	mode := "URLs signed on play"
	if p.source.Eager() {
		mode = "URLs signed with listing"
	}
	sb.WriteString("\n\n")
	sb.WriteString(styles.Dim.Render(mode))

	return lipgloss.NewStyle().Width(p.width).Render(sb.String())
}
