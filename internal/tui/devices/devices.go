// ABOUTME: Device list screen with health badges and last-seen times
// ABOUTME: Emits selection, refresh and register requests to the app

package devices

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/tui/icons"
	"github.com/neves-cloud/blackbox/internal/tui/styles"
	"github.com/neves-cloud/blackbox/internal/tui/widgets"
)

// SelectedMsg is sent when a device is chosen
type SelectedMsg struct {
	ID string
}

// RefreshMsg asks the app to reload the device list
type RefreshMsg struct{}

// RegisterMsg asks the app to open the registration form
type RegisterMsg struct{}

// BackMsg is sent when the user leaves the list
type BackMsg struct{}

// Source is the read side of the browsing flow used by this screen
type Source interface {
	Devices() []client.Device
	DevicesLoading() bool
	DeviceID() string
	Message() string
	Notice() string
}

// List displays registered devices
type List struct {
	source Source
	cursor int
	width  int
	height int
	now    func() time.Time
}

// New creates a device list over source
func New(source Source, width, height int) *List {
	return &List{source: source, width: width, height: height, now: time.Now}
}

// SetSize updates the list dimensions
func (l *List) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// Init implements tea.Model
func (l *List) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (l *List) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}
	devices := l.source.Devices()
	l.cursor = min(l.cursor, max(len(devices)-1, 0))

	switch key.String() {
	case "up", "k":
		if l.cursor > 0 {
			l.cursor--
		}
	case "down", "j":
		if l.cursor < len(devices)-1 {
			l.cursor++
		}
	case "enter":
		if len(devices) > 0 {
			id := devices[l.cursor].ID
			return l, func() tea.Msg { return SelectedMsg{ID: id} }
		}
	case "r":
		return l, func() tea.Msg { return RefreshMsg{} }
	case "n":
		return l, func() tea.Msg { return RegisterMsg{} }
	case "b", "esc":
		return l, func() tea.Msg { return BackMsg{} }
	}
	return l, nil
}

// Cursor returns the highlighted row
func (l *List) Cursor() int {
	return l.cursor
}

// View implements tea.Model
func (l *List) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(icons.Camera.String() + " Devices"))
	sb.WriteString("\n")

	if msg := styles.Message(l.source.Message(), l.source.Notice()); msg != "" {
		sb.WriteString(msg)
		sb.WriteString("\n\n")
	}

	devices := l.source.Devices()
	switch {
	case len(devices) == 0 && l.source.DevicesLoading():
		sb.WriteString(styles.Dim.Render("Loading devices..."))
	case len(devices) == 0:
		sb.WriteString(styles.Dim.Render("No devices registered. Press n to register one."))
	default:
		for i, d := range devices {
			sb.WriteString(l.renderRow(i, d))
			sb.WriteString("\n")
		}
		if l.source.DevicesLoading() {
			sb.WriteString(styles.Dim.Render(icons.Refresh.String() + " refreshing"))
		}
	}

	return lipgloss.NewStyle().
		Width(l.width).
		Height(l.height).
		Render(sb.String())
}

func (l *List) renderRow(i int, d client.Device) string {
	marker := "  "
	nameStyle := styles.Normal
	if i == l.cursor {
		marker = styles.KeyStyle.Render("> ")
		nameStyle = styles.Selected
	}
	active := " "
	if d.ID == l.source.DeviceID() {
		active = styles.Notice.Render("●")
	}

	name := d.Name
	if name == "" {
		name = d.ID
	}
	return fmt.Sprintf("%s%s %s %s  %s",
		marker,
		active,
		nameStyle.Render(name),
		widgets.HealthBadge(d),
		styles.Dim.Render(l.lastSeen(d)),
	)
}

func (l *List) lastSeen(d client.Device) string {
	if d.LastSeenAt.IsZero() {
		return "never seen"
	}
	return "seen " + humanize.RelTime(d.LastSeenAt, l.now(), "ago", "from now")
}
