// ABOUTME: Recording browser for one device and one day
// ABOUTME: Date entry plus a segment list; playback starts from the highlighted row

package recordings

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/flow"
	"github.com/neves-cloud/blackbox/internal/tui/icons"
	"github.com/neves-cloud/blackbox/internal/tui/styles"
)

type state int

const (
	stateList state = iota
	stateDate
)

// DayMsg asks the app to list the segments of a day
type DayMsg struct {
	Day client.Day
}

// PlayMsg asks the app to start playback at a segment
type PlayMsg struct {
	Key string
}

// StopMsg asks the app to stop playback
type StopMsg struct{}

// BackMsg is sent when the user leaves the browser
type BackMsg struct{}

// Source is the read side of the browsing flow used by this screen
type Source interface {
	Phase() flow.Phase
	Day() client.Day
	Segments() []client.Segment
	CurrentIndex() int
	Resolved(key string) bool
	Message() string
	Notice() string
}

// Browser lists a day's segments
type Browser struct {
	source    Source
	title     string
	cursor    int
	state     state
	dateInput textinput.Model
	err       string
	width     int
	height    int
	now       func() time.Time
}

// New creates a browser over source. title names the selected device.
func New(source Source, title string, width, height int) *Browser {
	ti := textinput.New()
	ti.Placeholder = "YYYY-MM-DD, today or yesterday"
	ti.CharLimit = 10
	ti.Width = 32
	ti.Prompt = icons.Calendar.String() + " "

	return &Browser{
		source:    source,
		title:     title,
		dateInput: ti,
		width:     width,
		height:    height,
		now:       time.Now,
	}
}

// SetSize updates the browser dimensions
func (b *Browser) SetSize(width, height int) {
	b.width = width
	b.height = height
}

// Init implements tea.Model
func (b *Browser) Init() tea.Cmd {
	return nil
}

// Editing reports whether the date input has focus
func (b *Browser) Editing() bool {
	return b.state == stateDate
}

// Cursor returns the highlighted row
func (b *Browser) Cursor() int {
	return b.cursor
}

// Update implements tea.Model
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if b.state == stateDate {
			var cmd tea.Cmd
			b.dateInput, cmd = b.dateInput.Update(msg)
			return b, cmd
		}
		return b, nil
	}

	b.err = ""
	if b.state == stateDate {
		return b.updateDate(key)
	}
	return b.updateList(key)
}

func (b *Browser) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	segments := b.source.Segments()
	b.cursor = min(b.cursor, max(len(segments)-1, 0))

	switch msg.String() {
	case "up", "k":
		if b.cursor > 0 {
			b.cursor--
		}
	case "down", "j":
		if b.cursor < len(segments)-1 {
			b.cursor++
		}
	case "enter", "p":
		if len(segments) > 0 {
			key := segments[b.cursor].ObjectKey
			return b, func() tea.Msg { return PlayMsg{Key: key} }
		}
	case "[":
		return b, b.requestDay(b.day().AddDays(-1))
	case "]":
		return b, b.requestDay(b.day().AddDays(1))
	case "r":
		return b, b.requestDay(b.day())
	case "d", "/":
		b.state = stateDate
		b.dateInput.SetValue("")
		return b, b.dateInput.Focus()
	case "s":
		return b, func() tea.Msg { return StopMsg{} }
	case "b", "esc":
		return b, func() tea.Msg { return BackMsg{} }
	}
	return b, nil
}

func (b *Browser) updateDate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		b.state = stateList
		b.dateInput.Blur()
		return b, nil
	case "enter":
		day, err := client.ParseDay(b.dateInput.Value(), b.now())
		if err != nil {
			b.err = flow.Describe(err)
			return b, nil
		}
		b.state = stateList
		b.dateInput.Blur()
		return b, b.requestDay(day)
	}

	var cmd tea.Cmd
	b.dateInput, cmd = b.dateInput.Update(msg)
	return b, cmd
}

func (b *Browser) day() client.Day {
	if d := b.source.Day(); !d.IsZero() {
		return d
	}
	return client.DayOf(b.now())
}

func (b *Browser) requestDay(day client.Day) tea.Cmd {
	b.cursor = 0
	return func() tea.Msg { return DayMsg{Day: day} }
}

// View implements tea.Model
func (b *Browser) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(icons.Film.String() + " " + b.title))
	sb.WriteString("\n")

	day := "no day selected"
	if d := b.source.Day(); !d.IsZero() {
		day = d.String()
	}
	sb.WriteString(styles.KeyStyle.Render(icons.Calendar.String()+" ") + styles.ValueStyle.Render(day))
	sb.WriteString("\n\n")

	if b.state == stateDate {
		sb.WriteString(b.dateInput.View())
		sb.WriteString("\n\n")
	}

	errText := b.err
	if errText == "" {
		errText = b.source.Message()
	}
	if msg := styles.Message(errText, b.source.Notice()); msg != "" {
		sb.WriteString(msg)
		sb.WriteString("\n\n")
	}

	segments := b.source.Segments()
	switch {
	case b.source.Phase() == flow.FetchingSegments:
		sb.WriteString(styles.Dim.Render("Loading recordings..."))
	case b.source.Phase() == flow.DeviceSelected:
		sb.WriteString(styles.Dim.Render("Pick a day to list recordings."))
	case len(segments) == 0:
		sb.WriteString(styles.Dim.Render("No recordings on this day."))
	default:
		var total time.Duration
		var size uint64
		for _, s := range segments {
			total += s.Length()
			size += s.Bytes()
		}
		sb.WriteString(styles.Subtitle.Render(fmt.Sprintf("%d segments, %s, %s",
			len(segments), total.Round(time.Second), humanize.Bytes(size))))
		sb.WriteString("\n")
		for i, s := range segments {
			sb.WriteString(b.renderRow(i, s))
			sb.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(b.width).
		Height(b.height).
		Render(sb.String())
}

func (b *Browser) renderRow(i int, s client.Segment) string {
	marker := "  "
	style := styles.Normal
	if i == b.cursor {
		marker = styles.KeyStyle.Render("> ")
		style = styles.Selected
	}

	status := " "
	switch {
	case i == b.source.CurrentIndex():
		status = styles.Notice.Render(icons.Play.String())
	case b.source.Resolved(s.ObjectKey):
		status = styles.Dim.Render(icons.Queue.String())
	}

	return fmt.Sprintf("%s%s %s  %s  %s",
		marker,
		status,
		style.Render(s.RecordedAt.Format("15:04:05")),
		styles.Dim.Render(s.Length().Round(time.Second).String()),
		styles.Dim.Render(humanize.Bytes(s.Bytes())),
	)
}
