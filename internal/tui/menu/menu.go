// ABOUTME: Main menu shown after sign-in
// ABOUTME: Lets the user browse recordings, register a device, sign out or quit

package menu

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/neves-cloud/blackbox/internal/tui/styles"
)

// Action represents the selected menu entry
type Action int

const (
	ActionBrowse Action = iota
	ActionRegister
	ActionLogout
	ActionQuit
)

// SelectedMsg is sent when an entry is chosen
type SelectedMsg struct {
	Action Action
}

// CancelledMsg is sent when the menu is dismissed
type CancelledMsg struct{}

type option struct {
	label string
	value Action
}

// Menu represents the main menu
type Menu struct {
	options  []option
	selected Action
	form     *huh.Form
}

// New creates the main menu
func New() *Menu {
	m := &Menu{
		options: []option{
			{label: "Browse recordings", value: ActionBrowse},
			{label: "Register a device", value: ActionRegister},
			{label: "Sign out", value: ActionLogout},
			{label: "Quit", value: ActionQuit},
		},
		selected: ActionBrowse,
	}
	m.form = m.buildForm()
	return m
}

func (m *Menu) buildForm() *huh.Form {
	var options []huh.Option[Action]
	for _, opt := range m.options {
		options = append(options, huh.NewOption(opt.label, opt.value))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Action]().
				Title("What would you like to do?").
				Options(options...).
				Value(&m.selected),
		),
	).WithTheme(styles.FormTheme()).WithShowHelp(false)
}

// Reset returns the menu to its first entry
func (m *Menu) Reset() tea.Cmd {
	m.selected = ActionBrowse
	m.form = m.buildForm()
	return m.form.Init()
}

// Init implements tea.Model
func (m *Menu) Init() tea.Cmd {
	return m.form.Init()
}

// Update implements tea.Model
func (m *Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && (key.String() == "q" || key.String() == "esc") {
		return m, func() tea.Msg { return CancelledMsg{} }
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		action := m.selected
		return m, func() tea.Msg { return SelectedMsg{Action: action} }
	}
	return m, cmd
}

// View implements tea.Model
func (m *Menu) View() string {
	return m.form.View()
}

// String returns the string representation of an Action
func (a Action) String() string {
	switch a {
	case ActionBrowse:
		return "browse"
	case ActionRegister:
		return "register"
	case ActionLogout:
		return "logout"
	case ActionQuit:
		return "quit"
	default:
		return "unknown"
	}
}
