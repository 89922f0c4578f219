// ABOUTME: Device registration form
// ABOUTME: Collects a device UUID and nickname with inline validation

package register

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/neves-cloud/blackbox/internal/flow"
	"github.com/neves-cloud/blackbox/internal/tui/icons"
	"github.com/neves-cloud/blackbox/internal/tui/styles"
)

// SubmitMsg is sent when the form is completed
type SubmitMsg struct {
	ID   string
	Name string
}

// CancelledMsg is sent when the form is dismissed
type CancelledMsg struct{}

// Form collects a new device registration
type Form struct {
	form  *huh.Form
	width int
	id    string
	name  string
}

// New creates an empty registration form
func New() *Form {
	f := &Form{}
	f.form = f.build()
	return f
}

func (f *Form) build() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Device ID").
				Description("The UUID printed on the unit").
				Placeholder("xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx").
				CharLimit(36).
				Value(&f.id).
				Validate(func(s string) error {
					_, err := flow.ValidateDeviceID(s)
					return err
				}),
			huh.NewInput().
				Title("Nickname").
				Placeholder("e.g., Family car").
				CharLimit(64).
				Value(&f.name).
				Validate(func(s string) error {
					_, err := flow.ValidateDeviceName(s)
					return err
				}),
		).Title(icons.Add.String() + " Register a device"),
	).WithTheme(styles.FormTheme()).WithShowHelp(false).WithWidth(max(f.width-4, 40))
}

// SetWidth sets the render width
func (f *Form) SetWidth(width int) {
	f.width = width
	f.form = f.form.WithWidth(max(width-4, 40))
}

// Init implements tea.Model
func (f *Form) Init() tea.Cmd {
	return f.form.Init()
}

// Update implements tea.Model
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		return f, func() tea.Msg { return CancelledMsg{} }
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	if f.form.State == huh.StateCompleted {
		return f, f.submit()
	}
	return f, cmd
}

func (f *Form) submit() tea.Cmd {
	submit := SubmitMsg{ID: strings.TrimSpace(f.id), Name: strings.TrimSpace(f.name)}
	return func() tea.Msg { return submit }
}

// View implements tea.Model
func (f *Form) View() string {
	return f.form.View() + "\n" + styles.Help.Render("enter next  esc cancel")
}
