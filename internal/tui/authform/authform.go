// ABOUTME: Sign-in and sign-up screen as a bubbletea model
// ABOUTME: Builds one huh form per auth step and hands submissions to the app

package authform

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/neves-cloud/blackbox/internal/flow"
	"github.com/neves-cloud/blackbox/internal/tui/styles"
	"github.com/neves-cloud/blackbox/internal/tui/widgets"
)

// SubmitMsg carries a request the app must execute
type SubmitMsg struct {
	Req flow.AuthRequest
}

var (
	loginSteps  = []string{"Credentials", "Code"}
	signupSteps = []string{"Email", "Verify", "Password"}
)

// Form drives a *flow.Auth from keyboard input
type Form struct {
	auth  *flow.Auth
	form  *huh.Form
	built flow.AuthState
	width int

	email    string
	password string
	confirm  string
	code     string
}

// New creates the form for the auth flow's current step
func New(auth *flow.Auth) *Form {
	f := &Form{auth: auth}
	f.rebuild()
	return f
}

// Init implements tea.Model
func (f *Form) Init() tea.Cmd {
	return f.form.Init()
}

// Sync rebuilds the form after the flow changed step or consumed a submission
func (f *Form) Sync() tea.Cmd {
	if f.built == f.auth.State() && f.form.State == huh.StateNormal {
		return nil
	}
	f.rebuild()
	return f.form.Init()
}

// SetWidth sets the render width
func (f *Form) SetWidth(width int) {
	f.width = width
	f.form = f.form.WithWidth(f.formWidth())
}

// Signup reports whether the form is on the sign-up path
func (f *Form) Signup() bool {
	switch f.auth.State() {
	case flow.EnterEmail, flow.AwaitingEmailCode, flow.EnterPassword:
		return true
	}
	return false
}

// Update implements tea.Model
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+t":
			if f.Signup() {
				f.auth.StartLogin()
			} else {
				f.auth.StartSignup()
			}
			return f, f.Sync()
		case "esc":
			if f.auth.State() != flow.EnterCredentials {
				f.auth.StartLogin()
				return f, f.Sync()
			}
			return f, nil
		}
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

// submit hands the completed form to the flow. Refused input rebuilds the
// form so the flow's message is shown next to a fresh field.
func (f *Form) submit() tea.Cmd {
	var (
		req flow.AuthRequest
		err error
	)
	switch f.built {
	case flow.EnterCredentials:
		req, err = f.auth.SubmitCredentials(f.email, f.password)
	case flow.AwaitingSecondFactor:
		req, err = f.auth.SubmitSecondFactor(f.code)
	case flow.EnterEmail:
		req, err = f.auth.RequestEmailCode(f.email)
	case flow.AwaitingEmailCode:
		req, err = f.auth.ConfirmEmailCode(f.code)
	case flow.EnterPassword:
		req, err = f.auth.CompleteSignup(f.password, f.confirm)
	default:
		return nil
	}
	if err != nil {
		f.rebuild()
		return f.form.Init()
	}
	return func() tea.Msg { return SubmitMsg{Req: req} }
}

func (f *Form) rebuild() {
	f.built = f.auth.State()
	if email := f.auth.Email(); email != "" {
		f.email = email
	}
	f.password, f.confirm, f.code = "", "", ""

	var group *huh.Group
	switch f.built {
	case flow.EnterCredentials:
		group = huh.NewGroup(
			emailInput(&f.email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password),
		).Title("Sign in")
	case flow.AwaitingSecondFactor:
		group = huh.NewGroup(codeInput(&f.code)).
			Title("Sign in").
			Description("Enter the code sent to " + f.email)
	case flow.EnterEmail:
		group = huh.NewGroup(emailInput(&f.email)).
			Title("Create an account").
			Description("We will mail you a verification code")
	case flow.AwaitingEmailCode:
		group = huh.NewGroup(codeInput(&f.code)).
			Title("Create an account").
			Description("Enter the code sent to " + f.email)
	case flow.EnterPassword:
		group = huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&f.confirm),
		).Title("Create an account")
	default:
		group = huh.NewGroup(huh.NewNote().Title("Signed in"))
	}

	f.form = huh.NewForm(group).
		WithTheme(styles.FormTheme()).
		WithShowHelp(false).
		WithWidth(f.formWidth())
}

func emailInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Email").
		Placeholder("driver@example.com").
		Value(value).
		Validate(func(s string) error {
			_, err := flow.ValidateEmail(s)
			return err
		})
}

func codeInput(value *string) *huh.Input {
	return huh.NewInput().
		Title("Code").
		CharLimit(12).
		Value(value).
		Validate(func(s string) error {
			_, err := flow.ValidateCode(s)
			return err
		})
}

func (f *Form) formWidth() int {
	return max(f.width-4, 40)
}

// step returns the progress names and the 1-based current step
func (f *Form) step() ([]string, int, string) {
	switch f.auth.State() {
	case flow.AwaitingSecondFactor:
		return loginSteps, 2, "Sign in"
	case flow.EnterEmail:
		return signupSteps, 1, "Sign up"
	case flow.AwaitingEmailCode:
		return signupSteps, 2, "Sign up"
	case flow.EnterPassword:
		return signupSteps, 3, "Sign up"
	default:
		return loginSteps, 1, "Sign in"
	}
}

// View implements tea.Model
func (f *Form) View() string {
	var sb strings.Builder

	names, current, title := f.step()
	sb.WriteString(widgets.Steps(title, names, current, f.width-1))
	sb.WriteString("\n\n")

	if msg := styles.Message(f.auth.Message(), f.auth.Notice()); msg != "" {
		sb.WriteString(msg)
		sb.WriteString("\n\n")
	}

	sb.WriteString(f.form.View())

	if f.auth.Pending() {
		sb.WriteString("\n")
		sb.WriteString(styles.Dim.Render("Checking your credentials..."))
	} else if f.auth.Busy() {
		sb.WriteString("\n")
		sb.WriteString(styles.Dim.Render("Working..."))
	}

	toggle := "ctrl+t create an account"
	if f.Signup() {
		toggle = "ctrl+t sign in instead  esc back"
	} else if f.auth.State() == flow.AwaitingSecondFactor {
		toggle = "esc start over"
	}
	sb.WriteString("\n")
	sb.WriteString(styles.Help.Render(toggle))

	return sb.String()
}
