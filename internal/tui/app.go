// ABOUTME: Root bubbletea model for the TUI application
// ABOUTME: Owns the auth and browse flows, routes input to screens and runs network steps

package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/flow"
	"github.com/neves-cloud/blackbox/internal/session"
	"github.com/neves-cloud/blackbox/internal/tui/authform"
	"github.com/neves-cloud/blackbox/internal/tui/devices"
	"github.com/neves-cloud/blackbox/internal/tui/icons"
	"github.com/neves-cloud/blackbox/internal/tui/menu"
	"github.com/neves-cloud/blackbox/internal/tui/nowplaying"
	"github.com/neves-cloud/blackbox/internal/tui/recordings"
	"github.com/neves-cloud/blackbox/internal/tui/register"
	"github.com/neves-cloud/blackbox/internal/tui/styles"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenAuth Screen = iota
	ScreenMenu
	ScreenDevices
	ScreenRegister
	ScreenRecordings
)

// Layout constants
const (
	minTerminalWidth = 80 // Minimum width before using single-column layout
	panelPadding     = 4  // Total horizontal padding from panel borders (2 each side)
	sidePaneWidth    = 36
)

// API is the combined service surface the TUI drives
type API interface {
	flow.IdentityAPI
	flow.DeviceAPI
}

// Launcher builds the external player process for a signed URL
type Launcher interface {
	Command(ctx context.Context, url string) *exec.Cmd
}

// Options tunes the TUI
type Options struct {
	EagerURLs bool
}

// authResultMsg carries a finished auth network step
type authResultMsg struct {
	res flow.AuthResult
}

// browseResultMsg carries a finished browse network step
type browseResultMsg struct {
	res flow.BrowseResult
}

// playerExitedMsg is sent when the player returns the terminal
type playerExitedMsg struct {
	key string
	err error
}

// App is the root model for the TUI
type App struct {
	ctx    context.Context
	store  session.Store
	auth   *flow.Auth
	browse *flow.Browse
	player Launcher

	screen     Screen
	width      int
	height     int
	subject    string
	lastUpdate time.Time
	playing    string // segment handed to the player
	playerErr  string

	// Child models
	authForm     *authform.Form
	menu         *menu.Menu
	deviceList   *devices.List
	registerForm *register.Form
	browser      *recordings.Browser
	panel        *nowplaying.Panel
}

// New creates the TUI application and restores any stored session
func New(ctx context.Context, api API, store session.Store, player Launcher, opts Options) *App {
	a := &App{
		ctx:    ctx,
		store:  store,
		player: player,
		screen: ScreenAuth,
		menu:   menu.New(),
	}
	a.auth = flow.NewAuth(api, store)
	a.browse = flow.NewBrowse(api,
		flow.WithEagerURLs(opts.EagerURLs),
		flow.OnUnauthorized(a.sessionRevoked),
	)
	a.deviceList = devices.New(a.browse, a.listWidth(), a.contentHeight())
	a.panel = nowplaying.New(a.browse, sidePaneWidth)

	if err := a.auth.Resume(); err != nil {
		slog.Warn("Failed to restore session", "error", err)
	}
	a.authForm = authform.New(a.auth)
	if a.auth.State() == flow.Authenticated {
		a.screen = ScreenMenu
		a.loadSubject()
	}
	return a
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	if a.screen == ScreenAuth {
		return a.authForm.Init()
	}
	return tea.Batch(a.menu.Init(), a.loadDevices())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.authForm.SetWidth(a.width)
		a.deviceList.SetSize(a.listWidth(), a.contentHeight())
		if a.registerForm != nil {
			a.registerForm.SetWidth(a.width)
		}
		if a.browser != nil {
			a.browser.SetSize(a.listWidth(), a.contentHeight())
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.routeKey(msg)

	case authform.SubmitMsg:
		return a, tea.Batch(a.authForm.Sync(), a.execAuth(msg.Req))

	case authResultMsg:
		if err := a.auth.Apply(msg.res); err != nil {
			slog.Debug("Auth step failed", "error", err)
		}
		if a.auth.State() == flow.Authenticated {
			return a, a.enterMenu()
		}
		return a, a.authForm.Sync()

	case menu.SelectedMsg:
		return a.handleMenu(msg.Action)

	case menu.CancelledMsg:
		return a, tea.Quit

	case devices.SelectedMsg:
		return a.openDevice(msg.ID)

	case devices.RefreshMsg:
		return a, a.loadDevices()

	case devices.RegisterMsg:
		return a, a.openRegister()

	case devices.BackMsg:
		return a, a.enterMenu()

	case register.SubmitMsg:
		a.screen = ScreenDevices
		a.registerForm = nil
		req, err := a.browse.RegisterDevice(msg.ID, msg.Name)
		if err != nil {
			return a, nil
		}
		return a, a.execBrowse(req)

	case register.CancelledMsg:
		a.screen = ScreenDevices
		a.registerForm = nil
		return a, nil

	case recordings.DayMsg:
		req, err := a.browse.FetchSegments(msg.Day)
		if err != nil {
			return a, nil
		}
		return a, a.execBrowse(req)

	case recordings.PlayMsg:
		a.playerErr = ""
		req, err := a.browse.Play(msg.Key)
		if err != nil {
			return a, nil
		}
		return a, a.execBrowse(req)

	case recordings.StopMsg:
		a.browse.Stop()
		return a, nil

	case recordings.BackMsg:
		a.screen = ScreenDevices
		return a, nil

	case browseResultMsg:
		return a.handleBrowseResult(msg.res)

	case playerExitedMsg:
		return a.handlePlayerExited(msg)

	default:
		// huh and textinput internals (cursor blink, focus) go to the active screen
		return a.routeOther(msg)
	}
}

func (a *App) routeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.screen {
	case ScreenAuth:
		_, cmd = a.authForm.Update(msg)
	case ScreenMenu:
		_, cmd = a.menu.Update(msg)
	case ScreenDevices:
		if msg.String() == "q" {
			return a, tea.Quit
		}
		_, cmd = a.deviceList.Update(msg)
	case ScreenRegister:
		if a.registerForm != nil {
			_, cmd = a.registerForm.Update(msg)
		}
	case ScreenRecordings:
		if a.browser != nil {
			if msg.String() == "q" && !a.browser.Editing() {
				return a, tea.Quit
			}
			_, cmd = a.browser.Update(msg)
		}
	}
	return a, cmd
}

func (a *App) routeOther(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.screen {
	case ScreenAuth:
		_, cmd = a.authForm.Update(msg)
	case ScreenMenu:
		_, cmd = a.menu.Update(msg)
	case ScreenRegister:
		if a.registerForm != nil {
			_, cmd = a.registerForm.Update(msg)
		}
	case ScreenRecordings:
		if a.browser != nil {
			_, cmd = a.browser.Update(msg)
		}
	}
	return a, cmd
}

func (a *App) handleMenu(action menu.Action) (tea.Model, tea.Cmd) {
	switch action {
	case menu.ActionBrowse:
		a.screen = ScreenDevices
		return a, a.loadDevices()
	case menu.ActionRegister:
		return a, a.openRegister()
	case menu.ActionLogout:
		return a, a.logout()
	case menu.ActionQuit:
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) openDevice(id string) (tea.Model, tea.Cmd) {
	if err := a.browse.SelectDevice(id); err != nil {
		return a, nil
	}
	title := id
	if d, ok := a.browse.Device(); ok && d.Name != "" {
		title = d.Name
	}
	a.browser = recordings.New(a.browse, title, a.listWidth(), a.contentHeight())
	a.screen = ScreenRecordings

	req, err := a.browse.FetchSegments(client.DayOf(time.Now()))
	if err != nil {
		return a, nil
	}
	return a, a.execBrowse(req)
}

func (a *App) openRegister() tea.Cmd {
	a.registerForm = register.New()
	a.registerForm.SetWidth(a.width)
	a.screen = ScreenRegister
	return a.registerForm.Init()
}

func (a *App) enterMenu() tea.Cmd {
	a.screen = ScreenMenu
	a.loadSubject()
	return tea.Batch(a.menu.Reset(), a.loadDevices())
}

func (a *App) logout() tea.Cmd {
	if err := a.auth.Logout(); err != nil {
		slog.Warn("Failed to clear session", "error", err)
	}
	a.browse.Reset()
	a.resetScreens()
	return a.authForm.Sync()
}

// sessionRevoked runs inside browse.Apply when a service refuses the session
func (a *App) sessionRevoked(reason error) {
	a.auth.Invalidate(reason)
	a.browse.Reset()
	a.resetScreens()
}

func (a *App) resetScreens() {
	a.screen = ScreenAuth
	a.subject = ""
	a.playing = ""
	a.playerErr = ""
	a.browser = nil
	a.registerForm = nil
}

func (a *App) handleBrowseResult(res flow.BrowseResult) (tea.Model, tea.Cmd) {
	next, err := a.browse.Apply(res)
	if a.screen == ScreenAuth {
		return a, a.authForm.Sync()
	}
	if err != nil {
		slog.Debug("Browse step failed", "error", err)
	} else {
		a.lastUpdate = time.Now()
	}

	var cmds []tea.Cmd
	if next != nil {
		cmds = append(cmds, a.execBrowse(*next))
	}
	cmds = append(cmds, a.startPlayer())
	return a, tea.Batch(cmds...)
}

// startPlayer hands the terminal to the player once a URL is resolved
func (a *App) startPlayer() tea.Cmd {
	if a.browse.Phase() != flow.Playing || a.playing != "" {
		return nil
	}
	seg, ok := a.browse.Current()
	if !ok {
		return nil
	}
	a.playing = seg.ObjectKey
	key := seg.ObjectKey
	slog.Info("Starting player", "segment", key)
	return tea.ExecProcess(a.player.Command(a.ctx, a.browse.CurrentURL()), func(err error) tea.Msg {
		return playerExitedMsg{key: key, err: err}
	})
}

// handlePlayerExited advances the playlist. A failed player stops autoplay.
func (a *App) handlePlayerExited(msg playerExitedMsg) (tea.Model, tea.Cmd) {
	if a.playing != msg.key {
		return a, nil
	}
	a.playing = ""

	if msg.err != nil {
		slog.Warn("Player exited with error", "segment", msg.key, "error", msg.err)
		a.playerErr = fmt.Sprintf("Player stopped: %v", msg.err)
		a.browse.Stop()
		return a, nil
	}

	req, ok := a.browse.SegmentEnded(msg.key)
	if !ok {
		return a, nil
	}
	return a, a.execBrowse(req)
}

func (a *App) loadSubject() {
	token, err := a.store.Load()
	if err != nil {
		return
	}
	if claims, ok := session.ParseClaims(token); ok {
		a.subject = claims.Subject
	}
}

// execAuth runs an auth network step off the UI goroutine
func (a *App) execAuth(req flow.AuthRequest) tea.Cmd {
	return func() tea.Msg {
		return authResultMsg{res: a.auth.Execute(a.ctx, req)}
	}
}

// execBrowse runs a browse network step off the UI goroutine
func (a *App) execBrowse(req flow.BrowseRequest) tea.Cmd {
	return func() tea.Msg {
		return browseResultMsg{res: a.browse.Execute(a.ctx, req)}
	}
}

func (a *App) loadDevices() tea.Cmd {
	return a.execBrowse(a.browse.LoadDevices())
}

// View implements tea.Model
func (a *App) View() string {
	var content string

	switch a.screen {
	case ScreenAuth:
		content = a.authForm.View()
	case ScreenMenu:
		content = a.viewMenu()
	case ScreenDevices:
		content = a.viewDevices()
	case ScreenRegister:
		if a.registerForm != nil {
			content = a.registerForm.View()
		}
	case ScreenRecordings:
		content = a.viewRecordings()
	}

	return a.wrapWithFrame(content)
}

func (a *App) viewMenu() string {
	var sb strings.Builder
	if a.subject != "" {
		sb.WriteString(styles.Dim.Render(icons.Lock.String() + " Signed in as " + a.subject))
		sb.WriteString("\n\n")
	}
	sb.WriteString(a.menu.View())
	return sb.String()
}

// viewDevices renders the device list with an actions pane
func (a *App) viewDevices() string {
	leftPane := styles.ActivePanel.Width(a.listWidth()).Render(a.deviceList.View())
	if a.width < minTerminalWidth {
		return leftPane
	}

	rightContent := styles.Title.Render("Actions") + "\n\n"
	rightContent += icons.Play.String() + " Open recordings\n"
	rightContent += icons.Add.String() + " Register device\n"
	rightContent += icons.Refresh.String() + " Refresh list\n"
	rightContent += icons.Back.String() + " Back to menu\n"
	rightContent += icons.Quit.String() + " Quit application\n"
	rightPane := styles.Panel.Width(a.sideWidth()).Render(rightContent)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
}

// viewRecordings renders the segment list with the playback panel
func (a *App) viewRecordings() string {
	if a.browser == nil {
		return ""
	}
	left := a.browser.View()
	if a.playerErr != "" {
		left = styles.Error.Render(a.playerErr) + "\n" + left
	}
	leftPane := styles.ActivePanel.Width(a.listWidth()).Render(left)
	if a.width < minTerminalWidth {
		return leftPane
	}

	a.panel.SetWidth(a.sideWidth() - panelPadding)
	rightPane := styles.Panel.Width(a.sideWidth()).Render(a.panel.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
}

// listWidth calculates the width for the main list pane
func (a *App) listWidth() int {
	if a.width < minTerminalWidth {
		return max(a.width-panelPadding, 20)
	}
	return a.width - panelPadding - a.sideWidth() - panelPadding
}

// sideWidth calculates the width for the right-hand pane
func (a *App) sideWidth() int {
	return sidePaneWidth
}

// contentHeight is the height left after header, footer and panel borders
func (a *App) contentHeight() int {
	return max(a.height-8, 5)
}

// renderHeader creates the header bar with app branding and context
func (a *App) renderHeader() string {
	width := max(a.width, minTerminalWidth)

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	contextStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	leftText := fmt.Sprintf(" %s %s ", icons.App.String(), titleStyle.Render("Blackbox"))

	var parts []string
	if a.screen == ScreenRecordings {
		if d, ok := a.browse.Device(); ok {
			parts = append(parts, d.Name)
		}
	}
	if a.subject != "" && a.screen != ScreenAuth {
		parts = append(parts, a.subject)
	}
	rightText := ""
	if len(parts) > 0 {
		rightText = " " + contextStyle.Render(strings.Join(parts, " · ")) + " "
	}

	fillWidth := max(width-4-lipgloss.Width(leftText)-lipgloss.Width(rightText), 0)
	header := "╭─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╮"

	return borderStyle.Render(header)
}

// renderFooter creates the footer with keyboard shortcuts and status
func (a *App) renderFooter() string {
	width := max(a.width, minTerminalWidth)

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	statusStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	shortcuts := a.shortcuts()

	var styled []string
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		if len(parts) == 2 {
			styled = append(styled, keyStyle.Render(parts[0])+" "+labelStyle.Render(parts[1]))
		} else {
			styled = append(styled, s)
		}
	}
	leftText := " " + strings.Join(styled, "  ") + " "

	rightText := ""
	if !a.lastUpdate.IsZero() && (a.screen == ScreenDevices || a.screen == ScreenRecordings) {
		rightText = " " + statusStyle.Render("Updated "+humanize.Time(a.lastUpdate)) + " "
	}

	// Drop shortcuts that do not fit rather than overflow the frame
	for len(styled) > 0 && lipgloss.Width(leftText)+lipgloss.Width(rightText)+4 > width {
		styled = styled[:len(styled)-1]
		leftText = " " + strings.Join(styled, "  ") + " "
	}

	fillWidth := max(width-4-lipgloss.Width(leftText)-lipgloss.Width(rightText), 0)
	footer := "╰─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╯"

	return borderStyle.Render(footer)
}

func (a *App) shortcuts() []string {
	switch a.screen {
	case ScreenAuth:
		return []string{"Enter Submit", "Tab Next", "Ctrl+C Quit"}
	case ScreenMenu:
		return []string{"↑↓ Navigate", "Enter Select", "q Quit"}
	case ScreenDevices:
		return []string{"↑↓ Navigate", "Enter Open", "n Register", "r Refresh", "b Back", "q Quit"}
	case ScreenRegister:
		return []string{"Enter Next", "Esc Cancel"}
	case ScreenRecordings:
		if a.browser != nil && a.browser.Editing() {
			return []string{"Enter Load", "Esc Cancel"}
		}
		return []string{"Enter Play", "[/] Day", "d Date", "s Stop", "b Back", "q Quit"}
	}
	return nil
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder

	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())

	return sb.String()
}

// Run starts the TUI and blocks until the user quits
func Run(ctx context.Context, api API, store session.Store, player Launcher, opts Options) error {
	app := New(ctx, api, store, player, opts)

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
