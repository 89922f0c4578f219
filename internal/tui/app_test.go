// ABOUTME: Integration tests for TUI app
// ABOUTME: Drives screens through the flows with an in-memory service and player

package tui

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/flow"
	"github.com/neves-cloud/blackbox/internal/session"
	"github.com/neves-cloud/blackbox/internal/tui/authform"
	"github.com/neves-cloud/blackbox/internal/tui/devices"
	"github.com/neves-cloud/blackbox/internal/tui/menu"
	"github.com/neves-cloud/blackbox/internal/tui/recordings"
	"github.com/neves-cloud/blackbox/internal/tui/register"
)

const frontID = "3f2a6c1e-9b7d-4e2f-8a1b-0c9d8e7f6a5b"

type fakeAPI struct {
	devices  []client.Device
	listErr  error
	segments []client.Segment
	signed   []string
}

func (f *fakeAPI) RequestEmailCode(ctx context.Context, email string) error           { return nil }
func (f *fakeAPI) ConfirmEmailCode(ctx context.Context, email, code string) error     { return nil }
func (f *fakeAPI) SignUp(ctx context.Context, email, password string) (string, error) { return "", nil }
func (f *fakeAPI) SubmitPassword(ctx context.Context, email, password string) error   { return nil }

func (f *fakeAPI) VerifySignIn(ctx context.Context, email, code string) (string, error) {
	return "tok", nil
}

func (f *fakeAPI) ListDevices(ctx context.Context) ([]client.Device, error) {
	return f.devices, f.listErr
}

func (f *fakeAPI) RegisterDevice(ctx context.Context, id, name string) error {
	f.devices = append(f.devices, client.Device{ID: id, Name: name})
	return nil
}

func (f *fakeAPI) ListSegments(ctx context.Context, deviceID string, day client.Day) ([]client.Segment, error) {
	return f.segments, nil
}

func (f *fakeAPI) SignURL(ctx context.Context, objectKey string) (string, error) {
	f.signed = append(f.signed, objectKey)
	return "https://cdn.example.com/" + objectKey, nil
}

func (f *fakeAPI) SignURLs(ctx context.Context, objectKeys []string) (map[string]string, error) {
	urls := make(map[string]string, len(objectKeys))
	for _, k := range objectKeys {
		urls[k] = "https://cdn.example.com/" + k
	}
	return urls, nil
}

type fakeLauncher struct {
	urls []string
}

func (f *fakeLauncher) Command(ctx context.Context, url string) *exec.Cmd {
	f.urls = append(f.urls, url)
	return exec.CommandContext(ctx, "true")
}

func sampleAPI() *fakeAPI {
	start := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.Local)
	return &fakeAPI{
		devices: []client.Device{{ID: frontID, Name: "Front", HealthStatus: "HEALTHY"}},
		segments: []client.Segment{
			{ObjectKey: "a.mp4", RecordedAt: start, Duration: 60},
			{ObjectKey: "b.mp4", RecordedAt: start.Add(time.Minute), Duration: 60},
		},
	}
}

func newApp(api *fakeAPI, token string) (*App, *fakeLauncher, session.Store) {
	store := session.NewMemoryStore(token)
	player := &fakeLauncher{}
	app := New(context.Background(), api, store, player, Options{})
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return app, player, store
}

// settle runs cmd and feeds back the flow results it produces
func settle(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			settle(t, app, c)
		}
	case browseResultMsg, authResultMsg:
		_, next := app.Update(msg)
		settle(t, app, next)
	}
}

func TestAppInitialState(t *testing.T) {
	app, _, _ := newApp(sampleAPI(), "")
	if app.screen != ScreenAuth {
		t.Errorf("expected ScreenAuth without a session, got %d", app.screen)
	}

	app, _, _ = newApp(sampleAPI(), "tok")
	if app.screen != ScreenMenu {
		t.Errorf("expected ScreenMenu with a stored session, got %d", app.screen)
	}
}

func TestScreenConstants(t *testing.T) {
	if ScreenAuth != 0 {
		t.Errorf("expected ScreenAuth to be 0, got %d", ScreenAuth)
	}
	if ScreenRecordings != 4 {
		t.Errorf("expected ScreenRecordings to be 4, got %d", ScreenRecordings)
	}
}

func TestAppLoginReachesMenu(t *testing.T) {
	app, _, store := newApp(sampleAPI(), "")

	req, err := app.auth.SubmitCredentials("driver@example.com", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	app.Update(authform.SubmitMsg{Req: req})
	app.Update(app.execAuth(req)())
	if app.auth.State() != flow.AwaitingSecondFactor || app.screen != ScreenAuth {
		t.Fatalf("expected code step, got %s on screen %d", app.auth.State(), app.screen)
	}

	req, err = app.auth.SubmitSecondFactor("123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	app.Update(app.execAuth(req)())

	if app.screen != ScreenMenu {
		t.Errorf("expected ScreenMenu after sign in, got %d", app.screen)
	}
	if token, _ := store.Load(); token != "tok" {
		t.Errorf("expected stored token, got %q", token)
	}
}

func TestAppPlaysDayInOrder(t *testing.T) {
	api := sampleAPI()
	app, player, _ := newApp(api, "tok")
	settle(t, app, app.loadDevices())

	_, cmd := app.Update(devices.SelectedMsg{ID: frontID})
	if app.screen != ScreenRecordings {
		t.Fatalf("expected ScreenRecordings, got %d", app.screen)
	}
	settle(t, app, cmd)
	if app.browse.Phase() != flow.SegmentsListed {
		t.Fatalf("expected listed segments, got %s", app.browse.Phase())
	}
	if !strings.Contains(app.View(), "Front") {
		t.Error("expected device name in view")
	}

	_, cmd = app.Update(recordings.PlayMsg{Key: "a.mp4"})
	settle(t, app, cmd)
	if app.playing != "a.mp4" {
		t.Fatalf("expected a.mp4 handed to player, got %q", app.playing)
	}

	_, cmd = app.Update(playerExitedMsg{key: "a.mp4"})
	settle(t, app, cmd)
	if app.playing != "b.mp4" {
		t.Fatalf("expected b.mp4 handed to player, got %q", app.playing)
	}

	_, cmd = app.Update(playerExitedMsg{key: "b.mp4"})
	settle(t, app, cmd)
	if app.browse.Phase() != flow.PlaylistDone {
		t.Errorf("expected PlaylistDone, got %s", app.browse.Phase())
	}
	if app.browse.Advances() != 2 {
		t.Errorf("expected 2 advances, got %d", app.browse.Advances())
	}
	if len(player.urls) != 2 || player.urls[1] != "https://cdn.example.com/b.mp4" {
		t.Errorf("unexpected player urls %v", player.urls)
	}
}

func TestAppLatestPickWinsWhenURLsArriveOutOfOrder(t *testing.T) {
	api := sampleAPI()
	app, player, _ := newApp(api, "tok")
	settle(t, app, app.loadDevices())
	_, cmd := app.Update(devices.SelectedMsg{ID: frontID})
	settle(t, app, cmd)

	_, first := app.Update(recordings.PlayMsg{Key: "a.mp4"})
	_, second := app.Update(recordings.PlayMsg{Key: "b.mp4"})
	settle(t, app, second)
	settle(t, app, first)

	if app.playing != "b.mp4" {
		t.Fatalf("expected b.mp4 handed to player, got %q", app.playing)
	}
	if app.browse.Phase() != flow.Playing || app.browse.CurrentIndex() != 1 {
		t.Errorf("expected b.mp4 playing, got %s at %d", app.browse.Phase(), app.browse.CurrentIndex())
	}
	if len(player.urls) != 1 || player.urls[0] != "https://cdn.example.com/b.mp4" {
		t.Errorf("unexpected player urls %v", player.urls)
	}
}

func TestAppIgnoresExitOfOtherSegment(t *testing.T) {
	api := sampleAPI()
	app, _, _ := newApp(api, "tok")
	settle(t, app, app.loadDevices())
	_, cmd := app.Update(devices.SelectedMsg{ID: frontID})
	settle(t, app, cmd)
	_, cmd = app.Update(recordings.PlayMsg{Key: "a.mp4"})
	settle(t, app, cmd)

	_, cmd = app.Update(playerExitedMsg{key: "b.mp4"})
	if cmd != nil {
		t.Error("expected no command for an unrelated exit")
	}
	if app.playing != "a.mp4" || app.browse.Advances() != 0 {
		t.Errorf("expected playback unchanged, playing %q advances %d", app.playing, app.browse.Advances())
	}
}

func TestAppPlayerErrorStopsAutoplay(t *testing.T) {
	api := sampleAPI()
	app, _, _ := newApp(api, "tok")
	settle(t, app, app.loadDevices())
	_, cmd := app.Update(devices.SelectedMsg{ID: frontID})
	settle(t, app, cmd)
	_, cmd = app.Update(recordings.PlayMsg{Key: "a.mp4"})
	settle(t, app, cmd)

	_, cmd = app.Update(playerExitedMsg{key: "a.mp4", err: errors.New("exit status 4")})
	if cmd != nil {
		t.Error("expected no follow-up after a player failure")
	}
	if app.browse.Phase() != flow.SegmentsListed {
		t.Errorf("expected SegmentsListed, got %s", app.browse.Phase())
	}
	if !strings.Contains(app.View(), "Player stopped") {
		t.Error("expected player error in view")
	}
}

func TestAppUnauthorizedReturnsToSignIn(t *testing.T) {
	api := sampleAPI()
	api.listErr = &client.RejectedError{StatusCode: 401}
	app, _, store := newApp(api, "tok")
	app.screen = ScreenDevices

	app.Update(app.execBrowse(app.browse.LoadDevices())())

	if app.screen != ScreenAuth {
		t.Errorf("expected ScreenAuth, got %d", app.screen)
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("expected session cleared, got %v", err)
	}
	if app.auth.Notice() == "" {
		t.Error("expected a notice explaining the sign out")
	}
}

func TestAppLogout(t *testing.T) {
	app, _, store := newApp(sampleAPI(), "tok")

	app.Update(menu.SelectedMsg{Action: menu.ActionLogout})

	if app.screen != ScreenAuth {
		t.Errorf("expected ScreenAuth, got %d", app.screen)
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("expected session cleared, got %v", err)
	}
}

func TestAppRegisterRefreshesDevices(t *testing.T) {
	api := sampleAPI()
	app, _, _ := newApp(api, "tok")

	app.Update(menu.SelectedMsg{Action: menu.ActionRegister})
	if app.screen != ScreenRegister {
		t.Fatalf("expected ScreenRegister, got %d", app.screen)
	}

	_, cmd := app.Update(register.SubmitMsg{ID: "11111111-2222-3333-4444-555555555555", Name: "Rear"})
	if app.screen != ScreenDevices {
		t.Errorf("expected ScreenDevices, got %d", app.screen)
	}
	settle(t, app, cmd)

	if len(app.browse.Devices()) != 2 {
		t.Errorf("expected refreshed list with 2 devices, got %d", len(app.browse.Devices()))
	}
	if !strings.Contains(app.View(), "Registered Rear.") {
		t.Error("expected registration notice in view")
	}
}

func TestAppRegisterInvalidStaysLocal(t *testing.T) {
	api := sampleAPI()
	app, _, _ := newApp(api, "tok")

	_, cmd := app.Update(register.SubmitMsg{ID: "not-a-uuid", Name: "Rear"})
	if cmd != nil {
		t.Error("expected no network step for an invalid id")
	}
	if app.browse.Message() == "" {
		t.Error("expected validation message")
	}
}

func TestAppQuitKeys(t *testing.T) {
	app, _, _ := newApp(sampleAPI(), "")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}
