// ABOUTME: Shared fixtures for command tests
// ABOUTME: One httptest server stands in for the identity, device and signing services

package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/neves-cloud/blackbox/internal/config"
	"github.com/neves-cloud/blackbox/internal/session"
)

// fakeServices records every request path it serves
type fakeServices struct {
	mu    sync.Mutex
	paths []string
	mux   *http.ServeMux
}

func newFakeServices() *fakeServices {
	return &fakeServices{mux: http.NewServeMux()}
}

func (f *fakeServices) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
	f.mux.ServeHTTP(w, r)
}

func (f *fakeServices) handle(pattern string, status int, body any) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, body)
	})
}

func (f *fakeServices) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// testDeps points every service at one server and keeps the session in memory
func testDeps(t *testing.T, h http.Handler, token string) *deps {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	cfg := config.Defaults()
	cfg.IdentityURL = server.URL
	cfg.StatusURL = server.URL
	cfg.PlayURL = server.URL
	return newDeps(cfg, session.NewMemoryStore(token))
}

// scriptedPrompter answers prompts in order
type scriptedPrompter struct {
	answers []string
	titles  []string
}

func (p *scriptedPrompter) next(title string, value *string) error {
	p.titles = append(p.titles, title)
	if len(p.answers) == 0 {
		*value = ""
		return nil
	}
	*value, p.answers = p.answers[0], p.answers[1:]
	return nil
}

func (p *scriptedPrompter) Input(title, placeholder string, value *string) error {
	return p.next(title, value)
}

func (p *scriptedPrompter) Secret(title string, value *string) error {
	return p.next(title, value)
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func withJSONOutput(t *testing.T) {
	t.Helper()
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })
}

var testNow = time.Date(2025, time.March, 2, 12, 0, 0, 0, time.Local)
