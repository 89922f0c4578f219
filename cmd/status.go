// ABOUTME: Status command for the blackbox CLI
// ABOUTME: Shows whether a session is stored and when it expires

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neves-cloud/blackbox/internal/session"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Long: `Display whether you are signed in, as whom, and when the session expires.

Exit codes:
  0 - Signed in
  1 - Not signed in or session expired
  2 - Error reading the session`,
	Run: runCommand(func(ctx context.Context, d *deps, w io.Writer) int {
		return runStatus(d.store, time.Now(), w)
	}),
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// sessionStatus is the JSON form of the status output
type sessionStatus struct {
	SignedIn  bool       `json:"signed_in"`
	Subject   string     `json:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// runStatus reports the stored session and returns exit code
func runStatus(store session.Store, now time.Time, w io.Writer) int {
	status, err := readStatus(store)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatStatusJSON(status))
	} else {
		fmt.Fprintln(w, formatStatusHuman(status, now))
	}

	if !status.SignedIn {
		return exitRejected
	}
	return exitOK
}

func readStatus(store session.Store) (sessionStatus, error) {
	token, err := store.Load()
	switch {
	case errors.Is(err, session.ErrNoSession):
		return sessionStatus{Reason: "not signed in"}, nil
	case errors.Is(err, session.ErrExpired):
		return sessionStatus{Reason: "session expired"}, nil
	case err != nil:
		return sessionStatus{}, err
	}

	status := sessionStatus{SignedIn: true}
	if claims, ok := session.ParseClaims(token); ok {
		status.Subject = claims.Subject
		if !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt
			status.ExpiresAt = &exp
		}
	}
	return status, nil
}

// formatStatusHuman formats the session for human readability
func formatStatusHuman(s sessionStatus, now time.Time) string {
	if !s.SignedIn {
		return fmt.Sprintf("Session: %s\nRun `blackbox login` to sign in.", s.Reason)
	}

	subject := s.Subject
	if subject == "" {
		subject = "(opaque token)"
	}
	expires := "never (server decides)"
	if s.ExpiresAt != nil {
		expires = fmt.Sprintf("%s (%s)", s.ExpiresAt.Local().Format(time.DateTime), humanize.RelTime(*s.ExpiresAt, now, "ago", "from now"))
	}

	return fmt.Sprintf(`Session:  signed in
Account:  %s
Expires:  %s`, subject, expires)
}

// formatStatusJSON formats the session as JSON
func formatStatusJSON(s sessionStatus) string {
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
