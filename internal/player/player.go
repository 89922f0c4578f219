// ABOUTME: Runs an external media player for one signed URL at a time
// ABOUTME: The process exiting is the end-of-segment event

package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// ErrNotFound means the configured player binary is not on PATH.
var ErrNotFound = errors.New("player not found")

// Player launches a media player command
type Player struct {
	Path string
	Args []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a player bound to the process's terminal
func New(path string, args ...string) *Player {
	return &Player{
		Path:   path,
		Args:   args,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Check verifies the player binary can be found
func (p *Player) Check() error {
	if _, err := exec.LookPath(p.Path); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, p.Path)
	}
	return nil
}

// Command builds the process for url. A "{url}" argument is replaced in
// place; otherwise the url is appended.
func (p *Player) Command(ctx context.Context, url string) *exec.Cmd {
	args := make([]string, 0, len(p.Args)+1)
	substituted := false
	for _, a := range p.Args {
		if strings.Contains(a, "{url}") {
			a = strings.ReplaceAll(a, "{url}", url)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, url)
	}

	cmd := exec.CommandContext(ctx, p.Path, args...)
	cmd.Stdin = p.Stdin
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	return cmd
}

// Play blocks until the player exits. A non-zero exit is reported but the
// segment still counts as ended.
func (p *Player) Play(ctx context.Context, url string) error {
	slog.Debug("Starting player", "player", p.Path)
	if err := p.Command(ctx, url).Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			slog.Warn("Player exited with error", "player", p.Path, "code", exitErr.ExitCode())
			return nil
		}
		return fmt.Errorf("failed to run %s: %w", p.Path, err)
	}
	return nil
}
