// ABOUTME: Health command for the blackbox CLI
// ABOUTME: Probes the identity, device and signing services concurrently

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check service connectivity",
	Long: `Check connectivity to the identity, device and signing services.

A service that answers with any HTTP status counts as reachable.

Exit codes:
  0 - All services reachable
  2 - One or more services unreachable`,
	Run: runCommand(runHealth),
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// serviceHealth is the probe result for one service
type serviceHealth struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// runHealth executes the health checks and returns exit code
func runHealth(ctx context.Context, d *deps, w io.Writer) int {
	eps := d.client.Endpoints()
	results := []serviceHealth{
		{Name: "identity", URL: eps.Identity},
		{Name: "status", URL: eps.Status},
		{Name: "play", URL: eps.Play},
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			results[i].Status, results[i].Detail = probe(gctx, d.client, results[i].URL)
			return nil
		})
	}
	g.Wait()

	if IsJSONOutput() {
		fmt.Fprintln(w, formatHealthJSON(results))
	} else {
		fmt.Fprintln(w, formatHealthHuman(results))
	}

	for _, r := range results {
		if r.Status == "unreachable" {
			return exitError
		}
	}
	return exitOK
}

func probe(ctx context.Context, c *client.Client, url string) (status, detail string) {
	err := c.Health(ctx, url)
	var rejected *client.RejectedError
	switch {
	case err == nil:
		return "ok", ""
	case errors.As(err, &rejected):
		return "ok", fmt.Sprintf("responded %d", rejected.StatusCode)
	default:
		return "unreachable", err.Error()
	}
}

// formatHealthHuman formats health results for human readability
func formatHealthHuman(results []serviceHealth) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%-9s %-12s %s", r.Name+":", r.Status, r.URL)
		if r.Detail != "" {
			fmt.Fprintf(&b, " (%s)", r.Detail)
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// formatHealthJSON formats health results as JSON
func formatHealthJSON(results []serviceHealth) string {
	data, _ := json.MarshalIndent(map[string]any{"services": results}, "", "  ")
	return string(data)
}
