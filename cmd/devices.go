// ABOUTME: Device commands for the blackbox CLI
// ABOUTME: Lists registered dashcams and registers new ones

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/flow"
	"github.com/spf13/cobra"
)

var (
	registerID   string
	registerName string
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List registered devices",
	Long: `List the dashcams registered to your account with their health.

Exit codes:
  0 - Listed
  1 - Not signed in, or rejected by the service
  2 - Error (connectivity)`,
	Run: runCommand(func(ctx context.Context, d *deps, w io.Writer) int {
		return runDevices(ctx, newBrowse(d), w, time.Now())
	}),
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a device",
	Long: `Register a dashcam by the UUID printed on the unit.

Example:
  blackbox devices register --id 0b0c7a4e-6a47-4f0e-9d7f-3c1de0e5a001 --name "Family car"`,
	Run: runCommand(func(ctx context.Context, d *deps, w io.Writer) int {
		return runRegister(ctx, newBrowse(d), registerID, registerName, w)
	}),
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVar(&registerID, "id", "", "Device UUID")
	registerCmd.Flags().StringVar(&registerName, "name", "", "Nickname for the device")
}

// newBrowse builds the browsing flow. CLI commands exit on Unauthorized,
// so the forced logout only has to drop the stored token.
func newBrowse(d *deps) *flow.Browse {
	return flow.NewBrowse(d.client,
		flow.WithEagerURLs(d.cfg.EagerURLs),
		flow.OnUnauthorized(func(error) { d.store.Clear() }),
	)
}

func runDevices(ctx context.Context, b *flow.Browse, w io.Writer, now time.Time) int {
	if err := b.Run(ctx, b.LoadDevices()); err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(b.Devices()))
	} else {
		fmt.Fprintln(w, formatDevicesHuman(b.Devices(), now))
	}
	return exitOK
}

func runRegister(ctx context.Context, b *flow.Browse, id, name string, w io.Writer) int {
	req, err := b.RegisterDevice(id, name)
	if err != nil {
		return fail(w, err)
	}
	if err := b.Run(ctx, req); err != nil {
		return fail(w, err)
	}
	fmt.Fprintln(w, b.Notice())
	return exitOK
}

// formatDevicesHuman formats the device list for human readability
func formatDevicesHuman(devices []client.Device, now time.Time) string {
	if len(devices) == 0 {
		return "No devices registered. Add one with `blackbox devices register`."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %-20s  %-9s  %s\n", "ID", "NAME", "HEALTH", "LAST SEEN")
	for _, d := range devices {
		fmt.Fprintf(&b, "%-36s  %-20s  %-9s  %s\n", d.ID, truncate(d.Name, 20), d.Health(), lastSeen(d.LastSeenAt, now))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func lastSeen(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}
