// ABOUTME: Segment listing and playback commands
// ABOUTME: Lists a day's recordings and plays them in capture order

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/flow"
	"github.com/neves-cloud/blackbox/internal/player"
	"github.com/spf13/cobra"
)

var (
	segmentDevice string
	segmentDate   string
	playEager     bool
	playFrom      string
)

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "List a day's recorded segments",
	Long: `List the segments a device recorded on one calendar day (local time).

--date accepts YYYY-MM-DD, "today" or "yesterday".`,
	Run: runCommand(func(ctx context.Context, d *deps, w io.Writer) int {
		return runSegments(ctx, newBrowse(d), segmentDevice, segmentDate, time.Now(), w)
	}),
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a day's segments back to back",
	Long: `Play a device's segments for one day in capture order using an external
media player. Each segment starts when the previous player exits; playback
stops after the last segment.

Example:
  blackbox play --device 0b0c7a4e-6a47-4f0e-9d7f-3c1de0e5a001 --date yesterday`,
	Run: runCommand(func(ctx context.Context, d *deps, w io.Writer) int {
		if playEager {
			d.cfg.EagerURLs = true
		}
		p := player.New(d.cfg.Player, d.cfg.PlayerArgs...)
		if err := p.Check(); err != nil {
			return fail(w, err)
		}
		return runPlay(ctx, newBrowse(d), p, segmentDevice, segmentDate, playFrom, time.Now(), w)
	}),
}

func init() {
	rootCmd.AddCommand(segmentsCmd, playCmd)
	for _, c := range []*cobra.Command{segmentsCmd, playCmd} {
		c.Flags().StringVar(&segmentDevice, "device", "", "Device UUID")
		c.Flags().StringVar(&segmentDate, "date", "today", "Day to list (YYYY-MM-DD, today, yesterday)")
		c.MarkFlagRequired("device")
	}
	playCmd.Flags().BoolVar(&playEager, "eager", false, "Resolve every playback URL in one batch up front")
	playCmd.Flags().StringVar(&playFrom, "from", "", "Object key to start from (default: first segment)")
}

// mediaPlayer blocks until one URL has finished playing
type mediaPlayer interface {
	Play(ctx context.Context, url string) error
}

// listDay selects the device and loads the segments for date
func listDay(ctx context.Context, b *flow.Browse, device, date string, now time.Time) error {
	day, err := client.ParseDay(date, now)
	if err != nil {
		return err
	}
	if err := b.SelectDevice(device); err != nil {
		return err
	}
	req, err := b.FetchSegments(day)
	if err != nil {
		return err
	}
	return b.Run(ctx, req)
}

func runSegments(ctx context.Context, b *flow.Browse, device, date string, now time.Time, w io.Writer) int {
	if err := listDay(ctx, b, device, date, now); err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(b.Segments()))
	} else {
		fmt.Fprintln(w, formatSegmentsHuman(b.Day(), b.Segments()))
	}
	return exitOK
}

func runPlay(ctx context.Context, b *flow.Browse, p mediaPlayer, device, date, from string, now time.Time, w io.Writer) int {
	if err := listDay(ctx, b, device, date, now); err != nil {
		return fail(w, err)
	}
	segments := b.Segments()
	if len(segments) == 0 {
		fmt.Fprintf(w, "No segments recorded on %s.\n", b.Day())
		return exitOK
	}

	if from == "" {
		from = segments[0].ObjectKey
	}
	req, err := b.Play(from)
	if err != nil {
		return fail(w, err)
	}

	for {
		if err := b.Run(ctx, req); err != nil {
			return fail(w, err)
		}
		cur, _ := b.Current()
		fmt.Fprintf(w, "▶ [%d/%d] %s %s\n", b.CurrentIndex()+1, len(segments), cur.RecordedAt.Format(time.TimeOnly), cur.ObjectKey)

		if err := p.Play(ctx, b.CurrentURL()); err != nil {
			return fail(w, err)
		}

		var more bool
		req, more = b.SegmentEnded(cur.ObjectKey)
		if !more {
			break
		}
	}

	fmt.Fprintf(w, "Played %d segment(s).\n", b.Advances())
	return exitOK
}

// formatSegmentsHuman formats a day's segments for human readability
func formatSegmentsHuman(day client.Day, segments []client.Segment) string {
	if len(segments) == 0 {
		return fmt.Sprintf("No segments recorded on %s.", day)
	}

	var b strings.Builder
	var total time.Duration
	var size uint64
	fmt.Fprintf(&b, "%-8s  %-8s  %-9s  %s\n", "TIME", "LENGTH", "SIZE", "OBJECT KEY")
	for _, s := range segments {
		total += s.Length()
		size += s.Bytes()
		fmt.Fprintf(&b, "%-8s  %-8s  %-9s  %s\n",
			s.RecordedAt.Local().Format(time.TimeOnly),
			s.Length().Round(time.Second),
			humanize.Bytes(s.Bytes()),
			s.ObjectKey)
	}
	fmt.Fprintf(&b, "\n%d segment(s) on %s, %s, %s", len(segments), day, total.Round(time.Second), humanize.Bytes(size))
	return b.String()
}
