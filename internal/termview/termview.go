// Package termview prints the schedule to a terminal for one-shot runs.
package termview

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"streamcal/internal/format"
	"streamcal/internal/schedule"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Options controls the listing.
type Options struct {
	// Styled selects the boxed layout; otherwise one tab-separated line
	// per occurrence is written, suitable for scripts.
	Styled bool
	// Limit caps the number of occurrences; zero means all.
	Limit int
}

// Print writes snap to w as rendered by f.
func Print(w io.Writer, f *format.Formatter, snap schedule.Snapshot, now time.Time, opts Options) error {
	if opts.Styled {
		_, err := io.WriteString(w, styled(w, f, snap, now, opts.Limit)+"\n")
		return err
	}
	return plain(w, f, snap, now, opts.Limit)
}

func limited(snap schedule.Snapshot, limit int) int {
	n := len(snap.Occurrences)
	if limit > 0 && limit < n {
		n = limit
	}
	return n
}

func plain(w io.Writer, f *format.Formatter, snap schedule.Snapshot, now time.Time, limit int) error {
	if snap.Err != nil {
		_, err := fmt.Fprintln(w, f.Phrase(format.MsgLoadFailed, nil))
		return err
	}
	n := limited(snap, limit)
	if n == 0 {
		_, err := fmt.Fprintln(w, f.Phrase(format.MsgNoUpcoming, nil))
		return err
	}
	for _, occ := range snap.Occurrences[:n] {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			occ.Instant.UTC().Format(time.RFC3339), f.Label(occ), f.Countdown(occ, now), f.Game(occ)); err != nil {
			return err
		}
	}
	return nil
}

func styled(w io.Writer, f *format.Formatter, snap schedule.Snapshot, now time.Time, limit int) string {
	r := lipgloss.NewRenderer(w)

	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#9146FF")).
		Padding(0, 1)
	heading := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#BF94FF"))
	game := r.NewStyle().Bold(true)
	dim := r.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if snap.Err != nil {
		return box.Render(dim.Render(f.Phrase(format.MsgLoadFailed, nil)))
	}
	n := limited(snap, limit)
	if n == 0 {
		return box.Render(dim.Render(f.Phrase(format.MsgNoUpcoming, nil)))
	}

	next := snap.Occurrences[0]
	lines := []string{
		heading.Render(f.Phrase(format.MsgNextStream, nil)),
		game.Render(f.Game(next)),
		f.Label(next) + "  " + dim.Render(f.Countdown(next, now)),
	}
	if n > 1 {
		lines = append(lines, "")
		for _, occ := range snap.Occurrences[1:n] {
			lines = append(lines, fmt.Sprintf("%s  %s", f.Label(occ), game.Render(f.Game(occ))))
		}
	}
	return box.Render(strings.Join(lines, "\n"))
}
