package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Arbor ASCII banner to w, colored when the
// terminal supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	// Green gradient, from leaves to trunk
	lines := []struct {
		text  string
		color string
	}{
		{"     _         _            ", "#86efac"},
		{"    / \\   _ __| |__   ___  _ __ ", "#4ade80"},
		{"   / _ \\ | '__| '_ \\ / _ \\| '__|", "#22c55e"},
		{"  / ___ \\| |  | |_) | (_) | |   ", "#16a34a"},
		{" /_/   \\_\\_|  |_.__/ \\___/|_|   ", "#15803d"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
