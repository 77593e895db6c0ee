package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Arbor banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"     _         _              ", "#4ade80"},
		{"    / \\   _ __| |__   ___  _ __", "#34d399"},
		{"   / _ \\ | '__| '_ \\ / _ \\| '__|", "#2dd4bf"},
		{"  / ___ \\| |  | |_) | (_) | |   ", "#22d3ee"},
		{" /_/   \\_\\_|  |_.__/ \\___/|_|   ", "#38bdf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
