package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{" _  _____ ___  ____  _  __", "#34d399"},
	{"| |/ /_ _/ _ \\/ ___|| |/ /", "#2dd4bf"},
	{"| ' / | | | | \\___ \\| ' / ", "#22d3ee"},
	{"| . \\ | | |_| |___) | . \\ ", "#38bdf8"},
	{"|_|\\_\\___\\___/|____/|_|\\_\\", "#60a5fa"},
}

// PrintBanner writes the kiosk banner to w, colored when the terminal supports it.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  session engine "+version).Faint())
	fmt.Fprintln(w)
}
