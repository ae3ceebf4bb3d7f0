package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"    _                _              ",
	"   / \\__      ____ _| | _____ _ __  ",
	"  / _ \\ \\ /\\ / / _` | |/ / _ \\ '_ \\ ",
	" / ___ \\ V  V / (_| |   <  __/ | | |",
	"/_/   \\_\\_/\\_/ \\__,_|_|\\_\\___|_| |_|",
}

// One colour per element, earth to fire.
var bannerColors = []string{"#a3e635", "#facc15", "#94a3b8", "#818cf8", "#f87171"}

// PrintBanner writes the application banner, coloured when w is a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
