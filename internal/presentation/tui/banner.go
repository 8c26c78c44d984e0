package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the DaVinci banner with the version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  ___      __   ___         _ ", "#818cf8"},
		{" |   \\ __ _\\ \\ / (_)_ _  __(_)", "#a78bfa"},
		{" | |) / _` |\\ V /| | ' \\/ _| |", "#c084fc"},
		{" |___/\\__,_| \\_/ |_|_||_\\__|_|", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
