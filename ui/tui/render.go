package tui

import (
	"strings"

	"github.com/muesli/termenv"

	"github.com/drake/clocklet/ui"
)

// Render draws grid as rows of half blocks colored for profile.
func Render(grid ui.Grid, profile termenv.Profile) string {
	var b strings.Builder
	block := string(ui.HalfBlock)
	for i, row := range grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, c := range row {
			b.WriteString(profile.String(block).
				Foreground(profile.FromColor(c.Top)).
				Background(profile.FromColor(c.Bottom)).
				String())
		}
	}
	return b.String()
}
