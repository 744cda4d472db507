package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/bastiangx/birdserve/pkg/typeahead"
)

var (
	nameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	latinStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.AdaptiveColor{Light: "#797593", Dark: "#908caa"})
	keyStyle   = lipgloss.NewStyle().Faint(true)
)

func header(count int, term string, global bool) string {
	scope := "page"
	if global {
		scope = "all"
	}
	return fmt.Sprintf("Found %s species for '%s' [%s]:", formatWithCommas(count), term, scope)
}

// formatEntry renders one ranked result: rank, common name, keys and the latin name
// when asked for.
func formatEntry(rank int, e typeahead.Entry, showLatin bool) string {
	line := fmt.Sprintf("%2d. %s %s", rank, nameStyle.Render(e.CommonName),
		keyStyle.Render("("+e.PhoneticKey+" / "+e.InitialsKey+")"))
	if showLatin && e.Latin != "" {
		line += " " + latinStyle.Render(e.Latin)
	}
	return line
}

// formatWithCommas formats an integer with comma separators
func formatWithCommas(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	str := fmt.Sprintf("%d", n)
	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}
