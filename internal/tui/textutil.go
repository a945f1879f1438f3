package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "…"

// truncateEnd cuts s to limit terminal cells, ending in an ellipsis when
// anything was dropped. Wide runes and escape sequences are measured by
// their rendered width.
func truncateEnd(s string, limit int) string {
	switch {
	case limit <= 0:
		return ""
	case ansi.StringWidth(s) <= limit:
		return s
	case limit == 1:
		return ellipsis
	}
	return ansi.Truncate(s, limit, ellipsis)
}

// truncateMiddle keeps both ends of s, which is where URLs carry meaning.
func truncateMiddle(s string, limit int) string {
	width := ansi.StringWidth(s)
	switch {
	case limit <= 0:
		return ""
	case width <= limit:
		return s
	case limit == 1:
		return ellipsis
	}

	left := (limit - 1) / 2
	right := limit - 1 - left
	return ansi.Truncate(s, left, "") + ellipsis + ansi.TruncateLeft(s, width-right, "")
}

func repeatRune(r rune, n int) string {
	return strings.Repeat(string(r), max(n, 0))
}
