package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// wrapText wraps to display cells, so double-width text and long runs with
// no spaces still fit the pane.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	return ansi.Wrap(text, width, "")
}

// truncate cuts text to limit display cells, marking the cut with "...".
func truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if ansi.StringWidth(text) <= limit {
		return text
	}
	if limit <= 3 {
		return ansi.Truncate(text, limit, "")
	}
	return ansi.Truncate(text, limit, "...")
}

func compactSingleLine(text string, limit int) string {
	compact := strings.Join(strings.Fields(text), " ")
	return truncate(compact, limit)
}

func padRight(text string, width int) string {
	if width <= 0 {
		return ""
	}
	text = ansi.Truncate(text, width, "")
	return text + strings.Repeat(" ", width-ansi.StringWidth(text))
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}

func nullCoalesce(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
