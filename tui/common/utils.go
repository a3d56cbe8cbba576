package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/momentlog/momentlog/domain"
)

// RelativeTime renders ts relative to now ("3m", "2h", "5d"), falling back
// to a date after a week. Invalid timestamps render as "?".
func RelativeTime(ts domain.Timestamp, now time.Time) string {
	if !ts.Valid() {
		return "?"
	}
	d := now.Sub(ts.Time())
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
	return ts.Time().Local().Format("Jan 2, 2006")
}

// Sanitize strips terminal escapes and control characters from stored text,
// keeping newlines.
func Sanitize(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r == '\t' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// Truncate cuts s to width terminal cells, appending an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}
