package common

import (
	"testing"
	"time"

	"github.com/momentlog/momentlog/domain"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "now"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{2 * 24 * time.Hour, "2d"},
	}
	for _, c := range cases {
		if got := RelativeTime(domain.TimestampOf(now.Add(-c.ago)), now); got != c.want {
			t.Fatalf("%v ago: got %q want %q", c.ago, got, c.want)
		}
	}
	if got := RelativeTime(domain.Timestamp{}, now); got != "?" {
		t.Fatalf("invalid timestamp: got %q", got)
	}
}

func TestSanitize_RemovesEscapesKeepsNewlines(t *testing.T) {
	got := Sanitize("a\x1b[31mred\x1b[0m\x01\nb\tc")
	if got != "ared\nb c" {
		t.Fatalf("unexpected sanitize result: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 6); got != "hello…" {
		t.Fatalf("unexpected truncate: %q", got)
	}
	if got := Truncate("hi", 10); got != "hi" {
		t.Fatalf("short strings unchanged: %q", got)
	}
	if got := Truncate("hi", 0); got != "" {
		t.Fatalf("zero width: %q", got)
	}
}
