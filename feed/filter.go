package feed

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/momentlog/momentlog/domain"
)

type filterMode int

const (
	filterNone filterMode = iota
	filterHashtag
	filterUser
	filterGeneral
)

// Filter is a parsed search query: "#tag", "@name" or free text.
type Filter struct {
	mode  filterMode
	term  string // folded
	fold  cases.Caser
	query string
}

// ParseFilter classifies the query. Blank queries match everything.
func ParseFilter(q string) Filter {
	q = strings.TrimSpace(q)
	f := Filter{query: q, fold: cases.Fold()}
	switch {
	case q == "":
		f.mode = filterNone
	case strings.HasPrefix(q, "#") && len(q) > 1:
		f.mode = filterHashtag
		f.term = f.fold.String(q)
	case strings.HasPrefix(q, "@") && len(q) > 1:
		f.mode = filterUser
		f.term = f.fold.String(q[1:])
	default:
		f.mode = filterGeneral
		f.term = f.fold.String(q)
	}
	return f
}

// String returns the query as typed.
func (f Filter) String() string { return f.query }

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool { return f.mode == filterNone }

// Match reports whether m satisfies the filter.
func (f Filter) Match(m domain.Moment) bool {
	switch f.mode {
	case filterHashtag:
		return f.contains(m.Text) || f.contains(m.Sticker)
	case filterUser:
		return f.contains(m.Author.Name)
	case filterGeneral:
		for _, field := range []string{m.Text, m.Location, m.Venue, m.Author.Name, m.Sticker} {
			if f.contains(field) {
				return true
			}
		}
		return false
	}
	return true
}

func (f Filter) contains(s string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(f.fold.String(s), f.term)
}

// Apply returns the matching moments in order.
func (f Filter) Apply(items []domain.Moment) []domain.Moment {
	if f.Empty() {
		return items
	}
	out := make([]domain.Moment, 0, len(items))
	for _, m := range items {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}
