package feed

import (
	"sort"

	"github.com/momentlog/momentlog/domain"
)

// dedupeLatest keeps one copy per id. A later copy replaces an earlier one,
// so a refetched page wins over the page that first delivered the id.
func dedupeLatest(in []domain.Moment) []domain.Moment {
	if len(in) == 0 {
		return nil
	}
	pos := make(map[string]int, len(in))
	out := make([]domain.Moment, 0, len(in))
	for _, m := range in {
		if i, ok := pos[m.ID]; ok {
			out[i] = m
			continue
		}
		pos[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}

// sortNewestFirst orders by normalized creation time, newest first, ties by
// id descending. Invalid timestamps compare as zero and land last.
func sortNewestFirst(items []domain.Moment) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].CreatedAt.Millis(), items[j].CreatedAt.Millis()
		if ti == tj {
			return items[i].ID > items[j].ID
		}
		return ti > tj
	})
}
