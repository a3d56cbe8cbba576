package feed

import "github.com/momentlog/momentlog/domain"

// Snapshot is the pair of local caches a mutation may touch: the active
// view's raw feed cache and the "my own moments" cache.
type Snapshot struct {
	Feed []domain.Moment
	Mine []domain.Moment
}

// Transition is a pure function from one snapshot to the next. Transitions
// must not mutate the input slices.
type Transition func(Snapshot) Snapshot

// mapBoth applies fn to every copy of id in both caches.
func mapBoth(id string, fn func(domain.Moment) domain.Moment) Transition {
	return func(s Snapshot) Snapshot {
		return Snapshot{Feed: mapID(s.Feed, id, fn), Mine: mapID(s.Mine, id, fn)}
	}
}

func mapID(items []domain.Moment, id string, fn func(domain.Moment) domain.Moment) []domain.Moment {
	if items == nil {
		return nil
	}
	out := make([]domain.Moment, len(items))
	for i, m := range items {
		if m.ID == id {
			m = fn(m)
		}
		out[i] = m
	}
	return out
}

func without(items []domain.Moment, id string) []domain.Moment {
	if items == nil {
		return nil
	}
	out := make([]domain.Moment, 0, len(items))
	for _, m := range items {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// RemoveMoment drops id from both caches.
func RemoveMoment(id string) Transition {
	return func(s Snapshot) Snapshot {
		return Snapshot{Feed: without(s.Feed, id), Mine: without(s.Mine, id)}
	}
}

// SetLiked sets uid's membership in id's like set in both caches.
func SetLiked(id, uid string, liked bool) Transition {
	return mapBoth(id, func(m domain.Moment) domain.Moment {
		return m.WithLike(uid, liked)
	})
}

// SetVisibility stores v on id in both caches. When dropFromFeed is set the
// item also leaves the feed cache, as explore no longer returns it.
func SetVisibility(id string, v domain.Visibility, dropFromFeed bool) Transition {
	set := mapBoth(id, func(m domain.Moment) domain.Moment {
		m.Visibility = v
		return m
	})
	return func(s Snapshot) Snapshot {
		next := set(s)
		if dropFromFeed {
			next.Feed = without(next.Feed, id)
		}
		return next
	}
}

// AdjustComments moves id's comment counter by delta, never below zero.
func AdjustComments(id string, delta int) Transition {
	return mapBoth(id, func(m domain.Moment) domain.Moment {
		m.CommentsCount = max(m.CommentsCount+delta, 0)
		return m
	})
}

// SetText replaces id's text in both caches.
func SetText(id, text string) Transition {
	return mapBoth(id, func(m domain.Moment) domain.Moment {
		m.Text = text
		return m
	})
}

// likeSets holds the like set of id's latest copy in each cache.
type likeSets struct {
	feed, mine     []string
	inFeed, inMine bool
}

func latestLikes(items []domain.Moment, id string) ([]string, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].ID == id {
			return append([]string(nil), items[i].Likes...), true
		}
	}
	return nil, false
}

// setLikedRecording is SetLiked that first records each cache's like set
// into prior, in the same step.
func setLikedRecording(id, uid string, liked bool, prior *likeSets) Transition {
	set := SetLiked(id, uid, liked)
	return func(s Snapshot) Snapshot {
		prior.feed, prior.inFeed = latestLikes(s.Feed, id)
		prior.mine, prior.inMine = latestLikes(s.Mine, id)
		return set(s)
	}
}

// restoreLikes writes each recorded like set back into its own cache.
func restoreLikes(id string, prior likeSets) Transition {
	with := func(likes []string) func(domain.Moment) domain.Moment {
		return func(m domain.Moment) domain.Moment {
			m.Likes = append([]string(nil), likes...)
			return m
		}
	}
	return func(s Snapshot) Snapshot {
		next := s
		if prior.inFeed {
			next.Feed = mapID(s.Feed, id, with(prior.feed))
		}
		if prior.inMine {
			next.Mine = mapID(s.Mine, id, with(prior.mine))
		}
		return next
	}
}
