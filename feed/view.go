package feed

import "strings"

// View is one of the mutually exclusive contexts the user browses.
type View int

const (
	ViewFollowing View = iota
	ViewExplore
	ViewWrite
	ViewNotifications
	ViewProfile
	ViewMyMoments
)

var viewNames = map[View]string{
	ViewFollowing:     "following",
	ViewExplore:       "explore",
	ViewWrite:         "write",
	ViewNotifications: "notifications",
	ViewProfile:       "profile",
	ViewMyMoments:     "my-moments",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return "unknown"
}

// ParseView maps a persisted view name back to a View. Unknown names fall
// back to the following feed, the home view.
func ParseView(s string) View {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, name := range viewNames {
		if name == s {
			return v
		}
	}
	return ViewFollowing
}

// HasFeed reports whether the view shows a paginated moment list.
func (v View) HasFeed() bool {
	switch v {
	case ViewWrite, ViewNotifications:
		return false
	}
	return true
}
