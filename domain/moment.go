package domain

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Visibility controls who can see a moment.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

// Next returns the following value in the toggle cycle
// public -> friends -> private -> public.
func (v Visibility) Next() Visibility {
	switch v {
	case VisibilityPublic:
		return VisibilityFriends
	case VisibilityFriends:
		return VisibilityPrivate
	default:
		return VisibilityPublic
	}
}

// Valid reports whether v is one of the known tags.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		return true
	}
	return false
}

// IsPublic is the legacy boolean kept at storage and import boundaries.
func (v Visibility) IsPublic() bool { return v == VisibilityPublic }

// Label is the short human form used in the feed.
func (v Visibility) Label() string {
	switch v {
	case VisibilityFriends:
		return "friends"
	case VisibilityPrivate:
		return "private"
	default:
		return "public"
	}
}

// VisibilityFromLegacy resolves a stored tag, falling back to the legacy
// isPublic flag for records written before the tag existed.
func VisibilityFromLegacy(tag string, isPublic bool) Visibility {
	if v := Visibility(tag); v.Valid() {
		return v
	}
	if isPublic {
		return VisibilityPublic
	}
	return VisibilityPrivate
}

// MediaKind is the type of an attached media item.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// MediaItem is one attachment. Either URL (already stored remotely) or
// Data (inline bytes still to be uploaded) is set.
type MediaItem struct {
	Kind      MediaKind `json:"type" validate:"oneof=image video audio"`
	URL       string    `json:"url,omitempty"`
	Data      []byte    `json:"-"`
	Filter    string    `json:"filter,omitempty" validate:"max=32"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// Pending reports whether the item still needs an upload.
func (m MediaItem) Pending() bool { return m.URL == "" && len(m.Data) > 0 }

// Author is the author snapshot captured when a moment is created.
type Author struct {
	ID        string
	Name      string
	Avatar    string
	Verified  bool
	EarlyUser bool
}

// Music is the resolved display form of a shared music link.
type Music struct {
	Display    string
	PreviewURL string
}

// Moment is a single user-authored post.
type Moment struct {
	ID               string
	Author           Author
	Text             string
	Media            []MediaItem
	Location         string
	Venue            string
	Sticker          string
	Music            Music
	VoiceURL         string
	Theme            string
	Mood             string
	Visibility       Visibility
	AuthorPrivate    bool // author's profile privacy when the moment was created
	Likes            []string
	CommentsCount    int
	CreatedAt        Timestamp
	MomentDate       string // user-chosen display date, cosmetic only
	CollectionID     string
	VerifiedLocation bool
}

// LikedBy reports whether uid is in the like set.
func (m Moment) LikedBy(uid string) bool {
	return uid != "" && slices.Contains(m.Likes, uid)
}

// WithLike returns a copy with uid added to or removed from the like set.
// The like set never holds the same user twice.
func (m Moment) WithLike(uid string, liked bool) Moment {
	out := make([]string, 0, len(m.Likes)+1)
	for _, id := range m.Likes {
		if id != uid {
			out = append(out, id)
		}
	}
	if liked {
		out = append(out, uid)
	}
	m.Likes = out
	return m
}

// OwnedBy reports whether uid authored the moment.
func (m Moment) OwnedBy(uid string) bool {
	return uid != "" && m.Author.ID == uid
}

// EditWindow is how long after creation an early user may edit a moment.
const EditWindow = 15 * time.Minute

// Editable reports whether the edit window is still open at now.
func (m Moment) Editable(now time.Time) bool {
	if !m.CreatedAt.Valid() {
		return false
	}
	return now.Sub(m.CreatedAt.Time()) <= EditWindow
}

// Tier is the account class that sets the text limit.
type Tier int

const (
	TierStandard Tier = iota
	TierEarlyUser
)

// TextLimit returns the maximum text length in runes for the tier.
func (t Tier) TextLimit() int {
	if t == TierEarlyUser {
		return 2000
	}
	return 500
}

// CheckTextLength returns ErrTextTooLong when text exceeds the tier limit.
func CheckTextLength(t Tier, text string) error {
	if utf8.RuneCountInString(text) > t.TextLimit() {
		return ErrTextTooLong
	}
	return nil
}

// Draft is the user input for a new moment.
type Draft struct {
	Text             string
	Media            []MediaItem `validate:"max=10,dive"`
	Voice            *MediaItem
	Location         string     `validate:"max=120"`
	Venue            string     `validate:"max=120"`
	Sticker          string     `validate:"max=40"`
	MusicLink        string     `validate:"omitempty,url"`
	Theme            string     `validate:"max=32"`
	Mood             string     `validate:"max=16"`
	Visibility       Visibility `validate:"omitempty,oneof=public friends private"`
	MomentDate       string     `validate:"omitempty,datetime=2006-01-02"`
	CollectionID     string
	VerifiedLocation bool
}

// HasContent reports whether the draft carries text, media or a voice memo.
func (d Draft) HasContent() bool {
	if strings.TrimSpace(d.Text) != "" || len(d.Media) > 0 {
		return true
	}
	return d.Voice != nil && (d.Voice.URL != "" || len(d.Voice.Data) > 0)
}
