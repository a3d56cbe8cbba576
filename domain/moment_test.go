package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestVisibilityNext_CyclesBackAfterThreeSteps(t *testing.T) {
	v := VisibilityPublic
	want := []Visibility{VisibilityFriends, VisibilityPrivate, VisibilityPublic}
	for i, w := range want {
		v = v.Next()
		if v != w {
			t.Fatalf("step %d: got %q want %q", i+1, v, w)
		}
	}
	if got := Visibility("").Next(); got != VisibilityPublic {
		t.Fatalf("unknown tag should cycle to public, got %q", got)
	}
}

func TestVisibilityFromLegacy(t *testing.T) {
	if got := VisibilityFromLegacy("friends", true); got != VisibilityFriends {
		t.Fatalf("tag must win over legacy flag, got %q", got)
	}
	if got := VisibilityFromLegacy("", true); got != VisibilityPublic {
		t.Fatalf("legacy public flag ignored, got %q", got)
	}
	if got := VisibilityFromLegacy("bogus", false); got != VisibilityPrivate {
		t.Fatalf("legacy private flag ignored, got %q", got)
	}
}

func TestWithLike_KeepsSetSemantics(t *testing.T) {
	m := Moment{Likes: []string{"a", "b"}}
	m = m.WithLike("a", true)
	if len(m.Likes) != 2 || !m.LikedBy("a") {
		t.Fatalf("duplicate like must not grow the set: %v", m.Likes)
	}
	m = m.WithLike("b", false)
	if m.LikedBy("b") || len(m.Likes) != 1 {
		t.Fatalf("unlike must remove the user: %v", m.Likes)
	}
	orig := Moment{Likes: []string{"x"}}
	_ = orig.WithLike("y", true)
	if len(orig.Likes) != 1 {
		t.Fatalf("WithLike must not mutate the receiver's slice: %v", orig.Likes)
	}
}

func TestCheckTextLength_TieredLimits(t *testing.T) {
	long := strings.Repeat("é", 600)
	if err := CheckTextLength(TierStandard, long); !errors.Is(err, ErrTextTooLong) {
		t.Fatalf("standard tier should reject 600 runes, got %v", err)
	}
	if err := CheckTextLength(TierEarlyUser, long); err != nil {
		t.Fatalf("early user tier should accept 600 runes, got %v", err)
	}
	if err := CheckTextLength(TierStandard, strings.Repeat("a", 500)); err != nil {
		t.Fatalf("limit is inclusive, got %v", err)
	}
}

func TestDraftHasContent(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		want  bool
	}{
		{name: "empty", draft: Draft{}, want: false},
		{name: "whitespace", draft: Draft{Text: " \n\t"}, want: false},
		{name: "text", draft: Draft{Text: "hi"}, want: true},
		{name: "media only", draft: Draft{Media: []MediaItem{{Kind: MediaImage, URL: "https://x"}}}, want: true},
		{name: "voice only", draft: Draft{Voice: &MediaItem{Kind: MediaAudio, Data: []byte{1}}}, want: true},
		{name: "empty voice", draft: Draft{Voice: &MediaItem{Kind: MediaAudio}}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.draft.HasContent(); got != tc.want {
				t.Fatalf("HasContent=%v want %v", got, tc.want)
			}
		})
	}
}

func TestMomentEditable(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := Moment{CreatedAt: TimestampOf(created)}
	if !m.Editable(created.Add(EditWindow)) {
		t.Fatalf("edit must be allowed at the window boundary")
	}
	if m.Editable(created.Add(EditWindow + time.Second)) {
		t.Fatalf("edit must be rejected after the window")
	}
	if (Moment{}).Editable(created) {
		t.Fatalf("moment without timestamp is never editable")
	}
}
