package app

import (
	"context"

	"github.com/momentlog/momentlog/domain"
)

// MomentPatch holds the fields an edit may change. Nil fields are left as is.
type MomentPatch struct {
	Text *string
}

// MutationSink writes moments and their likes and comments.
type MutationSink interface {
	// CreateMoment stores m and returns the id the store assigned.
	CreateMoment(ctx context.Context, m domain.Moment) (string, error)

	// UpdateMoment applies a partial edit.
	UpdateMoment(ctx context.Context, id string, patch MomentPatch) error

	// DeleteMoment removes the moment and its comments.
	DeleteMoment(ctx context.Context, id string) error

	// SetLike adds or removes userID from the moment's like set.
	SetLike(ctx context.Context, id, userID string, liked bool) error

	// SetVisibility stores the tag together with the legacy public flag.
	SetVisibility(ctx context.Context, id string, v domain.Visibility) error

	// AddComment stores c under the moment and bumps its counter.
	AddComment(ctx context.Context, momentID string, c domain.Comment) (string, error)

	// DeleteComment removes the comment and decrements the counter.
	DeleteComment(ctx context.Context, momentID, commentID string) error
}
