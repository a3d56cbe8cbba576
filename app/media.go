package app

import (
	"context"

	"github.com/momentlog/momentlog/domain"
)

// MediaSink stores binary media and returns a URL for it.
type MediaSink interface {
	Upload(ctx context.Context, data []byte, kind domain.MediaKind) (string, error)
}

// MusicResolver turns a shared music link into display text and a
// playable preview.
type MusicResolver interface {
	Resolve(ctx context.Context, link string) (domain.Music, error)
}
