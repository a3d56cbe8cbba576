package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
	"github.com/momentlog/momentlog/infra/validation"
)

// mineLimit bounds how many own moments RefreshMine keeps.
const mineLimit = 500

// commentLimit is the maximum comment length in runes.
const commentLimit = 500

// ProfileReader loads a user profile.
type ProfileReader interface {
	Profile(ctx context.Context, userID string) (domain.UserProfile, error)
}

// Reloader reloads the active view from its first page.
type Reloader interface {
	Reload(ctx context.Context)
}

// Services are the collaborators a Coordinator writes through.
// Media and Music may be nil.
type Services struct {
	Source   app.QuerySource
	Sink     app.MutationSink
	Media    app.MediaSink
	Music    app.MusicResolver
	Identity app.Identity
	Profiles ProfileReader
	Reloader Reloader
	Log      *zerolog.Logger
	Now      func() time.Time
}

// Coordinator applies user mutations to the backend and keeps the local
// caches consistent with the result.
type Coordinator struct {
	agg *Aggregator
	svc Services
}

func NewCoordinator(agg *Aggregator, svc Services) *Coordinator {
	if svc.Now == nil {
		svc.Now = time.Now
	}
	if svc.Log == nil {
		nop := zerolog.Nop()
		svc.Log = &nop
	}
	return &Coordinator{agg: agg, svc: svc}
}

func (c *Coordinator) user() (app.User, error) {
	if c.svc.Identity == nil {
		return app.User{}, domain.ErrNotSignedIn
	}
	u, ok := c.svc.Identity.CurrentUser()
	if !ok || u.ID == "" {
		return app.User{}, domain.ErrNotSignedIn
	}
	return u, nil
}

// owned returns the cached moment id if the signed-in user authored it.
func (c *Coordinator) owned(id string) (app.User, domain.Moment, error) {
	u, err := c.user()
	if err != nil {
		return u, domain.Moment{}, err
	}
	m, ok := c.agg.Lookup(id)
	if !ok {
		return u, m, domain.ErrNotFound
	}
	if !m.OwnedBy(u.ID) {
		return u, m, domain.ErrNotOwner
	}
	return u, m, nil
}

// Create validates the draft, uploads inline media, resolves music and
// writes the moment. On success both caches are reloaded.
func (c *Coordinator) Create(ctx context.Context, d domain.Draft) (string, error) {
	u, err := c.user()
	if err != nil {
		return "", err
	}
	if !d.HasContent() {
		return "", domain.ErrEmptyMoment
	}
	profile, err := c.svc.Profiles.Profile(ctx, u.ID)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}
	if err := domain.CheckTextLength(profile.Tier(), d.Text); err != nil {
		return "", err
	}
	if err := validation.Struct(d); err != nil {
		return "", err
	}

	media, err := c.uploadMedia(ctx, d.Media)
	if err != nil {
		return "", err
	}
	voiceURL, err := c.uploadVoice(ctx, d.Voice)
	if err != nil {
		return "", err
	}

	vis := d.Visibility
	if vis == "" {
		vis = domain.VisibilityPublic
	}
	m := domain.Moment{
		Author:           profile.AsAuthor(),
		Text:             strings.TrimSpace(d.Text),
		Media:            media,
		Location:         d.Location,
		Venue:            d.Venue,
		Sticker:          d.Sticker,
		Music:            c.resolveMusic(ctx, d.MusicLink),
		VoiceURL:         voiceURL,
		Theme:            d.Theme,
		Mood:             d.Mood,
		Visibility:       vis,
		AuthorPrivate:    profile.Private,
		CreatedAt:        domain.TimestampOf(c.svc.Now()),
		MomentDate:       d.MomentDate,
		CollectionID:     d.CollectionID,
		VerifiedLocation: d.VerifiedLocation,
	}
	id, err := c.svc.Sink.CreateMoment(ctx, m)
	if err != nil {
		return "", fmt.Errorf("create moment: %w", err)
	}

	if err := c.RefreshMine(ctx); err != nil {
		c.svc.Log.Warn().Err(err).Msg("refresh own moments after create")
	}
	if c.svc.Reloader != nil {
		c.svc.Reloader.Reload(ctx)
	}
	return id, nil
}

func (c *Coordinator) uploadMedia(ctx context.Context, items []domain.MediaItem) ([]domain.MediaItem, error) {
	out := make([]domain.MediaItem, 0, len(items))
	for _, it := range items {
		if it.Pending() {
			url, err := c.upload(ctx, it.Data, it.Kind)
			if err != nil {
				return nil, err
			}
			it.URL = url
		}
		it.Data = nil
		if it.URL == "" {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (c *Coordinator) uploadVoice(ctx context.Context, voice *domain.MediaItem) (string, error) {
	if voice == nil {
		return "", nil
	}
	if !voice.Pending() {
		return voice.URL, nil
	}
	return c.upload(ctx, voice.Data, domain.MediaAudio)
}

func (c *Coordinator) upload(ctx context.Context, data []byte, kind domain.MediaKind) (string, error) {
	if c.svc.Media == nil {
		return "", domain.ErrMediaUnavailable
	}
	url, err := c.svc.Media.Upload(ctx, data, kind)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", kind, err)
	}
	return url, nil
}

// resolveMusic falls back to the raw link when it cannot be resolved.
func (c *Coordinator) resolveMusic(ctx context.Context, link string) domain.Music {
	link = strings.TrimSpace(link)
	if link == "" {
		return domain.Music{}
	}
	fallback := domain.Music{Display: link, PreviewURL: link}
	if c.svc.Music == nil {
		return fallback
	}
	music, err := c.svc.Music.Resolve(ctx, link)
	if err != nil || music.Display == "" {
		if err != nil {
			c.svc.Log.Debug().Err(err).Str("link", link).Msg("music link not resolved")
		}
		return fallback
	}
	return music
}

// Delete removes an owned moment from the backend, then from both caches.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if _, _, err := c.owned(id); err != nil {
		return err
	}
	if err := c.svc.Sink.DeleteMoment(ctx, id); err != nil {
		return fmt.Errorf("delete moment: %w", err)
	}
	c.agg.Apply(RemoveMoment(id))
	return nil
}

// ToggleLike flips the viewer's like optimistically and reverts to the
// exact prior like set when the backend refuses. It returns the resulting
// liked state.
func (c *Coordinator) ToggleLike(ctx context.Context, id string) bool {
	u, err := c.user()
	if err != nil {
		return false
	}
	m, ok := c.agg.Lookup(id)
	if !ok {
		return false
	}
	was := m.LikedBy(u.ID)

	var prior likeSets
	c.agg.Apply(setLikedRecording(id, u.ID, !was, &prior))
	if err := c.svc.Sink.SetLike(ctx, id, u.ID, !was); err != nil {
		c.svc.Log.Warn().Err(err).Str("moment", id).Msg("like failed; reverting")
		c.agg.Apply(restoreLikes(id, prior))
		return was
	}
	return !was
}

// ToggleVisibility advances an owned moment to the next visibility.
// A moment that stops being public leaves the explore feed.
func (c *Coordinator) ToggleVisibility(ctx context.Context, id string) (domain.Visibility, error) {
	_, m, err := c.owned(id)
	if err != nil {
		return m.Visibility, err
	}
	next := m.Visibility.Next()
	if err := c.svc.Sink.SetVisibility(ctx, id, next); err != nil {
		return m.Visibility, fmt.Errorf("set visibility: %w", err)
	}
	c.agg.Apply(SetVisibility(id, next, !next.IsPublic() && c.agg.View() == ViewExplore))
	return next, nil
}

// AddComment stores a comment and bumps the parent's cached counter.
func (c *Coordinator) AddComment(ctx context.Context, id, text string) (string, error) {
	u, err := c.user()
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return "", fmt.Errorf("%w: comment is empty", domain.ErrValidation)
	case utf8.RuneCountInString(text) > commentLimit:
		return "", domain.ErrTextTooLong
	}
	cm := domain.Comment{
		MomentID:  id,
		Author:    domain.Author{ID: u.ID, Name: u.DisplayName, Avatar: u.Avatar},
		Text:      text,
		CreatedAt: domain.TimestampOf(c.svc.Now()),
	}
	cid, err := c.svc.Sink.AddComment(ctx, id, cm)
	if err != nil {
		return "", fmt.Errorf("add comment: %w", err)
	}
	c.agg.Apply(AdjustComments(id, 1))
	return cid, nil
}

// DeleteComment removes a comment and decrements the parent's counter.
// Only the comment's author or the moment's owner may delete it.
func (c *Coordinator) DeleteComment(ctx context.Context, id, commentID string) error {
	u, err := c.user()
	if err != nil {
		return err
	}
	comments, err := c.svc.Source.Comments(ctx, id)
	if err != nil {
		return fmt.Errorf("load comments: %w", err)
	}
	idx := slices.IndexFunc(comments, func(cm domain.Comment) bool { return cm.ID == commentID })
	if idx < 0 {
		return domain.ErrNotFound
	}
	if comments[idx].Author.ID != u.ID {
		m, ok := c.agg.Lookup(id)
		if !ok || !m.OwnedBy(u.ID) {
			return domain.ErrNotOwner
		}
	}
	if err := c.svc.Sink.DeleteComment(ctx, id, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	c.agg.Apply(AdjustComments(id, -1))
	return nil
}

// Edit replaces the text of an owned moment. Only early users may edit,
// and only within EditWindow of creation.
func (c *Coordinator) Edit(ctx context.Context, id, text string) error {
	u, m, err := c.owned(id)
	if err != nil {
		return err
	}
	profile, err := c.svc.Profiles.Profile(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if profile.Tier() != domain.TierEarlyUser {
		return domain.ErrPremiumOnly
	}
	if !m.Editable(c.svc.Now()) {
		return domain.ErrEditWindowClosed
	}
	text = strings.TrimSpace(text)
	if text == "" && len(m.Media) == 0 && m.VoiceURL == "" {
		return domain.ErrEmptyMoment
	}
	if err := domain.CheckTextLength(profile.Tier(), text); err != nil {
		return err
	}
	if err := c.svc.Sink.UpdateMoment(ctx, id, app.MomentPatch{Text: &text}); err != nil {
		return fmt.Errorf("update moment: %w", err)
	}
	c.agg.Apply(SetText(id, text))
	return nil
}

// RefreshMine reloads the signed-in user's own moments into the mine cache.
func (c *Coordinator) RefreshMine(ctx context.Context) error {
	u, err := c.user()
	if err != nil {
		if errors.Is(err, domain.ErrNotSignedIn) {
			c.agg.ReplaceMine(nil)
		}
		return err
	}
	var (
		items []domain.Moment
		after *app.Cursor
	)
	for len(items) < mineLimit {
		page, err := c.svc.Source.OwnMoments(ctx, u.ID, after, min(DefaultPageSize*5, mineLimit-len(items)))
		if err != nil {
			return fmt.Errorf("load own moments: %w", err)
		}
		if len(page.Items) == 0 {
			break
		}
		items = append(items, page.Items...)
		after = page.Next
		if after == nil {
			after = app.CursorAfter(page.Items[len(page.Items)-1])
		}
	}
	c.agg.ReplaceMine(items)
	return nil
}
