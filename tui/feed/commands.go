package feed

import (
	"context"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/momentlog/momentlog/domain"
	core "github.com/momentlog/momentlog/feed"
	"github.com/momentlog/momentlog/tui/common"
)

// SwitchTo enters view and returns the command that loads it. Cursor and
// detail state are dropped immediately; the list redraws from change events.
func (m *Model) SwitchTo(view core.View, force bool) tea.Cmd {
	m.view = view
	m.cursor, m.offset = 0, 0
	m.detail, m.confirmDelete = false, false
	m.items = nil
	if view != core.ViewProfile {
		m.profile = nil
	}
	sess := m.deps.Session
	return tea.Batch(func() tea.Msg {
		sess.SwitchTo(context.Background(), view, force)
		return switchedMsg{}
	}, m.emitPrefsChanged())
}

// OpenProfile shows uid's profile and moments.
func (m *Model) OpenProfile(uid string) tea.Cmd {
	m.view = core.ViewProfile
	m.cursor, m.offset = 0, 0
	m.detail, m.confirmDelete = false, false
	m.items = nil
	m.profile = nil
	sess, accounts := m.deps.Session, m.deps.Accounts
	return tea.Batch(
		func() tea.Msg {
			sess.OpenProfile(context.Background(), uid)
			return switchedMsg{}
		},
		loadProfile(accounts, uid),
	)
}

func loadProfile(accounts Accounts, uid string) tea.Cmd {
	return func() tea.Msg {
		p, err := accounts.Profile(context.Background(), uid)
		if err != nil {
			return profileLoadedMsg{Err: err}
		}
		state, err := accounts.FollowState(context.Background(), uid)
		return profileLoadedMsg{Profile: p, State: state, Err: err}
	}
}

func (m Model) emitPrefsChanged() tea.Cmd {
	msg := PrefsChangedMsg{View: m.view, Filter: m.filter}
	return func() tea.Msg { return msg }
}

func (m Model) loadMore() tea.Cmd {
	sess := m.deps.Session
	return func() tea.Msg {
		return loadedMsg{Outcome: sess.LoadMore(context.Background())}
	}
}

// maybePrefetch requests the next page once the cursor nears the end.
func (m Model) maybePrefetch() tea.Cmd {
	if !m.view.HasFeed() || !m.hasMore || m.loading {
		return nil
	}
	if m.cursor < len(m.items)-1-prefetchTrigger {
		return nil
	}
	return m.loadMore()
}

func (m Model) toggleLike(id string) tea.Cmd {
	coord := m.deps.Coordinator
	return func() tea.Msg {
		coord.ToggleLike(context.Background(), id)
		return nil
	}
}

func (m Model) toggleVisibility(id string) tea.Cmd {
	coord := m.deps.Coordinator
	return func() tea.Msg {
		v, err := coord.ToggleVisibility(context.Background(), id)
		if err != nil {
			return common.StatusMsg{Err: err}
		}
		return common.StatusMsg{Text: "Visible to: " + v.Label()}
	}
}

func (m Model) deleteMoment(id string) tea.Cmd {
	coord := m.deps.Coordinator
	return func() tea.Msg {
		if err := coord.Delete(context.Background(), id); err != nil {
			return common.StatusMsg{Err: err}
		}
		return common.StatusMsg{Text: "Moment deleted."}
	}
}

func (m Model) loadComments(id string) tea.Cmd {
	src := m.deps.Source
	return func() tea.Msg {
		cs, err := src.Comments(context.Background(), id)
		return commentsLoadedMsg{MomentID: id, Comments: cs, Err: err}
	}
}

func (m Model) deleteComment(momentID, commentID string) tea.Cmd {
	coord := m.deps.Coordinator
	return func() tea.Msg {
		err := coord.DeleteComment(context.Background(), momentID, commentID)
		return commentDeletedMsg{MomentID: momentID, CommentID: commentID, Err: err}
	}
}

func (m Model) toggleFollow(p domain.UserProfile, state domain.FollowState) tea.Cmd {
	accounts := m.deps.Accounts
	return func() tea.Msg {
		ctx := context.Background()
		if state != domain.FollowNone {
			if err := accounts.Unfollow(ctx, p.ID); err != nil {
				return common.StatusMsg{Err: err}
			}
		} else if _, err := accounts.Follow(ctx, p.ID); err != nil {
			return common.StatusMsg{Err: err}
		}
		return loadProfile(accounts, p.ID)()
	}
}

func openURL(rawURL string) tea.Cmd {
	return func() tea.Msg {
		if !isSafeExternalURL(rawURL) {
			return nil
		}
		opener := "xdg-open"
		if runtime.GOOS == "darwin" {
			opener = "open"
		}
		_ = exec.Command(opener, rawURL).Start()
		return nil
	}
}

func isSafeExternalURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

// openTarget picks what "o" opens for a moment: the first media item, then
// the music preview.
func openTarget(m domain.Moment) string {
	for _, it := range m.Media {
		if isSafeExternalURL(it.URL) {
			return it.URL
		}
	}
	if isSafeExternalURL(m.Music.PreviewURL) {
		return m.Music.PreviewURL
	}
	return ""
}
