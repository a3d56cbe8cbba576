// Package inbox is the notifications view: likes, comments, follows and
// follow requests waiting for approval.
package inbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/momentlog/momentlog/account"
	"github.com/momentlog/momentlog/domain"
	"github.com/momentlog/momentlog/tui/common"
)

// Service is the inbox surface of the account package.
type Service interface {
	Inbox(ctx context.Context) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
	Dismiss(ctx context.Context, id string) error
	ClearInbox(ctx context.Context) error
	Approve(ctx context.Context, requesterID string) error
	Decline(ctx context.Context, requesterID string) error
}

// OpenProfileMsg asks the root to show a sender's profile.
type OpenProfileMsg struct {
	UserID string
}

type loadedMsg struct {
	items []domain.Notification
	err   error
}

// Model holds the notification list.
type Model struct {
	svc    Service
	keys   common.KeyMap
	items  []domain.Notification
	cursor int
	loaded bool
	now    func() time.Time
	width  int
}

// New creates the inbox view.
func New(svc Service, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	return Model{svc: svc, keys: common.DefaultKeyMap(), now: now}
}

// Load fetches the notifications.
func (m Model) Load() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		items, err := svc.Inbox(context.Background())
		return loadedMsg{items: items, err: err}
	}
}

// Unread is the badge count for the tab bar.
func (m Model) Unread() int { return account.Unread(m.items) }

func (m Model) selected() (domain.Notification, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return domain.Notification{}, false
	}
	return m.items[m.cursor], true
}

// Update handles messages for the inbox.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case loadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.items = nil
			return m, status(common.StatusMsg{Err: msg.err})
		}
		m.items = msg.items
		if m.cursor >= len(m.items) {
			m.cursor = max(len(m.items)-1, 0)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load()
	case key.Matches(msg, m.keys.ClearAll):
		return m, m.act("Inbox cleared.", func(ctx context.Context) error {
			return m.svc.ClearInbox(ctx)
		})
	}

	n, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Open):
		if n.Read {
			return m, nil
		}
		return m, m.act("", func(ctx context.Context) error {
			return m.svc.MarkRead(ctx, n.ID)
		})

	case key.Matches(msg, m.keys.Approve):
		if n.Type != domain.NotifyFollowRequest {
			return m, nil
		}
		return m, m.act("Request approved.", func(ctx context.Context) error {
			if err := m.svc.Approve(ctx, n.Sender.ID); err != nil {
				return err
			}
			return m.svc.Dismiss(ctx, n.ID)
		})

	case key.Matches(msg, m.keys.Decline):
		if n.Type == domain.NotifyFollowRequest {
			return m, m.act("Request declined.", func(ctx context.Context) error {
				if err := m.svc.Decline(ctx, n.Sender.ID); err != nil {
					return err
				}
				return m.svc.Dismiss(ctx, n.ID)
			})
		}
		return m, m.act("", func(ctx context.Context) error {
			return m.svc.Dismiss(ctx, n.ID)
		})

	case key.Matches(msg, m.keys.Profile):
		id := n.Sender.ID
		return m, func() tea.Msg { return OpenProfileMsg{UserID: id} }
	}
	return m, nil
}

// act runs fn, then reloads the list and reports done (if set).
func (m Model) act(done string, fn func(context.Context) error) tea.Cmd {
	load := m.Load()
	return func() tea.Msg {
		if err := fn(context.Background()); err != nil {
			return common.StatusMsg{Err: err}
		}
		if done == "" {
			return load()
		}
		return tea.BatchMsg{load, status(common.StatusMsg{Text: done})}
	}
}

func status(msg common.StatusMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

var verbs = map[domain.NotificationType]string{
	domain.NotifyLike:          "liked your moment",
	domain.NotifyComment:       "commented on your moment",
	domain.NotifyFollow:        "started following you",
	domain.NotifyFollowRequest: "wants to follow you",
}

// View renders the notification list.
func (m Model) View() string {
	if !m.loaded {
		return common.TimestampStyle.Render("Loading notifications...") + "\n"
	}
	if len(m.items) == 0 {
		return common.TimestampStyle.Render("You're all caught up.") + "\n"
	}

	var b strings.Builder
	for i, n := range m.items {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		dot := " "
		if !n.Read {
			dot = common.UnreadStyle.Render("•")
		}
		verb, ok := verbs[n.Type]
		if !ok {
			verb = string(n.Type)
		}
		line := fmt.Sprintf("%s%s %s %s %s  %s", marker, dot, n.Sender.Avatar,
			common.AuthorStyle.Render(common.Sanitize(n.Sender.Name)), verb,
			common.TimestampStyle.Render(common.RelativeTime(n.CreatedAt, m.now())))
		if m.width > 0 {
			line = common.Truncate(line, m.width)
		}
		b.WriteString(line + "\n")
	}
	k := m.keys
	b.WriteString(common.StatusBarStyle.Render(common.HelpLine(k.Open, k.Approve, k.Decline, k.Profile, k.ClearAll, k.Refresh)))
	return b.String()
}
