package feed

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/momentlog/momentlog/domain"
	core "github.com/momentlog/momentlog/feed"
	"github.com/momentlog/momentlog/tui/common"
	"github.com/momentlog/momentlog/tui/compose"
)

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ensureCursorVisible()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ChangedMsg:
		m.refresh()
		m.ensureCursorVisible()
		var cmds []tea.Cmd
		if m.detail && msg.Change.Reason == core.ChangeMutation {
			if cur, ok := m.selected(); ok {
				cmds = append(cmds, m.loadComments(cur.ID))
			}
		}
		cmds = append(cmds, m.maybePrefetch())
		return m, tea.Batch(cmds...)

	case switchedMsg, loadedMsg:
		m.refresh()
		return m, nil

	case commentsLoadedMsg:
		if msg.Err != nil {
			return m, statusErr(msg.Err)
		}
		if cur, ok := m.selected(); ok && m.detail && cur.ID == msg.MomentID {
			m.comments = msg.Comments
			if m.commentCursor >= len(m.comments) {
				m.commentCursor = max(len(m.comments)-1, 0)
			}
		}
		return m, nil

	case commentDeletedMsg:
		if msg.Err != nil {
			return m, statusErr(msg.Err)
		}
		return m, tea.Batch(m.loadComments(msg.MomentID), statusText("Comment deleted."))

	case profileLoadedMsg:
		if msg.Err != nil {
			return m, statusErr(msg.Err)
		}
		p := msg.Profile
		m.profile = &p
		m.followState = msg.State
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func statusErr(err error) tea.Cmd {
	return func() tea.Msg { return common.StatusMsg{Err: err} }
}

func statusText(text string) tea.Cmd {
	return func() tea.Msg { return common.StatusMsg{Text: text} }
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.filtering {
		return m.handleFilterKey(msg)
	}
	if m.confirmDelete {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirmDelete = false
			if cur, ok := m.selected(); ok {
				return m, m.deleteMoment(cur.ID)
			}
		case key.Matches(msg, m.keys.Cancel):
			m.confirmDelete = false
		}
		return m, nil
	}
	if m.detail {
		return m.handleDetailKey(msg)
	}

	uid := m.userID()
	cur, hasCur := m.selected()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		m.ensureCursorVisible()
		return m, m.maybePrefetch()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.SwitchTo(m.view, true)

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filterInput.SetValue(m.filter)
		m.filterInput.CursorEnd()
		m.filterInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.ToggleHints):
		m.showHints = !m.showHints

	case key.Matches(msg, m.keys.Follow):
		if m.view == core.ViewProfile && m.profile != nil && m.profile.ID != uid {
			return m, m.toggleFollow(*m.profile, m.followState)
		}
	}

	if !hasCur {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Like):
		return m, m.toggleLike(cur.ID)

	case key.Matches(msg, m.keys.Visibility):
		return m, m.toggleVisibility(cur.ID)

	case key.Matches(msg, m.keys.Delete):
		if !cur.OwnedBy(uid) {
			return m, statusErr(domain.ErrNotOwner)
		}
		m.confirmDelete = true

	case key.Matches(msg, m.keys.Comment):
		return m, composeRequest(compose.NewComment, cur.ID, "", false)

	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.EditBuffer):
		if !cur.OwnedBy(uid) {
			return m, statusErr(domain.ErrNotOwner)
		}
		return m, composeRequest(compose.EditMoment, cur.ID, cur.Text, key.Matches(msg, m.keys.EditBuffer))

	case key.Matches(msg, m.keys.Profile):
		if m.view == core.ViewProfile && m.deps.Session.ProfileID() == cur.Author.ID {
			return m, nil
		}
		return m, m.OpenProfile(cur.Author.ID)

	case key.Matches(msg, m.keys.Open):
		m.detail = true
		m.comments = nil
		m.commentCursor = 0
		return m, m.loadComments(cur.ID)

	case key.Matches(msg, m.keys.OpenURL):
		if target := openTarget(cur); target != "" {
			return m, openURL(target)
		}

	case key.Matches(msg, m.keys.Play):
		return m, m.play(cur)
	}
	return m, nil
}

func (m Model) play(cur domain.Moment) tea.Cmd {
	if m.deps.Player == nil {
		return nil
	}
	target := cur.Music.PreviewURL
	if target == "" {
		target = cur.VoiceURL
	}
	if target == "" {
		return nil
	}
	player := m.deps.Player
	return func() tea.Msg {
		player.StopAll()
		if err := player.Play(target); err != nil {
			return common.StatusMsg{Err: err}
		}
		return common.StatusMsg{Text: "Playing preview."}
	}
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filterInput.Blur()
		m.filter = strings.TrimSpace(m.filterInput.Value())
		m.cursor, m.offset = 0, 0
		m.refresh()
		return m, tea.Batch(m.emitPrefsChanged(), m.maybePrefetch())
	case tea.KeyEsc:
		m.filtering = false
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		m.filter = ""
		m.refresh()
		return m, m.emitPrefsChanged()
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	cur, ok := m.selected()
	if !ok {
		m.detail = false
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Open):
		m.detail = false
		m.comments = nil
	case key.Matches(msg, m.keys.Up):
		if m.commentCursor > 0 {
			m.commentCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.commentCursor < len(m.comments)-1 {
			m.commentCursor++
		}
	case key.Matches(msg, m.keys.Like):
		return m, m.toggleLike(cur.ID)
	case key.Matches(msg, m.keys.Comment):
		return m, composeRequest(compose.NewComment, cur.ID, "", false)
	case key.Matches(msg, m.keys.Delete):
		if m.commentCursor >= len(m.comments) {
			return m, nil
		}
		c := m.comments[m.commentCursor]
		uid := m.userID()
		if c.Author.ID != uid && !cur.OwnedBy(uid) {
			return m, statusErr(domain.ErrNotOwner)
		}
		return m, m.deleteComment(cur.ID, c.ID)
	case key.Matches(msg, m.keys.Play):
		return m, m.play(cur)
	case key.Matches(msg, m.keys.OpenURL):
		if target := openTarget(cur); target != "" {
			return m, openURL(target)
		}
	}
	return m, nil
}

func composeRequest(p compose.Purpose, id, content string, external bool) tea.Cmd {
	msg := ComposeRequestMsg{Purpose: p, MomentID: id, Content: content, External: external}
	return func() tea.Msg { return msg }
}

func (m Model) itemsPerPage() int {
	if m.height <= 0 {
		return 5
	}
	return max(1, (m.height-8)/7)
}

func (m *Model) ensureCursorVisible() {
	per := m.itemsPerPage()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+per {
		m.offset = m.cursor - per + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}
