package feed

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/momentlog/momentlog/domain"
	core "github.com/momentlog/momentlog/feed"
	"github.com/momentlog/momentlog/tui/common"
)

// View renders the moment list, or the open moment with its comments.
func (m Model) View() string {
	var b strings.Builder

	if m.view == core.ViewProfile {
		b.WriteString(m.renderProfileHeader())
		b.WriteString("\n")
	}
	if m.filtering {
		b.WriteString(m.filterInput.View() + "\n\n")
	} else if m.filter != "" {
		b.WriteString(common.MetaStyle.Render("search: "+m.filter) + "\n\n")
	}

	if m.detail {
		if cur, ok := m.selected(); ok {
			b.WriteString(m.renderDetail(cur))
			return b.String()
		}
	}

	if len(m.items) == 0 {
		b.WriteString(m.renderEmpty())
	} else {
		end := min(m.offset+m.itemsPerPage(), len(m.items))
		uid := m.userID()
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderMoment(m.items[i], uid, i == m.cursor))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 76
	}
	return max(m.width-4, 20)
}

func (m Model) renderEmpty() string {
	if m.loading {
		return m.spinner.View() + " Loading moments...\n"
	}
	if m.userID() == "" && m.view != core.ViewExplore {
		return common.TimestampStyle.Render("Sign in with `momentlog login <username>` to see this view.") + "\n"
	}
	if m.filter != "" {
		return common.TimestampStyle.Render("No moments match this search.") + "\n"
	}
	return common.TimestampStyle.Render("Nothing here yet.") + "\n"
}

func (m Model) renderFooter() string {
	var parts []string
	switch {
	case m.confirmDelete:
		parts = append(parts, common.ConfirmStyle.Render("Delete this moment? (y/n)"))
	case m.loading && len(m.items) > 0:
		parts = append(parts, m.spinner.View()+" loading more...")
	case !m.hasMore && len(m.items) > 0:
		parts = append(parts, common.TimestampStyle.Render("· end of feed ·"))
	}
	if m.showHints {
		k := m.keys
		parts = append(parts, common.TimestampStyle.Render(common.HelpLine(
			k.Up, k.Down, k.Open, k.Like, k.Comment, k.Visibility, k.Edit, k.EditBuffer,
			k.Delete, k.Profile, k.Follow, k.Filter, k.OpenURL, k.Play, k.Refresh)))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n") + "\n"
}

func (m Model) renderMoment(mo domain.Moment, uid string, selected bool) string {
	width := m.contentWidth()
	var b strings.Builder

	head := mo.Author.Avatar + " " + common.AuthorStyle.Render(common.Sanitize(mo.Author.Name))
	if mo.Author.Verified {
		head += common.BadgeStyle.Render("✓")
	}
	if mo.OwnedBy(uid) {
		head += common.BadgeStyle.Render("you")
	}
	meta := common.RelativeTime(mo.CreatedAt, m.deps.Now())
	if mo.MomentDate != "" {
		meta += " · " + mo.MomentDate
	}
	meta += " · " + mo.Visibility.Label()
	b.WriteString(head + "  " + common.TimestampStyle.Render(meta) + "\n")

	if text := common.Sanitize(mo.Text); text != "" {
		b.WriteString(common.ContentStyle.Width(width).Render(text) + "\n")
	}
	if line := metaLine(mo); line != "" {
		b.WriteString(common.MetaStyle.Render(common.Truncate(line, width)) + "\n")
	}

	heart := "♡"
	if mo.LikedBy(uid) {
		heart = "♥"
	}
	b.WriteString(common.TimestampStyle.Render(fmt.Sprintf("%s %d  💬 %d", heart, len(mo.Likes), mo.CommentsCount)))

	style := common.UnselectedStyle
	if selected {
		style = common.SelectedStyle
	}
	return style.Width(width).Render(b.String())
}

func metaLine(mo domain.Moment) string {
	var parts []string
	if mo.Mood != "" {
		parts = append(parts, mo.Mood)
	}
	if place := strings.TrimSpace(strings.Join(nonEmpty(mo.Venue, mo.Location), ", ")); place != "" {
		pin := "📍 "
		if mo.VerifiedLocation {
			pin = "📍✓ "
		}
		parts = append(parts, pin+place)
	}
	if mo.Music.Display != "" {
		parts = append(parts, "🎵 "+mo.Music.Display)
	}
	if mo.VoiceURL != "" {
		parts = append(parts, "🎙 voice memo")
	}
	if n := len(mo.Media); n > 0 {
		parts = append(parts, fmt.Sprintf("🖼 %d", n))
	}
	if mo.Sticker != "" {
		parts = append(parts, mo.Sticker)
	}
	return common.Sanitize(strings.Join(parts, "  "))
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func (m Model) renderDetail(mo domain.Moment) string {
	var b strings.Builder
	uid := m.userID()
	b.WriteString(m.renderMoment(mo, uid, true))
	b.WriteString("\n\n")

	switch {
	case m.comments == nil:
		b.WriteString(m.spinner.View() + " Loading comments...\n")
	case len(m.comments) == 0:
		b.WriteString(common.TimestampStyle.Render("No comments yet. Press c to add one.") + "\n")
	default:
		width := m.contentWidth()
		for i, c := range m.comments {
			marker := "  "
			if i == m.commentCursor {
				marker = "> "
			}
			line := fmt.Sprintf("%s%s %s  %s", marker, c.Author.Avatar,
				common.AuthorStyle.Render(common.Sanitize(c.Author.Name)),
				common.TimestampStyle.Render(common.RelativeTime(c.CreatedAt, m.deps.Now())))
			b.WriteString(line + "\n")
			b.WriteString(lipgloss.NewStyle().PaddingLeft(4).Width(width).Render(common.Sanitize(c.Text)) + "\n")
		}
	}
	k := m.keys
	b.WriteString(common.StatusBarStyle.Render(common.HelpLine(k.Back, k.Like, k.Comment, k.Delete, k.Play)))
	return b.String()
}

func (m Model) renderProfileHeader() string {
	if m.profile == nil {
		return m.spinner.View() + " Loading profile...\n"
	}
	p := m.profile
	head := p.AvatarOrDefault() + " " + common.AuthorStyle.Render(common.Sanitize(p.DisplayName))
	if p.Username != "" {
		head += " " + common.TimestampStyle.Render("@"+p.Username)
	}
	if p.Private {
		head += common.BadgeStyle.Render("🔒")
	}
	if p.Verified {
		head += common.BadgeStyle.Render("✓")
	}
	var b strings.Builder
	b.WriteString(head + "\n")
	if p.Bio != "" {
		b.WriteString(common.ContentStyle.Width(m.contentWidth()).Render(common.Sanitize(p.Bio)) + "\n")
	}
	counts := fmt.Sprintf("%d followers · %d following", len(p.Followers), len(p.Following))
	if p.ID == m.userID() {
		n := len(m.deps.Aggregator.Mine())
		noun := "moments"
		if n == 1 {
			noun = "moment"
		}
		counts = fmt.Sprintf("%d %s · %s", n, noun, counts)
	} else {
		switch m.followState {
		case domain.FollowActive:
			counts += " · following (f to unfollow)"
		case domain.FollowRequested:
			counts += " · requested (f to withdraw)"
		default:
			counts += " · f to follow"
		}
	}
	b.WriteString(common.TimestampStyle.Render(counts) + "\n")
	return b.String()
}
