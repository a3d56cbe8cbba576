package compose

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/momentlog/momentlog/tui/common"
)

var titles = map[Purpose]string{
	NewMoment:  "New moment",
	EditMoment: "Edit moment",
	NewComment: "Comment",
}

// View renders the compose view based on the active mode.
func (m Model) View() string {
	if m.mode == editorMode {
		return m.status + "\n"
	}

	var b strings.Builder
	b.WriteString(common.AppTitleStyle.Render("momentLog"))
	b.WriteString("  " + titles[m.purpose] + "\n\n")
	b.WriteString(m.textarea.View())
	b.WriteString("\n")

	count := m.textLength()
	counter := fmt.Sprintf("%d/%d", count, m.limit)
	if m.limit > 0 && count > m.limit {
		counter = common.ErrorStyle.Render(counter)
	}
	b.WriteString(common.StatusBarStyle.Render("ctrl+d: save • esc: cancel • " + counter))
	return b.String()
}

// textLength counts the text that will be stored, directives excluded.
func (m Model) textLength() int {
	if m.purpose != NewMoment {
		return utf8.RuneCountInString(strings.TrimSpace(m.textarea.Value()))
	}
	n := 0
	for _, line := range strings.Split(m.textarea.Value(), "\n") {
		if _, _, ok := directive(strings.TrimSpace(line)); ok {
			continue
		}
		n += utf8.RuneCountInString(line) + 1
	}
	return max(n-1, 0)
}
