package compose

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/momentlog/momentlog/infra/editor"
)

// --- Mode ---

type mode int

const (
	editorMode mode = iota
	inlineMode
)

// Purpose says what the composed text becomes.
type Purpose int

const (
	NewMoment Purpose = iota
	EditMoment
	NewComment
)

// --- Messages ---

// DoneMsg is sent when composing is complete (success or cancel).
type DoneMsg struct {
	Purpose  Purpose
	MomentID string // target of an edit or comment
	Text     string // empty if cancelled
	Err      error
}

// Cancelled reports whether the user backed out without text.
func (d DoneMsg) Cancelled() bool { return d.Err == nil && d.Text == "" }

// editorFinishedMsg is sent after the external editor exits.
type editorFinishedMsg struct {
	tmpPath string
	err     error
}

// --- Model ---

// Model holds the state for the compose view.
type Model struct {
	mode     mode
	purpose  Purpose
	momentID string
	editor   *editor.EnvEditor
	textarea textarea.Model // inline mode only
	limit    int
	original string
	status   string
}

// Options configures a compose session.
type Options struct {
	Purpose  Purpose
	MomentID string
	Content  string
	Limit    int
	Width    int
}

// NewInline creates a compose model with an inline textarea.
func NewInline(opt Options) Model {
	ta := textarea.New()
	ta.Placeholder = placeholder(opt.Purpose)
	ta.ShowLineNumbers = false
	ta.CharLimit = 0 // the counter in View flags overruns
	ta.SetWidth(width(opt.Width))
	if opt.Purpose == NewComment {
		ta.SetHeight(3)
	} else {
		ta.SetHeight(8)
	}
	ta.SetValue(opt.Content)
	ta.Focus()

	return Model{
		mode:     inlineMode,
		purpose:  opt.Purpose,
		momentID: opt.MomentID,
		textarea: ta,
		limit:    opt.Limit,
		original: opt.Content,
	}
}

// NewEditor creates a compose model that opens $EDITOR via tea.ExecProcess.
func NewEditor(ed *editor.EnvEditor, opt Options) Model {
	return Model{
		mode:     editorMode,
		purpose:  opt.Purpose,
		momentID: opt.MomentID,
		editor:   ed,
		limit:    opt.Limit,
		original: opt.Content,
		status:   "Opening editor...",
	}
}

func placeholder(p Purpose) string {
	switch p {
	case NewComment:
		return "Say something nice..."
	case EditMoment:
		return ""
	}
	return "What happened today?\n/mood 🙂  /loc somewhere  /music <link>  /vis friends  /attach <file>"
}

func width(w int) int {
	if w <= 0 || w > 80 {
		return 72
	}
	return max(w-4, 20)
}

// Init returns the initial command for the active mode.
func (m Model) Init() tea.Cmd {
	switch m.mode {
	case editorMode:
		return m.launchEditor()
	case inlineMode:
		return textarea.Blink
	}
	return nil
}

func (m Model) launchEditor() tea.Cmd {
	cmd, tmpPath, err := m.editor.Cmd(m.original, m.limit)
	if err != nil {
		return m.done("", fmt.Errorf("preparing editor: %w", err))
	}
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{tmpPath: tmpPath, err: err}
	})
}

// Update handles messages for the compose view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case editorFinishedMsg:
		if msg.err != nil {
			return m, m.done("", fmt.Errorf("editor: %w", msg.err))
		}
		content, err := m.editor.ReadContent(msg.tmpPath)
		if err != nil {
			return m, m.done("", err)
		}
		return m, m.finish(content)

	case tea.KeyMsg:
		if m.mode != inlineMode {
			break
		}
		switch msg.String() {
		case "esc":
			return m, m.done("", nil)
		case "ctrl+d", "ctrl+s":
			return m, m.finish(m.textarea.Value())
		}
	}

	if m.mode == inlineMode {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	}
	return m, nil
}

// finish treats blank or unchanged text as a cancel.
func (m Model) finish(content string) tea.Cmd {
	content = strings.TrimSpace(content)
	if content == strings.TrimSpace(m.original) {
		content = ""
	}
	return m.done(content, nil)
}

func (m Model) done(text string, err error) tea.Cmd {
	msg := DoneMsg{Purpose: m.purpose, MomentID: m.momentID, Text: text, Err: err}
	return func() tea.Msg { return msg }
}
