package feed

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
	core "github.com/momentlog/momentlog/feed"
	"github.com/momentlog/momentlog/tui/common"
	"github.com/momentlog/momentlog/tui/compose"
)

// prefetchTrigger is how close to the end the cursor gets before the next
// page is requested.
const prefetchTrigger = 2

// Accounts is the account surface the profile view uses.
type Accounts interface {
	Profile(ctx context.Context, uid string) (domain.UserProfile, error)
	FollowState(ctx context.Context, targetID string) (domain.FollowState, error)
	Follow(ctx context.Context, targetID string) (domain.FollowState, error)
	Unfollow(ctx context.Context, targetID string) error
}

// Deps are the collaborators the feed view drives.
type Deps struct {
	Session     *core.Session
	Aggregator  *core.Aggregator
	Coordinator *core.Coordinator
	Accounts    Accounts
	Source      app.QuerySource
	Identity    app.Identity
	Player      *Player
	Now         func() time.Time
}

// --- Messages ---

// ChangedMsg carries an aggregator change into the Bubble Tea loop.
type ChangedMsg struct {
	Change core.Change
}

// ComposeRequestMsg asks the root model to open the composer.
type ComposeRequestMsg struct {
	Purpose  compose.Purpose
	MomentID string
	Content  string
	External bool
}

// PrefsChangedMsg is emitted when the persisted UI state should be saved.
type PrefsChangedMsg struct {
	View   core.View
	Filter string
}

type switchedMsg struct{}

type loadedMsg struct {
	Outcome core.LoadOutcome
}

type commentsLoadedMsg struct {
	MomentID string
	Comments []domain.Comment
	Err      error
}

type profileLoadedMsg struct {
	Profile domain.UserProfile
	State   domain.FollowState
	Err     error
}

type commentDeletedMsg struct {
	MomentID  string
	CommentID string
	Err       error
}

// --- Model ---

// Model holds the state for the moment list views.
type Model struct {
	deps Deps
	keys common.KeyMap

	view    core.View
	items   []domain.Moment
	cursor  int
	offset  int
	hasMore bool
	loading bool

	filter      string
	filterInput textinput.Model
	filtering   bool

	confirmDelete bool

	detail        bool
	comments      []domain.Comment
	commentCursor int

	profile     *domain.UserProfile
	followState domain.FollowState

	showHints bool
	spinner   spinner.Model
	width     int
	height    int
}

// New creates a feed model. The first view is entered by SwitchTo.
func New(deps Deps, filter string) Model {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = common.SpinnerStyle

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "text, @name, mood or place"
	ti.CharLimit = 100
	ti.SetValue(filter)

	return Model{
		deps:        deps,
		keys:        common.DefaultKeyMap(),
		filter:      filter,
		filterInput: ti,
		spinner:     s,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// ActiveView returns the active core view.
func (m Model) ActiveView() core.View { return m.view }

// Filter returns the applied search query.
func (m Model) Filter() string { return m.filter }

// Capturing reports whether the model is consuming raw keys (search box,
// delete prompt) so the root must not treat them as global shortcuts.
func (m Model) Capturing() bool { return m.filtering || m.confirmDelete || m.detail }

func (m Model) userID() string {
	if m.deps.Identity == nil {
		return ""
	}
	u, ok := m.deps.Identity.CurrentUser()
	if !ok {
		return ""
	}
	return u.ID
}

func (m Model) selected() (domain.Moment, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return domain.Moment{}, false
	}
	return m.items[m.cursor], true
}

// refresh pulls the current materialized list from the aggregator.
func (m *Model) refresh() {
	var keepID string
	if cur, ok := m.selected(); ok {
		keepID = cur.ID
	}
	m.items = m.deps.Aggregator.Materialize(m.filter)
	m.hasMore = m.deps.Aggregator.HasMore()
	m.loading = m.deps.Aggregator.Loading()

	if keepID != "" {
		for i, it := range m.items {
			if it.ID == keepID {
				m.cursor = i
				break
			}
		}
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if len(m.items) == 0 {
		m.detail = false
		m.confirmDelete = false
	}
}
