package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/momentlog/momentlog/account"
	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
	core "github.com/momentlog/momentlog/feed"
	"github.com/momentlog/momentlog/infra/config"
	"github.com/momentlog/momentlog/infra/editor"
	"github.com/momentlog/momentlog/tui/common"
	"github.com/momentlog/momentlog/tui/compose"
	"github.com/momentlog/momentlog/tui/feed"
	"github.com/momentlog/momentlog/tui/inbox"
)

// commentLimit mirrors the coordinator's comment cap for the counter.
const commentLimit = 500

// Deps holds all dependencies the TUI needs. Plain struct, not a DI container.
type Deps struct {
	Session     *core.Session
	Aggregator  *core.Aggregator
	Coordinator *core.Coordinator
	Accounts    *account.Service
	Source      app.QuerySource
	Identity    app.Identity
	Editor      *editor.EnvEditor
	Player      *feed.Player
	State       config.UIState
	SaveState   func(config.UIState) error
	Log         *zerolog.Logger
}

var tabs = []core.View{
	core.ViewFollowing,
	core.ViewExplore,
	core.ViewWrite,
	core.ViewNotifications,
	core.ViewMyMoments,
}

var tabLabels = map[core.View]string{
	core.ViewFollowing:     "Following",
	core.ViewExplore:       "Explore",
	core.ViewWrite:         "Write",
	core.ViewNotifications: "Inbox",
	core.ViewMyMoments:     "Mine",
	core.ViewProfile:       "Profile",
}

type profileMsg struct {
	profile domain.UserProfile
}

// App is the root Bubble Tea model. It routes between sub-views.
type App struct {
	deps      Deps
	keys      common.KeyMap
	active    core.View
	returnTo  core.View
	feed      feed.Model
	inbox     inbox.Model
	compose   compose.Model
	composing bool
	tier      domain.Tier
	status    string
	statusErr bool
	width     int

	start     tea.Cmd
	changes   chan core.Change
	cancelSub func()
}

// NewApp creates the root model and subscribes it to feed changes.
func NewApp(deps Deps) App {
	if deps.Log == nil {
		nop := zerolog.Nop()
		deps.Log = &nop
	}
	changes := make(chan core.Change, 32)
	cancel := deps.Aggregator.Subscribe(func(ch core.Change) {
		select {
		case changes <- ch:
		default:
			// A pending event already triggers a full redraw.
		}
	})
	fd := feed.New(feed.Deps{
		Session:     deps.Session,
		Aggregator:  deps.Aggregator,
		Coordinator: deps.Coordinator,
		Accounts:    deps.Accounts,
		Source:      deps.Source,
		Identity:    deps.Identity,
		Player:      deps.Player,
	}, deps.State.Filter)

	a := App{
		deps:      deps,
		keys:      common.DefaultKeyMap(),
		active:    core.ViewFollowing,
		returnTo:  core.ViewFollowing,
		feed:      fd,
		inbox:     inbox.New(deps.Accounts, nil),
		changes:   changes,
		cancelSub: cancel,
	}
	// Write and profile need context that is not persisted.
	view := core.ParseView(deps.State.View)
	if view == core.ViewWrite || view == core.ViewProfile {
		view = core.ViewFollowing
	}
	a, a.start = a.enter(view, true)
	return a
}

// Close detaches the app from feed changes.
func (a App) Close() {
	if a.cancelSub != nil {
		a.cancelSub()
	}
}

// Init starts listening for changes and loads the restored view.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.feed.Init(),
		waitForChange(a.changes),
		a.loadOwnProfile(),
		a.start,
	)
}

func waitForChange(ch <-chan core.Change) tea.Cmd {
	return func() tea.Msg {
		return feed.ChangedMsg{Change: <-ch}
	}
}

func (a App) loadOwnProfile() tea.Cmd {
	u, ok := a.deps.Identity.CurrentUser()
	if !ok {
		return nil
	}
	accounts := a.deps.Accounts
	return func() tea.Msg {
		p, err := accounts.Profile(context.Background(), u.ID)
		if err != nil {
			return common.StatusMsg{Err: err}
		}
		return profileMsg{profile: p}
	}
}

// enter makes view active. The write tab opens the composer.
func (a App) enter(view core.View, force bool) (App, tea.Cmd) {
	if a.active != core.ViewWrite && a.active != core.ViewNotifications {
		a.returnTo = a.active
	}
	a.active = view
	a.composing = false
	cmds := []tea.Cmd{a.feed.SwitchTo(view, force)}

	switch view {
	case core.ViewWrite:
		a.compose = compose.NewInline(compose.Options{Purpose: compose.NewMoment, Limit: a.tier.TextLimit(), Width: a.width})
		a.composing = true
		cmds = append(cmds, a.compose.Init())
	case core.ViewNotifications:
		cmds = append(cmds, a.inbox.Load())
	}
	return a, tea.Batch(cmds...)
}

func (a App) cycle(step int) (App, tea.Cmd) {
	idx := -1
	for i, v := range tabs {
		if v == a.active {
			idx = i
		}
	}
	next := tabs[(idx+step+len(tabs))%len(tabs)]
	if idx < 0 && step < 0 {
		next = tabs[len(tabs)-1]
	}
	return a.enter(next, false)
}

// Update handles messages and routes to the active sub-model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		var c1, c2 tea.Cmd
		a.feed, c1 = a.feed.Update(msg)
		a.inbox, c2 = a.inbox.Update(msg)
		return a, tea.Batch(c1, c2)

	case feed.ChangedMsg:
		var cmd tea.Cmd
		a.feed, cmd = a.feed.Update(msg)
		return a, tea.Batch(cmd, waitForChange(a.changes))

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.feed, cmd = a.feed.Update(msg)
		return a, cmd

	case profileMsg:
		a.tier = msg.profile.Tier()
		return a, nil

	case common.StatusMsg:
		a.setStatus(msg)
		return a, nil

	case feed.PrefsChangedMsg:
		return a, a.savePrefs(msg)

	case feed.ComposeRequestMsg:
		a.composing = true
		a.status = ""
		opts := compose.Options{Purpose: msg.Purpose, MomentID: msg.MomentID, Content: msg.Content, Width: a.width}
		opts.Limit = a.tier.TextLimit()
		if msg.Purpose == compose.NewComment {
			opts.Limit = commentLimit
		}
		if msg.External && a.deps.Editor != nil {
			a.compose = compose.NewEditor(a.deps.Editor, opts)
		} else {
			a.compose = compose.NewInline(opts)
		}
		return a, a.compose.Init()

	case compose.DoneMsg:
		return a.finishCompose(msg)

	case inbox.OpenProfileMsg:
		a.active = core.ViewProfile
		return a, a.openProfile(msg.UserID)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	// Everything else belongs to a sub-model's own async work.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.feed, cmd = a.feed.Update(msg)
	cmds = append(cmds, cmd)
	a.inbox, cmd = a.inbox.Update(msg)
	cmds = append(cmds, cmd)
	if a.composing {
		a.compose, cmd = a.compose.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a *App) openProfile(uid string) tea.Cmd {
	a.composing = false
	return a.feed.OpenProfile(uid)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.ForceQuit) {
		return a, tea.Quit
	}
	if a.composing {
		var cmd tea.Cmd
		a.compose, cmd = a.compose.Update(msg)
		return a, cmd
	}
	if a.active != core.ViewNotifications && a.feed.Capturing() {
		var cmd tea.Cmd
		a.feed, cmd = a.feed.Update(msg)
		return a, cmd
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.NextTab):
		return a.cycle(1)
	case key.Matches(msg, a.keys.PrevTab):
		return a.cycle(-1)
	case key.Matches(msg, a.keys.Compose):
		return a.enter(core.ViewWrite, false)
	}

	a.status = ""
	var cmd tea.Cmd
	if a.active == core.ViewNotifications {
		a.inbox, cmd = a.inbox.Update(msg)
	} else {
		a.feed, cmd = a.feed.Update(msg)
	}
	return a, cmd
}

func (a App) finishCompose(msg compose.DoneMsg) (tea.Model, tea.Cmd) {
	a.composing = false
	var back tea.Cmd
	if a.active == core.ViewWrite {
		a, back = a.enter(a.returnTo, false)
	}
	if msg.Err != nil {
		a.setStatus(common.StatusMsg{Err: msg.Err})
		return a, back
	}
	if msg.Cancelled() {
		a.setStatus(common.StatusMsg{Text: "Cancelled."})
		return a, back
	}

	coord := a.deps.Coordinator
	var run tea.Cmd
	switch msg.Purpose {
	case compose.NewMoment:
		draft, err := compose.ParseDraft(msg.Text, nil)
		if err != nil {
			a.setStatus(common.StatusMsg{Err: err})
			return a, back
		}
		a.setStatus(common.StatusMsg{Text: "Posting..."})
		run = func() tea.Msg {
			if _, err := coord.Create(context.Background(), draft); err != nil {
				return common.StatusMsg{Err: err}
			}
			return common.StatusMsg{Text: "Moment posted."}
		}
	case compose.EditMoment:
		run = func() tea.Msg {
			if err := coord.Edit(context.Background(), msg.MomentID, msg.Text); err != nil {
				return common.StatusMsg{Err: err}
			}
			return common.StatusMsg{Text: "Moment updated."}
		}
	case compose.NewComment:
		run = func() tea.Msg {
			if _, err := coord.AddComment(context.Background(), msg.MomentID, msg.Text); err != nil {
				return common.StatusMsg{Err: err}
			}
			return common.StatusMsg{Text: "Comment added."}
		}
	}
	return a, tea.Batch(back, run)
}

func (a *App) setStatus(msg common.StatusMsg) {
	if msg.Err != nil {
		a.deps.Log.Warn().Err(msg.Err).Msg("action failed")
		a.status = "Error: " + msg.Err.Error()
		a.statusErr = true
		return
	}
	a.status = msg.Text
	a.statusErr = false
}

func (a App) savePrefs(msg feed.PrefsChangedMsg) tea.Cmd {
	if a.deps.SaveState == nil {
		return nil
	}
	view := msg.View
	if view == core.ViewProfile || view == core.ViewWrite {
		view = core.ViewFollowing
	}
	st := config.UIState{View: view.String(), Filter: msg.Filter}
	save, log := a.deps.SaveState, a.deps.Log
	return func() tea.Msg {
		if err := save(st); err != nil {
			log.Warn().Err(err).Msg("saving ui state")
		}
		return nil
	}
}

// View renders the active sub-model under the tab bar.
func (a App) View() string {
	var b strings.Builder
	b.WriteString(a.header())
	b.WriteString("\n\n")

	switch {
	case a.composing:
		b.WriteString(a.compose.View())
	case a.active == core.ViewNotifications:
		b.WriteString(a.inbox.View())
	default:
		b.WriteString(a.feed.View())
	}

	if a.status != "" {
		style := common.StatusBarStyle
		if a.statusErr {
			style = style.Inherit(common.ErrorStyle)
		}
		b.WriteString("\n" + style.Render(a.status))
	}
	return b.String()
}

func (a App) header() string {
	who := "signed out"
	if u, ok := a.deps.Identity.CurrentUser(); ok {
		who = common.Sanitize(u.DisplayName)
		if who == "" {
			who = u.ID
		}
	}
	title := common.AppTitleStyle.Render("momentLog") + common.TimestampStyle.Render(" · "+who)

	views := tabs
	if a.active == core.ViewProfile {
		views = append(append([]core.View(nil), tabs...), core.ViewProfile)
	}
	labels := make([]string, 0, len(views))
	for _, v := range views {
		label := tabLabels[v]
		if v == core.ViewNotifications {
			if n := a.inbox.Unread(); n > 0 {
				label = fmt.Sprintf("%s (%d)", label, n)
			}
		}
		if v == a.active {
			labels = append(labels, common.TabActiveStyle.Render(label))
		} else {
			labels = append(labels, common.TabInactiveStyle.Render(label))
		}
	}
	return title + "\n" + strings.Join(labels, " ")
}
