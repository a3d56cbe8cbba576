package common

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines shared key bindings across all views.
type KeyMap struct {
	Quit        key.Binding
	ForceQuit   key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	Up          key.Binding
	Down        key.Binding
	Refresh     key.Binding
	Compose     key.Binding // n: new moment
	Like        key.Binding // l: like/unlike
	Visibility  key.Binding // v: cycle public/friends/private
	Delete      key.Binding // d: delete own moment (asks first)
	Comment     key.Binding // c: comment inline
	Edit        key.Binding // e: edit text inline
	EditBuffer  key.Binding // E: edit text in $EDITOR
	Filter      key.Binding // /: search the loaded feed
	Profile     key.Binding // p: open the author's profile
	Follow      key.Binding // f: follow/unfollow the open profile
	Approve     key.Binding // a: approve follow request
	Decline     key.Binding // x: decline follow request / dismiss
	Open        key.Binding // enter: open moment / mark read
	Back        key.Binding
	OpenURL     key.Binding // o: open media in browser
	Play        key.Binding // space: play music or voice preview
	ClearAll    key.Binding // C: clear inbox
	Confirm     key.Binding
	Cancel      key.Binding
	ToggleHints key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev view"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Compose: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new moment"),
		),
		Like: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "like"),
		),
		Visibility: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "visibility"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Comment: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "comment"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		EditBuffer: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "edit ($EDITOR)"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Profile: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "profile"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow"),
		),
		Approve: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "approve"),
		),
		Decline: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "decline/dismiss"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		OpenURL: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open media"),
		),
		Play: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "clear all"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("esc", "cancel"),
		),
		ToggleHints: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "hints"),
		),
	}
}

// HelpLine renders the short help for bindings as "k desc • k desc".
func HelpLine(bindings ...key.Binding) string {
	var out string
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		if out != "" {
			out += " • "
		}
		out += h.Key + " " + h.Desc
	}
	return out
}
