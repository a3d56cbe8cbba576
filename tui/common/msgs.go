package common

// StatusMsg reports the outcome of a user action for the status bar.
type StatusMsg struct {
	Text string
	Err  error
}
