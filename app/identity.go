package app

// User is the signed-in account as the session sees it.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// Identity reports who is signed in.
type Identity interface {
	// CurrentUser returns the signed-in user, or false when signed out.
	CurrentUser() (User, bool)

	// OnAuthChange registers fn for sign-in and sign-out events.
	// The returned func removes the registration.
	OnAuthChange(fn func(User, bool)) (cancel func())
}
