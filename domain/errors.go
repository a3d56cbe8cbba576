package domain

import "errors"

var (
	// ErrNotSignedIn indicates an action that needs a current user.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrEmptyMoment indicates a moment with no text, media or voice memo.
	ErrEmptyMoment = errors.New("moment cannot be empty")

	// ErrTextTooLong indicates the text exceeds the account's tier limit.
	ErrTextTooLong = errors.New("moment text exceeds character limit")

	// ErrNotOwner indicates a mutation reserved to the moment's author.
	ErrNotOwner = errors.New("only the author can do that")

	// ErrNotFound indicates a missing moment, comment or profile.
	ErrNotFound = errors.New("not found")

	// ErrPremiumOnly indicates a feature limited to early-user accounts.
	ErrPremiumOnly = errors.New("available to early users only")

	// ErrEditWindowClosed indicates the post-creation edit window has passed.
	ErrEditWindowClosed = errors.New("edit window has closed")

	// ErrValidation indicates malformed input rejected before any write.
	ErrValidation = errors.New("validation error")

	// ErrInvalidUsername indicates a username outside the allowed format.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrUsernameTaken indicates the username is reserved by another user.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrSelfFollow indicates a user trying to follow themselves.
	ErrSelfFollow = errors.New("cannot follow yourself")

	// ErrMediaUnavailable indicates media upload without a configured sink.
	ErrMediaUnavailable = errors.New("media storage is not configured")
)
