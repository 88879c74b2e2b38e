package bulk

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrAuthUnavailable    = errors.New("authentication unavailable")
	ErrConfigMissing      = errors.New("configuration missing")
	ErrMalformedInput     = errors.New("malformed input")
	ErrUniquenessConflict = errors.New("uniqueness conflict")
	ErrUserNotFound       = errors.New("user not found")
	ErrMissingIdentity    = errors.New("record has no username or email")
)
