package lounge

import "errors"

// Sentinel kinds for lounge API errors.
var (
	ErrNotFound = errors.New("not found")
	ErrRemote   = errors.New("lounge api error")
)
