package multiplier

import "errors"

// Sentinel kinds for reconciliation errors.
var (
	ErrPlayerNotOnTable = errors.New("player not on table")
)
