package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrUnknownKind = errors.New("unknown penalty kind")
)
