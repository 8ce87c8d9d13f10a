package normalize

import "errors"

// Sentinel kinds for normalization errors.
var (
	ErrBadTime      = errors.New("invalid race time")
	ErrInvalidPatch = errors.New("invalid correction")
)
