package csvio

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrDecode        = errors.New("decode race file")
	ErrBadRecord     = errors.New("bad record")
)
