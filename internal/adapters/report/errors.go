package report

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrNoTables = errors.New("no tables to render")
	ErrRender   = errors.New("render report")
)
