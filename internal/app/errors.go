package service

import "errors"

// Sentinel errors returned by the pipeline.
var (
	ErrNoStore    = errors.New("service: no store configured")
	ErrRaceFile   = errors.New("race file failed")
	ErrStandings  = errors.New("standings failed")
	ErrRender     = errors.New("render failed")
	ErrNoInputDir = errors.New("service: input directory missing")
)
