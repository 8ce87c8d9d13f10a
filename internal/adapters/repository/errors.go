package repository

import (
	"errors"

	"github.com/okian/xcleague/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	// ErrNotFound is model.ErrNotFound so domain readers can match it.
	ErrNotFound   = model.ErrNotFound
	ErrInvalidKey = errors.New("invalid store key")
)
