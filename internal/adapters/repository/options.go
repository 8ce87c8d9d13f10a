package repository

import (
	"time"

	"github.com/okian/xcleague/pkg/logger"
)

type options struct {
	now    func() time.Time
	logger logger.Logger
}

func defaultOptions() options {
	return options{
		now:    time.Now,
		logger: logger.Get().Named("repository"),
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithClock sets the time source used for bookkeeping timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
