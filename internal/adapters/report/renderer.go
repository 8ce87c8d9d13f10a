package report

import (
	"context"
	"time"
)

// Renderer writes tables to one output document.
type Renderer interface {
	// Name identifies the output format in logs and metrics.
	Name() string
	Render(ctx context.Context, tables []Table) error
}

type options struct {
	title string
	now   func() time.Time
}

func defaultOptions() options {
	return options{title: "Cross Country League", now: time.Now}
}

// Option applies a configuration option to a renderer.
type Option func(*options)

// WithTitle sets the document title.
func WithTitle(title string) Option {
	return func(o *options) {
		if title != "" {
			o.title = title
		}
	}
}

// WithClock sets the time source for the printed date.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
