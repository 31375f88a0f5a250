package lazy

import (
	"time"

	"go.uber.org/zap"
)

// DefaultStaleRetries is how many times a call is retried after the target went stale.
const DefaultStaleRetries = 2

// Option configures a Handle or List.
type Option func(*options)

type options struct {
	logger        *zap.Logger
	staleRetries  int
	retryInterval time.Duration
	description   string
}

func newOptions(opts []Option) options {
	o := options{
		logger:       zap.NewNop(),
		staleRetries: DefaultStaleRetries,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for re-resolution diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStaleRetries bounds how often a stale target is re-resolved. Zero disables retries.
func WithStaleRetries(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.staleRetries = n
	}
}

// WithRetryInterval pauses between re-resolutions.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) { o.retryInterval = d }
}

// WithDescription names the target in logs and errors.
func WithDescription(desc string) Option {
	return func(o *options) { o.description = desc }
}

// inherit returns options for handles derived from this one.
func (o options) inherit(desc string) []Option {
	return []Option{
		WithLogger(o.logger),
		WithStaleRetries(o.staleRetries),
		WithRetryInterval(o.retryInterval),
		WithDescription(desc),
	}
}
