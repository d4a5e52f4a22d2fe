package repository

import (
	"time"

	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
)

const (
	defaultMetricsUpdateInterval = 10 * time.Second
	defaultMaxOpenConns          = 10
)

type options struct {
	now                   func() time.Time
	log                   logger.Logger
	metricsUpdateInterval time.Duration
	autoMigrate           bool
	maxOpenConns          int
}

func defaultOptions() options {
	return options{
		now:                   time.Now,
		log:                   logger.Nop(),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		autoMigrate:           true,
		maxOpenConns:          defaultMaxOpenConns,
	}
}

// Option configures a store.
type Option func(*options)

// WithClock overrides the time source used for CreatedAt.
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
			o.log = l
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background gauge updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

// WithAutoMigrate toggles applying schema migrations when the postgres store opens.
func WithAutoMigrate(enabled bool) Option {
	return func(o *options) {
		o.autoMigrate = enabled
	}
}

// WithMaxOpenConns bounds the postgres connection pool.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}
