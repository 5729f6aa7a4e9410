package services

import (
	"time"
)

type serviceOptions struct {
	now         Clock
	dispatch    func(func())
	pushTimeout time.Duration
}

// Option configures a service.
type Option func(*serviceOptions)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(o *serviceOptions) { o.now = c }
}

// WithDispatcher replaces the goroutine used for push delivery.
func WithDispatcher(d func(func())) Option {
	return func(o *serviceOptions) { o.dispatch = d }
}

// WithPushTimeout bounds each push attempt.
func WithPushTimeout(d time.Duration) Option {
	return func(o *serviceOptions) { o.pushTimeout = d }
}

func buildOptions(opts []Option) serviceOptions {
	o := serviceOptions{
		now:         time.Now,
		dispatch:    func(f func()) { go f() },
		pushTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
