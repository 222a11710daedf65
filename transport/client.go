package transport

import (
	"log/slog"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

type clientOptions struct {
	base     http.RoundTripper
	logger   *slog.Logger
	timeout  time.Duration
	statuses []int
	extra    []Middleware
}

// Option configures NewClient.
type Option func(*clientOptions)

// WithBase sets the innermost RoundTripper.
func WithBase(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.base = rt }
}

// WithLogger enables the Logging stage.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithRejectStatuses overrides the statuses that force expiry.
func WithRejectStatuses(statuses ...int) Option {
	return func(o *clientOptions) { o.statuses = append([]int(nil), statuses...) }
}

// WithMiddleware appends stages that run after the standard ones.
func WithMiddleware(mws ...Middleware) Option {
	return func(o *clientOptions) { o.extra = append(o.extra, mws...) }
}

// NewClient returns an http.Client whose transport runs, in order: request id,
// bearer credential, expiry detection, logging (when a logger is set), then any
// extra stages. Reject statuses and timeout default to the Authority's config.
func NewClient(a *goSession.Authority, opts ...Option) *http.Client {
	cfg := a.Config()
	o := clientOptions{
		timeout:  cfg.Endpoint.Timeout,
		statuses: cfg.Augmenter.RejectStatuses,
	}
	for _, opt := range opts {
		opt(&o)
	}

	mws := []Middleware{
		RequestID(),
		BearerAuth(a),
		ExpiryDetector(a, o.statuses...),
	}
	if o.logger != nil {
		mws = append(mws, Logging(o.logger))
	}
	mws = append(mws, o.extra...)

	return &http.Client{
		Transport: Chain(o.base, mws...),
		Timeout:   o.timeout,
	}
}
