package ratelimit

import (
	"net/http"

	"go.uber.org/zap"
)

// Transport charges every outgoing request to a Limiter before handing it to
// the base transport. Vendor clients only read, including Monday whose
// GraphQL queries are POSTs, so no method is exempt. Errors of the base
// transport are returned unchanged, never retried.
type Transport struct {
	base    http.RoundTripper
	limiter *Limiter
	logger  *zap.Logger
}

// NewTransport wraps base; a nil base uses http.DefaultTransport
func NewTransport(base http.RoundTripper, l *Limiter, logger *zap.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{base: base, limiter: l, logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	before := t.limiter.Waited()
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	if after := t.limiter.Waited(); after > before {
		t.logger.Info("call budget exhausted, resumed after window",
			zap.String("host", req.URL.Host),
			zap.String("path", req.URL.Path),
			zap.Duration("waited", after-before),
		)
	}
	return t.base.RoundTrip(req)
}
