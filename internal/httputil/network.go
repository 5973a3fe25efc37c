// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// NetworkRetryDoer wraps a Doer and retries requests that fail before any
// response is received (DNS failures, refused connections, timeouts).
// Responses of any status are returned as-is.
type NetworkRetryDoer struct {
	Doer Doer

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialInterval is the first backoff wait. Zero uses the backoff default.
	InitialInterval time.Duration

	// Notify, if set, is called before each wait.
	Notify func(err error, wait time.Duration)
}

// Do implements Doer.
func (d *NetworkRetryDoer) Do(req *http.Request) (*http.Response, error) {
	if d.MaxRetries <= 0 {
		return d.Doer.Do(req)
	}

	b := backoff.NewExponentialBackOff()
	if d.InitialInterval > 0 {
		b.InitialInterval = d.InitialInterval
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.MaxRetries + 1)),
	}
	if d.Notify != nil {
		opts = append(opts, backoff.WithNotify(d.Notify))
	}

	ctx := req.Context()
	return backoff.Retry(ctx, func() (*http.Response, error) {
		resp, err := d.Doer.Do(req.Clone(ctx))
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}, opts...)
}
