package tracker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/danielolaszy/triage/internal/logging"
)

// retryMaxElapsed bounds how long a single tracker call is retried.
const retryMaxElapsed = 30 * time.Second

// StatusError carries the HTTP status of a failed tracker call so retry
// decisions do not depend on SDK-specific error types.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient failure: rate limiting,
// a server error or a network timeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func newBackOff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	return bo
}

// Retry runs op until it succeeds, fails permanently or the context ends.
func Retry(ctx context.Context, name string, op func() error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		logging.Debug("retrying tracker call", "call", name, "attempt", attempt, "error", err)
		return err
	}, backoff.WithContext(newBackOff(), ctx))
}
