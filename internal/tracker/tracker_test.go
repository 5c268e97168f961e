package tracker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTracker struct{ name string }

func (s stubTracker) Name() string { return s.name }

func (s stubTracker) FetchBacklog(context.Context, string, string) ([]models.Issue, error) {
	return nil, nil
}

func (s stubTracker) ApplyOrder(context.Context, []models.ScoredIssue) error {
	return ErrOrderingUnsupported
}

func TestRegistry(t *testing.T) {
	Register("stub", func(cfg *config.Config) (Tracker, error) {
		return stubTracker{name: "stub"}, nil
	})
	Register("broken", func(cfg *config.Config) (Tracker, error) {
		return nil, errors.New("bad credentials")
	})

	assert.Subset(t, List(), []string{"broken", "stub"})

	tr, err := New(&config.Config{Source: "stub"})
	require.NoError(t, err)
	assert.Equal(t, "stub", tr.Name())

	_, err = New(&config.Config{Source: "broken"})
	assert.EqualError(t, err, "bad credentials")

	_, err = New(&config.Config{Source: "trello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown tracker "trello"`)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "rate limited", err: &StatusError{StatusCode: http.StatusTooManyRequests, Err: errors.New("slow down")}, want: true},
		{name: "server error", err: &StatusError{StatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}, want: true},
		{name: "not found", err: &StatusError{StatusCode: http.StatusNotFound, Err: errors.New("missing")}, want: false},
		{name: "unauthorized", err: &StatusError{StatusCode: http.StatusUnauthorized, Err: errors.New("denied")}, want: false},
		{name: "network timeout", err: timeoutError{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestRetry(t *testing.T) {
	t.Run("permanent error stops immediately", func(t *testing.T) {
		calls := 0
		notFound := &StatusError{StatusCode: http.StatusNotFound, Err: errors.New("missing")}
		err := Retry(context.Background(), "test", func() error {
			calls++
			return notFound
		})
		assert.ErrorIs(t, err, notFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient error is retried", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), "test", func() error {
			calls++
			if calls < 2 {
				return &StatusError{StatusCode: http.StatusServiceUnavailable, Err: errors.New("unavailable")}
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("cancelled context ends retries", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := Retry(ctx, "test", func() error {
			return &StatusError{StatusCode: http.StatusInternalServerError, Err: errors.New("down")}
		})
		assert.Error(t, err)
	})
}
