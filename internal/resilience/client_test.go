package resilience

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

func getter(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("test", srv.Client(), fastBackoff)
	resp, err := c.Do(context.Background(), getter(srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("test", srv.Client(), fastBackoff)
	_, err := c.Do(context.Background(), getter(srv.URL))
	require.ErrorIs(t, err, ErrUnexpected)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("test", srv.Client(), fastBackoff)
	_, err := c.Do(context.Background(), getter(srv.URL))
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(fastBackoff.MaxRetries+1), atomic.LoadInt32(&calls))
}

func TestDoHonoursCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New("test", srv.Client(), fastBackoff)
	_, err := c.Do(ctx, getter(srv.URL))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDoRejectsInvalidConfig(t *testing.T) {
	c := New("test", nil, fastBackoff)
	_, err := c.Do(context.Background(), getter("http://example.invalid"))
	require.Error(t, err)

	c = New("test", http.DefaultClient, BackoffConfig{MaxRetries: 1})
	_, err = c.Do(context.Background(), getter("http://example.invalid"))
	require.Error(t, err)
}
