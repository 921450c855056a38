package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testFetcher() *HTTPFetcher {
	return NewHTTPFetcher(Config{
		Timeout: 5 * time.Second,
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		},
		RateLimit: rate.Inf,
	})
}

func TestFetchJSONSuccess(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": 4314902, "nome": "Porto Alegre"}]`))
	}))
	defer server.Close()

	var out []struct {
		ID   int    `json:"id"`
		Nome string `json:"nome"`
	}
	err := testFetcher().FetchJSON(context.Background(), server.URL, &out)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 4314902, out[0].ID)
	assert.Equal(t, DefaultUserAgent, userAgent)
}

func TestFetchJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	var out map[string]bool
	err := testFetcher().FetchJSON(context.Background(), server.URL, &out)

	require.NoError(t, err)
	assert.True(t, out["ok"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchJSONExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var out any
	err := testFetcher().FetchJSON(context.Background(), server.URL, &out)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchJSONPermanentError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var out any
	err := testFetcher().FetchJSON(context.Background(), server.URL, &out)

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchJSONInvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var out any
	err := testFetcher().FetchJSON(context.Background(), server.URL, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestFetchJSONFallsBackToHTTPOnTLSFailure(t *testing.T) {
	var plainCalls int32
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&plainCalls, 1)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer plain.Close()

	// https на обычный HTTP сервер дает ошибку рукопожатия TLS
	httpsURL := "https://" + plain.Listener.Addr().String()

	var out map[string]bool
	err := testFetcher().FetchJSON(context.Background(), httpsURL, &out)

	require.NoError(t, err)
	assert.True(t, out["ok"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&plainCalls))
}

func TestFetchJSONForceHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	f := NewHTTPFetcher(Config{ForceHTTP: true, RateLimit: rate.Inf})
	var out []any
	err := f.FetchJSON(context.Background(), "https://"+server.Listener.Addr().String(), &out)
	require.NoError(t, err)
}

func TestFetchJSONContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out any
	err := testFetcher().FetchJSON(ctx, server.URL, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRetryConfigDelay(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, time.Second, cfg.Delay(1))
	assert.Equal(t, 2*time.Second, cfg.Delay(2))
	assert.Equal(t, 16*time.Second, cfg.Delay(5))
	assert.Equal(t, 20*time.Second, cfg.Delay(6))
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(&StatusError{Code: 503}))
	assert.True(t, IsRetryableError(&StatusError{Code: 429}))
	assert.False(t, IsRetryableError(&StatusError{Code: 400}))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.True(t, IsRetryableError(context.DeadlineExceeded))
}
