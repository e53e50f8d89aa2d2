package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(retry *RetryPolicy) *CollyClient {
	return NewCollyClient(Config{
		UserAgent: "email-lookup-service/test",
		Timeout:   5 * time.Second,
		Retry:     retry,
	})
}

func TestCollyClient_GetSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("hello alice@example.com"))
	}))
	defer srv.Close()

	client := newTestClient(NewRetryPolicy(1, time.Millisecond, time.Millisecond))
	resp, err := client.Get(context.Background(), Request{URL: srv.URL, BearerToken: "tok-1"})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, string(resp.Body), "alice@example.com")
}

func TestCollyClient_NonSuccessStatusIsNotAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("gone"))
	}))
	defer srv.Close()

	client := newTestClient(NewRetryPolicy(1, time.Millisecond, time.Millisecond))
	resp, err := client.Get(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, 404, resp.StatusCode)
}

func TestCollyClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := newTestClient(NewRetryPolicy(3, time.Millisecond, 2*time.Millisecond))
	resp, err := client.Get(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, int32(3), calls.Load())
}

func TestCollyClient_ServerErrorSurfacesAfterBudget(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(NewRetryPolicy(2, time.Millisecond, 2*time.Millisecond))
	resp, err := client.Get(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err, "a completed 5xx response is returned, not raised")
	require.Equal(t, 502, resp.StatusCode)
}

func TestCollyClient_FollowsRedirects(t *testing.T) {
	t.Parallel()

	var target *httptest.Server
	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("final"))
	}))
	defer target.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer srv.Close()

	client := newTestClient(NewRetryPolicy(1, time.Millisecond, time.Millisecond))
	resp, err := client.Get(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "final", string(resp.Body))
}

func TestCollyClient_TransportErrorAfterRetries(t *testing.T) {
	t.Parallel()

	client := newTestClient(NewRetryPolicy(2, time.Millisecond, 2*time.Millisecond))
	_, err := client.Get(context.Background(), Request{URL: "http://127.0.0.1:1/unreachable"})
	require.Error(t, err)
}
