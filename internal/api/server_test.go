package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/email-lookup/internal/lookup"
)

type fakeResolver struct {
	result lookup.Result
	err    error
	calls  int
	last   lookup.Request
}

func (r *fakeResolver) Resolve(_ context.Context, req lookup.Request) (lookup.Result, error) {
	r.calls++
	r.last = req
	return r.result, r.err
}

type fakeRecords struct {
	records map[string]lookup.Record
	err     error
}

func (s *fakeRecords) Get(_ context.Context, key string) (lookup.Record, error) {
	if s.err != nil {
		return lookup.Record{}, s.err
	}
	rec, ok := s.records[key]
	if !ok {
		return lookup.Record{}, lookup.ErrNotFound
	}
	return rec, nil
}

func (s *fakeRecords) Upsert(_ context.Context, key string, email, source *string) (lookup.Record, error) {
	return lookup.Record{Key: key, Email: email, Source: source}, nil
}

type fakeLimiter struct {
	allowed bool
	err     error
	clients []string
}

func (l *fakeLimiter) Admit(_ context.Context, clientID string) (bool, error) {
	l.clients = append(l.clients, clientID)
	return l.allowed, l.err
}

func strptr(s string) *string { return &s }

func newTestServer(resolver *fakeResolver, records *fakeRecords, limiter *fakeLimiter) *Server {
	if resolver == nil {
		resolver = &fakeResolver{}
	}
	if records == nil {
		records = &fakeRecords{records: map[string]lookup.Record{}}
	}
	if limiter == nil {
		limiter = &fakeLimiter{allowed: true}
	}
	return NewServer(resolver, records, limiter, nil)
}

func TestServer_PostLookup_Succeeds(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{result: lookup.Result{
		Key:    "abc123",
		Email:  strptr("alice@example.com"),
		Source: strptr("github"),
	}}
	server := newTestServer(resolver, nil, nil)

	body := []byte(`{"username":"alice","blog_url":"https://alice.dev","force_refresh":true}`)
	req := httptest.NewRequest(http.MethodPost, "/lookup", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"key":"abc123"`)
	require.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)
	require.Equal(t, "alice", resolver.last.Username)
	require.Equal(t, "https://alice.dev", resolver.last.BlogURL)
	require.True(t, resolver.last.ForceRefresh)
}

func TestServer_PostLookup_NullResult(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{result: lookup.Result{Key: "abc123"}}
	server := newTestServer(resolver, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/lookup", bytes.NewBufferString(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"email":null`)
	require.Contains(t, rec.Body.String(), `"source":null`)
}

func TestServer_PostLookup_InvalidJSON(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/lookup", bytes.NewBufferString("{invalid"))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_PostLookup_MissingUsername(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/lookup", bytes.NewBufferString(`{"github":"alice"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "username required")
}

func TestServer_PostLookup_ResolverFailure(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{err: errors.New("store down")}
	server := newTestServer(resolver, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/lookup", bytes.NewBufferString(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_PostLookup_RateLimited(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{}
	limiter := &fakeLimiter{allowed: false}
	server := newTestServer(resolver, nil, limiter)

	req := httptest.NewRequest(http.MethodPost, "/lookup", bytes.NewBufferString(`{"username":"alice"}`))
	req.RemoteAddr = "10.1.2.3:4567"
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Zero(t, resolver.calls, "a rejected request must not enter the pipeline")
	require.Equal(t, []string{"10.1.2.3"}, limiter.clients)
}

func TestServer_PostLookup_LimiterFailureFailsOpen(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{result: lookup.Result{Key: "abc123"}}
	limiter := &fakeLimiter{err: errors.New("redis down")}
	server := newTestServer(resolver, nil, limiter)

	req := httptest.NewRequest(http.MethodPost, "/lookup", bytes.NewBufferString(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, resolver.calls)
}

func TestServer_GetEmail_Found(t *testing.T) {
	t.Parallel()

	records := &fakeRecords{records: map[string]lookup.Record{
		"abc123": {Key: "abc123", Email: strptr("alice@example.com"), Source: strptr("blog")},
	}}
	server := newTestServer(nil, records, nil)

	req := httptest.NewRequest(http.MethodGet, "/emails/abc123", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"source":"blog"`)
}

func TestServer_GetEmail_NotFound(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/emails/missing", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestClientIP_ForwardedFor(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "203.0.113.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	require.Equal(t, "203.0.113.9", clientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.RemoteAddr = "192.0.2.7:1234"
	require.Equal(t, "192.0.2.7", clientIP(req))
}
