// Package api exposes the HTTP interface for the email lookup service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/email-lookup/internal/lookup"
	"github.com/JakeFAU/email-lookup/internal/policy/ratelimit"
	"github.com/JakeFAU/email-lookup/internal/telemetry"
)

const requestTimeout = 60 * time.Second

// Resolver runs the lookup pipeline for one request.
type Resolver interface {
	Resolve(ctx context.Context, req lookup.Request) (lookup.Result, error)
}

// Server wires HTTP handlers to the resolver, record store and rate limiter.
type Server struct {
	router   chi.Router
	resolver Resolver
	records  lookup.RecordStore
	limiter  ratelimit.Limiter
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(resolver Resolver, records lookup.RecordStore, limiter ratelimit.Limiter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		resolver: resolver,
		records:  records,
		limiter:  limiter,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(requestTimeout))
	r.Use(telemetry.Middleware)

	r.Get("/health", s.health)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Post("/lookup", s.postLookup)
		r.Get("/emails/{key}", s.getEmail)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type lookupRequest struct {
	Username     string `json:"username"`
	HuggingFace  string `json:"huggingface"`
	GitHub       string `json:"github"`
	BlogURL      string `json:"blog_url"`
	ForceRefresh bool   `json:"force_refresh"`
}

type lookupResponse struct {
	Key    string  `json:"key"`
	Email  *string `json:"email"`
	Source *string `json:"source"`
}

func (s *Server) postLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeError(w, http.StatusBadRequest, "username required")
		return
	}
	result, err := s.resolver.Resolve(r.Context(), lookup.Request{
		Username:     req.Username,
		HuggingFace:  req.HuggingFace,
		GitHub:       req.GitHub,
		BlogURL:      req.BlogURL,
		ForceRefresh: req.ForceRefresh,
	})
	if err != nil {
		s.logger.Error("lookup failed", zap.String("username", req.Username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Key: result.Key, Email: result.Email, Source: result.Source})
}

func (s *Server) getEmail(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rec, err := s.records.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, lookup.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.logger.Error("record fetch failed", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "record fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Key: rec.Key, Email: rec.Email, Source: rec.Source})
}

// rateLimitMiddleware rejects clients over their window budget before the
// pipeline runs. A limiter backend failure fails open: throttling is load
// protection, not a correctness gate.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := clientIP(r)
		allowed, err := s.limiter.Admit(r.Context(), clientID)
		if err != nil {
			s.logger.Warn("rate limiter unavailable", zap.String("client", clientID), zap.Error(err))
			allowed = true
		}
		if !allowed {
			telemetry.ObserveRateLimitRejection()
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
