package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		header   http.Header
		wantCode int
	}{
		{
			name:     "disabled when no key configured",
			apiKey:   "",
			header:   http.Header{},
			wantCode: http.StatusOK,
		},
		{
			name:     "missing token",
			apiKey:   "s3cret",
			header:   http.Header{},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "bearer token",
			apiKey:   "s3cret",
			header:   http.Header{"Authorization": {"Bearer s3cret"}},
			wantCode: http.StatusOK,
		},
		{
			name:     "x-api-key header",
			apiKey:   "s3cret",
			header:   http.Header{"X-Api-Key": {"s3cret"}},
			wantCode: http.StatusOK,
		},
		{
			name:     "wrong token",
			apiKey:   "s3cret",
			header:   http.Header{"Authorization": {"Bearer nope"}},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "wrong scheme",
			apiKey:   "s3cret",
			header:   http.Header{"Authorization": {"Basic s3cret"}},
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Auth(tt.apiKey)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
			for k, vs := range tt.header {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

// stubLimiter scripts the limiter's answer per call.
type stubLimiter struct {
	allowed bool
	err     error
	lastKey string
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.lastKey = key
	return s.allowed, s.err
}

func TestRateLimit(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		lim := &stubLimiter{allowed: true}
		h := RateLimit(lim, 10, time.Minute)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if lim.lastKey != "api:10.1.2.3" {
			t.Errorf("limiter key = %q", lim.lastKey)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		lim := &stubLimiter{allowed: false}
		h := RateLimit(lim, 10, time.Minute)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d, want 429", rec.Code)
		}
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		lim := &stubLimiter{err: context.DeadlineExceeded}
		h := RateLimit(lim, 10, time.Minute)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("proxy headers win over remote addr", func(t *testing.T) {
		lim := &stubLimiter{allowed: true}
		h := RateLimit(lim, 10, time.Minute)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if lim.lastKey != "api:203.0.113.9" {
			t.Errorf("limiter key = %q, want api:203.0.113.9", lim.lastKey)
		}
	})
}

func TestLoggingPreservesStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
}
