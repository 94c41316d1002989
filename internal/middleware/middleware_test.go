package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pawhub/internal/platform/logger"
	"pawhub/internal/ports/auth"

	"github.com/apex/log/handlers/memory"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type stubVerifier struct {
	claims auth.Claims
	err    error
}

func (s stubVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	return s.claims, s.err
}

func claimsEcho(t *testing.T, want string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := GetClaims(r.Context())
		if want == "" {
			if ok {
				t.Fatalf("expected no claims, got %+v", c)
			}
			return
		}
		if !ok || c.UserID != want {
			t.Fatalf("expected user %q, got %+v (ok=%v)", want, c, ok)
		}
	})
}

func TestAuthContext_DevHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Debug-User-ID", "  u1 ")
	AuthContext(nil)(claimsEcho(t, "u1")).ServeHTTP(httptest.NewRecorder(), req)
}

func TestAuthContext_BearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	AuthContext(stubVerifier{claims: auth.Claims{UserID: "u2"}})(claimsEcho(t, "u2")).ServeHTTP(httptest.NewRecorder(), req)
}

func TestAuthContext_InvalidTokenPassesThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	AuthContext(stubVerifier{err: errors.New("nope")})(claimsEcho(t, "")).ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequestLog_LevelByStatus(t *testing.T) {
	h := memory.New()
	log := logger.New(logger.Options{Level: logger.Debug, Handler: h})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	srv := chimw.RequestID(RequestLog(log)(next))

	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/sightings/x/resolve", nil))

	if len(h.Entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(h.Entries))
	}
	e := h.Entries[0]
	if e.Level.String() != "warn" {
		t.Fatalf("expected warn for 409, got %s", e.Level)
	}
	if e.Fields["status"] != 409 || e.Fields["request_id"] == "" {
		t.Fatalf("unexpected fields %+v", e.Fields)
	}
}
