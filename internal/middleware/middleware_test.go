package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/iban-manager/internal/errs"
	"github.com/deppfellow/iban-manager/internal/response"
	"github.com/deppfellow/iban-manager/internal/server"
	"github.com/deppfellow/iban-manager/internal/testutil"
	"github.com/labstack/echo/v4"
)

func newTestEcho(t *testing.T, s *server.Server) *echo.Echo {
	t.Helper()

	m := NewMiddlewares(s)

	e := echo.New()
	e.HTTPErrorHandler = m.Global.GlobalErrorHandler
	e.Use(RequestID(), m.ContextEnhancer.EnhanceContext())
	return e
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	return &server.Server{Config: testutil.Config(t), Logger: testutil.Logger()}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestRateLimitInMemory(t *testing.T) {
	s := newTestServer(t)
	s.Config.RateLimit.Enabled = true
	s.Config.RateLimit.Requests = 2
	s.Config.RateLimit.Window = time.Minute

	e := newTestEcho(t, s)
	e.GET("/api/ping", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, NewRateLimitMiddleware(s).Limit())

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := call("10.0.0.1"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}

	rec := call("10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if env := decodeEnvelope(t, rec); env.Success || env.Code != "TOO_MANY_REQUESTS" {
		t.Errorf("envelope = %+v", env)
	}

	// Budgets are per client.
	if rec := call("10.0.0.2"); rec.Code != http.StatusNoContent {
		t.Errorf("other client: status %d", rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	s := newTestServer(t)
	s.Config.RateLimit.Requests = 1

	e := newTestEcho(t, s)
	e.GET("/api/ping", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, NewRateLimitMiddleware(s).Limit())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}
}

func TestGlobalErrorHandler(t *testing.T) {
	s := newTestServer(t)
	e := newTestEcho(t, s)

	code := "IBAN_NOT_FOUND"
	e.GET("/typed", func(c echo.Context) error {
		return errs.NewNotFoundError("IBAN not found", true, &code)
	})
	e.GET("/internal", func(c echo.Context) error {
		return errors.New("dial tcp 10.0.0.5:5432: connection refused")
	})
	e.GET("/gateway", func(c echo.Context) error {
		return &errs.HTTPError{
			Code:    "BAD_GATEWAY",
			Message: "upstream 10.0.0.5 refused the connection",
			Status:  http.StatusBadGateway,
		}
	})
	e.GET("/busy", func(c echo.Context) error {
		return errs.NewServiceUnavailableError("The database is busy, please retry")
	})
	e.GET("/panic", func(c echo.Context) error {
		panic("boom")
	}, NewGlobalMiddlewares(s).Recover())

	tests := []struct {
		path   string
		status int
		code   string
		msg    string
	}{
		{"/typed", http.StatusNotFound, "IBAN_NOT_FOUND", "IBAN not found"},
		{"/internal", http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal Server Error"},
		{"/missing", http.StatusNotFound, "NOT_FOUND", "Route not found"},
		{"/gateway", http.StatusBadGateway, "BAD_GATEWAY", "Bad Gateway"},
		{"/busy", http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The database is busy, please retry"},
		{"/panic", http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			env := decodeEnvelope(t, rec)
			if env.Success || env.Code != tt.code || env.Error != tt.msg {
				t.Errorf("envelope = %+v", env)
			}
			if strings.Contains(rec.Body.String(), "10.0.0.5") {
				t.Error("internal error detail leaked to the client")
			}
		})
	}
}

func TestGlobalErrorHandlerHead(t *testing.T) {
	e := newTestEcho(t, newTestServer(t))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/missing", nil))

	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Errorf("status %d, body %q", rec.Code, rec.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	e := newTestEcho(t, newTestServer(t))
	e.GET("/id", func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	})

	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{"generated", "", false},
		{"reused", "abc-123", true},
		{"too long", strings.Repeat("x", 200), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/id", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			got := rec.Body.String()
			if got == "" || rec.Header().Get(RequestIDHeader) != got {
				t.Fatalf("id %q, header %q", got, rec.Header().Get(RequestIDHeader))
			}
			if (got == tt.incoming) != tt.reuse {
				t.Errorf("id = %q, incoming %q", got, tt.incoming)
			}
		})
	}
}
