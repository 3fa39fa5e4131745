package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"tradeloop/internal/infrastructure/ratelimit"
)

type stubVerifier struct {
	tokens map[string]string
}

func (v stubVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if uid, ok := v.tokens[token]; ok {
		return uid, nil
	}
	return "", stderrors.New("token rejected")
}

func runAuthenticated(req *http.Request) (*httptest.ResponseRecorder, string) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	m := NewAuthMiddleware(stubVerifier{tokens: map[string]string{"good": "user-a"}})
	_ = m.Authenticate(func(c echo.Context) error {
		seen = UserID(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, seen
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name   string
		header string
		target string
		status int
		uid    string
	}{
		{"bearer header", "Bearer good", "/v1/trades", http.StatusOK, "user-a"},
		{"query token", "", "/ws?token=good", http.StatusOK, "user-a"},
		{"missing", "", "/v1/trades", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", "/v1/trades", http.StatusUnauthorized, ""},
		{"rejected token", "Bearer bad", "/v1/trades", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec, uid := runAuthenticated(req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.uid, uid)
		})
	}
}

func TestRateLimit_SetsRetryAfter(t *testing.T) {
	e := echo.New()
	limiter := ratelimit.NewRateLimiter()
	handler := RateLimit(limiter, ratelimit.ActionAttachProof)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), last)
		c.Set(ContextKeyUserID, "user-a")
		_ = handler(c)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}
