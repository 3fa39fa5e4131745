package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"tradeloop/internal/infrastructure/firebase"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/response"
)

// ContextKeyUserID is where Authenticate stores the caller's id.
const ContextKeyUserID = "uid"

type AuthMiddleware struct {
	verifier firebase.TokenVerifier
}

func NewAuthMiddleware(verifier firebase.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate verifies the bearer token. Websocket handshakes cannot set
// headers from a browser, so a "token" query parameter is accepted too.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idToken, err := bearerToken(c)
		if err != nil {
			return response.Error(c, err)
		}

		uid, err := m.verifier.VerifyToken(c.Request().Context(), idToken)
		if err != nil || uid == "" {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		c.Set(ContextKeyUserID, uid)
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", errors.Unauthorized("Authorization header is required", nil)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}

// UserID returns the id Authenticate stored, or "".
func UserID(c echo.Context) string {
	uid, _ := c.Get(ContextKeyUserID).(string)
	return uid
}
