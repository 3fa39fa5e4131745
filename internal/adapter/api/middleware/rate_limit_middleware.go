package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"tradeloop/internal/infrastructure/ratelimit"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/logger"
	"tradeloop/pkg/response"
)

// RateLimit throttles action per authenticated user. It must run after
// Authenticate.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := UserID(c)
			if key == "" {
				key = c.RealIP()
			}

			allowed, wait := limiter.Allow(key, action)
			if !allowed {
				logger.Warn("Rate limit hit: user=%s action=%s retry_in=%v", key, action, wait)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
				return response.Error(c, errors.TooManyRequests("Too many requests, slow down"))
			}
			return next(c)
		}
	}
}

func retryAfterSeconds(wait time.Duration) int {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
