package router

import (
	"github.com/labstack/echo/v4"

	"tradeloop/internal/adapter/api/handler"
	"tradeloop/internal/adapter/api/middleware"
	"tradeloop/internal/infrastructure/ratelimit"
)

func SetupListingRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	listingHandler := handler.GetListingHandler()

	listings := e.Group("/v1/listings")
	listings.Use(authMiddleware.Authenticate)

	listings.GET("/active", listingHandler.GetActiveListings, middleware.RateLimit(limiter, ratelimit.ActionRefresh))
	listings.PATCH("/:listingId/complete", listingHandler.CompleteListing, middleware.RateLimit(limiter, ratelimit.ActionCompleteListing))
	listings.DELETE("/:listingId", listingHandler.DeleteListing, middleware.RateLimit(limiter, ratelimit.ActionDeleteListing))
}
