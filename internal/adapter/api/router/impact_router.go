package router

import (
	"github.com/labstack/echo/v4"

	"tradeloop/internal/adapter/api/handler"
	"tradeloop/internal/adapter/api/middleware"
)

func SetupImpactRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	impactHandler := handler.GetImpactHandler()

	e.GET("/v1/impact", impactHandler.GetImpact, authMiddleware.Authenticate)
}
