package handler

import (
	"github.com/labstack/echo/v4"

	"tradeloop/internal/adapter/api/middleware"
	"tradeloop/internal/usecase"
	"tradeloop/pkg/response"
)

type ImpactHandler struct {
	impactPropagator *usecase.ImpactPropagator
}

func NewImpactHandler(impactPropagator *usecase.ImpactPropagator) *ImpactHandler {
	return &ImpactHandler{
		impactPropagator: impactPropagator,
	}
}

func (h *ImpactHandler) GetImpact(c echo.Context) error {
	summary, err := h.impactPropagator.LoadSummary(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, summary)
}
