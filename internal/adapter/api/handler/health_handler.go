package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tradeloop/internal/domain/service"
)

type HealthHandler struct {
	features *service.FeatureRegistry
}

var healthHandler *HealthHandler

func NewHealthHandler(features *service.FeatureRegistry) *HealthHandler {
	return &HealthHandler{
		features: features,
	}
}

func SetupHealthHandler(features *service.FeatureRegistry) {
	healthHandler = NewHealthHandler(features)
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "Server is running",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// CheckFeatures reports which optional backend columns are still in use.
func (h *HealthHandler) CheckFeatures(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{
		string(service.FeatureCoordinates):     h.features.IsSupported(service.FeatureCoordinates),
		string(service.FeatureListingMetadata): h.features.IsSupported(service.FeatureListingMetadata),
		string(service.FeatureProofPhoto):      h.features.IsSupported(service.FeatureProofPhoto),
	})
}
