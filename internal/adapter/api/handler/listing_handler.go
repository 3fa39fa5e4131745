package handler

import (
	"github.com/labstack/echo/v4"

	"tradeloop/internal/adapter/api/middleware"
	"tradeloop/internal/usecase"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/response"
)

type ListingHandler struct {
	listingUseCase *usecase.ListingUseCase
}

func NewListingHandler(listingUseCase *usecase.ListingUseCase) *ListingHandler {
	return &ListingHandler{
		listingUseCase: listingUseCase,
	}
}

type completeListingRequest struct {
	ListingType string `json:"listing_type" validate:"omitempty,max=32"`
}

func (h *ListingHandler) GetActiveListings(c echo.Context) error {
	listings, err := h.listingUseCase.LoadActiveListings(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, listings, len(listings))
}

func (h *ListingHandler) CompleteListing(c echo.Context) error {
	listingID := c.Param("listingId")
	if listingID == "" {
		return response.Error(c, errors.BadRequest("Listing ID is required", nil))
	}

	var req completeListingRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return response.Error(c, errors.BadRequest("Invalid request body", err))
		}
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	err := h.listingUseCase.MarkListingComplete(c.Request().Context(), middleware.UserID(c), listingID, req.ListingType)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Listing marked as complete",
	})
}

func (h *ListingHandler) DeleteListing(c echo.Context) error {
	listingID := c.Param("listingId")
	if listingID == "" {
		return response.Error(c, errors.BadRequest("Listing ID is required", nil))
	}

	if err := h.listingUseCase.DeleteListing(c.Request().Context(), middleware.UserID(c), listingID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Listing deleted successfully",
	})
}
