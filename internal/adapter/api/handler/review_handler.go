package handler

import (
	"github.com/labstack/echo/v4"

	"tradeloop/internal/adapter/api/middleware"
	"tradeloop/internal/usecase"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/response"
)

type ReviewHandler struct {
	tradeHistoryUseCase *usecase.TradeHistoryUseCase
	reviewUseCase       *usecase.ReviewUseCase
}

func NewReviewHandler(tradeHistoryUseCase *usecase.TradeHistoryUseCase, reviewUseCase *usecase.ReviewUseCase) *ReviewHandler {
	return &ReviewHandler{
		tradeHistoryUseCase: tradeHistoryUseCase,
		reviewUseCase:       reviewUseCase,
	}
}

type submitReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=500"`
}

func (h *ReviewHandler) GetReview(c echo.Context) error {
	record, err := loadTrade(c, h.tradeHistoryUseCase)
	if err != nil {
		return response.Error(c, err)
	}

	review, err := h.reviewUseCase.LoadReview(c.Request().Context(), middleware.UserID(c), record)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"rated":  review != nil,
		"review": review,
	})
}

func (h *ReviewHandler) SubmitReview(c echo.Context) error {
	var req submitReviewRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	record, err := loadTrade(c, h.tradeHistoryUseCase)
	if err != nil {
		return response.Error(c, err)
	}

	review, err := h.reviewUseCase.SubmitReview(c.Request().Context(), middleware.UserID(c), record, usecase.SubmitReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, review)
}
