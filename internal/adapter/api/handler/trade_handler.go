package handler

import (
	"io"

	"github.com/labstack/echo/v4"

	"tradeloop/internal/adapter/api/middleware"
	"tradeloop/internal/domain/entity"
	"tradeloop/internal/usecase"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/response"
)

type TradeHandler struct {
	tradeHistoryUseCase *usecase.TradeHistoryUseCase
	completionUseCase   *usecase.CompletionUseCase
	proofUseCase        *usecase.ProofUseCase
}

func NewTradeHandler(
	tradeHistoryUseCase *usecase.TradeHistoryUseCase,
	completionUseCase *usecase.CompletionUseCase,
	proofUseCase *usecase.ProofUseCase,
) *TradeHandler {
	return &TradeHandler{
		tradeHistoryUseCase: tradeHistoryUseCase,
		completionUseCase:   completionUseCase,
		proofUseCase:        proofUseCase,
	}
}

type tradePath struct {
	Type    string `validate:"required,oneof=swap donation listing"`
	TradeID string `validate:"required"`
}

func (h *TradeHandler) GetTrades(c echo.Context) error {
	userID := middleware.UserID(c)

	history, err := h.tradeHistoryUseCase.LoadTradeHistory(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, history)
}

// loadTrade binds the path and fetches the record the caller acts on.
func loadTrade(c echo.Context, tradeHistoryUseCase *usecase.TradeHistoryUseCase) (*entity.TradeRecord, error) {
	path := tradePath{
		Type:    c.Param("type"),
		TradeID: c.Param("tradeId"),
	}
	if err := c.Validate(&path); err != nil {
		return nil, err
	}

	return tradeHistoryUseCase.LoadTrade(c.Request().Context(), middleware.UserID(c), entity.TradeOrigin(path.Type), path.TradeID)
}

func (h *TradeHandler) ConfirmTrade(c echo.Context) error {
	record, err := loadTrade(c, h.tradeHistoryUseCase)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.completionUseCase.ConfirmTrade(c.Request().Context(), middleware.UserID(c), record); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"trade_id": record.ID,
		"type":     record.Type(),
		"status":   "completed",
	})
}

func (h *TradeHandler) AttachProof(c echo.Context) error {
	file, err := c.FormFile("photo")
	if err != nil {
		return response.Error(c, errors.BadRequest("Missing or invalid photo", err))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Unable to read photo", err))
	}
	defer src.Close()

	// one byte past the limit is enough for the size check downstream
	image, err := io.ReadAll(io.LimitReader(src, h.proofUseCase.MaxBytes()+1))
	if err != nil {
		return response.Error(c, errors.Internal("Unable to read photo", err))
	}

	record, err := loadTrade(c, h.tradeHistoryUseCase)
	if err != nil {
		return response.Error(c, err)
	}

	url, err := h.proofUseCase.AttachProof(c.Request().Context(), middleware.UserID(c), record, image)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]string{
		"trade_id":        record.ID,
		"proof_photo_url": url,
	})
}
