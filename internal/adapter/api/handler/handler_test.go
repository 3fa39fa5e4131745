package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeloop/internal/adapter/api"
	"tradeloop/internal/adapter/api/middleware"
	"tradeloop/internal/domain/repository"
	"tradeloop/internal/domain/service"
	"tradeloop/internal/usecase"
	"tradeloop/pkg/logger"
)

// rowStore answers every select with the same rows and records writes.
type rowStore struct {
	rows    []repository.Row
	patched map[string]interface{}
}

func (s *rowStore) Select(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	return s.rows, nil
}

func (s *rowStore) Insert(ctx context.Context, resource string, values map[string]interface{}) (repository.Row, error) {
	return repository.Row(values), nil
}

func (s *rowStore) Patch(ctx context.Context, resource, id string, values map[string]interface{}) error {
	s.patched = values
	return nil
}

func (s *rowStore) Delete(ctx context.Context, resource, id string) error {
	return nil
}

func newTestContext(method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = api.NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ContextKeyUserID, userID)
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/health", "", "")
	h := NewHealthHandler(service.NewFeatureRegistry())

	if assert.NoError(t, h.CheckHealth(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Server is running")
	}
}

func TestCheckFeatures(t *testing.T) {
	features := service.NewFeatureRegistry()
	features.MarkUnsupported(service.FeatureCoordinates)
	c, rec := newTestContext(http.MethodGet, "/health/features", "", "")

	require.NoError(t, NewHealthHandler(features).CheckFeatures(c))
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["coordinates"])
	assert.Equal(t, true, body["proof_photo"])
}

func TestConfirmTrade_InvalidType(t *testing.T) {
	c, rec := newTestContext(http.MethodPost, "/v1/trades/gift/t1/confirm", "", "user-a")
	c.SetParamNames("type", "tradeId")
	c.SetParamValues("gift", "t1")

	h := NewTradeHandler(nil, nil, nil)
	require.NoError(t, h.ConfirmTrade(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	errInfo := body["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errInfo["code"])
}

func TestGetActiveListings(t *testing.T) {
	store := &rowStore{rows: []repository.Row{
		{"id": "l1", "user_id": "user-a", "title": "Desk", "status": "available", "category": "furniture"},
		{"id": "l2", "user_id": "user-a", "title": "Sold", "status": "swapped"},
	}}
	uc := usecase.NewListingUseCase(store, service.NewFeatureRegistry(), usecase.NewRefreshSequencer(), nil, logger.Nop())
	c, rec := newTestContext(http.MethodGet, "/v1/listings/active", "", "user-a")

	require.NoError(t, NewListingHandler(uc).GetActiveListings(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["count"])
	items := data["items"].([]interface{})
	assert.Equal(t, "Furniture", items[0].(map[string]interface{})["display_category"])
}

func TestCompleteListing(t *testing.T) {
	store := &rowStore{rows: []repository.Row{{"id": "l1", "user_id": "user-a", "status": "available"}}}
	uc := usecase.NewListingUseCase(store, service.NewFeatureRegistry(), usecase.NewRefreshSequencer(), nil, logger.Nop())

	c, rec := newTestContext(http.MethodPatch, "/v1/listings/l1/complete", `{"listing_type":"donation"}`, "user-a")
	c.SetParamNames("listingId")
	c.SetParamValues("l1")

	require.NoError(t, NewListingHandler(uc).CompleteListing(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "donated", store.patched["status"])
}

func TestCompleteListing_NotOwner(t *testing.T) {
	store := &rowStore{rows: []repository.Row{{"id": "l1", "user_id": "user-b", "status": "available"}}}
	uc := usecase.NewListingUseCase(store, service.NewFeatureRegistry(), usecase.NewRefreshSequencer(), nil, logger.Nop())

	c, rec := newTestContext(http.MethodPatch, "/v1/listings/l1/complete", "", "user-a")
	c.SetParamNames("listingId")
	c.SetParamValues("l1")

	require.NoError(t, NewListingHandler(uc).CompleteListing(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, store.patched)
}

func TestSubmitReview_RatingOutOfRange(t *testing.T) {
	c, rec := newTestContext(http.MethodPost, "/v1/trades/swap/s1/review", `{"rating":9}`, "user-a")
	c.SetParamNames("type", "tradeId")
	c.SetParamValues("swap", "s1")

	require.NoError(t, NewReviewHandler(nil, nil).SubmitReview(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errInfo := decodeBody(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errInfo["code"])
}

func TestSubmitReview_MissingRating(t *testing.T) {
	c, rec := newTestContext(http.MethodPost, "/v1/trades/swap/s1/review", `{"comment":"great"}`, "user-a")
	c.SetParamNames("type", "tradeId")
	c.SetParamValues("swap", "s1")

	require.NoError(t, NewReviewHandler(nil, nil).SubmitReview(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
