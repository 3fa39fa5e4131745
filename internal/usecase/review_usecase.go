package usecase

import (
	"context"

	"tradeloop/internal/domain/entity"
	"tradeloop/internal/domain/repository"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/logger"
)

var reviewColumns = []string{"id", "trade_id", "trade_type", "rater_id", "ratee_id", "rating", "comment", "created_at"}

// ReviewUseCase lets a participant rate the counterparty of a completed
// trade. The review insert is authoritative; the ratee's profile aggregate
// is recomputed afterwards on a best-effort basis.
type ReviewUseCase struct {
	store    repository.DataStore
	notifier RefreshNotifier
	logger   logger.Logger
}

func NewReviewUseCase(store repository.DataStore, notifier RefreshNotifier, log logger.Logger) *ReviewUseCase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ReviewUseCase{
		store:    store,
		notifier: notifier,
		logger:   log,
	}
}

type SubmitReviewInput struct {
	Rating  int
	Comment string
}

// LoadReview returns the caller's review of record, or nil when they have not
// rated it yet.
func (uc *ReviewUseCase) LoadReview(ctx context.Context, userID string, record *entity.TradeRecord) (*entity.TradeReview, error) {
	if record == nil {
		return nil, errors.BadRequest("Trade is required", nil)
	}

	review, err := uc.findReview(ctx, record.ID, userID)
	if err != nil {
		return nil, upstream("Failed to load review", err)
	}
	return review, nil
}

func (uc *ReviewUseCase) SubmitReview(ctx context.Context, userID string, record *entity.TradeRecord, input SubmitReviewInput) (*entity.TradeReview, error) {
	if record == nil {
		return nil, errors.BadRequest("Trade is required", nil)
	}
	if !entity.ValidRating(input.Rating) {
		return nil, errors.BadRequest("Rating must be between 1 and 5", nil)
	}
	if !record.IsCompleted() {
		return nil, errors.PreconditionFailed("Only completed trades can be rated")
	}
	if record.CounterpartyID == "" {
		return nil, errors.PreconditionFailed("Trade has no counterparty to rate")
	}
	if record.CounterpartyID == userID {
		return nil, errors.BadRequest("You cannot rate yourself", nil)
	}

	existing, err := uc.findReview(ctx, record.ID, userID)
	if err != nil {
		return nil, upstream("Failed to load review", err)
	}
	if existing != nil {
		return nil, errors.Conflict("You already rated this trade")
	}

	values := map[string]interface{}{
		"trade_id":   record.ID,
		"trade_type": string(record.Type()),
		"rater_id":   userID,
		"ratee_id":   record.CounterpartyID,
		"rating":     input.Rating,
	}
	if input.Comment != "" {
		values["comment"] = input.Comment
	}

	row, err := uc.store.Insert(ctx, repository.ResourceReviews, values)
	if err != nil {
		return nil, upstream("Failed to save review", err)
	}
	review := parseReview(row)
	if review.TradeID == "" {
		review = &entity.TradeReview{
			TradeID:   record.ID,
			TradeType: record.Type(),
			RaterID:   userID,
			RateeID:   record.CounterpartyID,
			Rating:    input.Rating,
			Comment:   input.Comment,
		}
	}
	uc.logger.Info("Trade rated", "tradeID", record.ID, "raterID", userID, "rateeID", review.RateeID, "rating", review.Rating)

	rateeID := review.RateeID
	_ = runSaga(context.WithoutCancel(ctx), uc.logger, []interface{}{"tradeID", record.ID, "rateeID", rateeID},
		sagaStep{name: "profile_rating", run: func(ctx context.Context) error {
			return uc.refreshRating(ctx, rateeID)
		}},
	)

	uc.notifier.NotifyRefresh(userID, ScopeTrades)
	uc.notifier.NotifyRefresh(rateeID, ScopeTrades, ScopeImpact)
	return review, nil
}

// refreshRating recomputes the ratee's average from every review they
// received.
func (uc *ReviewUseCase) refreshRating(ctx context.Context, rateeID string) error {
	rows, err := uc.store.Select(ctx, repository.Query{
		Resource: repository.ResourceReviews,
		Columns:  []string{"rating"},
		Filters:  []repository.Filter{repository.Eq("ratee_id", rateeID)},
	})
	if err != nil {
		return err
	}

	ratings := make([]int64, 0, len(rows))
	for _, row := range rows {
		ratings = append(ratings, row.Int64("rating"))
	}
	summary := entity.SummarizeRatings(ratings)

	return uc.store.Patch(ctx, repository.ResourceProfiles, rateeID, map[string]interface{}{
		"rating":       summary.Average,
		"review_count": summary.Count,
	})
}

func (uc *ReviewUseCase) findReview(ctx context.Context, tradeID, raterID string) (*entity.TradeReview, error) {
	rows, err := uc.store.Select(ctx, repository.Query{
		Resource: repository.ResourceReviews,
		Columns:  reviewColumns,
		Filters: []repository.Filter{
			repository.Eq("trade_id", tradeID),
			repository.Eq("rater_id", raterID),
		},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return parseReview(rows[0]), nil
}

func parseReview(row repository.Row) *entity.TradeReview {
	review := &entity.TradeReview{
		ID:      row.String("id"),
		TradeID: row.String("trade_id"),
		RaterID: row.String("rater_id"),
		RateeID: row.String("ratee_id"),
		Rating:  int(row.Int64("rating")),
		Comment: row.String("comment"),
	}
	if t, ok := entity.ParseTradeType(row.String("trade_type")); ok {
		review.TradeType = t
	}
	if t, ok := row.Time("created_at"); ok {
		review.CreatedAt = &t
	}
	return review
}
