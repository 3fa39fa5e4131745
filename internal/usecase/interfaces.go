package usecase

import (
	stderrors "errors"

	"tradeloop/internal/domain/entity"
	"tradeloop/internal/domain/repository"
	"tradeloop/pkg/errors"
)

// RefreshScope names a screen whose data went stale after a write.
type RefreshScope string

const (
	ScopeListings RefreshScope = "listings"
	ScopeTrades   RefreshScope = "trades"
	ScopeImpact   RefreshScope = "impact"
)

// RefreshNotifier tells a user's connected screens to re-pull.
type RefreshNotifier interface {
	NotifyRefresh(userID string, scopes ...RefreshScope)
}

type nopNotifier struct{}

func (nopNotifier) NotifyRefresh(string, ...RefreshScope) {}

func resourceFor(origin entity.TradeOrigin) string {
	switch origin {
	case entity.OriginSwap:
		return repository.ResourceSwaps
	case entity.OriginDonation:
		return repository.ResourceDonations
	}
	return repository.ResourcePosts
}

// upstream keeps application errors intact and tags everything else as a
// backend failure.
func upstream(message string, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.Upstream(message, err)
}
