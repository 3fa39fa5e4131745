package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"tradeloop/internal/domain/entity"
	"tradeloop/internal/domain/repository"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/logger"
)

const statusCompleted = "completed"

// CompletionUseCase confirms trades. Only the status transition is
// authoritative; the aggregate updates that follow are advisory and their
// failures are logged, never returned.
type CompletionUseCase struct {
	store    repository.DataStore
	impact   *ImpactPropagator
	notifier RefreshNotifier
	logger   logger.Logger
	now      func() time.Time
}

func NewCompletionUseCase(
	store repository.DataStore,
	impact *ImpactPropagator,
	notifier RefreshNotifier,
	log logger.Logger,
) *CompletionUseCase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CompletionUseCase{
		store:    store,
		impact:   impact,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

func (uc *CompletionUseCase) ConfirmTrade(ctx context.Context, userID string, record *entity.TradeRecord) error {
	if record == nil {
		return errors.BadRequest("Trade is required", nil)
	}
	if !record.CanConfirm() || record.Origin() == entity.OriginListing {
		return errors.PreconditionFailed("Trade cannot be confirmed in its current state")
	}

	completedAt := uc.now().UTC()
	err := uc.store.Patch(ctx, resourceFor(record.Origin()), record.ID, map[string]interface{}{
		"status":       statusCompleted,
		"completed_at": completedAt.Format(time.RFC3339),
	})
	if err != nil {
		return upstream("Failed to confirm trade", err)
	}
	uc.logger.Info("Trade confirmed", "tradeID", record.ID, "type", string(record.Type()), "userID", userID)

	// the confirmation already happened; don't let a dropped request skip the
	// aggregate updates
	bg := context.WithoutCancel(ctx)

	participants := distinctIDs(userID, record.CounterpartyID)
	var g errgroup.Group
	for _, participant := range participants {
		participant := participant
		g.Go(func() error {
			if err := uc.impact.Propagate(bg, participant, record.Type()); err != nil {
				uc.logger.Warn("Impact propagation incomplete",
					"tradeID", record.ID, "userID", participant, "error", err)
			}
			return nil
		})
	}
	g.Wait()

	for _, participant := range participants {
		uc.notifier.NotifyRefresh(participant, ScopeTrades, ScopeListings, ScopeImpact)
	}
	return nil
}

func distinctIDs(ids ...string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
