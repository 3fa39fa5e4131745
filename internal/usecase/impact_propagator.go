package usecase

import (
	"context"

	"tradeloop/internal/domain/entity"
	"tradeloop/internal/domain/repository"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/logger"
)

var (
	profileStatsColumns = []string{
		"id", "total_swaps", "total_donations", "total_purchases",
		"impact_score", "eco_level", "eco_icon",
	}
	ecoSavingsColumns = []string{
		"id", "user_id", "co2_saved", "water_saved", "waste_diverted",
		"energy_saved", "items_swapped", "items_donated",
	}
)

// ImpactPropagator credits a completed trade to one user's profile counters
// and environmental-savings ledger. The ledger is only touched after the
// profile update succeeded.
type ImpactPropagator struct {
	store  repository.DataStore
	logger logger.Logger
}

func NewImpactPropagator(store repository.DataStore, log logger.Logger) *ImpactPropagator {
	return &ImpactPropagator{
		store:  store,
		logger: log,
	}
}

func (p *ImpactPropagator) Propagate(ctx context.Context, userID string, tradeType entity.TradeType) error {
	return runSaga(ctx, p.logger, []interface{}{"userID", userID, "tradeType", string(tradeType)},
		sagaStep{name: "profile_stats", run: func(ctx context.Context) error {
			return p.creditProfile(ctx, userID, tradeType)
		}},
		sagaStep{name: "eco_savings", run: func(ctx context.Context) error {
			return p.creditEcoSavings(ctx, userID, tradeType)
		}},
	)
}

func (p *ImpactPropagator) creditProfile(ctx context.Context, userID string, tradeType entity.TradeType) error {
	stats, err := p.loadStats(ctx, userID)
	if err != nil {
		return err
	}

	stats.RecordTrade(tradeType)

	// total_purchases is read for the score but owned by the purchase flow.
	return p.store.Patch(ctx, repository.ResourceProfiles, userID, map[string]interface{}{
		"total_swaps":     stats.TotalSwaps,
		"total_donations": stats.TotalDonations,
		"impact_score":    stats.Score,
		"eco_level":       stats.Level,
		"eco_icon":        stats.Icon,
	})
}

func (p *ImpactPropagator) creditEcoSavings(ctx context.Context, userID string, tradeType entity.TradeType) error {
	savings, err := p.loadSavings(ctx, userID)
	if err != nil {
		return err
	}

	delta := entity.EcoDeltaFor(tradeType)
	if savings == nil {
		fresh := &entity.EcoSavings{UserID: userID}
		fresh.Apply(delta)
		_, err := p.store.Insert(ctx, repository.ResourceEcoSavings, savingsValues(fresh, true))
		return err
	}

	savings.Apply(delta)
	return p.store.Patch(ctx, repository.ResourceEcoSavings, savings.ID, savingsValues(savings, false))
}

func savingsValues(s *entity.EcoSavings, withUser bool) map[string]interface{} {
	values := map[string]interface{}{
		"co2_saved":      s.CO2Saved,
		"water_saved":    s.WaterSaved,
		"waste_diverted": s.WasteDiverted,
		"energy_saved":   s.EnergySaved,
		"items_swapped":  s.ItemsSwapped,
		"items_donated":  s.ItemsDonated,
	}
	if withUser {
		values["user_id"] = s.UserID
	}
	return values
}

func (p *ImpactPropagator) loadStats(ctx context.Context, userID string) (*entity.ImpactStats, error) {
	rows, err := p.store.Select(ctx, repository.Query{
		Resource: repository.ResourceProfiles,
		Columns:  profileStatsColumns,
		Filters:  []repository.Filter{repository.Eq("id", userID)},
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NotFound("Profile", nil)
	}

	row := rows[0]
	return &entity.ImpactStats{
		UserID:         userID,
		TotalSwaps:     row.Int64("total_swaps"),
		TotalDonations: row.Int64("total_donations"),
		TotalPurchases: row.Int64("total_purchases"),
		Score:          row.Int64("impact_score"),
		Level:          row.String("eco_level"),
		Icon:           row.String("eco_icon"),
	}, nil
}

// loadSavings returns nil when the user has no ledger row yet.
func (p *ImpactPropagator) loadSavings(ctx context.Context, userID string) (*entity.EcoSavings, error) {
	rows, err := p.store.Select(ctx, repository.Query{
		Resource: repository.ResourceEcoSavings,
		Columns:  ecoSavingsColumns,
		Filters:  []repository.Filter{repository.Eq("user_id", userID)},
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &entity.EcoSavings{
		ID:            row.String("id"),
		UserID:        userID,
		CO2Saved:      row.Float64("co2_saved"),
		WaterSaved:    row.Float64("water_saved"),
		WasteDiverted: row.Float64("waste_diverted"),
		EnergySaved:   row.Float64("energy_saved"),
		ItemsSwapped:  row.Int64("items_swapped"),
		ItemsDonated:  row.Int64("items_donated"),
	}, nil
}

// LoadSummary reads the caller's impact stats and ledger. A ledger failure
// only drops the savings section.
func (p *ImpactPropagator) LoadSummary(ctx context.Context, userID string) (*entity.ImpactSummary, error) {
	stats, err := p.loadStats(ctx, userID)
	if err != nil {
		return nil, upstream("Failed to load impact stats", err)
	}
	stats.Recompute()

	summary := &entity.ImpactSummary{
		Stats:    *stats,
		NextTier: entity.NextTier(stats.Score),
	}

	savings, err := p.loadSavings(ctx, userID)
	if err != nil {
		p.logger.Warn("Failed to load eco savings", "userID", userID, "error", err)
	} else {
		summary.Savings = savings
	}
	return summary, nil
}
