package usecase

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"tradeloop/internal/domain/entity"
	"tradeloop/internal/domain/repository"
	"tradeloop/internal/domain/service"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/logger"
)

// TradeHistory is one refresh worth of trades. Incomplete names the sources
// that failed; their records are missing but the rest are still valid.
type TradeHistory struct {
	Records    []*entity.TradeRecord `json:"items"`
	Incomplete []string              `json:"incomplete_sources,omitempty"`
}

const (
	sourceSwaps          = "swaps"
	sourceDonations      = "donations"
	sourceCompletedPosts = "completed_posts"
)

type TradeHistoryUseCase struct {
	querier   *compatQuerier
	features  *service.FeatureRegistry
	names     *NameResolver
	sequencer *RefreshSequencer
	logger    logger.Logger
	parser    tradeParser
}

func NewTradeHistoryUseCase(
	store repository.DataStore,
	features *service.FeatureRegistry,
	names *NameResolver,
	sequencer *RefreshSequencer,
	log logger.Logger,
) *TradeHistoryUseCase {
	return &TradeHistoryUseCase{
		querier:   &compatQuerier{store: store, features: features, logger: log},
		features:  features,
		names:     names,
		sequencer: sequencer,
		logger:    log,
		parser:    tradeParser{now: time.Now},
	}
}

// LoadTradeHistory merges swaps, donations and directly-completed listings
// into one timeline, newest first. The three sources are queried
// concurrently and fail independently; only when all of them fail is an
// error returned.
func (uc *TradeHistoryUseCase) LoadTradeHistory(ctx context.Context, userID string) (*TradeHistory, error) {
	if userID == "" {
		return nil, errors.Unauthorized("User is not authenticated", nil)
	}

	var (
		swaps, donations, legacy        []*entity.TradeRecord
		swapErr, donationErr, legacyErr error
		g                               errgroup.Group
	)
	g.Go(func() error {
		swaps, swapErr = uc.loadSwaps(ctx, userID)
		return nil
	})
	g.Go(func() error {
		donations, donationErr = uc.loadDonations(ctx, userID)
		return nil
	})
	g.Go(func() error {
		legacy, legacyErr = uc.loadCompletedPosts(ctx, userID)
		return nil
	})
	g.Wait()

	history := &TradeHistory{}
	for _, failure := range []struct {
		source string
		err    error
	}{
		{sourceSwaps, swapErr},
		{sourceDonations, donationErr},
		{sourceCompletedPosts, legacyErr},
	} {
		if failure.err != nil {
			uc.logger.Warn("Trade history source failed", "source", failure.source, "userID", userID, "error", failure.err)
			history.Incomplete = append(history.Incomplete, failure.source)
		}
	}
	if swapErr != nil && donationErr != nil && legacyErr != nil {
		return nil, upstream("Failed to load trade history", swapErr)
	}

	records := make([]*entity.TradeRecord, 0, len(swaps)+len(donations)+len(legacy))
	records = append(records, swaps...)
	records = append(records, donations...)
	records = append(records, withoutTracked(legacy, records)...)

	uc.applyNames(ctx, records)

	proofSupported := uc.features.IsSupported(service.FeatureProofPhoto)
	for _, rec := range records {
		rec.ProofUploadSupported = proofSupported
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	history.Records = records
	return history, nil
}

// RefreshTradeHistory loads the timeline and hands it to publish unless a
// newer refresh for the same user started in the meantime. It reports
// whether publish ran.
func (uc *TradeHistoryUseCase) RefreshTradeHistory(ctx context.Context, userID string, publish func(*TradeHistory)) (bool, error) {
	key := "trades:" + userID
	ticket := uc.sequencer.Begin(key)

	history, err := uc.LoadTradeHistory(ctx, userID)
	if err != nil {
		if !uc.sequencer.IsLatest(key, ticket) {
			return false, nil
		}
		return false, err
	}
	return uc.sequencer.PublishIfLatest(key, ticket, func() { publish(history) }), nil
}

// LoadTrade fetches a single record the user takes part in.
func (uc *TradeHistoryUseCase) LoadTrade(ctx context.Context, userID string, origin entity.TradeOrigin, tradeID string) (*entity.TradeRecord, error) {
	if tradeID == "" {
		return nil, errors.BadRequest("Trade ID is required", nil)
	}

	var (
		build    buildQuery
		optional []service.Feature
		parse    func(repository.Row) *entity.TradeRecord
	)
	switch origin {
	case entity.OriginSwap:
		build = func() repository.Query {
			q := uc.swapQuery(userID)
			q.AnyOf = nil
			q.Filters = []repository.Filter{repository.Eq("id", tradeID)}
			return q
		}
		optional = []service.Feature{service.FeatureProofPhoto}
		parse = func(row repository.Row) *entity.TradeRecord { return uc.parser.parseSwap(row, userID) }
	case entity.OriginDonation:
		build = func() repository.Query {
			q := uc.donationQuery(userID)
			q.AnyOf = nil
			q.Filters = []repository.Filter{repository.Eq("id", tradeID)}
			return q
		}
		optional = []service.Feature{service.FeatureProofPhoto}
		parse = func(row repository.Row) *entity.TradeRecord { return uc.parser.parseDonation(row, userID) }
	case entity.OriginListing:
		build = func() repository.Query {
			q := uc.completedPostQuery(userID)
			q.Filters = append(q.Filters, repository.Eq("id", tradeID))
			return q
		}
		optional = []service.Feature{service.FeatureListingMetadata}
		parse = uc.parser.parseCompletedPost
	default:
		return nil, errors.BadRequest("Unknown trade type", nil)
	}

	rows, err := uc.querier.selectWithFallback(ctx, string(origin), build, optional...)
	if err != nil {
		return nil, upstream("Failed to load trade", err)
	}
	if len(rows) == 0 {
		return nil, errors.NotFound("Trade", nil)
	}

	rec := parse(rows[0])
	if !isParticipant(rec, rows[0], userID) {
		return nil, errors.Forbidden("You are not a participant in this trade", nil)
	}

	uc.applyNames(ctx, []*entity.TradeRecord{rec})
	rec.ProofUploadSupported = uc.features.IsSupported(service.FeatureProofPhoto)
	return rec, nil
}

func (uc *TradeHistoryUseCase) swapQuery(userID string) repository.Query {
	return repository.Query{
		Resource: repository.ResourceSwaps,
		Columns:  withColumns(swapColumns, uc.features.SupportedColumns(service.FeatureProofPhoto)...),
		Embeds:   swapEmbeds,
		AnyOf: []repository.Filter{
			repository.Eq("user1_id", userID),
			repository.Eq("user2_id", userID),
		},
		OrderBy:    "created_at",
		Descending: true,
	}
}

func (uc *TradeHistoryUseCase) donationQuery(userID string) repository.Query {
	return repository.Query{
		Resource: repository.ResourceDonations,
		Columns:  withColumns(donationColumns, uc.features.SupportedColumns(service.FeatureProofPhoto)...),
		Embeds:   donationEmbeds,
		AnyOf: []repository.Filter{
			repository.Eq("donor_id", userID),
			repository.Eq("receiver_id", userID),
		},
		OrderBy:    "created_at",
		Descending: true,
	}
}

func (uc *TradeHistoryUseCase) completedPostQuery(userID string) repository.Query {
	return repository.Query{
		Resource: repository.ResourcePosts,
		Columns:  withColumns(completedPostColumns, uc.features.SupportedColumns(service.FeatureListingMetadata)...),
		Filters: withListingTypeFilter(uc.features,
			repository.Eq("user_id", userID),
			repository.In("status", completedStatuses...),
		),
		OrderBy:    "created_at",
		Descending: true,
	}
}

func (uc *TradeHistoryUseCase) loadSwaps(ctx context.Context, userID string) ([]*entity.TradeRecord, error) {
	rows, err := uc.querier.selectWithFallback(ctx, sourceSwaps, func() repository.Query {
		return uc.swapQuery(userID)
	}, service.FeatureProofPhoto)
	if err != nil {
		return nil, err
	}

	records := make([]*entity.TradeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, uc.parser.parseSwap(row, userID))
	}
	return records, nil
}

func (uc *TradeHistoryUseCase) loadDonations(ctx context.Context, userID string) ([]*entity.TradeRecord, error) {
	rows, err := uc.querier.selectWithFallback(ctx, sourceDonations, func() repository.Query {
		return uc.donationQuery(userID)
	}, service.FeatureProofPhoto)
	if err != nil {
		return nil, err
	}

	records := make([]*entity.TradeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, uc.parser.parseDonation(row, userID))
	}
	return records, nil
}

func (uc *TradeHistoryUseCase) loadCompletedPosts(ctx context.Context, userID string) ([]*entity.TradeRecord, error) {
	rows, err := uc.querier.selectWithFallback(ctx, sourceCompletedPosts, func() repository.Query {
		return uc.completedPostQuery(userID)
	}, service.FeatureListingMetadata)
	if err != nil {
		return nil, err
	}

	records := make([]*entity.TradeRecord, 0, len(rows))
	for _, row := range rows {
		if entity.IsCommunityPost(row.String("listing_type"), row.String("category")) {
			continue
		}
		records = append(records, uc.parser.parseCompletedPost(row))
	}
	return records, nil
}

// withoutTracked drops legacy records whose listing already appears in a
// swap or donation.
func withoutTracked(legacy, tracked []*entity.TradeRecord) []*entity.TradeRecord {
	if len(legacy) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	for _, rec := range tracked {
		for _, id := range rec.PostIDs() {
			seen[id] = true
		}
	}
	out := make([]*entity.TradeRecord, 0, len(legacy))
	for _, rec := range legacy {
		if !seen[rec.ID] {
			out = append(out, rec)
		}
	}
	return out
}

// applyNames resolves every counterparty with a single batched lookup. A
// failed lookup leaves names unset.
func (uc *TradeHistoryUseCase) applyNames(ctx context.Context, records []*entity.TradeRecord) {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.CounterpartyID != "" {
			ids = append(ids, rec.CounterpartyID)
		}
	}
	if len(ids) == 0 {
		return
	}

	names, err := uc.names.Resolve(ctx, ids)
	if err != nil {
		uc.logger.Warn("Counterparty name lookup failed", "count", len(ids), "error", err)
	}
	for _, rec := range records {
		if name, ok := names[rec.CounterpartyID]; ok {
			n := name
			rec.CounterpartyName = &n
		}
	}
}
