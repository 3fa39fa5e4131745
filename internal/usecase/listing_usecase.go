package usecase

import (
	"context"
	"sort"
	"time"

	"tradeloop/internal/domain/entity"
	"tradeloop/internal/domain/repository"
	"tradeloop/internal/domain/service"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/logger"
)

var listingColumns = []string{
	"id", "user_id", "title", "description", "image_url", "location",
	"category", "status", "created_at", "updated_at",
}

type ListingUseCase struct {
	store     repository.DataStore
	querier   *compatQuerier
	features  *service.FeatureRegistry
	sequencer *RefreshSequencer
	notifier  RefreshNotifier
	logger    logger.Logger
	now       func() time.Time
}

func NewListingUseCase(
	store repository.DataStore,
	features *service.FeatureRegistry,
	sequencer *RefreshSequencer,
	notifier RefreshNotifier,
	log logger.Logger,
) *ListingUseCase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ListingUseCase{
		store:     store,
		querier:   &compatQuerier{store: store, features: features, logger: log},
		features:  features,
		sequencer: sequencer,
		notifier:  notifier,
		logger:    log,
		now:       time.Now,
	}
}

func (uc *ListingUseCase) listingQuery(userID string) repository.Query {
	return repository.Query{
		Resource: repository.ResourcePosts,
		Columns: withColumns(listingColumns, uc.features.SupportedColumns(
			service.FeatureCoordinates, service.FeatureListingMetadata)...),
		Filters:    withListingTypeFilter(uc.features, repository.Eq("user_id", userID)),
		OrderBy:    "updated_at",
		Descending: true,
	}
}

// withListingTypeFilter drops posts that were never listed, such as forum
// posts. Without the listing_type column every post counts.
func withListingTypeFilter(features *service.FeatureRegistry, filters ...repository.Filter) []repository.Filter {
	if features.IsSupported(service.FeatureListingMetadata) {
		filters = append(filters, repository.NotNull("listing_type"))
	}
	return filters
}

// LoadActiveListings returns the user's open listings, most recently updated
// first. Status is classified here rather than in the query so that rows
// without a status count as available.
func (uc *ListingUseCase) LoadActiveListings(ctx context.Context, userID string) ([]*entity.ActiveListing, error) {
	if userID == "" {
		return nil, errors.Unauthorized("User is not authenticated", nil)
	}

	rows, err := uc.querier.selectWithFallback(ctx, "active_listings", func() repository.Query {
		return uc.listingQuery(userID)
	}, service.FeatureCoordinates, service.FeatureListingMetadata)
	if err != nil {
		return nil, upstream("Failed to load listings", err)
	}

	listings := make([]*entity.ActiveListing, 0, len(rows))
	for _, row := range rows {
		if !entity.IsActiveStatus(row.String("status")) ||
			entity.IsCommunityPost(row.String("listing_type"), row.String("category")) {
			continue
		}
		listings = append(listings, uc.parseListing(row))
	}

	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].UpdatedAt.After(listings[j].UpdatedAt)
	})
	return listings, nil
}

func (uc *ListingUseCase) parseListing(row repository.Row) *entity.ActiveListing {
	updatedAt, ok := row.Time("updated_at")
	if !ok {
		if updatedAt, ok = row.Time("created_at"); !ok {
			updatedAt = uc.now()
		}
	}

	listing := entity.NewActiveListing(row.String("id"), row.String("category"), row.String("status"), updatedAt)
	listing.OwnerID = row.String("user_id")
	listing.Title = row.String("title")
	listing.Description = row.String("description")
	listing.ImageURL = row.String("image_url")
	listing.Location = row.String("location")
	listing.ListingType = row.String("listing_type")
	listing.Condition = row.String("condition")
	listing.Latitude = row.OptFloat64("latitude")
	listing.Longitude = row.OptFloat64("longitude")
	return listing
}

// RefreshActiveListings loads listings and publishes them unless a newer
// refresh for the same user began meanwhile.
func (uc *ListingUseCase) RefreshActiveListings(ctx context.Context, userID string, publish func([]*entity.ActiveListing)) (bool, error) {
	key := "listings:" + userID
	ticket := uc.sequencer.Begin(key)

	listings, err := uc.LoadActiveListings(ctx, userID)
	if err != nil {
		if !uc.sequencer.IsLatest(key, ticket) {
			return false, nil
		}
		return false, err
	}
	return uc.sequencer.PublishIfLatest(key, ticket, func() { publish(listings) }), nil
}

// MarkListingComplete closes a listing without a swap or donation record.
// An empty listingType falls back to the type stored on the listing.
func (uc *ListingUseCase) MarkListingComplete(ctx context.Context, userID, listingID, listingType string) error {
	row, err := uc.ownedListing(ctx, userID, listingID)
	if err != nil {
		return err
	}
	if entity.IsCompletedStatus(row.String("status")) {
		return errors.PreconditionFailed("Listing is already completed")
	}
	if listingType == "" {
		listingType = row.String("listing_type")
	}

	status := entity.CompletionStatusFor(listingType)
	err = uc.store.Patch(ctx, repository.ResourcePosts, listingID, map[string]interface{}{
		"status":     status,
		"updated_at": uc.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return upstream("Failed to complete listing", err)
	}

	uc.logger.Info("Listing completed", "listingID", listingID, "status", status, "userID", userID)
	uc.notifier.NotifyRefresh(userID, ScopeListings, ScopeTrades)
	return nil
}

func (uc *ListingUseCase) DeleteListing(ctx context.Context, userID, listingID string) error {
	if _, err := uc.ownedListing(ctx, userID, listingID); err != nil {
		return err
	}

	if err := uc.store.Delete(ctx, repository.ResourcePosts, listingID); err != nil {
		return upstream("Failed to delete listing", err)
	}

	uc.logger.Info("Listing deleted", "listingID", listingID, "userID", userID)
	uc.notifier.NotifyRefresh(userID, ScopeListings, ScopeTrades)
	return nil
}

func (uc *ListingUseCase) ownedListing(ctx context.Context, userID, listingID string) (repository.Row, error) {
	if listingID == "" {
		return nil, errors.BadRequest("Listing ID is required", nil)
	}

	rows, err := uc.querier.selectWithFallback(ctx, "listing", func() repository.Query {
		return repository.Query{
			Resource: repository.ResourcePosts,
			Columns: withColumns([]string{"id", "user_id", "status"},
				uc.features.SupportedColumns(service.FeatureListingMetadata)...),
			Filters: []repository.Filter{repository.Eq("id", listingID)},
			Limit:   1,
		}
	}, service.FeatureListingMetadata)
	if err != nil {
		return nil, upstream("Failed to load listing", err)
	}
	if len(rows) == 0 {
		return nil, errors.NotFound("Listing", nil)
	}
	if rows[0].String("user_id") != userID {
		return nil, errors.Forbidden("You don't own this listing", nil)
	}
	return rows[0], nil
}
