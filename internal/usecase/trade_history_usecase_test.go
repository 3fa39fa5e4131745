package usecase

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeloop/internal/domain/entity"
	"tradeloop/internal/domain/repository"
	"tradeloop/internal/domain/service"
	"tradeloop/pkg/errors"
	"tradeloop/pkg/logger"
)

func seedHistory(store *fakeStore) {
	store.useBackendSchema()
	store.add(repository.ResourcePosts, repository.Row{"id": "p1", "user_id": "user-a", "title": "Jacket", "status": "swapped", "listing_type": "swap", "created_at": ts(50)})
	store.add(repository.ResourcePosts, repository.Row{"id": "p2", "user_id": "user-b", "title": "Lamp", "status": "swapped", "created_at": ts(60)})
	store.add(repository.ResourcePosts, repository.Row{"id": "p3", "user_id": "user-a", "title": "Books", "status": "donated", "listing_type": "donation", "created_at": ts(70)})
	store.add(repository.ResourcePosts, repository.Row{"id": "p4", "user_id": "user-a", "title": "Chair", "status": "completed", "listing_type": "swap", "created_at": ts(200), "updated_at": ts(250)})

	store.add(repository.ResourceSwaps, repository.Row{
		"id": "s1", "user1_id": "user-b", "user2_id": "user-a", "post1_id": "p2", "post2_id": "p1",
		"status": "pending", "created_at": ts(100),
	})
	store.add(repository.ResourceDonations, repository.Row{
		"id": "d1", "donor_id": "user-a", "receiver_id": "user-c", "post_id": "p3",
		"status": "pending", "receiver_name": "Cal", "created_at": ts(300),
	})

	store.add(repository.ResourceProfiles, repository.Row{"id": "user-b", "name": "Bea Baker"})
	store.add(repository.ResourceProfiles, repository.Row{"id": "user-c", "name": "cal"})
}

func newTestTradeHistory(store *fakeStore) (*TradeHistoryUseCase, *service.FeatureRegistry) {
	features := service.NewFeatureRegistry()
	uc := NewTradeHistoryUseCase(store, features, NewNameResolver(store), NewRefreshSequencer(), logger.Nop())
	return uc, features
}

func TestLoadTradeHistory_MergesNewestFirst(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	uc, _ := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)
	require.Len(t, history.Records, 3)
	assert.Empty(t, history.Incomplete)

	var created []int64
	for _, rec := range history.Records {
		created = append(created, rec.CreatedAtEpochMs())
	}
	assert.Equal(t, []int64{300, 200, 100}, created)

	assert.Equal(t, "d1", history.Records[0].ID)
	assert.Equal(t, entity.OriginDonation, history.Records[0].Origin())
	assert.Equal(t, "p4", history.Records[1].ID)
	assert.Equal(t, entity.OriginListing, history.Records[1].Origin())
	assert.Equal(t, "s1", history.Records[2].ID)
}

func TestLoadTradeHistory_DropsLegacyPostsAlreadyTracked(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	uc, _ := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)

	for _, rec := range history.Records {
		if rec.Origin() == entity.OriginListing {
			assert.NotContains(t, []string{"p1", "p3"}, rec.ID)
		}
	}
}

func TestLoadTradeHistory_SkipsPostsThatWereNeverListed(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	store.add(repository.ResourcePosts, repository.Row{"id": "p7", "user_id": "user-a", "title": "Repair cafe", "status": "completed", "created_at": ts(400)})
	uc, _ := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)

	require.Len(t, history.Records, 3)
	for _, rec := range history.Records {
		assert.NotEqual(t, "p7", rec.ID)
	}
}

func TestLoadTradeHistory_SwapFromSecondSideIsMirrored(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	uc, _ := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)

	swap := history.Records[2]
	require.NotNil(t, swap.PrimaryItem)
	require.NotNil(t, swap.SecondaryItem)
	assert.Equal(t, "p1", swap.PrimaryItem.PostID)
	assert.Equal(t, "Jacket", swap.PrimaryItem.Title)
	assert.Equal(t, "p2", swap.SecondaryItem.PostID)
	assert.Equal(t, "user-b", swap.CounterpartyID)
}

func TestLoadTradeHistory_BatchesNameLookup(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	store.add(repository.ResourcePosts, repository.Row{"id": "p5", "user_id": "user-a", "title": "Kettle", "status": "pending"})
	store.add(repository.ResourcePosts, repository.Row{"id": "p6", "user_id": "user-b", "title": "Mug", "status": "pending"})
	store.add(repository.ResourceSwaps, repository.Row{
		"id": "s2", "user1_id": "user-a", "user2_id": "user-b", "post1_id": "p5", "post2_id": "p6",
		"status": "pending", "created_at": ts(150),
	})
	uc, _ := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)

	lookups := store.selectsOn(repository.ResourceProfiles)
	require.Len(t, lookups, 1)
	require.Len(t, lookups[0].Filters, 1)
	assert.ElementsMatch(t, []interface{}{"user-b", "user-c"}, lookups[0].Filters[0].Values)

	names := map[string]string{}
	for _, rec := range history.Records {
		if rec.CounterpartyName != nil {
			names[rec.ID] = *rec.CounterpartyName
		}
	}
	assert.Equal(t, map[string]string{"s1": "Bea Baker", "s2": "Bea Baker", "d1": "cal"}, names)
}

func TestLoadTradeHistory_CachedNamesAreNotLookedUpAgain(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	uc, _ := newTestTradeHistory(store)

	_, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)
	_, err = uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)

	assert.Len(t, store.selectsOn(repository.ResourceProfiles), 1)
}

func TestLoadTradeHistory_SchemaDriftDowngradesProofPhoto(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	store.dropColumn(repository.ResourceSwaps, "proof_photo_url")
	uc, features := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)
	assert.Empty(t, history.Incomplete)

	assert.False(t, features.IsSupported(service.FeatureProofPhoto))

	swapQueries := store.selectsOn(repository.ResourceSwaps)
	require.Len(t, swapQueries, 2)
	assert.True(t, hasColumn(swapQueries[0], "proof_photo_url"))
	assert.False(t, hasColumn(swapQueries[1], "proof_photo_url"))

	require.Len(t, history.Records, 3)
	for _, rec := range history.Records {
		assert.False(t, rec.ProofUploadSupported, rec.ID)
	}
}

func TestLoadTradeHistory_SchemaDriftOnListingMetadata(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	store.dropColumn(repository.ResourcePosts, "listing_type")
	uc, features := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)

	assert.False(t, features.IsSupported(service.FeatureListingMetadata))
	assert.True(t, features.IsSupported(service.FeatureProofPhoto))
	assert.Len(t, history.Records, 3)
	for _, rec := range history.Records {
		assert.True(t, rec.ProofUploadSupported)
	}
}

func TestLoadTradeHistory_FailedSourceIsIsolated(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	store.selectErr[repository.ResourceSwaps] = stderrors.New("connection reset by peer")
	uc, features := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)

	assert.Equal(t, []string{sourceSwaps}, history.Incomplete)
	assert.True(t, features.IsSupported(service.FeatureProofPhoto))
	assert.Len(t, store.selectsOn(repository.ResourceSwaps), 1)

	var ids []string
	for _, rec := range history.Records {
		ids = append(ids, rec.ID)
	}
	// without the swap, p1 is no longer tracked and shows as a legacy record
	assert.ElementsMatch(t, []string{"d1", "p4", "p1"}, ids)
}

func TestLoadTradeHistory_BareUndefinedColumnCodeKeepsFeatures(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	store.selectErr[repository.ResourceSwaps] = &repository.BackendError{Status: 400, Code: "42703"}
	uc, features := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)

	// the code alone does not say which column is missing
	assert.True(t, features.IsSupported(service.FeatureProofPhoto))
	assert.Equal(t, []string{sourceSwaps}, history.Incomplete)
	assert.Len(t, store.selectsOn(repository.ResourceSwaps), 1)
}

func TestLoadTradeHistory_AllSourcesFailing(t *testing.T) {
	store := newFakeStore()
	boom := stderrors.New("backend unavailable")
	store.selectErr[repository.ResourceSwaps] = boom
	store.selectErr[repository.ResourceDonations] = boom
	store.selectErr[repository.ResourcePosts] = boom
	uc, _ := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	assert.Nil(t, history)
	assert.True(t, errors.Is(err, errors.CodeUpstream))
}

func TestLoadTradeHistory_NameLookupFailureLeavesNamesUnset(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	store.selectErr[repository.ResourceProfiles] = stderrors.New("timeout")
	uc, _ := newTestTradeHistory(store)

	history, err := uc.LoadTradeHistory(context.Background(), "user-a")
	require.NoError(t, err)
	require.Len(t, history.Records, 3)
	for _, rec := range history.Records {
		assert.Nil(t, rec.CounterpartyName)
	}
}

func TestLoadTradeHistory_RequiresUser(t *testing.T) {
	uc, _ := newTestTradeHistory(newFakeStore())

	_, err := uc.LoadTradeHistory(context.Background(), "")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestLoadTrade(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	uc, _ := newTestTradeHistory(store)

	t.Run("participant", func(t *testing.T) {
		rec, err := uc.LoadTrade(context.Background(), "user-c", entity.OriginDonation, "d1")
		require.NoError(t, err)
		assert.Equal(t, entity.TradeTypeDonation, rec.Type())
		assert.Equal(t, "user-a", rec.CounterpartyID)
		assert.True(t, rec.CanConfirm())
	})

	t.Run("not a participant", func(t *testing.T) {
		_, err := uc.LoadTrade(context.Background(), "user-x", entity.OriginSwap, "s1")
		assert.True(t, errors.Is(err, errors.CodeForbidden))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := uc.LoadTrade(context.Background(), "user-a", entity.OriginSwap, "nope")
		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})

	t.Run("legacy listing", func(t *testing.T) {
		rec, err := uc.LoadTrade(context.Background(), "user-a", entity.OriginListing, "p4")
		require.NoError(t, err)
		assert.True(t, rec.IsCompleted())
		assert.Equal(t, "Chair", rec.PrimaryItem.Title)
	})
}

func TestRefreshTradeHistory_Publishes(t *testing.T) {
	store := newFakeStore()
	seedHistory(store)
	uc, _ := newTestTradeHistory(store)

	var published *TradeHistory
	ok, err := uc.RefreshTradeHistory(context.Background(), "user-a", func(h *TradeHistory) {
		published = h
	})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, published)
	assert.Len(t, published.Records, 3)
}
