package usecase

import (
	"strings"
	"time"

	"tradeloop/internal/domain/entity"
	"tradeloop/internal/domain/repository"
)

var snapshotColumns = []string{"id", "title", "image_url", "user_id"}

var (
	swapColumns = []string{
		"id", "user1_id", "user2_id", "post1_id", "post2_id",
		"status", "created_at", "completed_at",
	}
	donationColumns = []string{
		"id", "donor_id", "receiver_id", "post_id", "status",
		"receiver_name", "pickup_location", "created_at", "completed_at",
	}
	completedPostColumns = []string{
		"id", "user_id", "title", "image_url", "category", "status", "created_at", "updated_at",
	}
	swapEmbeds = []repository.Embed{
		{Alias: "post1", Resource: repository.ResourcePosts, ForeignKey: "post1_id", Columns: snapshotColumns},
		{Alias: "post2", Resource: repository.ResourcePosts, ForeignKey: "post2_id", Columns: snapshotColumns},
	}
	donationEmbeds = []repository.Embed{
		{Alias: "post", Resource: repository.ResourcePosts, ForeignKey: "post_id", Columns: snapshotColumns},
	}
	completedStatuses = []string{"completed", "swapped", "donated"}
)

type tradeParser struct {
	now func() time.Time
}

func (p tradeParser) timestamp(row repository.Row, key string) time.Time {
	if t, ok := row.Time(key); ok {
		return t
	}
	return p.now()
}

func optTime(row repository.Row, key string) *time.Time {
	if t, ok := row.Time(key); ok {
		return &t
	}
	return nil
}

// snapshot reads an embedded listing, falling back to the foreign key on the
// parent row when the embed is absent.
func snapshot(embedded repository.Row, postID, ownerID string) *entity.ListingSnapshot {
	if embedded == nil && postID == "" {
		return nil
	}
	snap := &entity.ListingSnapshot{PostID: postID, OwnerID: ownerID}
	if embedded != nil {
		if id := embedded.String("id"); id != "" {
			snap.PostID = id
		}
		if owner := embedded.String("user_id"); owner != "" {
			snap.OwnerID = owner
		}
		snap.Title = embedded.String("title")
		snap.ImageURL = embedded.String("image_url")
	}
	return snap
}

// parseSwap places the current user's listing in PrimaryItem whichever side
// of the swap they are on.
func (p tradeParser) parseSwap(row repository.Row, userID string) *entity.TradeRecord {
	user1 := row.String("user1_id")
	user2 := row.String("user2_id")
	post1 := snapshot(row.Nested("post1"), row.String("post1_id"), user1)
	post2 := snapshot(row.Nested("post2"), row.String("post2_id"), user2)

	rec := entity.NewTradeRecord(row.String("id"), entity.TradeTypeSwap, entity.OriginSwap, p.timestamp(row, "created_at"))
	rec.Status = row.String("status")
	rec.CompletedAt = optTime(row, "completed_at")
	rec.ProofPhotoURL = row.OptString("proof_photo_url")

	if user2 == userID && user1 != userID {
		rec.PrimaryItem = post2
		rec.SecondaryItem = post1
		rec.CounterpartyID = user1
	} else {
		rec.PrimaryItem = post1
		rec.SecondaryItem = post2
		rec.CounterpartyID = user2
	}
	return rec
}

func (p tradeParser) parseDonation(row repository.Row, userID string) *entity.TradeRecord {
	donor := row.String("donor_id")
	receiver := row.String("receiver_id")

	rec := entity.NewTradeRecord(row.String("id"), entity.TradeTypeDonation, entity.OriginDonation, p.timestamp(row, "created_at"))
	rec.Status = row.String("status")
	rec.CompletedAt = optTime(row, "completed_at")
	rec.ProofPhotoURL = row.OptString("proof_photo_url")
	rec.ReceiverName = row.OptString("receiver_name")
	rec.PickupLocation = row.OptString("pickup_location")
	rec.PrimaryItem = snapshot(row.Nested("post"), row.String("post_id"), donor)

	if userID == donor {
		rec.CounterpartyID = receiver
	} else {
		rec.CounterpartyID = donor
	}
	return rec
}

// parseCompletedPost builds a one-sided record for a listing that was marked
// complete without a swap or donation row.
func (p tradeParser) parseCompletedPost(row repository.Row) *entity.TradeRecord {
	status := row.String("status")
	tradeType := entity.TradeTypeSwap
	if strings.EqualFold(status, "donated") || strings.EqualFold(row.String("listing_type"), string(entity.TradeTypeDonation)) {
		tradeType = entity.TradeTypeDonation
	}

	rec := entity.NewTradeRecord(row.String("id"), tradeType, entity.OriginListing, p.timestamp(row, "created_at"))
	rec.Status = status
	rec.CompletedAt = optTime(row, "updated_at")
	rec.PrimaryItem = snapshot(row, row.String("id"), row.String("user_id"))
	return rec
}

func isParticipant(rec *entity.TradeRecord, row repository.Row, userID string) bool {
	switch rec.Origin() {
	case entity.OriginSwap:
		return row.String("user1_id") == userID || row.String("user2_id") == userID
	case entity.OriginDonation:
		return row.String("donor_id") == userID || row.String("receiver_id") == userID
	}
	return row.String("user_id") == userID
}
