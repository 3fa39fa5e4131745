package entity

import (
	"encoding/json"
	"strings"
	"time"
)

type TradeType string

const (
	TradeTypeSwap     TradeType = "swap"
	TradeTypeDonation TradeType = "donation"
)

func ParseTradeType(s string) (TradeType, bool) {
	switch TradeType(strings.ToLower(strings.TrimSpace(s))) {
	case TradeTypeSwap:
		return TradeTypeSwap, true
	case TradeTypeDonation:
		return TradeTypeDonation, true
	}
	return "", false
}

// TradeOrigin names the backend collection a record was read from. Legacy
// records come straight from a completed listing with no swap or donation row.
type TradeOrigin string

const (
	OriginSwap     TradeOrigin = "swap"
	OriginDonation TradeOrigin = "donation"
	OriginListing  TradeOrigin = "listing"
)

const StatusCancelled = "cancelled"

type ListingSnapshot struct {
	PostID   string `json:"post_id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url,omitempty"`
	OwnerID  string `json:"owner_id"`
}

// TradeRecord is one swap or donation as seen by the current user. The type
// and origin are fixed at construction.
type TradeRecord struct {
	ID        string
	CreatedAt time.Time
	Status    string

	CompletedAt   *time.Time
	PrimaryItem   *ListingSnapshot
	SecondaryItem *ListingSnapshot

	CounterpartyID   string
	CounterpartyName *string

	ReceiverName   *string
	PickupLocation *string

	ProofPhotoURL        *string
	ProofUploadSupported bool

	tradeType TradeType
	origin    TradeOrigin
}

func NewTradeRecord(id string, tradeType TradeType, origin TradeOrigin, createdAt time.Time) *TradeRecord {
	return &TradeRecord{
		ID:        id,
		CreatedAt: createdAt,
		tradeType: tradeType,
		origin:    origin,
	}
}

func (r *TradeRecord) Type() TradeType {
	return r.tradeType
}

func (r *TradeRecord) Origin() TradeOrigin {
	return r.origin
}

func (r *TradeRecord) CreatedAtEpochMs() int64 {
	return r.CreatedAt.UnixMilli()
}

func (r *TradeRecord) IsCompleted() bool {
	return IsCompletedStatus(r.Status)
}

func (r *TradeRecord) CanConfirm() bool {
	status := normalizeStatus(r.Status)
	return status != "" && !r.IsCompleted() && status != StatusCancelled
}

func (r *TradeRecord) CanUploadProof() bool {
	return r.IsCompleted()
}

// PostIDs lists the listings this record references.
func (r *TradeRecord) PostIDs() []string {
	var ids []string
	for _, item := range []*ListingSnapshot{r.PrimaryItem, r.SecondaryItem} {
		if item != nil && item.PostID != "" {
			ids = append(ids, item.PostID)
		}
	}
	return ids
}

type tradeRecordJSON struct {
	ID                   string           `json:"id"`
	Type                 TradeType        `json:"type"`
	Origin               TradeOrigin      `json:"origin"`
	CreatedAtEpochMs     int64            `json:"created_at_ms"`
	Status               string           `json:"status"`
	DisplayStatus        string           `json:"display_status"`
	CompletedAtEpochMs   *int64           `json:"completed_at_ms,omitempty"`
	PrimaryItem          *ListingSnapshot `json:"primary_item,omitempty"`
	SecondaryItem        *ListingSnapshot `json:"secondary_item,omitempty"`
	CounterpartyID       string           `json:"counterparty_id,omitempty"`
	CounterpartyName     *string          `json:"counterparty_name,omitempty"`
	ReceiverName         *string          `json:"receiver_name,omitempty"`
	PickupLocation       *string          `json:"pickup_location,omitempty"`
	ProofPhotoURL        *string          `json:"proof_photo_url,omitempty"`
	ProofUploadSupported bool             `json:"proof_upload_supported"`
	CanConfirm           bool             `json:"can_confirm"`
	CanUploadProof       bool             `json:"can_upload_proof"`
}

func (r *TradeRecord) MarshalJSON() ([]byte, error) {
	out := tradeRecordJSON{
		ID:                   r.ID,
		Type:                 r.tradeType,
		Origin:               r.origin,
		CreatedAtEpochMs:     r.CreatedAtEpochMs(),
		Status:               r.Status,
		DisplayStatus:        MapStatusLabel(r.Status),
		PrimaryItem:          r.PrimaryItem,
		SecondaryItem:        r.SecondaryItem,
		CounterpartyID:       r.CounterpartyID,
		CounterpartyName:     r.CounterpartyName,
		ReceiverName:         r.ReceiverName,
		PickupLocation:       r.PickupLocation,
		ProofPhotoURL:        r.ProofPhotoURL,
		ProofUploadSupported: r.ProofUploadSupported,
		CanConfirm:           r.CanConfirm(),
		CanUploadProof:       r.CanUploadProof(),
	}
	if r.CompletedAt != nil {
		ms := r.CompletedAt.UnixMilli()
		out.CompletedAtEpochMs = &ms
	}
	return json.Marshal(out)
}
