package entity

import (
	"time"
)

// ActiveListing is a read-only snapshot of an open listing. Status changes
// are picked up by re-querying, never by mutating an instance.
type ActiveListing struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	Location        string    `json:"location,omitempty"`
	RawCategory     string    `json:"category"`
	DisplayCategory string    `json:"display_category"`
	ListingType     string    `json:"listing_type,omitempty"`
	Condition       string    `json:"condition,omitempty"`
	RawStatus       string    `json:"status"`
	DisplayStatus   string    `json:"display_status"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	UpdatedAt       time.Time `json:"-"`
	UpdatedAtMs     int64     `json:"updated_at_ms"`
}

func NewActiveListing(id, rawCategory, rawStatus string, updatedAt time.Time) *ActiveListing {
	return &ActiveListing{
		ID:              id,
		RawCategory:     rawCategory,
		DisplayCategory: MapCategoryLabel(rawCategory),
		RawStatus:       rawStatus,
		DisplayStatus:   MapStatusLabel(rawStatus),
		UpdatedAt:       updatedAt,
		UpdatedAtMs:     updatedAt.UnixMilli(),
	}
}
