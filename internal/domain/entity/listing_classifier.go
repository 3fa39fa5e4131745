package entity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var activeStatuses = map[string]bool{
	"":          true,
	"available": true,
	"pending":   true,
}

var completedStatuses = map[string]bool{
	"completed": true,
	"swapped":   true,
	"donated":   true,
}

var statusLabels = map[string]string{
	"":          "Available",
	"available": "Available",
	"pending":   "Pending",
	"completed": "Completed",
	"swapped":   "Swapped",
	"donated":   "Donated",
	"cancelled": "Cancelled",
	"reserved":  "Reserved",
}

var categoryLabels = map[string]string{
	"":            "Other",
	"clothing":    "Clothing",
	"electronics": "Electronics",
	"books":       "Books",
	"furniture":   "Furniture",
	"home_garden": "Home & Garden",
	"kitchen":     "Kitchen",
	"toys_games":  "Toys & Games",
	"sports":      "Sports & Outdoors",
	"beauty":      "Health & Beauty",
	"baby_kids":   "Baby & Kids",
	"other":       "Other",
}

func normalizeStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsActiveStatus reports whether a listing is still open.
func IsActiveStatus(status string) bool {
	return activeStatuses[normalizeStatus(status)]
}

// IsCompletedStatus reports whether a listing or trade reached a terminal
// success state. It never overlaps IsActiveStatus; statuses such as
// "cancelled" satisfy neither.
func IsCompletedStatus(status string) bool {
	return completedStatuses[normalizeStatus(status)]
}

func MapStatusLabel(rawStatus string) string {
	if label, ok := statusLabels[normalizeStatus(rawStatus)]; ok {
		return label
	}
	return capitalize(rawStatus)
}

func MapCategoryLabel(rawCategory string) string {
	if label, ok := categoryLabels[strings.ToLower(strings.TrimSpace(rawCategory))]; ok {
		return label
	}
	return capitalize(rawCategory)
}

// CompletionStatusFor is the status a listing moves to when it is marked
// complete.
func CompletionStatusFor(listingType string) string {
	switch strings.ToLower(strings.TrimSpace(listingType)) {
	case string(TradeTypeSwap):
		return "swapped"
	case string(TradeTypeDonation):
		return "donated"
	}
	return "completed"
}

// IsCommunityPost reports whether a post belongs to the community forum
// rather than the marketplace. Community posts never count as listings.
func IsCommunityPost(listingType, category string) bool {
	return strings.EqualFold(strings.TrimSpace(listingType), "community") ||
		strings.EqualFold(strings.TrimSpace(category), "community")
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
