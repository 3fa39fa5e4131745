package entity

import (
	"math"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// TradeReview is one participant's rating of the other side of a completed
// trade. A rater reviews a trade at most once.
type TradeReview struct {
	ID        string     `json:"id,omitempty"`
	TradeID   string     `json:"trade_id"`
	TradeType TradeType  `json:"trade_type"`
	RaterID   string     `json:"rater_id"`
	RateeID   string     `json:"ratee_id"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// RatingSummary is the aggregate stored on the ratee's profile.
type RatingSummary struct {
	Average float64 `json:"rating"`
	Count   int64   `json:"review_count"`
}

// SummarizeRatings averages ratings to two decimals. Out-of-range values are
// skipped.
func SummarizeRatings(ratings []int64) RatingSummary {
	var sum, count int64
	for _, r := range ratings {
		if !ValidRating(int(r)) {
			continue
		}
		sum += r
		count++
	}
	if count == 0 {
		return RatingSummary{}
	}
	avg := float64(sum) / float64(count)
	return RatingSummary{
		Average: math.Round(avg*100) / 100,
		Count:   count,
	}
}
