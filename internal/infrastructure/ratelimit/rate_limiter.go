package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Actions with their own budgets. Anything else gets the default.
const (
	ActionConfirmTrade    = "confirm_trade"
	ActionAttachProof     = "attach_proof"
	ActionSubmitReview    = "submit_review"
	ActionCompleteListing = "complete_listing"
	ActionDeleteListing   = "delete_listing"
	ActionRefresh         = "refresh"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user and action.
type RateLimiter struct {
	buckets map[string]*bucket
	mutex   sync.Mutex
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func newLimiter(action string) *rate.Limiter {
	switch action {
	case ActionConfirmTrade, ActionSubmitReview:
		// 10 per minute
		return rate.NewLimiter(rate.Every(6*time.Second), 10)
	case ActionAttachProof:
		// 5 per minute
		return rate.NewLimiter(rate.Every(12*time.Second), 5)
	case ActionCompleteListing, ActionDeleteListing:
		return rate.NewLimiter(rate.Every(3*time.Second), 20)
	case ActionRefresh:
		// 30 per minute
		return rate.NewLimiter(rate.Every(2*time.Second), 30)
	default:
		return rate.NewLimiter(rate.Every(3*time.Second), 20)
	}
}

// Allow consumes a token for userID's action. When denied it also returns
// how long until the next token is available.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{limiter: newLimiter(action)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup removes buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > maxIdle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine prunes idle buckets every 30 minutes until stop is
// closed.
func (rl *RateLimiter) StartCleanupRoutine(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-stop:
				return
			}
		}
	}()
}
