package entity

// ImpactTier is a badge earned once a user's impact score reaches MinScore.
type ImpactTier struct {
	Rank     int    `json:"rank"`
	MinScore int64  `json:"min_score"`
	Level    string `json:"level"`
	Icon     string `json:"icon"`
}

// ImpactTiers is ordered from the highest tier down.
var ImpactTiers = []ImpactTier{
	{Rank: 5, MinScore: 100, Level: "Planet Pioneer", Icon: "🌞"},
	{Rank: 4, MinScore: 50, Level: "Eco Guardian", Icon: "🦋"},
	{Rank: 3, MinScore: 25, Level: "Sustainable Hero", Icon: "🌍"},
	{Rank: 2, MinScore: 10, Level: "Rising Recycler", Icon: "♻️"},
	{Rank: 1, MinScore: 0, Level: "Beginner EcoSaver", Icon: "🌱"},
}

const (
	swapPoints     = 2
	donationPoints = 3
	purchasePoints = 1
)

func ImpactScore(swaps, donations, purchases int64) int64 {
	return swaps*swapPoints + donations*donationPoints + purchases*purchasePoints
}

func TierForScore(score int64) ImpactTier {
	for _, tier := range ImpactTiers {
		if score >= tier.MinScore {
			return tier
		}
	}
	return ImpactTiers[len(ImpactTiers)-1]
}

// NextTier returns the tier above the one score maps to, or nil at the top.
func NextTier(score int64) *ImpactTier {
	current := TierForScore(score)
	for i := len(ImpactTiers) - 1; i >= 0; i-- {
		if ImpactTiers[i].Rank == current.Rank+1 {
			next := ImpactTiers[i]
			return &next
		}
	}
	return nil
}

type ImpactStats struct {
	UserID         string `json:"user_id"`
	TotalSwaps     int64  `json:"total_swaps"`
	TotalDonations int64  `json:"total_donations"`
	TotalPurchases int64  `json:"total_purchases"`
	Score          int64  `json:"impact_score"`
	Level          string `json:"eco_level"`
	Icon           string `json:"eco_icon"`
}

// RecordTrade counts one more completed trade and recomputes score and tier.
func (s *ImpactStats) RecordTrade(t TradeType) {
	s.clamp()
	switch t {
	case TradeTypeSwap:
		s.TotalSwaps++
	case TradeTypeDonation:
		s.TotalDonations++
	}
	s.Recompute()
}

func (s *ImpactStats) Recompute() {
	s.clamp()
	s.Score = ImpactScore(s.TotalSwaps, s.TotalDonations, s.TotalPurchases)
	tier := TierForScore(s.Score)
	s.Level = tier.Level
	s.Icon = tier.Icon
}

func (s *ImpactStats) clamp() {
	if s.TotalSwaps < 0 {
		s.TotalSwaps = 0
	}
	if s.TotalDonations < 0 {
		s.TotalDonations = 0
	}
	if s.TotalPurchases < 0 {
		s.TotalPurchases = 0
	}
}

// EcoDelta is the fixed environmental credit for one completed trade.
type EcoDelta struct {
	CO2Saved      float64
	WaterSaved    float64
	WasteDiverted float64
	EnergySaved   float64
	ItemsSwapped  int64
	ItemsDonated  int64
}

func EcoDeltaFor(t TradeType) EcoDelta {
	if t == TradeTypeDonation {
		return EcoDelta{CO2Saved: 7, WaterSaved: 150, WasteDiverted: 3, EnergySaved: 15, ItemsDonated: 1}
	}
	return EcoDelta{CO2Saved: 5, WaterSaved: 100, WasteDiverted: 2, EnergySaved: 10, ItemsSwapped: 1}
}

type EcoSavings struct {
	ID            string  `json:"id,omitempty"`
	UserID        string  `json:"user_id"`
	CO2Saved      float64 `json:"co2_saved"`
	WaterSaved    float64 `json:"water_saved"`
	WasteDiverted float64 `json:"waste_diverted"`
	EnergySaved   float64 `json:"energy_saved"`
	ItemsSwapped  int64   `json:"items_swapped"`
	ItemsDonated  int64   `json:"items_donated"`
}

func (e *EcoSavings) Apply(d EcoDelta) {
	e.CO2Saved += d.CO2Saved
	e.WaterSaved += d.WaterSaved
	e.WasteDiverted += d.WasteDiverted
	e.EnergySaved += d.EnergySaved
	e.ItemsSwapped += d.ItemsSwapped
	e.ItemsDonated += d.ItemsDonated
}

type ImpactSummary struct {
	Stats    ImpactStats `json:"stats"`
	NextTier *ImpactTier `json:"next_tier,omitempty"`
	Savings  *EcoSavings `json:"eco_savings,omitempty"`
}
