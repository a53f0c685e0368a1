package domain

// StatsTotal is the key under which Stats carries the number of results.
const StatsTotal = "total"

// Stats maps tier name to count, plus StatsTotal.
type Stats map[string]int

// NewStats returns stats with every given tier present at zero.
func NewStats(tiers []Tier) Stats {
	s := Stats{StatsTotal: 0}
	for _, t := range tiers {
		s[string(t)] = 0
	}
	return s
}

// Add counts one result. Empty tiers are counted as unknown so the total
// always matches the per-tier sum.
func (s Stats) Add(t Tier) {
	if t == "" {
		t = TierUnknown
	}
	s[string(t)]++
	s[StatsTotal]++
}

func (s Stats) Total() int { return s[StatsTotal] }

// TierSum adds up every per-tier count, excluding the total.
func (s Stats) TierSum() int {
	n := 0
	for k, v := range s {
		if k != StatsTotal {
			n += v
		}
	}
	return n
}

// SuccessRate is the percentage of results in a usable tier.
func (s Stats) SuccessRate() float64 {
	if s.Total() == 0 {
		return 0
	}
	ok := 0
	for k, v := range s {
		if k != StatsTotal && Tier(k).Usable() {
			ok += v
		}
	}
	return float64(ok) / float64(s.Total()) * 100
}

// BatchResult is one sweep over an ordered endpoint list.
type BatchResult struct {
	Mode      string          `json:"mode"`
	Results   []ServiceResult `json:"results"`
	Stats     Stats           `json:"stats"`
	ElapsedMS int64           `json:"check_time_ms"`
	Timestamp Timestamp       `json:"timestamp"`
}
