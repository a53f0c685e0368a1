package probe

import "github.com/hamed0406/mirrormon/internal/domain"

// Band assigns Tier to any latency strictly above AboveMS.
type Band struct {
	AboveMS int64
	Tier    domain.Tier
}

// Thresholds is a latency classification table. Bands are ordered from the
// most to the least severe; the first band whose bound is exceeded wins.
type Thresholds struct {
	Name        string
	Base        domain.Tier
	Bands       []Band
	Unreachable domain.Tier
}

var (
	PingPreset = Thresholds{
		Name: "ping",
		Base: domain.TierFast,
		Bands: []Band{
			{AboveMS: 2000, Tier: domain.TierError},
			{AboveMS: 1000, Tier: domain.TierSlow},
			{AboveMS: 500, Tier: domain.TierFair},
		},
		Unreachable: domain.TierError,
	}

	DirectPreset = Thresholds{
		Name: "direct",
		Base: domain.TierHealthy,
		Bands: []Band{
			{AboveMS: 5000, Tier: domain.TierTimeout},
			{AboveMS: 2000, Tier: domain.TierSlow},
		},
		Unreachable: domain.TierError,
	}
)

func (t Thresholds) Classify(ms int64, reachable bool) domain.Tier {
	if !reachable {
		return t.Unreachable
	}
	for _, b := range t.Bands {
		if ms > b.AboveMS {
			return b.Tier
		}
	}
	return t.Base
}

// Tiers lists the vocabulary of the table from least to most severe.
func (t Thresholds) Tiers() []domain.Tier {
	out := []domain.Tier{t.Base}
	add := func(tier domain.Tier) {
		for _, have := range out {
			if have == tier {
				return
			}
		}
		out = append(out, tier)
	}
	for i := len(t.Bands) - 1; i >= 0; i-- {
		add(t.Bands[i].Tier)
	}
	add(t.Unreachable)
	return out
}

// Severity is the position of tier in Tiers, or -1 when it is not part of the table.
func (t Thresholds) Severity(tier domain.Tier) int {
	for i, have := range t.Tiers() {
		if have == tier {
			return i
		}
	}
	return -1
}
