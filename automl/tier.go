package automl

import (
	"time"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// SizeTier classifies a training set by size and controls how aggressive
// the search is.
type SizeTier int

const (
	TierStandard SizeTier = iota
	TierLarge
	TierHuge
	TierMassive
)

// Tiers lists every size tier from smallest to largest.
var Tiers = []SizeTier{TierStandard, TierLarge, TierHuge, TierMassive}

func (t SizeTier) String() string {
	switch t {
	case TierStandard:
		return "standard"
	case TierLarge:
		return "large"
	case TierHuge:
		return "huge"
	case TierMassive:
		return "massive"
	default:
		return "unknown"
	}
}

// ParseSizeTier is the inverse of SizeTier.String.
func ParseSizeTier(s string) (SizeTier, error) {
	for _, t := range Tiers {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, errors.NewValidationError("tier", "unknown size tier", s)
}

// Thresholds are the inclusive lower bounds of each tier. A column bound of
// 0 disables it.
type Thresholds struct {
	LargeRows   int
	LargeCols   int
	HugeRows    int
	HugeCols    int
	MassiveRows int
}

// DefaultThresholds: large >= 30,000 rows or >= 15 columns, huge >= 100,000
// rows or >= 25 columns, massive >= 300,000 rows.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LargeRows:   30000,
		LargeCols:   15,
		HugeRows:    100000,
		HugeCols:    25,
		MassiveRows: 300000,
	}
}

// Validate checks that the row bounds are increasing.
func (t Thresholds) Validate() error {
	if t.LargeRows <= 0 || t.HugeRows <= t.LargeRows || t.MassiveRows <= t.HugeRows {
		return errors.NewValidationError("thresholds", "row bounds must satisfy 0 < large < huge < massive", t)
	}
	return nil
}

// Classify returns the highest tier whose bound the shape reaches.
func (t Thresholds) Classify(rows, cols int) SizeTier {
	switch {
	case rows >= t.MassiveRows:
		return TierMassive
	case rows >= t.HugeRows || (t.HugeCols > 0 && cols >= t.HugeCols):
		return TierHuge
	case rows >= t.LargeRows || (t.LargeCols > 0 && cols >= t.LargeCols):
		return TierLarge
	default:
		return TierStandard
	}
}

// Classify uses DefaultThresholds.
func Classify(rows, cols int) SizeTier {
	return DefaultThresholds().Classify(rows, cols)
}

// GridTier names one of the hyperparameter grid tables.
type GridTier string

const (
	GridDetailed     GridTier = "detailed"
	GridFast         GridTier = "fast"
	GridUltraFast    GridTier = "ultra_fast"
	GridUltraMinimal GridTier = "ultra_minimal"
)

// GridTiers lists every grid tier from broadest to narrowest.
var GridTiers = []GridTier{GridDetailed, GridFast, GridUltraFast, GridUltraMinimal}

// Valid reports whether g is a known grid tier.
func (g GridTier) Valid() bool {
	for _, t := range GridTiers {
		if g == t {
			return true
		}
	}
	return false
}

// TierPolicy is the search budget attached to a size tier. A zero Timeout
// means trials are not time-boxed. MaxAlgorithmsTried counts every attempt,
// whatever its outcome, not only the retained ones.
type TierPolicy struct {
	Grid               GridTier
	CVFolds            int
	Timeout            time.Duration
	MaxAlgorithmsTried int
	RefitOnFull        bool
}

// PolicyFor returns the default policy of tier.
func PolicyFor(tier SizeTier, detailed bool) TierPolicy {
	return DefaultConfig().PolicyFor(tier, detailed)
}
