package automl

import (
	"time"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// Search defaults.
const (
	DefaultSampleCap          = 80000
	DefaultSeed               = 42
	DefaultTestSampleFraction = 0.3
	DefaultTestSampleMax      = 20000
	DefaultEarlyRejectR2      = 0.1
	DefaultEarlyStopR2        = 0.95
	DefaultEarlyRuleMinTrials = 3
)

// Config holds every tunable of a search. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	Thresholds Thresholds
	Policies   map[SizeTier]TierPolicy

	// Order is the algorithm priority order.
	Order []Algorithm

	SampleCap          int
	TestSampleFraction float64
	TestSampleMax      int
	Seed               uint64

	EarlyRejectR2      float64
	EarlyStopR2        float64
	EarlyRuleMinTrials int

	// MaxWorkers bounds concurrent fits inside a grid search; 0 means GOMAXPROCS.
	MaxWorkers int
}

// DefaultConfig returns the canonical thresholds, tier policies and
// early-exit rules.
func DefaultConfig() Config {
	return Config{
		Thresholds: DefaultThresholds(),
		Policies: map[SizeTier]TierPolicy{
			TierStandard: {Grid: GridFast, CVFolds: 5, Timeout: 0, MaxAlgorithmsTried: 10, RefitOnFull: false},
			TierLarge:    {Grid: GridUltraFast, CVFolds: 3, Timeout: 0, MaxAlgorithmsTried: 10, RefitOnFull: true},
			TierHuge:     {Grid: GridUltraFast, CVFolds: 3, Timeout: 180 * time.Second, MaxAlgorithmsTried: 8, RefitOnFull: true},
			TierMassive:  {Grid: GridUltraMinimal, CVFolds: 2, Timeout: 120 * time.Second, MaxAlgorithmsTried: 6, RefitOnFull: true},
		},
		Order:              append([]Algorithm(nil), DefaultOrder...),
		SampleCap:          DefaultSampleCap,
		TestSampleFraction: DefaultTestSampleFraction,
		TestSampleMax:      DefaultTestSampleMax,
		Seed:               DefaultSeed,
		EarlyRejectR2:      DefaultEarlyRejectR2,
		EarlyStopR2:        DefaultEarlyStopR2,
		EarlyRuleMinTrials: DefaultEarlyRuleMinTrials,
	}
}

// PolicyFor returns the policy of tier. On standard-size data the detailed
// grid replaces the default one when detailed is set.
func (c Config) PolicyFor(tier SizeTier, detailed bool) TierPolicy {
	p := c.Policies[tier]
	if tier == TierStandard && detailed {
		p.Grid = GridDetailed
	}
	return p
}

// Sampler returns the sampler configured by c.
func (c Config) Sampler() Sampler {
	return Sampler{
		Cap:          c.SampleCap,
		Seed:         c.Seed,
		TestFraction: c.TestSampleFraction,
		TestMax:      c.TestSampleMax,
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	for _, tier := range Tiers {
		p, ok := c.Policies[tier]
		if !ok {
			return errors.NewValidationError("policies", "missing policy for tier", tier.String())
		}
		if p.CVFolds < 2 {
			return errors.NewValidationError("cv_folds", "must be at least 2 for tier "+tier.String(), p.CVFolds)
		}
		if p.MaxAlgorithmsTried < 1 {
			return errors.NewValidationError("max_algorithms_tried", "must be at least 1 for tier "+tier.String(), p.MaxAlgorithmsTried)
		}
		if p.Timeout < 0 {
			return errors.NewValidationError("timeout", "must not be negative for tier "+tier.String(), p.Timeout)
		}
		if !p.Grid.Valid() {
			return errors.NewValidationError("grid", "unknown grid tier", string(p.Grid))
		}
	}
	if len(c.Order) == 0 {
		return errors.NewValidationError("order", "must name at least one algorithm", c.Order)
	}
	if c.SampleCap < 1 {
		return errors.NewValidationError("sample_cap", "must be positive", c.SampleCap)
	}
	if c.TestSampleFraction <= 0 || c.TestSampleFraction > 1 {
		return errors.NewValidationError("test_sample_fraction", "must be in (0, 1]", c.TestSampleFraction)
	}
	if c.TestSampleMax < 1 {
		return errors.NewValidationError("test_sample_max", "must be positive", c.TestSampleMax)
	}
	if c.EarlyRuleMinTrials < 0 {
		return errors.NewValidationError("early_rule_min_trials", "must not be negative", c.EarlyRuleMinTrials)
	}
	return nil
}
