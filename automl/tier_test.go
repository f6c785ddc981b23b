package automl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		want       SizeTier
	}{
		{"small", 500, 4, TierStandard},
		{"just below large", 29999, 14, TierStandard},
		{"large by rows", 30000, 4, TierLarge},
		{"large by cols", 100, 15, TierLarge},
		{"huge by rows", 100000, 4, TierHuge},
		{"huge by cols", 100, 25, TierHuge},
		{"massive", 300000, 4, TierMassive},
		{"massive wins over wide", 400000, 40, TierMassive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.rows, tt.cols))
		})
	}
}

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		tier     SizeTier
		detailed bool
		want     TierPolicy
	}{
		{TierStandard, false, TierPolicy{Grid: GridFast, CVFolds: 5, MaxAlgorithmsTried: 10}},
		{TierStandard, true, TierPolicy{Grid: GridDetailed, CVFolds: 5, MaxAlgorithmsTried: 10}},
		{TierLarge, true, TierPolicy{Grid: GridUltraFast, CVFolds: 3, MaxAlgorithmsTried: 10, RefitOnFull: true}},
		{TierHuge, false, TierPolicy{Grid: GridUltraFast, CVFolds: 3, Timeout: 180 * time.Second, MaxAlgorithmsTried: 8, RefitOnFull: true}},
		{TierMassive, false, TierPolicy{Grid: GridUltraMinimal, CVFolds: 2, Timeout: 120 * time.Second, MaxAlgorithmsTried: 6, RefitOnFull: true}},
	}
	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, PolicyFor(tt.tier, tt.detailed))
		})
	}
}

func TestParseSizeTier(t *testing.T) {
	for _, tier := range Tiers {
		got, err := ParseSizeTier(tier.String())
		require.NoError(t, err)
		assert.Equal(t, tier, got)
	}
	_, err := ParseSizeTier("gigantic")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	p := cfg.Policies[TierHuge]
	p.CVFolds = 1
	cfg.Policies[TierHuge] = p
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Thresholds.HugeRows = 10
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	delete(cfg.Policies, TierMassive)
	assert.Error(t, cfg.Validate())
}

func TestMassiveDatasetResolution(t *testing.T) {
	const rows, cols = 400000, 10
	train := Dataset{X: mat.NewDense(rows, cols, nil), Y: mat.NewVecDense(rows, nil)}
	test := Dataset{X: mat.NewDense(100000, cols, nil), Y: mat.NewVecDense(100000, nil)}

	tier := Classify(rows, cols)
	require.Equal(t, TierMassive, tier)
	policy := PolicyFor(tier, false)
	assert.Equal(t, 2, policy.CVFolds)
	assert.Equal(t, 120*time.Second, policy.Timeout)
	assert.Equal(t, 6, policy.MaxAlgorithmsTried)

	work, sampled := Sample(train, test, DefaultSampleCap)
	require.True(t, sampled)
	assert.Equal(t, 80000, work.Train.Rows())
	assert.Equal(t, 80000, work.Train.Y.Len())
	assert.Equal(t, 20000, work.Test.Rows())
}
