package automl

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

func newFakeSearcher(cfg Config, specs []AlgorithmSpec) *Searcher {
	provider, _ := log.NewTestLoggerProvider(log.LevelDebug)
	return NewSearcher(
		WithConfig(cfg),
		WithAlgorithms(specs...),
		WithGrids(fakeCatalogue()),
		WithLogger(provider.GetLogger()),
	)
}

func fakeInput() SearchInput {
	return SearchInput{Train: cyclicData(100, 1), Test: cyclicData(50, 2)}
}

func algorithmsOf(results []TrialResult) []Algorithm {
	out := make([]Algorithm, len(results))
	for i, r := range results {
		out[i] = r.Algorithm
	}
	return out
}

func TestSearchRanksByR2WithStableTies(t *testing.T) {
	r2 := map[Algorithm]float64{
		LinearRegression: 0.5, Ridge: 0.8, Lasso: 0.3, DecisionTree: 0.9, ElasticNet: 0.8,
		RandomForest: 0.6, LightGBM: 0.7, XGBoost: 0.2, KNN: 0.85, SVR: 0.4,
	}
	s := newFakeSearcher(DefaultConfig(), fakeSpecs(r2, nil))

	out, err := s.Search(context.Background(), fakeInput())
	require.NoError(t, err)

	assert.Equal(t, TierStandard, out.Tier)
	assert.False(t, out.Sampled)
	assert.Equal(t, StopExhausted, out.StopReason)
	assert.Len(t, out.Attempts, 10)
	assert.Equal(t, []Algorithm{
		DecisionTree, KNN, Ridge, ElasticNet, LightGBM, RandomForest, LinearRegression, SVR, Lasso, XGBoost,
	}, algorithmsOf(out.Ranked))

	for i := 1; i < len(out.Ranked); i++ {
		assert.GreaterOrEqual(t, out.Ranked[i-1].Metrics.R2, out.Ranked[i].Metrics.R2)
	}
	require.NotNil(t, out.Best)
	assert.Equal(t, out.Ranked[0].Algorithm, out.Best.Algorithm)
	assert.Same(t, out.Ranked[0].Estimator, out.Best.Estimator)
	assert.InDelta(t, 0.9, out.Best.Metrics.R2, 1e-9)
	assert.InDelta(t, 0.9, out.Best.CVMean, 1e-9)
	assert.InDelta(t, 0.0, out.Best.CVStd, 1e-9)
	assert.Equal(t, 90.0, out.Best.Metrics.Accuracy)
	assert.NotEmpty(t, out.SessionID)
}

func TestSearchRespectsMaxAlgorithmsTried(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.Policies[TierStandard]
	p.MaxAlgorithmsTried = 4
	cfg.Policies[TierStandard] = p

	r2 := map[Algorithm]float64{}
	for _, alg := range DefaultOrder {
		r2[alg] = 0.5
	}
	// the second attempt fails and still counts
	s := newFakeSearcher(cfg, fakeSpecs(r2, map[Algorithm]fakeBehavior{Ridge: {fail: true}}))

	out, err := s.Search(context.Background(), fakeInput())
	require.NoError(t, err)
	assert.Len(t, out.Attempts, 4)
	assert.Len(t, out.Ranked, 3)
	assert.LessOrEqual(t, len(out.Ranked), 4)
	assert.Equal(t, StopMaxAttempts, out.StopReason)
	assert.Equal(t, StatusFailed, out.Attempts[1].Status)
}

func TestSearchEarlyStop(t *testing.T) {
	r2 := map[Algorithm]float64{}
	for _, alg := range DefaultOrder {
		r2[alg] = 0.99
	}
	s := newFakeSearcher(DefaultConfig(), fakeSpecs(r2, nil))

	out, err := s.Search(context.Background(), fakeInput())
	require.NoError(t, err)
	assert.Equal(t, []Algorithm{LinearRegression, Ridge, Lasso}, algorithmsOf(out.Attempts))
	assert.Equal(t, StopEarly, out.StopReason)
}

func TestSearchEarlyReject(t *testing.T) {
	r2 := map[Algorithm]float64{
		LinearRegression: 0.5, Ridge: 0.04, Lasso: 0.6, DecisionTree: 0.04, ElasticNet: 0.7,
		RandomForest: 0.5, LightGBM: 0.5, XGBoost: 0.5, KNN: 0.5, SVR: 0.5,
	}
	s := newFakeSearcher(DefaultConfig(), fakeSpecs(r2, nil))

	out, err := s.Search(context.Background(), fakeInput())
	require.NoError(t, err)

	// ridge scores low before three attempts and is kept
	assert.Contains(t, algorithmsOf(out.Ranked), Ridge)
	// the decision tree scores low on the fourth attempt and is dropped
	assert.NotContains(t, algorithmsOf(out.Ranked), DecisionTree)
	assert.Equal(t, StatusRejected, out.Attempts[3].Status)
	assert.True(t, out.Attempts[3].Success)
	assert.Nil(t, out.Attempts[3].Estimator)
	assert.Len(t, out.Ranked, 9)
}

func TestSearchTimedOutTrialIsNeverRanked(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	cfg := DefaultConfig()
	p := cfg.Policies[TierStandard]
	p.Timeout = 200 * time.Millisecond
	cfg.Policies[TierStandard] = p

	r2 := map[Algorithm]float64{}
	for _, alg := range DefaultOrder {
		r2[alg] = 0.6
	}
	s := newFakeSearcher(cfg, fakeSpecs(r2, map[Algorithm]fakeBehavior{Lasso: {block: release}}))

	start := time.Now()
	out, err := s.Search(context.Background(), fakeInput())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	assert.NotContains(t, algorithmsOf(out.Ranked), Lasso)
	assert.Len(t, out.Ranked, 9)
	lasso := out.Attempts[2]
	assert.Equal(t, Lasso, lasso.Algorithm)
	assert.Equal(t, StatusTimedOut, lasso.Status)
	var te *errors.TrialTimeoutError
	require.True(t, errors.As(lasso.Err, &te))
	assert.Equal(t, 200*time.Millisecond, te.Budget)
}

func TestSearchNoUsableModel(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	cfg := DefaultConfig()
	p := cfg.Policies[TierStandard]
	p.Timeout = 200 * time.Millisecond
	cfg.Policies[TierStandard] = p

	override := map[Algorithm]fakeBehavior{}
	for _, alg := range DefaultOrder {
		override[alg] = fakeBehavior{fail: true}
	}
	override[Lasso] = fakeBehavior{panics: true}
	override[SVR] = fakeBehavior{block: release}
	s := newFakeSearcher(cfg, fakeSpecs(nil, override))

	out, err := s.Search(context.Background(), fakeInput())
	assert.Nil(t, out)
	var nu *errors.NoUsableModelError
	require.True(t, errors.As(err, &nu))
	assert.Len(t, nu.Attempts, 10)
	assert.Equal(t, string(SVR), nu.Attempts[9].Algorithm)
	assert.Contains(t, nu.Attempts[9].Reason, "exceeded its budget")
	assert.Contains(t, nu.Attempts[2].Reason, "fake fit exploded")
}

func TestSearchInputContract(t *testing.T) {
	s := newFakeSearcher(DefaultConfig(), fakeSpecs(map[Algorithm]float64{}, nil))
	ctx := context.Background()
	var de *errors.DimensionError
	var ve *errors.ValidationError

	in := fakeInput()
	in.Train.Y = mat.NewVecDense(99, nil)
	_, err := s.Search(ctx, in)
	assert.True(t, errors.As(err, &de))

	in = fakeInput()
	in.Test = Dataset{X: mat.NewDense(50, 3, nil), Y: mat.NewVecDense(50, nil)}
	_, err = s.Search(ctx, in)
	assert.True(t, errors.As(err, &de))

	in = fakeInput()
	in.FeatureNames = []string{"only_one"}
	_, err = s.Search(ctx, in)
	assert.True(t, errors.As(err, &de))

	in = fakeInput()
	in.Train = Dataset{}
	_, err = s.Search(ctx, in)
	assert.True(t, errors.As(err, &ve))

	in = fakeInput()
	in.Train.X.Set(17, 1, math.Inf(1))
	_, err = s.Search(ctx, in)
	assert.True(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "row 17 column 1")

	in = fakeInput()
	in.Test.Y.SetVec(3, math.NaN())
	_, err = s.Search(ctx, in)
	assert.True(t, errors.As(err, &ve))

	cfg := DefaultConfig()
	cfg.Order = append(cfg.Order, "catboost")
	_, err = newFakeSearcher(cfg, fakeSpecs(map[Algorithm]float64{}, nil)).Search(ctx, fakeInput())
	assert.True(t, errors.As(err, &ve))

	grids := fakeCatalogue()
	delete(grids[GridUltraMinimal], SVR)
	_, err = NewSearcher(WithGrids(grids)).Search(ctx, fakeInput())
	assert.True(t, errors.As(err, &ve))
}

func TestSearchNeverRanksNonFiniteTrials(t *testing.T) {
	r2 := map[Algorithm]float64{
		LinearRegression: 0.3, Ridge: 0.9, Lasso: 0.5, ElasticNet: 0.6, DecisionTree: 0.4,
		RandomForest: 0.35, LightGBM: 0.45, XGBoost: 0.55, KNN: 0.65, SVR: 0.2,
	}
	override := map[Algorithm]fakeBehavior{Lasso: {q: 1, nanAbove: 45}}
	s := newFakeSearcher(DefaultConfig(), fakeSpecs(r2, override))

	out, err := s.Search(context.Background(), fakeInput())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, out.Attempts[2].Status)
	assert.NotContains(t, algorithmsOf(out.Ranked), Lasso)
	assert.Equal(t, Ridge, out.Best.Algorithm)
	for i := 1; i < len(out.Ranked); i++ {
		assert.GreaterOrEqual(t, out.Ranked[i-1].Metrics.R2, out.Ranked[i].Metrics.R2)
	}
}

func TestSearchParentCancellation(t *testing.T) {
	r2 := map[Algorithm]float64{}
	for _, alg := range DefaultOrder {
		r2[alg] = 0.5
	}
	s := newFakeSearcher(DefaultConfig(), fakeSpecs(r2, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := s.Search(ctx, fakeInput())
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchLogsPhases(t *testing.T) {
	provider, _ := log.NewTestLoggerProvider(log.LevelDebug)
	r2 := map[Algorithm]float64{}
	for _, alg := range DefaultOrder {
		r2[alg] = 0.5
	}
	s := NewSearcher(
		WithAlgorithms(fakeSpecs(r2, nil)...),
		WithGrids(fakeCatalogue()),
		WithLogger(provider.GetLogger()),
	)
	_, err := s.Search(context.Background(), fakeInput())
	require.NoError(t, err)

	logger := provider.Logger()
	for _, phase := range []string{log.PhaseSizing, log.PhaseTrying, log.PhaseRanked, log.PhaseDone} {
		assert.True(t, logger.ContainsField(log.PhaseKey, phase), phase)
	}
	assert.True(t, logger.ContainsField(log.TierKey, "standard"))
}

func TestSearchEndToEndLinear(t *testing.T) {
	data := linearData(500, 0.1, 7)
	train := Dataset{X: mat.DenseCopyOf(data.X.Slice(0, 400, 0, 4)), Y: mat.VecDenseCopyOf(data.Y.SliceVec(0, 400))}
	test := Dataset{X: mat.DenseCopyOf(data.X.Slice(400, 500, 0, 4)), Y: mat.VecDenseCopyOf(data.Y.SliceVec(400, 500))}
	in := SearchInput{Train: train, Test: test, FeatureNames: []string{"x1", "x2", "x3", "x4"}}

	first, err := NewSearcher().Search(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, TierStandard, first.Tier)
	assert.Equal(t, GridFast, first.Policy.Grid)
	assert.Contains(t, []Algorithm{LinearRegression, Ridge}, first.BestAlgorithm())
	assert.Greater(t, first.Best.Metrics.R2, 0.9)
	assert.Len(t, first.Best.Predictions, 100)

	second, err := NewSearcher().Search(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.BestAlgorithm(), second.BestAlgorithm())
	assert.InDelta(t, first.Best.Metrics.R2, second.Best.Metrics.R2, 1e-12)
	assert.InDelta(t, first.Best.Metrics.RMSE, second.Best.Metrics.RMSE, 1e-12)
	assert.Equal(t, first.Best.Params, second.Best.Params)

	summary := first.Summary()
	assert.Contains(t, summary, "Best model: "+first.Best.DisplayName)
	assert.Contains(t, summary, "standard")
}
