package automl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

func newQuietSearcher(opts ...Option) *Searcher {
	provider, _ := log.NewTestLoggerProvider(log.LevelDebug)
	return NewSearcher(append([]Option{WithLogger(provider.GetLogger())}, opts...)...)
}

func TestTrainSingleWithExplicitParams(t *testing.T) {
	s := newQuietSearcher()
	res, err := s.TrainSingle(context.Background(), ManualRequest{
		Algorithm: Ridge,
		Params:    model.Params{"alpha": 0.5, "solver": "cholesky"},
		Train:     linearData(300, 0.1, 1),
		Test:      linearData(80, 0.1, 2),
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, StatusRetained, res.Status)
	assert.Equal(t, model.Params{"alpha": 0.5, "solver": "cholesky"}, res.Params)
	assert.Greater(t, res.Metrics.R2, 0.9)
	assert.Equal(t, "Ridge Regression", res.DisplayName)
}

func TestTrainSingleSearchesTierGrid(t *testing.T) {
	s := newQuietSearcher()
	res, err := s.TrainSingle(context.Background(), ManualRequest{
		Algorithm: Lasso,
		Grid:      GridUltraMinimal,
		Train:     linearData(300, 0.1, 1),
		Test:      linearData(80, 0.1, 2),
		CVFolds:   3,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Params["alpha"])
}

func TestTrainSingleRejectsBadRequests(t *testing.T) {
	train, test := linearData(50, 0.1, 1), linearData(20, 0.1, 2)
	tests := []struct {
		name string
		req  ManualRequest
	}{
		{"unknown algorithm", ManualRequest{Algorithm: "catboost", Train: train, Test: test}},
		{"bad param type", ManualRequest{Algorithm: Ridge, Params: model.Params{"alpha": "big"}, Train: train, Test: test}},
		{"unknown param", ManualRequest{Algorithm: KNN, Params: model.Params{"leaf": 3}, Train: train, Test: test}},
		{"unknown grid tier", ManualRequest{Algorithm: Ridge, Grid: "exhaustive", Train: train, Test: test}},
		{"empty train", ManualRequest{Algorithm: Ridge, Test: test}},
	}
	s := newQuietSearcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.TrainSingle(context.Background(), tt.req)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}
