package automl

import (
	"context"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// ManualRequest asks for a single algorithm to be trained. With Params set
// exactly those hyperparameters are used; otherwise the algorithm's grid of
// tier Grid (GridFast when empty) is searched.
type ManualRequest struct {
	Algorithm    Algorithm
	Params       model.Params
	Grid         GridTier
	Train        Dataset
	Test         Dataset
	FeatureNames []string
	// CVFolds defaults to the standard tier's fold count.
	CVFolds int
}

// TrainSingle trains req.Algorithm on the full training set and scores it
// on the test set. Input errors, unknown algorithms and invalid params are
// returned before training; a failed fit is returned as the result's Err.
func (s *Searcher) TrainSingle(ctx context.Context, req ManualRequest) (TrialResult, error) {
	spec, ok := s.algorithms[req.Algorithm]
	if !ok {
		return TrialResult{}, errors.NewValidationError("algorithm", "unknown algorithm", string(req.Algorithm))
	}
	if err := req.Train.Validate("train"); err != nil {
		return TrialResult{}, err
	}
	if err := req.Test.Validate("test"); err != nil {
		return TrialResult{}, err
	}
	if req.Train.Cols() != req.Test.Cols() {
		return TrialResult{}, errors.NewDimensionError("TrainSingle", req.Train.Cols(), req.Test.Cols(), 1)
	}

	var grid ParamGrid
	if req.Params != nil {
		if _, err := spec.Build(req.Params.Clone()); err != nil {
			return TrialResult{}, err
		}
		grid = make(ParamGrid, len(req.Params))
		for k, v := range req.Params {
			grid[k] = []any{v}
		}
	} else {
		tier := req.Grid
		if tier == "" {
			tier = GridFast
		}
		grids, ok := s.grids[tier]
		if !ok {
			return TrialResult{}, errors.NewValidationError("grid", "unknown grid tier", string(tier))
		}
		grid = grids[req.Algorithm]
	}

	folds := req.CVFolds
	if folds == 0 {
		folds = s.cfg.PolicyFor(TierStandard, false).CVFolds
	}
	trainer := NewTrainer(s.logger)
	res := trainer.Train(ctx, TrialInput{
		Spec:         spec,
		Grid:         grid,
		Work:         Split{Train: req.Train, Test: req.Test},
		FullTrain:    req.Train,
		Test:         req.Test,
		CVFolds:      folds,
		FeatureNames: req.FeatureNames,
		MaxWorkers:   s.cfg.MaxWorkers,
	})
	if res.Success {
		res.Status = StatusRetained
	}
	return res, res.Err
}
