package automl

import (
	"context"
	"math"
	"time"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/metrics"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
	"github.com/mirzakinn/sales-prediction/sklearn/model_selection"
)

// TrialInput is everything one trial needs. Work is the (possibly sampled)
// set the grid search runs on; FullTrain and Test are the caller's data.
type TrialInput struct {
	Spec         AlgorithmSpec
	Grid         ParamGrid
	Work         Split
	FullTrain    Dataset
	Test         Dataset
	Sampled      bool
	CVFolds      int
	RefitOnFull  bool
	FeatureNames []string
	MaxWorkers   int
}

// Trainer runs a cross-validated grid search for a single algorithm and
// scores the winner on the held-out test set.
type Trainer struct {
	logger log.Logger
}

// NewTrainer returns a trainer logging to logger, or to the package logger
// when logger is nil.
func NewTrainer(logger log.Logger) *Trainer {
	if logger == nil {
		logger = log.GetLoggerWithName("automl.trainer")
	}
	return &Trainer{logger: logger}
}

// Train never returns an error: failures and panics are recorded on the
// result with Success false.
func (t *Trainer) Train(ctx context.Context, in TrialInput) TrialResult {
	start := time.Now()
	res := TrialResult{
		Algorithm:   in.Spec.Name,
		DisplayName: DisplayName(in.Spec.Name),
		CVMean:      math.NaN(),
		CVStd:       math.NaN(),
	}
	logger := t.logger.With(log.ModelNameKey, string(in.Spec.Name))

	err := errors.SafeExecute("Trainer.Train", func() error {
		return t.train(ctx, in, &res, logger)
	})
	res.Duration = time.Since(start)
	if err != nil {
		res.Success = false
		res.Err = err
		res.Status = StatusFailed
		res.Estimator = nil
		logger.Warn("trial failed", err, log.DurationMsKey, res.Duration.Milliseconds())
		return res
	}
	res.Success = true
	logger.Info("trial finished",
		log.R2ScoreKey, res.Metrics.R2,
		log.RMSEKey, res.Metrics.RMSE,
		log.CVMeanKey, res.CVMean,
		log.CVStdKey, res.CVStd,
		log.HyperParamsKey, res.Params.String(),
		log.DurationMsKey, res.Duration.Milliseconds(),
	)
	return res
}

func (t *Trainer) train(ctx context.Context, in TrialInput, res *TrialResult, logger log.Logger) error {
	factory := func(params model.Params) (model.Regressor, error) {
		est, err := in.Spec.Build(params)
		if err != nil {
			return nil, err
		}
		if namer, ok := est.(model.FeatureNamer); ok && len(in.FeatureNames) > 0 {
			if err := namer.SetFeatureNames(in.FeatureNames); err != nil {
				return nil, err
			}
		}
		return est, nil
	}

	refitFull := in.RefitOnFull && in.Sampled
	gs := model_selection.NewGridSearchCV(factory, in.Grid, in.CVFolds)
	gs.MaxWorkers = in.MaxWorkers
	gs.Refit = !refitFull
	logger.Debug("grid search",
		log.CandidatesKey, in.Grid.Size(),
		log.FoldsKey, in.CVFolds,
		log.WorkSamplesKey, in.Work.Train.Rows(),
	)
	if err := gs.Fit(ctx, in.Work.Train.X, in.Work.Train.Y); err != nil {
		return err
	}

	est := gs.BestEstimator
	if refitFull {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		if est, err = factory(gs.BestParams.Clone()); err != nil {
			return err
		}
		if err := est.Fit(in.FullTrain.X, in.FullTrain.Y); err != nil {
			return errors.Wrap(err, "refit on full training set")
		}
		logger.Debug("refit on full training set", log.SamplesKey, in.FullTrain.Rows())
	}

	pred, err := est.Predict(in.Test.X)
	if err != nil {
		return err
	}
	yPred, err := model.Column("Trainer.Predict", pred)
	if err != nil {
		return err
	}
	yTrue, err := model.Column("Trainer.Predict", in.Test.Y)
	if err != nil {
		return err
	}
	if err := errors.CheckFinite("Trainer.Predict", 0, yPred...); err != nil {
		return err
	}
	report, err := metrics.Evaluate(yTrue, yPred)
	if err != nil {
		return err
	}
	if !report.Finite() {
		return errors.NewNumericalInstabilityError("Trainer.Evaluate", []float64{report.R2, report.RMSE}, 0)
	}

	res.Estimator = est
	res.Params = gs.BestParams.Clone()
	res.Predictions = yPred
	res.Metrics = report
	res.CVMean, res.CVStd = metrics.MeanStd(gs.BestFoldScores())
	return nil
}
