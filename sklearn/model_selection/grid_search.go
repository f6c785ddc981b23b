package model_selection

import (
	"context"
	"math"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/metrics"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// EstimatorFactory builds a fresh, unfitted estimator configured with params.
type EstimatorFactory func(params model.Params) (model.Regressor, error)

// CandidateResult is the cross-validation outcome of one parameter setting.
type CandidateResult struct {
	Params     model.Params
	FoldScores []float64
	MeanScore  float64
	StdScore   float64
	Err        error
}

// GridSearchCV evaluates every candidate of Grid with k-fold
// cross-validation scored by R² and refits the best one on all the data.
type GridSearchCV struct {
	Factory EstimatorFactory
	Grid    ParamGrid
	CV      *KFold
	// MaxWorkers bounds concurrent fits; 0 means GOMAXPROCS.
	MaxWorkers int
	Refit      bool

	Results       []CandidateResult
	BestIndex     int
	BestParams    model.Params
	BestScore     float64
	BestEstimator model.Regressor

	logger log.Logger
}

// NewGridSearchCV returns a search over grid with cv unshuffled folds and
// refitting enabled.
func NewGridSearchCV(factory EstimatorFactory, grid ParamGrid, cv int) *GridSearchCV {
	return &GridSearchCV{
		Factory:   factory,
		Grid:      grid,
		CV:        NewKFold(cv),
		Refit:     true,
		BestIndex: -1,
		logger:    log.GetLoggerWithName("model_selection.grid_search"),
	}
}

// BestFoldScores returns the per-fold R² of the best candidate.
func (g *GridSearchCV) BestFoldScores() []float64 {
	if g.BestIndex < 0 {
		return nil
	}
	return append([]float64(nil), g.Results[g.BestIndex].FoldScores...)
}

type foldData struct {
	XTrain, XTest *mat.Dense
	yTrain, yTest *mat.VecDense
}

// Fit runs the search. Candidates whose fit fails on any fold are excluded;
// if every candidate fails the first failure is returned. ctx is checked
// before each fit and a cancelled search returns ctx.Err().
func (g *GridSearchCV) Fit(ctx context.Context, X mat.Matrix, y mat.Vector) error {
	n, _ := X.Dims()
	if n == 0 {
		return errors.NewValueError("GridSearchCV.Fit", "empty training data")
	}
	if y.Len() != n {
		return errors.NewDimensionError("GridSearchCV.Fit", n, y.Len(), 0)
	}
	if g.Factory == nil {
		return errors.NewValidationError("factory", "must not be nil", nil)
	}

	folds, err := g.CV.Split(n)
	if err != nil {
		return err
	}
	data := make([]foldData, len(folds))
	for i, f := range folds {
		data[i] = foldData{
			XTrain: SelectRows(X, f.TrainIndices),
			XTest:  SelectRows(X, f.TestIndices),
			yTrain: SelectElems(y, f.TrainIndices),
			yTest:  SelectElems(y, f.TestIndices),
		}
	}

	candidates := ParameterGrid(g.Grid)
	scores := make([][]float64, len(candidates))
	errs := make([][]error, len(candidates))
	for c := range candidates {
		scores[c] = make([]float64, len(folds))
		errs[c] = make([]error, len(folds))
	}

	workers := g.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.logger.Debug("grid search started",
		log.CandidatesKey, len(candidates),
		log.FoldsKey, len(folds),
		log.SamplesKey, n,
	)

	p := pool.New().WithMaxGoroutines(workers)
	for c := range candidates {
		for f := range folds {
			p.Go(func() {
				if ctx.Err() != nil {
					errs[c][f] = ctx.Err()
					return
				}
				errs[c][f] = errors.SafeExecute("GridSearchCV.fold", func() error {
					s, err := g.scoreFold(candidates[c], data[f])
					scores[c][f] = s
					return err
				})
			})
		}
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	g.Results = make([]CandidateResult, len(candidates))
	g.BestIndex = -1
	var firstErr error
	for c, params := range candidates {
		res := CandidateResult{Params: params, FoldScores: scores[c], MeanScore: math.NaN(), StdScore: math.NaN()}
		for _, err := range errs[c] {
			if err != nil {
				res.Err = err
				break
			}
		}
		if res.Err == nil {
			res.MeanScore, res.StdScore = metrics.MeanStd(scores[c])
			if g.BestIndex < 0 || res.MeanScore > g.Results[g.BestIndex].MeanScore {
				g.BestIndex = c
			}
		} else if firstErr == nil {
			firstErr = res.Err
		}
		g.Results[c] = res
	}
	if g.BestIndex < 0 {
		return errors.Wrapf(firstErr, "all %d candidates failed", len(candidates))
	}

	best := g.Results[g.BestIndex]
	g.BestParams = best.Params.Clone()
	g.BestScore = best.MeanScore
	g.logger.Debug("grid search finished",
		log.HyperParamsKey, g.BestParams.String(),
		log.CVMeanKey, best.MeanScore,
		log.CVStdKey, best.StdScore,
	)

	if !g.Refit {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	est, err := g.Factory(g.BestParams.Clone())
	if err != nil {
		return err
	}
	if err := errors.SafeExecute("GridSearchCV.refit", func() error { return est.Fit(X, y) }); err != nil {
		return err
	}
	g.BestEstimator = est
	return nil
}

func (g *GridSearchCV) scoreFold(params model.Params, d foldData) (float64, error) {
	est, err := g.Factory(params.Clone())
	if err != nil {
		return 0, err
	}
	if err := est.Fit(d.XTrain, d.yTrain); err != nil {
		return 0, err
	}
	score, err := est.Score(d.XTest, d.yTest)
	if err != nil {
		return 0, err
	}
	return score, errors.CheckFinite("GridSearchCV.score", 0, score)
}
