// Package automl searches a catalogue of regression algorithms for the best
// model on a dataset. The search adapts its budget to the dataset size:
// larger data gets smaller grids, fewer folds, sampling and per-trial
// timeouts.
package automl

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// SearchInput is the caller's data. Train and Test must have the same
// columns in the same order. FeatureNames is optional.
type SearchInput struct {
	Train        Dataset
	Test         Dataset
	FeatureNames []string
	// Detailed selects the broadest grids on standard-size data.
	Detailed bool
	// SessionID tags logs and the outcome; a new one is generated when empty.
	SessionID string
}

// Searcher runs searches. It holds no per-search state, so one Searcher
// may serve concurrent searches.
type Searcher struct {
	cfg        Config
	algorithms map[Algorithm]AlgorithmSpec
	grids      GridCatalogue
	logger     log.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(s *Searcher) { s.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Searcher) { s.logger = logger }
}

// WithAlgorithms adds or replaces algorithm specs by name.
func WithAlgorithms(specs ...AlgorithmSpec) Option {
	return func(s *Searcher) {
		for _, spec := range specs {
			s.algorithms[spec.Name] = spec
		}
	}
}

// WithGrids replaces the grid catalogue.
func WithGrids(grids GridCatalogue) Option {
	return func(s *Searcher) { s.grids = grids }
}

// NewSearcher returns a searcher over the default algorithms and grids.
func NewSearcher(opts ...Option) *Searcher {
	s := &Searcher{
		cfg:        DefaultConfig(),
		algorithms: DefaultAlgorithms(),
		grids:      DefaultGridCatalogue(),
		logger:     log.GetLoggerWithName("automl.search"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the searcher's configuration.
func (s *Searcher) Config() Config { return s.cfg }

func (s *Searcher) validate(in SearchInput) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if err := in.Train.Validate("train"); err != nil {
		return err
	}
	if err := in.Test.Validate("test"); err != nil {
		return err
	}
	if in.Train.Cols() != in.Test.Cols() {
		return errors.NewDimensionError("Search", in.Train.Cols(), in.Test.Cols(), 1)
	}
	if len(in.FeatureNames) > 0 && len(in.FeatureNames) != in.Train.Cols() {
		return errors.NewDimensionError("Search.FeatureNames", in.Train.Cols(), len(in.FeatureNames), 1)
	}
	for _, alg := range s.cfg.Order {
		if _, ok := s.algorithms[alg]; !ok {
			return errors.NewValidationError("algorithm", "unknown algorithm in search order", string(alg))
		}
	}
	return ValidateCatalogue(s.grids, s.cfg.Order)
}

// Search tries the configured algorithms in priority order and returns the
// ranked outcome. Failed, timed-out and rejected trials never appear in
// Ranked. The only errors are input contract violations, a
// NoUsableModelError when nothing was retained, and the context error when
// ctx is cancelled.
func (s *Searcher) Search(ctx context.Context, in SearchInput) (*SearchOutcome, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	out := &SearchOutcome{SessionID: in.SessionID, StartedAt: time.Now()}
	if out.SessionID == "" {
		out.SessionID = uuid.NewString()
	}
	logger := s.logger.With(log.SessionIDKey, out.SessionID)

	out.Tier = s.cfg.Thresholds.Classify(in.Train.Rows(), in.Train.Cols())
	out.Policy = s.cfg.PolicyFor(out.Tier, in.Detailed)
	work, sampled := s.cfg.Sampler().Sample(in.Train, in.Test)
	out.Sampled = sampled
	out.WorkRows = work.Train.Rows()
	grids := s.grids[out.Policy.Grid]

	logger.Info("dataset sized",
		log.PhaseKey, log.PhaseSizing,
		log.SamplesKey, in.Train.Rows(),
		log.FeaturesKey, in.Train.Cols(),
		log.TierKey, out.Tier.String(),
		log.GridTierKey, string(out.Policy.Grid),
		log.FoldsKey, out.Policy.CVFolds,
		log.BudgetKey, out.Policy.Timeout,
		log.WorkSamplesKey, out.WorkRows,
	)

	trainer := NewTrainer(logger)
	var retained []TrialResult
	out.StopReason = StopExhausted

	for _, alg := range s.cfg.Order {
		if len(out.Attempts) >= out.Policy.MaxAlgorithmsTried {
			out.StopReason = StopMaxAttempts
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "search cancelled")
		}

		attempt := len(out.Attempts)
		logger.Info("trying algorithm",
			log.PhaseKey, log.PhaseTrying,
			log.AttemptKey, attempt+1,
			log.ModelNameKey, string(alg),
		)
		res, err := s.runTrial(ctx, trainer, TrialInput{
			Spec:         s.algorithms[alg],
			Grid:         grids[alg],
			Work:         work,
			FullTrain:    in.Train,
			Test:         in.Test,
			Sampled:      sampled,
			CVFolds:      out.Policy.CVFolds,
			RefitOnFull:  out.Policy.RefitOnFull,
			FeatureNames: in.FeatureNames,
			MaxWorkers:   s.cfg.MaxWorkers,
		}, out.Policy.Timeout)
		if err != nil {
			return nil, errors.Wrap(err, "search cancelled")
		}

		if res.Success {
			res.Status = StatusRetained
			if res.Metrics.R2 < s.cfg.EarlyRejectR2 && attempt >= s.cfg.EarlyRuleMinTrials {
				res.Status = StatusRejected
				res.Estimator = nil
			}
		}
		out.Attempts = append(out.Attempts, res)
		logger.Info("attempt recorded",
			log.AttemptKey, attempt+1,
			log.ModelNameKey, string(alg),
			log.OutcomeKey, string(res.Status),
		)
		if res.Status != StatusRetained {
			continue
		}

		retained = append(retained, res)
		if res.Metrics.R2 > s.cfg.EarlyStopR2 && len(retained) >= s.cfg.EarlyRuleMinTrials {
			out.StopReason = StopEarly
			logger.Info("early stop", log.R2ScoreKey, res.Metrics.R2, log.AttemptKey, attempt+1)
			break
		}
	}

	if len(retained) == 0 {
		failures := make([]errors.AttemptFailure, 0, len(out.Attempts))
		for _, a := range out.Attempts {
			reason := string(a.Status)
			if a.Err != nil {
				reason = a.Err.Error()
			}
			failures = append(failures, errors.AttemptFailure{Algorithm: string(a.Algorithm), Reason: reason})
		}
		err := errors.NewNoUsableModelError(failures)
		logger.Error("no usable model", err, log.ErrorCodeKey, log.ErrorNoUsableModel)
		return nil, err
	}

	sort.SliceStable(retained, func(i, j int) bool {
		return retained[i].Metrics.R2 > retained[j].Metrics.R2
	})
	out.Ranked = retained
	out.Best = &out.Ranked[0]
	out.Duration = time.Since(out.StartedAt)

	logger.Info("search ranked",
		log.PhaseKey, log.PhaseRanked,
		log.ModelNameKey, string(out.Best.Algorithm),
		log.R2ScoreKey, out.Best.Metrics.R2,
		log.CandidatesKey, len(out.Ranked),
	)
	logger.Info("search done",
		log.PhaseKey, log.PhaseDone,
		log.DurationSecondsKey, out.Duration.Seconds(),
		log.StopReasonKey, string(out.StopReason),
	)
	return out, nil
}

// runTrial runs one trial in its own goroutine. When timeout is positive
// the trial is abandoned once it expires and a timed-out result is
// returned without waiting for the worker. An error is returned only when
// the parent ctx ends.
func (s *Searcher) runTrial(ctx context.Context, trainer *Trainer, in TrialInput, timeout time.Duration) (TrialResult, error) {
	trialCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		trialCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	started := time.Now()
	done := make(chan TrialResult, 1)
	go func() {
		done <- trainer.Train(trialCtx, in)
	}()

	select {
	case res := <-done:
		if ctx.Err() != nil {
			return TrialResult{}, ctx.Err()
		}
		if timeout > 0 && errors.Is(res.Err, context.DeadlineExceeded) {
			return s.timedOut(in.Spec.Name, timeout, time.Since(started)), nil
		}
		return res, nil
	case <-trialCtx.Done():
		if err := ctx.Err(); err != nil {
			return TrialResult{}, err
		}
		return s.timedOut(in.Spec.Name, timeout, time.Since(started)), nil
	}
}

func (s *Searcher) timedOut(alg Algorithm, budget, elapsed time.Duration) TrialResult {
	err := errors.NewTrialTimeoutError(string(alg), budget)
	s.logger.Warn("trial timed out", err,
		log.ModelNameKey, string(alg),
		log.BudgetKey, budget,
		log.ErrorCodeKey, log.ErrorTimeout,
	)
	return TrialResult{
		Algorithm:   alg,
		DisplayName: DisplayName(alg),
		Duration:    elapsed,
		Err:         err,
		Status:      StatusTimedOut,
	}
}
