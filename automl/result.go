package automl

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/metrics"
)

// TrialStatus says what became of one attempt.
type TrialStatus string

const (
	StatusRetained TrialStatus = "retained"
	StatusRejected TrialStatus = "rejected"
	StatusFailed   TrialStatus = "failed"
	StatusTimedOut TrialStatus = "timed_out"
)

// TrialResult is the outcome of fitting one algorithm. A successful result
// exclusively owns its fitted Estimator.
type TrialResult struct {
	Algorithm   Algorithm
	DisplayName string
	Estimator   model.Regressor
	Params      model.Params
	Predictions []float64
	Metrics     metrics.Report
	CVMean      float64
	CVStd       float64
	Duration    time.Duration
	Success     bool
	Err         error
	Status      TrialStatus
}

// ErrorMessage returns the failure text, or "" for successful trials.
func (r TrialResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// StopReason explains why the trial loop ended.
type StopReason string

const (
	StopExhausted   StopReason = "exhausted"
	StopMaxAttempts StopReason = "max_attempts"
	StopEarly       StopReason = "early_stop"
)

// SearchOutcome is the result of one search. Ranked holds the retained
// trials by descending R², ties in priority order; Best is Ranked[0].
type SearchOutcome struct {
	Best     *TrialResult
	Ranked   []TrialResult
	Attempts []TrialResult

	SessionID  string
	Tier       SizeTier
	Policy     TierPolicy
	Sampled    bool
	WorkRows   int
	StartedAt  time.Time
	Duration   time.Duration
	StopReason StopReason
}

// BestAlgorithm returns the winning algorithm name.
func (o *SearchOutcome) BestAlgorithm() Algorithm {
	if o.Best == nil {
		return ""
	}
	return o.Best.Algorithm
}

// Improvement returns how much better the best R² is than the runner-up,
// in percent of the runner-up's R². ok is false with fewer than two ranked
// trials or a non-positive runner-up.
func (o *SearchOutcome) Improvement() (pct float64, ok bool) {
	if len(o.Ranked) < 2 {
		return 0, false
	}
	second := o.Ranked[1].Metrics.R2
	if second <= 0 {
		return 0, false
	}
	return (o.Ranked[0].Metrics.R2 - second) / second * 100, true
}

// Summary renders the leaderboard of ranked trials followed by the winner.
func (o *SearchOutcome) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset tier: %s (grid %s, %d-fold CV", o.Tier, o.Policy.Grid, o.Policy.CVFolds)
	if o.Sampled {
		fmt.Fprintf(&b, ", sampled to %d rows", o.WorkRows)
	}
	fmt.Fprintf(&b, ")\n\n")

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tModel\tR²\tAccuracy\tRMSE\tMAE\tCV R²\tTime")
	for i, r := range o.Ranked {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%.1f%%\t%.4f\t%.4f\t%s\t%.2fs\n",
			i+1, r.DisplayName, r.Metrics.R2, r.Metrics.Accuracy, r.Metrics.RMSE, r.Metrics.MAE,
			formatCV(r.CVMean, r.CVStd), r.Duration.Seconds())
	}
	w.Flush()

	var skipped []string
	for _, a := range o.Attempts {
		if a.Status != StatusRetained {
			skipped = append(skipped, fmt.Sprintf("%s (%s)", a.DisplayName, a.Status))
		}
	}
	if len(skipped) > 0 {
		fmt.Fprintf(&b, "\nNot ranked: %s\n", strings.Join(skipped, ", "))
	}

	if o.Best != nil {
		fmt.Fprintf(&b, "\nBest model: %s with R² %.4f", o.Best.DisplayName, o.Best.Metrics.R2)
		if pct, ok := o.Improvement(); ok {
			fmt.Fprintf(&b, " (%.2f%% better than %s)", pct, o.Ranked[1].DisplayName)
		}
		fmt.Fprintf(&b, "\nParameters: %s\n", o.Best.Params)
	}
	fmt.Fprintf(&b, "Search finished in %.2fs (%s)\n", o.Duration.Seconds(), o.StopReason)
	return b.String()
}

func formatCV(mean, std float64) string {
	if math.IsNaN(mean) {
		return "-"
	}
	return fmt.Sprintf("%.4f ± %.4f", mean, std)
}
