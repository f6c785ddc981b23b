package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mirzakinn/sales-prediction/automl"
	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

func (a *app) newTrainCmd() *cobra.Command {
	var (
		data      dataFlags
		algorithm string
		params    []string
		grid      string
		folds     int
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a single algorithm",
		Long: `Train one algorithm on the full training split and score it on the test split.
With --param only the given hyperparameters are used; otherwise the algorithm's
grid of the chosen tier is searched with cross-validation.`,
		Example: `  salesml train -d sales.csv -t sales --algorithm ridge --param alpha=0.5 --param solver=svd
  salesml train -d sales.csv -t sales --algorithm random_forest --grid ultra_fast`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			prep, err := a.prepare(data)
			if err != nil {
				return err
			}
			sc, err := a.cfg.SearchConfig()
			if err != nil {
				return err
			}
			sess := automl.NewSession(sc)
			res, err := sess.TrainSingle(cmd.Context(), automl.ManualRequest{
				Algorithm:    automl.Algorithm(strings.ToLower(algorithm)),
				Params:       p,
				Grid:         automl.GridTier(grid),
				Train:        prep.Train,
				Test:         prep.Test,
				FeatureNames: prep.FeatureNames,
				CVFolds:      folds,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Model: %s\n", res.DisplayName)
			fmt.Fprintf(w, "Parameters: %s\n", res.Params)
			fmt.Fprintf(w, "Test: %s\n", res.Metrics)
			if !math.IsNaN(res.CVMean) {
				fmt.Fprintf(w, "CV R²: %.4f ± %.4f\n", res.CVMean, res.CVStd)
			}
			fmt.Fprintf(w, "Time: %.2fs\n", res.Duration.Seconds())
			return data.predictWith(w, prep, res.Estimator)
		},
	}
	data.register(cmd)
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "algorithm name, e.g. ridge or lightgbm")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "hyperparameter as name=value (repeatable)")
	cmd.Flags().StringVar(&grid, "grid", "", "grid tier searched without --param: detailed, fast, ultra_fast, ultra_minimal")
	cmd.Flags().IntVar(&folds, "cv", 0, "cross-validation folds (default: the standard tier's)")
	_ = cmd.MarkFlagRequired("algorithm")
	return cmd
}

// parseParams turns name=value pairs into Params. Values become nil
// ("none"), bool, int or float64 when they parse as such and stay strings
// otherwise. No pairs yields nil Params.
func parseParams(pairs []string) (model.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(model.Params, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.NewValidationError("param", "expected name=value", pair)
		}
		out[name] = parseValue(strings.TrimSpace(raw))
	}
	return out, nil
}

func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "none", "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
