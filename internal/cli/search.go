package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mirzakinn/sales-prediction/automl"
	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/internal/dataset"
	"github.com/mirzakinn/sales-prediction/internal/history"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

type dataFlags struct {
	path     string
	target   string
	features []string
	predict  string
}

func (d *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&d.path, "data", "d", "", "CSV file with a header row")
	cmd.Flags().StringVarP(&d.target, "target", "t", "", "column to predict")
	cmd.Flags().StringSliceVarP(&d.features, "features", "f", nil, "feature columns (default: every other column)")
	cmd.Flags().StringVar(&d.predict, "predict", "", "CSV of new records to predict with the trained model")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("target")
}

func (a *app) prepare(d dataFlags) (*dataset.Prepared, error) {
	tbl, err := dataset.LoadCSV(d.path)
	if err != nil {
		return nil, err
	}
	return dataset.Prepare(tbl, dataset.OptionsFrom(a.cfg.Data, d.target, d.features))
}

// predictWith writes est's predictions for the records in d.predict, one line
// per record with its feature values.
func (d dataFlags) predictWith(w io.Writer, prep *dataset.Prepared, est model.Predictor) error {
	if d.predict == "" {
		return nil
	}
	tbl, err := dataset.LoadCSV(d.predict)
	if err != nil {
		return err
	}
	pred, err := prep.Predict(est, tbl)
	if err != nil {
		return errors.Wrapf(err, "predict %s", d.predict)
	}
	cols := make([]int, len(prep.FeatureNames))
	for j, name := range prep.FeatureNames {
		cols[j], _ = tbl.Column(name)
	}

	fmt.Fprintf(w, "Predictions (%s):\n", prep.Target)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  #\t%s\t%s\n", strings.Join(prep.FeatureNames, "\t"), prep.Target)
	for i, v := range pred {
		values := make([]string, len(cols))
		for j, c := range cols {
			values[j] = tbl.Rows[i][c]
		}
		fmt.Fprintf(tw, "  %d\t%s\t%.2f\n", i+1, strings.Join(values, "\t"), v)
	}
	return tw.Flush()
}

func (a *app) newSearchCmd() *cobra.Command {
	var (
		data      dataFlags
		detailed  bool
		noHistory bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search every algorithm and report the best model",
		Example: `  # Search all algorithms on sales.csv
  salesml search --data sales.csv --target sales

  # Use the detailed grids on a small dataset and only two features
  salesml search -d sales.csv -t sales -f price,promo --detailed

  # Predict next month's records with the winning model
  salesml search -d sales.csv -t sales --predict next_month.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prep, err := a.prepare(data)
			if err != nil {
				return err
			}
			sc, err := a.cfg.SearchConfig()
			if err != nil {
				return err
			}
			sess := automl.NewSession(sc)
			out, err := sess.Search(cmd.Context(), automl.SearchInput{
				Train:        prep.Train,
				Test:         prep.Test,
				FeatureNames: prep.FeatureNames,
				Detailed:     detailed,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Rows: %d (%d dropped), features: %s\n",
				prep.Rows, prep.Dropped, strings.Join(prep.FeatureNames, ", "))
			printSummary(w, out)
			if err := data.predictWith(w, prep, out.Best.Estimator); err != nil {
				return err
			}

			if noHistory || a.cfg.History.Path == "" {
				return nil
			}
			store, err := history.Open(a.cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			id, err := store.RecordRun(cmd.Context(), history.NewRun(out, data.path, data.target, prep.FeatureNames))
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Saved run %s\n", id)
			return nil
		},
	}
	data.register(cmd)
	cmd.Flags().BoolVar(&detailed, "detailed", false, "use the detailed grids on standard-size data")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run")
	return cmd
}

// printSummary writes the outcome summary with the winner line highlighted.
func printSummary(w io.Writer, out *automl.SearchOutcome) {
	highlight := color.New(color.FgGreen, color.Bold).SprintFunc()
	dim := color.New(color.FgYellow).SprintFunc()
	for _, line := range strings.SplitAfter(out.Summary(), "\n") {
		switch {
		case strings.HasPrefix(line, "Best model:"):
			fmt.Fprint(w, highlight(strings.TrimSuffix(line, "\n")), "\n")
		case strings.HasPrefix(line, "Not ranked:"):
			fmt.Fprint(w, dim(strings.TrimSuffix(line, "\n")), "\n")
		default:
			fmt.Fprint(w, line)
		}
	}
}
