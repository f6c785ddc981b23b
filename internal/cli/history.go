package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirzakinn/sales-prediction/internal/history"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded searches or show one in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.History.Path == "" {
				return errors.NewValidationError("history.path", "no history database configured", "")
			}
			store, err := history.Open(a.cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 1 {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRun(w, run)
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs recorded.")
				return nil
			}
			fmt.Fprintln(w, "RUN\tSTARTED\tDATASET\tTARGET\tTIER\tBEST\tR²")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.4f\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Dataset, r.Target, r.Tier,
					r.BestAlgorithm, r.Metrics.R2)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	return cmd
}

func printRun(w *tabwriter.Writer, run history.Run) {
	fmt.Fprintf(w, "Run:\t%s\n", run.ID)
	fmt.Fprintf(w, "Session:\t%s\n", run.SessionID)
	fmt.Fprintf(w, "Started:\t%s\n", run.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Data:\t%s -> %s (%s)\n", run.Dataset, run.Target, strings.Join(run.Features, ", "))
	fmt.Fprintf(w, "Tier:\t%s, grid %s, sampled %t\n", run.Tier, run.Grid, run.Sampled)
	fmt.Fprintf(w, "Best:\t%s %s\n", run.BestAlgorithm, run.BestParams)
	fmt.Fprintf(w, "Metrics:\t%s\n", run.Metrics)
	fmt.Fprintf(w, "Finished:\t%s after %s\n", run.StopReason, run.Duration)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "#\tALGORITHM\tSTATUS\tRANK\tR²\tRMSE\tERROR")
	for _, t := range run.Trials {
		rank := "-"
		if t.Rank > 0 {
			rank = fmt.Sprint(t.Rank)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.4f\t%.4f\t%s\n",
			t.Attempt, t.Algorithm, t.Status, rank, t.Metrics.R2, t.Metrics.RMSE, t.Error)
	}
}
