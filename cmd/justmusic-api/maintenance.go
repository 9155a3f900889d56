package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/justmusic/justmusic-api/internal/models"
)

func ensureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the collection indexes the API relies on",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if err := a.mongo.EnsureIndexes(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare enrollment counters with paid selections",
		Long: `Counts successful selections per class and reports classes whose
totalEnrolledStudent disagrees. With --apply the counters are rewritten.

Examples:
  justmusic-api reconcile
  justmusic-api reconcile --apply`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			drifts, err := a.reconcileService().Run(ctx, apply)
			if err != nil {
				return err
			}
			return printDrifts(cmd.OutOrStdout(), drifts)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "rewrite drifted counters")
	return cmd
}

func printDrifts(out io.Writer, drifts []models.EnrollmentDrift) error {
	if len(drifts) == 0 {
		_, err := fmt.Fprintln(out, "no drift found")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CLASS ID\tNAME\tRECORDED\tCOUNTED\tSEATS\tADJUSTED\tAPPLIED")
	for _, d := range drifts {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			d.ClassID, d.ClassName, d.Recorded, d.Counted, d.AvailableSeat, d.AdjustedSeat, strconv.FormatBool(d.Applied))
	}
	return w.Flush()
}
