package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var analyticsJSON bool

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show usage and per-source statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initHub(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		dash := env.Hub.AnalyticsDashboard()
		if analyticsJSON {
			return json.NewEncoder(os.Stdout).Encode(dash)
		}

		fmt.Printf("requests: %d  calls: %d  failovers: %d  cache hit rate: %.0f%%\n\n",
			dash.Overview.TotalRequests,
			dash.Overview.TotalCalls,
			dash.Overview.FailoverEvents,
			dash.Overview.CacheHitRate*100)

		// The in-process counters are empty in a fresh CLI run; the last
		// persisted snapshot from a serve session is usually more useful.
		if snap, err := env.Store.LatestSnapshot(ctx); err == nil && snap != nil {
			fmt.Printf("last snapshot (%s): requests: %d  calls: %d  failovers: %d  cache hit rate: %.0f%%\n\n",
				snap.CollectedAt.Format("2006-01-02 15:04"),
				snap.TotalRequests, snap.TotalCalls, snap.FailoverEvents, snap.CacheHitRate*100)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tSTATUS\tRELIABILITY\tRT(MS)\tCALLS\tFAILURES\tPERFORMANCE")
		for _, d := range dash.Sources {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\t%d\t%d\t%.1f\n",
				d.ID, d.HealthStatus, d.Reliability, d.ResponseTimeMs, d.Calls, d.Failures, d.Performance)
		}
		return w.Flush()
	},
}

func init() {
	analyticsCmd.Flags().BoolVar(&analyticsJSON, "json", false, "emit raw JSON")
	rootCmd.AddCommand(analyticsCmd)
}
