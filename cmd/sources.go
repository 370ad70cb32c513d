package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sourcesJSON bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and their health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initHub(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// One probe pass so the listing reflects current reachability
		// instead of catalog defaults.
		env.Monitor.Tick(ctx)

		srcs := env.Hub.Sources()
		if sourcesJSON {
			return json.NewEncoder(os.Stdout).Encode(srcs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tRELIABILITY\tRT(MS)\tUSAGE\tPRIORITY")
		for _, s := range srcs {
			usage := fmt.Sprintf("%d", s.DailyUsage)
			if s.DailyLimit > 0 {
				usage = fmt.Sprintf("%d/%d", s.DailyUsage, s.DailyLimit)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0f\t%s\t%d\n",
				s.ID, s.Type, s.HealthStatus, s.Reliability, s.ResponseTimeMs, usage, s.Priority)
		}
		return w.Flush()
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show aggregate system health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initHub(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		env.Monitor.Tick(ctx)

		status := env.Hub.SystemHealth()
		fmt.Printf("status: %s (%.0f%% healthy, %d/%d sources active)\n",
			status.Status, status.HealthPercentage, status.ActiveSources, status.TotalSources)
		return nil
	},
}

func init() {
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "emit raw JSON")
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(healthCmd)
}
