package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initHub(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		recs, err := env.Hub.SearchHistory(ctx, historyLimit)
		if err != nil {
			return err
		}

		if historyJSON {
			return json.NewEncoder(os.Stdout).Encode(recs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tQUERY\tSTRATEGY\tRESULTS\tMS\tSOURCES\tCACHE")
		for _, r := range recs {
			cacheMark := ""
			if r.CacheHit {
				cacheMark = "hit"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				r.CreatedAt.Format("2006-01-02 15:04"),
				r.Query, r.Strategy, r.ResultCount, r.DurationMs,
				strings.Join(r.SourcesUsed, ","), cacheMark)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max entries")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "emit raw JSON")
	rootCmd.AddCommand(historyCmd)
}
