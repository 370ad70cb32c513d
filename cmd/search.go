package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reelscout/discovery-cli/internal/model"
)

var (
	searchStrategy string
	searchRegion   string
	searchGenres   []string
	searchType     string
	searchLimit    int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one federated search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initHub(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := &model.SearchRequest{
			Query:    strings.Join(args, " "),
			Strategy: model.Strategy(searchStrategy),
			Limit:    searchLimit,
		}
		if len(searchGenres) > 0 || searchType != "" {
			req.Filters = &model.Filters{
				Genres:      searchGenres,
				ContentType: model.ContentType(searchType),
			}
		}
		if searchRegion != "" {
			req.User = &model.UserContext{Region: searchRegion}
		}

		res, err := env.Hub.IntelligentSearch(ctx, req)
		if err != nil {
			return err
		}

		if searchJSON {
			return json.NewEncoder(os.Stdout).Encode(res)
		}

		fmt.Printf("%d results (%s strategy, %dms, sources: %s)\n\n",
			res.Metadata.TotalResults,
			res.Metadata.Strategy,
			res.Metadata.SearchTimeMs,
			strings.Join(res.Metadata.SourcesUsed, ", "))

		for i, r := range res.Results {
			year := ""
			if r.ReleaseYear > 0 {
				year = fmt.Sprintf(" (%d)", r.ReleaseYear)
			}
			fmt.Printf("%2d. %s%s  score=%.1f  sources=%s\n",
				i+1, r.Title, year, r.Score, strings.Join(r.Sources, ","))
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchStrategy, "strategy", "", "search strategy: fast, comprehensive, premium (default auto)")
	searchCmd.Flags().StringVar(&searchRegion, "region", "", "user region for availability lookups")
	searchCmd.Flags().StringSliceVar(&searchGenres, "genre", nil, "genre filter (repeatable)")
	searchCmd.Flags().StringVar(&searchType, "type", "", "content type: movie, series")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit raw JSON")
	rootCmd.AddCommand(searchCmd)
}
