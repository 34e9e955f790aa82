package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
)

var (
	searchHobby    int64
	searchType     string
	searchArchived bool
	searchLimit    int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over entries",
	Example: `  hobbyctl search "sourdough starter"
  hobbyctl search gouache --type article --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from stored entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		n, err := do.MustInvoke[*service.SearchService](injector).Reindex(cmd.Context())
		if err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d entries in %s\n", n, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print collection counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := do.MustInvoke[*service.StatsService](injector).Stats(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Hobbies\t%d\n", stats.Nodes)
		fmt.Fprintf(w, "Types\t%d\n", stats.Types)
		fmt.Fprintf(w, "Entries\t%d\n", stats.Entries)
		fmt.Fprintf(w, "  archived\t%d\n", stats.Archived)
		fmt.Fprintf(w, "  favorites\t%d\n", stats.Favorites)
		fmt.Fprintf(w, "Media\t%d\n", stats.Media)
		fmt.Fprintf(w, "Tags\t%d\n", stats.Tags)
		fmt.Fprintf(w, "Shelves\t%d\n", stats.Shelves)
		fmt.Fprintf(w, "Shelf items\t%d\n", stats.ShelfItems)
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().Int64Var(&searchHobby, "hobby", 0, "restrict to a hobby id")
	searchCmd.Flags().StringVar(&searchType, "type", "", "restrict to a content type key")
	searchCmd.Flags().BoolVar(&searchArchived, "archived", false, "include archived entries")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum hits")
}

func runSearch(cmd *cobra.Command, args []string) error {
	req := service.SearchRequest{
		Query:           strings.Join(args, " "),
		TypeKey:         searchType,
		IncludeArchived: searchArchived,
		Limit:           searchLimit,
	}
	if searchHobby > 0 {
		req.NodeID = &searchHobby
	}

	results, err := do.MustInvoke[*service.SearchService](injector).Search(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d matches (%s)\n", results.Total, results.Engine)
	for _, hit := range results.Hits {
		fmt.Fprintf(out, "\n#%d  %s  [%s / %s]  %.2f\n", hit.Entry.ID, hit.Entry.Title, hit.NodeName, hit.Entry.TypeKey, hit.Rank)
		if hit.Snippet != "" {
			fmt.Fprintf(out, "    %s\n", hit.Snippet)
		}
		if len(hit.Entry.Tags) > 0 {
			fmt.Fprintf(out, "    tags: %s\n", strings.Join(hit.Entry.Tags, ", "))
		}
	}
	return nil
}
