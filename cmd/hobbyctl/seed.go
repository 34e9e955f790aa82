package main

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/hobbyshelf/hobbyshelf-server/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the default hobby tree and content types",
	Long: `Seed creates the starter hobbies and the article, photo, recipe,
code_snippet, video, book and general content types. Existing hobbies and
types are kept, so it is safe to run more than once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := service.Seed(cmd.Context(),
			do.MustInvoke[*service.TaxonomyService](injector),
			do.MustInvoke[*service.TypeService](injector),
		)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Hobbies: %d created, %d already present\nTypes: %d registered\n",
			res.NodesCreated, res.NodesSkipped, res.Types)
		return nil
	},
}
