package cli

import (
	"github.com/spf13/cobra"

	"github.com/ecoscore/backend/internal/display"
)

var matchCmd = &cobra.Command{
	Use:   "match NAME...",
	Short: "Match product names against the catalog",
	Example: `  ecoscore match bananas
  ecoscore match "ORG BANANAS" "WHL MILK 1GAL" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMatch,
}

func runMatch(cmd *cobra.Command, args []string) error {
	_, pipeline, err := loadPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Close()

	rows := make([]display.MatchRow, 0, len(args))
	for _, name := range args {
		rows = append(rows, display.MatchRow{
			Query:  name,
			Result: pipeline.Service.MatchName(cmd.Context(), name),
		})
	}

	if flagJSON {
		return display.PrintMatchesJSON(cmd.OutOrStdout(), rows)
	}
	display.PrintMatches(cmd.OutOrStdout(), rows)
	return nil
}
