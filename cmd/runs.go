package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"triage/internal/clix"
)

// runsCmd prints recent categorization runs from the local store.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent categorization runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		limit := clix.ParseLimit(cmd.Flags(), 20)
		runs, err := appInstance.Store.ListRuns(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No categorization runs recorded yet.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Model", "Cases", "Errors", "Duration", "Created"})
		for _, r := range runs {
			table.Append([]string{
				r.ID,
				r.Model,
				fmt.Sprintf("%d", r.CaseCount),
				fmt.Sprintf("%d", r.ErrorCount),
				r.Duration.String(),
				r.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	rootCmd.AddCommand(runsCmd)
}
