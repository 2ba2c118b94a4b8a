package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"triage/internal/clix"
	"triage/internal/models"
	"triage/internal/services"
)

var categorizeFile string

// categorizeCmd represents the categorize command
var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Categorize cases from a JSON or CSV file",
	Long: `Reads case records from a file (a JSON array of objects, or a CSV
with a header row), runs the categorization pipeline against the
configured taxonomy, and prints one prediction per case.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		cases, err := readCases(categorizeFile)
		if err != nil {
			return err
		}
		if len(cases) == 0 {
			return fmt.Errorf("no case records found in %s", categorizeFile)
		}

		model := clix.ParseModel(cmd.Flags(), appInstance.Config.Categorization.DefaultModel)

		ctx, cancel := context.WithTimeout(cmd.Context(), appInstance.RequestTimeout())
		defer cancel()

		results, err := appInstance.CategorizationService.CategorizeCases(ctx, services.CategorizeParams{
			Cases:       cases,
			Categories:  appInstance.Taxonomy.Categories(),
			Resolutions: appInstance.Taxonomy.Resolutions(),
			Model:       model,
		})
		if err != nil {
			return err
		}

		printResults(results)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categorizeCmd)

	categorizeCmd.Flags().StringVarP(&categorizeFile, "file", "f", "", "Path to a JSON or CSV file of case records (required)")
	categorizeCmd.Flags().StringP("model", "m", "", "Model id to use (defaults to config)")
	categorizeCmd.MarkFlagRequired("file")
}

// readCases loads records from a JSON array or a CSV with headers.
func readCases(path string) ([]models.CaseRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return casesFromCSV(data)
	default:
		var cases []models.CaseRecord
		if err := json.Unmarshal(data, &cases); err != nil {
			return nil, fmt.Errorf("failed to parse %s as a JSON array of case records: %w", path, err)
		}
		return cases, nil
	}
}

func casesFromCSV(data []byte) ([]models.CaseRecord, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV must have a header row and at least one record")
	}

	header := rows[0]
	cases := make([]models.CaseRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(models.CaseRecord, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		cases = append(cases, record)
	}
	return cases, nil
}

// truncate bounds s to max runes, cutting on a rune boundary so
// multibyte titles stay valid UTF-8 in the table.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func printResults(results []models.PredictionResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Title", "Category", "Resolution", "Certainty", "Error"})
	table.SetRowLine(false)

	errCount := 0
	for i, r := range results {
		title, _ := r.OriginalCase["Title"].(string)
		title = truncate(title, 40)
		if r.Error != "" {
			errCount++
		}
		table.Append([]string{
			fmt.Sprintf("%d", i),
			title,
			r.PredictedCategory,
			r.PredictedResolution,
			r.PredictedCertainty,
			r.Error,
		})
	}
	table.Render()

	if errCount > 0 {
		color.Yellow("%d of %d case(s) failed; see the Error column.", errCount, len(results))
	} else {
		color.Green("All %d case(s) categorized.", len(results))
	}
}
