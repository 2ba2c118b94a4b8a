package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"triage/internal/models"
)

// taxonomyCmd groups the taxonomy management subcommands.
var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Inspect and replace the category and resolution lists",
}

var taxonomyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current taxonomy",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		fmt.Println("Categories:")
		printEntries(appInstance.Taxonomy.Categories())
		fmt.Println("Resolution types:")
		printEntries(appInstance.Taxonomy.Resolutions())
		return nil
	},
}

var taxonomySetCategoriesCmd = &cobra.Command{
	Use:   "set-categories <file>",
	Short: "Replace the category list from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		entries, err := readEntries(args[0])
		if err != nil {
			return err
		}
		appInstance.Taxonomy.SetCategories(entries)
		if err := appInstance.CategoriesFile.Save(entries); err != nil {
			return err
		}
		fmt.Printf("Replaced categories with %d entr(ies).\n", len(entries))
		return nil
	},
}

var taxonomySetResolutionsCmd = &cobra.Command{
	Use:   "set-resolutions <file>",
	Short: "Replace the resolution-type list from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()

		entries, err := readEntries(args[0])
		if err != nil {
			return err
		}
		appInstance.Taxonomy.SetResolutions(entries)
		if err := appInstance.ResolutionsFile.Save(entries); err != nil {
			return err
		}
		fmt.Printf("Replaced resolution types with %d entr(ies).\n", len(entries))
		return nil
	},
}

func readEntries(path string) ([]models.TaxonomyEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	var entries []models.TaxonomyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s as a JSON list of {name, description}: %w", path, err)
	}
	return entries, nil
}

func printEntries(entries []models.TaxonomyEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Description"})
	table.SetColWidth(70)
	for _, e := range entries {
		table.Append([]string{e.Name, e.Description})
	}
	table.Render()
}

func init() {
	taxonomyCmd.AddCommand(taxonomyShowCmd)
	taxonomyCmd.AddCommand(taxonomySetCategoriesCmd)
	taxonomyCmd.AddCommand(taxonomySetResolutionsCmd)
	rootCmd.AddCommand(taxonomyCmd)
}
