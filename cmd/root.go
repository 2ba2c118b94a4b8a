package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"triage/internal/app"
	"triage/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Triage CLI and API server",
	Long: `Triage categorizes customer-support cases into a configurable taxonomy
using an LLM backend, either from the command line or as an HTTP API.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	// PersistentPreRunE runs before any subcommand's RunE
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		appInstance, err := app.NewApp(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		ctx := context.WithValue(cmd.Context(), appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Define a custom type for the context key to avoid collisions.
type contextKey string

const appKey contextKey = "app"

// GetAppFromContext retrieves the app instance stored by the root
// command.
func GetAppFromContext(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application instance not found in context")
	}
	return appInstance, nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check store connectivity and list configured model ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return err
		}
		defer appInstance.Close()

		fmt.Println("Checking store connectivity...")
		if err := appInstance.Store.Ping(ctx); err != nil {
			color.Red("Store ping failed: %v", err)
			return err
		}
		color.Green("Store connection successful.")

		ids := appInstance.Registry.ModelIDs()
		sort.Strings(ids)
		fmt.Println("Configured model ids:")
		for _, id := range ids {
			fmt.Printf("  - %s\n", id)
		}
		fmt.Printf("Taxonomy: %d categories, %d resolution types\n",
			len(appInstance.Taxonomy.Categories()), len(appInstance.Taxonomy.Resolutions()))
		return nil
	},
}
