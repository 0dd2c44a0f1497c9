// Command gatectl administers a NewsletterGate database from the shell:
// migrations, admin users, cache maintenance and provider lookups.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"newsletter-gate/internal/app"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/config"
	"newsletter-gate/internal/handlers"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "gatectl",
		Short:         "gatectl - NewsletterGate administration",
		Version:       handlers.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			logging.InitGlobalLogger()
		},
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createUserCmd())
	rootCmd.AddCommand(purgeCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(listsCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads the environment configuration and opens the database.
// Only the storage settings are required here, so Validate is not called.
func openApp() (*app.App, error) {
	return app.NewForCLI(config.Load())
}
