package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/config"
	"github.com/abhisek/docquiz/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "docquiz",
	Short: "Generate graded quizzes from documents",
	Long: "docquiz turns extracted document text into multiple-choice quizzes, " +
		"charging one credit per question, and grades submitted answers.",
	SilenceUsage: true,
}

// Execute runs the root command. Cancelling ctx aborts in-flight
// generation without charging credits.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database file (sqlite) or DSN (postgres); overrides DOCQUIZ_DB")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides DOCQUIZ_CONFIG env var)")
	rootCmd.PersistentFlags().StringP("principal", "u", "", "Acting principal (overrides DOCQUIZ_PRINCIPAL env var)")
	rootCmd.PersistentFlags().Bool("metrics", false, "Print metric counters to stderr when the command finishes")

	rootCmd.AddCommand(principalCmd)
	rootCmd.AddCommand(creditsCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config or DOCQUIZ_CONFIG and
// applies the --db flag on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("DOCQUIZ_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database.DSN = db
	}
	return cfg, nil
}

// resolveDSN returns the DSN to open. For sqlite an empty DSN falls back to
// DOCQUIZ_DB and then the default XDG path.
func resolveDSN(cfg config.Config) (string, error) {
	if cfg.Database.Driver != store.DriverSQLite {
		return cfg.Database.DSN, nil
	}
	if p := cfg.Database.DSN; p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// principalFrom returns the acting principal from --principal or
// DOCQUIZ_PRINCIPAL.
func principalFrom(cmd *cobra.Command) (string, error) {
	p, _ := cmd.Flags().GetString("principal")
	if p == "" {
		p = os.Getenv("DOCQUIZ_PRINCIPAL")
	}
	if p == "" {
		return "", fmt.Errorf("no principal: pass --principal or set DOCQUIZ_PRINCIPAL")
	}
	return p, nil
}
