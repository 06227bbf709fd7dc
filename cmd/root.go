package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/declmig/declmig/actions"
	"github.com/declmig/declmig/config"
	"github.com/declmig/declmig/loader"
	"github.com/declmig/declmig/migrations"
	"github.com/declmig/declmig/replay"
	"github.com/declmig/declmig/schema"
)

var (
	modelFile     string
	migrationsDir string
)

var rootCmd = &cobra.Command{
	Use:   "declmig",
	Short: "Schema migration generator for declarative models",
	Long: `declmig diffs a declarative YAML model against the recorded migration
history and generates the actions (and SQL) needed to close the gap.

Examples:

  declmig init
  declmig generate
  declmig plan
  declmig status
`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modelFile, "model", "f", "", "Model YAML file (default from .declmig.yaml)")
	rootCmd.PersistentFlags().StringVarP(&migrationsDir, "migrations", "d", "", "Migrations directory (default from .declmig.yaml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(regenerateCmd)
	rootCmd.AddCommand(sqlCmd)
}

// resolveConfig merges the config file with command-line overrides.
func resolveConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if modelFile != "" {
		cfg.ModelFile = modelFile
	}
	if migrationsDir != "" {
		cfg.MigrationsDir = migrationsDir
	}
	return cfg, nil
}

// loadModel reads the declarative model from the configured file.
func loadModel(cfg config.Config) (schema.Model, error) {
	m, err := loader.Load(cfg.ModelFile)
	if err != nil {
		return schema.Model{}, fmt.Errorf("loading %s: %w", cfg.ModelFile, err)
	}
	return m, nil
}

// replayHistory reconstructs the current schema from the migration files.
func replayHistory(cfg config.Config) ([]migrations.File, schema.Schema, error) {
	files, flat, err := migrations.ReadAll(cfg.MigrationsDir)
	if err != nil {
		return nil, nil, err
	}
	s, err := replay.Replay(flat)
	if err != nil {
		return nil, nil, fmt.Errorf("replaying migration history: %w", err)
	}
	return files, s, nil
}

func printActions(plan []actions.Action) {
	for _, a := range plan {
		fmt.Println("   -", a)
	}
}

func fail(context string, err error) {
	fmt.Printf("❌ %s: %v\n", context, err)
	os.Exit(1)
}
