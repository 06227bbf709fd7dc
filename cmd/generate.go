package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/declmig/declmig/diff"
	"github.com/declmig/declmig/generator"
	"github.com/declmig/declmig/migrations"
)

var dryRunGenerate bool

func init() {
	generateCmd.Flags().BoolVar(&dryRunGenerate, "dry-run", false, "Preview the migration without writing a file")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a migration from the model",
	Long: `Diff the model against the recorded migration history and write the
resulting action list as a new numbered migration file.

Examples:
  declmig generate                  # Write the next migration
  declmig generate --dry-run        # Preview actions and SQL only
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig()
		if err != nil {
			fail("Loading config", err)
		}
		model, err := loadModel(cfg)
		if err != nil {
			fail("Loading model", err)
		}
		_, current, err := replayHistory(cfg)
		if err != nil {
			fail("Reading history", err)
		}

		plan, err := diff.Compute(current, model)
		if err != nil {
			fail("Computing diff", err)
		}
		if len(plan) == 0 {
			fmt.Println("✅ No changes detected.")
			return
		}

		if dryRunGenerate {
			fmt.Println("🗒  Planned actions:")
			printActions(plan)
			upSQL, err := generator.UpSQL(plan)
			if err != nil {
				fail("Rendering SQL", err)
			}
			downSQL, err := generator.DownSQL(plan)
			if err != nil {
				fail("Rendering rollback SQL", err)
			}
			fmt.Println("\n-- Up --")
			for _, stmt := range upSQL {
				fmt.Println(stmt)
			}
			fmt.Println("\n-- Down --")
			for _, stmt := range downSQL {
				fmt.Println(stmt)
			}
			fmt.Println("\n(Dry run only. No files were written.)")
			return
		}

		name, err := migrations.Write(cfg.MigrationsDir, plan)
		if err != nil {
			fail("Writing migration", err)
		}
		fmt.Println("✅ Migration generated:", name)
		printActions(plan)
	},
}
