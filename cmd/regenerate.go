package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/declmig/declmig/diff"
	"github.com/declmig/declmig/migrations"
	"github.com/declmig/declmig/replay"
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Collapse the non-base history into one fresh migration",
	Long: `Replay only the base (first) migration, diff that schema against the
model, prune every later migration file, and write the diff as a single
consolidated migration. The base migration is never touched.

Only use this while the pruned migrations have not been applied anywhere.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig()
		if err != nil {
			fail("Loading config", err)
		}
		model, err := loadModel(cfg)
		if err != nil {
			fail("Loading model", err)
		}
		files, _, err := migrations.ReadAll(cfg.MigrationsDir)
		if err != nil {
			fail("Reading history", err)
		}
		if len(files) == 0 {
			fail("Regenerating", fmt.Errorf("no migrations to regenerate"))
		}

		base, err := replay.Replay(files[0].Actions)
		if err != nil {
			fail("Replaying base migration", err)
		}
		plan, err := diff.Compute(base, model)
		if err != nil {
			fail("Computing diff", err)
		}

		name, err := migrations.Regenerate(cfg.MigrationsDir, plan)
		if err != nil {
			fail("Regenerating", err)
		}
		if name == "" {
			fmt.Printf("✅ Pruned %d migration(s); base already matches the model.\n", len(files)-1)
			return
		}
		fmt.Printf("✅ Pruned %d migration(s), regenerated as %s\n", len(files)-1, name)
		printActions(plan)
	},
}
