package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/declmig/declmig/diff"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the pending actions without writing anything",
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
			color.Green("✅ Model and history are in sync.")
			return
		}
		color.Yellow("🕒 %d pending action(s):", len(plan))
		printActions(plan)
		fmt.Println("\nRun 'declmig generate' to write the migration.")
	},
}
