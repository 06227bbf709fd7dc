package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyDetailed bool

func init() {
	historyCmd.Flags().BoolVar(&historyDetailed, "detailed", false, "List every action in each migration")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the migration files and their actions",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig()
		if err != nil {
			fail("Loading config", err)
		}
		files, _, err := replayHistory(cfg)
		if err != nil {
			fail("Reading history", err)
		}
		if len(files) == 0 {
			fmt.Println("🕒 No migrations yet.")
			return
		}
		for _, f := range files {
			fmt.Printf("📜 %s (%d action(s))\n", f.Name, len(f.Actions))
			if historyDetailed {
				printActions(f.Actions)
			}
		}
	},
}
