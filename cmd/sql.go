package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/declmig/declmig/generator"
	"github.com/declmig/declmig/migrations"
)

var sqlDown bool

func init() {
	sqlCmd.Flags().BoolVar(&sqlDown, "down", false, "Render the rollback SQL instead")
}

var sqlCmd = &cobra.Command{
	Use:   "sql [migration-file]",
	Short: "Render a migration file as SQL",
	Long: `Render the given migration file (or the latest one) as Postgres DDL.

Examples:
  declmig sql                       # Up SQL for the latest migration
  declmig sql 0003_add_column_users_email.json
  declmig sql --down                # Rollback SQL for the latest migration
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig()
		if err != nil {
			fail("Loading config", err)
		}

		var path string
		if len(args) == 1 {
			path = filepath.Join(cfg.MigrationsDir, args[0])
		} else {
			files, err := migrations.List(cfg.MigrationsDir)
			if err != nil {
				fail("Reading history", err)
			}
			if len(files) == 0 {
				fail("Rendering SQL", fmt.Errorf("no migrations yet"))
			}
			path = files[len(files)-1].Path
		}

		plan, err := migrations.Read(path)
		if err != nil {
			fail("Reading migration", err)
		}

		stmts, err := generator.UpSQL(plan)
		if sqlDown {
			stmts, err = generator.DownSQL(plan)
		}
		if err != nil {
			fail("Rendering SQL", err)
		}
		for _, stmt := range stmts {
			fmt.Println(stmt)
		}
	},
}
