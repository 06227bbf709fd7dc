package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/declmig/declmig/database"
	"github.com/declmig/declmig/introspect"
	"github.com/declmig/declmig/schema"
)

var statusCheckDB bool

func init() {
	statusCmd.Flags().BoolVar(&statusCheckDB, "database", false, "Compare the recorded schema against the live database")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema reconstructed from the migration history",
	Long: `Replay the migration history and print the resulting schema. With
--database, also introspect the live database and report drift between the
recorded history and what actually exists.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig()
		if err != nil {
			fail("Loading config", err)
		}
		files, current, err := replayHistory(cfg)
		if err != nil {
			fail("Reading history", err)
		}

		fmt.Printf("📜 %d migration(s) on record\n", len(files))
		if len(current) == 0 {
			fmt.Println("   (empty schema)")
		}
		for _, table := range current.TableNames() {
			ts := current[table]
			fmt.Printf("   - %s: %d column(s), %d index(es), %d type(s)\n",
				table, len(ts.Fields), len(ts.Indexes), len(ts.Types))
		}

		if !statusCheckDB {
			return
		}

		ctx := context.Background()
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fail("Connecting to database", err)
		}
		defer pool.Close()

		live, err := introspect.Read(ctx, pool)
		if err != nil {
			fail("Introspecting database", err)
		}
		reportDrift(current, live)
	},
}

// reportDrift compares the history-derived schema against the live one by
// presence and naming. Type payloads are not compared: Postgres does not
// report types in the model's vocabulary.
func reportDrift(recorded, live schema.Schema) {
	var drift bool
	for _, table := range recorded.TableNames() {
		ts := recorded[table]
		lts, exists := live[table]
		if !exists {
			color.Red("❌ table %q is recorded but missing from the database", table)
			drift = true
			continue
		}
		for _, field := range sortedNames(ts.Fields) {
			if _, ok := lts.Fields[field]; !ok {
				color.Red("❌ column %q.%q is recorded but missing from the database", table, field)
				drift = true
			}
		}
		for _, index := range sortedNames(ts.Indexes) {
			if _, ok := lts.Indexes[index]; !ok {
				color.Red("❌ index %q.%q is recorded but missing from the database", table, index)
				drift = true
			}
		}
	}
	for _, table := range live.TableNames() {
		if _, exists := recorded[table]; !exists {
			color.Yellow("🕒 table %q exists in the database but not in the history", table)
			drift = true
		}
	}
	if !drift {
		color.Green("✅ Database matches the recorded history.")
	}
}

func sortedNames(m map[string]schema.Options) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
