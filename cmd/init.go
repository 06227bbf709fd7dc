package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new declmig project",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat("models.yaml"); err == nil {
			fmt.Println("❌ models.yaml already exists!")
			return
		}

		model := `# Declarative schema model. Run 'declmig generate' after editing.
tables:
  - name: users
    fields:
      - name: id
        type: uuid
        primary-key: true
      - name: email
        type: varchar(255)
        null: false
        unique: true
      - name: created_at
        type: timestamptz
        default:
          sql: now()
    indexes:
      - name: users_email_idx
        fields: [email]
        unique: true
`
		if err := os.WriteFile("models.yaml", []byte(model), 0o644); err != nil {
			fail("Writing models.yaml", err)
		}

		cfgFile := `model: models.yaml
migrations: migrations
`
		if _, err := os.Stat(".declmig.yaml"); os.IsNotExist(err) {
			if err := os.WriteFile(".declmig.yaml", []byte(cfgFile), 0o644); err != nil {
				fail("Writing .declmig.yaml", err)
			}
		}
		if err := os.MkdirAll("migrations", 0o755); err != nil {
			fail("Creating migrations directory", err)
		}

		fmt.Println("✅ Project initialized:")
		fmt.Println("   - models.yaml       (edit your schema here)")
		fmt.Println("   - .declmig.yaml     (project settings)")
		fmt.Println("   - migrations/       (generated history)")
	},
}
