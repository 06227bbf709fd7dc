package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/declmig/declmig/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the model file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig()
		if err != nil {
			fail("Loading config", err)
		}
		model, err := loadModel(cfg)
		if err != nil {
			fail("Loading model", err)
		}
		if err := validator.ValidateModel(model); err != nil {
			var verr *validator.Error
			if errors.As(err, &verr) {
				color.Red("❌ Model is invalid (%d issue(s)):", len(verr.Issues))
				fmt.Println(verr.Summary())
			} else {
				color.Red("❌ Model is invalid: %v", err)
			}
			os.Exit(1)
		}
		color.Green("✅ Model is valid (%d table(s)).", len(model.Tables))
	},
}
