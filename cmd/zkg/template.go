package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netsec-pkg/zkg/internal/orchestrator"
)

var (
	flagTemplateURL      string
	flagTemplateFeatures []string
	flagTemplateVars     map[string]string
)

var createCmd = &cobra.Command{
	Use:   "create OUTPUT_DIR",
	Short: "Scaffold a new package from a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := eng.Create(cmd.Context(), orchestrator.CreateOptions{
			TemplateURL:      flagTemplateURL,
			OutputDir:        args[0],
			SelectedFeatures: flagTemplateFeatures,
			CLIOverrides:     flagTemplateVars,
			Force:            flagForce,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created at commit %s\n", result.CommitRef)
		return nil
	},
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Template-related commands",
}

var templateInfoCmd = &cobra.Command{
	Use:   "info TEMPLATE_URL",
	Short: "Show a template's declared parameters and features",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := eng.TemplateInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("api_version: %s\n", ctrl.APIVersion)
		for _, p := range ctrl.Parameters {
			fmt.Printf("parameter: %s (default %q) - %s\n", p.Name, p.Default, p.Description)
		}
		for _, f := range ctrl.Features {
			fmt.Printf("feature: %s - %s\n", f.Name, f.Description)
		}
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&flagTemplateURL, "template", "", "template repository URL (defaults to the configured default template)")
	createCmd.Flags().StringSliceVar(&flagTemplateFeatures, "feature", nil, "select an additive template feature (repeatable)")
	createCmd.Flags().StringToStringVar(&flagTemplateVars, "var", nil, "override a template parameter value (key=value, repeatable)")
	createCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite an existing output directory")

	templateCmd.AddCommand(templateInfoCmd)
}
