package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netsec-pkg/zkg/internal/orchestrator"
)

var flagBundleManifest []string

var bundleCmd = &cobra.Command{
	Use:   "bundle OUTPUT.tar.gz [NAME...]",
	Short: "Bundle installed packages into a self-contained archive",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.Bundle(cmd.Context(), args[1:], flagBundleManifest, args[0])
	},
}

var unbundleCmd = &cobra.Command{
	Use:   "unbundle ARCHIVE.tar.gz",
	Short: "Install every package contained in a bundle archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, warnings, err := eng.Unbundle(cmd.Context(), args[0], orchestrator.InstallOptions{
			SkipTests: flagSkipTests,
			Force:     flagForce,
			Load:      flagLoad,
		})
		for _, w := range warnings {
			fmt.Println("warning:", w.String())
		}
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("installed %s\n", r.Name)
		}
		return nil
	},
}

func init() {
	addInstallFlags(unbundleCmd)
	bundleCmd.Flags().StringSliceVar(&flagBundleManifest, "manifest", nil, "only clone these packages fresh; reuse existing clones for the rest")
}
