package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netsec-pkg/zkg/internal/orchestrator"
	"github.com/netsec-pkg/zkg/internal/solver"
)

var (
	flagSkipTests bool
	flagForce     bool
	flagLoad      bool
)

func addInstallFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagSkipTests, "skiptests", false, "skip the test_command stage")
	cmd.Flags().BoolVar(&flagForce, "force", false, "also allow skiptests to apply during an upgrade")
	cmd.Flags().BoolVar(&flagLoad, "load", false, "append the package to the loader index on success")
}

func parseRequest(arg string) solver.Request {
	name, constraint, ok := strings.Cut(arg, "@")
	if !ok {
		return solver.Request{Name: arg, Constraint: "*"}
	}
	return solver.Request{Name: name, Constraint: constraint}
}

var installCmd = &cobra.Command{
	Use:   "install NAME[@CONSTRAINT]...",
	Short: "Resolve and install one or more packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requests := make([]solver.Request, len(args))
		for i, a := range args {
			requests[i] = parseRequest(a)
		}
		results, err := eng.Install(cmd.Context(), orchestrator.InstallOptions{
			Requests:  requests,
			SkipTests: flagSkipTests,
			Force:     flagForce,
			Load:      flagLoad,
		})
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("installed %s\n", r.Name)
		}
		return nil
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade NAME...",
	Short: "Re-solve and upgrade already-installed packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := eng.Upgrade(cmd.Context(), args, orchestrator.InstallOptions{
			SkipTests: flagSkipTests,
			Force:     flagForce,
			Load:      flagLoad,
		})
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("upgraded %s\n", r.Name)
		}
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"uninstall"},
	Short:   "Remove an installed package",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.Remove(cmd.Context(), args[0])
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge NAME",
	Short: "Remove an installed package and its backed-up config files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.Purge(cmd.Context(), args[0])
	},
}

var loadCmd = &cobra.Command{
	Use:   "load NAME",
	Short: "Add a package to the loader index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.Load(cmd.Context(), args[0])
	},
}

var unloadCmd = &cobra.Command{
	Use:   "unload NAME",
	Short: "Remove a package from the loader index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.Unload(cmd.Context(), args[0])
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin NAME",
	Short: "Pin an installed package's version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.Pin(cmd.Context(), args[0])
	},
}

var unpinCmd = &cobra.Command{
	Use:   "unpin NAME",
	Short: "Unpin a previously pinned package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.Unpin(cmd.Context(), args[0])
	},
}

var testCmd = &cobra.Command{
	Use:   "test NAME",
	Short: "Run an installed package's test_command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := eng.Test(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		fmt.Print(log)
		return nil
	},
}

func init() {
	addInstallFlags(installCmd)
	addInstallFlags(upgradeCmd)
}
