package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/netsec-pkg/zkg/internal/capability"
	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/orchestrator"
	"github.com/netsec-pkg/zkg/internal/pipeline"
	"github.com/netsec-pkg/zkg/internal/source"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkglog"
)

var (
	flagVerbose           bool
	flagStateDir          string
	flagScriptDir         string
	flagPluginDir         string
	flagBinDir            string
	flagPlatformVersion   string
	flagManagerVersion    string
	flagCapabilityCommand string

	logger  *slog.Logger
	eng     *orchestrator.Engine
	userCfg *metadata.Config
)

var rootCmd = &cobra.Command{
	Use:   "zkg",
	Short: "Package manager for zkg-style analysis platform packages",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = zkglog.New(os.Stderr, flagVerbose)

		paths, err := zkgconfig.DefaultPaths()
		if err != nil {
			return fmt.Errorf("resolving default paths: %w", err)
		}
		if flagStateDir != "" {
			paths.StateDir = flagStateDir
		}
		if flagScriptDir != "" {
			paths.ScriptDir = flagScriptDir
		}
		if flagPluginDir != "" {
			paths.PluginDir = flagPluginDir
		}
		if flagBinDir != "" {
			paths.BinDir = flagBinDir
		}

		cfgPath := filepath.Join(filepath.Dir(paths.StateDir), zkgconfig.UserConfigFileName)
		userCfg, err = metadata.LoadConfig(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if v, ok := userCfg.Paths["script_dir"]; ok && flagScriptDir == "" && os.Getenv(zkgconfig.EnvScriptDir) == "" {
			paths.ScriptDir = v
		}
		if v, ok := userCfg.Paths["plugin_dir"]; ok && flagPluginDir == "" && os.Getenv(zkgconfig.EnvPluginDir) == "" {
			paths.PluginDir = v
		}
		if v, ok := userCfg.Paths["bin_dir"]; ok && flagBinDir == "" && os.Getenv(zkgconfig.EnvBinDir) == "" {
			paths.BinDir = v
		}

		var sources []source.Source
		for name, url := range userCfg.Sources {
			sources = append(sources, source.Source{
				Name:      name,
				URL:       url,
				ClonePath: filepath.Join(paths.StateDir, zkgconfig.CloneSourceDirName, name),
			})
		}

		var caps capability.Discoverer
		if flagCapabilityCommand != "" {
			caps = capability.CommandDiscoverer{Command: flagCapabilityCommand}
		}

		eng = orchestrator.New(orchestrator.Config{
			StateDir:        paths.StateDir,
			Paths:           paths,
			Driver:          vcs.GitDriver{},
			Runner:          &pipeline.ExecRunner{},
			Capabilities:    caps,
			Sources:         sources,
			DefaultTemplate: zkgconfig.DefaultTemplateURLFromEnv(),
			PlatformVersion: flagPlatformVersion,
			ManagerVersion:  firstNonEmpty(flagManagerVersion, version),
			Logger:          logger,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", "", "override the state directory")
	rootCmd.PersistentFlags().StringVar(&flagScriptDir, "script-dir", "", "override the script stage directory")
	rootCmd.PersistentFlags().StringVar(&flagPluginDir, "plugin-dir", "", "override the plugin stage directory")
	rootCmd.PersistentFlags().StringVar(&flagBinDir, "bin-dir", "", "override the bin stage directory")
	rootCmd.PersistentFlags().StringVar(&flagPlatformVersion, "platform-version", "", "the running platform version, for depends constraint checks")
	rootCmd.PersistentFlags().StringVar(&flagManagerVersion, "manager-version", "", "the running manager version, for depends constraint checks")
	rootCmd.PersistentFlags().StringVar(&flagCapabilityCommand, "capability-command", "", "command to query for built-in capabilities (NAME=VERSION lines)")

	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(listCmd, searchCmd, infoCmd, envCmd, configCmd, autoconfigCmd)
	rootCmd.AddCommand(installCmd, removeCmd, purgeCmd, upgradeCmd)
	rootCmd.AddCommand(loadCmd, unloadCmd, pinCmd, unpinCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(bundleCmd, unbundleCmd)
	rootCmd.AddCommand(createCmd, templateCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("zkg %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	},
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
