package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netsec-pkg/zkg/internal/manifest"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh every configured source's index",
	RunE: func(cmd *cobra.Command, args []string) error {
		return eng.Refresh(cmd.Context())
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := eng.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s (%s) [%s]\n", e.Canonical, e.VersionString, statusesString(e.Statuses))
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search configured sources for packages matching QUERY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := eng.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%s/%s\n", r.Source, r.Canonical)
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info NAME",
	Short: "Show everything known about a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := eng.Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if info.Installed != nil {
			fmt.Printf("canonical: %s\nversion: %s\nstatuses: %s\n",
				info.Installed.Canonical, info.Installed.VersionString, statusesString(info.Installed.Statuses))
		}
		if info.Metadata != nil {
			fmt.Printf("description: %s\ntags: %v\ndepends: %v\nsuggests: %v\n",
				info.Metadata.Description, info.Metadata.Tags, info.Metadata.Depends, info.Metadata.Suggests)
		}
		return nil
	},
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the resolved filesystem layout as KEY=VALUE lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := eng.Env(cmd.Context())
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s=%s\n", k, env[k])
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the current user configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := eng.Config()
		if err != nil {
			return err
		}
		for k, v := range cfg.Sources {
			fmt.Printf("sources.%s=%s\n", k, v)
		}
		for k, v := range cfg.Paths {
			fmt.Printf("paths.%s=%s\n", k, v)
		}
		return nil
	},
}

var autoconfigCmd = &cobra.Command{
	Use:   "autoconfig",
	Short: "Query the platform's configuration tool and write the user config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := eng.Autoconfig(cmd.Context())
		return err
	},
}

func statusesString(statuses []manifest.Status) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
