package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justchokingaround/vidsource/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		settings := vcfg.AllSettings()
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), settings)
		}
		return writeYAML(cmd.OutOrStdout(), settings)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Display the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		if used := vcfg.ConfigFileUsed(); used != "" {
			fmt.Fprintln(cmd.OutOrStdout(), used)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (not created yet, run 'vidsource config init')\n", config.DefaultConfigPath())
	},
}

func init() {
	configShowCmd.Flags().StringP("output", "o", formatYAML, "output format (json, yaml)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}
