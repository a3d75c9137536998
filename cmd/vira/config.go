package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/peorobertsson/vira/internal/config"
	"github.com/peorobertsson/vira/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration settings",
	Long: `Show and create vira configuration.

Settings are read from, highest priority first: command line flags,
VIRA_* environment variables, and config.yaml. The config file is the first
of $VIRA_CONFIG, .vira/config.yaml in the working directory or a parent, the
user config directory (vira/config.yaml) and ~/.vira/config.yaml.

Examples:
  vira config init
  vira config get fields.feature-name
  VIRA_EPIC_LINK_STRATEGY=field vira config list`,
}

var configInitOverwrite bool

var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write a config file with the current settings",
	Long: `Write a config.yaml holding the current settings, including the URL,
user and token given as flags. The password is never written.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			p, err := config.DefaultConfigPath()
			if err != nil {
				FatalError("%v", err)
			}
			path = p
		}

		s := sessionFlags()
		s.URL = firstNonEmpty(s.URL, config.GetString("url"))
		s.User = firstNonEmpty(s.User, config.GetString("user"))
		s.Token = firstNonEmpty(s.Token, config.GetString("token"))

		if err := config.WriteFile(path, config.StarterFile(s), configInitOverwrite); err != nil {
			FatalErrorWithHint(err.Error(), "use --overwrite to replace an existing file")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", ui.RenderPassIcon(), path)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configValue(strings.ToLower(args[0])))
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration with the source of each value",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if f := config.ConfigFileUsed(); f != "" {
			fmt.Fprintf(out, "Config file: %s\n", f)
		} else {
			fmt.Fprintln(out, "Config file: "+ui.RenderMuted("(none)"))
		}
		fmt.Fprintln(out)
		for _, key := range config.Keys() {
			fmt.Fprintf(out, "  %s = %s %s\n", key, configValue(key),
				ui.RenderMuted("("+string(config.GetValueSource(key))+")"))
		}
	},
}

// configValue formats the value of key for display, hiding secrets.
func configValue(key string) string {
	if config.IsSecretKey(key) {
		if config.GetString(key) == "" {
			return ""
		}
		return "********"
	}
	switch val := config.Get(key).(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(val, ",")
	case []interface{}:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitOverwrite, "overwrite", false, "Replace an existing config file")
	configCmd.AddCommand(configInitCmd, configGetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
