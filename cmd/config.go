package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/marcus/checkin/internal/output"
	"github.com/marcus/checkin/internal/suggest"
	"github.com/marcus/checkin/internal/syncconfig"
	"github.com/spf13/cobra"
)

func isValidConfigKey(key string) bool {
	return slices.Contains(syncconfig.Keys, key)
}

// effectiveSetting returns the value in use for key after env and config
// file resolution.
func effectiveSetting(key string) (string, error) {
	switch key {
	case "data_dir":
		return syncconfig.GetDataDir()
	case "fetch.timeout":
		return syncconfig.GetFetchTimeout().String(), nil
	case "fetch.user_agent":
		return syncconfig.GetUserAgent(), nil
	case "sync.concurrency":
		return strconv.Itoa(syncconfig.GetSyncConcurrency()), nil
	case "sync.interval":
		return syncconfig.GetSyncInterval().String(), nil
	case "log.level":
		return syncconfig.GetLogLevel(), nil
	case "log.format":
		return syncconfig.GetLogFormat(), nil
	case "log.file":
		return syncconfig.GetLogFile(), nil
	case "serve.addr":
		return syncconfig.GetServeAddr(), nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage checkin configuration",
	Long:    `Settings live in ~/.config/checkin/config.json. Environment variables (CHECKIN_*) and .env take precedence.`,
	GroupID: "system",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]

		if !isValidConfigKey(key) {
			output.Error("unknown config key: %s%s", key, suggest.Hint(key, syncconfig.Keys))
			fmt.Println("Valid keys:", strings.Join(syncconfig.Keys, ", "))
			return fmt.Errorf("unknown config key: %s", key)
		}

		cfg, err := syncconfig.LoadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		if err := cfg.Set(key, val); err != nil {
			output.Error("%v", err)
			return err
		}
		if err := syncconfig.SaveConfig(cfg); err != nil {
			output.Error("save config: %v", err)
			return err
		}

		output.Success("set %s = %s", key, val)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get the value in effect for a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		if !isValidConfigKey(key) {
			output.Error("unknown config key: %s%s", key, suggest.Hint(key, syncconfig.Keys))
			fmt.Println("Valid keys:", strings.Join(syncconfig.Keys, ", "))
			return fmt.Errorf("unknown config key: %s", key)
		}

		val, err := effectiveSetting(key)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		fmt.Println(val)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config values",
	Long:  `Prints the values in effect. With --file, prints config.json as stored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if raw, _ := cmd.Flags().GetBool("file"); raw {
			cfg, err := syncconfig.LoadConfig()
			if err != nil {
				output.Error("load config: %v", err)
				return err
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				output.Error("marshal config: %v", err)
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		for _, key := range syncconfig.Keys {
			val, err := effectiveSetting(key)
			if err != nil {
				val = "error: " + err.Error()
			}
			fmt.Printf("%-18s %s\n", key, val)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd, configGetCmd, configListCmd)
	configListCmd.Flags().Bool("file", false, "Show config.json as stored")
}
