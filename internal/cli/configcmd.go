package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srvscope/srvscope/internal/config"
)

// configCmd groups the settings subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write settings",
	Long: `Read and write srvscope settings.

Keys are dotted paths into the config file, for example:
  server.url
  interval
  thresholds.cpu_warn
  logs.badge_level
  view.queues

Examples:
  srvscope config get server.url
  srvscope config set interval 10s
  srvscope config set view.queues false
  srvscope config path`,
}

// configGetCmd prints one setting.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(Config())
		if err != nil {
			return err
		}
		value, err := config.GetValue(cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

// configSetCmd writes one setting, preserving file layout and comments.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configWritePath()
		if err != nil {
			return err
		}
		if err := config.SetValue(path, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Set %s = %s in %s\n", args[0], args[1], path)
		return nil
	},
}

// configPathCmd shows which config file is in effect.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Find(Config())
		if err != nil {
			return err
		}
		if path == "" {
			global, err := config.GlobalConfigPath()
			if err != nil {
				return err
			}
			fmt.Printf("No config file found; 'config set' will write %s\n", global)
			return nil
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configWritePath resolves where 'config set' should write: the config
// file already in use, else the global one (created on demand).
func configWritePath() (string, error) {
	path, err := config.Find(Config())
	if err != nil {
		return "", err
	}
	if path != "" {
		return path, nil
	}
	return config.GlobalConfigPath()
}
