package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/srvscope/srvscope/internal/config"
	"github.com/srvscope/srvscope/internal/errors"
)

// Persistent flags shared by every command.
var (
	configFlag   string
	serverFlag   string
	intervalFlag string
	realtimeFlag bool
)

// rootCmd is the base command; running srvscope with no subcommand
// starts the dashboard, same as `srvscope watch`.
var rootCmd = &cobra.Command{
	Use:   "srvscope",
	Short: "Live telemetry dashboard for a srvscope server",
	Long: `srvscope connects to a telemetry server and shows its metrics live
in the terminal: CPU, memory, temperatures, disk throughput, task queues,
database activity, GC behavior, and the server's own log stream.

Run with no arguments to open the dashboard. Configuration is read from
.srvscope.yaml in the current directory, falling back to
~/.config/srvscope/config.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return watchCommand()
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "server base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&intervalFlag, "interval", "", "snapshot interval (e.g. 10s, 1m; overrides config)")
	rootCmd.PersistentFlags().BoolVar(&realtimeFlag, "realtime", false, "request push updates instead of timed polling")

	rootCmd.AddCommand(completionCmd)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Config returns the --config flag value for commands that resolve
// the config path themselves.
func Config() string {
	return configFlag
}

// loadConfig loads the effective configuration and applies flag
// overrides on top. Flags that were not set leave the file values alone.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return nil, err
	}

	if serverFlag != "" {
		cfg.Server.URL = serverFlag
	}
	if intervalFlag != "" {
		parsed, err := time.ParseDuration(intervalFlag)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Invalid interval: %s", intervalFlag),
				"Use a valid duration like 10s, 30s, or 1m")
		}
		cfg.Interval = parsed
	}
	if rootCmd.PersistentFlags().Changed("realtime") {
		cfg.Realtime = realtimeFlag
	}

	cfg.Clamp()
	return cfg, nil
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for srvscope.

Examples:
  # Bash
  srvscope completion bash > /etc/bash_completion.d/srvscope

  # Zsh
  srvscope completion zsh > "${fpath[1]}/_srvscope"

  # Fish
  srvscope completion fish > ~/.config/fish/completions/srvscope.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrConfig,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}
