package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srvscope/srvscope/internal/errors"
	"github.com/srvscope/srvscope/internal/monitor"
)

// watchCmd starts the live dashboard TUI.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live telemetry dashboard",
	Long: `Start the interactive dashboard showing live server telemetry.

Sections (metrics, disk, queues, database, runtime, system, websocket,
client) can be hidden via the view block in the config file.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  l           Toggle the log viewer
  r           Force refresh
  t           Toggle realtime push updates
  c           Force a heap cleanup on this client
  R           Restart the server (asks for confirmation)
  ?           Show help

Examples:
  srvscope watch
  srvscope watch --server http://10.0.0.5:8765
  srvscope watch --interval 10s --realtime`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watchCommand() error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New(errors.ErrConfig,
			"Standard output is not a terminal",
			"The dashboard needs an interactive terminal. Use 'srvscope logs' for scriptable output.")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return monitor.Run(cfg)
}
