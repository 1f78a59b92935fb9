package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/srvscope/srvscope/internal/errors"
	"github.com/srvscope/srvscope/internal/httpapi"
)

var restartYesFlag bool

// restartWaitTimeout bounds how long we wait for the server to come
// back after acknowledging the restart request.
const restartWaitTimeout = 60 * time.Second

// restartCmd asks the server to restart itself.
var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the server",
	Long: `Ask the server to restart itself, then wait for it to come back.

Prompts for confirmation unless --yes is given. After the server
acknowledges, the command polls the health endpoint until the server
reports healthy again or the wait times out.

Examples:
  srvscope restart
  srvscope restart --yes
  srvscope restart --server http://10.0.0.5:8765`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return restartCommand()
	},
}

func init() {
	restartCmd.Flags().BoolVarP(&restartYesFlag, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(restartCmd)
}

func restartCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !restartYesFlag {
		var proceed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Restart the server at %s?", cfg.Server.URL)).
					Description("Active connections will be dropped while it comes back up.").
					Value(&proceed),
			),
		)
		if err := form.Run(); err != nil || !proceed {
			fmt.Println("Restart cancelled.")
			return nil
		}
	}

	client := httpapi.NewClient(cfg.Server.URL)

	// Note the boot id before restarting so we can tell the difference
	// between "still the old process" and "back up".
	var oldBoot string
	if info, _, err := client.Health(context.Background()); err == nil {
		oldBoot = info.BootID
	}

	ctx, cancel := context.WithTimeout(context.Background(), httpapi.DefaultTimeout)
	err = client.Restart(ctx)
	cancel()
	if err != nil {
		return err
	}

	fmt.Println("Restart requested, waiting for the server to come back...")

	deadline := time.Now().Add(restartWaitTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(2 * time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		info, rtt, err := client.Health(ctx)
		cancel()
		if err != nil {
			continue
		}
		if oldBoot != "" && info.BootID == oldBoot {
			// Health answered before the process actually went down.
			continue
		}
		if info.BootID != "" {
			fmt.Printf("Server back online (boot %s, %d ms)\n", info.BootID, rtt.Milliseconds())
		} else {
			fmt.Printf("Server back online (%d ms)\n", rtt.Milliseconds())
		}
		return nil
	}

	return errors.New(errors.ErrRestart,
		"Server did not come back within "+restartWaitTimeout.String(),
		"Check the server process and try 'srvscope logs --level ERROR'")
}
