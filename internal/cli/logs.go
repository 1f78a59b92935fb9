package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/srvscope/srvscope/internal/errors"
	"github.com/srvscope/srvscope/internal/httpapi"
	"github.com/srvscope/srvscope/internal/logview"
)

var (
	logsLevelFlag    string
	logsGrepFlag     string
	logsLimitFlag    int
	logsFollowFlag   bool
	logsDownloadFlag string
)

// followPollInterval is how often --follow re-polls the server.
const followPollInterval = 2 * time.Second

// logsCmd fetches server logs without opening the dashboard.
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Fetch server logs",
	Long: `Fetch log lines from the server and print them to stdout.

By default the most recent lines at or above the configured badge level
are printed once. Use --follow to keep polling for new lines, or
--download to write the fetch to a file instead of the terminal.

Examples:
  srvscope logs
  srvscope logs --level ERROR --limit 200
  srvscope logs --grep "timeout" --follow
  srvscope logs --download server.log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return logsCommand()
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsLevelFlag, "level", "", "minimum level (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	logsCmd.Flags().StringVar(&logsGrepFlag, "grep", "", "only lines whose message contains this text")
	logsCmd.Flags().IntVar(&logsLimitFlag, "limit", 0, "maximum lines to fetch (default from config)")
	logsCmd.Flags().BoolVarP(&logsFollowFlag, "follow", "f", false, "keep polling for new lines until interrupted")
	logsCmd.Flags().StringVar(&logsDownloadFlag, "download", "", "write fetched lines to this file instead of stdout")

	rootCmd.AddCommand(logsCmd)
}

func logsCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := strings.ToUpper(logsLevelFlag)
	if level == "" {
		level = cfg.Logs.BadgeLevel
	}
	if !logview.ValidLevel(level) {
		return errors.New(errors.ErrConfig,
			"Unknown log level: "+logsLevelFlag,
			"Use one of DEBUG, INFO, WARNING, ERROR, CRITICAL")
	}

	limit := logsLimitFlag
	if limit <= 0 {
		limit = cfg.Logs.FetchLimit
	}

	client := httpapi.NewClient(cfg.Server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	records, err := client.Logs(ctx, level, logsGrepFlag, limit)
	cancel()
	if err != nil {
		return err
	}

	if logsDownloadFlag != "" {
		return writeLogFile(logsDownloadFlag, records)
	}

	highlighter := logview.NewHighlighter(logview.HighlightOptions{
		HTTP:         cfg.Logs.Highlight.HTTP,
		UUID:         cfg.Logs.Highlight.UUID,
		Errors:       cfg.Logs.Highlight.Errors,
		ErrorPattern: cfg.Logs.Highlight.ErrorPattern,
	})

	for _, rec := range records {
		fmt.Println(renderLogLine(rec, highlighter))
	}

	if !logsFollowFlag {
		return nil
	}

	return followLogs(client, level, highlighter, records)
}

// followLogs polls for new lines until the process is interrupted.
// Records already printed are skipped by timestamp; ties on the same
// millisecond are resolved by message identity.
func followLogs(client *httpapi.Client, level string, highlighter *logview.Highlighter, seen []logview.Record) error {
	lastTS := int64(0)
	lastMsgs := map[string]struct{}{}
	note := func(rec logview.Record) {
		if rec.TSMillis > lastTS {
			lastTS = rec.TSMillis
			lastMsgs = map[string]struct{}{}
		}
		if rec.TSMillis == lastTS {
			lastMsgs[rec.Logger+"\x00"+rec.Message] = struct{}{}
		}
	}
	for _, rec := range seen {
		note(rec)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), followPollInterval)
			records, err := client.Logs(ctx, level, logsGrepFlag, 200)
			cancel()
			if err != nil {
				// Transient fetch errors are expected while the server
				// restarts; keep polling.
				continue
			}
			for _, rec := range records {
				if rec.TSMillis < lastTS {
					continue
				}
				if rec.TSMillis == lastTS {
					if _, ok := lastMsgs[rec.Logger+"\x00"+rec.Message]; ok {
						continue
					}
				}
				fmt.Println(renderLogLine(rec, highlighter))
				note(rec)
			}
		}
	}
}

// renderLogLine formats one record for terminal output: dim timestamp,
// colored level tag, logger name, highlighted message.
func renderLogLine(rec logview.Record, highlighter *logview.Highlighter) string {
	muted := lipgloss.NewStyle().Faint(true)
	ts := rec.Time().UTC().Format("15:04:05.000")
	level := fmt.Sprintf("%-8s", rec.Level)
	return fmt.Sprintf("%s %s %s %s",
		muted.Render(ts),
		logview.LevelStyle(rec.Level).Render(level),
		muted.Render(rec.Logger),
		highlighter.Apply(rec.Message))
}

// writeLogFile saves records as plain text, one line per record.
func writeLogFile(path string, records []logview.Record) error {
	if len(records) == 0 {
		return errors.New(errors.ErrHTTP,
			"No log data available",
			"The server returned no lines for this filter")
	}
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(rec.Line())
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot write log file: "+path,
			"Check the path and directory permissions")
	}
	fmt.Printf("Wrote %d lines to %s\n", len(records), path)
	return nil
}
