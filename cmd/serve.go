package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/manav03panchal/chime/internal/daemon"
)

// Serve command flags.
var (
	serveLogsFlagTail   int
	serveLogsFlagFollow bool
)

// serveCmd runs the scheduling authority in the foreground.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and push hub",
	Long: `Run the chime scheduling authority: a once-a-minute due check that pushes
reminder events to every connected listener, plus a health endpoint.

serve holds the database lock while it runs. Other commands that change
reminders must be run while it is stopped, or through a listener.

Examples:
  chime serve                # Run in the foreground
  chime serve start          # Run in the background
  chime serve status
  chime serve stop
  chime serve logs -n 50`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// serveStartCmd starts serve in the background.
var serveStartCmd = &cobra.Command{
	Use:         "start",
	Short:       "Start serve in the background",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationDatabase: "none"},
	RunE:        runServeStart,
}

// serveStopCmd stops the background process.
var serveStopCmd = &cobra.Command{
	Use:         "stop",
	Short:       "Stop the background serve process",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationDatabase: "none"},
	RunE:        runServeStop,
}

// serveStatusCmd shows whether serve is running.
var serveStatusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show serve status",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationDatabase: "none"},
	RunE:        runServeStatus,
}

// serveLogsCmd shows the background log.
var serveLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the serve log",
	Long: `View the log written by the background serve process.

Examples:
  chime serve logs
  chime serve logs --tail 50
  chime serve logs --follow`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationDatabase: "none"},
	RunE:        runServeLogs,
}

func init() {
	serveLogsCmd.Flags().IntVarP(&serveLogsFlagTail, "tail", "n", 20,
		"Number of lines to show")
	serveLogsCmd.Flags().BoolVar(&serveLogsFlagFollow, "follow", false,
		"Follow log output (like tail -f)")

	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveLogsCmd)

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	srv := daemon.NewServer(ctx, Version)
	if !ctx.IsJSON() {
		ctx.CLIFormatter().Muted(fmt.Sprintf("chime serve listening on %s", ctx.Config.Delivery.Listen))
	}
	return srv.Run(cmd.Context())
}

func runServeStart(cmd *cobra.Command, args []string) error {
	var extra []string
	if flagConfig != "" {
		extra = append(extra, "--config", flagConfig)
	}
	if flagDebug {
		extra = append(extra, "--debug")
	}

	pid, err := daemon.StartBackground(extra...)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"status": "started",
			"pid":    pid,
		})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("chime serve started (PID: %d)", pid))
	ctx.CLIFormatter().Muted("Log: " + daemon.GetLogPath())
	return nil
}

func runServeStop(cmd *cobra.Command, args []string) error {
	status := daemon.GetStatus()
	if !status.Running {
		if ctx.IsJSON() {
			return ctx.Formatter.JSON(map[string]interface{}{"status": "not_running"})
		}
		ctx.CLIFormatter().Muted("chime serve is not running")
		return nil
	}

	if err := daemon.Stop(); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"status": "stopped",
			"pid":    status.PID,
		})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("chime serve stopped (was PID: %d)", status.PID))
	return nil
}

func runServeStatus(cmd *cobra.Command, args []string) error {
	status := daemon.GetStatus()
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(status)
	}

	c := ctx.CLIFormatter()
	c.Title("chime serve")
	if !status.Running {
		c.Printf("  Status:    stopped\n")
		c.Println("")
		c.Muted("Start with: chime serve start")
		return nil
	}
	c.Printf("  Status:    running\n")
	c.Printf("  PID:       %d\n", status.PID)
	if status.Listen != "" {
		c.Printf("  Listen:    %s\n", status.Listen)
	}
	if status.Uptime != "" {
		c.Printf("  Uptime:    %s\n", status.Uptime)
	}
	return nil
}

func runServeLogs(cmd *cobra.Command, args []string) error {
	logPath := daemon.GetLogPath()

	file, err := os.Open(logPath)
	if os.IsNotExist(err) {
		ctx.CLIFormatter().Muted("No log file found.")
		ctx.CLIFormatter().Muted("Log path: " + logPath)
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	lines, err := tailLines(file, serveLogsFlagTail)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}

	if serveLogsFlagFollow {
		return followLog(cmd, file, out)
	}
	return nil
}

// tailLines reads r to the end and returns its last n lines.
func tailLines(r io.Reader, n int) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}

// followLog copies lines appended to file until interrupted.
func followLog(cmd *cobra.Command, file *os.File, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(file.Name()); err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	reader := bufio.NewReader(file)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) {
				continue
			}
			for {
				line, err := reader.ReadString('\n')
				if line != "" {
					fmt.Fprint(out, line)
				}
				if err != nil {
					break
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		case <-interrupt:
			return nil
		case <-cmd.Context().Done():
			return nil
		}
	}
}
