// Command codelet is a terminal editor host for the completion engine. It
// reads raw key presses, classifies them, keeps suggestions in step with
// typing and talks to the completion backend over a websocket.
//
// Usage:
//
//	codelet run main.go                  # edit main.go with suggestions
//	codelet run --metrics :9464 main.go  # also serve /metrics and /healthz
//	codelet config show                  # print the effective config
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paranoid-AF/codelet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	verbose    bool
	configPath string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:           "codelet",
	Short:         "Inline code suggestions in the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", codelet.ConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.AddCommand(runCmd, versionCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger returns a slog logger backed by charmbracelet/log.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return slog.New(log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "codelet",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	}))
}

// setupLogging installs the default logger. Logging to a raw-mode terminal
// would corrupt the screen, so without --log-file an interactive stderr only
// gets errors after the terminal is restored.
func setupLogging(interactive bool) (func(), error) {
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		slog.SetDefault(newLogger(f, verbose))
		return func() { f.Close() }, nil
	}
	var w io.Writer = os.Stderr
	if interactive && term.IsTerminal(int(os.Stderr.Fd())) {
		w = io.Discard
	}
	slog.SetDefault(newLogger(w, verbose))
	return func() {}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
