package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alchemmist/termreel/internal/app"
	"github.com/alchemmist/termreel/internal/config"
	"github.com/alchemmist/termreel/internal/session"
	"github.com/alchemmist/termreel/internal/timeline"
)

var version = "dev"

// backendFactory overrides the tmux backend for recorded sessions when set.
var backendFactory func() session.Backend

type globalOptions struct {
	configPath string
	dataDir    string
	tmuxBin    string
	verbose    bool
	stderr     io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stdout, usageText)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "termreel: %s\n", formatError(err))
		return 1
	}
	return 0
}

const usageText = `termreel - record terminal sessions and export them as asciicast, GIF and PNG

Usage:
  termreel <command> [flags]

Commands:
  record     Run a YAML script in a fresh terminal and record it
  watch      Record an existing tmux pane until it closes or you stop
  list       List saved recordings
  export     Export a saved recording
  play       Replay a recording or asciicast file in the terminal
  picker     Pick a saved recording and play it
  stats      Show frame timing for a recording
  delete     Delete a saved recording
  mcp        Serve terminal tools over MCP stdio
`

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalOptions{stderr: stderr}
	root := &cobra.Command{
		Use:           "termreel",
		Short:         "Record terminal sessions and export them as asciicast, GIF and PNG",
		Long:          usageText,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default $TERMREEL_CONFIG or ~/.config/termreel/config.yaml)")
	pf.StringVar(&g.dataDir, "data-dir", "", "recording store directory")
	pf.StringVar(&g.tmuxBin, "tmux-bin", "", "tmux binary")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRecordCmd(g),
		newWatchCmd(g),
		newListCmd(g),
		newExportCmd(g),
		newPlayCmd(g),
		newPickerCmd(g),
		newStatsCmd(g),
		newDeleteCmd(g),
		newMCPCmd(g),
	)
	return root
}

func (g *globalOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(g.stderr, &slog.HandlerOptions{Level: level}))
}

// openApp loads the config, applies the global flags and opens the store.
func (g *globalOptions) openApp() (*app.App, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dataDir != "" {
		cfg.DataDir = g.dataDir
	}
	if g.tmuxBin != "" {
		cfg.TmuxBin = g.tmuxBin
	}
	logger := g.logger()
	slog.SetDefault(logger)
	return app.New(cfg, app.WithLogger(logger), app.WithBackendFactory(backendFactory))
}

func formatError(err error) string {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Sprintf("not found: %v", err)
	case errors.Is(err, timeline.ErrValidation), errors.Is(err, timeline.ErrIndexOutOfRange):
		return fmt.Sprintf("invalid input: %v", err)
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	return err.Error()
}
