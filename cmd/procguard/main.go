package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/loykin/procguard"
	"github.com/loykin/procguard/internal/config"
	"github.com/loykin/procguard/internal/launcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand builds the CLI: the supervisor itself takes no flags or
// arguments, and the hidden helper is the intermediate of a detached launch.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "procguard",
		Short: "Keep configured processes running",
		Long: `procguard reads config.json from its working directory and keeps every
listed process running, relaunching absent ones as detached daemons.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), config.DefaultPath, cmd.OutOrStdout())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newLaunchCommand())
	return root
}

func newLaunchCommand() *cobra.Command {
	return &cobra.Command{
		Use:    launcher.HelperCommand + " <workDir> <commandLine>",
		Hidden: true,
		// Both arguments are passed through verbatim, even when they look
		// like flags.
		DisableFlagParsing: true,
		Args:               cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			os.Exit(launcher.RunIntermediate(args[0], args[1]))
		},
	}
}

// serve runs the supervisor until ctx is done. Only configuration problems
// make it return early.
func serve(ctx context.Context, path string, out io.Writer) error {
	cfg, err := procguard.LoadConfig(path)
	if err != nil {
		return err
	}
	log, closer, err := cfg.Log.New(out)
	if err != nil {
		return &config.Error{Path: path, Err: err}
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	if addr := cfg.Metrics.Listen; addr != "" {
		if err := procguard.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		go func() {
			log.Info("serving metrics", slog.String("addr", addr))
			if err := procguard.ServeMetrics(addr); err != nil {
				log.Error("metrics server stopped", slog.String("addr", addr), slog.Any("error", err))
			}
		}()
	}

	loop, err := procguard.NewSupervisor(cfg, procguard.Options{Logger: log})
	if err != nil {
		return &config.Error{Path: path, Err: err}
	}
	return loop.Run(ctx)
}
