package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"promovote/internal/app/bootstrap"
	"promovote/internal/platform/config"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "promovote-worker"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

func commonRun() *slog.Logger {
	logLevel := slog.LevelInfo
	addSource := false
	if globalFlags.debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	if _, err := maxprocs.Set(maxprocs.Logger(slogPrintf)); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	return logger
}

func buildWorker() (*bootstrap.WorkerApp, *slog.Logger, error) {
	logger := commonRun()
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	app, err := bootstrap.BuildWorker(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap worker failed: %w", err)
	}
	return app, logger, nil
}

func closeWorker(app *bootstrap.WorkerApp, logger *slog.Logger) {
	if err := app.Close(); err != nil {
		logger.Error("worker shutdown close failed",
			"event", "worker_close_failed",
			"component", programName,
			"error", err.Error(),
		)
	}
}

// runCommand starts the deadline sweep, outbox relay and resolution notifier
// until SIGINT/SIGTERM.
func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, logger, err := buildWorker()
			if err != nil {
				return err
			}
			defer closeWorker(app, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}
}

func sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Finalize overdue proposals once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, logger, err := buildWorker()
			if err != nil {
				return err
			}
			defer closeWorker(app, logger)

			finalized, err := app.RunSweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("deadline sweep finished",
				"event", "worker_sweep_finished",
				"component", programName,
				"finalized", finalized,
			)
			return nil
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Promotion voting background worker",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(sweepCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
