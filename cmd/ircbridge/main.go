package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/ircbridge/internal/app"
	"github.com/vovakirdan/ircbridge/internal/config"
	applog "github.com/vovakirdan/ircbridge/internal/log"
)

var version = "dev"

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	logJSON    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ircbridge",
		Short:         "Bridge chat rooms to IRC channels",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.envFile != "" {
				return config.LoadDotenv(opts.envFile)
			}
			return config.LoadDotenv()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "load environment from this file instead of ./.env")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "emit JSON log lines")

	root.AddCommand(newServeCmd(opts), newTokenCmd(opts), newVersionCmd())
	return root
}

// loadConfig resolves configuration and the logger it asks for.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, *zerolog.Logger, error) {
	bootstrap := o.logger(cmd, "info")

	cfg, path, err := config.Load(bootstrap, o.configPath)
	if err != nil {
		return cfg, bootstrap, err
	}
	cfg.UpdateFrom(config.Config{LogLevel: o.logLevel})
	if err := cfg.Validate(); err != nil {
		return cfg, bootstrap, err
	}

	logger := o.logger(cmd, cfg.LogLevel)
	logger.Debug().Str("path", path).Msg("config loaded")
	return cfg, logger, nil
}

func (o *rootOptions) logger(cmd *cobra.Command, level string) *zerolog.Logger {
	if o.logLevel != "" {
		level = o.logLevel
	}
	if o.logJSON {
		return applog.NewJSON(level, cmd.ErrOrStderr())
	}
	return applog.New(level)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge and its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(config.Config{Addr: addr})

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Str("version", version).Msg("starting ircbridge")
			if err := application.Run(cmd.Context()); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
