package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mfakit/core/logger"
)

const serviceName = "mfactl"

type app struct {
	out    io.Writer
	errOut io.Writer
	log    *slog.Logger

	logFormat      string
	verbose        bool
	lockoutBackend string
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, log: logger.Discard()}

	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Operate the MFA secret store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setupLogger()
		},
	}

	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&a.lockoutBackend, "lockout-backend", backendRedis,
		"lockout counter backend: redis or memory")

	cmd.AddCommand(
		newKeygenCmd(a),
		newMigrateCmd(a),
		newServeCmd(a),
		newStatusCmd(a),
		newUnlockCmd(a),
	)
	return cmd
}

func (a *app) setupLogger() error {
	opts := []logger.Option{logger.WithOutput(a.errOut)}
	switch a.logFormat {
	case "text":
		opts = append(opts, logger.WithDevelopment(serviceName))
		if !a.verbose {
			opts = append(opts, logger.WithLevel(slog.LevelInfo))
		}
	case "json":
		opts = append(opts, logger.WithProduction(serviceName))
		if a.verbose {
			opts = append(opts, logger.WithLevel(slog.LevelDebug))
		}
	default:
		return fmt.Errorf("unknown log format %q", a.logFormat)
	}

	a.log = logger.New(opts...)
	return nil
}
