// Package cli wires the queue service commands: the HTTP server, schema
// migrations and two offline helpers for slot and distance estimates.
package cli

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const serviceName = "queue-service"

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Walk-in queue for the braids bar branches",
		Long: `Issues queue tickets with estimated start times, tracks their status
and reports branch occupancy.

Example usage:
  queue-service serve
  queue-service migrate
  queue-service slot --start 2026-10-12T16:00 --duration 4h
  queue-service distance --from 5.6037,-0.1870 --to 5.6700,-0.1650`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newSlotCommand(), newDistanceCommand())
	return root
}

// newLogger builds the process logger. Console output is for local runs.
func newLogger(out io.Writer, level, format string) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(parsed).With().Timestamp().Str("service", serviceName).Logger()
}
