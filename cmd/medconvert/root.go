package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inframed/inframed"
)

// app carries the state shared by the subcommands. Flags are read through
// v, so every flag can also come from an INFRAMED_* environment variable.
type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), stdout: os.Stdout, stderr: os.Stderr}
	a.v.SetEnvPrefix("INFRAMED")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	a.v.SetDefault("log-level", "info")
	a.v.SetDefault("log-format", "text")

	root := &cobra.Command{
		Use:           "medconvert",
		Short:         "Convert, inspect and publish MedConvert repositories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.stdout = cmd.OutOrStdout()
			a.stderr = cmd.ErrOrStderr()
			return a.v.BindPFlags(cmd.Flags())
		},
	}
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (text, json)")

	root.AddCommand(a.convertCmd(), a.inspectCmd(), a.publishCmd())
	return root
}

func (a *app) logger() (*inframed.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch format := a.v.GetString("log-format"); format {
	case "text":
		return inframed.NewLogger(slog.NewTextHandler(a.stderr, opts)), nil
	case "json":
		return inframed.NewLogger(slog.NewJSONHandler(a.stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
