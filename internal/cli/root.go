// Package cli implements the dbproc command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/electwix/dbproc/internal/config"
	"github.com/electwix/dbproc/internal/database"
	"github.com/electwix/dbproc/internal/logging"
	"github.com/electwix/dbproc/internal/pipeline"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    int
	Format     string // "json" | "text"
	LogFormat  string
	Strict     bool
	DSN        string

	env    pipeline.Environment
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. env supplies the pipeline's
// collaborators; its Logger is replaced by one built from the flags.
func NewRootCommand(env pipeline.Environment) *cobra.Command {
	opts := &RootOptions{env: env}

	cmd := &cobra.Command{
		Use:   "dbproc",
		Short: "Manage stored procedures written against model names",
		Long: `dbproc renders stored procedures whose source refers to tables and
columns by model name, installs them into the database and calls them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			logFormat, err := logging.ParseFormat(opts.LogFormat)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --log-format", err)
			}
			opts.logger = logging.New(logging.Options{
				Verbosity: opts.Verbose,
				Format:    logFormat,
				Writer:    cmd.ErrOrStderr(),
			})
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	})

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", config.DefaultFile, "path to configuration file")
	flags.CountVarP(&opts.Verbose, "verbose", "v", "increase log verbosity (repeatable)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.LogFormat, "log-format", "text", "log format (json|text)")
	flags.BoolVar(&opts.Strict, "strict", false, "treat configuration warnings as errors")
	flags.StringVar(&opts.DSN, "dsn", "", "override the configured data source name")

	cmd.AddCommand(NewInstallCommand(opts))
	cmd.AddCommand(NewCallCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func (o *RootOptions) pipeline() *pipeline.Pipeline {
	env := o.env
	env.Logger = o.logger
	return &pipeline.Pipeline{Env: env}
}

// open loads the project; connect also opens the database.
func (o *RootOptions) open(ctx context.Context, connect bool) (*pipeline.Pipeline, *pipeline.Session, error) {
	p := o.pipeline()
	s, err := p.Open(ctx, pipeline.OpenOptions{
		ConfigPath:   o.ConfigPath,
		StrictConfig: o.Strict,
		Connect:      connect,
		DSN:          o.DSN,
	})
	if err != nil {
		// A server that answers with an error is a failed run, not a bad invocation.
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) && stageErr.Stage == pipeline.StageDatabase && database.IsDriverError(err) {
			return nil, nil, WrapExitError(ExitFailure, "connect", err)
		}
		return nil, nil, WrapExitError(ExitCommandError, "open project", err)
	}
	return p, s, nil
}

func (o *RootOptions) jsonOutput() bool {
	return o.Format == "json"
}
