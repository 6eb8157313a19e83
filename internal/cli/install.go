package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/electwix/dbproc/internal/config"
	"github.com/electwix/dbproc/internal/pipeline"
)

// InstallOptions holds flags for the install command.
type InstallOptions struct {
	*RootOptions
	Force     bool
	Verbosity int
}

// NewInstallCommand creates the install command.
func NewInstallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InstallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Render and install every declared procedure",
		Long: `Render every declared procedure and install it, replacing any procedure
of the same name. Run it after each migration or deploy.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "install even if already installed in this process")
	cmd.Flags().IntVar(&opts.Verbosity, "verbosity", -1, "warning verbosity (0-3); defaults to the configured value")

	return cmd
}

func runInstall(cmd *cobra.Command, opts *InstallOptions) error {
	if opts.Verbosity > config.MaxVerbosity {
		return NewExitError(ExitCommandError, fmt.Sprintf("--verbosity must be between 0 and %d", config.MaxVerbosity))
	}

	p, s, err := opts.open(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.Close()

	installOpts := pipeline.InstallOptions{Force: opts.Force}
	if opts.Verbosity >= 0 {
		installOpts.Verbosity = &opts.Verbosity
	}

	report, err := p.Install(cmd.Context(), s, installOpts)
	if err != nil {
		return wrapFailure("install failed", err)
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput() {
		return writeJSON(out, map[string]any{
			"run_id":    report.RunID.String(),
			"installed": report.Installed,
			"skipped":   report.Skipped,
		})
	}
	if report.Skipped {
		_, _ = fmt.Fprintln(out, "already installed")
		return nil
	}
	for _, name := range report.Installed {
		_, _ = fmt.Fprintf(out, "installed %s\n", name)
	}
	return nil
}
