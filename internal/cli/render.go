package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/electwix/dbproc/internal/library"
	"github.com/electwix/dbproc/internal/pipeline"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Out string
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render [procedure ...]",
		Short: "Print or write rendered procedures without touching the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write <name>.sql files into this directory")

	return cmd
}

func runRender(cmd *cobra.Command, opts *RenderOptions, names []string) error {
	p, s, err := opts.open(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := p.Render(cmd.Context(), s, pipeline.RenderOptions{Procedures: names, OutDir: opts.Out})
	if err != nil {
		var unknown *library.UnknownProcedureError
		if errors.As(err, &unknown) {
			return WrapExitError(ExitCommandError, "render", err)
		}
		return WrapExitError(ExitFailure, "render", err)
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput() {
		files := make([]map[string]any, len(summary.Files))
		for i, f := range summary.Files {
			files[i] = map[string]any{"procedure": f.Procedure, "path": f.Path, "sql": string(f.Content)}
		}
		return writeJSON(out, map[string]any{"files": files, "written": summary.Written})
	}

	if opts.Out != "" {
		for _, path := range summary.Written {
			_, _ = fmt.Fprintf(out, "wrote %s\n", path)
		}
		return nil
	}
	for i, f := range summary.Files {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		_, _ = fmt.Fprintf(out, "-- %s\n%s", f.Procedure, f.Content)
		if n := len(f.Content); n > 0 && f.Content[n-1] != '\n' {
			_, _ = fmt.Fprintln(out)
		}
	}
	return nil
}
