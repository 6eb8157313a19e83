package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/electwix/dbproc/internal/fileset"
	"github.com/electwix/dbproc/internal/pipeline"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Install all procedures, then reinstall each one whenever its source changes",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", fileset.DefaultDebounce, "quiet period before reacting to changes")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	ctx := cmd.Context()
	p, s, err := opts.open(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	report, err := p.Install(ctx, s, pipeline.InstallOptions{Force: true})
	if err != nil {
		return wrapFailure("install failed", err)
	}
	for _, name := range report.Installed {
		_, _ = fmt.Fprintf(out, "installed %s\n", name)
	}

	sources := s.Sources()
	for i, path := range sources {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		sources[i] = abs
	}

	var roots []string
	for _, path := range sources {
		if dir := filepath.Dir(path); !slices.Contains(roots, dir) {
			roots = append(roots, dir)
		}
	}
	if len(roots) == 0 {
		return NewExitError(ExitCommandError, "no procedure sources to watch")
	}

	w, err := fileset.NewWatcher(roots, opts.Debounce, func(path string) bool {
		return slices.Contains(sources, path)
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "watch", err)
	}

	logger := opts.pipeline().Env.Logger
	return w.Run(ctx, func(paths []string) {
		for _, path := range paths {
			proc, err := p.Reinstall(ctx, s, path)
			if errors.Is(err, pipeline.ErrUnchanged) {
				continue
			}
			if err != nil {
				if logger != nil {
					logger.Error("reinstall failed", "path", path, "err", err)
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "reinstall %s: %v\n", path, err)
				continue
			}
			_, _ = fmt.Fprintf(out, "reinstalled %s\n", proc.Name())
		}
	})
}
