package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List declared procedures and their arguments",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, rootOpts)
		},
	}
}

type listEntry struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Arguments []string `json:"arguments"`
	Call      string   `json:"call"`
	Results   bool     `json:"results"`
}

func runList(cmd *cobra.Command, opts *RootOptions) error {
	_, s, err := opts.open(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	procs := s.Library.Procedures()
	entries := make([]listEntry, len(procs))
	for i, p := range procs {
		entries[i] = listEntry{
			Name:      p.Name(),
			Path:      p.Path(),
			Arguments: p.Arguments(),
			Call:      p.CallSQL(),
			Results:   p.HasResults(),
		}
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput() {
		return writeJSON(out, entries)
	}
	tw := newTable(out)
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t(%s)\t%s\n", e.Name, strings.Join(e.Arguments, ", "), e.Path)
	}
	return tw.Flush()
}
