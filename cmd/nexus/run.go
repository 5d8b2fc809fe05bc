package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zoobzio/nexus"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		file  string
		stats bool
	)
	cmd := &cobra.Command{
		Use:   "run [input...]",
		Short: "Process inputs through the configured pipelines",
		Long: `Process each input through every configured pipeline in order.

Inputs come from the arguments and, with --file, from the lines of a file
("-" reads stdin). A line such as [23.5, 26.6] is a numeric stream; any
other line is raw text. Write \n inside a line to separate CSV rows.

Without --config a single pipeline runs the input, transform and output
stages.`,
		Example: `  nexus run '{"sensor":"temp","value":"23.5","unit":"C"}'
  nexus run '[23.5, 26.6, 20.2]' 'user,action\nalice,login'
  nexus run --config nexus.yaml --file readings.txt --stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := collectInputs(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return errors.New("no inputs: pass them as arguments or use --file")
			}

			s, err := openSession(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			results := s.manager.Batch(cmd.Context(), inputs)
			for i, res := range results {
				printResult(out, i+1, res)
				if err := s.record(cmd.Context(), res); err != nil {
					return fmt.Errorf("journal: %w", err)
				}
			}
			if stats {
				printStats(out, s.manager)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read one input per line from this file")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print per-pipeline run statistics")
	return cmd
}

func printResult(w io.Writer, n int, res nexus.ChainResult) {
	status := nexus.StatusOK
	if res.Degraded() {
		status = nexus.StatusDegraded
	}
	fmt.Fprintf(w, "%3d  %-8s  %v\n", n, status, res.Value)
	if res.Err != nil {
		fmt.Fprintf(w, "     error: %v\n", res.Err)
	}
}

func printStats(w io.Writer, m *nexus.Manager) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PIPELINE\tKIND\tRUNS\tOK\tDEGRADED\tELAPSED")
	stats := m.Stats()
	for _, p := range m.Pipelines() {
		st := stats[p.Name()]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%v\n", p.Name(), p.Kind(), st.Runs, st.Successes, st.Failures, st.Elapsed)
	}
	tw.Flush()
}
