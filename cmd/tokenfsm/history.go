package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/BaSui01/tokenfsm/internal/store"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		filter store.Filter
		counts bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded decode runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			s, err := store.Open(cmd.Context(), cfg.History, logger)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			out := cmd.OutOrStdout()
			if counts {
				byOutcome, err := s.CountByOutcome(cmd.Context(), filter.Fingerprint)
				if err != nil {
					return err
				}
				outcomes := make([]string, 0, len(byOutcome))
				for o := range byOutcome {
					outcomes = append(outcomes, o)
				}
				sort.Strings(outcomes)
				for _, o := range outcomes {
					fmt.Fprintf(out, "%s\t%d\n", o, byOutcome[o])
				}
				return nil
			}

			runs, err := s.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(out, "%s\t%s\t%s\t%q\t%d steps\t%dms\n",
					r.CreatedAt.Format("2006-01-02T15:04:05"), r.ID, r.Outcome, r.Text, r.Steps, r.DurationMS)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&filter.Limit, "limit", 20, "Maximum number of runs (0 for all)")
	f.StringVar(&filter.Outcome, "outcome", "", "Only runs with this outcome")
	f.StringVar(&filter.Fingerprint, "fingerprint", "", "Only runs of this automaton")
	f.BoolVar(&counts, "counts", false, "Print run counts per outcome instead")
	return cmd
}
