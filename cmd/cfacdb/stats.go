package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/export"
	"github.com/Lingen1218/cfac/internal/filter"
	"github.com/Lingen1218/cfac/internal/selection"
)

func newStatsCmd(a *app) *cobra.Command {
	var db, session string
	nele := dataset.DefaultNeleRange

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print level, transition, charge state and process counts of a session",
		Long: `Print the record counts of a session restricted to levels whose electron
count lies in --nele-min..--nele-max. Autoionization (ai), collisional
excitation (ce), ionization (ci) and radiative recombination (rr) counts are
zero for datasets without those tables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := nele.Validate(); err != nil {
				return err
			}
			sid := filter.UnsetID
			if session != "" {
				sid = selection.ParseID(session)
				if sid == filter.UnsetID {
					return fmt.Errorf("invalid --session %q", session)
				}
			}

			path, err := a.datasetPath(db)
			if err != nil {
				return err
			}
			b, err := a.newBrowser(nil)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()
			if err := b.Open(cmd.Context(), path); err != nil {
				return err
			}

			st, err := b.Stats(cmd.Context(), sid, nele)
			if err != nil {
				return err
			}
			return export.WriteJSON(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "path to the cFAC SQLite dataset")
	cmd.Flags().StringVar(&session, "session", "", "session id (default: first session)")
	cmd.Flags().IntVar(&nele.Min, "nele-min", nele.Min, "smallest electron count to count")
	cmd.Flags().IntVar(&nele.Max, "nele-max", nele.Max, "largest electron count to count")
	return cmd
}
