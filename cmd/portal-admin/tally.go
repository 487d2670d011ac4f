package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/internal/service"
)

func init() {
	rootCmd.AddCommand(tallyCmd)
}

var tallyCmd = &cobra.Command{
	Use:   "tally <election-id>",
	Short: "Print the results of a closed election",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer e.Close()

		svc := service.NewElectionService(e.storage.Elections, e.storage.Persons, e.storage.Audit, nil, nil, nil, e.logger, service.ElectionConfig{})
		tally, err := svc.Tally(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printTally(cmd.OutOrStdout(), tally)
	},
}

func printTally(w io.Writer, tally *models.Tally) error {
	fmt.Fprintf(w, "%s (%s), closed %s\n\n", tally.Position, tally.Kind, tally.ClosedAt.Format("2006-01-02 15:04 MST"))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CANDIDATE\tNAME\tVOTES")
	for _, r := range tally.Results {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Username, r.FullName, r.Votes)
	}
	fmt.Fprintf(tw, "\t\t%d\n", tally.TotalVotes)
	return tw.Flush()
}
