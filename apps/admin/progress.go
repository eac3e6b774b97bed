package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trezcool/skripsi/core/progress"
)

func (cli *commandLine) progressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "progress PROPOSAL_ID",
		Short: "Print the resolved timeline stage of a proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usage(cmd)
			}
			row, err := cli.thesisSvc.Progress(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "proposal\t%s\n", row.Proposal.Title)
			fmt.Fprintf(w, "student\t%s\n", row.Student.Name)
			fmt.Fprintf(w, "status\t%s\n", row.Proposal.Status)
			fmt.Fprintf(w, "guidance\t%d/%d (primary), %d/%d (secondary)\n",
				row.Guidance.Primary, progress.RequiredSessions, row.Guidance.Secondary, progress.RequiredSessions)
			fmt.Fprintf(w, "documents\t%d uploaded, %d verified\n", row.Facts.UploadedDocs, row.Facts.VerifiedDocs)
			fmt.Fprintf(w, "stage\t%s (step %d/%d, %d%%)\n", row.Stage.Label, row.Stage.Step, progress.FinalStep, row.Percent)
			return w.Flush()
		},
	}
}
