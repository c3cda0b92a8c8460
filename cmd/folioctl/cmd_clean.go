package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/folio-labs/folioctl/internal/cascade"
)

// cleanOutput is the JSON shape of one user identifier's sweep outcome.
type cleanOutput struct {
	Identifier string            `json:"identifier"`
	NotFound   bool              `json:"notFound,omitempty"`
	Error      string            `json:"error,omitempty"`
	Loans      []cleanLoanOutput `json:"loans,omitempty"`
}

type cleanLoanOutput struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Note  string `json:"note,omitempty"`
	Error string `json:"error,omitempty"`
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean <user identifier>...",
		Short: "Delete phantom loans for the given users",
		Long: "Scans each user's loans and deletes the ones whose item no longer\n" +
			"exists. Loans with a live item are left untouched whatever their\n" +
			"status.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := gatherIdentifiers(args)
			if err != nil {
				return err
			}
			results := runner.Clean(context.Background(), raw)

			out := make([]cleanOutput, 0, len(results))
			rows := make([][]string, 0, len(results))
			var quiet []string
			for _, r := range results {
				entry := cleanOutput{
					Identifier: r.Identifier,
					NotFound:   r.NotFound,
					Error:      errString(r.Err),
				}
				for _, loan := range r.Loans {
					entry.Loans = append(entry.Loans, cleanLoanOutput{
						ID:    loan.ID,
						State: string(loan.State),
						Note:  loan.Note,
						Error: errString(loan.Err),
					})
					rows = append(rows, []string{r.Identifier, loan.ID, string(loan.State), loan.Note})
					if loan.State == cascade.Deleted {
						quiet = append(quiet, loan.ID)
					}
				}
				if r.NotFound {
					rows = append(rows, []string{r.Identifier, "(not found)", "", ""})
				}
				out = append(out, entry)
			}
			output(out, []string{"USER", "LOAN", "STATE", "NOTE"}, rows, quiet)
			return nil
		},
	}
}
