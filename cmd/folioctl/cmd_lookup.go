package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/resolve"
)

var targetKinds = map[string]client.RecordKind{
	"items":     client.KindItem,
	"instances": client.KindInstance,
	"holdings":  client.KindHoldings,
	"loans":     client.KindLoan,
	"users":     client.KindUser,
}

// lookupOutput is the JSON shape of one identifier's lookup outcome.
type lookupOutput struct {
	Identifier string        `json:"identifier"`
	Kind       string        `json:"kind"`
	NotFound   bool          `json:"notFound,omitempty"`
	Error      string        `json:"error,omitempty"`
	Records    []client.Body `json:"records,omitempty"`
}

func newLookupCmd() *cobra.Command {
	var openOnly bool
	cmd := &cobra.Command{
		Use:   "lookup <items|instances|holdings|loans|users> <identifier>... ",
		Short: "Resolve identifiers to related records",
		Long: "Classifies each identifier (barcode, hrid, accession number, or UUID)\n" +
			"and fetches the related records of the requested kind. Pass \"-\" to\n" +
			"read identifiers from stdin.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, ok := targetKinds[args[0]]
			if !ok {
				return fmt.Errorf("unknown record kind %q", args[0])
			}
			raw, err := gatherIdentifiers(args[1:])
			if err != nil {
				return err
			}

			results := runner.Lookup(context.Background(), raw, target,
				resolve.Options{OpenLoansOnly: openOnly})

			out := make([]lookupOutput, 0, len(results))
			rows := make([][]string, 0, len(results))
			var quiet []string
			for _, r := range results {
				out = append(out, lookupOutput{
					Identifier: r.Identifier,
					Kind:       string(r.Kind),
					NotFound:   r.NotFound,
					Error:      errString(r.Err),
					Records:    r.Records,
				})
				for _, record := range r.Records {
					rows = append(rows, []string{r.Identifier, string(r.Kind), record.ID(), record.HRID()})
					quiet = append(quiet, record.ID())
				}
				if r.NotFound {
					rows = append(rows, []string{r.Identifier, string(r.Kind), "(not found)", ""})
				}
			}
			output(out, []string{"IDENTIFIER", "KIND", "ID", "HRID"}, rows, quiet)
			return nil
		},
	}
	cmd.Flags().BoolVar(&openOnly, "open-loans-only", false, "Follow open loans only when traversing users")
	return cmd
}
