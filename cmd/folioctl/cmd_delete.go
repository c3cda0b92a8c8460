package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/folio-labs/folioctl/internal/cascade"
)

// deleteOutput is the JSON shape of one identifier's deletion outcome.
type deleteOutput struct {
	Identifier string               `json:"identifier"`
	Kind       string               `json:"kind"`
	NotFound   bool                 `json:"notFound,omitempty"`
	Error      string               `json:"error,omitempty"`
	Records    []deleteRecordOutput `json:"records,omitempty"`
}

type deleteRecordOutput struct {
	ID       string               `json:"id"`
	Kind     string               `json:"kind"`
	State    string               `json:"state"`
	Note     string               `json:"note,omitempty"`
	Error    string               `json:"error,omitempty"`
	Children []deleteRecordOutput `json:"children,omitempty"`
}

func deleteTree(r cascade.Result) deleteRecordOutput {
	out := deleteRecordOutput{
		ID:    r.ID,
		Kind:  string(r.Kind),
		State: string(r.State),
		Note:  r.Note,
		Error: errString(r.Err),
	}
	for _, child := range r.Children {
		out.Children = append(out.Children, deleteTree(child))
	}
	return out
}

func flattenTree(identifier string, r cascade.Result, rows *[][]string, quiet *[]string) {
	for _, child := range r.Children {
		flattenTree(identifier, child, rows, quiet)
	}
	*rows = append(*rows, []string{identifier, string(r.Kind), r.ID, string(r.State)})
	if r.State == cascade.Deleted {
		*quiet = append(*quiet, r.ID)
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <identifier>...",
		Short: "Delete records and everything below them",
		Long: "Resolves each identifier to an item, holdings, instance, or loan and\n" +
			"deletes it together with its dependents, children first. Instances\n" +
			"also lose their source-record entry. Every record is snapshotted\n" +
			"before its delete call. User records are never deleted.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := gatherIdentifiers(args)
			if err != nil {
				return err
			}
			results := runner.Delete(context.Background(), raw)

			out := make([]deleteOutput, 0, len(results))
			rows := make([][]string, 0, len(results))
			var quiet []string
			for _, r := range results {
				entry := deleteOutput{
					Identifier: r.Identifier,
					Kind:       string(r.Kind),
					NotFound:   r.NotFound,
					Error:      errString(r.Err),
				}
				for _, record := range r.Records {
					entry.Records = append(entry.Records, deleteTree(record))
					flattenTree(r.Identifier, record, &rows, &quiet)
				}
				if r.NotFound {
					rows = append(rows, []string{r.Identifier, "", "(not found)", ""})
				}
				out = append(out, entry)
			}
			output(out, []string{"IDENTIFIER", "KIND", "ID", "STATE"}, rows, quiet)
			return nil
		},
	}
}
