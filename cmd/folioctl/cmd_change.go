package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/folio-labs/folioctl/internal/mutate"
	"github.com/folio-labs/folioctl/internal/resolve"
)

// changeOutput is the JSON shape of one identifier's change outcome.
type changeOutput struct {
	Identifier string             `json:"identifier"`
	Kind       string             `json:"kind"`
	NotFound   bool               `json:"notFound,omitempty"`
	Error      string             `json:"error,omitempty"`
	Items      []changeItemOutput `json:"items,omitempty"`
}

type changeItemOutput struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
	Note    string `json:"note,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newChangeCmd() *cobra.Command {
	var (
		fieldName  string
		actionName string
		matchValue string
		newValue   string
		openOnly   bool
	)
	cmd := &cobra.Command{
		Use:   "change <identifier>...",
		Short: "Add, change, or delete a field on matching items",
		Long: "Resolves each identifier to items and applies the field edit to the\n" +
			"ones whose current value matches. Values may be reference-record\n" +
			"display names (e.g. a location name) or UUIDs. Holdings records are\n" +
			"created, reused, and garbage collected as items move between\n" +
			"locations. Every touched record is snapshotted first.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, ok := mutate.KnownFields[fieldName]
			if !ok {
				return fmt.Errorf("unknown field %q (known: %s)", fieldName, knownFieldNames())
			}
			ctx := context.Background()

			req := mutate.Request{Field: field, Action: mutate.Action(actionName)}
			var err error
			if req.MatchValue, err = resolveValue(ctx, field, matchValue); err != nil {
				return err
			}
			if req.NewValue, err = resolveValue(ctx, field, newValue); err != nil {
				return err
			}

			raw, err := gatherIdentifiers(args)
			if err != nil {
				return err
			}
			results, err := runner.Change(ctx, raw, req, resolve.Options{OpenLoansOnly: openOnly})
			if err != nil {
				return err
			}

			out := make([]changeOutput, 0, len(results))
			rows := make([][]string, 0, len(results))
			var quiet []string
			for _, r := range results {
				entry := changeOutput{
					Identifier: r.Identifier,
					Kind:       string(r.Kind),
					NotFound:   r.NotFound,
					Error:      errString(r.Err),
				}
				for _, item := range r.Items {
					entry.Items = append(entry.Items, changeItemOutput{
						ID:      item.RecordID,
						Outcome: string(item.Outcome),
						Note:    item.Note,
						Error:   errString(item.Err),
					})
					rows = append(rows, []string{r.Identifier, item.RecordID, string(item.Outcome), item.Note})
					if item.Outcome == mutate.Applied {
						quiet = append(quiet, item.RecordID)
					}
				}
				if r.NotFound {
					rows = append(rows, []string{r.Identifier, "(not found)", "", ""})
				}
				out = append(out, entry)
			}
			output(out, []string{"IDENTIFIER", "ITEM", "OUTCOME", "NOTE"}, rows, quiet)
			return nil
		},
	}
	cmd.Flags().StringVar(&fieldName, "field", "", "Field to edit: "+knownFieldNames())
	cmd.Flags().StringVar(&actionName, "action", "change", "Action: add|change|delete")
	cmd.Flags().StringVar(&matchValue, "match", "", "Current value the field must have (name or UUID)")
	cmd.Flags().StringVar(&newValue, "new", "", "Value to set (name or UUID)")
	cmd.Flags().BoolVar(&openOnly, "open-loans-only", false, "Follow open loans only when traversing users")
	cmd.MarkFlagRequired("field") //nolint:errcheck
	return cmd
}

// resolveValue maps a reference record's display name to its UUID; values
// that already are UUIDs pass through.
func resolveValue(ctx context.Context, field mutate.Field, value string) (string, error) {
	if value == "" || uuid.Validate(value) == nil {
		return value, nil
	}
	id, err := apiClient.Types.NameToID(ctx, field.Type, value)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", value, err)
	}
	return id, nil
}

func knownFieldNames() string {
	names := make([]string, 0, len(mutate.KnownFields))
	for name := range mutate.KnownFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
