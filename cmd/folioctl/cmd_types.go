package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/folio-labs/folioctl/client"
)

var typeKinds = map[string]client.TypeKind{
	"locations":              client.TypeLocation,
	"loan-types":             client.TypeLoan,
	"material-types":         client.TypeMaterial,
	"address-types":          client.TypeAddress,
	"call-number-types":      client.TypeCallNumber,
	"groups":                 client.TypeGroup,
	"holdings-types":         client.TypeHoldings,
	"holdings-sources":       client.TypeHoldingsSource,
	"identifier-types":       client.TypeIdentifier,
	"instance-types":         client.TypeInstance,
	"instance-statuses":      client.TypeInstanceStatus,
	"item-note-types":        client.TypeItemNote,
	"service-points":         client.TypeServicePoint,
	"statistical-code-types": client.TypeStatistical,
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types [kind]",
		Short: "List reference-data records",
		Long: "Without arguments, lists the known reference-data kinds. With a\n" +
			"kind, lists that kind's records (id and display name).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				names := make([]string, 0, len(typeKinds))
				for name := range typeKinds {
					names = append(names, name)
				}
				sort.Strings(names)
				rows := make([][]string, 0, len(names))
				for _, name := range names {
					rows = append(rows, []string{name})
				}
				output(names, []string{"KIND"}, rows, names)
				return nil
			}

			kind, ok := typeKinds[args[0]]
			if !ok {
				return fmt.Errorf("unknown reference kind %q", args[0])
			}
			list, err := apiClient.Types.List(context.Background(), kind)
			if err != nil {
				return err
			}
			sort.Slice(list, func(i, j int) bool {
				return strings.ToLower(nameOf(kind, list[i])) < strings.ToLower(nameOf(kind, list[j]))
			})

			rows := make([][]string, 0, len(list))
			quiet := make([]string, 0, len(list))
			for _, record := range list {
				rows = append(rows, []string{record.ID(), nameOf(kind, record)})
				quiet = append(quiet, record.ID())
			}
			output(list, []string{"ID", "NAME"}, rows, quiet)
			return nil
		},
	}
}

// nameOf picks the display field for a reference record; most kinds use
// "name" but a few have their own key.
func nameOf(kind client.TypeKind, record client.Body) string {
	switch kind {
	case client.TypeAddress:
		return record.Str("addressType")
	case client.TypeGroup:
		return record.Str("group")
	default:
		return record.Str("name")
	}
}
