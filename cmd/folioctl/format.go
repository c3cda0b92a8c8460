package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

func formatJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode json: %v\n", err)
		os.Exit(1)
	}
}

func formatTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}
			parts[i] = fmt.Sprintf("%-*s", w, cell)
		}
		fmt.Println(strings.Join(parts, "  "))
	}

	printRow(headers)
	seps := make([]string, len(headers))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	printRow(seps)
	for _, row := range rows {
		printRow(row)
	}
}

func formatQuiet(lines []string) {
	for _, line := range lines {
		fmt.Println(line)
	}
}

// output renders v per the global format flag. rows supplies the table
// rendition, quiet the ids-only one; both fall back to JSON when nil.
func output(v any, headers []string, rows [][]string, quiet []string) {
	switch flagFmt {
	case "table":
		if rows != nil {
			formatTable(headers, rows)
			return
		}
		formatJSON(v)
	case "quiet":
		if quiet != nil {
			formatQuiet(quiet)
			return
		}
		formatJSON(v)
	default:
		formatJSON(v)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
