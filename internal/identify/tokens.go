package identify

import "strings"

// SplitIdentifiers extracts identifier tokens from free-form input. Tokens
// are separated by newlines, spaces, commas, colons or semicolons; single
// and double quotes around tokens are stripped; duplicates collapse to the
// first occurrence, preserving input order.
func SplitIdentifiers(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '\n', '\r', '\t', ' ', ',', ':', ';':
			return true
		}
		return false
	})

	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `"'`)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
