package utils

import "strings"

// CSVSafe quotes a field per RFC 4180 when it contains a comma, quote, or
// newline: the field is wrapped in double quotes and embedded quotes doubled.
func CSVSafe(v string) string {
	if strings.ContainsAny(v, ",\"\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}
