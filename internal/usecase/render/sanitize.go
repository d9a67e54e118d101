package render

import "strings"

// formulaPrefixes start a cell that spreadsheet tools evaluate as a formula.
const formulaPrefixes = "=+-@\t\r"

// Sanitize neutralizes spreadsheet formula injection by prefixing a single
// quote to values starting with =, +, -, @, tab or carriage return.
// Sanitize(Sanitize(v)) == Sanitize(v).
func Sanitize(v string) string {
	if v == "" || !strings.ContainsRune(formulaPrefixes, rune(v[0])) {
		return v
	}
	return "'" + v
}
