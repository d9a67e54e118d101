// Package position matches layout position strings such as "directory_table-columns".
package position

import "strings"

// Match reports whether pos matches glob. A trailing "*" matches any suffix;
// otherwise the comparison is exact.
func Match(glob, pos string) bool {
	if prefix, ok := strings.CutSuffix(glob, "*"); ok {
		return strings.HasPrefix(pos, prefix)
	}
	return glob == pos
}

// Section returns the part of pos before the first underscore.
func Section(pos string) string {
	section, _, _ := strings.Cut(pos, "_")
	return section
}

// Context builds the glob selecting every area of a display context.
func Context(ctx string) string {
	return ctx + "_*"
}
