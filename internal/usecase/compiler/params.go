package compiler

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// params reads search parameters out of a raw query.
type params url.Values

// names returns the request parameter names a definition key answers to:
// filter_<key> with dots replaced, then the bare key, then registry aliases.
func names(key string, aliases []string) []string {
	out := []string{"filter_" + strings.ReplaceAll(key, ".", "_"), key}
	return append(out, aliases...)
}

// scalar returns the first non-blank value among names, trimmed.
func (p params) scalar(names ...string) (string, bool) {
	for _, n := range names {
		for _, v := range p[n] {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// list collects non-blank values of name and name[] for the first name
// carrying any. A list made only of blanks counts as absent.
func (p params) list(names ...string) []string {
	for _, n := range names {
		var out []string
		for _, raw := range append(append([]string(nil), p[n]...), p[n+"[]"]...) {
			if v := strings.TrimSpace(raw); v != "" {
				out = append(out, v)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// part returns name[part] for the first name carrying a non-blank value.
func (p params) part(names []string, part string) (string, bool) {
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = n + "[" + part + "]"
	}
	return p.scalar(keys...)
}

// levels returns the non-blank name[1]..name[n] values keyed by level number.
func (p params) levels(names ...string) map[int]string {
	for _, n := range names {
		out := make(map[int]string)
		prefix := n + "["
		for k, vals := range p {
			idx, ok := strings.CutPrefix(k, prefix)
			if !ok {
				continue
			}
			idx, ok = strings.CutSuffix(idx, "]")
			if !ok {
				continue
			}
			level, err := strconv.Atoi(idx)
			if err != nil || level < 1 {
				continue
			}
			for _, v := range vals {
				if v = strings.TrimSpace(v); v != "" {
					out[level] = v
					break
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func sortedLevels(m map[int]string) []int {
	out := make([]int, 0, len(m))
	for l := range m {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}
