package export

import (
	"net/url"
	"strings"
)

// Reserved query parameters that select the export rather than filter it.
const (
	ParamType   = "type"
	ParamStream = "stream"
)

// Filters maps filter names to the raw values supplied with a request.
//
// A filter is absent when its name is not in the map. A filter whose value
// is a wildcard ("", "*", "all" or "todos", ignoring case and surrounding
// space) means "no restriction" and behaves like an absent one. Any other
// value is present, including "0" and "false": a present falsy value
// restricts the result (activo = false), an absent one does not.
type Filters map[string]string

// FiltersFromQuery collects every non-reserved query parameter. When a
// parameter repeats, the first value wins.
func FiltersFromQuery(values url.Values) Filters {
	f := make(Filters, len(values))
	for name, vs := range values {
		if name == ParamType || name == ParamStream || len(vs) == 0 {
			continue
		}
		f[name] = vs[0]
	}
	return f
}

// IsWildcard reports whether v means "no restriction".
func IsWildcard(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "*", "all", "todos":
		return true
	}
	return false
}

// Lookup returns the trimmed value of name when the filter is present and
// not a wildcard.
func (f Filters) Lookup(name string) (string, bool) {
	v, ok := f[name]
	if !ok || IsWildcard(v) {
		return "", false
	}
	return strings.TrimSpace(v), true
}
