package storage

import "strings"

// Ident converts a dataset or field name into a canonical SQL identifier:
// lowercase, runs of non-alphanumerics collapsed to a single underscore.
// "Company Name" and "company_name" map to the same column.
//
// Backends still quote the result; Ident only keeps names portable across
// the supported engines, it is not an injection barrier on its own.
func Ident(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "unnamed"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "t_" + out
	}
	return out
}
