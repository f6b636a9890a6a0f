package query

import "strings"

const wherePlaceholder = "{{where}}"

// Template is a named aggregation statement. Its SQL carries a {{where}}
// marker that receives the filter clause, and Base lists fixed conditions
// always ANDed into it.
type Template struct {
	Name string
	Base []string
	SQL  string
}

// With substitutes a named fragment such as {{segment}}. Fragments are
// trusted SQL supplied by code, never request input.
func (t Template) With(name, fragment string) Template {
	marker := "{{" + name + "}}"
	t.SQL = strings.ReplaceAll(t.SQL, marker, fragment)
	base := make([]string, len(t.Base))
	for i, b := range t.Base {
		base[i] = strings.ReplaceAll(b, marker, fragment)
	}
	t.Base = base
	return t
}

// Render produces the final statement and its arguments.
func (t Template) Render(d Dialect, s *Spec, c Criteria) (string, []any) {
	where, args := s.Build(d, c, t.Base...)
	return strings.ReplaceAll(t.SQL, wherePlaceholder, where), args
}
