package query

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind controls how a selected value turns into a SQL condition.
type Kind int

const (
	// Match compares Column against the canonical option values.
	Match Kind = iota
	// Flag compares a nullable boolean Column against the option's Arg.
	Flag
	// AnyOf ORs together the boolean columns named by each selected option.
	AnyOf
)

// Option is one allowed value of a Field.
type Option struct {
	Value   string
	Aliases []string
	Arg     any    // Flag: bound value; defaults to Value for Match
	Column  string // AnyOf: boolean column tested for this option
}

// Field declares one query-string filter.
type Field struct {
	Param   string
	Column  string
	Kind    Kind
	Options []Option
}

// Spec is an ordered set of filter fields sharing one query-string vocabulary.
type Spec struct {
	fields []Field
	index  map[string]map[string]int // param -> lowercased spelling -> option index
}

// NewSpec indexes the fields. It panics on duplicate params or spellings,
// which can only come from a programming error.
func NewSpec(fields ...Field) *Spec {
	s := &Spec{fields: fields, index: make(map[string]map[string]int, len(fields))}
	for _, f := range fields {
		if _, dup := s.index[f.Param]; dup {
			panic("query: duplicate filter param " + f.Param)
		}
		m := make(map[string]int)
		for i, o := range f.Options {
			for _, spelling := range append([]string{o.Value}, o.Aliases...) {
				k := strings.ToLower(strings.TrimSpace(spelling))
				if _, dup := m[k]; dup {
					panic(fmt.Sprintf("query: duplicate spelling %q for %s", spelling, f.Param))
				}
				m[k] = i
			}
		}
		s.index[f.Param] = m
	}
	return s
}

// InvalidValueError reports a filter value outside the field's universe.
type InvalidValueError struct {
	Param string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for filter %s", e.Value, e.Param)
}

// Selection is the canonical set of chosen option indexes for one field.
type Selection struct {
	Param   string
	Indexes []int
}

// Criteria is a validated, canonical filter selection in field order.
// Fields with no effective restriction are absent.
type Criteria struct {
	Selections []Selection
}

// Empty reports whether the criteria restrict nothing.
func (c Criteria) Empty() bool { return len(c.Selections) == 0 }

// Parse validates query-string values against the declared fields. Repeated
// params and comma separated lists are both accepted. "all" or an empty value
// disables a field, and selecting every option of a field is treated the same
// way. Undeclared params are ignored.
func (s *Spec) Parse(v url.Values) (Criteria, error) {
	var c Criteria
	for _, f := range s.fields {
		raw := v[f.Param]
		if len(raw) == 0 {
			continue
		}
		chosen := make([]bool, len(f.Options))
		count := 0
		all := false
		for _, entry := range raw {
			for _, part := range strings.Split(entry, ",") {
				p := strings.TrimSpace(part)
				if p == "" {
					continue
				}
				if strings.EqualFold(p, "all") {
					all = true
					continue
				}
				idx, ok := s.index[f.Param][strings.ToLower(p)]
				if !ok {
					return Criteria{}, &InvalidValueError{Param: f.Param, Value: p}
				}
				if !chosen[idx] {
					chosen[idx] = true
					count++
				}
			}
		}
		if all || count == 0 || count == len(f.Options) {
			continue
		}
		sel := Selection{Param: f.Param, Indexes: make([]int, 0, count)}
		for i, ok := range chosen {
			if ok {
				sel.Indexes = append(sel.Indexes, i)
			}
		}
		c.Selections = append(c.Selections, sel)
	}
	return c, nil
}

// Values returns the canonical values selected for param, if any.
func (s *Spec) Values(c Criteria, param string) []string {
	f, ok := s.field(param)
	if !ok {
		return nil
	}
	for _, sel := range c.Selections {
		if sel.Param != param {
			continue
		}
		out := make([]string, len(sel.Indexes))
		for i, idx := range sel.Indexes {
			out[i] = f.Options[idx].Value
		}
		return out
	}
	return nil
}

// Key renders the criteria as a stable string, suitable for hashing.
func (s *Spec) Key(c Criteria) string {
	var b strings.Builder
	for i, sel := range c.Selections {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(sel.Param)
		b.WriteByte('=')
		b.WriteString(strings.Join(s.Values(c, sel.Param), "|"))
	}
	return b.String()
}

func (s *Spec) field(param string) (Field, bool) {
	for _, f := range s.fields {
		if f.Param == param {
			return f, true
		}
	}
	return Field{}, false
}

// Build translates criteria into a WHERE clause and its bound arguments.
// Base conditions are fixed SQL fragments and come first. The returned clause
// is empty when there is nothing to filter on; otherwise it starts with
// "WHERE ". Values only ever reach the database as arguments.
func (s *Spec) Build(d Dialect, c Criteria, base ...string) (string, []any) {
	conds := append([]string(nil), base...)
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return d.Placeholder(len(args))
	}
	for _, sel := range c.Selections {
		f, ok := s.field(sel.Param)
		if !ok {
			continue
		}
		switch f.Kind {
		case Match:
			if len(sel.Indexes) == 1 {
				conds = append(conds, fmt.Sprintf("%s = %s", f.Column, bind(optionArg(f.Options[sel.Indexes[0]]))))
				continue
			}
			ph := make([]string, len(sel.Indexes))
			for i, idx := range sel.Indexes {
				ph[i] = bind(optionArg(f.Options[idx]))
			}
			conds = append(conds, fmt.Sprintf("%s IN (%s)", f.Column, strings.Join(ph, ", ")))
		case Flag:
			// Two options selected means the field was dropped by Parse.
			o := f.Options[sel.Indexes[0]]
			conds = append(conds, fmt.Sprintf("COALESCE(%s, FALSE) = %s", f.Column, bind(o.Arg)))
		case AnyOf:
			ors := make([]string, len(sel.Indexes))
			for i, idx := range sel.Indexes {
				ors[i] = fmt.Sprintf("COALESCE(%s, FALSE) = %s", f.Options[idx].Column, bind(true))
			}
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func optionArg(o Option) any {
	if o.Arg != nil {
		return o.Arg
	}
	return o.Value
}
