package paging

import "strings"

// Mode combines the clauses of a filter or filter group.
type Mode string

// Boolean combination modes.
const (
	ModeAnd Mode = "and"
	ModeOr  Mode = "or"
)

// Operator compares a record value against filter values.
type Operator string

// Supported comparison operators.
const (
	OpEq       Operator = "eq"
	OpNotEq    Operator = "not_eq"
	OpNil      Operator = "nil"
	OpNotNil   Operator = "not_nil"
	OpWildcard Operator = "wildcard"
)

// Filter is a single comparison clause.
type Filter struct {
	Key      string   `json:"key"`
	Operator Operator `json:"operator"`
	Values   []string `json:"values"`
	Mode     Mode     `json:"mode"`
}

// FilterGroup composes filters and nested groups into a boolean tree.
type FilterGroup struct {
	Mode         Mode          `json:"mode"`
	Filters      []Filter      `json:"filters"`
	FilterGroups []FilterGroup `json:"filterGroups"`
}

// ValueFunc supplies the record values for a filter key. A nil or empty
// result means the record carries no value for that key.
type ValueFunc func(key string) []string

// CleanFilters normalizes a filter tree: groups with no filters and no
// subgroups are semantically "no filter" and are elided so they are never
// sent to the query layer as a constraining clause. Cleaning is
// idempotent; an all-empty tree rounds to nil.
func CleanFilters(fg *FilterGroup) *FilterGroup {
	if fg == nil {
		return nil
	}

	out := FilterGroup{Mode: fg.Mode}
	if out.Mode == "" {
		out.Mode = ModeAnd
	}

	for _, f := range fg.Filters {
		if f.Key == "" {
			continue
		}
		// Value-comparing operators with no values constrain nothing.
		if len(f.Values) == 0 && f.Operator != OpNil && f.Operator != OpNotNil {
			continue
		}
		if f.Mode == "" {
			f.Mode = ModeOr
		}
		out.Filters = append(out.Filters, f)
	}

	for _, sub := range fg.FilterGroups {
		if cleaned := CleanFilters(&sub); cleaned != nil {
			out.FilterGroups = append(out.FilterGroups, *cleaned)
		}
	}

	if len(out.Filters) == 0 && len(out.FilterGroups) == 0 {
		return nil
	}
	return &out
}

// Matches evaluates the filter tree against one record. A nil group
// matches everything.
func (fg *FilterGroup) Matches(get ValueFunc) bool {
	if fg == nil {
		return true
	}

	results := make([]bool, 0, len(fg.Filters)+len(fg.FilterGroups))
	for _, f := range fg.Filters {
		results = append(results, f.matches(get))
	}
	for _, sub := range fg.FilterGroups {
		results = append(results, sub.Matches(get))
	}

	if len(results) == 0 {
		return true
	}

	if fg.Mode == ModeOr {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}

// matches evaluates a single filter clause.
func (f Filter) matches(get ValueFunc) bool {
	values := get(f.Key)

	switch f.Operator {
	case OpNil:
		return len(values) == 0
	case OpNotNil:
		return len(values) > 0
	}

	results := make([]bool, 0, len(f.Values))
	for _, want := range f.Values {
		results = append(results, f.compareAny(values, want))
	}

	if len(results) == 0 {
		return true
	}
	if f.Mode == ModeAnd {
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	}
	for _, r := range results {
		if r {
			return true
		}
	}
	return false
}

// compareAny applies the operator between the record values and one
// filter value.
func (f Filter) compareAny(values []string, want string) bool {
	switch f.Operator {
	case OpEq:
		for _, v := range values {
			if strings.EqualFold(v, want) {
				return true
			}
		}
		return false
	case OpNotEq:
		for _, v := range values {
			if strings.EqualFold(v, want) {
				return false
			}
		}
		return true
	case OpWildcard:
		for _, v := range values {
			if matchWildcard(strings.ToLower(want), strings.ToLower(v)) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// matchWildcard matches value against pattern where '*' spans any run of
// characters.
func matchWildcard(pattern, value string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == value
	}

	if !strings.HasPrefix(value, parts[0]) {
		return false
	}
	value = value[len(parts[0]):]

	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "" {
			continue
		}
		idx := strings.Index(value, parts[i])
		if idx < 0 {
			return false
		}
		value = value[idx+len(parts[i]):]
	}

	return strings.HasSuffix(value, parts[len(parts)-1])
}
