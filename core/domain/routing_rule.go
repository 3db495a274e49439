package domain

import (
	"fmt"
	"strconv"
	"time"
)

// =============================================================================
// Routing Rule
// =============================================================================

// RoutingRule is a tenant-configured condition → action mapping
// evaluated before the routing heuristics. Conditions are parsed once
// at load time into Matcher variants; evaluation never inspects raw
// operator maps.
type RoutingRule struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`

	// Priority orders evaluation, higher first. Ties keep list order.
	Priority int `json:"priority"`

	Conditions []RuleCondition `json:"conditions"`
	Actions    RuleActions     `json:"actions"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether every condition holds for the ticket.
// A rule with no conditions matches nothing.
func (r *RoutingRule) Matches(t *Ticket) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		value, ok := t.Field(c.Field)
		if !ok || !c.Matcher.Match(value) {
			return false
		}
	}
	return true
}

// RuleActions are applied when a rule matches.
type RuleActions struct {
	AssignTeam  string         `json:"assign_team,omitempty"`
	AssignUser  string         `json:"assign_user,omitempty"`
	SetPriority TicketPriority `json:"set_priority,omitempty"`
	AddTags     []string       `json:"add_tags,omitempty"`
}

// RuleCondition binds a ticket field to a matcher.
type RuleCondition struct {
	Field   string  `json:"field"`
	Matcher Matcher `json:"matcher"`
}

// =============================================================================
// Condition Matchers
// =============================================================================

// MatcherKind tags the condition matcher variant.
type MatcherKind string

const (
	MatchEquals    MatcherKind = "equals"
	MatchNotEquals MatcherKind = "not_equals"
	MatchOneOf     MatcherKind = "one_of"
	MatchRange     MatcherKind = "range"
)

// Matcher is the tagged-variant condition AST: Equals | NotEquals |
// OneOf | Range. Exactly the fields implied by Kind are set; anything
// else is rejected at parse time.
type Matcher struct {
	Kind MatcherKind `json:"kind"`

	// Equals / NotEquals
	Value string `json:"value,omitempty"`

	// OneOf
	Values []string `json:"values,omitempty"`

	// Range bounds; nil means the bound is absent.
	GT  *float64 `json:"gt,omitempty"`
	GTE *float64 `json:"gte,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

// Match evaluates the matcher against a ticket field value.
func (m Matcher) Match(value any) bool {
	switch m.Kind {
	case MatchEquals:
		return stringify(value) == m.Value
	case MatchNotEquals:
		return stringify(value) != m.Value
	case MatchOneOf:
		s := stringify(value)
		for _, v := range m.Values {
			if s == v {
				return true
			}
		}
		return false
	case MatchRange:
		n, ok := numeric(value)
		if !ok {
			return false
		}
		if m.GT != nil && !(n > *m.GT) {
			return false
		}
		if m.GTE != nil && !(n >= *m.GTE) {
			return false
		}
		if m.LT != nil && !(n < *m.LT) {
			return false
		}
		if m.LTE != nil && !(n <= *m.LTE) {
			return false
		}
		return m.GT != nil || m.GTE != nil || m.LT != nil || m.LTE != nil
	default:
		return false
	}
}

// =============================================================================
// Condition Parsing
// =============================================================================

// Comparison operator keys accepted inside a condition map.
const (
	opGT  = "gt"
	opGTE = "gte"
	opLT  = "lt"
	opLTE = "lte"
	opNE  = "ne"
	opIn  = "in"
)

// ParseConditions converts a raw field → matcher-spec map (the stored
// rule format) into the condition AST. The raw value is either a bare
// scalar (exact match), a list (one-of), or a map of operator keys.
// Unsupported operators fail here, at rule load time, not during
// evaluation.
func ParseConditions(raw map[string]any) ([]RuleCondition, error) {
	conds := make([]RuleCondition, 0, len(raw))
	for field, spec := range raw {
		m, err := parseMatcher(spec)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", field, err)
		}
		conds = append(conds, RuleCondition{Field: field, Matcher: m})
	}
	return conds, nil
}

func parseMatcher(spec any) (Matcher, error) {
	switch v := spec.(type) {
	case map[string]any:
		return parseOperatorMap(v)
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			values = append(values, stringify(item))
		}
		if len(values) == 0 {
			return Matcher{}, fmt.Errorf("one-of list is empty")
		}
		return Matcher{Kind: MatchOneOf, Values: values}, nil
	case nil:
		return Matcher{}, fmt.Errorf("condition value is null")
	default:
		return Matcher{Kind: MatchEquals, Value: stringify(v)}, nil
	}
}

func parseOperatorMap(spec map[string]any) (Matcher, error) {
	if len(spec) == 0 {
		return Matcher{}, fmt.Errorf("operator map is empty")
	}

	// ne and in are standalone operators, not range bounds.
	if raw, ok := spec[opNE]; ok {
		if len(spec) > 1 {
			return Matcher{}, fmt.Errorf("ne cannot be combined with other operators")
		}
		return Matcher{Kind: MatchNotEquals, Value: stringify(raw)}, nil
	}
	if raw, ok := spec[opIn]; ok {
		if len(spec) > 1 {
			return Matcher{}, fmt.Errorf("in cannot be combined with other operators")
		}
		list, ok := raw.([]any)
		if !ok || len(list) == 0 {
			return Matcher{}, fmt.Errorf("in requires a non-empty list")
		}
		values := make([]string, 0, len(list))
		for _, item := range list {
			values = append(values, stringify(item))
		}
		return Matcher{Kind: MatchOneOf, Values: values}, nil
	}

	m := Matcher{Kind: MatchRange}
	for op, raw := range spec {
		n, ok := numeric(raw)
		if !ok {
			return Matcher{}, fmt.Errorf("operator %q requires a numeric value", op)
		}
		bound := n
		switch op {
		case opGT:
			m.GT = &bound
		case opGTE:
			m.GTE = &bound
		case opLT:
			m.LT = &bound
		case opLTE:
			m.LTE = &bound
		default:
			return Matcher{}, fmt.Errorf("unsupported operator %q", op)
		}
	}
	return m, nil
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
