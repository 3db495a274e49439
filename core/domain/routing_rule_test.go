package domain

import (
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

// TestMatcherMatch tests each condition matcher variant.
func TestMatcherMatch(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		value   any
		want    bool
	}{
		{
			name:    "equals matches identical string",
			matcher: Matcher{Kind: MatchEquals, Value: "billing"},
			value:   "billing",
			want:    true,
		},
		{
			name:    "equals rejects different string",
			matcher: Matcher{Kind: MatchEquals, Value: "billing"},
			value:   "technical",
			want:    false,
		},
		{
			name:    "not_equals matches different string",
			matcher: Matcher{Kind: MatchNotEquals, Value: "low"},
			value:   "high",
			want:    true,
		},
		{
			name:    "not_equals rejects identical string",
			matcher: Matcher{Kind: MatchNotEquals, Value: "low"},
			value:   "low",
			want:    false,
		},
		{
			name:    "one_of matches member",
			matcher: Matcher{Kind: MatchOneOf, Values: []string{"high", "urgent"}},
			value:   "urgent",
			want:    true,
		},
		{
			name:    "one_of rejects non-member",
			matcher: Matcher{Kind: MatchOneOf, Values: []string{"high", "urgent"}},
			value:   "medium",
			want:    false,
		},
		{
			name:    "range lower bound inclusive",
			matcher: Matcher{Kind: MatchRange, GTE: floatPtr(0.5)},
			value:   0.5,
			want:    true,
		},
		{
			name:    "range lower bound exclusive",
			matcher: Matcher{Kind: MatchRange, GT: floatPtr(0.5)},
			value:   0.5,
			want:    false,
		},
		{
			name:    "range upper bound exclusive",
			matcher: Matcher{Kind: MatchRange, LT: floatPtr(0.0)},
			value:   -0.7,
			want:    true,
		},
		{
			name:    "range both bounds hold",
			matcher: Matcher{Kind: MatchRange, GTE: floatPtr(0.2), LTE: floatPtr(0.8)},
			value:   0.5,
			want:    true,
		},
		{
			name:    "range both bounds violated on one side",
			matcher: Matcher{Kind: MatchRange, GTE: floatPtr(0.2), LTE: floatPtr(0.8)},
			value:   0.9,
			want:    false,
		},
		{
			name:    "range with no bounds never matches",
			matcher: Matcher{Kind: MatchRange},
			value:   0.5,
			want:    false,
		},
		{
			name:    "range rejects non-numeric value",
			matcher: Matcher{Kind: MatchRange, GT: floatPtr(0)},
			value:   "not a number",
			want:    false,
		},
		{
			name:    "range accepts numeric string",
			matcher: Matcher{Kind: MatchRange, GT: floatPtr(0)},
			value:   "0.7",
			want:    true,
		},
		{
			name:    "unknown kind never matches",
			matcher: Matcher{Kind: MatcherKind("regex"), Value: ".*"},
			value:   "anything",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.matcher.Match(tt.value); got != tt.want {
				t.Errorf("Match(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

// TestParseConditions tests the stored-format → AST conversion.
func TestParseConditions(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantErr bool
		check   func(t *testing.T, conds []RuleCondition)
	}{
		{
			name: "bare scalar becomes equals",
			raw:  map[string]any{"category": "billing"},
			check: func(t *testing.T, conds []RuleCondition) {
				m := conds[0].Matcher
				if m.Kind != MatchEquals || m.Value != "billing" {
					t.Errorf("expected equals billing, got %+v", m)
				}
			},
		},
		{
			name: "list becomes one_of",
			raw:  map[string]any{"priority": []any{"high", "urgent"}},
			check: func(t *testing.T, conds []RuleCondition) {
				m := conds[0].Matcher
				if m.Kind != MatchOneOf || len(m.Values) != 2 {
					t.Errorf("expected one_of with 2 values, got %+v", m)
				}
			},
		},
		{
			name: "operator map becomes range",
			raw:  map[string]any{"sentiment_score": map[string]any{"lt": -0.5}},
			check: func(t *testing.T, conds []RuleCondition) {
				m := conds[0].Matcher
				if m.Kind != MatchRange || m.LT == nil || *m.LT != -0.5 {
					t.Errorf("expected range lt -0.5, got %+v", m)
				}
			},
		},
		{
			name: "ne operator becomes not_equals",
			raw:  map[string]any{"status": map[string]any{"ne": "closed"}},
			check: func(t *testing.T, conds []RuleCondition) {
				m := conds[0].Matcher
				if m.Kind != MatchNotEquals || m.Value != "closed" {
					t.Errorf("expected not_equals closed, got %+v", m)
				}
			},
		},
		{
			name: "in operator becomes one_of",
			raw:  map[string]any{"category": map[string]any{"in": []any{"bug", "technical"}}},
			check: func(t *testing.T, conds []RuleCondition) {
				m := conds[0].Matcher
				if m.Kind != MatchOneOf || len(m.Values) != 2 {
					t.Errorf("expected one_of with 2 values, got %+v", m)
				}
			},
		},
		{
			name:    "unsupported operator fails at parse time",
			raw:     map[string]any{"subject": map[string]any{"regex": ".*refund.*"}},
			wantErr: true,
		},
		{
			name:    "ne combined with range is rejected",
			raw:     map[string]any{"priority": map[string]any{"ne": "low", "gt": 1}},
			wantErr: true,
		},
		{
			name:    "non-numeric range bound is rejected",
			raw:     map[string]any{"ai_confidence": map[string]any{"gt": "high"}},
			wantErr: true,
		},
		{
			name:    "empty operator map is rejected",
			raw:     map[string]any{"category": map[string]any{}},
			wantErr: true,
		},
		{
			name:    "null condition is rejected",
			raw:     map[string]any{"category": nil},
			wantErr: true,
		},
		{
			name:    "empty list is rejected",
			raw:     map[string]any{"priority": []any{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds, err := ParseConditions(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got conditions %+v", conds)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(conds) != len(tt.raw) {
				t.Fatalf("expected %d conditions, got %d", len(tt.raw), len(conds))
			}
			if tt.check != nil {
				tt.check(t, conds)
			}
		})
	}
}

// TestRuleMatches tests whole-rule evaluation against a ticket.
func TestRuleMatches(t *testing.T) {
	ticket := &Ticket{
		ID:             "t-1",
		TenantID:       "acme",
		Subject:        "Invoice question",
		Category:       CategoryBilling,
		Priority:       PriorityHigh,
		Sentiment:      SentimentNegative,
		SentimentScore: -0.3,
	}

	tests := []struct {
		name string
		rule RoutingRule
		want bool
	}{
		{
			name: "all conditions hold",
			rule: RoutingRule{Conditions: []RuleCondition{
				{Field: "category", Matcher: Matcher{Kind: MatchEquals, Value: "billing"}},
				{Field: "priority", Matcher: Matcher{Kind: MatchOneOf, Values: []string{"high", "urgent"}}},
			}},
			want: true,
		},
		{
			name: "one failing condition fails the rule",
			rule: RoutingRule{Conditions: []RuleCondition{
				{Field: "category", Matcher: Matcher{Kind: MatchEquals, Value: "billing"}},
				{Field: "sentiment_score", Matcher: Matcher{Kind: MatchRange, LT: floatPtr(-0.5)}},
			}},
			want: false,
		},
		{
			name: "no conditions never matches",
			rule: RoutingRule{},
			want: false,
		},
		{
			name: "unknown field never matches",
			rule: RoutingRule{Conditions: []RuleCondition{
				{Field: "channel", Matcher: Matcher{Kind: MatchEquals, Value: "email"}},
			}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(ticket); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestParseDefaults tests unknown-label normalization.
func TestParseDefaults(t *testing.T) {
	if got := ParseCategory("spam"); got != CategoryGeneral {
		t.Errorf("ParseCategory(spam) = %q, want %q", got, CategoryGeneral)
	}
	if got := ParseCategory("billing"); got != CategoryBilling {
		t.Errorf("ParseCategory(billing) = %q, want %q", got, CategoryBilling)
	}
	if got := ParsePriority("critical"); got != PriorityMedium {
		t.Errorf("ParsePriority(critical) = %q, want %q", got, PriorityMedium)
	}
	if got := ParseSentiment("angry"); got != SentimentNeutral {
		t.Errorf("ParseSentiment(angry) = %q, want %q", got, SentimentNeutral)
	}
	if got := ParseSentiment("very_negative"); got != SentimentVeryNegative {
		t.Errorf("ParseSentiment(very_negative) = %q, want %q", got, SentimentVeryNegative)
	}
}
