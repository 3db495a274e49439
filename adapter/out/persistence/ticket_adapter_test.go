package persistence

import (
	"testing"
)

// TestTagsParamNeverBindsNull tests that the tags bind value is a
// present array even for an empty decision: a NULL bind propagates
// through the array concat and erases the existing tags column.
func TestTagsParamNeverBindsNull(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{name: "nil tag list", tags: nil, want: "{}"},
		{name: "empty tag list", tags: []string{}, want: "{}"},
		{name: "single tag", tags: []string{"escalated"}, want: `{"escalated"}`},
		{name: "order preserved", tags: []string{"vip", "escalated"}, want: `{"vip","escalated"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tagsParam(tt.tags).Value()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v == nil {
				t.Fatal("tag list bound as SQL NULL")
			}
			got, ok := v.(string)
			if !ok {
				t.Fatalf("expected string bind value, got %T", v)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
