package intent

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestExtractPlanObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]any
	}{
		{"bare object", `{"showKanban":true}`, map[string]any{"showKanban": true}},
		{"surrounding whitespace", "  \n{\"filterStatus\":\"Done\"}\n ", map[string]any{"filterStatus": "Done"}},
		{"markdown fence", "Sure! ```json\n{\"showKanban\":false}\n```", map[string]any{"showKanban": false}},
		{"prose on both sides", `Here you go: {"showTeamAssignment": true} hope that helps`, map[string]any{"showTeamAssignment": true}},
		{"nested object", `{"a":{"b":1}}`, map[string]any{"a": map[string]any{"b": float64(1)}}},
		{"empty", "", nil},
		{"no braces", "I cannot help with that", nil},
		{"reversed braces", "} nope {", nil},
		{"invalid json", "{not json}", nil},
		{"array", `[{"showKanban":true}]`, map[string]any{"showKanban": true}},
		{"two objects", `{"a":1} and {"b":2}`, nil},
		{"null literal", "null", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPlanObject(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ExtractPlanObject(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestExtractPlanObject_BracesInsideStrings(t *testing.T) {
	got := ExtractPlanObject(`{"note":"use {braces}","showKanban":true}`)
	assert.Equal(t, map[string]any{"note": "use {braces}", "showKanban": true}, got)
}

// TestProperty04_ExtractRecoversWrappedPlan verifies a plan-shaped object
// survives arbitrary prose and fences around it.
func TestProperty04_ExtractRecoversWrappedPlan(t *testing.T) {
	labels := make([]string, 0, len(FilterStatuses))
	for _, s := range FilterStatuses {
		labels = append(labels, s.String())
	}
	rapid.Check(t, func(rt *rapid.T) {
		obj := map[string]any{
			"showKanban":           rapid.Bool().Draw(rt, "kanban"),
			"filterStatus":         rapid.SampledFrom(labels).Draw(rt, "status"),
			"showPrioritySelector": rapid.Bool().Draw(rt, "priority"),
			"showTeamAssignment":   rapid.Bool().Draw(rt, "team"),
		}
		data, err := json.Marshal(obj)
		if err != nil {
			rt.Fatalf("marshal: %v", err)
		}
		prefix := rapid.StringMatching("[a-zA-Z .,!?:\\n`]{0,40}").Draw(rt, "prefix")
		suffix := rapid.StringMatching("[a-zA-Z .,!?:\\n`]{0,40}").Draw(rt, "suffix")
		body := string(data)
		if rapid.Bool().Draw(rt, "fenced") {
			body = "```json\n" + body + "\n```"
		}
		text := prefix + body + suffix

		got := ExtractPlanObject(text)
		if diff := cmp.Diff(obj, got); diff != "" {
			rt.Fatalf("ExtractPlanObject(%q) mismatch (-want +got):\n%s", text, diff)
		}
	})
}
