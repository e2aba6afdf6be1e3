package intent

import (
	"encoding/json"
	"strings"
)

// ExtractPlanObject recovers a JSON object from a model completion. Models
// tend to wrap JSON in prose or markdown fences, so after a strict parse of
// the whole text it retries on the span between the first '{' and the last
// '}'. It returns nil when no object can be recovered.
func ExtractPlanObject(text string) map[string]any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		if obj, ok := decodeObject(trimmed); ok {
			return obj
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 || start >= end {
		return nil
	}
	if obj, ok := decodeObject(text[start : end+1]); ok {
		return obj
	}
	return nil
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
