package intent

// modelPlan is the model's proposal with every field optional. A nil field
// means the model gave no usable value for it.
type modelPlan struct {
	ShowKanban           *bool
	FilterStatus         *string
	ShowPrioritySelector *bool
	ShowTeamAssignment   *bool
}

func decodeModelPlan(obj map[string]any) modelPlan {
	return modelPlan{
		ShowKanban:           boolField(obj, "showKanban"),
		FilterStatus:         stringField(obj, "filterStatus"),
		ShowPrioritySelector: boolField(obj, "showPrioritySelector"),
		ShowTeamAssignment:   boolField(obj, "showTeamAssignment"),
	}
}

func boolField(obj map[string]any, key string) *bool {
	v, ok := obj[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

func stringField(obj map[string]any, key string) *string {
	v, ok := obj[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// Reconcile merges the model's proposal with the heuristic plan for the same
// prompt. Booleans follow the model whenever it sent a real boolean. The
// status follows the model unless the model's value is unknown or resolves to
// All while the heuristic found a concrete status. A nil model object yields
// the heuristic plan unchanged.
func Reconcile(model map[string]any, heuristic Plan) Plan {
	if model == nil {
		return heuristic
	}
	m := decodeModelPlan(model)
	return Plan{
		ShowKanban:           pickBool(m.ShowKanban, heuristic.ShowKanban),
		FilterStatus:         pickStatus(m.FilterStatus, heuristic.FilterStatus),
		ShowPrioritySelector: pickBool(m.ShowPrioritySelector, heuristic.ShowPrioritySelector),
		ShowTeamAssignment:   pickBool(m.ShowTeamAssignment, heuristic.ShowTeamAssignment),
	}
}

func pickBool(model *bool, fallback bool) bool {
	if model == nil {
		return fallback
	}
	return *model
}

func pickStatus(model *string, fallback FilterStatus) FilterStatus {
	if model == nil {
		return fallback
	}
	s, ok := ParseFilterStatus(*model)
	if !ok {
		return fallback
	}
	if s == FilterAll && fallback != FilterAll {
		return fallback
	}
	return s
}
