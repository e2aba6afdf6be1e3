// Package intent turns free-text dashboard prompts into UI plans.
//
// A Plan is computed by a deterministic keyword classifier and, when a chat
// completion client is configured, reconciled with the model's proposal.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FilterStatus is the task-status filter a plan applies to the board.
type FilterStatus int

const (
	FilterAll FilterStatus = iota
	FilterTodo
	FilterInProgress
	FilterBlocked
	FilterDone
)

// FilterStatuses lists every status in declaration order.
var FilterStatuses = []FilterStatus{FilterAll, FilterTodo, FilterInProgress, FilterBlocked, FilterDone}

var filterLabels = map[FilterStatus]string{
	FilterAll:        "All",
	FilterTodo:       "Todo",
	FilterInProgress: "In Progress",
	FilterBlocked:    "Blocked",
	FilterDone:       "Done",
}

var filterTaskStatuses = map[FilterStatus]string{
	FilterTodo:       "todo",
	FilterInProgress: "in_progress",
	FilterBlocked:    "blocked",
	FilterDone:       "done",
}

// String returns the wire label ("All", "Todo", "In Progress", "Blocked", "Done").
func (s FilterStatus) String() string {
	if l, ok := filterLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("FilterStatus(%d)", int(s))
}

// Valid reports whether s is one of the five statuses.
func (s FilterStatus) Valid() bool {
	_, ok := filterLabels[s]
	return ok
}

// TaskStatus maps the filter onto the stored task status. FilterAll has no
// task status and returns ok=false.
func (s FilterStatus) TaskStatus() (string, bool) {
	st, ok := filterTaskStatuses[s]
	return st, ok
}

func (s FilterStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid filter status %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *FilterStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("filter status must be a string: %w", err)
	}
	parsed, ok := ParseFilterStatus(raw)
	if !ok {
		return fmt.Errorf("unknown filter status %q", raw)
	}
	*s = parsed
	return nil
}

// statusSynonyms is the vocabulary shared by the reconciler and JSON decoding.
// Keys are lowercased with inner whitespace collapsed.
var statusSynonyms = map[string]FilterStatus{
	"all":        FilterAll,
	"any":        FilterAll,
	"everything": FilterAll,

	"todo":    FilterTodo,
	"to do":   FilterTodo,
	"to-do":   FilterTodo,
	"backlog": FilterTodo,

	"in progress": FilterInProgress,
	"in-progress": FilterInProgress,
	"inprogress":  FilterInProgress,
	"in_progress": FilterInProgress,
	"wip":         FilterInProgress,
	"working":     FilterInProgress,
	"ongoing":     FilterInProgress,

	"blocked": FilterBlocked,
	"stuck":   FilterBlocked,
	"impeded": FilterBlocked,

	"done":      FilterDone,
	"completed": FilterDone,
	"complete":  FilterDone,
	"finished":  FilterDone,
	"finish":    FilterDone,
}

// ParseFilterStatus resolves a case and whitespace insensitive status name or
// synonym. ok is false when the value is not part of the vocabulary.
func ParseFilterStatus(v string) (FilterStatus, bool) {
	key := strings.Join(strings.Fields(strings.ToLower(v)), " ")
	if key == "" {
		return FilterAll, false
	}
	s, ok := statusSynonyms[key]
	return s, ok
}

// Plan is the UI decision record for one prompt. It is a value type and is
// never mutated after construction.
type Plan struct {
	ShowKanban           bool         `json:"showKanban"`
	FilterStatus         FilterStatus `json:"filterStatus"`
	ShowPrioritySelector bool         `json:"showPrioritySelector"`
	ShowTeamAssignment   bool         `json:"showTeamAssignment"`
}

// DefaultPlan is what the model is told to prefer when unsure.
var DefaultPlan = Plan{ShowKanban: true, FilterStatus: FilterAll}
