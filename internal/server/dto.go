package server

import (
	"promptboard/internal/domain"
	"promptboard/internal/engine/auth"
	"promptboard/internal/intent"
	"promptboard/internal/llm"
)

// Request payloads

type InterpretRequest struct {
	Input  any    `json:"input,omitempty" doc:"Natural-language request; must be a non-empty string" example:"show blocked tasks"`
	Prompt any    `json:"prompt,omitempty" doc:"Legacy alias for input"`
	Mode   string `json:"mode,omitempty" enum:"llm,local" doc:"Force a processing type"`
}

// rawInput applies the legacy fallback: input wins unless absent or null.
func (r InterpretRequest) rawInput() any {
	if r.Input != nil {
		return r.Input
	}
	return r.Prompt
}

type CredentialsRequest struct {
	Email    string `json:"email" example:"ada@example.com"`
	Password string `json:"password" example:"hunter22"`
}

type CreateTaskRequest struct {
	Title      string  `json:"title,omitempty"`
	Status     string  `json:"status,omitempty" doc:"todo, in_progress, blocked, done (\"to do\" and \"in progress\" accepted)"`
	Priority   string  `json:"priority,omitempty" enum:"low,medium,high,critical"`
	AssigneeID *string `json:"assigneeId,omitempty"`
	AssignedTo *string `json:"assignedTo,omitempty" doc:"Legacy alias for assigneeId"`
}

func (r CreateTaskRequest) assignee() string {
	if r.AssigneeID != nil {
		return *r.AssigneeID
	}
	if r.AssignedTo != nil {
		return *r.AssignedTo
	}
	return ""
}

type UpdateTaskRequest struct {
	Title      *string `json:"title,omitempty"`
	Status     *string `json:"status,omitempty"`
	Priority   *string `json:"priority,omitempty"`
	AssigneeID *string `json:"assigneeId,omitempty" doc:"Empty string clears the assignee"`
	AssignedTo *string `json:"assignedTo,omitempty"`
}

func (r UpdateTaskRequest) assignee() *string {
	if r.AssigneeID != nil {
		return r.AssigneeID
	}
	return r.AssignedTo
}

type ChatRequest struct {
	Messages []llm.Message `json:"messages,omitempty" maxItems:"100"`
	Prompt   string        `json:"prompt,omitempty"`
}

// Response payloads

type HealthResponse struct {
	OK        bool   `json:"ok"`
	Timestamp string `json:"timestamp" format:"date-time"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type PlanResponse struct {
	ShowKanban           bool   `json:"showKanban"`
	FilterStatus         string `json:"filterStatus" enum:"All,Todo,In Progress,Blocked,Done"`
	ShowPrioritySelector bool   `json:"showPrioritySelector"`
	ShowTeamAssignment   bool   `json:"showTeamAssignment"`
}

func planResponse(p intent.Plan) PlanResponse {
	return PlanResponse{
		ShowKanban:           p.ShowKanban,
		FilterStatus:         p.FilterStatus.String(),
		ShowPrioritySelector: p.ShowPrioritySelector,
		ShowTeamAssignment:   p.ShowTeamAssignment,
	}
}

// InterpretResponse is the plan flattened with processing metadata.
type InterpretResponse struct {
	PlanResponse
	Timestamp        string `json:"timestamp" format:"date-time"`
	InputLength      int    `json:"inputLength"`
	ProcessingMethod string `json:"processingMethod" enum:"llm,local,local-fallback"`
	HistoryID        string `json:"historyId,omitempty"`
}

type ProcessingType struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}

type InterpretOptionsResponse struct {
	ProcessingTypes []ProcessingType `json:"processingTypes"`
	DefaultType     string           `json:"defaultType"`
	MaxInputLength  int              `json:"maxInputLength"`
	Examples        []string         `json:"examples"`
}

type SessionResponse struct {
	OK      bool         `json:"ok"`
	Session auth.Session `json:"session"`
}

type MeResponse struct {
	OK    bool   `json:"ok"`
	Email string `json:"email"`
}

type TaskResponse struct {
	OK   bool        `json:"ok"`
	Task domain.Task `json:"task"`
}

type TaskListResponse struct {
	OK    bool          `json:"ok"`
	Tasks []domain.Task `json:"tasks"`
}

type TaskSummaryResponse struct {
	OK     bool           `json:"ok"`
	Counts map[string]int `json:"counts"`
}

type HistoryEntry struct {
	ID               string       `json:"id"`
	Prompt           string       `json:"prompt"`
	Plan             PlanResponse `json:"plan"`
	ProcessingMethod string       `json:"processingMethod" enum:"llm,local,local-fallback"`
	Applied          bool         `json:"applied"`
	CreatedAt        string       `json:"createdAt" format:"date-time"`
}

func historyEntry(rec domain.IntentRecord) HistoryEntry {
	return HistoryEntry{
		ID:               rec.ID,
		Prompt:           rec.Prompt,
		Plan:             planResponse(rec.Plan),
		ProcessingMethod: rec.ProcessingMethod,
		Applied:          rec.Applied,
		CreatedAt:        rec.CreatedAt,
	}
}

type HistoryResponse struct {
	OK    bool           `json:"ok"`
	Items []HistoryEntry `json:"items"`
}

type HistoryEntryResponse struct {
	OK   bool         `json:"ok"`
	Item HistoryEntry `json:"item"`
}

type ChatResponse struct {
	Data any `json:"data" doc:"Upstream chat completion body, unchanged"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    any    `json:"payload"`
}

type EventListResponse struct {
	Items []EventResponse `json:"items"`
}
