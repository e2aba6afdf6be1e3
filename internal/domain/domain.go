package domain

import "promptboard/internal/intent"

const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusBlocked    = "blocked"
	StatusDone       = "done"

	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

var (
	TaskStatuses   = []string{StatusTodo, StatusInProgress, StatusBlocked, StatusDone}
	TaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
)

// Task belongs to the user whose email is Owner; Owner never leaves the server.
type Task struct {
	ID         string  `json:"id"`
	Owner      string  `json:"-"`
	Title      string  `json:"title"`
	Status     string  `json:"status" enum:"todo,in_progress,blocked,done"`
	Priority   string  `json:"priority" enum:"low,medium,high,critical"`
	AssigneeID *string `json:"assigneeId,omitempty"`
	CreatedAt  string  `json:"createdAt" format:"date-time"`
	UpdatedAt  string  `json:"updatedAt" format:"date-time"`
}

type User struct {
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	CreatedAt    string `json:"createdAt" format:"date-time"`
}

type Session struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt" format:"date-time"`
	ExpiresAt string `json:"expiresAt" format:"date-time"`
}

// Processing methods recorded with each interpretation.
const (
	MethodLLM           = "llm"
	MethodLocal         = "local"
	MethodLocalFallback = "local-fallback"
)

type IntentRecord struct {
	ID               string      `json:"id"`
	Owner            string      `json:"-"`
	Prompt           string      `json:"prompt"`
	Plan             intent.Plan `json:"plan"`
	ProcessingMethod string      `json:"processingMethod" enum:"llm,local,local-fallback"`
	Applied          bool        `json:"applied"`
	CreatedAt        string      `json:"createdAt" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
