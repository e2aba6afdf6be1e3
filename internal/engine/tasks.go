package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"promptboard/internal/domain"
	"promptboard/internal/events"
	"promptboard/internal/intent"
	"promptboard/internal/repo"
)

// NormalizeTaskStatus accepts a task status or one of its spelled-out forms.
func NormalizeTaskStatus(v string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(v))
	switch s {
	case domain.StatusTodo, domain.StatusInProgress, domain.StatusBlocked, domain.StatusDone:
		return s, true
	case "to do", "to-do":
		return domain.StatusTodo, true
	case "in progress", "in-progress":
		return domain.StatusInProgress, true
	}
	return "", false
}

func NormalizeTaskPriority(v string) (string, bool) {
	p := strings.ToLower(strings.TrimSpace(v))
	for _, known := range domain.TaskPriorities {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// TaskCreateOptions are parameters for creating a task. Empty Status and
// Priority take the defaults.
type TaskCreateOptions struct {
	Owner      string
	Title      string
	Status     string
	Priority   string
	AssigneeID string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Task{}, invalid("title", "Missing 'title'")
	}
	status := domain.StatusTodo
	if opts.Status != "" {
		s, ok := NormalizeTaskStatus(opts.Status)
		if !ok {
			return domain.Task{}, invalid("status", "Invalid 'status'")
		}
		status = s
	}
	priority := domain.PriorityMedium
	if opts.Priority != "" {
		p, ok := NormalizeTaskPriority(opts.Priority)
		if !ok {
			return domain.Task{}, invalid("priority", "Invalid 'priority'")
		}
		priority = p
	}
	now := e.stamp()
	t := domain.Task{
		ID:        "t_" + uuid.NewString(),
		Owner:     opts.Owner,
		Title:     title,
		Status:    status,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if a := strings.TrimSpace(opts.AssigneeID); a != "" {
		t.AssigneeID = &a
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.writer().Append(ctx, tx, events.TaskCreated, "task", t.ID, opts.Owner, events.EventPayload{
		"title":    t.Title,
		"status":   t.Status,
		"priority": t.Priority,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskUpdateOptions is a patch; nil fields are left alone. An empty
// AssigneeID clears the assignee.
type TaskUpdateOptions struct {
	Owner      string
	ID         string
	Title      *string
	Status     *string
	Priority   *string
	AssigneeID *string
}

func (o TaskUpdateOptions) empty() bool {
	return o.Title == nil && o.Status == nil && o.Priority == nil && o.AssigneeID == nil
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		return domain.Task{}, invalid("id", "Missing 'id'")
	}
	if opts.empty() {
		return domain.Task{}, invalid("", "No updates provided")
	}
	payload := events.EventPayload{}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	t, err := e.Repo.GetTaskTx(ctx, tx, opts.Owner, id)
	if err != nil {
		return domain.Task{}, err
	}
	if opts.Title != nil {
		title := strings.TrimSpace(*opts.Title)
		if title == "" {
			return domain.Task{}, invalid("title", "Missing 'title'")
		}
		t.Title = title
		payload["title"] = title
	}
	if opts.Status != nil {
		s, ok := NormalizeTaskStatus(*opts.Status)
		if !ok {
			return domain.Task{}, invalid("status", "Invalid 'status'")
		}
		payload["from"] = t.Status
		payload["status"] = s
		t.Status = s
	}
	if opts.Priority != nil {
		p, ok := NormalizeTaskPriority(*opts.Priority)
		if !ok {
			return domain.Task{}, invalid("priority", "Invalid 'priority'")
		}
		t.Priority = p
		payload["priority"] = p
	}
	if opts.AssigneeID != nil {
		a := strings.TrimSpace(*opts.AssigneeID)
		if a == "" {
			t.AssigneeID = nil
		} else {
			t.AssigneeID = &a
		}
		payload["assigneeId"] = a
	}
	t.UpdatedAt = e.stamp()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.writer().Append(ctx, tx, events.TaskUpdated, "task", t.ID, opts.Owner, payload); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskListOptions filters the owner's tasks. Status takes a task status or a
// plan filter label such as "In Progress"; "All" means no filter.
type TaskListOptions struct {
	Owner      string
	Status     string
	AssigneeID string
	Limit      int
}

func (e Engine) ListTasks(ctx context.Context, opts TaskListOptions) ([]domain.Task, error) {
	status, err := taskStatusFilter(opts.Status)
	if err != nil {
		return nil, err
	}
	return e.Repo.ListTasks(ctx, repo.TaskFilters{
		Owner:      opts.Owner,
		Status:     status,
		AssigneeID: strings.TrimSpace(opts.AssigneeID),
		Limit:      opts.Limit,
	})
}

func taskStatusFilter(v string) (string, error) {
	if strings.TrimSpace(v) == "" {
		return "", nil
	}
	if s, ok := NormalizeTaskStatus(v); ok {
		return s, nil
	}
	fs, ok := intent.ParseFilterStatus(v)
	if !ok {
		return "", invalid("status", "Invalid 'status'")
	}
	s, _ := fs.TaskStatus()
	return s, nil
}

// BoardSummary counts the owner's tasks per status, zero-filled.
func (e Engine) BoardSummary(ctx context.Context, owner string) (map[string]int, error) {
	counts, err := e.Repo.CountTasksByStatus(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, s := range domain.TaskStatuses {
		if _, ok := counts[s]; !ok {
			counts[s] = 0
		}
	}
	return counts, nil
}
