package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptboard/internal/config"
	"promptboard/internal/db"
	"promptboard/internal/domain"
	"promptboard/internal/engine"
	"promptboard/internal/engine/auth"
	"promptboard/internal/intent"
	"promptboard/internal/llm"
	"promptboard/internal/migrate"
	"promptboard/internal/repo"
)

const owner = "ada@example.com"

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Secret = "test-secret"
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: ctx}
}

type stubChat struct {
	calls   atomic.Int32
	content string
	err     error
	lastReq llm.ChatRequest
}

func (s *stubChat) CreateChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.calls.Add(1)
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	content, _ := json.Marshal(s.content)
	raw := []byte(fmt.Sprintf(`{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":%s}}]}`, content))
	return &llm.ChatResponse{
		ID:      "cmpl-1",
		Choices: []llm.Choice{{Message: llm.ResponseMessage{Role: llm.RoleAssistant, Content: content}}},
		Raw:     raw,
	}, nil
}

func TestCreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Owner: owner, Title: "  Write docs  "})
	require.NoError(t, err)
	assert.Equal(t, "Write docs", task.Title)
	assert.Equal(t, domain.StatusTodo, task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Nil(t, task.AssigneeID)
	assert.Regexp(t, `^t_[0-9a-f-]{36}$`, task.ID)
	assert.Equal(t, "2024-01-01T00:00:00Z", task.CreatedAt)

	got, err := env.Engine.Repo.GetTask(env.Ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestCreateTaskAliasesAndValidation(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Owner: owner, Title: "Ship", Status: "In Progress", Priority: "HIGH", AssigneeID: " bob ",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, task.Status)
	assert.Equal(t, domain.PriorityHigh, task.Priority)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, "bob", *task.AssigneeID)

	cases := []engine.TaskCreateOptions{
		{Owner: owner, Title: "   "},
		{Owner: owner, Title: "x", Status: "review"},
		{Owner: owner, Title: "x", Priority: "urgent"},
	}
	for _, c := range cases {
		_, err := env.Engine.CreateTask(env.Ctx, c)
		assert.ErrorIs(t, err, engine.ErrInvalid, "%+v", c)
	}
}

func TestUpdateTaskPatch(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Owner: owner, Title: "Fix bug", AssigneeID: "bob"})
	require.NoError(t, err)

	status := "blocked"
	updated, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{Owner: owner, ID: task.ID, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, updated.Status)
	assert.Equal(t, domain.PriorityMedium, updated.Priority)
	require.NotNil(t, updated.AssigneeID)

	none := ""
	updated, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{Owner: owner, ID: task.ID, AssigneeID: &none})
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)
	assert.Equal(t, domain.StatusBlocked, updated.Status)

	_, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{Owner: owner, ID: task.ID})
	assert.ErrorIs(t, err, engine.ErrInvalid)

	bad := "nope"
	_, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{Owner: owner, ID: task.ID, Priority: &bad})
	assert.ErrorIs(t, err, engine.ErrInvalid)
}

func TestTasksAreOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Owner: owner, Title: "Mine"})
	require.NoError(t, err)

	status := "done"
	_, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{Owner: "eve@example.com", ID: task.ID, Status: &status})
	assert.ErrorIs(t, err, repo.ErrNotFound)

	tasks, err := env.Engine.ListTasks(env.Ctx, engine.TaskListOptions{Owner: "eve@example.com"})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)
}

func TestListTasksAcceptsPlanFilterLabels(t *testing.T) {
	env := newTestEnv(t)
	for _, s := range []string{"todo", "in_progress", "in_progress", "done"} {
		_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Owner: owner, Title: s, Status: s})
		require.NoError(t, err)
	}
	cases := map[string]int{
		"":            4,
		"All":         4,
		"In Progress": 2,
		"in_progress": 2,
		"WIP":         2,
		"completed":   1,
		"to do":       1,
		"blocked":     0,
	}
	for filter, want := range cases {
		tasks, err := env.Engine.ListTasks(env.Ctx, engine.TaskListOptions{Owner: owner, Status: filter})
		require.NoError(t, err, filter)
		assert.Len(t, tasks, want, filter)
	}
	_, err := env.Engine.ListTasks(env.Ctx, engine.TaskListOptions{Owner: owner, Status: "someday"})
	assert.ErrorIs(t, err, engine.ErrInvalid)

	summary, err := env.Engine.BoardSummary(env.Ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"todo": 1, "in_progress": 2, "blocked": 0, "done": 1}, summary)
}

func TestTaskEventsRecorded(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Owner: owner, Title: "Audit me"})
	require.NoError(t, err)
	status := "done"
	_, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{Owner: owner, ID: task.ID, Status: &status})
	require.NoError(t, err)

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilters{EntityID: task.ID})
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "task.update", evts[0].Type)
	assert.Equal(t, "task.create", evts[1].Type)
	assert.Equal(t, owner, evts[0].ActorID)
	assert.JSONEq(t, `{"from":"todo","status":"done"}`, evts[0].Payload)
}

func TestInterpretLocalWithoutChat(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "  show blocked tasks  "})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodLocal, res.ProcessingMethod)
	assert.Equal(t, intent.FilterBlocked, res.Plan.FilterStatus)
	assert.True(t, res.Plan.ShowKanban)
	assert.Equal(t, "show blocked tasks", res.Prompt)
	assert.Equal(t, 18, res.InputLength)
	assert.Equal(t, "2024-01-01T00:00:00Z", res.Timestamp)
	assert.Empty(t, res.HistoryID)
}

func TestInterpretUsesModelAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	chat := &stubChat{content: `{"showKanban":true,"filterStatus":"Done","showPrioritySelector":true,"showTeamAssignment":false}`}
	env.Engine.Interpreter.Chat = chat

	res, err := env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "what did we finish", Owner: owner})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodLLM, res.ProcessingMethod)
	assert.Equal(t, intent.FilterDone, res.Plan.FilterStatus)
	assert.True(t, res.Plan.ShowPrioritySelector)
	assert.EqualValues(t, 1, chat.calls.Load())
	require.NotEmpty(t, res.HistoryID)

	history, err := env.Engine.ListHistory(env.Ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.HistoryID, history[0].ID)
	assert.Equal(t, res.Plan, history[0].Plan)
	assert.Equal(t, "what did we finish", history[0].Prompt)
	assert.False(t, history[0].Applied)

	others, err := env.Engine.ListHistory(env.Ctx, "eve@example.com", 0)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestInterpretRecordsClassifiedText(t *testing.T) {
	env := newTestEnv(t)
	chat := &stubChat{content: `{"filterStatus":"Blocked"}`}
	env.Engine.Interpreter.Chat = chat

	res, err := env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "  what is stück?\n", Owner: owner})
	require.NoError(t, err)
	assert.Equal(t, "what is stück?", res.Prompt)
	assert.Equal(t, 14, res.InputLength)
	require.Len(t, chat.lastReq.Messages, 2)
	assert.Equal(t, res.Prompt, chat.lastReq.Messages[1].Content)

	history, err := env.Engine.ListHistory(env.Ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.Prompt, history[0].Prompt)

	env.Engine.Interpreter.MaxInputLength = 5
	_, err = env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "show blocked"})
	assert.ErrorIs(t, err, intent.ErrInputTooLong)
	assert.EqualValues(t, 1, chat.calls.Load())
}

func TestInterpretLocalModeSkipsModel(t *testing.T) {
	env := newTestEnv(t)
	chat := &stubChat{content: `{}`}
	env.Engine.Interpreter.Chat = chat

	res, err := env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "show done", Mode: "local"})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodLocal, res.ProcessingMethod)
	assert.Zero(t, chat.calls.Load())

	env.Engine.Config.Interpret.Mode = config.ModeHeuristic
	res, err = env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "show done"})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodLocal, res.ProcessingMethod)
	assert.Zero(t, chat.calls.Load())

	_, err = env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "show done", Mode: "psychic"})
	assert.ErrorIs(t, err, engine.ErrInvalid)
}

func TestInterpretUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Interpreter.Chat = &stubChat{err: &llm.StatusError{Provider: "azure", StatusCode: 503, Message: "busy", Err: llm.ErrUnavailable}}

	_, err := env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "show blocked", Owner: owner})
	var uerr *intent.UpstreamError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, 503, uerr.StatusCode)

	history, err := env.Engine.ListHistory(env.Ctx, owner, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	env.Engine.Config.Interpret.FallbackOnUpstreamError = true
	res, err := env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "show blocked", Owner: owner})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodLocalFallback, res.ProcessingMethod)
	assert.Equal(t, intent.FilterBlocked, res.Plan.FilterStatus)
}

func TestInterpretInputErrors(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "   "})
	assert.ErrorIs(t, err, intent.ErrMissingInput)

	env.Engine.Interpreter.MaxInputLength = 10
	_, err = env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "show me every blocked task"})
	assert.ErrorIs(t, err, intent.ErrInputTooLong)
}

func TestHistoryApplyAndDelete(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: "show todo", Owner: owner})
	require.NoError(t, err)

	rec, err := env.Engine.MarkApplied(env.Ctx, owner, res.HistoryID)
	require.NoError(t, err)
	assert.True(t, rec.Applied)

	_, err = env.Engine.MarkApplied(env.Ctx, "eve@example.com", res.HistoryID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, env.Engine.DeleteHistory(env.Ctx, owner, res.HistoryID))
	assert.ErrorIs(t, env.Engine.DeleteHistory(env.Ctx, owner, res.HistoryID), repo.ErrNotFound)

	history, err := env.Engine.ListHistory(env.Ctx, owner, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryLimit(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < engine.MaxHistory+5; i++ {
		_, err := env.Engine.Interpret(env.Ctx, engine.InterpretOptions{Input: fmt.Sprintf("show todo %d", i), Owner: owner})
		require.NoError(t, err)
	}
	history, err := env.Engine.ListHistory(env.Ctx, owner, 500)
	require.NoError(t, err)
	assert.Len(t, history, engine.MaxHistory)
	assert.Equal(t, fmt.Sprintf("show todo %d", engine.MaxHistory+4), history[0].Prompt)

	history, err = env.Engine.ListHistory(env.Ctx, owner, 3)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestChatValidation(t *testing.T) {
	env := newTestEnv(t)
	msgs, err := env.Engine.ChatMessages(engine.ChatOptions{Prompt: "  Say hello "})
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{{Role: "user", Content: "Say hello"}}, msgs)

	tooMany := make([]llm.Message, 21)
	for i := range tooMany {
		tooMany[i] = llm.Message{Role: "user", Content: "hi"}
	}
	long := make([]rune, engine.MaxChatContentLength+1)
	for i := range long {
		long[i] = 'a'
	}
	bad := []engine.ChatOptions{
		{},
		{Prompt: "   "},
		{Prompt: string(long)},
		{Messages: []llm.Message{}},
		{Messages: tooMany},
		{Messages: []llm.Message{{Role: "", Content: "hi"}}},
		{Messages: []llm.Message{{Role: "user", Content: "  "}}},
		{Messages: []llm.Message{{Role: "user", Content: string(long)}}},
	}
	for i, opts := range bad {
		_, err := env.Engine.ChatMessages(opts)
		assert.ErrorIs(t, err, engine.ErrInvalid, "case %d", i)
	}
}

func TestChatProxy(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{Prompt: "hi"})
	assert.ErrorIs(t, err, engine.ErrChatUnavailable)

	chat := &stubChat{content: "hello"}
	env.Engine.Interpreter.Chat = chat
	raw, err := env.Engine.Chat(env.Ctx, engine.ChatOptions{Prompt: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"hello"}}]}`, string(raw))
	assert.InDelta(t, 0.2, chat.lastReq.Temperature, 1e-9)

	chat.err = &llm.StatusError{Provider: "azure", StatusCode: 500, Message: "boom", Err: llm.ErrUnavailable}
	_, err = env.Engine.Chat(env.Ctx, engine.ChatOptions{Prompt: "hi"})
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestAuthRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	svc := env.Engine.Auth()

	sess, err := svc.Register(env.Ctx, "  Ada@Example.com ", "pass")
	require.NoError(t, err)
	assert.Equal(t, owner, sess.Email)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "2024-01-08T00:00:00Z", sess.ExpiresAt)

	_, err = svc.Register(env.Ctx, owner, "other")
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
	_, err = svc.Register(env.Ctx, "not-an-email", "pass")
	assert.ErrorIs(t, err, auth.ErrInvalidEmail)
	_, err = svc.Register(env.Ctx, "bob@example.com", "abc")
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)

	_, err = svc.Login(env.Ctx, owner, "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(env.Ctx, "nobody@example.com", "pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	login, err := svc.Login(env.Ctx, "ADA@example.com", "pass")
	require.NoError(t, err)
	p, err := svc.Authenticate(env.Ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, owner, p.Email)

	require.NoError(t, svc.Logout(env.Ctx, p))
	_, err = svc.Authenticate(env.Ctx, login.Token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// the registration session is independent of the one logged out
	_, err = svc.Authenticate(env.Ctx, sess.Token)
	assert.NoError(t, err)
}

func TestAuthRejectsForeignAndExpiredTokens(t *testing.T) {
	env := newTestEnv(t)
	svc := env.Engine.Auth()
	sess, err := svc.Register(env.Ctx, owner, "pass")
	require.NoError(t, err)

	other := svc
	other.Secret = "different"
	_, err = other.Authenticate(env.Ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = svc.Authenticate(env.Ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	later := svc
	later.Now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }
	_, err = later.Authenticate(env.Ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	n, err := later.PurgeExpired(env.Ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
