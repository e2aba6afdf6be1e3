package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"promptboard/internal/engine"
	"promptboard/internal/engine/auth"
	"promptboard/internal/intent"
	"promptboard/internal/llm"
	"promptboard/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine      engine.Engine
	BasePath    string
	CORSOrigins []string
	// Production hides upstream and internal error detail from clients.
	Production bool
	Logger     *zap.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"input_too_long"`
	Message string         `json:"message" example:"Input is too long (max 4000 characters)"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

var interpretExample = map[string]any{"input": "Show me blocked tasks and who is assigned"}

// New returns an HTTP handler exposing the promptboard API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	h := handlers{e: cfg.Engine, production: cfg.Production, logger: logger}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Session-Token"},
			MaxAge:         300,
		}))
	}
	router.Use(newAuthMiddleware(basePath, cfg.Engine, logger))
	hcfg := huma.DefaultConfig("Promptboard API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group, h)
	registerAuth(group, h)
	registerInterpret(group, h)
	registerTasks(group, h)
	registerHistory(group, h)
	registerChat(group, h)
	registerEvents(group, h)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

// handlers carries what every operation needs to answer and map errors.
type handlers struct {
	e          engine.Engine
	production bool
	logger     *zap.Logger
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// fail maps engine, interpreter and store errors onto the envelope.
func (h handlers) fail(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var (
		inputErr *engine.InputError
		tooLong  *intent.TooLongError
		upstream *intent.UpstreamError
	)
	switch {
	case errors.As(err, &inputErr):
		var details map[string]any
		if inputErr.Field != "" {
			details = map[string]any{"field": inputErr.Field}
		}
		return newAPIError(http.StatusBadRequest, "bad_request", inputErr.Message, details)
	case errors.Is(err, intent.ErrMissingInput):
		return newAPIError(http.StatusBadRequest, "missing_input", "Missing 'input'", map[string]any{"example": interpretExample})
	case errors.As(err, &tooLong):
		return newAPIError(http.StatusRequestEntityTooLarge, "input_too_long",
			fmt.Sprintf("Input is too long (max %d characters)", tooLong.Max),
			map[string]any{"length": tooLong.Length, "max": tooLong.Max})
	case errors.As(err, &upstream):
		details := map[string]any{}
		if upstream.StatusCode > 0 {
			details["status"] = upstream.StatusCode
		}
		if !h.production {
			details["detail"] = upstream.Message
		}
		return newAPIError(http.StatusBadGateway, "upstream_unavailable", "Intent interpretation failed", details)
	case errors.Is(err, engine.ErrChatUnavailable), errors.Is(err, llm.ErrNotConfigured):
		return newAPIError(http.StatusServiceUnavailable, "llm_not_configured", "chat model is not configured", nil)
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrMalformedResponse):
		var details map[string]any
		if !h.production {
			details = map[string]any{"detail": err.Error()}
		}
		return newAPIError(http.StatusBadGateway, "upstream_unavailable", "Chat completion request failed", details)
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrPasswordTooShort):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	case errors.Is(err, auth.ErrEmailTaken):
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return newAPIError(http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidToken):
		return newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
	case errors.Is(err, auth.ErrSecretMissing):
		return newAPIError(http.StatusServiceUnavailable, "auth_not_configured", "session signing is not configured", nil)
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, context.Canceled):
		return newAPIError(499, "client_closed_request", "request canceled", nil)
	}
	h.logger.Error("unhandled error", zap.Error(err))
	var details map[string]any
	if !h.production {
		details = map[string]any{"error": err.Error()}
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", details)
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "input_too_long"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusBadGateway:
		return "upstream_unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["sessionToken"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Session-Token",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"sessionToken": {}},
	}
	// Interpretation works anonymously; a session only adds history.
	optional := append([]map[string][]string{{}}, security...)
	oas.Security = security
	public := publicPaths(basePath)
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if _, ok := public[route]; !ok {
				op.Security = security
				continue
			}
			if strings.HasPrefix(route, path.Join(basePath, "interpret-intent")) {
				op.Security = optional
				continue
			}
			op.Security = []map[string][]string{}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Promptboard API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Session-Token.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body HealthResponse `json:"body"`
	}, error) {
		return &struct {
			Body HealthResponse `json:"body"`
		}{Body: HealthResponse{OK: true, Timestamp: time.Now().UTC().Format(time.RFC3339)}}, nil
	})
}

func registerAuth(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Create an account and start a session",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CredentialsRequest `json:"body"`
	}) (*struct {
		Body SessionResponse `json:"body"`
	}, error) {
		sess, err := h.e.Auth().Register(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body SessionResponse `json:"body"`
		}{Body: SessionResponse{OK: true, Session: sess}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Start a session",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CredentialsRequest `json:"body"`
	}) (*struct {
		Body SessionResponse `json:"body"`
	}, error) {
		sess, err := h.e.Auth().Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body SessionResponse `json:"body"`
		}{Body: SessionResponse{OK: true, Session: sess}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		Summary:     "End the current session",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body OKResponse `json:"body"`
	}, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
		}
		if err := h.e.Auth().Logout(ctx, p); err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body OKResponse `json:"body"`
		}{Body: OKResponse{OK: true}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MeResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body MeResponse `json:"body"`
		}{Body: MeResponse{OK: true, Email: owner}}, nil
	})
}

func registerInterpret(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "interpret-intent",
		Method:      http.MethodPost,
		Path:        "/interpret-intent",
		Summary:     "Interpret a natural-language dashboard request",
		Description: "Returns a UI plan. Authenticated calls are recorded in the caller's history.",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusRequestEntityTooLarge,
			http.StatusBadGateway,
		},
	}, func(ctx context.Context, input *struct {
		Body InterpretRequest `json:"body" required:"false"`
	}) (*struct {
		Body InterpretResponse `json:"body"`
	}, error) {
		var owner string
		if p, ok := principalFromContext(ctx); ok {
			owner = p.Email
		}
		res, err := h.e.Interpret(ctx, engine.InterpretOptions{
			Input: input.Body.rawInput(),
			Mode:  input.Body.Mode,
			Owner: owner,
		})
		if err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body InterpretResponse `json:"body"`
		}{Body: InterpretResponse{
			PlanResponse:     planResponse(res.Plan),
			Timestamp:        res.Timestamp,
			InputLength:      res.InputLength,
			ProcessingMethod: res.ProcessingMethod,
			HistoryID:        res.HistoryID,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "interpret-intent-options",
		Method:      http.MethodGet,
		Path:        "/interpret-intent/options",
		Summary:     "Available processing types and example prompts",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body InterpretOptionsResponse `json:"body"`
	}, error) {
		llmReady := h.e.LLMAvailable()
		def := engine.ModeLocal
		if llmReady {
			def = engine.ModeLLM
		}
		maxLen := h.e.Interpreter.MaxInputLength
		if maxLen <= 0 {
			maxLen = intent.DefaultMaxInputLength
		}
		return &struct {
			Body InterpretOptionsResponse `json:"body"`
		}{Body: InterpretOptionsResponse{
			ProcessingTypes: []ProcessingType{
				{ID: engine.ModeLLM, Label: "Language model", Description: "Chat model reconciled with keyword rules", Available: llmReady},
				{ID: engine.ModeLocal, Label: "Local rules", Description: "Keyword classifier only", Available: true},
			},
			DefaultType:    def,
			MaxInputLength: maxLen,
			Examples: []string{
				"Show me the kanban board",
				"What tasks are blocked?",
				"Show high priority tasks in progress",
				"Assign tasks to the team",
				"Hide the board and show priorities",
			},
		}}, nil
	})
}

func registerTasks(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := h.e.CreateTask(ctx, engine.TaskCreateOptions{
			Owner:      owner,
			Title:      input.Body.Title,
			Status:     input.Body.Status,
			Priority:   input.Body.Priority,
			AssigneeID: input.Body.assignee(),
		})
		if err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: TaskResponse{OK: true, Task: t}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Description: "status accepts task statuses or plan filter labels such as \"In Progress\" and \"All\".",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Status     string `query:"status"`
		AssigneeID string `query:"assigneeId"`
		Limit      int    `query:"limit" minimum:"0" maximum:"500"`
	}) (*struct {
		Body TaskListResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks, err := h.e.ListTasks(ctx, engine.TaskListOptions{
			Owner:      owner,
			Status:     input.Status,
			AssigneeID: input.AssigneeID,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body TaskListResponse `json:"body"`
		}{Body: TaskListResponse{OK: true, Tasks: tasks}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "task-summary",
		Method:      http.MethodGet,
		Path:        "/tasks/summary",
		Summary:     "Task counts per status",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body TaskSummaryResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		counts, err := h.e.BoardSummary(ctx, owner)
		if err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body TaskSummaryResponse `json:"body"`
		}{Body: TaskSummaryResponse{OK: true, Counts: counts}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Patch task status, priority, title or assignee",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := h.e.UpdateTask(ctx, engine.TaskUpdateOptions{
			Owner:      owner,
			ID:         input.ID,
			Title:      input.Body.Title,
			Status:     input.Body.Status,
			Priority:   input.Body.Priority,
			AssigneeID: input.Body.assignee(),
		})
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "not_found", "Task not found", nil)
		}
		if err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: TaskResponse{OK: true, Task: t}}, nil
	})
}

func registerHistory(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-intent-history",
		Method:      http.MethodGet,
		Path:        "/intents/history",
		Summary:     "Recent interpretations, newest first",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" minimum:"0" doc:"Defaults to and is capped at 50"`
	}) (*struct {
		Body HistoryResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		recs, err := h.e.ListHistory(ctx, owner, input.Limit)
		if err != nil {
			return nil, h.fail(err)
		}
		items := make([]HistoryEntry, 0, len(recs))
		for _, rec := range recs {
			items = append(items, historyEntry(rec))
		}
		return &struct {
			Body HistoryResponse `json:"body"`
		}{Body: HistoryResponse{OK: true, Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "apply-intent",
		Method:      http.MethodPost,
		Path:        "/intents/history/{id}/apply",
		Summary:     "Mark an interpretation as applied",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body HistoryEntryResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := h.e.MarkApplied(ctx, owner, input.ID)
		if err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body HistoryEntryResponse `json:"body"`
		}{Body: HistoryEntryResponse{OK: true, Item: historyEntry(rec)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-intent",
		Method:      http.MethodDelete,
		Path:        "/intents/history/{id}",
		Summary:     "Delete an interpretation",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body OKResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := h.e.DeleteHistory(ctx, owner, input.ID); err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body OKResponse `json:"body"`
		}{Body: OKResponse{OK: true}}, nil
	})
}

func registerChat(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/azure-openai/chat",
		Summary:     "Forward a conversation to the chat model",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body ChatRequest `json:"body"`
	}) (*struct {
		Body ChatResponse `json:"body"`
	}, error) {
		if _, authErr := ownerFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		raw, err := h.e.Chat(ctx, engine.ChatOptions{Messages: input.Body.Messages, Prompt: input.Body.Prompt})
		if errors.Is(err, engine.ErrInvalid) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{
				"example": map[string]any{
					"prompt":   "Say hello",
					"messages": []llm.Message{{Role: llm.RoleUser, Content: "Say hello"}},
				},
			})
		}
		if err != nil {
			return nil, h.fail(err)
		}
		return &struct {
			Body ChatResponse `json:"body"`
		}{Body: ChatResponse{Data: raw}}, nil
	})
}

func registerEvents(api huma.API, h handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Recent events caused by the caller",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"task,intent,user"`
		Limit      int    `query:"limit" default:"50" minimum:"1" maximum:"200"`
	}) (*struct {
		Body EventListResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		evts, err := h.e.Repo.LatestEvents(ctx, repo.EventFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			ActorID:    owner,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, h.fail(err)
		}
		resp := EventListResponse{Items: []EventResponse{}}
		for _, evt := range evts {
			var payload any = json.RawMessage("{}")
			if json.Valid([]byte(evt.Payload)) {
				payload = json.RawMessage(evt.Payload)
			}
			resp.Items = append(resp.Items, EventResponse{
				ID:         evt.ID,
				TS:         evt.TS,
				Type:       evt.Type,
				EntityKind: evt.EntityKind,
				EntityID:   evt.EntityID,
				Payload:    payload,
			})
		}
		return &struct {
			Body EventListResponse `json:"body"`
		}{Body: resp}, nil
	})
}
