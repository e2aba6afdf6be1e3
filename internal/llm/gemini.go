package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// geminiClient adapts the Gemini generateContent API to ChatClient. System
// messages become the system instruction; assistant turns use the model role.
type geminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newGeminiClient(ctx context.Context, apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) (*geminiClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &geminiClient{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger.With(zap.String("provider", ProviderGemini)),
	}, nil
}

func (c *geminiClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	system, contents := toGeminiContents(req.Messages)
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, c.classifyError(ctx, err)
	}
	c.logger.Debug("chat completion", zap.Duration("latency", time.Since(start)))

	return geminiToChat(c.model, result.Text())
}

func (c *geminiClient) classifyError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &StatusError{Provider: ProviderGemini, Message: "request timed out", Err: ErrTimeout}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: ProviderGemini, StatusCode: apiErr.Code, Message: truncateMessage(apiErr.Message), Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &StatusError{Provider: ProviderGemini, StatusCode: apiErrPtr.Code, Message: truncateMessage(apiErrPtr.Message), Err: err}
	}
	return &StatusError{Provider: ProviderGemini, Message: truncateMessage(err.Error()), Err: err}
}

// toGeminiContents joins system messages into one instruction and maps the
// remaining turns onto Gemini roles, preserving order.
func toGeminiContents(messages []Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

// geminiToChat renders generated text as an OpenAI-shaped response so the
// proxy and the interpreter see one format.
func geminiToChat(model, text string) (*ChatResponse, error) {
	content, err := json.Marshal(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	resp := &ChatResponse{
		Model: model,
		Choices: []Choice{{
			Message:      ResponseMessage{Role: RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	resp.Raw = raw
	return resp, nil
}
