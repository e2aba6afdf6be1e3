// Package llm provides chat-completion clients for the interpretation engine
// and the raw chat proxy.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of an ordered conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest holds the parameters of a single chat completion call.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatResponse is the OpenAI-compatible completion body. Raw keeps the
// upstream bytes for callers that proxy the response unchanged.
type ChatResponse struct {
	ID      string          `json:"id,omitempty"`
	Model   string          `json:"model,omitempty"`
	Choices []Choice        `json:"choices"`
	Raw     json.RawMessage `json:"-"`
}

type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// ResponseMessage keeps content undecoded: upstreams have been seen to send
// null or arrays here.
type ResponseMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// FirstContent returns choices[0].message.content when it is a JSON string.
func (r *ChatResponse) FirstContent() (string, bool) {
	if r == nil || len(r.Choices) == 0 {
		return "", false
	}
	raw := r.Choices[0].Message.Content
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ChatClient sends a conversation to a chat-completion model.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

var (
	// ErrUnavailable indicates the upstream could not be reached or answered
	// with a non-2xx status.
	ErrUnavailable = errors.New("chat completion unavailable")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("chat completion timed out")

	// ErrMalformedResponse indicates a 2xx answer that is not a JSON object
	// with a choices array.
	ErrMalformedResponse = errors.New("malformed chat completion response")

	// ErrNotConfigured is returned by New when required settings are missing.
	ErrNotConfigured = errors.New("chat completion not configured")
)

// StatusError describes a failed upstream call. StatusCode is 0 for
// transport failures and timeouts.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *StatusError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed (%d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

func (e *StatusError) Is(target error) bool { return target == ErrUnavailable }

func (e *StatusError) Unwrap() error { return e.Err }

const maxErrorMessage = 800

// truncateMessage caps diagnostic text at maxErrorMessage characters.
func truncateMessage(s string) string {
	r := []rune(s)
	if len(r) <= maxErrorMessage {
		return s
	}
	return string(r[:maxErrorMessage]) + "…"
}
