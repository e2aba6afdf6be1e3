package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"promptboard/internal/llm"
)

const (
	DefaultMaxChatMessages = 20
	MaxChatContentLength   = 4000
)

// ChatOptions is a raw conversation, or a single Prompt sent as one user
// message when Messages is nil.
type ChatOptions struct {
	Messages []llm.Message
	Prompt   string
}

func (e Engine) maxChatMessages() int {
	if n := e.Config.LLM.MaxMessages; n > 0 {
		return n
	}
	return DefaultMaxChatMessages
}

// ChatMessages validates opts and returns the conversation to send.
func (e Engine) ChatMessages(opts ChatOptions) ([]llm.Message, error) {
	if opts.Messages != nil {
		if limit := e.maxChatMessages(); len(opts.Messages) > limit {
			return nil, invalid("messages", "Too many messages (max %d)", limit)
		}
		if len(opts.Messages) == 0 {
			return nil, invalid("messages", "Missing 'prompt' or 'messages'")
		}
		for _, m := range opts.Messages {
			content := strings.TrimSpace(m.Content)
			if strings.TrimSpace(m.Role) == "" || content == "" || len([]rune(content)) > MaxChatContentLength {
				return nil, invalid("messages", "Each message must have non-empty 'role' and 'content' strings")
			}
		}
		return opts.Messages, nil
	}
	prompt := strings.TrimSpace(opts.Prompt)
	if prompt == "" {
		return nil, invalid("prompt", "Missing 'prompt' or 'messages'")
	}
	if len([]rune(prompt)) > MaxChatContentLength {
		return nil, invalid("prompt", "Prompt is too long (max %d characters)", MaxChatContentLength)
	}
	return []llm.Message{{Role: llm.RoleUser, Content: prompt}}, nil
}

// Chat forwards a validated conversation and returns the upstream body
// unchanged.
func (e Engine) Chat(ctx context.Context, opts ChatOptions) (json.RawMessage, error) {
	msgs, err := e.ChatMessages(opts)
	if err != nil {
		return nil, err
	}
	if e.Interpreter.Chat == nil {
		return nil, ErrChatUnavailable
	}
	resp, err := e.Interpreter.Chat.CreateChatCompletion(ctx, llm.ChatRequest{
		Messages:    msgs,
		Temperature: e.Config.LLM.Temperature,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Raw) > 0 {
		return resp.Raw, nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode chat response: %w", err)
	}
	return raw, nil
}
