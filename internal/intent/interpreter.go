package intent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"promptboard/internal/llm"
)

// DefaultTimeout bounds the single upstream call made by Interpret.
const DefaultTimeout = 15 * time.Second

// Interpreter composes normalization, classification and, when Chat is set,
// one chat completion reconciled with the heuristic plan. It holds no mutable
// state and is safe for concurrent use.
type Interpreter struct {
	Chat           llm.ChatClient
	MaxInputLength int
	Timeout        time.Duration
	Logger         *zap.Logger
}

func (in Interpreter) logger() *zap.Logger {
	if in.Logger == nil {
		return zap.NewNop()
	}
	return in.Logger
}

// InterpretLocal is the heuristic-only composition.
func (in Interpreter) InterpretLocal(raw any) (Plan, error) {
	text, err := Normalize(raw, in.MaxInputLength)
	if err != nil {
		return Plan{}, err
	}
	return Classify(text), nil
}

// Interpret returns the reconciled plan for raw. Input errors are
// ErrMissingInput or ErrInputTooLong; an unreachable model yields an
// *UpstreamError and no plan. A reachable model that answers with nothing
// usable degrades to the heuristic plan.
func (in Interpreter) Interpret(ctx context.Context, raw any) (Plan, error) {
	text, err := Normalize(raw, in.MaxInputLength)
	if err != nil {
		return Plan{}, err
	}
	return in.InterpretText(ctx, text)
}

// InterpretText is Interpret for text that already passed Normalize.
func (in Interpreter) InterpretText(ctx context.Context, text string) (Plan, error) {
	heuristic := Classify(text)
	if in.Chat == nil {
		return heuristic, nil
	}
	log := in.logger()
	log.Debug("heuristic plan",
		zap.Int("input_length", len([]rune(text))),
		zap.Stringer("filter_status", heuristic.FilterStatus),
		zap.Bool("show_kanban", heuristic.ShowKanban),
	)

	timeout := in.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := in.Chat.CreateChatCompletion(callCtx, llm.ChatRequest{
		Messages:    buildMessages(text),
		Temperature: 0,
	})
	if err != nil {
		if errors.Is(err, llm.ErrMalformedResponse) {
			log.Warn("model response unusable, using heuristic plan", zap.Error(err))
			return Reconcile(nil, heuristic), nil
		}
		uerr := upstreamError(err)
		log.Info("chat completion failed", zap.Int("status", uerr.StatusCode), zap.Error(err))
		return Plan{}, uerr
	}

	content, ok := resp.FirstContent()
	if !ok {
		log.Warn("model response unusable, using heuristic plan", zap.Error(ErrMalformedUpstreamResponse))
		return Reconcile(nil, heuristic), nil
	}
	model := ExtractPlanObject(content)
	if model == nil {
		log.Debug("model content carried no plan object", zap.Int("content_length", len(content)))
	}
	return Reconcile(model, heuristic), nil
}

func upstreamError(err error) *UpstreamError {
	var se *llm.StatusError
	if errors.As(err, &se) {
		return &UpstreamError{StatusCode: se.StatusCode, Message: se.Message, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Message: "request timed out", Err: err}
	}
	return &UpstreamError{Message: err.Error(), Err: err}
}
