package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"promptboard/internal/config"
	"promptboard/internal/domain"
	"promptboard/internal/events"
	"promptboard/internal/intent"
)

// MaxHistory caps both the default and the largest history page.
const MaxHistory = 50

// Processing modes a caller may request.
const (
	ModeLLM   = "llm"
	ModeLocal = "local"
)

// InterpretOptions selects how Input is interpreted. Mode "" follows the
// configured mode. A non-empty Owner records the result in history.
type InterpretOptions struct {
	Input any
	Mode  string
	Owner string
}

type Interpretation struct {
	Plan             intent.Plan `json:"plan"`
	Prompt           string      `json:"prompt"`
	InputLength      int         `json:"inputLength"`
	ProcessingMethod string      `json:"processingMethod"`
	Timestamp        string      `json:"timestamp"`
	HistoryID        string      `json:"historyId,omitempty"`
}

// LLMAvailable reports whether interpretations can use the chat model.
func (e Engine) LLMAvailable() bool {
	return e.Interpreter.Chat != nil && e.Config.Interpret.Mode != config.ModeHeuristic
}

func (e Engine) Interpret(ctx context.Context, opts InterpretOptions) (Interpretation, error) {
	local := !e.LLMAvailable()
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "", ModeLLM:
	case ModeLocal:
		local = true
	default:
		return Interpretation{}, invalid("mode", "Invalid 'mode' (expected %q or %q)", ModeLLM, ModeLocal)
	}

	in := e.Interpreter
	if in.Logger == nil {
		in.Logger = e.logger()
	}
	text, err := intent.Normalize(opts.Input, in.MaxInputLength)
	if err != nil {
		return Interpretation{}, err
	}
	heuristic := intent.Classify(text)
	plan, method := heuristic, domain.MethodLocal
	if !local {
		method = domain.MethodLLM
		plan, err = in.InterpretText(ctx, text)
		if errors.Is(err, intent.ErrUpstreamUnavailable) && e.Config.Interpret.FallbackOnUpstreamError {
			e.logger().Warn("upstream unavailable, serving heuristic plan", zap.Error(err))
			method = domain.MethodLocalFallback
			plan, err = heuristic, nil
		}
		if err != nil {
			return Interpretation{}, err
		}
	}

	res := Interpretation{
		Plan:             plan,
		Prompt:           text,
		InputLength:      len([]rune(text)),
		ProcessingMethod: method,
		Timestamp:        e.stamp(),
	}
	if opts.Owner == "" {
		return res, nil
	}
	rec, err := e.recordIntent(ctx, opts.Owner, res)
	if err != nil {
		return Interpretation{}, err
	}
	res.HistoryID = rec.ID
	return res, nil
}

func (e Engine) recordIntent(ctx context.Context, owner string, res Interpretation) (domain.IntentRecord, error) {
	rec := domain.IntentRecord{
		ID:               "h_" + uuid.NewString(),
		Owner:            owner,
		Prompt:           res.Prompt,
		Plan:             res.Plan,
		ProcessingMethod: res.ProcessingMethod,
		CreatedAt:        res.Timestamp,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.IntentRecord{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertIntentTx(ctx, tx, rec); err != nil {
		return domain.IntentRecord{}, err
	}
	if err := e.writer().Append(ctx, tx, events.IntentInterpreted, "intent", rec.ID, owner, events.EventPayload{
		"processingMethod": rec.ProcessingMethod,
		"filterStatus":     rec.Plan.FilterStatus.String(),
		"showKanban":       rec.Plan.ShowKanban,
	}); err != nil {
		return domain.IntentRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.IntentRecord{}, err
	}
	return rec, nil
}

// ListHistory returns the owner's interpretations newest first.
func (e Engine) ListHistory(ctx context.Context, owner string, limit int) ([]domain.IntentRecord, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	return e.Repo.ListIntents(ctx, owner, limit)
}

// MarkApplied flags a history entry as applied to the dashboard.
func (e Engine) MarkApplied(ctx context.Context, owner, id string) (domain.IntentRecord, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.IntentRecord{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.SetIntentAppliedTx(ctx, tx, owner, id, true); err != nil {
		return domain.IntentRecord{}, err
	}
	rec, err := e.Repo.GetIntentTx(ctx, tx, owner, id)
	if err != nil {
		return domain.IntentRecord{}, err
	}
	if err := e.writer().Append(ctx, tx, events.IntentApplied, "intent", id, owner, nil); err != nil {
		return domain.IntentRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.IntentRecord{}, err
	}
	return rec, nil
}

func (e Engine) DeleteHistory(ctx context.Context, owner, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteIntentTx(ctx, tx, owner, id); err != nil {
		return err
	}
	if err := e.writer().Append(ctx, tx, events.IntentDeleted, "intent", id, owner, nil); err != nil {
		return err
	}
	return tx.Commit()
}
