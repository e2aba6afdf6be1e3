package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// httpClient speaks the OpenAI chat/completions wire format, used by both
// Azure OpenAI deployments and the public OpenAI API.
type httpClient struct {
	provider string
	url      string
	model    string
	header   string
	key      string
	timeout  time.Duration
	http     *http.Client
	logger   *zap.Logger
}

type completionRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

func newHTTPClient(provider, url, model, header, key string, timeout time.Duration, logger *zap.Logger) *httpClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpClient{
		provider: provider,
		url:      url,
		model:    model,
		header:   header,
		key:      key,
		timeout:  timeout,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		logger: logger.With(zap.String("provider", provider)),
	}
}

func (c *httpClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		if c.header == "Authorization" {
			httpReq.Header.Set("Authorization", "Bearer "+c.key)
		} else {
			httpReq.Header.Set(c.header, c.key)
		}
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	c.logger.Debug("chat completion",
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &StatusError{
			Provider:   c.provider,
			StatusCode: httpResp.StatusCode,
			Message:    upstreamMessage(body),
			Err:        ErrUnavailable,
		}
	}
	return decodeCompletion(body)
}

func (c *httpClient) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &StatusError{Provider: c.provider, Message: "request timed out", Err: ErrTimeout}
	}
	return &StatusError{Provider: c.provider, Message: truncateMessage(err.Error()), Err: err}
}

// upstreamMessage prefers the JSON "error" member of a failure body and
// otherwise returns the body text, both capped.
func upstreamMessage(body []byte) string {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(body, &parsed); err == nil {
		if e, ok := parsed["error"]; ok {
			var compact bytes.Buffer
			if err := json.Compact(&compact, e); err == nil {
				return truncateMessage(compact.String())
			}
		}
	}
	return truncateMessage(string(body))
}

func decodeCompletion(body []byte) (*ChatResponse, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedResponse)
	}
	choices, ok := probe["choices"]
	if !ok || len(bytes.TrimSpace(choices)) == 0 || bytes.TrimSpace(choices)[0] != '[' {
		return nil, fmt.Errorf("%w: missing choices array", ErrMalformedResponse)
	}
	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	resp.Raw = append(json.RawMessage(nil), body...)
	return &resp, nil
}
