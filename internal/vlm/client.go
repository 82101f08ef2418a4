// Package vlm implements the chat-completions client for
// vision-capable models behind an OpenAI-compatible HTTP endpoint.
package vlm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const finishReasonLength = "length"

// Client issues chat-completion requests against one endpoint. One
// call per (prompt, image) or per (prompt, image, detected object);
// retry is deliberately absent, every failure is terminal for its
// attempt and reported upward.
type Client struct {
	Endpoint    string
	APIKey      string
	Model       string
	HTTPClient  *http.Client
	Timeout     time.Duration
	MaxTokens   *int
	Temperature *float64
}

// NewClient returns a client with defaults applied.
func NewClient(endpoint, apiKey, model string) *Client {
	return &Client{
		Endpoint: strings.TrimSpace(endpoint),
		APIKey:   strings.TrimSpace(apiKey),
		Model:    strings.TrimSpace(model),
	}
}

// Completion is a single-shot response together with the verbatim
// request and response bodies retained for inspection.
type Completion struct {
	Content        string
	FinishReason   string
	RequestPayload []byte
	RawResponse    []byte
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Content string `json:"content"`
}

// Complete sends one non-streaming completion request and returns the
// raw message content. Thinking markup is not stripped here; callers
// apply StripThinking before coercion.
func (c *Client) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	if c == nil {
		return nil, fmt.Errorf("model client not configured")
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	body, resp, err := c.do(ctx, messages, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Op: "read response", Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody)), RawResponse: respBody}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}

	first := parsed.Choices[0]
	if first.FinishReason == finishReasonLength {
		return nil, &TruncationError{Partial: first.Message.Content}
	}

	return &Completion{
		Content:        first.Message.Content,
		FinishReason:   first.FinishReason,
		RequestPayload: body,
		RawResponse:    respBody,
	}, nil
}

// Ping probes the endpoint for reachability. Any HTTP response counts
// as reachable: OpenAI-compatible servers answer a GET on the
// completions path with 404 or 405, which still proves the listener
// is up. Only transport failures are reported.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.Endpoint == "" {
		return fmt.Errorf("model endpoint not configured")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return &RequestError{Op: "endpoint probe", Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}

func (c *Client) do(ctx context.Context, messages []Message, stream bool) ([]byte, *http.Response, error) {
	payload, err := c.buildChatRequest(messages, stream)
	if err != nil {
		return nil, nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}

	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, nil, &RequestError{Op: "request failed", Err: err}
	}
	return body, resp, nil
}

func (c *Client) requestURL() string {
	url := strings.TrimRight(c.Endpoint, "/")
	if strings.HasSuffix(url, "/chat/completions") {
		return url
	}
	return url + "/chat/completions"
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
