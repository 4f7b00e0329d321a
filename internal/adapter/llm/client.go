package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/pkg/retry"
	"github.com/JamesxFarris/Sixxer/internal/tracing"
)

const apiVersion = "2023-06-01"

// Budget guards every paid request.
type Budget interface {
	CheckBudget(ctx context.Context) error
	RecordCall(ctx context.Context, inputTokens, outputTokens int, modelName, purpose string) (*model.APICost, error)
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm provider returned %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether err is worth another attempt: rate limits, server
// errors and transport failures.
func Retryable(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.StatusCode == http.StatusTooManyRequests || status.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Request is one completion request.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	Purpose     string
}

// Response is the concatenated text of a completion with its usage.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Config configures Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Retry   retry.Policy
}

// Client calls the Anthropic Messages API under the budget guard.
type Client struct {
	endpoint   *url.URL
	apiKey     string
	model      string
	policy     retry.Policy
	budget     Budget
	httpClient *http.Client
	logger     *slog.Logger
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewClient creates Client with a two minute request timeout.
func NewClient(cfg Config, budget Budget, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse llm url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("llm url must be absolute")
	}
	parsed.Path = path.Join(parsed.Path, "/v1/messages")
	return &Client{
		endpoint: parsed,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		policy:   cfg.Retry,
		budget:   budget,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}, nil
}

// Model returns the model used for every request.
func (c *Client) Model() string {
	return c.model
}

// Complete checks the budget, sends req with retries and records the cost of
// the successful attempt.
func (c *Client) Complete(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, span := tracing.Start(ctx, "llm.complete",
		attribute.String("llm.model", c.model),
		attribute.String("llm.purpose", req.Purpose))
	defer func() { tracing.End(span, err) }()

	if req.MaxTokens <= 0 {
		req.MaxTokens = 4096
	}

	err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		if err := c.budget.CheckBudget(ctx); err != nil {
			return err
		}
		r, err := c.send(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}, func(err error, next time.Duration) {
		c.logger.Warn("llm request failed, retrying",
			slog.String("purpose", req.Purpose),
			slog.Duration("retry_in", next),
			slog.String("error", err.Error()))
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.input_tokens", resp.InputTokens),
		attribute.Int("llm.output_tokens", resp.OutputTokens))
	if _, err := c.budget.RecordCall(ctx, resp.InputTokens, resp.OutputTokens, c.model, req.Purpose); err != nil {
		c.logger.Error("record api cost failed", slog.String("purpose", req.Purpose), slog.String("error", err.Error()))
	}
	return resp, nil
}

// CompleteJSON runs Complete and decodes the reply into dst, tolerating markdown code fences.
func (c *Client) CompleteJSON(ctx context.Context, req Request, dst any) error {
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(StripCodeFence(resp.Text)), dst); err != nil {
		return fmt.Errorf("decode llm json: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(messagesRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: httpResp.StatusCode, Body: truncate(string(body), 512)}
	}

	var data messagesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode llm response: %w", err)
	}
	var text strings.Builder
	for _, block := range data.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &Response{
		Text:         text.String(),
		InputTokens:  data.Usage.InputTokens,
		OutputTokens: data.Usage.OutputTokens,
	}, nil
}

// StripCodeFence removes a surrounding ``` or ```json fence.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = ""
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
