package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// TooManyRequestsError represents rate limiting signal from the bridge.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// Client talks to the browser automation bridge that owns the marketplace session.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type changedResponse struct {
	Orders []model.ObservedOrder `json:"orders"`
}

type deliverRequest struct {
	Message   string   `json:"message"`
	FilePaths []string `json:"file_paths"`
}

type deliverResponse struct {
	Delivered bool `json:"delivered"`
}

type messageRequest struct {
	Text string `json:"text"`
}

// NewClient creates the bridge client. Page automation is slow, so the timeout is generous.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse marketplace url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("marketplace url must be absolute")
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// EnsureSession asks the bridge to verify or restore the logged-in session.
func (c *Client) EnsureSession(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, nil, nil, "session", "ensure")
	return err
}

// CheckForChangedOrders returns the orders that need action.
func (c *Client) CheckForChangedOrders(ctx context.Context) ([]model.ObservedOrder, error) {
	var data changedResponse
	if _, err := c.do(ctx, http.MethodGet, nil, &data, "orders", "changed"); err != nil {
		return nil, err
	}
	return data.Orders, nil
}

// GetOrderDetails loads the order page content.
func (c *Client) GetOrderDetails(ctx context.Context, externalID string) (*model.OrderDetails, error) {
	var data model.OrderDetails
	if _, err := c.do(ctx, http.MethodGet, nil, &data, "orders", externalID); err != nil {
		return nil, err
	}
	return &data, nil
}

// DetectRevisionRequest returns nil when the buyer has not asked for a revision.
func (c *Client) DetectRevisionRequest(ctx context.Context, externalID string) (*model.RevisionRequest, error) {
	var data model.RevisionRequest
	status, err := c.do(ctx, http.MethodGet, nil, &data, "orders", externalID, "revision")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &data, nil
}

// Deliver uploads the files and submits the delivery.
func (c *Client) Deliver(ctx context.Context, externalID, message string, filePaths []string) (bool, error) {
	var data deliverResponse
	if _, err := c.do(ctx, http.MethodPost, deliverRequest{Message: message, FilePaths: filePaths}, &data, "orders", externalID, "deliver"); err != nil {
		return false, err
	}
	return data.Delivered, nil
}

// SendMessage posts text to the order conversation.
func (c *Client) SendMessage(ctx context.Context, externalID, text string) error {
	_, err := c.do(ctx, http.MethodPost, messageRequest{Text: text}, nil, "orders", externalID, "messages")
	return err
}

func (c *Client) do(ctx context.Context, method string, payload, dst any, segments ...string) (int, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(append([]string{endpoint.Path}, segments...)...)

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return resp.StatusCode, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if dst == nil {
			return resp.StatusCode, nil
		}
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, err
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			return resp.StatusCode, nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", endpoint.Path, err)
		}
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, fmt.Errorf("%s: %w", endpoint.Path, domainErrors.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp.StatusCode, TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("marketplace request failed",
			slog.String("method", method),
			slog.String("path", endpoint.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(raw)))
		return resp.StatusCode, fmt.Errorf("marketplace error: %s", resp.Status)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
