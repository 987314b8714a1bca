// Package assistant talks to the external AI assistant service and provides
// a local keyword categorizer for when it is unavailable.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 30 * time.Second

// MaxUploadSize is the largest bill file accepted.
const MaxUploadSize = 10 << 20

var (
	// ErrNotConfigured is returned when no upstream URL is set.
	ErrNotConfigured = errors.New("assistant service not configured")
	// ErrUpstream wraps failures of the upstream service.
	ErrUpstream = errors.New("assistant service error")
)

// ChatTurn is one message of a conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is sent upstream with the user's spending context attached.
type ChatRequest struct {
	Message string         `json:"message"`
	History []ChatTurn     `json:"history,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ChatReply is the assistant's answer.
type ChatReply struct {
	Reply string `json:"reply"`
}

type categorizeRequest struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

type categorizeResponse struct {
	Category string `json:"category"`
}

// Client talks to the assistant service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a client for the assistant at baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if an upstream URL is set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Categorize asks the upstream for a category.
func (c *Client) Categorize(ctx context.Context, description string, amount *decimal.Decimal) (string, error) {
	var resp categorizeResponse
	if err := c.postJSON(ctx, "/categorize", categorizeRequest{Description: description, Amount: amount}, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Category) == "" {
		return "", fmt.Errorf("%w: empty category", ErrUpstream)
	}
	return strings.TrimSpace(resp.Category), nil
}

// Chat forwards a conversation turn.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	var reply ChatReply
	if err := c.postJSON(ctx, "/chat", req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ParseBill uploads a receipt and returns the upstream's JSON answer as is.
func (c *Client) ParseBill(ctx context.Context, filename, contentType string, file io.Reader) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse-bill", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON response", ErrUpstream)
	}
	return json.RawMessage(data), nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return data, nil
}
