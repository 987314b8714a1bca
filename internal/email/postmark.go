// Package email sends transactional mail through the Postmark HTTP API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"
)

// DefaultAPIURL is Postmark's single-message endpoint.
const DefaultAPIURL = "https://api.postmarkapp.com/email"

// ErrNotConfigured is returned by every send when no server token is set.
var ErrNotConfigured = errors.New("email client not configured: missing server token")

// Client sends transactional email through Postmark.
type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at another Postmark-compatible endpoint.
func WithAPIURL(u string) Option {
	return func(cl *Client) {
		cl.apiURL = u
	}
}

// NewClient creates a client. baseURL is the public URL of the web app,
// used to build links in messages.
func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      DefaultAPIURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendPasswordReset mails a one-time reset code.
func (c *Client) SendPasswordReset(ctx context.Context, toEmail, code string) error {
	link := fmt.Sprintf("%s/reset-password?email=%s", c.baseURL, toEmail)
	text := fmt.Sprintf("Your Coincious password reset code is %s.\n\nEnter it at %s\n\nThe code expires in 15 minutes. If you did not ask for it, ignore this message.", code, link)
	body := fmt.Sprintf(
		`<p>Your Coincious password reset code is <strong>%s</strong>.</p><p><a href="%s">Reset your password</a></p><p>The code expires in 15 minutes. If you did not ask for it, ignore this message.</p>`,
		code, html.EscapeString(link),
	)
	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "Reset your Coincious password",
		HtmlBody: body,
		TextBody: text,
	})
}

// SendGroupInvitation tells a registered user they were invited to a group.
func (c *Client) SendGroupInvitation(ctx context.Context, toEmail, inviterName, groupName string) error {
	link := c.baseURL + "/notifications"
	text := fmt.Sprintf("%s invited you to join %q on Coincious.\n\nAccept or decline the invitation here:\n\n%s", inviterName, groupName, link)
	body := fmt.Sprintf(
		`<p>%s invited you to join <strong>%s</strong> on Coincious.</p><p><a href="%s">Respond to the invitation</a></p>`,
		html.EscapeString(inviterName), html.EscapeString(groupName), html.EscapeString(link),
	)
	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  fmt.Sprintf("You've been invited to %s on Coincious", groupName),
		HtmlBody: body,
		TextBody: text,
	})
}

func (c *Client) send(ctx context.Context, payload postmarkEmail) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
