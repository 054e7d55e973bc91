package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BrevoConfig holds Brevo (transactional email API) configuration
type BrevoConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// BrevoClient sends emails via the Brevo API
type BrevoClient struct {
	config     BrevoConfig
	httpClient *http.Client
}

// NewBrevoClient creates a new Brevo email client
func NewBrevoClient(config BrevoConfig) *BrevoClient {
	return &BrevoClient{
		config: config,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// EmailMessage represents an email to send
type EmailMessage struct {
	To          string
	ToName      string
	Subject     string
	HTMLContent string
	TextContent string
}

// BrevoRequest represents the Brevo smtp/email API request
type BrevoRequest struct {
	Sender      BrevoContact   `json:"sender"`
	To          []BrevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent,omitempty"`
	TextContent string         `json:"textContent,omitempty"`
}

type BrevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Send sends an email via Brevo
func (c *BrevoClient) Send(ctx context.Context, msg *EmailMessage) error {
	request := BrevoRequest{
		Sender: BrevoContact{
			Email: c.config.FromEmail,
			Name:  c.config.FromName,
		},
		To: []BrevoContact{
			{Email: msg.To, Name: msg.ToName},
		},
		Subject:     msg.Subject,
		HTMLContent: msg.HTMLContent,
		TextContent: msg.TextContent,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.brevo.com/v3/smtp/email", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("api-key", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("brevo returned status %d", resp.StatusCode)
	}

	return nil
}
