// Package mailer wraps the Resend API: outbound sending and retrieval of
// inbound message bodies that the webhook delivered without inline content.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/resend/resend-go/v2"
)

// receivingEndpoint is the received-message retrieval endpoint. The sent-mail
// endpoint (/emails/{id}) returns unrelated data for inbound content and
// must not be used here.
const receivingEndpoint = "https://api.resend.com/emails/receiving/%s"

// SendParams describes one outbound email
type SendParams struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
	ReplyTo string
	Headers map[string]string
}

// ReceivedBody is the body content fetched for an inbound message
type ReceivedBody struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// Mailer is the outbound email and body retrieval contract
type Mailer interface {
	Send(ctx context.Context, params SendParams) (string, error)
	FetchReceivedBody(ctx context.Context, emailID string) (*ReceivedBody, error)
}

// ResendMailer implements Mailer against the Resend API
type ResendMailer struct {
	client     *resend.Client
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewResendMailer creates a mailer. fetchTimeout bounds body retrieval calls.
func NewResendMailer(apiKey string, fetchTimeout time.Duration, logger *slog.Logger) *ResendMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResendMailer{
		client:     resend.NewClient(apiKey),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger,
	}
}

// Send delivers one outbound email and returns the provider message id
func (m *ResendMailer) Send(ctx context.Context, params SendParams) (string, error) {
	req := &resend.SendEmailRequest{
		From:    params.From,
		To:      params.To,
		Subject: params.Subject,
		Text:    params.Text,
		Html:    params.HTML,
		ReplyTo: params.ReplyTo,
		Headers: params.Headers,
	}

	sent, err := m.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent",
		slog.String("provider_id", sent.Id),
		slog.String("subject", params.Subject))
	return sent.Id, nil
}

// FetchReceivedBody retrieves the full body of an inbound email whose
// webhook event omitted the content inline.
func (m *ResendMailer) FetchReceivedBody(ctx context.Context, emailID string) (*ReceivedBody, error) {
	url := fmt.Sprintf(receivingEndpoint, emailID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build body fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch received email body: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("received email fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	var received ReceivedBody
	if err := json.NewDecoder(resp.Body).Decode(&received); err != nil {
		return nil, fmt.Errorf("failed to decode received email body: %w", err)
	}
	return &received, nil
}
