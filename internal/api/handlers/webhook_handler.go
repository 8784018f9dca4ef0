package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/labstack/echo/v4"
	svix "github.com/svix/svix-webhooks/go"

	"github.com/payrollcheck/payrollcheck-backend/internal/api/response"
	apperrors "github.com/payrollcheck/payrollcheck-backend/internal/errors"
	"github.com/payrollcheck/payrollcheck-backend/internal/inbound"
	"github.com/payrollcheck/payrollcheck-backend/internal/logger"
)

// eventTypeReceived is the only Resend event kind this endpoint processes
const eventTypeReceived = "email.received"

// EventResolver correlates a verified inbound email event with its
// conversation. Satisfied by *inbound.Resolver.
type EventResolver interface {
	Resolve(ctx context.Context, event *inbound.Event) (*inbound.Result, error)
}

// WebhookHandler handles inbound email webhooks from Resend
type WebhookHandler struct {
	resolver EventResolver
	verifier *svix.Webhook
	secLog   *logger.SecurityLogger
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler. The verifier is nil when no
// webhook secret is configured, which disables signature verification and is
// only acceptable in local development.
func NewWebhookHandler(resolver EventResolver, webhookSecret string, secLog *logger.SecurityLogger, log *slog.Logger) (*WebhookHandler, error) {
	var verifier *svix.Webhook
	if webhookSecret != "" {
		wh, err := svix.NewWebhook(webhookSecret)
		if err != nil {
			return nil, err
		}
		verifier = wh
	}

	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		resolver: resolver,
		verifier: verifier,
		secLog:   secLog,
		logger:   log,
	}, nil
}

// resendEvent is the envelope Resend delivers for every webhook
type resendEvent struct {
	Type string          `json:"type"`
	Data resendEventData `json:"data"`
}

// resendEventData carries the inbound email fields
type resendEventData struct {
	From      string         `json:"from"`
	To        []string       `json:"to"`
	Subject   string         `json:"subject"`
	Text      *string        `json:"text,omitempty"`
	HTML      *string        `json:"html,omitempty"`
	Headers   []resendHeader `json:"headers,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
	EmailID   string         `json:"email_id,omitempty"`
}

// resendHeader is one name/value header pair as Resend serializes them
type resendHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HandleResend handles POST /webhooks/resend
func (h *WebhookHandler) HandleResend(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return response.BadRequest(c, "failed to read request body")
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(raw, c.Request().Header); err != nil {
			if h.secLog != nil {
				h.secLog.WebhookRejected(c.RealIP(), "resend", "invalid_signature")
			}
			return response.Error(c, apperrors.ErrInvalidSignature)
		}
	}

	var event resendEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return response.BadRequest(c, "invalid webhook payload")
	}

	// Acknowledge and skip everything that is not an inbound email
	if event.Type != eventTypeReceived {
		return response.SuccessWithMessage(c, map[string]string{"skipped": event.Type}, "event skipped")
	}

	result, err := h.resolver.Resolve(c.Request().Context(), toInboundEvent(&event, raw))
	if err != nil {
		h.logger.Error("failed to process inbound webhook",
			slog.String("from", event.Data.From),
			slog.String("error", err.Error()))
		return response.InternalError(c, "failed to process inbound email")
	}

	return response.Success(c, result)
}

// toInboundEvent converts the verified webhook payload into a resolver event
func toInboundEvent(event *resendEvent, raw []byte) *inbound.Event {
	headers := make(map[string]string, len(event.Data.Headers))
	for _, h := range event.Data.Headers {
		headers[h.Name] = h.Value
	}

	return &inbound.Event{
		From:       event.Data.From,
		To:         event.Data.To,
		Subject:    event.Data.Subject,
		Text:       event.Data.Text,
		HTML:       event.Data.HTML,
		Headers:    headers,
		MessageID:  event.Data.MessageID,
		EmailID:    event.Data.EmailID,
		Provider:   "resend",
		RawPayload: raw,
	}
}
