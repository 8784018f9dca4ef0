package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/payrollcheck/payrollcheck-backend/internal/api/response"
	"github.com/payrollcheck/payrollcheck-backend/internal/email"
	"github.com/payrollcheck/payrollcheck-backend/internal/mailer"
	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
)

// EmailHandler handles outbound email HTTP requests
type EmailHandler struct {
	leadRepo      repository.LeadRepository
	convRepo      repository.ConversationRepository
	messageRepo   repository.MessageRepository
	mailer        mailer.Mailer
	fromAddress   string
	inboundDomain string
	logger        *slog.Logger
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(leadRepo repository.LeadRepository, convRepo repository.ConversationRepository, messageRepo repository.MessageRepository, m mailer.Mailer, fromAddress, inboundDomain string, log *slog.Logger) *EmailHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EmailHandler{
		leadRepo:      leadRepo,
		convRepo:      convRepo,
		messageRepo:   messageRepo,
		mailer:        m,
		fromAddress:   fromAddress,
		inboundDomain: inboundDomain,
		logger:        log,
	}
}

// SendEmailRequest represents a staff-composed outbound email
type SendEmailRequest struct {
	LeadID         string `json:"lead_id"`
	ConversationID string `json:"conversation_id"`
	Subject        string `json:"subject"`
	Text           string `json:"text"`
	HTML           string `json:"html"`
}

// SendEmailResponse reports where the outbound email was stored
type SendEmailResponse struct {
	ConversationID    string `json:"conversation_id"`
	MessageID         string `json:"message_id,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
}

// Send handles POST /api/email/send
func (h *EmailHandler) Send(c echo.Context) error {
	var req SendEmailRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.LeadID == "" {
		return response.BadRequest(c, "lead_id is required")
	}
	if req.Subject == "" {
		return response.BadRequest(c, "subject is required")
	}
	if req.Text == "" {
		return response.BadRequest(c, "message body is required")
	}

	ctx := c.Request().Context()

	lead, err := h.leadRepo.GetByID(ctx, req.LeadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "lead not found")
		}
		return response.InternalError(c, "failed to get lead")
	}

	// Reuse the requested conversation or open a new one for this lead
	var conv *models.EmailConversation
	if req.ConversationID != "" {
		conv, err = h.convRepo.GetByID(ctx, req.ConversationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return response.NotFound(c, "conversation not found")
			}
			return response.InternalError(c, "failed to get conversation")
		}
		if conv.LeadID != lead.ID {
			return response.NotFound(c, "conversation not found")
		}
	} else {
		conv = &models.EmailConversation{
			LeadID:  lead.ID,
			Subject: req.Subject,
			Status:  models.ConversationStatusOpen,
		}
		if err := h.convRepo.Create(ctx, conv); err != nil {
			return response.InternalError(c, "failed to create conversation")
		}
	}

	providerID, err := h.mailer.Send(ctx, mailer.SendParams{
		From:    h.fromAddress,
		To:      []string{lead.Email},
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
		ReplyTo: email.BuildReplyToAddress(conv.ReplyToken, h.inboundDomain),
	})
	if err != nil {
		h.logger.Error("failed to send email",
			slog.String("conversation_id", conv.ID),
			slog.String("error", err.Error()))
		return response.InternalError(c, "failed to send email")
	}

	message := &models.EmailMessage{
		ConversationID:    conv.ID,
		Direction:         models.DirectionOutbound,
		FromEmail:         h.fromAddress,
		ToEmail:           lead.Email,
		Subject:           req.Subject,
		TextBody:          &req.Text,
		Provider:          "resend",
		ProviderMessageID: optionalValue(providerID),
		OccurredAt:        time.Now().UTC(),
		CreatedByAdminID:  adminID(c),
	}
	if req.HTML != "" {
		message.HTMLBody = &req.HTML
	}

	// The email already left; a storage failure is logged, not returned
	if err := h.messageRepo.Create(ctx, message); err != nil {
		h.logger.Error("failed to store outbound message",
			slog.String("conversation_id", conv.ID),
			slog.String("error", err.Error()))
	}

	if err := h.convRepo.Touch(ctx, conv.ID, time.Now().UTC()); err != nil {
		h.logger.Error("failed to touch conversation",
			slog.String("conversation_id", conv.ID),
			slog.String("error", err.Error()))
	}

	return response.Success(c, SendEmailResponse{
		ConversationID:    conv.ID,
		MessageID:         message.ID,
		ProviderMessageID: providerID,
	})
}

// adminID reads the acting staff identity from the request, when provided
func adminID(c echo.Context) *string {
	if id := c.Request().Header.Get("X-Admin-ID"); id != "" {
		return &id
	}
	return nil
}

// optionalValue returns nil for an empty string
func optionalValue(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
