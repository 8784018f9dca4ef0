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

// DraftHandler handles AI draft HTTP requests
type DraftHandler struct {
	draftRepo     repository.DraftRepository
	convRepo      repository.ConversationRepository
	leadRepo      repository.LeadRepository
	messageRepo   repository.MessageRepository
	mailer        mailer.Mailer
	fromAddress   string
	inboundDomain string
	logger        *slog.Logger
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(draftRepo repository.DraftRepository, convRepo repository.ConversationRepository, leadRepo repository.LeadRepository, messageRepo repository.MessageRepository, m mailer.Mailer, fromAddress, inboundDomain string, log *slog.Logger) *DraftHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DraftHandler{
		draftRepo:     draftRepo,
		convRepo:      convRepo,
		leadRepo:      leadRepo,
		messageRepo:   messageRepo,
		mailer:        m,
		fromAddress:   fromAddress,
		inboundDomain: inboundDomain,
		logger:        log,
	}
}

// Send handles POST /api/drafts/:id/send
func (h *DraftHandler) Send(c echo.Context) error {
	ctx := c.Request().Context()

	draft, err := h.draftRepo.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "draft not found")
		}
		return response.InternalError(c, "failed to get draft")
	}

	if draft.Status != models.DraftStatusProposed {
		return response.BadRequest(c, "draft is not in proposed state")
	}

	conv, err := h.convRepo.GetByID(ctx, draft.ConversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "conversation not found")
		}
		return response.InternalError(c, "failed to get conversation")
	}

	lead, err := h.leadRepo.GetByID(ctx, conv.LeadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "lead not found")
		}
		return response.InternalError(c, "failed to get lead")
	}

	params := mailer.SendParams{
		From:    h.fromAddress,
		To:      []string{lead.Email},
		Subject: draft.SuggestedSubject,
		Text:    draft.SuggestedText,
		ReplyTo: email.BuildReplyToAddress(conv.ReplyToken, h.inboundDomain),
	}
	if draft.SuggestedHTML != nil {
		params.HTML = *draft.SuggestedHTML
	}

	providerID, err := h.mailer.Send(ctx, params)
	if err != nil {
		h.logger.Error("failed to send draft",
			slog.String("draft_id", draft.ID),
			slog.String("error", err.Error()))
		return response.InternalError(c, "failed to send email")
	}

	// Guarded transition: a draft already sent or discarded by a
	// concurrent request is not sent twice
	if err := h.draftRepo.UpdateStatus(ctx, draft.ID, models.DraftStatusProposed, models.DraftStatusSent); err != nil {
		h.logger.Error("failed to mark draft as sent",
			slog.String("draft_id", draft.ID),
			slog.String("error", err.Error()))
	}

	message := &models.EmailMessage{
		ConversationID:    conv.ID,
		Direction:         models.DirectionOutbound,
		FromEmail:         h.fromAddress,
		ToEmail:           lead.Email,
		Subject:           draft.SuggestedSubject,
		TextBody:          &draft.SuggestedText,
		HTMLBody:          draft.SuggestedHTML,
		Provider:          "resend",
		ProviderMessageID: optionalValue(providerID),
		OccurredAt:        time.Now().UTC(),
		CreatedByAdminID:  adminID(c),
	}
	if err := h.messageRepo.Create(ctx, message); err != nil {
		h.logger.Error("failed to store outbound message",
			slog.String("draft_id", draft.ID),
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

// Discard handles POST /api/drafts/:id/discard
func (h *DraftHandler) Discard(c echo.Context) error {
	err := h.draftRepo.UpdateStatus(c.Request().Context(), c.Param("id"), models.DraftStatusProposed, models.DraftStatusDiscarded)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "no proposed draft with that ID")
		}
		return response.InternalError(c, "failed to discard draft")
	}

	return response.SuccessWithMessage(c, nil, "draft discarded")
}
