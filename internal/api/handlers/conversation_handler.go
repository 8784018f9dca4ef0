package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/payrollcheck/payrollcheck-backend/internal/api/response"
	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
)

// ConversationHandler handles conversation-related HTTP requests
type ConversationHandler struct {
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	draftRepo   repository.DraftRepository
	leadRepo    repository.LeadRepository
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(convRepo repository.ConversationRepository, messageRepo repository.MessageRepository, draftRepo repository.DraftRepository, leadRepo repository.LeadRepository) *ConversationHandler {
	return &ConversationHandler{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		draftRepo:   draftRepo,
		leadRepo:    leadRepo,
	}
}

// UpdateConversationStatusRequest represents a conversation status change
type UpdateConversationStatusRequest struct {
	Status models.ConversationStatus `json:"status"`
}

// ListByLead handles GET /api/leads/:id/conversations
func (h *ConversationHandler) ListByLead(c echo.Context) error {
	leadID := c.Param("id")

	// Verify lead exists
	if _, err := h.leadRepo.GetByID(c.Request().Context(), leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "lead not found")
		}
		return response.InternalError(c, "failed to get lead")
	}

	conversations, err := h.convRepo.ListByLead(c.Request().Context(), leadID)
	if err != nil {
		return response.InternalError(c, "failed to list conversations")
	}

	return response.Success(c, conversations)
}

// Get handles GET /api/conversations/:id
func (h *ConversationHandler) Get(c echo.Context) error {
	conv, err := h.convRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "conversation not found")
		}
		return response.InternalError(c, "failed to get conversation")
	}

	return response.Success(c, conv)
}

// ListMessages handles GET /api/conversations/:id/messages
func (h *ConversationHandler) ListMessages(c echo.Context) error {
	conversationID := c.Param("id")

	if _, err := h.convRepo.GetByID(c.Request().Context(), conversationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "conversation not found")
		}
		return response.InternalError(c, "failed to get conversation")
	}

	limit, offset := parsePagination(c)

	messages, total, err := h.messageRepo.ListByConversation(c.Request().Context(), conversationID, limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list messages")
	}

	return response.Paginated(c, messages, total, limit, offset)
}

// ListDrafts handles GET /api/conversations/:id/drafts
func (h *ConversationHandler) ListDrafts(c echo.Context) error {
	conversationID := c.Param("id")

	if _, err := h.convRepo.GetByID(c.Request().Context(), conversationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "conversation not found")
		}
		return response.InternalError(c, "failed to get conversation")
	}

	drafts, err := h.draftRepo.ListByConversation(c.Request().Context(), conversationID)
	if err != nil {
		return response.InternalError(c, "failed to list drafts")
	}

	return response.Success(c, drafts)
}

// UpdateStatus handles PATCH /api/conversations/:id/status
func (h *ConversationHandler) UpdateStatus(c echo.Context) error {
	var req UpdateConversationStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	switch req.Status {
	case models.ConversationStatusOpen, models.ConversationStatusPending, models.ConversationStatusClosed:
	default:
		return response.BadRequest(c, "invalid status")
	}

	if err := h.convRepo.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "conversation not found")
		}
		return response.InternalError(c, "failed to update conversation status")
	}

	return response.SuccessWithMessage(c, nil, "conversation status updated")
}
