package handlers

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/payrollcheck/payrollcheck-backend/internal/ai"
	"github.com/payrollcheck/payrollcheck-backend/internal/api/response"
	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
)

// CaseAnalyzer runs one AI analysis pass. Satisfied by *ai.Analyzer.
type CaseAnalyzer interface {
	AnalyzeInboundEmail(ctx context.Context, params ai.AnalyzeParams) ai.AnalyzeResult
}

// AIHandler handles AI case-assistant HTTP requests
type AIHandler struct {
	analyzer   CaseAnalyzer
	stateRepo  repository.StateRepository
	actionRepo repository.ActionRepository
	leadRepo   repository.LeadRepository
}

// NewAIHandler creates a new AIHandler
func NewAIHandler(analyzer CaseAnalyzer, stateRepo repository.StateRepository, actionRepo repository.ActionRepository, leadRepo repository.LeadRepository) *AIHandler {
	return &AIHandler{
		analyzer:   analyzer,
		stateRepo:  stateRepo,
		actionRepo: actionRepo,
		leadRepo:   leadRepo,
	}
}

// AnalyzeRequest represents a manual analysis refresh
type AnalyzeRequest struct {
	LeadID         string `json:"lead_id"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// Analyze handles POST /api/ai/analyze
func (h *AIHandler) Analyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.LeadID == "" {
		return response.BadRequest(c, "lead_id is required")
	}
	if req.ConversationID == "" {
		return response.BadRequest(c, "conversation_id is required")
	}

	params := ai.AnalyzeParams{
		LeadID:         req.LeadID,
		ConversationID: req.ConversationID,
		MessageID:      req.MessageID,
		Trigger:        models.TriggerManualRefresh,
	}
	if id := adminID(c); id != nil {
		params.AdminID = *id
	}

	result := h.analyzer.AnalyzeInboundEmail(c.Request().Context(), params)
	if !result.Success {
		return response.InternalError(c, result.Error)
	}

	return response.Success(c, result)
}

// GetState handles GET /api/leads/:id/ai/state
func (h *AIHandler) GetState(c echo.Context) error {
	leadID := c.Param("id")

	if _, err := h.leadRepo.GetByID(c.Request().Context(), leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "lead not found")
		}
		return response.InternalError(c, "failed to get lead")
	}

	state, err := h.stateRepo.GetByLead(c.Request().Context(), leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "no analysis state for lead")
		}
		return response.InternalError(c, "failed to get case state")
	}

	return response.Success(c, state)
}

// ListActions handles GET /api/leads/:id/ai/actions
func (h *AIHandler) ListActions(c echo.Context) error {
	leadID := c.Param("id")

	if _, err := h.leadRepo.GetByID(c.Request().Context(), leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "lead not found")
		}
		return response.InternalError(c, "failed to get lead")
	}

	limit, offset := parsePagination(c)

	actions, total, err := h.actionRepo.ListByLead(c.Request().Context(), leadID, limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list actions")
	}

	return response.Paginated(c, actions, total, limit, offset)
}
