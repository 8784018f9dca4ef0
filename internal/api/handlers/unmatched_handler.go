package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/payrollcheck/payrollcheck-backend/internal/api/response"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
)

// UnmatchedHandler handles unmatched inbound email HTTP requests
type UnmatchedHandler struct {
	unmatchedRepo repository.UnmatchedRepository
}

// NewUnmatchedHandler creates a new UnmatchedHandler
func NewUnmatchedHandler(unmatchedRepo repository.UnmatchedRepository) *UnmatchedHandler {
	return &UnmatchedHandler{unmatchedRepo: unmatchedRepo}
}

// List handles GET /api/unmatched
func (h *UnmatchedHandler) List(c echo.Context) error {
	limit, offset := parsePagination(c)

	records, total, err := h.unmatchedRepo.List(c.Request().Context(), limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list unmatched emails")
	}

	return response.Paginated(c, records, total, limit, offset)
}
