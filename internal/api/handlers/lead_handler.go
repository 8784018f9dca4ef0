package handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	"github.com/payrollcheck/payrollcheck-backend/internal/api/response"
	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
	"github.com/payrollcheck/payrollcheck-backend/internal/scoring"
	"github.com/payrollcheck/payrollcheck-backend/internal/validator"
)

// LeadHandler handles lead-related HTTP requests
type LeadHandler struct {
	leadRepo repository.LeadRepository
}

// NewLeadHandler creates a new LeadHandler
func NewLeadHandler(leadRepo repository.LeadRepository) *LeadHandler {
	return &LeadHandler{leadRepo: leadRepo}
}

// CreateLeadRequest represents the intake form submission
type CreateLeadRequest struct {
	FullName              string  `json:"full_name"`
	Phone                 string  `json:"phone"`
	Email                 string  `json:"email"`
	City                  string  `json:"city"`
	EmployerName          string  `json:"employer_name"`
	RoleTitle             string  `json:"role_title"`
	EmploymentType        string  `json:"employment_type"`
	StartDate             string  `json:"start_date"`
	EndDate               string  `json:"end_date"`
	StillEmployed         bool    `json:"still_employed"`
	AvgMonthlySalary      float64 `json:"avg_monthly_salary"`
	PaidOvertime          string  `json:"paid_overtime"`
	OvertimeHoursEstimate string  `json:"overtime_hours_estimate"`
	AttendanceTracking    string  `json:"attendance_tracking"`
	PensionProvided       string  `json:"pension_provided"`
	PensionRateKnown      string  `json:"pension_rate_known"`
	TravelReimbursement   string  `json:"travel_reimbursement"`
	VacationBalanceIssue  string  `json:"vacation_balance_issue"`
	SickDaysIssue         string  `json:"sick_days_issue"`
	TerminationType       string  `json:"termination_type"`
	TerminationDate       string  `json:"termination_date"`
	ReasonForCheck        string  `json:"reason_for_check"`
	Consent               bool    `json:"consent"`
	MarketingSource       string  `json:"marketing_source"`
}

// UpdateStatusRequest represents a lead status change
type UpdateStatusRequest struct {
	Status models.LeadStatus `json:"status"`
}

// UpdateNotesRequest represents an admin notes change
type UpdateNotesRequest struct {
	AdminNotes string `json:"admin_notes"`
}

// Create handles POST /api/leads
func (h *LeadHandler) Create(c echo.Context) error {
	var req CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	req.FullName = validator.SanitizeString(req.FullName, 255)
	if req.FullName == "" {
		return response.BadRequest(c, "full_name is required")
	}
	if err := validator.ValidateEmail(req.Email); err != nil {
		return response.BadRequest(c, "invalid email address")
	}
	if err := validator.ValidatePhone(req.Phone); err != nil {
		return response.BadRequest(c, "invalid phone number")
	}
	if !req.Consent {
		return response.BadRequest(c, "consent is required")
	}

	lead := &models.Lead{
		Status:                models.LeadStatusNew,
		FullName:              req.FullName,
		Phone:                 req.Phone,
		Email:                 req.Email,
		City:                  validator.SanitizeString(req.City, 255),
		EmployerName:          validator.SanitizeString(req.EmployerName, 255),
		RoleTitle:             validator.SanitizeString(req.RoleTitle, 255),
		EmploymentType:        req.EmploymentType,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		StillEmployed:         req.StillEmployed,
		AvgMonthlySalary:      req.AvgMonthlySalary,
		PaidOvertime:          req.PaidOvertime,
		OvertimeHoursEstimate: req.OvertimeHoursEstimate,
		AttendanceTracking:    req.AttendanceTracking,
		PensionProvided:       req.PensionProvided,
		PensionRateKnown:      req.PensionRateKnown,
		TravelReimbursement:   req.TravelReimbursement,
		VacationBalanceIssue:  req.VacationBalanceIssue,
		SickDaysIssue:         req.SickDaysIssue,
		TerminationType:       req.TerminationType,
		TerminationDate:       req.TerminationDate,
		ReasonForCheck:        req.ReasonForCheck,
		Consent:               req.Consent,
		MarketingSource:       req.MarketingSource,
	}

	scored := scoring.ComputeScore(lead)
	lead.LeadScore = scored.Score
	lead.LeadFlags = datatypes.NewJSONType(scored.Flags)

	if err := h.leadRepo.Create(c.Request().Context(), lead); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "lead already exists")
		}
		return response.InternalError(c, "failed to create lead")
	}

	return response.Created(c, lead)
}

// List handles GET /api/leads
func (h *LeadHandler) List(c echo.Context) error {
	limit, offset := parsePagination(c)

	status := models.LeadStatus(c.QueryParam("status"))
	if status != "" && !isValidLeadStatus(status) {
		return response.BadRequest(c, "invalid status filter")
	}

	leads, total, err := h.leadRepo.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		return response.InternalError(c, "failed to list leads")
	}

	return response.Paginated(c, leads, total, limit, offset)
}

// Get handles GET /api/leads/:id
func (h *LeadHandler) Get(c echo.Context) error {
	lead, err := h.leadRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "lead not found")
		}
		return response.InternalError(c, "failed to get lead")
	}

	return response.Success(c, lead)
}

// UpdateStatus handles PATCH /api/leads/:id/status
func (h *LeadHandler) UpdateStatus(c echo.Context) error {
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if !isValidLeadStatus(req.Status) {
		return response.BadRequest(c, "invalid status")
	}

	if err := h.leadRepo.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "lead not found")
		}
		return response.InternalError(c, "failed to update lead status")
	}

	return response.SuccessWithMessage(c, nil, "lead status updated")
}

// UpdateNotes handles PATCH /api/leads/:id/notes
func (h *LeadHandler) UpdateNotes(c echo.Context) error {
	var req UpdateNotesRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if err := h.leadRepo.UpdateNotes(c.Request().Context(), c.Param("id"), req.AdminNotes); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "lead not found")
		}
		return response.InternalError(c, "failed to update lead notes")
	}

	return response.SuccessWithMessage(c, nil, "lead notes updated")
}

// isValidLeadStatus reports whether a status is one of the known values
func isValidLeadStatus(status models.LeadStatus) bool {
	switch status {
	case models.LeadStatusNew, models.LeadStatusReviewing, models.LeadStatusAccepted, models.LeadStatusRejected:
		return true
	}
	return false
}

// parsePagination reads limit and offset query parameters and clamps them
func parsePagination(c echo.Context) (int, int) {
	limit := 0
	offset := 0

	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil {
			offset = parsed
		}
	}

	return validator.ValidatePagination(limit, offset)
}
