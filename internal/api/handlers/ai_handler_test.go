package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/payrollcheck/payrollcheck-backend/internal/ai"
	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
	"github.com/payrollcheck/payrollcheck-backend/tests/fixtures"
	"github.com/payrollcheck/payrollcheck-backend/tests/mocks"
)

// mockAnalyzer implements CaseAnalyzer for handler tests
type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) AnalyzeInboundEmail(ctx context.Context, params ai.AnalyzeParams) ai.AnalyzeResult {
	args := m.Called(ctx, params)
	return args.Get(0).(ai.AnalyzeResult)
}

// AIHandlerTestSuite is the test suite for AIHandler
type AIHandlerTestSuite struct {
	suite.Suite
	echo           *echo.Echo
	handler        *AIHandler
	mockAnalyzer   *mockAnalyzer
	mockStateRepo  *mocks.MockStateRepository
	mockActionRepo *mocks.MockActionRepository
	mockLeadRepo   *mocks.MockLeadRepository
}

// SetupTest runs before each test
func (s *AIHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockAnalyzer = new(mockAnalyzer)
	s.mockStateRepo = new(mocks.MockStateRepository)
	s.mockActionRepo = new(mocks.MockActionRepository)
	s.mockLeadRepo = new(mocks.MockLeadRepository)
	s.handler = NewAIHandler(s.mockAnalyzer, s.mockStateRepo, s.mockActionRepo, s.mockLeadRepo)
}

// TearDownTest runs after each test
func (s *AIHandlerTestSuite) TearDownTest() {
	s.mockAnalyzer.AssertExpectations(s.T())
	s.mockStateRepo.AssertExpectations(s.T())
	s.mockActionRepo.AssertExpectations(s.T())
	s.mockLeadRepo.AssertExpectations(s.T())
}

// TestAIHandlerTestSuite runs the test suite
func TestAIHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AIHandlerTestSuite))
}

// Helper function to create a test context
func (s *AIHandlerTestSuite) createContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	return c, rec
}

// ==================== Analyze Tests ====================

// TestAnalyze_Success tests a manual analysis refresh
func (s *AIHandlerTestSuite) TestAnalyze_Success() {
	body := `{"lead_id": "lead-1", "conversation_id": "conv-1"}`
	c, rec := s.createContext(http.MethodPost, "/api/ai/analyze", body)
	c.Request().Header.Set("X-Admin-ID", "admin-3")

	s.mockAnalyzer.On("AnalyzeInboundEmail", mock.Anything, mock.MatchedBy(func(params ai.AnalyzeParams) bool {
		return params.LeadID == "lead-1" &&
			params.ConversationID == "conv-1" &&
			params.Trigger == models.TriggerManualRefresh &&
			params.AdminID == "admin-3"
	})).Return(ai.AnalyzeResult{Success: true, ActionID: "action-1", DraftID: "draft-1"})

	err := s.handler.Analyze(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}

// TestAnalyze_MissingLeadID tests rejecting a request without a lead
func (s *AIHandlerTestSuite) TestAnalyze_MissingLeadID() {
	c, rec := s.createContext(http.MethodPost, "/api/ai/analyze", `{"conversation_id": "conv-1"}`)

	err := s.handler.Analyze(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

// TestAnalyze_MissingConversationID tests rejecting a request without a conversation
func (s *AIHandlerTestSuite) TestAnalyze_MissingConversationID() {
	c, rec := s.createContext(http.MethodPost, "/api/ai/analyze", `{"lead_id": "lead-1"}`)

	err := s.handler.Analyze(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}

// TestAnalyze_Failure tests surfacing an analysis failure
func (s *AIHandlerTestSuite) TestAnalyze_Failure() {
	body := `{"lead_id": "lead-1", "conversation_id": "conv-1"}`
	c, rec := s.createContext(http.MethodPost, "/api/ai/analyze", body)

	s.mockAnalyzer.On("AnalyzeInboundEmail", mock.Anything, mock.Anything).
		Return(ai.AnalyzeResult{Success: false, Error: "generation failed"})

	err := s.handler.Analyze(c)

	s.NoError(err)
	s.Equal(http.StatusInternalServerError, rec.Code)
}

// ==================== GetState Tests ====================

// TestGetState_Success tests retrieving the case state for a lead
func (s *AIHandlerTestSuite) TestGetState_Success() {
	lead := fixtures.NewLeadBuilder().Build()
	state := &models.CaseAiState{
		ID:       "state-1",
		LeadID:   lead.ID,
		CaseType: "payroll_rights",
		Summary:  "עובד ללא הפרשות פנסיה",
	}

	c, rec := s.createContext(http.MethodGet, "/api/leads/"+lead.ID+"/ai/state", "")
	c.SetParamNames("id")
	c.SetParamValues(lead.ID)

	s.mockLeadRepo.On("GetByID", mock.Anything, lead.ID).Return(lead, nil)
	s.mockStateRepo.On("GetByLead", mock.Anything, lead.ID).Return(state, nil)

	err := s.handler.GetState(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}

// TestGetState_NoState tests a lead that was never analyzed
func (s *AIHandlerTestSuite) TestGetState_NoState() {
	lead := fixtures.NewLeadBuilder().Build()

	c, rec := s.createContext(http.MethodGet, "/api/leads/"+lead.ID+"/ai/state", "")
	c.SetParamNames("id")
	c.SetParamValues(lead.ID)

	s.mockLeadRepo.On("GetByID", mock.Anything, lead.ID).Return(lead, nil)
	s.mockStateRepo.On("GetByLead", mock.Anything, lead.ID).Return(nil, repository.ErrNotFound)

	err := s.handler.GetState(c)

	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}

// TestGetState_LeadNotFound tests an unknown lead
func (s *AIHandlerTestSuite) TestGetState_LeadNotFound() {
	c, rec := s.createContext(http.MethodGet, "/api/leads/missing/ai/state", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	s.mockLeadRepo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	err := s.handler.GetState(c)

	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}

// ==================== ListActions Tests ====================

// TestListActions_Success tests listing the audit log for a lead
func (s *AIHandlerTestSuite) TestListActions_Success() {
	lead := fixtures.NewLeadBuilder().Build()
	actions := []models.CaseAiAction{
		{ID: "action-1", LeadID: lead.ID, Trigger: models.TriggerInboundEmail, Status: models.ActionStatusSuccess},
		{ID: "action-2", LeadID: lead.ID, Trigger: models.TriggerManualRefresh, Status: models.ActionStatusFailed},
	}

	c, rec := s.createContext(http.MethodGet, "/api/leads/"+lead.ID+"/ai/actions", "")
	c.SetParamNames("id")
	c.SetParamValues(lead.ID)

	s.mockLeadRepo.On("GetByID", mock.Anything, lead.ID).Return(lead, nil)
	s.mockActionRepo.On("ListByLead", mock.Anything, lead.ID, 20, 0).Return(actions, int64(2), nil)

	err := s.handler.ListActions(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}
