package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/payrollcheck/payrollcheck-backend/internal/api/response"
	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
	"github.com/payrollcheck/payrollcheck-backend/tests/fixtures"
	"github.com/payrollcheck/payrollcheck-backend/tests/mocks"
)

// ConversationHandlerTestSuite is the test suite for ConversationHandler
type ConversationHandlerTestSuite struct {
	suite.Suite
	echo          *echo.Echo
	handler       *ConversationHandler
	mockConvRepo  *mocks.MockConversationRepository
	mockMsgRepo   *mocks.MockMessageRepository
	mockDraftRepo *mocks.MockDraftRepository
	mockLeadRepo  *mocks.MockLeadRepository
}

// SetupTest runs before each test
func (s *ConversationHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockConvRepo = new(mocks.MockConversationRepository)
	s.mockMsgRepo = new(mocks.MockMessageRepository)
	s.mockDraftRepo = new(mocks.MockDraftRepository)
	s.mockLeadRepo = new(mocks.MockLeadRepository)
	s.handler = NewConversationHandler(s.mockConvRepo, s.mockMsgRepo, s.mockDraftRepo, s.mockLeadRepo)
}

// TearDownTest runs after each test
func (s *ConversationHandlerTestSuite) TearDownTest() {
	s.mockConvRepo.AssertExpectations(s.T())
	s.mockMsgRepo.AssertExpectations(s.T())
	s.mockDraftRepo.AssertExpectations(s.T())
	s.mockLeadRepo.AssertExpectations(s.T())
}

// TestConversationHandlerTestSuite runs the test suite
func TestConversationHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ConversationHandlerTestSuite))
}

// Helper function to create a test context
func (s *ConversationHandlerTestSuite) createContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	return c, rec
}

// ==================== ListByLead Tests ====================

// TestListByLead_Success tests listing a lead's conversations
func (s *ConversationHandlerTestSuite) TestListByLead_Success() {
	lead := fixtures.NewLeadBuilder().Build()
	conversations := []models.EmailConversation{
		fixtures.NewConversationBuilder().WithLeadID(lead.ID).BuildValue(),
	}

	c, rec := s.createContext(http.MethodGet, "/api/leads/"+lead.ID+"/conversations", "")
	c.SetParamNames("id")
	c.SetParamValues(lead.ID)

	s.mockLeadRepo.On("GetByID", mock.Anything, lead.ID).Return(lead, nil)
	s.mockConvRepo.On("ListByLead", mock.Anything, lead.ID).Return(conversations, nil)

	err := s.handler.ListByLead(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}

// TestListByLead_LeadNotFound tests listing for an unknown lead
func (s *ConversationHandlerTestSuite) TestListByLead_LeadNotFound() {
	c, rec := s.createContext(http.MethodGet, "/api/leads/missing/conversations", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	s.mockLeadRepo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	err := s.handler.ListByLead(c)

	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}

// ==================== Get Tests ====================

// TestGet_Success tests retrieving a conversation
func (s *ConversationHandlerTestSuite) TestGet_Success() {
	conv := fixtures.NewConversationBuilder().Build()

	c, rec := s.createContext(http.MethodGet, "/api/conversations/"+conv.ID, "")
	c.SetParamNames("id")
	c.SetParamValues(conv.ID)

	s.mockConvRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)

	err := s.handler.Get(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)

	var resp response.APIResponse
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Success)
}

// TestGet_NotFound tests retrieving a nonexistent conversation
func (s *ConversationHandlerTestSuite) TestGet_NotFound() {
	c, rec := s.createContext(http.MethodGet, "/api/conversations/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	s.mockConvRepo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	err := s.handler.Get(c)

	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}

// ==================== ListMessages Tests ====================

// TestListMessages_Success tests listing a conversation's messages
func (s *ConversationHandlerTestSuite) TestListMessages_Success() {
	conv := fixtures.NewConversationBuilder().Build()
	messages := []models.EmailMessage{
		fixtures.NewMessageBuilder().WithConversationID(conv.ID).BuildValue(),
		fixtures.NewMessageBuilder().WithConversationID(conv.ID).WithDirection(models.DirectionOutbound).BuildValue(),
	}

	c, rec := s.createContext(http.MethodGet, "/api/conversations/"+conv.ID+"/messages?limit=50", "")
	c.SetParamNames("id")
	c.SetParamValues(conv.ID)

	s.mockConvRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)
	s.mockMsgRepo.On("ListByConversation", mock.Anything, conv.ID, 50, 0).Return(messages, int64(2), nil)

	err := s.handler.ListMessages(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)

	var resp response.PaginatedResponse
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(int64(2), resp.Meta.Total)
}

// TestListMessages_ConversationNotFound tests listing for an unknown conversation
func (s *ConversationHandlerTestSuite) TestListMessages_ConversationNotFound() {
	c, rec := s.createContext(http.MethodGet, "/api/conversations/missing/messages", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	s.mockConvRepo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	err := s.handler.ListMessages(c)

	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}

// ==================== ListDrafts Tests ====================

// TestListDrafts_Success tests listing a conversation's drafts
func (s *ConversationHandlerTestSuite) TestListDrafts_Success() {
	conv := fixtures.NewConversationBuilder().Build()
	drafts := []models.CaseAiDraft{
		fixtures.NewDraftBuilder().WithConversationID(conv.ID).BuildValue(),
	}

	c, rec := s.createContext(http.MethodGet, "/api/conversations/"+conv.ID+"/drafts", "")
	c.SetParamNames("id")
	c.SetParamValues(conv.ID)

	s.mockConvRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)
	s.mockDraftRepo.On("ListByConversation", mock.Anything, conv.ID).Return(drafts, nil)

	err := s.handler.ListDrafts(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}

// ==================== UpdateStatus Tests ====================

// TestUpdateStatus_Success tests closing a conversation
func (s *ConversationHandlerTestSuite) TestUpdateStatus_Success() {
	c, rec := s.createContext(http.MethodPatch, "/api/conversations/conv-1/status", `{"status": "closed"}`)
	c.SetParamNames("id")
	c.SetParamValues("conv-1")

	s.mockConvRepo.On("UpdateStatus", mock.Anything, "conv-1", models.ConversationStatusClosed).Return(nil)

	err := s.handler.UpdateStatus(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)
}

// TestUpdateStatus_InvalidStatus tests rejecting an unknown status
func (s *ConversationHandlerTestSuite) TestUpdateStatus_InvalidStatus() {
	c, rec := s.createContext(http.MethodPatch, "/api/conversations/conv-1/status", `{"status": "archived"}`)
	c.SetParamNames("id")
	c.SetParamValues("conv-1")

	err := s.handler.UpdateStatus(c)

	s.NoError(err)
	s.Equal(http.StatusBadRequest, rec.Code)
}
