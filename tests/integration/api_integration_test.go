//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/payrollcheck/payrollcheck-backend/internal/api/handlers"
	"github.com/payrollcheck/payrollcheck-backend/internal/api/response"
	"github.com/payrollcheck/payrollcheck-backend/internal/inbound"
	"github.com/payrollcheck/payrollcheck-backend/internal/mailer"
	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
)

const (
	testFromAddress   = "Payroll Check <team@payrollcheck.example>"
	testInboundDomain = "mail.payrollcheck.example"
)

// recordingMailer captures outbound sends instead of calling the provider
type recordingMailer struct {
	mu    sync.Mutex
	sends []mailer.SendParams
}

func (m *recordingMailer) Send(ctx context.Context, params mailer.SendParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, params)
	return "<" + uuid.NewString() + "@provider.example>", nil
}

func (m *recordingMailer) FetchReceivedBody(ctx context.Context, emailID string) (*mailer.ReceivedBody, error) {
	return &mailer.ReceivedBody{Text: "גוף הודעה שנשלף"}, nil
}

func (m *recordingMailer) lastSend() mailer.SendParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends[len(m.sends)-1]
}

// APIIntegrationTestSuite tests API handlers with real database
type APIIntegrationTestSuite struct {
	suite.Suite
	container testcontainers.Container
	db        *gorm.DB
	echo      *echo.Echo
	mailer    *recordingMailer
	leadRepo  repository.LeadRepository
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	draftRepo repository.DraftRepository
	resolver  *inbound.Resolver
}

// SetupSuite starts PostgreSQL container and wires the API
func (s *APIIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	// Start PostgreSQL container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "payrollcheck_api_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(s.T(), err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=payrollcheck_api_test sslmode=disable",
		host, port.Port())

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)
	s.db = db

	err = db.AutoMigrate(
		&models.Lead{},
		&models.EmailConversation{},
		&models.EmailMessage{},
		&models.InboundUnmatched{},
		&models.CaseAiRules{},
		&models.CaseAiState{},
		&models.CaseAiDraft{},
		&models.CaseAiAction{},
	)
	require.NoError(s.T(), err)

	s.leadRepo = repository.NewLeadRepository(db)
	s.convRepo = repository.NewConversationRepository(db)
	s.msgRepo = repository.NewMessageRepository(db)
	s.draftRepo = repository.NewDraftRepository(db)
	unmatchedRepo := repository.NewUnmatchedRepository(db)

	s.mailer = &recordingMailer{}
	s.resolver = inbound.NewResolver(&inbound.ResolverConfig{
		Leads:         s.leadRepo,
		Conversations: s.convRepo,
		Messages:      s.msgRepo,
		Unmatched:     unmatchedRepo,
		Mailer:        s.mailer,
	})

	leadHandler := handlers.NewLeadHandler(s.leadRepo)
	convHandler := handlers.NewConversationHandler(s.convRepo, s.msgRepo, s.draftRepo, s.leadRepo)
	emailHandler := handlers.NewEmailHandler(s.leadRepo, s.convRepo, s.msgRepo, s.mailer, testFromAddress, testInboundDomain, nil)
	draftHandler := handlers.NewDraftHandler(s.draftRepo, s.convRepo, s.leadRepo, s.msgRepo, s.mailer, testFromAddress, testInboundDomain, nil)
	unmatchedHandler := handlers.NewUnmatchedHandler(unmatchedRepo)

	e := echo.New()
	e.POST("/api/leads", leadHandler.Create)
	e.GET("/api/leads", leadHandler.List)
	e.GET("/api/leads/:id", leadHandler.Get)
	e.PATCH("/api/leads/:id/status", leadHandler.UpdateStatus)
	e.GET("/api/leads/:id/conversations", convHandler.ListByLead)
	e.GET("/api/conversations/:id", convHandler.Get)
	e.GET("/api/conversations/:id/messages", convHandler.ListMessages)
	e.GET("/api/conversations/:id/drafts", convHandler.ListDrafts)
	e.POST("/api/email/send", emailHandler.Send)
	e.POST("/api/drafts/:id/send", draftHandler.Send)
	e.POST("/api/drafts/:id/discard", draftHandler.Discard)
	e.GET("/api/unmatched", unmatchedHandler.List)
	s.echo = e
}

// TearDownSuite stops the PostgreSQL container
func (s *APIIntegrationTestSuite) TearDownSuite() {
	if s.container != nil {
		s.container.Terminate(context.Background())
	}
}

// SetupTest cleans up data before each test
func (s *APIIntegrationTestSuite) SetupTest() {
	s.db.Exec("TRUNCATE TABLE case_ai_actions, case_ai_drafts, case_ai_state, case_ai_rules, inbound_unmatched, email_messages, email_conversations, leads RESTART IDENTITY CASCADE")
}

// TestAPIIntegrationTestSuite runs the test suite
func TestAPIIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(APIIntegrationTestSuite))
}

func (s *APIIntegrationTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func (s *APIIntegrationTestSuite) submitIntake(email string) *models.Lead {
	rec := s.request(http.MethodPost, "/api/leads", map[string]interface{}{
		"full_name":        "ישראל ישראלי",
		"phone":            "0501234567",
		"email":            email,
		"employer_name":    "חברת הדגמה בעמ",
		"paid_overtime":    "no",
		"pension_provided": "no",
		"consent":          true,
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)

	lead, err := s.leadRepo.GetByEmail(context.Background(), email)
	require.NoError(s.T(), err)
	return lead
}

// ==================== Intake Flow Tests ====================

func (s *APIIntegrationTestSuite) TestIntakeAndListing() {
	lead := s.submitIntake("israel@example.com")
	assert.Equal(s.T(), models.LeadStatusNew, lead.Status)
	assert.Greater(s.T(), lead.LeadScore, 0)

	rec := s.request(http.MethodGet, "/api/leads?status=new", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp response.PaginatedResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(s.T(), int64(1), resp.Meta.Total)
}

func (s *APIIntegrationTestSuite) TestIntakeRejectsMissingConsent() {
	rec := s.request(http.MethodPost, "/api/leads", map[string]interface{}{
		"full_name": "ישראל ישראלי",
		"phone":     "0501234567",
		"email":     "noconsent@example.com",
		"consent":   false,
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *APIIntegrationTestSuite) TestLeadStatusUpdate() {
	lead := s.submitIntake("status@example.com")

	rec := s.request(http.MethodPatch, "/api/leads/"+lead.ID+"/status", map[string]string{"status": "reviewing"})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	updated, err := s.leadRepo.GetByID(context.Background(), lead.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.LeadStatusReviewing, updated.Status)
}

// ==================== Outbound Email Tests ====================

func (s *APIIntegrationTestSuite) TestOutboundOpensConversation() {
	lead := s.submitIntake("outbound@example.com")

	rec := s.request(http.MethodPost, "/api/email/send", map[string]string{
		"lead_id": lead.ID,
		"subject": "בדיקת זכויות שכר",
		"text":    "שלום, קיבלנו את פנייתך ונשמח לקבל את תלושי השכר שלך.",
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	convs, err := s.convRepo.ListByLead(context.Background(), lead.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), convs, 1)

	// The outbound email advertises the conversation's reply address
	sent := s.mailer.lastSend()
	assert.Equal(s.T(), []string{lead.Email}, sent.To)
	assert.Equal(s.T(), "reply+"+convs[0].ReplyToken+"@"+testInboundDomain, sent.ReplyTo)
}

// ==================== Inbound Correlation Tests ====================

func (s *APIIntegrationTestSuite) TestInboundReplyByToken() {
	lead := s.submitIntake("reply@example.com")

	rec := s.request(http.MethodPost, "/api/email/send", map[string]string{
		"lead_id": lead.ID,
		"subject": "בדיקת זכויות שכר",
		"text":    "שלום",
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	convs, err := s.convRepo.ListByLead(context.Background(), lead.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), convs, 1)
	conv := convs[0]

	text := "מצרף את תלושי השכר המבוקשים"
	result, err := s.resolver.Resolve(context.Background(), &inbound.Event{
		From:      lead.Email,
		To:        []string{"reply+" + conv.ReplyToken + "@" + testInboundDomain},
		Subject:   "Re: בדיקת זכויות שכר",
		Text:      &text,
		MessageID: "<reply-1@lead.example>",
		Provider:  "resend",
	})
	require.NoError(s.T(), err)
	assert.True(s.T(), result.Matched)
	require.Len(s.T(), result.ConversationIDs, 1)
	assert.Equal(s.T(), conv.ID, result.ConversationIDs[0])

	// Conversation flips to pending with the unread marker set
	updated, err := s.convRepo.GetByID(context.Background(), conv.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.ConversationStatusPending, updated.Status)
	assert.True(s.T(), updated.Unread)

	recMsgs := s.request(http.MethodGet, "/api/conversations/"+conv.ID+"/messages", nil)
	require.Equal(s.T(), http.StatusOK, recMsgs.Code)

	var resp response.PaginatedResponse
	require.NoError(s.T(), json.Unmarshal(recMsgs.Body.Bytes(), &resp))
	assert.Equal(s.T(), int64(2), resp.Meta.Total)
}

func (s *APIIntegrationTestSuite) TestInboundFromUnknownSenderIsTriaged() {
	text := "שלום, לא מילאתי טופס"
	result, err := s.resolver.Resolve(context.Background(), &inbound.Event{
		From:      "stranger@example.com",
		To:        []string{"team@" + testInboundDomain},
		Subject:   "שאלה כללית",
		Text:      &text,
		MessageID: "<stray-1@lead.example>",
		Provider:  "resend",
	})
	require.NoError(s.T(), err)
	assert.False(s.T(), result.Matched)

	rec := s.request(http.MethodGet, "/api/unmatched", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp response.PaginatedResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(s.T(), int64(1), resp.Meta.Total)
}

// ==================== Draft Flow Tests ====================

func (s *APIIntegrationTestSuite) TestDraftSendFlow() {
	lead := s.submitIntake("draft@example.com")

	conv := &models.EmailConversation{LeadID: lead.ID, Subject: "בדיקה", Status: models.ConversationStatusPending}
	require.NoError(s.T(), s.convRepo.Create(context.Background(), conv))

	draft := &models.CaseAiDraft{
		LeadID:           lead.ID,
		ConversationID:   conv.ID,
		SuggestedSubject: "Re: בדיקה",
		SuggestedText:    "תודה על פנייתך, נחזור אליך בהקדם.",
	}
	require.NoError(s.T(), s.draftRepo.ReplaceProposed(context.Background(), draft))

	rec := s.request(http.MethodPost, "/api/drafts/"+draft.ID+"/send", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	sentDraft, err := s.draftRepo.GetByID(context.Background(), draft.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.DraftStatusSent, sentDraft.Status)

	// Sending twice is rejected
	rec = s.request(http.MethodPost, "/api/drafts/"+draft.ID+"/send", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	messages, total, err := s.msgRepo.ListByConversation(context.Background(), conv.ID, 10, 0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
	assert.Equal(s.T(), models.DirectionOutbound, messages[0].Direction)
}

func (s *APIIntegrationTestSuite) TestDraftDiscardFlow() {
	lead := s.submitIntake("discard@example.com")

	conv := &models.EmailConversation{LeadID: lead.ID, Subject: "בדיקה", Status: models.ConversationStatusPending}
	require.NoError(s.T(), s.convRepo.Create(context.Background(), conv))

	draft := &models.CaseAiDraft{LeadID: lead.ID, ConversationID: conv.ID, SuggestedText: "טיוטה"}
	require.NoError(s.T(), s.draftRepo.ReplaceProposed(context.Background(), draft))

	rec := s.request(http.MethodPost, "/api/drafts/"+draft.ID+"/discard", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	discarded, err := s.draftRepo.GetByID(context.Background(), draft.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.DraftStatusDiscarded, discarded.Status)
}
