package inbound

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/payrollcheck/payrollcheck-backend/internal/ai"
	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
)

// recordingAnalyzer captures analysis triggers without running a pipeline
type recordingAnalyzer struct {
	mu     sync.Mutex
	params []ai.AnalyzeParams
	done   chan struct{}
}

func newRecordingAnalyzer() *recordingAnalyzer {
	return &recordingAnalyzer{done: make(chan struct{}, 16)}
}

func (f *recordingAnalyzer) AnalyzeInboundEmail(ctx context.Context, params ai.AnalyzeParams) ai.AnalyzeResult {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()
	f.done <- struct{}{}
	return ai.AnalyzeResult{Success: true}
}

// waitForCalls blocks until n analysis triggers have fired or times out
func (f *recordingAnalyzer) waitForCalls(t *testing.T, n int) []ai.AnalyzeParams {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for analysis trigger %d of %d", i+1, n)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.AnalyzeParams(nil), f.params...)
}

// ResolverTestSuite exercises the correlation chain against in-memory SQLite
type ResolverTestSuite struct {
	suite.Suite
	db       *gorm.DB
	resolver *Resolver
	analyzer *recordingAnalyzer

	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	unmatched     repository.UnmatchedRepository

	lead *models.Lead
}

// SetupSuite runs once before all tests
func (s *ResolverTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	db.Exec("PRAGMA foreign_keys = ON")

	err = db.AutoMigrate(
		&models.Lead{},
		&models.EmailConversation{},
		&models.EmailMessage{},
		&models.InboundUnmatched{},
	)
	require.NoError(s.T(), err)

	s.db = db
}

// TearDownSuite runs once after all tests
func (s *ResolverTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SetupTest resets data and builds a fresh resolver
func (s *ResolverTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM inbound_unmatched")
	s.db.Exec("DELETE FROM email_messages")
	s.db.Exec("DELETE FROM email_conversations")
	s.db.Exec("DELETE FROM leads")

	s.conversations = repository.NewConversationRepository(s.db)
	s.messages = repository.NewMessageRepository(s.db)
	s.unmatched = repository.NewUnmatchedRepository(s.db)
	s.analyzer = newRecordingAnalyzer()

	s.resolver = NewResolver(&ResolverConfig{
		Leads:         repository.NewLeadRepository(s.db),
		Conversations: s.conversations,
		Messages:      s.messages,
		Unmatched:     s.unmatched,
		Analyzer:      s.analyzer,
	})

	s.lead = &models.Lead{
		FullName: "דנה כהן",
		Email:    "dana@example.com",
		Status:   models.LeadStatusNew,
	}
	require.NoError(s.T(), s.db.Create(s.lead).Error)
}

func (s *ResolverTestSuite) createConversation(leadID, token string, status models.ConversationStatus) *models.EmailConversation {
	conv := &models.EmailConversation{
		LeadID:     leadID,
		Subject:    "בדיקת זכויות",
		ReplyToken: token,
		Status:     status,
	}
	require.NoError(s.T(), s.db.Create(conv).Error)
	return conv
}

func textPtr(s string) *string { return &s }

// ==================== Reply Token Matching Tests ====================

// TestResolve_TokenMatch tests that a reply token routes to its exact
// conversation and wins over sender-based matching
func (s *ResolverTestSuite) TestResolve_TokenMatch() {
	conv := s.createConversation(s.lead.ID, "aa11bb22cc33dd44ee55ff66", models.ConversationStatusOpen)

	// The sender owns another active conversation that must NOT receive the message
	other := &models.Lead{FullName: "יוסי לוי", Email: "yossi@example.com"}
	require.NoError(s.T(), s.db.Create(other).Error)
	otherConv := s.createConversation(other.ID, "ffffffffffffffffffffffff", models.ConversationStatusOpen)

	result, err := s.resolver.Resolve(context.Background(), &Event{
		From:      "yossi@example.com",
		To:        []string{"reply+aa11bb22cc33dd44ee55ff66@in.payrollcheck.example"},
		Subject:   "Re: בדיקת זכויות",
		Text:      textPtr("תודה על התשובה"),
		MessageID: "msg-token-1@mail.example",
		Provider:  "resend",
	})

	require.NoError(s.T(), err)
	assert.True(s.T(), result.Matched)
	require.Equal(s.T(), []string{conv.ID}, result.ConversationIDs)

	var count int64
	s.db.Model(&models.EmailMessage{}).Where("conversation_id = ?", otherConv.ID).Count(&count)
	assert.Zero(s.T(), count)

	params := s.analyzer.waitForCalls(s.T(), 1)
	assert.Equal(s.T(), conv.ID, params[0].ConversationID)
	assert.Equal(s.T(), s.lead.ID, params[0].LeadID)
	assert.Equal(s.T(), models.TriggerInboundEmail, params[0].Trigger)
}

// ==================== Threading Header Matching Tests ====================

func (s *ResolverTestSuite) TestResolve_ThreadingHeaderMatch() {
	conv := s.createConversation(s.lead.ID, "", models.ConversationStatusOpen)

	prior := &models.EmailMessage{
		ConversationID:    conv.ID,
		Direction:         models.DirectionOutbound,
		FromEmail:         "team@payrollcheck.example",
		ProviderMessageID: textPtr("prior-msg@mail.example"),
	}
	require.NoError(s.T(), s.db.Create(prior).Error)

	result, err := s.resolver.Resolve(context.Background(), &Event{
		From:    "someone-else@example.com",
		To:      []string{"team@payrollcheck.example"},
		Subject: "Re: המשך",
		Text:    textPtr("עדכון"),
		Headers: map[string]string{"In-Reply-To": "<prior-msg@mail.example>"},
	})

	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{conv.ID}, result.ConversationIDs)
}

func (s *ResolverTestSuite) TestResolve_ReferencesHeaderMatch() {
	conv := s.createConversation(s.lead.ID, "", models.ConversationStatusOpen)

	prior := &models.EmailMessage{
		ConversationID:    conv.ID,
		Direction:         models.DirectionOutbound,
		FromEmail:         "team@payrollcheck.example",
		ProviderMessageID: textPtr("ref-2@mail.example"),
	}
	require.NoError(s.T(), s.db.Create(prior).Error)

	result, err := s.resolver.Resolve(context.Background(), &Event{
		From:    "stranger@example.com",
		To:      []string{"team@payrollcheck.example"},
		Text:    textPtr("שוב אני"),
		Headers: map[string]string{"references": "<ref-1@mail.example> <ref-2@mail.example>"},
	})

	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{conv.ID}, result.ConversationIDs)
}

// ==================== Sender Fallback Tests ====================

// TestResolve_SenderReusesActiveConversation tests that the most recently
// active open/pending conversation is reused
func (s *ResolverTestSuite) TestResolve_SenderReusesActiveConversation() {
	closed := s.createConversation(s.lead.ID, "", models.ConversationStatusClosed)
	active := s.createConversation(s.lead.ID, "", models.ConversationStatusPending)
	require.NoError(s.T(), s.conversations.Touch(context.Background(), active.ID, time.Now().UTC()))

	result, err := s.resolver.Resolve(context.Background(), &Event{
		From:    "Dana Cohen <Dana@Example.com>",
		To:      []string{"team@payrollcheck.example"},
		Subject: "שאלה נוספת",
		Text:    textPtr("יש לי שאלה"),
	})

	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{active.ID}, result.ConversationIDs)

	var count int64
	s.db.Model(&models.EmailMessage{}).Where("conversation_id = ?", closed.ID).Count(&count)
	assert.Zero(s.T(), count)
}

// TestResolve_FreshLeadCreatesConversation tests that a lead with no active
// conversation gets a new one which then transitions to pending
func (s *ResolverTestSuite) TestResolve_FreshLeadCreatesConversation() {
	result, err := s.resolver.Resolve(context.Background(), &Event{
		From:    "dana@example.com",
		To:      []string{"team@payrollcheck.example"},
		Subject: "פנייה ראשונה",
		Text:    textPtr("שלום, פוטרתי החודש"),
	})

	require.NoError(s.T(), err)
	require.Len(s.T(), result.ConversationIDs, 1)

	conv, err := s.conversations.GetByID(context.Background(), result.ConversationIDs[0])
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.lead.ID, conv.LeadID)
	assert.Equal(s.T(), "פנייה ראשונה", conv.Subject)
	// Inbound storage marks the fresh conversation pending and unread
	assert.Equal(s.T(), models.ConversationStatusPending, conv.Status)
	assert.True(s.T(), conv.Unread)
	assert.NotEmpty(s.T(), conv.ReplyToken)

	// Lead last-contact was touched
	var lead models.Lead
	require.NoError(s.T(), s.db.First(&lead, "id = ?", s.lead.ID).Error)
	assert.NotNil(s.T(), lead.LastContactAt)
}

func (s *ResolverTestSuite) TestResolve_BlankSubjectPlaceholder() {
	result, err := s.resolver.Resolve(context.Background(), &Event{
		From: "dana@example.com",
		To:   []string{"team@payrollcheck.example"},
		Text: textPtr("ללא נושא הפעם"),
	})

	require.NoError(s.T(), err)
	conv, err := s.conversations.GetByID(context.Background(), result.ConversationIDs[0])
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "(ללא נושא)", conv.Subject)
}

// ==================== Unmatched Tests ====================

// TestResolve_NoMatchStoresUnmatched tests the no-match fallback: one
// unmatched row, zero conversations, zero messages
func (s *ResolverTestSuite) TestResolve_NoMatchStoresUnmatched() {
	result, err := s.resolver.Resolve(context.Background(), &Event{
		From:       "unknown-sender@example.com",
		To:         []string{"team@payrollcheck.example"},
		Subject:    "מי אתם",
		Text:       textPtr("הודעה אקראית"),
		RawPayload: []byte(`{"type":"email.received"}`),
	})

	require.NoError(s.T(), err)
	assert.False(s.T(), result.Matched)
	assert.Empty(s.T(), result.ConversationIDs)

	records, total, err := s.unmatched.List(context.Background(), 10, 0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
	assert.Equal(s.T(), "unknown-sender@example.com", records[0].FromEmail)

	var convCount, msgCount int64
	s.db.Model(&models.EmailConversation{}).Count(&convCount)
	s.db.Model(&models.EmailMessage{}).Count(&msgCount)
	assert.Zero(s.T(), convCount)
	assert.Zero(s.T(), msgCount)
}

// ==================== Idempotency Tests ====================

// TestResolve_DuplicateDeliverySkipped tests that a redelivered webhook with
// the same provider message id does not insert a second message
func (s *ResolverTestSuite) TestResolve_DuplicateDeliverySkipped() {
	conv := s.createConversation(s.lead.ID, "aa11bb22cc33dd44ee55ff66", models.ConversationStatusOpen)

	event := &Event{
		From:      "dana@example.com",
		To:        []string{"reply+aa11bb22cc33dd44ee55ff66@in.payrollcheck.example"},
		Subject:   "Re: בדיקה",
		Text:      textPtr("תוכן"),
		MessageID: "dup-msg@mail.example",
	}

	first, err := s.resolver.Resolve(context.Background(), event)
	require.NoError(s.T(), err)
	require.Len(s.T(), first.ConversationIDs, 1)

	second, err := s.resolver.Resolve(context.Background(), event)
	require.NoError(s.T(), err)
	assert.True(s.T(), second.Duplicate)
	assert.Empty(s.T(), second.ConversationIDs)

	var count int64
	s.db.Model(&models.EmailMessage{}).Where("conversation_id = ?", conv.ID).Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

// ==================== Body Handling Tests ====================

// TestResolve_StripsQuotedHistory tests that stored bodies have quoted
// content removed
func (s *ResolverTestSuite) TestResolve_StripsQuotedHistory() {
	s.createConversation(s.lead.ID, "aa11bb22cc33dd44ee55ff66", models.ConversationStatusOpen)

	result, err := s.resolver.Resolve(context.Background(), &Event{
		From:    "dana@example.com",
		To:      []string{"reply+aa11bb22cc33dd44ee55ff66@in.payrollcheck.example"},
		Subject: "Re: בדיקה",
		Text:    textPtr("זו התשובה שלי\n\nOn Jan 1, 2024 team wrote:\n> הודעה קודמת"),
		HTML:    textPtr(`<p>זו התשובה שלי</p><blockquote><p>הודעה קודמת</p></blockquote>`),
	})

	require.NoError(s.T(), err)
	require.Len(s.T(), result.MessageIDs, 1)

	msg, err := s.messages.GetByID(context.Background(), result.MessageIDs[0])
	require.NoError(s.T(), err)
	require.NotNil(s.T(), msg.TextBody)
	assert.Equal(s.T(), "זו התשובה שלי", *msg.TextBody)
	require.NotNil(s.T(), msg.HTMLBody)
	assert.NotContains(s.T(), *msg.HTMLBody, "blockquote")
	assert.Contains(s.T(), *msg.HTMLBody, "זו התשובה שלי")
}

// TestResolve_SanitizesHTML tests that scripts are removed before storage
func (s *ResolverTestSuite) TestResolve_SanitizesHTML() {
	result, err := s.resolver.Resolve(context.Background(), &Event{
		From: "dana@example.com",
		To:   []string{"team@payrollcheck.example"},
		HTML: textPtr(`<p>שלום</p><script>alert(1)</script>`),
	})

	require.NoError(s.T(), err)
	msg, err := s.messages.GetByID(context.Background(), result.MessageIDs[0])
	require.NoError(s.T(), err)
	require.NotNil(s.T(), msg.HTMLBody)
	assert.NotContains(s.T(), *msg.HTMLBody, "script")
	assert.Contains(s.T(), *msg.HTMLBody, "שלום")
}

// TestResolverTestSuite runs the test suite
func TestResolverTestSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}
