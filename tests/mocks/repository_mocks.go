package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
)

// MockLeadRepository implements repository.LeadRepository
type MockLeadRepository struct {
	mock.Mock
}

// Create creates a new lead
func (m *MockLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// GetByID retrieves a lead by its ID
func (m *MockLeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

// GetByEmail retrieves a lead by its contact email
func (m *MockLeadRepository) GetByEmail(ctx context.Context, email string) (*models.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

// List retrieves leads with optional status filter and pagination
func (m *MockLeadRepository) List(ctx context.Context, status models.LeadStatus, limit, offset int) ([]models.Lead, int64, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Lead), args.Get(1).(int64), args.Error(2)
}

// UpdateStatus updates a lead's lifecycle status
func (m *MockLeadRepository) UpdateStatus(ctx context.Context, id string, status models.LeadStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// UpdateNotes updates a lead's admin notes
func (m *MockLeadRepository) UpdateNotes(ctx context.Context, id string, notes string) error {
	args := m.Called(ctx, id, notes)
	return args.Error(0)
}

// TouchLastContact updates a lead's last contact timestamp
func (m *MockLeadRepository) TouchLastContact(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockConversationRepository implements repository.ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// Create creates a new conversation
func (m *MockConversationRepository) Create(ctx context.Context, conv *models.EmailConversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// GetByID retrieves a conversation by its ID
func (m *MockConversationRepository) GetByID(ctx context.Context, id string) (*models.EmailConversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailConversation), args.Error(1)
}

// GetByReplyToken retrieves a conversation by its reply token
func (m *MockConversationRepository) GetByReplyToken(ctx context.Context, token string) (*models.EmailConversation, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailConversation), args.Error(1)
}

// ListByLead retrieves all conversations belonging to a lead
func (m *MockConversationRepository) ListByLead(ctx context.Context, leadID string) ([]models.EmailConversation, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EmailConversation), args.Error(1)
}

// MostRecentActiveByLead retrieves the lead's most recent non-closed conversation
func (m *MockConversationRepository) MostRecentActiveByLead(ctx context.Context, leadID string) (*models.EmailConversation, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailConversation), args.Error(1)
}

// MarkInboundActivity marks a conversation unread and bumps its last message time
func (m *MockConversationRepository) MarkInboundActivity(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// Touch bumps a conversation's last message time
func (m *MockConversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// UpdateStatus updates a conversation's lifecycle status
func (m *MockConversationRepository) UpdateStatus(ctx context.Context, id string, status models.ConversationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockMessageRepository implements repository.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Create creates a new email message
func (m *MockMessageRepository) Create(ctx context.Context, message *models.EmailMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// GetByID retrieves a message by its ID
func (m *MockMessageRepository) GetByID(ctx context.Context, id string) (*models.EmailMessage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailMessage), args.Error(1)
}

// ListByConversation retrieves messages for a conversation with pagination
func (m *MockMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]models.EmailMessage, int64, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.EmailMessage), args.Get(1).(int64), args.Error(2)
}

// LatestByConversation retrieves the most recent messages for a conversation
func (m *MockMessageRepository) LatestByConversation(ctx context.Context, conversationID string, limit int) ([]models.EmailMessage, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EmailMessage), args.Error(1)
}

// FindConversationIDByProviderMessageID resolves a provider message ID to its conversation
func (m *MockMessageRepository) FindConversationIDByProviderMessageID(ctx context.Context, providerMessageID string) (string, error) {
	args := m.Called(ctx, providerMessageID)
	return args.String(0), args.Error(1)
}

// ExistsByProviderMessageID reports whether a conversation already holds the provider message
func (m *MockMessageRepository) ExistsByProviderMessageID(ctx context.Context, conversationID, providerMessageID string) (bool, error) {
	args := m.Called(ctx, conversationID, providerMessageID)
	return args.Bool(0), args.Error(1)
}

// MockDraftRepository implements repository.DraftRepository
type MockDraftRepository struct {
	mock.Mock
}

// ReplaceProposed replaces the conversation's proposed draft with a new one
func (m *MockDraftRepository) ReplaceProposed(ctx context.Context, draft *models.CaseAiDraft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}

// GetByID retrieves a draft by its ID
func (m *MockDraftRepository) GetByID(ctx context.Context, id string) (*models.CaseAiDraft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CaseAiDraft), args.Error(1)
}

// ListByConversation retrieves all drafts for a conversation
func (m *MockDraftRepository) ListByConversation(ctx context.Context, conversationID string) ([]models.CaseAiDraft, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CaseAiDraft), args.Error(1)
}

// UpdateStatus transitions a draft between lifecycle states
func (m *MockDraftRepository) UpdateStatus(ctx context.Context, id string, from, to models.AiDraftStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

// MockRulesRepository implements repository.RulesRepository
type MockRulesRepository struct {
	mock.Mock
}

// GetByCaseType retrieves the rules configured for a case type
func (m *MockRulesRepository) GetByCaseType(ctx context.Context, caseType string) (*models.CaseAiRules, error) {
	args := m.Called(ctx, caseType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CaseAiRules), args.Error(1)
}

// MockStateRepository implements repository.StateRepository
type MockStateRepository struct {
	mock.Mock
}

// GetByLead retrieves the AI case state for a lead
func (m *MockStateRepository) GetByLead(ctx context.Context, leadID string) (*models.CaseAiState, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CaseAiState), args.Error(1)
}

// Create creates a new AI case state
func (m *MockStateRepository) Create(ctx context.Context, state *models.CaseAiState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// Update updates an existing AI case state
func (m *MockStateRepository) Update(ctx context.Context, state *models.CaseAiState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// MockActionRepository implements repository.ActionRepository
type MockActionRepository struct {
	mock.Mock
}

// Create appends a new audit action
func (m *MockActionRepository) Create(ctx context.Context, action *models.CaseAiAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

// ListByLead retrieves audit actions for a lead with pagination
func (m *MockActionRepository) ListByLead(ctx context.Context, leadID string, limit, offset int) ([]models.CaseAiAction, int64, error) {
	args := m.Called(ctx, leadID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.CaseAiAction), args.Get(1).(int64), args.Error(2)
}

// MockUnmatchedRepository implements repository.UnmatchedRepository
type MockUnmatchedRepository struct {
	mock.Mock
}

// Create stores an unmatched inbound email
func (m *MockUnmatchedRepository) Create(ctx context.Context, record *models.InboundUnmatched) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// List retrieves unmatched inbound emails with pagination
func (m *MockUnmatchedRepository) List(ctx context.Context, limit, offset int) ([]models.InboundUnmatched, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.InboundUnmatched), args.Get(1).(int64), args.Error(2)
}
