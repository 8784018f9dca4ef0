package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"gorm.io/gorm"
)

// ConversationRepository defines the interface for email conversation data access
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.EmailConversation) error
	GetByID(ctx context.Context, id string) (*models.EmailConversation, error)
	GetByReplyToken(ctx context.Context, token string) (*models.EmailConversation, error)
	ListByLead(ctx context.Context, leadID string) ([]models.EmailConversation, error)
	MostRecentActiveByLead(ctx context.Context, leadID string) (*models.EmailConversation, error)
	MarkInboundActivity(ctx context.Context, id string, at time.Time) error
	Touch(ctx context.Context, id string, at time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.ConversationStatus) error
}

// conversationRepository implements ConversationRepository using GORM
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository instance
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create creates a new conversation; the reply token is generated by the
// model hook when not provided
func (r *conversationRepository) Create(ctx context.Context, conv *models.EmailConversation) error {
	result := r.db.WithContext(ctx).Create(conv)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create conversation: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a conversation by its ID
func (r *conversationRepository) GetByID(ctx context.Context, id string) (*models.EmailConversation, error) {
	var conv models.EmailConversation
	result := r.db.WithContext(ctx).First(&conv, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation by ID: %w", result.Error)
	}
	return &conv, nil
}

// GetByReplyToken retrieves the conversation owning an exact reply token
func (r *conversationRepository) GetByReplyToken(ctx context.Context, token string) (*models.EmailConversation, error) {
	var conv models.EmailConversation
	result := r.db.WithContext(ctx).Where("reply_token = ?", token).First(&conv)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation by reply token: %w", result.Error)
	}
	return &conv, nil
}

// ListByLead retrieves all conversations for a lead, most recently active first
func (r *conversationRepository) ListByLead(ctx context.Context, leadID string) ([]models.EmailConversation, error) {
	var convs []models.EmailConversation
	result := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("last_message_at DESC").
		Find(&convs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", result.Error)
	}
	return convs, nil
}

// MostRecentActiveByLead finds the lead's most recently active conversation
// in an open or pending state
func (r *conversationRepository) MostRecentActiveByLead(ctx context.Context, leadID string) (*models.EmailConversation, error) {
	var conv models.EmailConversation
	result := r.db.WithContext(ctx).
		Where("lead_id = ? AND status IN ?", leadID,
			[]models.ConversationStatus{models.ConversationStatusOpen, models.ConversationStatusPending}).
		Order("last_message_at DESC").
		First(&conv)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active conversation: %w", result.Error)
	}
	return &conv, nil
}

// MarkInboundActivity records inbound activity: bumps last activity,
// transitions the conversation to pending and flags it unread
func (r *conversationRepository) MarkInboundActivity(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.EmailConversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_at": at,
			"status":          models.ConversationStatusPending,
			"unread":          true,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark inbound activity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch updates the conversation's last-activity timestamp
func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.EmailConversation{}).
		Where("id = ?", id).
		Update("last_message_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to touch conversation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus transitions the conversation's lifecycle status
func (r *conversationRepository) UpdateStatus(ctx context.Context, id string, status models.ConversationStatus) error {
	result := r.db.WithContext(ctx).Model(&models.EmailConversation{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update conversation status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
