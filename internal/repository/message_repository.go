package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for email message data access
type MessageRepository interface {
	Create(ctx context.Context, message *models.EmailMessage) error
	GetByID(ctx context.Context, id string) (*models.EmailMessage, error)
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]models.EmailMessage, int64, error)
	LatestByConversation(ctx context.Context, conversationID string, limit int) ([]models.EmailMessage, error)
	FindConversationIDByProviderMessageID(ctx context.Context, providerMessageID string) (string, error)
	ExistsByProviderMessageID(ctx context.Context, conversationID, providerMessageID string) (bool, error)
}

// messageRepository implements MessageRepository using GORM
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create creates a new email message
func (r *messageRepository) Create(ctx context.Context, message *models.EmailMessage) error {
	result := r.db.WithContext(ctx).Create(message)
	if result.Error != nil {
		return fmt.Errorf("failed to create message: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a message by its ID
func (r *messageRepository) GetByID(ctx context.Context, id string) (*models.EmailMessage, error) {
	var message models.EmailMessage
	result := r.db.WithContext(ctx).First(&message, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message by ID: %w", result.Error)
	}
	return &message, nil
}

// ListByConversation retrieves messages for a conversation with pagination,
// ordered by occurrence timestamp ascending
func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]models.EmailMessage, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.EmailMessage{}).
		Where("conversation_id = ?", conversationID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var messages []models.EmailMessage
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("occurred_at ASC").
		Limit(limit).Offset(offset).
		Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, total, nil
}

// LatestByConversation retrieves up to limit of the most recent messages
// for a conversation, returned in chronological (oldest-first) order
func (r *messageRepository) LatestByConversation(ctx context.Context, conversationID string, limit int) ([]models.EmailMessage, error) {
	var messages []models.EmailMessage
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to load latest messages: %w", err)
	}

	// Restore chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// FindConversationIDByProviderMessageID looks up the conversation owning a
// previously stored message with the given provider message identifier
func (r *messageRepository) FindConversationIDByProviderMessageID(ctx context.Context, providerMessageID string) (string, error) {
	var message models.EmailMessage
	result := r.db.WithContext(ctx).
		Select("conversation_id").
		Where("provider_message_id = ?", providerMessageID).
		First(&message)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to find conversation by provider message ID: %w", result.Error)
	}
	return message.ConversationID, nil
}

// ExistsByProviderMessageID reports whether the conversation already stores a
// message with the given provider message identifier. Used as the idempotency
// check against duplicate webhook delivery.
func (r *messageRepository) ExistsByProviderMessageID(ctx context.Context, conversationID, providerMessageID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.EmailMessage{}).
		Where("conversation_id = ? AND provider_message_id = ?", conversationID, providerMessageID).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check provider message ID: %w", result.Error)
	}
	return count > 0, nil
}
