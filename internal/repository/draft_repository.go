package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"gorm.io/gorm"
)

// DraftRepository defines the interface for AI draft data access
type DraftRepository interface {
	ReplaceProposed(ctx context.Context, draft *models.CaseAiDraft) error
	GetByID(ctx context.Context, id string) (*models.CaseAiDraft, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.CaseAiDraft, error)
	UpdateStatus(ctx context.Context, id string, from, to models.AiDraftStatus) error
}

// draftRepository implements DraftRepository using GORM
type draftRepository struct {
	db *gorm.DB
}

// NewDraftRepository creates a new DraftRepository instance
func NewDraftRepository(db *gorm.DB) DraftRepository {
	return &draftRepository{db: db}
}

// ReplaceProposed discards any existing proposed draft for the draft's
// conversation, then inserts the new draft as proposed, in one transaction.
// This upholds the at-most-one-proposed-draft-per-conversation invariant.
func (r *draftRepository) ReplaceProposed(ctx context.Context, draft *models.CaseAiDraft) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CaseAiDraft{}).
			Where("conversation_id = ? AND status = ?", draft.ConversationID, models.DraftStatusProposed).
			Updates(map[string]interface{}{
				"status":     models.DraftStatusDiscarded,
				"updated_at": time.Now().UTC(),
			}).Error; err != nil {
			return fmt.Errorf("failed to discard previous drafts: %w", err)
		}

		draft.Status = models.DraftStatusProposed
		if err := tx.Create(draft).Error; err != nil {
			return fmt.Errorf("failed to create draft: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a draft by its ID
func (r *draftRepository) GetByID(ctx context.Context, id string) (*models.CaseAiDraft, error) {
	var draft models.CaseAiDraft
	result := r.db.WithContext(ctx).First(&draft, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get draft by ID: %w", result.Error)
	}
	return &draft, nil
}

// ListByConversation retrieves all drafts for a conversation, newest first
func (r *draftRepository) ListByConversation(ctx context.Context, conversationID string) ([]models.CaseAiDraft, error) {
	var drafts []models.CaseAiDraft
	result := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Find(&drafts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", result.Error)
	}
	return drafts, nil
}

// UpdateStatus transitions a draft between lifecycle states, guarding the
// expected current state so a draft cannot be sent or discarded twice
func (r *draftRepository) UpdateStatus(ctx context.Context, id string, from, to models.AiDraftStatus) error {
	result := r.db.WithContext(ctx).Model(&models.CaseAiDraft{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update draft status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
