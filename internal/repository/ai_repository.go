package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"gorm.io/gorm"
)

// RulesRepository defines read access to per-case-type AI configuration
type RulesRepository interface {
	GetByCaseType(ctx context.Context, caseType string) (*models.CaseAiRules, error)
}

// StateRepository defines the interface for case AI state data access
type StateRepository interface {
	GetByLead(ctx context.Context, leadID string) (*models.CaseAiState, error)
	Create(ctx context.Context, state *models.CaseAiState) error
	Update(ctx context.Context, state *models.CaseAiState) error
}

// ActionRepository defines the interface for the write-once AI audit log
type ActionRepository interface {
	Create(ctx context.Context, action *models.CaseAiAction) error
	ListByLead(ctx context.Context, leadID string, limit, offset int) ([]models.CaseAiAction, int64, error)
}

// rulesRepository implements RulesRepository using GORM
type rulesRepository struct {
	db *gorm.DB
}

// NewRulesRepository creates a new RulesRepository instance
func NewRulesRepository(db *gorm.DB) RulesRepository {
	return &rulesRepository{db: db}
}

// GetByCaseType retrieves the rules row for an exact case type
func (r *rulesRepository) GetByCaseType(ctx context.Context, caseType string) (*models.CaseAiRules, error) {
	var rules models.CaseAiRules
	result := r.db.WithContext(ctx).Where("case_type = ?", caseType).First(&rules)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rules for case type: %w", result.Error)
	}
	return &rules, nil
}

// stateRepository implements StateRepository using GORM
type stateRepository struct {
	db *gorm.DB
}

// NewStateRepository creates a new StateRepository instance
func NewStateRepository(db *gorm.DB) StateRepository {
	return &stateRepository{db: db}
}

// GetByLead retrieves the AI state row for a lead
func (r *stateRepository) GetByLead(ctx context.Context, leadID string) (*models.CaseAiState, error) {
	var state models.CaseAiState
	result := r.db.WithContext(ctx).Where("lead_id = ?", leadID).First(&state)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get AI state: %w", result.Error)
	}
	return &state, nil
}

// Create inserts the lazily-seeded AI state for a lead
func (r *stateRepository) Create(ctx context.Context, state *models.CaseAiState) error {
	result := r.db.WithContext(ctx).Create(state)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create AI state: %w", result.Error)
	}
	return nil
}

// Update persists the full mutable portion of the AI state row
func (r *stateRepository) Update(ctx context.Context, state *models.CaseAiState) error {
	result := r.db.WithContext(ctx).Model(&models.CaseAiState{}).
		Where("lead_id = ?", state.LeadID).
		Updates(map[string]interface{}{
			"case_type":                state.CaseType,
			"summary":                  state.Summary,
			"known_facts":              state.KnownFacts,
			"missing_fields":           state.MissingFields,
			"last_analyzed_message_id": state.LastAnalyzedMessageID,
			"last_analyzed_at":         state.LastAnalyzedAt,
			"confidence_score":         state.ConfidenceScore,
			"updated_at":               time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update AI state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// actionRepository implements ActionRepository using GORM
type actionRepository struct {
	db *gorm.DB
}

// NewActionRepository creates a new ActionRepository instance
func NewActionRepository(db *gorm.DB) ActionRepository {
	return &actionRepository{db: db}
}

// Create appends an immutable audit record
func (r *actionRepository) Create(ctx context.Context, action *models.CaseAiAction) error {
	result := r.db.WithContext(ctx).Create(action)
	if result.Error != nil {
		return fmt.Errorf("failed to create AI action: %w", result.Error)
	}
	return nil
}

// ListByLead retrieves the audit trail for a lead, newest first
func (r *actionRepository) ListByLead(ctx context.Context, leadID string, limit, offset int) ([]models.CaseAiAction, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.CaseAiAction{}).
		Where("lead_id = ?", leadID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count AI actions: %w", err)
	}

	var actions []models.CaseAiAction
	if err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&actions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list AI actions: %w", err)
	}

	return actions, total, nil
}
