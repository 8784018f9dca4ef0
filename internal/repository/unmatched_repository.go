package repository

import (
	"context"
	"fmt"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"gorm.io/gorm"
)

// UnmatchedRepository defines the interface for unmatched inbound email records
type UnmatchedRepository interface {
	Create(ctx context.Context, record *models.InboundUnmatched) error
	List(ctx context.Context, limit, offset int) ([]models.InboundUnmatched, int64, error)
}

// unmatchedRepository implements UnmatchedRepository using GORM
type unmatchedRepository struct {
	db *gorm.DB
}

// NewUnmatchedRepository creates a new UnmatchedRepository instance
func NewUnmatchedRepository(db *gorm.DB) UnmatchedRepository {
	return &unmatchedRepository{db: db}
}

// Create stores an inbound email that could not be correlated
func (r *unmatchedRepository) Create(ctx context.Context, record *models.InboundUnmatched) error {
	result := r.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		return fmt.Errorf("failed to create unmatched record: %w", result.Error)
	}
	return nil
}

// List retrieves unmatched records for triage, newest first
func (r *unmatchedRepository) List(ctx context.Context, limit, offset int) ([]models.InboundUnmatched, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.InboundUnmatched{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count unmatched records: %w", err)
	}

	var records []models.InboundUnmatched
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list unmatched records: %w", err)
	}

	return records, total, nil
}
