package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"gorm.io/gorm"
)

// LeadRepository defines the interface for lead data access
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	GetByEmail(ctx context.Context, email string) (*models.Lead, error)
	List(ctx context.Context, status models.LeadStatus, limit, offset int) ([]models.Lead, int64, error)
	UpdateStatus(ctx context.Context, id string, status models.LeadStatus) error
	UpdateNotes(ctx context.Context, id string, notes string) error
	TouchLastContact(ctx context.Context, id string, at time.Time) error
}

// leadRepository implements LeadRepository using GORM
type leadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new LeadRepository instance
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

// Create creates a new lead
func (r *leadRepository) Create(ctx context.Context, lead *models.Lead) error {
	lead.Email = strings.ToLower(strings.TrimSpace(lead.Email))
	result := r.db.WithContext(ctx).Create(lead)
	if result.Error != nil {
		return fmt.Errorf("failed to create lead: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a lead by its ID
func (r *leadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	result := r.db.WithContext(ctx).First(&lead, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead by ID: %w", result.Error)
	}
	return &lead, nil
}

// GetByEmail retrieves a lead by its contact email, matched case-insensitively
func (r *leadRepository) GetByEmail(ctx context.Context, email string) (*models.Lead, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var lead models.Lead
	result := r.db.WithContext(ctx).Where("LOWER(email) = ?", email).Order("created_at DESC").First(&lead)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead by email: %w", result.Error)
	}
	return &lead, nil
}

// List retrieves leads with pagination, newest first, optionally filtered by status
func (r *leadRepository) List(ctx context.Context, status models.LeadStatus, limit, offset int) ([]models.Lead, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Lead{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	var leads []models.Lead
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&leads).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}

	return leads, total, nil
}

// UpdateStatus transitions a lead's lifecycle status
func (r *leadRepository) UpdateStatus(ctx context.Context, id string, status models.LeadStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update lead status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateNotes replaces a lead's admin notes
func (r *leadRepository) UpdateNotes(ctx context.Context, id string, notes string) error {
	result := r.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Update("admin_notes", notes)
	if result.Error != nil {
		return fmt.Errorf("failed to update lead notes: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastContact updates the lead's last-interaction timestamp
func (r *leadRepository) TouchLastContact(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Update("last_contact_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to touch lead last contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
