package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequiredField is one entry in a case type's required-field schedule.
// Priority orders the field in questioning; fields without a priority sort last.
type RequiredField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Question string `json:"question"`
	Priority *int   `json:"priority,omitempty"`
}

// RiskRule is a per-case-type risk heuristic maintained by admin tooling
type RiskRule struct {
	Condition string `json:"condition"`
	Label     string `json:"label"`
	Severity  string `json:"severity"`
}

// CaseAiRules holds the per-case-type configuration. Read-only to the pipeline.
type CaseAiRules struct {
	ID             string                             `gorm:"type:uuid;primaryKey" json:"id"`
	CaseType       string                             `gorm:"uniqueIndex;not null;size:64" json:"case_type"`
	RequiredFields datatypes.JSONSlice[RequiredField] `json:"required_fields"`
	OptionalFields datatypes.JSONSlice[RequiredField] `json:"optional_fields,omitempty"`
	RiskRules      datatypes.JSONSlice[RiskRule]      `json:"risk_rules,omitempty"`
	CreatedAt      time.Time                          `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for CaseAiRules
func (CaseAiRules) TableName() string {
	return "case_ai_rules"
}

// BeforeCreate assigns a UUID primary key if one was not provided
func (r *CaseAiRules) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// CaseAiState is the single accumulated AI case state per lead,
// created lazily on first analysis.
type CaseAiState struct {
	ID                    string                             `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID                string                             `gorm:"type:uuid;uniqueIndex;not null" json:"lead_id"`
	CaseType              string                             `gorm:"size:64" json:"case_type"`
	Summary               string                             `json:"summary"`
	KnownFacts            datatypes.JSONMap                  `json:"known_facts"`
	MissingFields         datatypes.JSONSlice[RequiredField] `json:"missing_fields"`
	LastAnalyzedMessageID *string                            `gorm:"type:uuid" json:"last_analyzed_message_id,omitempty"`
	LastAnalyzedAt        *time.Time                         `json:"last_analyzed_at,omitempty"`
	ConfidenceScore       int                                `json:"confidence_score"`
	CreatedAt             time.Time                          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time                          `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Lead Lead `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for CaseAiState
func (CaseAiState) TableName() string {
	return "case_ai_state"
}

// BeforeCreate assigns a UUID primary key if one was not provided
func (s *CaseAiState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// AiDraftStatus represents the lifecycle status of an AI draft
type AiDraftStatus string

const (
	DraftStatusProposed  AiDraftStatus = "proposed"
	DraftStatusSent      AiDraftStatus = "sent"
	DraftStatusDiscarded AiDraftStatus = "discarded"
)

// CaseAiDraft is an AI-proposed outbound reply awaiting staff action.
// At most one draft per conversation holds status "proposed" at any time.
type CaseAiDraft struct {
	ID               string                      `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID           string                      `gorm:"type:uuid;not null;index" json:"lead_id"`
	ConversationID   string                      `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SuggestedSubject string                      `gorm:"size:512" json:"suggested_subject"`
	SuggestedText    string                      `json:"suggested_text"`
	SuggestedHTML    *string                     `json:"suggested_html,omitempty"`
	Questions        datatypes.JSONSlice[string] `json:"questions"`
	Status           AiDraftStatus               `gorm:"size:32;default:proposed;index" json:"status"`
	SourceActionID   *string                     `gorm:"type:uuid" json:"source_action_id,omitempty"`
	CreatedAt        time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Conversation EmailConversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for CaseAiDraft
func (CaseAiDraft) TableName() string {
	return "case_ai_drafts"
}

// BeforeCreate assigns a UUID primary key if one was not provided
func (d *CaseAiDraft) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// AI action trigger reasons recorded for audit
const (
	TriggerInboundEmail  = "inbound_email"
	TriggerManualRefresh = "manual_refresh"
)

// AI action statuses
const (
	ActionStatusSuccess = "success"
	ActionStatusFailed  = "failed"
)

// CaseAiAction is the immutable audit record of one AI invocation.
// Write-once; never updated or deleted.
type CaseAiAction struct {
	ID               string            `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID           string            `gorm:"type:uuid;not null;index" json:"lead_id"`
	Trigger          string            `gorm:"size:32;not null" json:"trigger"`
	InputSnapshot    datatypes.JSONMap `json:"input_snapshot"`
	Output           datatypes.JSONMap `json:"output"`
	Status           string            `gorm:"size:16;not null" json:"status"`
	Model            string            `gorm:"size:64" json:"model"`
	PromptTokens     int               `json:"prompt_tokens"`
	CompletionTokens int               `json:"completion_tokens"`
	ErrorMessage     *string           `json:"error_message,omitempty"`
	CreatedByAdminID *string           `gorm:"size:255" json:"created_by_admin_id,omitempty"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for CaseAiAction
func (CaseAiAction) TableName() string {
	return "case_ai_actions"
}

// BeforeCreate assigns a UUID primary key if one was not provided
func (a *CaseAiAction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
