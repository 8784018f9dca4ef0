package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InboundUnmatched stores an inbound email that could not be correlated
// to any lead or conversation, kept for manual triage.
type InboundUnmatched struct {
	ID         string            `gorm:"type:uuid;primaryKey" json:"id"`
	FromEmail  string            `gorm:"size:512" json:"from_email"`
	ToEmail    string            `gorm:"size:1024" json:"to_email"`
	Subject    string            `gorm:"size:512" json:"subject,omitempty"`
	TextBody   *string           `json:"text_body,omitempty"`
	HTMLBody   *string           `json:"html_body,omitempty"`
	Headers    datatypes.JSONMap `json:"headers,omitempty"`
	RawPayload datatypes.JSON    `json:"raw_payload,omitempty"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for InboundUnmatched
func (InboundUnmatched) TableName() string {
	return "inbound_unmatched"
}

// BeforeCreate assigns a UUID primary key if one was not provided
func (u *InboundUnmatched) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
