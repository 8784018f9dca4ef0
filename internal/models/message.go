package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EmailDirection indicates whether a message was received or sent
type EmailDirection string

const (
	DirectionInbound  EmailDirection = "inbound"
	DirectionOutbound EmailDirection = "outbound"
)

// EmailMessage represents one inbound or outbound email belonging to a conversation.
// Immutable once stored. Ordering within a conversation is by OccurredAt ascending.
type EmailMessage struct {
	ID                string            `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID    string            `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Direction         EmailDirection    `gorm:"size:16;not null" json:"direction"`
	FromEmail         string            `gorm:"not null;size:512" json:"from_email"`
	ToEmail           string            `gorm:"size:1024" json:"to_email"`
	Subject           string            `gorm:"size:512" json:"subject,omitempty"`
	TextBody          *string           `json:"text_body,omitempty"`
	HTMLBody          *string           `json:"html_body,omitempty"`
	Provider          string            `gorm:"size:32" json:"provider"`
	ProviderMessageID *string           `gorm:"size:512;index" json:"provider_message_id,omitempty"`
	Headers           datatypes.JSONMap `json:"headers,omitempty"`
	OccurredAt        time.Time         `gorm:"index" json:"occurred_at"`
	CreatedByAdminID  *string           `gorm:"size:255" json:"created_by_admin_id,omitempty"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Conversation EmailConversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for EmailMessage
func (EmailMessage) TableName() string {
	return "email_messages"
}

// BeforeCreate assigns a UUID primary key and defaults the occurrence timestamp
func (m *EmailMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now().UTC()
	}
	return nil
}
