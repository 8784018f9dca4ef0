package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationStatus represents the lifecycle status of a conversation
type ConversationStatus string

const (
	ConversationStatusOpen    ConversationStatus = "open"
	ConversationStatusPending ConversationStatus = "pending"
	ConversationStatusClosed  ConversationStatus = "closed"
)

// ReplyTokenLength is the hex length of a conversation reply token
const ReplyTokenLength = 24

// EmailConversation represents an email thread between the service and one lead
type EmailConversation struct {
	ID            string             `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID        string             `gorm:"type:uuid;not null;index" json:"lead_id"`
	Subject       string             `gorm:"size:512" json:"subject"`
	Status        ConversationStatus `gorm:"size:32;default:open;index" json:"status"`
	ReplyToken    string             `gorm:"uniqueIndex;not null;size:24" json:"reply_token"`
	Unread        bool               `gorm:"default:false" json:"unread"`
	LastMessageAt time.Time          `json:"last_message_at"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Lead     Lead           `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE" json:"-"`
	Messages []EmailMessage `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for EmailConversation
func (EmailConversation) TableName() string {
	return "email_conversations"
}

// BeforeCreate assigns the UUID primary key and the reply token.
// The reply token is unguessable and immutable after creation.
func (c *EmailConversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ReplyToken == "" {
		token, err := NewReplyToken()
		if err != nil {
			return err
		}
		c.ReplyToken = token
	}
	if c.LastMessageAt.IsZero() {
		c.LastMessageAt = time.Now().UTC()
	}
	return nil
}

// NewReplyToken generates a 24-character hex reply token from 12 random bytes
func NewReplyToken() (string, error) {
	buf := make([]byte, ReplyTokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
