package mocks

import (
	"sync"
)

// MessageNotification records one new-message notification
type MessageNotification struct {
	ConversationID string
	MessageID      string
	FromEmail      string
	Subject        string
}

// DraftNotification records one draft-ready notification
type DraftNotification struct {
	ConversationID string
	DraftID        string
}

// MockNotifier records hub notifications. It satisfies both the resolver's
// and the analyzer's Notifier interfaces.
type MockNotifier struct {
	mu       sync.Mutex
	Messages []MessageNotification
	Drafts   []DraftNotification
}

// NewMockNotifier creates a new MockNotifier instance
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// NewMessage records a new-message notification
func (m *MockNotifier) NewMessage(conversationID, messageID, fromEmail, subject string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, MessageNotification{
		ConversationID: conversationID,
		MessageID:      messageID,
		FromEmail:      fromEmail,
		Subject:        subject,
	})
}

// DraftReady records a draft-ready notification
func (m *MockNotifier) DraftReady(conversationID, draftID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Drafts = append(m.Drafts, DraftNotification{
		ConversationID: conversationID,
		DraftID:        draftID,
	})
}

// MessageCount returns the number of recorded message notifications
func (m *MockNotifier) MessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

// DraftCount returns the number of recorded draft notifications
func (m *MockNotifier) DraftCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Drafts)
}
