// Package fixtures provides fluent builders for test data
package fixtures

import (
	"time"

	"gorm.io/datatypes"

	"github.com/payrollcheck/payrollcheck-backend/internal/models"
)

// LeadBuilder creates test Lead instances with fluent API
type LeadBuilder struct {
	lead models.Lead
}

// NewLeadBuilder creates a new LeadBuilder with sensible defaults
func NewLeadBuilder() *LeadBuilder {
	now := time.Now()
	return &LeadBuilder{
		lead: models.Lead{
			ID:                   "11111111-1111-1111-1111-111111111111",
			Status:               models.LeadStatusNew,
			FullName:             "ישראל ישראלי",
			Phone:                "0501234567",
			Email:                "israel@example.com",
			City:                 "תל אביב",
			EmployerName:         "חברת הדוגמה בעמ",
			RoleTitle:            "נציג שירות",
			EmploymentType:       "full_time",
			StartDate:            "2022-01-01",
			StillEmployed:        true,
			AvgMonthlySalary:     8500,
			PaidOvertime:         "no",
			AttendanceTracking:   "yes",
			PensionProvided:      "no",
			TravelReimbursement:  "yes",
			VacationBalanceIssue: "no",
			SickDaysIssue:        "no",
			Consent:              true,
			CreatedAt:            now,
			UpdatedAt:            now,
		},
	}
}

// WithID sets the lead ID
func (b *LeadBuilder) WithID(id string) *LeadBuilder {
	b.lead.ID = id
	return b
}

// WithStatus sets the lead status
func (b *LeadBuilder) WithStatus(status models.LeadStatus) *LeadBuilder {
	b.lead.Status = status
	return b
}

// WithFullName sets the applicant name
func (b *LeadBuilder) WithFullName(name string) *LeadBuilder {
	b.lead.FullName = name
	return b
}

// WithEmail sets the contact email
func (b *LeadBuilder) WithEmail(email string) *LeadBuilder {
	b.lead.Email = email
	return b
}

// WithPhone sets the contact phone
func (b *LeadBuilder) WithPhone(phone string) *LeadBuilder {
	b.lead.Phone = phone
	return b
}

// WithScore sets the computed lead score
func (b *LeadBuilder) WithScore(score int) *LeadBuilder {
	b.lead.LeadScore = score
	return b
}

// WithFlags sets the computed lead flags
func (b *LeadBuilder) WithFlags(flags models.LeadFlags) *LeadBuilder {
	b.lead.LeadFlags = datatypes.NewJSONType(flags)
	return b
}

// WithLastContactAt sets the last contact timestamp
func (b *LeadBuilder) WithLastContactAt(t *time.Time) *LeadBuilder {
	b.lead.LastContactAt = t
	return b
}

// Build returns the constructed Lead
func (b *LeadBuilder) Build() *models.Lead {
	return &b.lead
}

// BuildValue returns the constructed Lead as a value (not pointer)
func (b *LeadBuilder) BuildValue() models.Lead {
	return b.lead
}

// ConversationBuilder creates test EmailConversation instances with fluent API
type ConversationBuilder struct {
	conv models.EmailConversation
}

// NewConversationBuilder creates a new ConversationBuilder with sensible defaults
func NewConversationBuilder() *ConversationBuilder {
	now := time.Now()
	return &ConversationBuilder{
		conv: models.EmailConversation{
			ID:            "22222222-2222-2222-2222-222222222222",
			LeadID:        "11111111-1111-1111-1111-111111111111",
			Subject:       "בדיקת זכויות שכר",
			Status:        models.ConversationStatusOpen,
			ReplyToken:    "aa11bb22cc33dd44ee55ff66",
			LastMessageAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

// WithID sets the conversation ID
func (b *ConversationBuilder) WithID(id string) *ConversationBuilder {
	b.conv.ID = id
	return b
}

// WithLeadID sets the owning lead ID
func (b *ConversationBuilder) WithLeadID(leadID string) *ConversationBuilder {
	b.conv.LeadID = leadID
	return b
}

// WithSubject sets the conversation subject
func (b *ConversationBuilder) WithSubject(subject string) *ConversationBuilder {
	b.conv.Subject = subject
	return b
}

// WithStatus sets the conversation status
func (b *ConversationBuilder) WithStatus(status models.ConversationStatus) *ConversationBuilder {
	b.conv.Status = status
	return b
}

// WithReplyToken sets the reply correlation token
func (b *ConversationBuilder) WithReplyToken(token string) *ConversationBuilder {
	b.conv.ReplyToken = token
	return b
}

// WithUnread sets the unread flag
func (b *ConversationBuilder) WithUnread(unread bool) *ConversationBuilder {
	b.conv.Unread = unread
	return b
}

// WithLastMessageAt sets the last message timestamp
func (b *ConversationBuilder) WithLastMessageAt(t time.Time) *ConversationBuilder {
	b.conv.LastMessageAt = t
	return b
}

// Build returns the constructed EmailConversation
func (b *ConversationBuilder) Build() *models.EmailConversation {
	return &b.conv
}

// BuildValue returns the constructed EmailConversation as a value (not pointer)
func (b *ConversationBuilder) BuildValue() models.EmailConversation {
	return b.conv
}

// MessageBuilder creates test EmailMessage instances with fluent API
type MessageBuilder struct {
	message models.EmailMessage
}

// NewMessageBuilder creates a new MessageBuilder with sensible defaults
func NewMessageBuilder() *MessageBuilder {
	now := time.Now()
	text := "תודה על הפנייה, נשמח לעזור"
	return &MessageBuilder{
		message: models.EmailMessage{
			ID:             "33333333-3333-3333-3333-333333333333",
			ConversationID: "22222222-2222-2222-2222-222222222222",
			Direction:      models.DirectionInbound,
			FromEmail:      "israel@example.com",
			ToEmail:        "reply+aa11bb22cc33dd44ee55ff66@mail.example.com",
			Subject:        "בדיקת זכויות שכר",
			TextBody:       &text,
			Provider:       "resend",
			OccurredAt:     now,
			CreatedAt:      now,
		},
	}
}

// WithID sets the message ID
func (b *MessageBuilder) WithID(id string) *MessageBuilder {
	b.message.ID = id
	return b
}

// WithConversationID sets the owning conversation ID
func (b *MessageBuilder) WithConversationID(conversationID string) *MessageBuilder {
	b.message.ConversationID = conversationID
	return b
}

// WithDirection sets the message direction
func (b *MessageBuilder) WithDirection(direction models.EmailDirection) *MessageBuilder {
	b.message.Direction = direction
	return b
}

// WithFromEmail sets the sender address
func (b *MessageBuilder) WithFromEmail(from string) *MessageBuilder {
	b.message.FromEmail = from
	return b
}

// WithSubject sets the message subject
func (b *MessageBuilder) WithSubject(subject string) *MessageBuilder {
	b.message.Subject = subject
	return b
}

// WithTextBody sets the plain text body
func (b *MessageBuilder) WithTextBody(text string) *MessageBuilder {
	b.message.TextBody = &text
	return b
}

// WithHTMLBody sets the HTML body
func (b *MessageBuilder) WithHTMLBody(html string) *MessageBuilder {
	b.message.HTMLBody = &html
	return b
}

// WithProviderMessageID sets the provider message identifier
func (b *MessageBuilder) WithProviderMessageID(id string) *MessageBuilder {
	b.message.ProviderMessageID = &id
	return b
}

// WithHeaders sets the stored headers
func (b *MessageBuilder) WithHeaders(headers datatypes.JSONMap) *MessageBuilder {
	b.message.Headers = headers
	return b
}

// WithOccurredAt sets the occurrence timestamp
func (b *MessageBuilder) WithOccurredAt(t time.Time) *MessageBuilder {
	b.message.OccurredAt = t
	return b
}

// Build returns the constructed EmailMessage
func (b *MessageBuilder) Build() *models.EmailMessage {
	return &b.message
}

// BuildValue returns the constructed EmailMessage as a value (not pointer)
func (b *MessageBuilder) BuildValue() models.EmailMessage {
	return b.message
}

// DraftBuilder creates test CaseAiDraft instances with fluent API
type DraftBuilder struct {
	draft models.CaseAiDraft
}

// NewDraftBuilder creates a new DraftBuilder with sensible defaults
func NewDraftBuilder() *DraftBuilder {
	now := time.Now()
	return &DraftBuilder{
		draft: models.CaseAiDraft{
			ID:               "44444444-4444-4444-4444-444444444444",
			LeadID:           "11111111-1111-1111-1111-111111111111",
			ConversationID:   "22222222-2222-2222-2222-222222222222",
			SuggestedSubject: "Re: בדיקת זכויות שכר",
			SuggestedText:    "שלום, כדי להתקדם נצטרך כמה פרטים נוספים",
			Questions:        datatypes.NewJSONSlice([]string{"האם קיבלת תלושי שכר?"}),
			Status:           models.DraftStatusProposed,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}
}

// WithID sets the draft ID
func (b *DraftBuilder) WithID(id string) *DraftBuilder {
	b.draft.ID = id
	return b
}

// WithLeadID sets the owning lead ID
func (b *DraftBuilder) WithLeadID(leadID string) *DraftBuilder {
	b.draft.LeadID = leadID
	return b
}

// WithConversationID sets the owning conversation ID
func (b *DraftBuilder) WithConversationID(conversationID string) *DraftBuilder {
	b.draft.ConversationID = conversationID
	return b
}

// WithStatus sets the draft status
func (b *DraftBuilder) WithStatus(status models.AiDraftStatus) *DraftBuilder {
	b.draft.Status = status
	return b
}

// WithSuggestedSubject sets the suggested subject
func (b *DraftBuilder) WithSuggestedSubject(subject string) *DraftBuilder {
	b.draft.SuggestedSubject = subject
	return b
}

// WithSuggestedText sets the suggested text body
func (b *DraftBuilder) WithSuggestedText(text string) *DraftBuilder {
	b.draft.SuggestedText = text
	return b
}

// WithSuggestedHTML sets the suggested HTML body
func (b *DraftBuilder) WithSuggestedHTML(html string) *DraftBuilder {
	b.draft.SuggestedHTML = &html
	return b
}

// Build returns the constructed CaseAiDraft
func (b *DraftBuilder) Build() *models.CaseAiDraft {
	return &b.draft
}

// BuildValue returns the constructed CaseAiDraft as a value (not pointer)
func (b *DraftBuilder) BuildValue() models.CaseAiDraft {
	return b.draft
}

// UnmatchedBuilder creates test InboundUnmatched instances with fluent API
type UnmatchedBuilder struct {
	record models.InboundUnmatched
}

// NewUnmatchedBuilder creates a new UnmatchedBuilder with sensible defaults
func NewUnmatchedBuilder() *UnmatchedBuilder {
	text := "מי אתם?"
	return &UnmatchedBuilder{
		record: models.InboundUnmatched{
			ID:        "55555555-5555-5555-5555-555555555555",
			FromEmail: "stranger@example.org",
			ToEmail:   "info@mail.example.com",
			Subject:   "שאלה כללית",
			TextBody:  &text,
			CreatedAt: time.Now(),
		},
	}
}

// WithFromEmail sets the sender address
func (b *UnmatchedBuilder) WithFromEmail(from string) *UnmatchedBuilder {
	b.record.FromEmail = from
	return b
}

// WithSubject sets the subject
func (b *UnmatchedBuilder) WithSubject(subject string) *UnmatchedBuilder {
	b.record.Subject = subject
	return b
}

// Build returns the constructed InboundUnmatched
func (b *UnmatchedBuilder) Build() *models.InboundUnmatched {
	return &b.record
}

// BuildValue returns the constructed InboundUnmatched as a value (not pointer)
func (b *UnmatchedBuilder) BuildValue() models.InboundUnmatched {
	return b.record
}
