// Package inbound correlates inbound email events to conversations and
// leads, persists them and triggers downstream analysis.
package inbound

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/payrollcheck/payrollcheck-backend/internal/ai"
	"github.com/payrollcheck/payrollcheck-backend/internal/email"
	"github.com/payrollcheck/payrollcheck-backend/internal/mailer"
	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
)

// noSubjectPlaceholder is used when an inbound email carries a blank subject
const noSubjectPlaceholder = "(ללא נושא)"

// Event is one parsed inbound email
type Event struct {
	From       string
	To         []string
	Subject    string
	Text       *string
	HTML       *string
	Headers    map[string]string
	MessageID  string
	EmailID    string
	Provider   string
	RawPayload []byte
}

// Result reports what the resolver did with an event
type Result struct {
	Matched         bool     `json:"matched"`
	ConversationIDs []string `json:"conversation_ids,omitempty"`
	MessageIDs      []string `json:"message_ids,omitempty"`
	Duplicate       bool     `json:"duplicate,omitempty"`
}

// AnalysisTrigger starts an AI analysis run. Satisfied by *ai.Analyzer.
type AnalysisTrigger interface {
	AnalyzeInboundEmail(ctx context.Context, params ai.AnalyzeParams) ai.AnalyzeResult
}

// Notifier receives a callback for every stored inbound message.
// Implemented by the websocket hub; nil disables notifications.
type Notifier interface {
	NewMessage(conversationID, messageID, fromEmail, subject string)
}

// Resolver matches inbound emails to conversations and stores them
type Resolver struct {
	leads         repository.LeadRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	unmatched     repository.UnmatchedRepository
	mailer        mailer.Mailer
	analyzer      AnalysisTrigger
	notifier      Notifier
	logger        *slog.Logger
}

// ResolverConfig wires the resolver's dependencies. Mailer, Analyzer and
// Notifier are optional.
type ResolverConfig struct {
	Leads         repository.LeadRepository
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Unmatched     repository.UnmatchedRepository
	Mailer        mailer.Mailer
	Analyzer      AnalysisTrigger
	Notifier      Notifier
	Logger        *slog.Logger
}

// NewResolver creates a resolver from its dependencies
func NewResolver(cfg *ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		leads:         cfg.Leads,
		conversations: cfg.Conversations,
		messages:      cfg.Messages,
		unmatched:     cfg.Unmatched,
		mailer:        cfg.Mailer,
		analyzer:      cfg.Analyzer,
		notifier:      cfg.Notifier,
		logger:        logger,
	}
}

// Resolve correlates one inbound email event to its conversation(s), stores
// the message into each and triggers analysis. Matching strategies run in
// priority order and the first that yields a match short-circuits the rest:
// reply-token, threading headers, then sender identity.
func (r *Resolver) Resolve(ctx context.Context, event *Event) (*Result, error) {
	log := r.logger.With(slog.String("from", event.From), slog.String("subject", event.Subject))

	r.fetchMissingBody(ctx, event, log)

	textBody, htmlBody := prepareBodies(event.Text, event.HTML)

	matched := r.matchByReplyToken(ctx, event, log)
	if len(matched) == 0 {
		matched = r.matchByThreadingHeaders(ctx, event, log)
	}
	if len(matched) == 0 {
		conv, unmatchable, err := r.matchBySender(ctx, event, log)
		if err != nil {
			return nil, err
		}
		if unmatchable {
			if err := r.storeUnmatched(ctx, event, textBody, htmlBody); err != nil {
				return nil, err
			}
			log.Info("stored unmatched inbound email")
			return &Result{Matched: false}, nil
		}
		matched = []*models.EmailConversation{conv}
	}

	result := &Result{Matched: true}
	now := time.Now().UTC()
	leadTouched := false

	for _, conv := range matched {
		convLog := log.With(slog.String("conversation_id", conv.ID))

		if event.MessageID != "" {
			exists, err := r.messages.ExistsByProviderMessageID(ctx, conv.ID, event.MessageID)
			if err != nil {
				convLog.Error("failed to check for duplicate delivery", slog.String("error", err.Error()))
			} else if exists {
				convLog.Info("skipping duplicate webhook delivery", slog.String("provider_message_id", event.MessageID))
				result.Duplicate = true
				continue
			}
		}

		message := &models.EmailMessage{
			ConversationID:    conv.ID,
			Direction:         models.DirectionInbound,
			FromEmail:         event.From,
			ToEmail:           strings.Join(event.To, ", "),
			Subject:           event.Subject,
			TextBody:          textBody,
			HTMLBody:          htmlBody,
			Provider:          event.Provider,
			ProviderMessageID: optionalString(event.MessageID),
			Headers:           headersAsMap(event.Headers),
			OccurredAt:        now,
		}

		// A storage failure in one matched conversation must not abort
		// storage into the others
		if err := r.messages.Create(ctx, message); err != nil {
			convLog.Error("failed to store inbound message", slog.String("error", err.Error()))
			continue
		}

		if err := r.conversations.MarkInboundActivity(ctx, conv.ID, now); err != nil {
			convLog.Error("failed to mark conversation activity", slog.String("error", err.Error()))
		}

		if !leadTouched {
			if err := r.leads.TouchLastContact(ctx, conv.LeadID, now); err != nil {
				convLog.Error("failed to touch lead", slog.String("error", err.Error()))
			}
			leadTouched = true
		}

		result.ConversationIDs = append(result.ConversationIDs, conv.ID)
		result.MessageIDs = append(result.MessageIDs, message.ID)

		if r.notifier != nil {
			r.notifier.NewMessage(conv.ID, message.ID, event.From, event.Subject)
		}

		r.triggerAnalysis(conv, message.ID)
		convLog.Info("stored inbound message", slog.String("message_id", message.ID))
	}

	if len(result.ConversationIDs) == 0 && !result.Duplicate {
		return result, errors.New("failed to store inbound message in any matched conversation")
	}
	return result, nil
}

// fetchMissingBody retrieves the full body from the provider when the
// webhook event omitted it inline. Best effort: a fetch failure leaves the
// event bodies empty rather than dropping the email.
func (r *Resolver) fetchMissingBody(ctx context.Context, event *Event, log *slog.Logger) {
	if event.Text != nil || event.HTML != nil || event.EmailID == "" || r.mailer == nil {
		return
	}

	received, err := r.mailer.FetchReceivedBody(ctx, event.EmailID)
	if err != nil {
		log.Warn("failed to fetch inbound email body", slog.String("error", err.Error()))
		return
	}
	if received.Text != "" {
		event.Text = &received.Text
	}
	if received.HTML != "" {
		event.HTML = &received.HTML
	}
}

// matchByReplyToken unions the conversations referenced by correlation
// tokens embedded in the recipient addresses
func (r *Resolver) matchByReplyToken(ctx context.Context, event *Event, log *slog.Logger) []*models.EmailConversation {
	var matched []*models.EmailConversation
	seen := make(map[string]bool)

	for _, recipient := range event.To {
		token := email.ExtractReplyToken(recipient)
		if token == "" {
			continue
		}

		conv, err := r.conversations.GetByReplyToken(ctx, token)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				log.Error("reply token lookup failed", slog.String("error", err.Error()))
			}
			continue
		}
		if !seen[conv.ID] {
			seen[conv.ID] = true
			matched = append(matched, conv)
		}
	}
	return matched
}

// matchByThreadingHeaders unions the conversations owning any message
// referenced by the In-Reply-To or References headers
func (r *Resolver) matchByThreadingHeaders(ctx context.Context, event *Event, log *slog.Logger) []*models.EmailConversation {
	var matched []*models.EmailConversation
	seen := make(map[string]bool)

	for _, mid := range referencedMessageIDs(event.Headers) {
		convID, err := r.messages.FindConversationIDByProviderMessageID(ctx, mid)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				log.Error("threading header lookup failed", slog.String("error", err.Error()))
			}
			continue
		}
		if seen[convID] {
			continue
		}

		conv, err := r.conversations.GetByID(ctx, convID)
		if err != nil {
			log.Error("failed to load matched conversation", slog.String("error", err.Error()))
			continue
		}
		seen[convID] = true
		matched = append(matched, conv)
	}
	return matched
}

// matchBySender finds or creates a conversation for the sender's lead.
// The second return value is true when no lead owns the sender address.
func (r *Resolver) matchBySender(ctx context.Context, event *Event, log *slog.Logger) (*models.EmailConversation, bool, error) {
	_, address := email.ParseFromHeader(event.From)
	if address == "" {
		return nil, true, nil
	}

	lead, err := r.leads.GetByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, true, nil
		}
		return nil, false, err
	}

	conv, err := r.conversations.MostRecentActiveByLead(ctx, lead.ID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	subject := event.Subject
	if strings.TrimSpace(subject) == "" {
		subject = noSubjectPlaceholder
	}
	conv = &models.EmailConversation{
		LeadID:  lead.ID,
		Subject: subject,
		Status:  models.ConversationStatusOpen,
	}
	if err := r.conversations.Create(ctx, conv); err != nil {
		return nil, false, err
	}
	log.Info("created conversation for sender", slog.String("conversation_id", conv.ID), slog.String("lead_id", lead.ID))
	return conv, false, nil
}

func (r *Resolver) storeUnmatched(ctx context.Context, event *Event, textBody, htmlBody *string) error {
	record := &models.InboundUnmatched{
		FromEmail:  event.From,
		ToEmail:    strings.Join(event.To, ", "),
		Subject:    event.Subject,
		TextBody:   textBody,
		HTMLBody:   htmlBody,
		Headers:    headersAsMap(event.Headers),
		RawPayload: datatypes.JSON(event.RawPayload),
	}
	return r.unmatched.Create(ctx, record)
}

// triggerAnalysis fires the AI pipeline in the background. A failed
// analysis is logged and never affects ingestion.
func (r *Resolver) triggerAnalysis(conv *models.EmailConversation, messageID string) {
	if r.analyzer == nil {
		return
	}

	go func() {
		result := r.analyzer.AnalyzeInboundEmail(context.Background(), ai.AnalyzeParams{
			LeadID:         conv.LeadID,
			ConversationID: conv.ID,
			MessageID:      messageID,
			Trigger:        models.TriggerInboundEmail,
		})
		if !result.Success {
			r.logger.Warn("inbound analysis failed",
				slog.String("conversation_id", conv.ID),
				slog.String("error", result.Error))
		}
	}()
}

// prepareBodies sanitizes the HTML representation and strips quoted history
// from both representations
func prepareBodies(text, html *string) (*string, *string) {
	if html != nil {
		sanitized := email.SanitizeEmailHTML(*html)
		html = &sanitized
	}
	strippedHTML, strippedText := email.StripQuotedContent(html, text)
	return strippedText, strippedHTML
}

// referencedMessageIDs extracts every message identifier from the
// In-Reply-To and References headers, stripping angle brackets. Header
// lookup is case-insensitive.
func referencedMessageIDs(headers map[string]string) []string {
	var ids []string
	seen := make(map[string]bool)

	add := func(raw string) {
		id := strings.Trim(strings.TrimSpace(raw), "<>")
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	// In-Reply-To takes precedence over References
	if value := headerValue(headers, "in-reply-to"); value != "" {
		add(value)
	}
	if value := headerValue(headers, "references"); value != "" {
		for _, ref := range strings.Fields(value) {
			add(ref)
		}
	}
	return ids
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func headersAsMap(headers map[string]string) datatypes.JSONMap {
	if headers == nil {
		return nil
	}
	m := make(datatypes.JSONMap, len(headers))
	for k, v := range headers {
		m[strings.ToLower(k)] = v
	}
	return m
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
