package smtp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-smtp"

	"github.com/payrollcheck/payrollcheck-backend/internal/inbound"
)

// Session implements the go-smtp Session interface
type Session struct {
	backend    *Backend
	from       string
	recipients []string
}

// NewSession creates a new SMTP session
func NewSession(backend *Backend) *Session {
	return &Session{
		backend:    backend,
		recipients: make([]string, 0),
	}
}

// AuthPlain handles PLAIN authentication (not required for receiving)
func (s *Session) AuthPlain(username, password string) error {
	// No authentication required for receiving emails
	return nil
}

// Mail handles the MAIL FROM command
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	if s.backend.logger != nil {
		s.backend.logger.Debug("MAIL FROM", slog.String("from", from))
	}
	return nil
}

// Rcpt handles the RCPT TO command
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	localPart, domainName, err := parseEmailAddress(to)
	if err != nil {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Invalid recipient address",
		}
	}

	// Accept mail only for the configured inbound domain
	if s.backend.inboundDomain != "" && domainName != strings.ToLower(s.backend.inboundDomain) {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Relay not permitted",
		}
	}

	s.recipients = append(s.recipients, to)
	if s.backend.logger != nil {
		s.backend.logger.Debug("RCPT TO", slog.String("to", to), slog.String("local_part", localPart))
	}
	return nil
}

// Data handles the DATA command - receives the email content
func (s *Session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No recipients specified",
		}
	}

	// Parse the email
	parsedEmail, err := ParseEmail(r)
	if err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("failed to parse email", slog.Any("error", err))
		}
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Failed to parse email",
		}
	}

	// Fall back to the envelope sender when the From header is unusable
	if parsedEmail.SenderEmail == "" {
		parsedEmail.From = s.from
	}

	event := buildEvent(parsedEmail, s.recipients)

	result, err := s.backend.resolver.Resolve(context.Background(), event)
	if err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("failed to resolve inbound email",
				slog.String("from", event.From),
				slog.Any("error", err))
		}
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary error",
		}
	}

	if s.backend.logger != nil {
		s.backend.logger.Info("email received",
			slog.String("from", s.from),
			slog.Int("recipients", len(s.recipients)),
			slog.String("subject", parsedEmail.Subject),
			slog.Bool("matched", result.Matched),
			slog.Bool("duplicate", result.Duplicate))
	}

	return nil
}

// buildEvent converts a parsed MIME message into a resolver event
func buildEvent(parsed *ParsedEmail, recipients []string) *inbound.Event {
	event := &inbound.Event{
		From:      parsed.From,
		To:        recipients,
		Subject:   parsed.Subject,
		MessageID: parsed.MessageID,
		Provider:  "smtp",
		Headers:   make(map[string]string),
	}

	if parsed.BodyText != "" {
		text := parsed.BodyText
		event.Text = &text
	}
	if parsed.BodyHTML != "" {
		html := parsed.BodyHTML
		event.HTML = &html
	}
	if parsed.InReplyTo != "" {
		event.Headers["In-Reply-To"] = parsed.InReplyTo
	}
	if parsed.References != "" {
		event.Headers["References"] = parsed.References
	}

	return event
}

// Reset resets the session state
func (s *Session) Reset() {
	s.from = ""
	s.recipients = make([]string, 0)
}

// Logout handles the end of the session
func (s *Session) Logout() error {
	return nil
}

// parseEmailAddress parses an email address into local part and domain
func parseEmailAddress(address string) (localPart, domain string, err error) {
	// Remove angle brackets if present
	address = strings.TrimPrefix(address, "<")
	address = strings.TrimSuffix(address, ">")
	address = strings.TrimSpace(address)

	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	localPart = strings.ToLower(parts[0])
	domain = strings.ToLower(parts[1])

	if localPart == "" || domain == "" {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	return localPart, domain, nil
}
