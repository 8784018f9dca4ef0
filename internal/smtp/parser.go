package smtp

import (
	"io"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/payrollcheck/payrollcheck-backend/internal/email"
)

// ParsedEmail represents a parsed inbound email message
type ParsedEmail struct {
	From        string
	SenderName  string
	SenderEmail string
	Subject     string
	BodyText    string
	BodyHTML    string
	MessageID   string
	InReplyTo   string
	References  string
}

// ParseEmail parses an email from an io.Reader
func ParseEmail(r io.Reader) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedEmail{
		From:       env.GetHeader("From"),
		Subject:    env.GetHeader("Subject"),
		BodyText:   env.Text,
		BodyHTML:   env.HTML,
		MessageID:  trimMessageID(env.GetHeader("Message-ID")),
		InReplyTo:  env.GetHeader("In-Reply-To"),
		References: env.GetHeader("References"),
	}
	parsed.SenderName, parsed.SenderEmail = email.ParseFromHeader(parsed.From)

	return parsed, nil
}

// trimMessageID strips the angle brackets RFC 5322 wraps around identifiers
func trimMessageID(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "<>")
}
