package smtp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== ParseEmail Tests ====================

// TestParseEmail_SimpleText tests parsing a simple text email
func TestParseEmail_SimpleText(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: Simple Text Email
Content-Type: text/plain; charset=utf-8

Hello, this is a simple text email.`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", parsed.SenderEmail)
	assert.Equal(t, "Simple Text Email", parsed.Subject)
	assert.Contains(t, parsed.BodyText, "Hello, this is a simple text email")
	assert.Empty(t, parsed.BodyHTML)
}

// TestParseEmail_HTMLEmail tests parsing an HTML email
func TestParseEmail_HTMLEmail(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: HTML Email
Content-Type: text/html; charset=utf-8

<html><body><h1>Hello World</h1><p>This is an HTML email.</p></body></html>`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", parsed.SenderEmail)
	assert.Equal(t, "HTML Email", parsed.Subject)
	assert.Contains(t, parsed.BodyHTML, "<h1>Hello World</h1>")
}

// TestParseEmail_MultipartAlternative tests parsing a multipart/alternative email
func TestParseEmail_MultipartAlternative(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: Multipart Alternative
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="boundary123"

--boundary123
Content-Type: text/plain; charset=utf-8

Plain text version.

--boundary123
Content-Type: text/html; charset=utf-8

<html><body><p>HTML version.</p></body></html>

--boundary123--`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", parsed.SenderEmail)
	assert.Equal(t, "Multipart Alternative", parsed.Subject)
	assert.Contains(t, parsed.BodyText, "Plain text version")
	assert.Contains(t, parsed.BodyHTML, "HTML version")
}

// TestParseEmail_ExtractsFromHeader tests that From header is correctly extracted
func TestParseEmail_ExtractsFromHeader(t *testing.T) {
	// Arrange
	emailContent := `From: "Test Sender" <sender@example.com>
To: receiver@test.com
Subject: Test
Content-Type: text/plain

Body`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", parsed.SenderEmail)
	assert.Equal(t, "Test Sender", parsed.SenderName)
	assert.Contains(t, parsed.From, "sender@example.com")
}

// TestParseEmail_ExtractsSubject tests that Subject header is correctly extracted
func TestParseEmail_ExtractsSubject(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: This is a test subject with special chars: äöü
Content-Type: text/plain

Body`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Contains(t, parsed.Subject, "This is a test subject")
}

// TestParseEmail_ExtractsThreadingHeaders tests that Message-ID, In-Reply-To
// and References are carried through for conversation matching
func TestParseEmail_ExtractsThreadingHeaders(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: Re: Threading
Message-ID: <abc123@mail.example.com>
In-Reply-To: <parent456@mail.example.com>
References: <root789@mail.example.com> <parent456@mail.example.com>
Content-Type: text/plain

Body`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "abc123@mail.example.com", parsed.MessageID)
	assert.Equal(t, "<parent456@mail.example.com>", parsed.InReplyTo)
	assert.Contains(t, parsed.References, "<root789@mail.example.com>")
}

// TestParseEmail_MissingThreadingHeaders tests that absent headers stay empty
func TestParseEmail_MissingThreadingHeaders(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: No Threading
Content-Type: text/plain

Body`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Empty(t, parsed.MessageID)
	assert.Empty(t, parsed.InReplyTo)
	assert.Empty(t, parsed.References)
}

// ==================== trimMessageID Tests ====================

// TestTrimMessageID_AngleBrackets tests stripping angle brackets
func TestTrimMessageID_AngleBrackets(t *testing.T) {
	assert.Equal(t, "id@host", trimMessageID("<id@host>"))
}

// TestTrimMessageID_Whitespace tests trimming surrounding whitespace
func TestTrimMessageID_Whitespace(t *testing.T) {
	assert.Equal(t, "id@host", trimMessageID("  <id@host>  "))
}

// TestTrimMessageID_Bare tests a bare identifier passing through
func TestTrimMessageID_Bare(t *testing.T) {
	assert.Equal(t, "id@host", trimMessageID("id@host"))
}

// TestTrimMessageID_Empty tests an empty header
func TestTrimMessageID_Empty(t *testing.T) {
	assert.Empty(t, trimMessageID(""))
}
