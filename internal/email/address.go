package email

import (
	"fmt"
	"regexp"
	"strings"
)

// ReplyTokenPrefix is the reserved local-part prefix for reply-correlation addresses
const ReplyTokenPrefix = "reply+"

var (
	// A reply address embeds a 24-char hex token: reply+<token>@domain
	replyTokenRe = regexp.MustCompile(`(?i)^reply\+([a-f0-9]{24})@`)

	// Pattern: "Name" <email@example.com>, Name <email@example.com> or a bare address
	fromHeaderRe = regexp.MustCompile(`^(?:"?([^"<]*)"?\s*)?<?([^<>]+@[^<>]+)>?$`)
)

// BuildReplyToAddress builds the reply-to address for a conversation.
// Format: reply+<token>@<inbound-domain>
func BuildReplyToAddress(replyToken, inboundDomain string) string {
	return fmt.Sprintf("%s%s@%s", ReplyTokenPrefix, replyToken, inboundDomain)
}

// ExtractReplyToken extracts the reply token from a recipient address.
// Returns the empty string when the address doesn't match the expected format.
func ExtractReplyToken(address string) string {
	matches := replyTokenRe.FindStringSubmatch(strings.TrimSpace(address))
	if matches == nil {
		return ""
	}
	return strings.ToLower(matches[1])
}

// ParseFromHeader extracts the display name and bare address from a From
// header, handling both bare-address and quoted display-name forms. The
// address is normalized to lower case.
func ParseFromHeader(from string) (name, address string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	matches := fromHeaderRe.FindStringSubmatch(from)
	if len(matches) >= 3 {
		name = strings.Trim(strings.TrimSpace(matches[1]), `"`)
		address = strings.TrimSpace(matches[2])
	} else if strings.Contains(from, "@") {
		// Fallback: treat the entire header as the address
		address = from
	}

	return name, strings.ToLower(address)
}
