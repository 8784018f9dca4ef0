package email

import (
	"regexp"
	"strings"
)

// removalScope determines how much of the document a matched quote marker removes
type removalScope int

const (
	// scopeElement removes only the matched markup
	scopeElement removalScope = iota
	// scopeTail removes the match and everything after it
	scopeTail
)

// htmlQuoteRule pairs a client-specific quote pattern with its removal scope.
// Adding support for another email client's quirk is a new table entry, not
// new control flow.
type htmlQuoteRule struct {
	pattern *regexp.Regexp
	scope   removalScope
}

// Client-specific quote containers, applied in order. Applied AFTER
// sanitization, so the tag and attribute set is predictable.
var htmlQuoteRules = []htmlQuoteRule{
	// Gmail quote and extra-content wrappers
	{regexp.MustCompile(`(?i)<div[^>]*class="gmail_quote"[^>]*>`), scopeTail},
	{regexp.MustCompile(`(?i)<div[^>]*class="gmail_extra"[^>]*>`), scopeTail},
	// Outlook "appendonsend" marker: everything from this div onward is quoted
	{regexp.MustCompile(`(?i)<div[^>]*id="appendonsend"[^>]*>`), scopeTail},
	// Outlook message header block
	{regexp.MustCompile(`(?is)<div[^>]*class="OutlookMessageHeader"[^>]*>.*?</div>`), scopeElement},
	// Yahoo quoted content
	{regexp.MustCompile(`(?i)<div[^>]*class="yahoo_quoted"[^>]*>`), scopeTail},
}

var (
	blockquoteRe       = regexp.MustCompile(`(?is)<blockquote[^>]*>.*?</blockquote>`)
	orphanBlockquoteRe = regexp.MustCompile(`(?i)</blockquote>`)

	// Short reply-attribution lines ("On ... wrote:") in Latin, Hebrew or Cyrillic
	wroteLineRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<p[^>]*>[^<]*(?:wrote:|כתב:|написал:)[^<]*</p>`),
		regexp.MustCompile(`(?i)<div[^>]*>[^<]*(?:wrote:|כתב:|написал:)[^<]*</div>`),
	}

	// Trailing horizontal rule with nothing but whitespace after it
	trailingHrRe = regexp.MustCompile(`(?i)<hr[^>]*>\s*$`)

	// Empty leaf tags left behind by structural removal
	emptyTagRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<p>\s*</p>`),
		regexp.MustCompile(`(?i)<div>\s*</div>`),
		regexp.MustCompile(`(?i)<span>\s*</span>`),
	}
)

// Plain-text thread-ender and quote patterns
var (
	textOnWroteRe   = regexp.MustCompile(`(?i)^On\s+.+\s+wrote:\s*$`)
	textSeparatorRe = regexp.MustCompile(`(?i)^-{2,}\s*(Original Message|Forwarded message|הודעה מקורית)\s*-{2,}`)
	textFromLineRe  = regexp.MustCompile(`(?i)^From:\s+.+`)
	textSentLineRe  = regexp.MustCompile(`(?i)^Sent:\s+`)
	textQuotedRe    = regexp.MustCompile(`^\s*>`)
)

// StripQuotedContent removes quoted/forwarded thread history from an email
// reply, isolating only the new content. Each representation is processed
// independently; a nil input yields a nil output for that representation.
// This is a heuristic, best-effort transform: when no quote markers are
// present the input passes through unchanged.
func StripQuotedContent(html, text *string) (strippedHTML, strippedText *string) {
	if html != nil {
		s := stripQuotedHTML(*html)
		strippedHTML = &s
	}
	if text != nil {
		s := stripQuotedText(*text)
		strippedText = &s
	}
	return strippedHTML, strippedText
}

// stripQuotedHTML removes quoted content from HTML bodies, handling Gmail,
// Outlook, Yahoo and generic clients.
func stripQuotedHTML(html string) string {
	result := html

	// 1. Client-specific quote containers
	for _, rule := range htmlQuoteRules {
		switch rule.scope {
		case scopeTail:
			if loc := rule.pattern.FindStringIndex(result); loc != nil {
				result = result[:loc[0]]
			}
		case scopeElement:
			result = rule.pattern.ReplaceAllString(result, "")
		}
	}

	// 2. Blockquote elements, removed exhaustively. A single pass can leave
	// an inner blockquote promoted to top level, so repeat until none remain.
	for blockquoteRe.MatchString(result) {
		result = blockquoteRe.ReplaceAllString(result, "")
	}
	result = orphanBlockquoteRe.ReplaceAllString(result, "")

	// 3. Reply-attribution lines preceding the quoted section
	for _, re := range wroteLineRes {
		result = re.ReplaceAllString(result, "")
	}

	// 4. Trailing separator rule
	result = trailingHrRe.ReplaceAllString(result, "")

	// Collapse now-empty leaf tags
	for _, re := range emptyTagRes {
		result = re.ReplaceAllString(result, "")
	}

	return strings.TrimSpace(result)
}

// stripQuotedText removes quoted content from plain-text bodies, processing
// line by line from the top.
func stripQuotedText(text string) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])

		// Thread-enders: stop accumulating output entirely
		if textOnWroteRe.MatchString(trimmed) {
			break
		}
		if textSeparatorRe.MatchString(trimmed) {
			break
		}
		if textFromLineRe.MatchString(trimmed) &&
			i+1 < len(lines) && textSentLineRe.MatchString(strings.TrimSpace(lines[i+1])) {
			break
		}

		// Individually quoted lines are dropped wherever they occur
		if textQuotedRe.MatchString(lines[i]) {
			continue
		}

		result = append(result, lines[i])
	}

	// Trim trailing blank lines
	for len(result) > 0 && strings.TrimSpace(result[len(result)-1]) == "" {
		result = result[:len(result)-1]
	}

	return strings.Join(result, "\n")
}
