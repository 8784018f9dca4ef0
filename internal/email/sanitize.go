// Package email provides inbound email body processing: HTML sanitization,
// quoted-content stripping and address parsing helpers.
package email

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// emailPolicy is built once and reused; bluemonday policies are safe for
// concurrent use after construction.
var emailPolicy = newEmailPolicy()

// newEmailPolicy builds the sanitization policy for inbound HTML bodies.
// The allow-list keeps basic formatting only; class and id survive because
// quote stripping depends on them for client quote-container detection.
func newEmailPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "b", "i", "em", "strong", "a", "ul", "ol", "li",
		"blockquote", "h1", "h2", "h3", "h4", "h5", "h6",
		"table", "thead", "tbody", "tr", "td", "th",
		"div", "span", "img", "hr",
	)

	p.AllowAttrs("href", "title", "target", "rel").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	p.AllowAttrs("class", "id").Globally()

	p.AllowStyles(
		"color", "background-color", "font-size", "text-align", "margin", "padding",
	).Globally()

	p.AllowURLSchemes("http", "https", "mailto")

	return p
}

var (
	anchorTagRe  = regexp.MustCompile(`<a(\s[^>]*)?>`)
	targetAttrRe = regexp.MustCompile(`\starget="[^"]*"`)
	relAttrRe    = regexp.MustCompile(`\srel="[^"]*"`)
)

// forceSafeAnchors rewrites every anchor, relative and mailto links included,
// to open in a new context without opener or referrer access. bluemonday only
// covers fully qualified links, so this runs on its normalized output.
func forceSafeAnchors(html string) string {
	return anchorTagRe.ReplaceAllStringFunc(html, func(tag string) string {
		attrs := strings.TrimSuffix(strings.TrimPrefix(tag, "<a"), ">")
		attrs = targetAttrRe.ReplaceAllString(attrs, "")
		attrs = relAttrRe.ReplaceAllString(attrs, "")
		return "<a" + attrs + ` target="_blank" rel="noopener noreferrer">`
	})
}

// SanitizeEmailHTML sanitizes an inbound HTML email body to prevent XSS.
// Disallowed tags and attributes are removed, not escaped. Malformed HTML
// is tolerated; the underlying parser recovers and never panics.
func SanitizeEmailHTML(dirty string) string {
	return forceSafeAnchors(emailPolicy.Sanitize(dirty))
}
