package textutil

import (
	"regexp"
	"strings"
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<(script|style|noscript)\b[^>]*>.*?</\s*(script|style|noscript)\s*>`)
	commentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockBreakRe  = regexp.MustCompile(`(?i)</?(p|div|br|li|tr|h[1-6]|blockquote|section|article|table)\b[^>]*>`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]+>`)
	multiBlankRe  = regexp.MustCompile(`\n{3,}`)
	spaceRunRe    = regexp.MustCompile(`[ \t\r\f\v]+`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&#39;", "'",
	"&ordf;", "ª",
	"&ordm;", "º",
	"&sect;", "§",
)

// StripMarkup reduces an HTML payload to plain text. Script, style, and
// comment blocks are dropped entirely; block-level tags become line breaks
// so section headings stay separable downstream.
func StripMarkup(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	text := scriptBlockRe.ReplaceAllString(html, " ")
	text = commentRe.ReplaceAllString(text, " ")
	text = blockBreakRe.ReplaceAllString(text, "\n")
	text = tagRe.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	return CollapseWhitespace(text)
}

// CollapseWhitespace trims each line, squeezes space runs, and limits
// consecutive blank lines to one.
func CollapseWhitespace(text string) string {
	text = spaceRunRe.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = multiBlankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
