package content

import (
	"regexp"
	"strings"
)

const excerptWords = 55
const excerptMore = " [&hellip;]"

var (
	blankLines   = regexp.MustCompile(`\n\s*\n`)
	blockStart   = regexp.MustCompile(`(?i)^<(p|div|h[1-6]|ul|ol|li|dl|blockquote|pre|table|figure|hr|section|article|aside|header|footer|nav|form|!--)[\s>/]`)
	scriptsStyle = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tags         = regexp.MustCompile(`<[^>]*>`)
)

// RenderContent turns stored post content into display HTML. Blocks separated
// by blank lines become paragraphs and single newlines inside a paragraph
// become line breaks; blocks that already start with block-level markup are
// kept as written.
func RenderContent(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	var out []string
	for _, block := range blankLines.Split(raw, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if blockStart.MatchString(block + " ") {
			out = append(out, block)
			continue
		}
		out = append(out, "<p>"+strings.ReplaceAll(block, "\n", "<br />\n")+"</p>")
	}
	return strings.Join(out, "\n") + "\n"
}

// Excerpt returns the manual excerpt when set, otherwise the first 55 words
// of the rendered content with markup removed.
func Excerpt(p *Post) string {
	if strings.TrimSpace(p.Excerpt) != "" {
		return p.Excerpt
	}
	return TrimWords(StripTags(RenderContent(p.Content)), excerptWords, excerptMore)
}

// StripTags removes markup, including script and style bodies. Entities are left encoded.
func StripTags(s string) string {
	s = scriptsStyle.ReplaceAllString(s, "")
	return tags.ReplaceAllString(s, "")
}

// TrimWords keeps the first n whitespace-separated words, appending more when
// anything was cut.
func TrimWords(s string, n int, more string) string {
	words := strings.Fields(s)
	if len(words) > n {
		return strings.Join(words[:n], " ") + more
	}
	return strings.Join(words, " ")
}
