// Package normalize prepares raw file content for the deduplication
// engine. The engine fingerprints normalized text verbatim, so ingestion
// must canonicalise formatting noise (markdown markup, whitespace runs)
// before handing documents over; otherwise trivially reformatted copies
// would miss the exact tier.
package normalize

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"
)

var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdown":    true,
}

var htmlExtensions = map[string]bool{
	".html":  true,
	".htm":   true,
	".xhtml": true,
}

// Text converts raw file bytes into the canonical text form used for
// fingerprinting. Markdown and HTML files have their markup stripped
// first; all files get whitespace runs collapsed to single spaces.
func Text(raw []byte, path string) string {
	content := string(raw)
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case markdownExtensions[ext]:
		content = stripMarkdown(content)
	case htmlExtensions[ext]:
		content = stripHTML(content)
	}
	return CollapseWhitespace(content)
}

// CollapseWhitespace reduces every run of whitespace to a single space
// and trims the ends. Reformatting (re-wrapping, indentation changes)
// then cannot defeat exact-hash matching.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripMarkdown removes common markdown formatting for plain text content.
// This is a simplified implementation that handles common cases.
func stripMarkdown(content string) string {
	// Remove code blocks (```...```)
	codeBlock := regexp.MustCompile("(?s)```[^`]*```")
	content = codeBlock.ReplaceAllString(content, "")

	// Remove inline code (`code`)
	inlineCode := regexp.MustCompile("`[^`]+`")
	content = inlineCode.ReplaceAllString(content, "")

	// Remove images ![alt](url)
	images := regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	content = images.ReplaceAllString(content, "")

	// Convert links [text](url) to just text
	links := regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	content = links.ReplaceAllString(content, "$1")

	// Remove heading markers (# ## ### etc)
	headings := regexp.MustCompile(`(?m)^#{1,6}\s+`)
	content = headings.ReplaceAllString(content, "")

	// Remove bold/italic markers
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")

	// Remove blockquote markers
	blockquote := regexp.MustCompile(`(?m)^>\s*`)
	content = blockquote.ReplaceAllString(content, "")

	// Remove horizontal rules
	hr := regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	content = hr.ReplaceAllString(content, "")

	// Remove list markers (- * + and numbered)
	listMarkers := regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	content = listMarkers.ReplaceAllString(content, "")
	numberedList := regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	content = numberedList.ReplaceAllString(content, "")

	return strings.TrimSpace(content)
}

// Pre-compiled regular expressions for HTML stripping performance.
var (
	scriptTag    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag  = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag      = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag       = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	allTags      = regexp.MustCompile(`<[^>]+>`)
)

// stripHTML converts HTML content to plain text. Non-content regions
// (scripts, styles, head, comments) are dropped wholesale; remaining
// tags are replaced with spaces so adjacent text does not fuse.
func stripHTML(content string) string {
	content = htmlComments.ReplaceAllString(content, "")
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = allTags.ReplaceAllString(content, " ")
	return html.UnescapeString(content)
}
