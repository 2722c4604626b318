package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\n\tb   c\n"))
	assert.Equal(t, "", CollapseWhitespace(" \n\t "))
}

func TestText_PlainFile(t *testing.T) {
	got := Text([]byte("hello   world\n"), "notes.txt")
	assert.Equal(t, "hello world", got)
}

func TestText_MarkdownStripped(t *testing.T) {
	md := "# Title\n\nSome **bold** text with a [link](https://example.com).\n\n- item one\n- item two\n"
	got := Text([]byte(md), "README.md")
	assert.Equal(t, "Title Some bold text with a link. item one item two", got)
}

func TestText_MarkdownCodeBlocksRemoved(t *testing.T) {
	md := "intro\n\n```\ncode here\n```\n\noutro\n"
	got := Text([]byte(md), "doc.markdown")
	assert.Equal(t, "intro outro", got)
}

func TestText_HTMLStripped(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Ignored</title><style>body { color: red; }</style></head>
<body>
<!-- comment -->
<script>console.log("noise");</script>
<h1>Heading</h1>
<p>Some &amp; escaped <b>bold</b> text.</p>
</body>
</html>`
	got := Text([]byte(page), "page.html")
	assert.Equal(t, "Heading Some & escaped bold text.", got)
}

func TestText_HTMLTagsDoNotFuseWords(t *testing.T) {
	got := Text([]byte("<p>first</p><p>second</p>"), "doc.htm")
	assert.Equal(t, "first second", got)
}

// Reformatting must not change the canonical text, or trivially
// re-wrapped copies would dodge the exact tier.
func TestText_ReformattingStable(t *testing.T) {
	a := Text([]byte("the quick brown fox\njumps over the lazy dog"), "a.txt")
	b := Text([]byte("the quick   brown fox jumps\n\tover the lazy dog\n"), "b.txt")
	assert.Equal(t, a, b)
}
