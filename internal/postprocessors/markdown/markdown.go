// Package markdown strips formatting syntax from markdown content so the
// embedding model sees prose rather than markup.
package markdown

import (
	"regexp"
	"strings"
)

var (
	codeBlockRe  = regexp.MustCompile("(?s)```[^`]*```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	imageRe      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquoteRe = regexp.MustCompile(`(?m)^>\s*`)
	listRe       = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	hrRe         = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	blankRe      = regexp.MustCompile(`\n{3,}`)
)

// Strip converts markdown content to plain text. Code blocks are dropped
// entirely, links keep their label, and emphasis markers are removed.
func Strip(content string) string {
	content = codeBlockRe.ReplaceAllString(content, "")
	content = inlineCodeRe.ReplaceAllString(content, "$1")
	content = imageRe.ReplaceAllString(content, "")
	content = linkRe.ReplaceAllString(content, "$1")
	content = headingRe.ReplaceAllString(content, "")
	content = blockquoteRe.ReplaceAllString(content, "")
	content = listRe.ReplaceAllString(content, "")
	content = hrRe.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	content = blankRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
