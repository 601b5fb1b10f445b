package ui

import (
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"agentdesk/config"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
)

const codeBar = "┃"

// MarkdownRenderer formats agent replies for the terminal. Render is safe to
// call from command goroutines while the UI resizes.
type MarkdownRenderer struct {
	width atomic.Int64
}

func NewMarkdownRenderer(width int) *MarkdownRenderer {
	r := &MarkdownRenderer{}
	r.SetWidth(width)
	return r
}

func (r *MarkdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	r.width.Store(int64(width))
}

func (r *MarkdownRenderer) Width() int {
	return int(r.width.Load())
}

func (r *MarkdownRenderer) Render(content string) string {
	width := r.Width()
	start := time.Now()

	// Markdown links become bare URLs so every link is colored the same way
	content = preprocessLinks(content)

	// Autolink off: terminals handle URL detection themselves
	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	doc := p.Parse([]byte(content))
	rendered := gomarkdown.Render(doc, markdown.NewRenderer(width-4, 0))

	processed := postProcessMarkdown(string(rendered), width)
	if config.DebugLog != nil {
		config.DebugLog.Printf("Markdown rendered in %v (%d chars)", time.Since(start), len(content))
	}
	return strings.TrimRight(processed, "\n")
}

func postProcessMarkdown(rendered string, width int) string {
	rendered = fixInlineCode(rendered)
	rendered = fixMarkdownLinks(rendered)
	return frameCodeBlocks(rendered, width)
}

func preprocessLinks(content string) string {
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

// fixInlineCode swaps the renderer's blue-background inline code for red text.
func fixInlineCode(s string) string {
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func fixMarkdownLinks(s string) string {
	redColor := "\x1b[31m"
	reset := "\x1b[0m"

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		// code block lines carry the bar prefix
		if !strings.Contains(line, codeBar) {
			lines[i] = urlRegex.ReplaceAllString(line, redColor+"$1"+reset)
		}
	}
	return strings.Join(lines, "\n")
}

func frameCodeBlocks(s string, width int) string {
	lines := strings.Split(s, "\n")
	var result []string
	var codeBlockLines []string
	inCodeBlock := false

	darkGray := "\x1b[90m"
	reset := "\x1b[0m"
	lineLen := width - 4
	if lineLen < 8 {
		lineLen = 8
	}

	closeBlock := func() {
		result = append(result, codeBlockLines...)
		result = append(result, "", darkGray+strings.Repeat("━", lineLen)+reset, "")
		codeBlockLines = nil
		inCodeBlock = false
	}

	for _, line := range lines {
		if strings.Contains(line, codeBar) {
			if !inCodeBlock {
				inCodeBlock = true
				label := "[code]"
				leftLen := (lineLen - len(label)) / 2
				rightLen := lineLen - len(label) - leftLen
				border := darkGray + strings.Repeat("━", leftLen) + reset + label + darkGray + strings.Repeat("━", rightLen) + reset
				result = append(result, "", border, "")
			}
			codeBlockLines = append(codeBlockLines, stripCodeBlockPrefix(line))
			continue
		}

		if inCodeBlock {
			closeBlock()
		}
		result = append(result, line)
	}

	if inCodeBlock && len(codeBlockLines) > 0 {
		closeBlock()
	}

	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, codeBar)
	if idx < 0 {
		return line
	}
	after := idx + len(codeBar)
	if after < len(line) && line[after] == ' ' {
		after++
	}
	if after < len(line) {
		return line[after:]
	}
	return ""
}

func formatUserMessage(timestamp, role, content string) string {
	greenBold := "\x1b[32;1m"
	reset := "\x1b[0m"
	bar := greenBold + codeBar + reset

	var result strings.Builder
	result.WriteString(bar + " " + timestamp + " " + role + "\n")
	for _, line := range strings.Split(content, "\n") {
		result.WriteString(bar + " " + line + "\n")
	}
	result.WriteString("\n")
	return result.String()
}
