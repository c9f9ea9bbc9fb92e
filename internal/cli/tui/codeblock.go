package tui

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/syntor/forge/pkg/models"
)

// CodeBlock represents a parsed code block
type CodeBlock struct {
	Language string
	Content  string
	Index    int // Index for /copy
}

// ParsedContent contains text segments and code blocks
type ParsedContent struct {
	Segments []ContentSegment
}

// ContentSegment represents either text or a code block
type ContentSegment struct {
	IsCode    bool
	Text      string
	CodeBlock *CodeBlock
}

// Match fenced code blocks: ```lang\ncode\n``` or ```\ncode\n```
var codeBlockRegex = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\s*\\n?(.*?)\\n?```")

// ParseContent extracts code blocks and text from content
func ParseContent(content string) *ParsedContent {
	result := &ParsedContent{
		Segments: make([]ContentSegment, 0),
	}

	codeIndex := 0
	lastEnd := 0
	matches := codeBlockRegex.FindAllStringSubmatchIndex(content, -1)

	for _, match := range matches {
		// match[0:2] is full match, match[2:4] is language, match[4:6] is code content
		if match[0] > lastEnd {
			textSegment := content[lastEnd:match[0]]
			if strings.TrimSpace(textSegment) != "" {
				result.Segments = append(result.Segments, ContentSegment{Text: textSegment})
			}
		}

		lang := ""
		if match[2] >= 0 && match[3] > match[2] {
			lang = content[match[2]:match[3]]
		}
		code := ""
		if match[4] >= 0 && match[5] > match[4] {
			code = content[match[4]:match[5]]
		}

		codeIndex++
		result.Segments = append(result.Segments, ContentSegment{
			IsCode: true,
			CodeBlock: &CodeBlock{
				Language: lang,
				Content:  strings.TrimSpace(code),
				Index:    codeIndex,
			},
		})

		lastEnd = match[1]
	}

	if lastEnd < len(content) {
		textSegment := content[lastEnd:]
		if strings.TrimSpace(textSegment) != "" {
			result.Segments = append(result.Segments, ContentSegment{Text: textSegment})
		}
	}

	if len(result.Segments) == 0 {
		result.Segments = append(result.Segments, ContentSegment{Text: content})
	}

	return result
}

// GetCodeBlocks returns all code blocks from parsed content
func (p *ParsedContent) GetCodeBlocks() []*CodeBlock {
	blocks := make([]*CodeBlock, 0)
	for _, seg := range p.Segments {
		if seg.IsCode && seg.CodeBlock != nil {
			blocks = append(blocks, seg.CodeBlock)
		}
	}
	return blocks
}

// RenderCodeBlock renders a code block with styling and syntax highlighting
func RenderCodeBlock(st Styles, block *CodeBlock, width int) string {
	if width < 20 {
		width = 20
	}
	innerWidth := width - 4
	if innerWidth < 10 {
		innerWidth = 10
	}

	langDisplay := block.Language
	if langDisplay == "" {
		langDisplay = "code"
	}
	header := st.CodeBlockLang.Render(langDisplay) + " " + st.CodeBlockCopy.Render(fmt.Sprintf("/copy %d", block.Index))

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(highlightCode(block.Content, block.Language, innerWidth))

	return st.CodeBlock.Width(width).Render(sb.String())
}

// RenderFile renders a workspace file with line numbers and highlighting
func RenderFile(file models.VirtualFile, width int) string {
	if width < 20 {
		width = 20
	}
	highlighted := highlightCode(file.Content, file.Language, width-6)
	lines := strings.Split(highlighted, "\n")

	var sb strings.Builder
	for i, line := range lines {
		sb.WriteString(lineNumbers.Render(fmt.Sprintf("%4d ", i+1)))
		sb.WriteString(line)
		if i < len(lines)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// highlightCode applies syntax highlighting to code
func highlightCode(code, language string, maxWidth int) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Get("terminal256")
	}
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return renderPlainCode(code, maxWidth)
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return renderPlainCode(code, maxWidth)
	}

	return strings.TrimSuffix(buf.String(), "\n")
}

// renderPlainCode renders code without syntax highlighting (fallback)
func renderPlainCode(code string, maxWidth int) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if maxWidth > 3 && len(line) > maxWidth {
			lines[i] = line[:maxWidth-3] + "..."
		}
	}
	return strings.Join(lines, "\n")
}
