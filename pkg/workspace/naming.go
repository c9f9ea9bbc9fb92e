package workspace

import (
	"path/filepath"
	"strings"

	"github.com/syntor/forge/pkg/models"
)

// Language tags
const (
	LangHTML       = "html"
	LangJavaScript = "javascript"
	LangPython     = "python"
	LangMarkdown   = "markdown"
	LangCSS        = "css"
	LangJSON       = "json"
	LangPlaintext  = "plaintext"
)

// DefaultFile returns the filename and language tag a mode writes its output to.
// Reseeding and code-extraction sync both go through this function.
func DefaultFile(mode models.Mode, lang models.BotLanguage) (name, language string) {
	switch mode {
	case models.ModeChatbot:
		if lang == models.BotPython {
			return "bot.py", LangPython
		}
		return "bot.js", LangJavaScript
	case models.ModePromptRefiner:
		return "prompt.md", LangMarkdown
	default:
		return "index.html", LangHTML
	}
}

// Placeholder returns the content a reseeded default file starts with
func Placeholder(mode models.Mode, lang models.BotLanguage) string {
	switch mode {
	case models.ModeChatbot:
		if lang == models.BotPython {
			return "# Python Bot Code..."
		}
		return "// Node.js Bot Code..."
	case models.ModePromptRefiner:
		return "<!-- Your refined prompt will appear here -->"
	default:
		return "<!-- Your HTML will appear here -->"
	}
}

var extLanguages = map[string]string{
	".js":   LangJavaScript,
	".py":   LangPython,
	".html": LangHTML,
	".css":  LangCSS,
	".json": LangJSON,
}

// LanguageFor infers a language tag from a filename's extension
func LanguageFor(name string) string {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(name))]; ok {
		return lang
	}
	return LangPlaintext
}
