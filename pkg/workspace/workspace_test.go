package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntor/forge/pkg/models"
)

func TestDefaultFileTable(t *testing.T) {
	tests := []struct {
		mode     models.Mode
		lang     models.BotLanguage
		name     string
		language string
	}{
		{models.ModeWebsite, models.BotJavaScript, "index.html", "html"},
		{models.ModeWebsite, models.BotPython, "index.html", "html"},
		{models.ModeChatbot, models.BotJavaScript, "bot.js", "javascript"},
		{models.ModeChatbot, models.BotPython, "bot.py", "python"},
		{models.ModePromptRefiner, models.BotJavaScript, "prompt.md", "markdown"},
		{models.ModePromptRefiner, models.BotPython, "prompt.md", "markdown"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+string(tt.lang), func(t *testing.T) {
			name, language := DefaultFile(tt.mode, tt.lang)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.language, language)
		})
	}
}

func TestLanguageFor(t *testing.T) {
	tests := map[string]string{
		"app.js":         "javascript",
		"main.py":        "python",
		"page.html":      "html",
		"site.css":       "css",
		"data.json":      "json",
		"README.md":      "plaintext",
		"Makefile":       "plaintext",
		"STYLE.CSS":      "css",
		"archive.js.bak": "plaintext",
	}
	for name, want := range tests {
		assert.Equal(t, want, LanguageFor(name), name)
	}
}

func TestReseed(t *testing.T) {
	t.Run("mode switch discards prior files", func(t *testing.T) {
		w := New(models.ModeWebsite, models.BotJavaScript)
		require.True(t, w.Write("index.html", "<h1>hi</h1>"))
		require.NoError(t, w.Create("extra.css"))

		w.Reseed(models.ModeChatbot, models.BotPython, false)

		files := w.Files()
		require.Len(t, files, 1)
		assert.Equal(t, "bot.py", files[0].Name)
		assert.Equal(t, "python", files[0].Language)
		assert.Equal(t, "# Python Bot Code...", files[0].Content)
		assert.Equal(t, "bot.py", w.ActiveName())
		_, ok := w.File("index.html")
		assert.False(t, ok)
	})

	t.Run("blank reseed empties content", func(t *testing.T) {
		w := New(models.ModeWebsite, models.BotJavaScript)
		w.Reseed(models.ModeWebsite, models.BotJavaScript, true)
		f, ok := w.Active()
		require.True(t, ok)
		assert.Equal(t, "index.html", f.Name)
		assert.Empty(t, f.Content)
	})
}

func TestCreate(t *testing.T) {
	w := New(models.ModeWebsite, models.BotJavaScript)

	require.NoError(t, w.Create("styles.css"))
	f, ok := w.Active()
	require.True(t, ok)
	assert.Equal(t, "styles.css", f.Name)
	assert.Equal(t, "css", f.Language)
	assert.Empty(t, f.Content)

	err := w.Create("styles.css")
	assert.ErrorIs(t, err, ErrFileExists)
	assert.Len(t, w.Files(), 2)

	assert.ErrorIs(t, w.Create(""), ErrInvalidName)
	assert.ErrorIs(t, w.Create("   "), ErrInvalidName)
	assert.ErrorIs(t, w.Create("../escape.js"), ErrInvalidName)
	assert.Len(t, w.Files(), 2)
}

func TestLookupMissesAreNoOps(t *testing.T) {
	w := New(models.ModeChatbot, models.BotJavaScript)

	w.SetActive("missing.js")
	assert.Equal(t, "bot.js", w.ActiveName())

	assert.False(t, w.Write("missing.js", "x"))
	f, _ := w.File("bot.js")
	assert.Equal(t, "// Node.js Bot Code...", f.Content)

	_, ok := w.File("missing.js")
	assert.False(t, ok)
}

func TestFilesReturnsCopy(t *testing.T) {
	w := New(models.ModeWebsite, models.BotJavaScript)
	files := w.Files()
	files[0].Content = "mutated"

	f, _ := w.File("index.html")
	assert.Equal(t, "<!-- Your HTML will appear here -->", f.Content)
}

func TestExport(t *testing.T) {
	w := New(models.ModeWebsite, models.BotJavaScript)
	w.Write("index.html", "<!DOCTYPE html>")
	require.NoError(t, w.Create("app.js"))
	w.Write("app.js", "console.log(1)")

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := w.Export(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html>", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "app.js"))
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(data))
}
