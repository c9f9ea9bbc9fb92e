package workspace

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/syntor/forge/pkg/models"
)

const minTestIterations = 100

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "no fence",
			raw:  "<!DOCTYPE html>\n<html></html>",
			want: "<!DOCTYPE html>\n<html></html>",
		},
		{
			name: "fenced with language",
			raw:  "```html\n<!DOCTYPE html>\n<p>x</p>\n```",
			want: "<!DOCTYPE html>\n<p>x</p>",
		},
		{
			name: "prose around fence",
			raw:  "Here you go:\n```js\nconst a = 1\n```\nEnjoy!",
			want: "const a = 1",
		},
		{
			name: "unclosed fence runs to end",
			raw:  "intro\n```python\nprint(1)\nprint(2)",
			want: "print(1)\nprint(2)",
		},
		{
			name: "last closing fence wins",
			raw:  "```\na\n```\nmiddle\n```\nb\n```",
			want: "a\n```\nmiddle\n```\nb",
		},
		{
			name: "inline fence marker only",
			raw:  "use ```code``` inline",
			want: "use ```code``` inline",
		},
		{
			name: "crlf closing fence",
			raw:  "```\r\nbody\r\n```\r\n",
			want: "body\r",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.raw))
		})
	}
}

// fenceFreeLine generates lines that never start with a fence marker
func fenceFreeLine() gopter.Gen {
	return gen.AlphaString().Map(func(s string) string {
		return strings.ReplaceAll(s, "`", "")
	})
}

func fenceFreeBody() gopter.Gen {
	return gen.SliceOf(fenceFreeLine()).Map(func(lines []string) string {
		return strings.Join(lines, "\n")
	})
}

func TestExtractProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = minTestIterations
	properties := gopter.NewProperties(parameters)

	properties.Property("extract is idempotent with at most one fenced block", prop.ForAll(
		func(before, body, after, lang string, closed bool) bool {
			raw := before + "\n" + Fence + lang + "\n" + body
			if closed {
				raw += "\n" + Fence + "\n" + after
			}
			once := Extract(raw)
			return Extract(once) == once
		},
		fenceFreeBody(),
		fenceFreeBody(),
		fenceFreeBody(),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.Property("extract leaves fence-free text unchanged", prop.ForAll(
		func(body string) bool {
			return Extract(body) == body
		},
		fenceFreeBody(),
	))

	properties.Property("unclosed fence yields everything after the opening line", prop.ForAll(
		func(before, body, lang string) bool {
			raw := before + "\n" + Fence + lang + "\n" + body
			return Extract(raw) == body
		},
		fenceFreeBody(),
		fenceFreeBody(),
		gen.AlphaString(),
	))

	properties.Property("closed fence yields exactly the enclosed body", prop.ForAll(
		func(body, lang string) bool {
			raw := Fence + lang + "\n" + body + "\n" + Fence
			return Extract(raw) == body
		},
		fenceFreeBody(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestReseedAndSyncTargetAgree(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = minTestIterations
	properties := gopter.NewProperties(parameters)

	modeGen := gen.OneConstOf(models.ModeWebsite, models.ModeChatbot, models.ModePromptRefiner)
	langGen := gen.OneConstOf(models.BotJavaScript, models.BotPython)

	properties.Property("reseeded default file is the sync target", prop.ForAll(
		func(mode models.Mode, lang models.BotLanguage) bool {
			w := New(models.ModeWebsite, models.BotJavaScript)
			w.Reseed(mode, lang, false)

			name, language := DefaultFile(mode, lang)
			active, ok := w.Active()
			if !ok || active.Name != name || active.Language != language {
				return false
			}
			return w.Write(name, "synced")
		},
		modeGen,
		langGen,
	))

	properties.TestingRun(t)

	// exhaustive pass over the full cross product
	for _, mode := range models.Modes {
		for _, lang := range models.BotLanguages {
			w := New(mode, lang)
			name, language := DefaultFile(mode, lang)
			f, ok := w.Active()
			assert.True(t, ok)
			assert.Equal(t, name, f.Name)
			assert.Equal(t, language, f.Language)
		}
	}
}
