package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntor/forge/pkg/config"
	"github.com/syntor/forge/pkg/gateway"
	"github.com/syntor/forge/pkg/inference"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/pipeline"
	"github.com/syntor/forge/pkg/profile"
)

type stubGateway struct {
	mu        sync.Mutex
	readyErr  error
	questions []string
	answers   []gateway.QA
}

func (g *stubGateway) Ready() error { return g.readyErr }

func (g *stubGateway) GenerateQuestions(ctx context.Context, idea string, _ []models.Attachment) ([]string, error) {
	return g.questions, nil
}

func (g *stubGateway) ImprovePrompt(ctx context.Context, idea string, answers []gateway.QA) (string, error) {
	g.mu.Lock()
	g.answers = answers
	g.mu.Unlock()
	return idea + " (refined)", nil
}

func (g *stubGateway) RunStep(ctx context.Context, req gateway.StepRequest) (string, error) {
	return fmt.Sprintf("%s notes\n\n```html\n<h1>%s</h1>\n```", req.Role, req.Role), nil
}

type fakeClipboard struct {
	text string
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

func newTestModel(t *testing.T, gw gateway.Gateway, clarify bool) (Model, *fakeClipboard) {
	t.Helper()
	cfg := config.DefaultForgeConfig()
	sc := pipeline.DefaultConfig()
	sc.StepDelay = 0
	sc.Clarify = clarify
	clip := &fakeClipboard{}

	m := New(pipeline.NewSession(gw, sc), Options{
		Config:    &cfg,
		ModelID:   "test-model",
		Version:   "test",
		Clipboard: clip,
		Commands:  NewCommandRegistryFrom(),
	})
	return update(t, m, tea.WindowSizeMsg{Width: 140, Height: 45}), clip
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends a key and feeds the resulting command's message back in.
// Commands from typing are cursor blinks and are dropped.
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(Model)
	if cmd != nil && key.Type != tea.KeyRunes {
		if msg := cmd(); msg != nil {
			m = update(t, m, msg)
		}
	}
	return m
}

func command(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.focusCommand(line)
	return press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func lastNotice(m Model) string {
	if len(m.notices) == 0 {
		return ""
	}
	return m.notices[len(m.notices)-1]
}

func TestStartWithoutIdeaShowsNotice(t *testing.T) {
	m, _ := newTestModel(t, &stubGateway{}, false)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Contains(t, lastNotice(m), "Describe an idea")
	assert.Empty(t, m.session.Transcript())
}

func TestStartRunsWholePipeline(t *testing.T) {
	m, clip := newTestModel(t, &stubGateway{}, false)
	m.idea.SetValue("A bakery website")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	state := m.session.State()
	assert.True(t, state.Finished)
	assert.Empty(t, state.Err)
	assert.Len(t, m.session.Transcript(), len(profile.Sequence()))
	assert.Len(t, m.codeBlocks, len(profile.Sequence()))
	assert.Contains(t, m.View(), "Transcript")

	m = command(t, m, "/copy 1")
	assert.Contains(t, lastNotice(m), "Copied code block 1")
	assert.Contains(t, clip.text, "<h1>")
}

func TestMissingCredentialShowsHint(t *testing.T) {
	gw := &stubGateway{readyErr: fmt.Errorf("gemini: %w", inference.ErrMissingCredential)}
	m, _ := newTestModel(t, gw, false)
	m.idea.SetValue("A todo app")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Contains(t, lastNotice(m), "No API key configured")
	assert.False(t, m.session.State().Finished)
}

func TestClarificationQuiz(t *testing.T) {
	gw := &stubGateway{questions: []string{"Who is it for?", "Any colors?"}}
	m, _ := newTestModel(t, gw, true)
	m.idea.SetValue("A portfolio")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Len(t, m.questions, gateway.QuestionCount)
	assert.Equal(t, "Who is it for?", m.questions[0])
	assert.Equal(t, focusCommand, m.focus)
	assert.Contains(t, m.View(), fmt.Sprintf("Question 1/%d", gateway.QuestionCount))

	for i := 0; i < gateway.QuestionCount; i++ {
		assert.Equal(t, i, m.quizIndex)
		m.input.SetValue(fmt.Sprintf("answer %d", i+1))
		m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	}

	assert.Empty(t, m.questions)
	assert.Equal(t, focusIdea, m.focus)
	assert.True(t, m.session.State().Finished)
	assert.Equal(t, "A portfolio (refined)", m.session.EffectiveIdea())
	require.Len(t, gw.answers, gateway.QuestionCount)
	assert.Equal(t, "Any colors?", gw.answers[1].Question)
	assert.Equal(t, "answer 2", gw.answers[1].Answer)
}

func TestSkipClarification(t *testing.T) {
	gw := &stubGateway{questions: []string{"Who is it for?"}}
	m, _ := newTestModel(t, gw, true)
	m.idea.SetValue("A portfolio")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Len(t, m.questions, gateway.QuestionCount)

	m = command(t, m, "/skip")

	assert.Empty(t, m.questions)
	assert.True(t, m.session.State().Finished)
	assert.Empty(t, gw.answers)
}

func TestModeAndLanguageKeys(t *testing.T) {
	m, _ := newTestModel(t, &stubGateway{}, false)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, models.ModeWebsite.Next(), m.session.Mode())

	m = command(t, m, "/mode chatbot")
	assert.Equal(t, models.ModeChatbot, m.session.Mode())

	before := m.session.BotLanguage()
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, before.Toggle(), m.session.BotLanguage())

	m = command(t, m, "/mode nonsense")
	assert.Equal(t, models.ModeChatbot, m.session.Mode())
	assert.NotEmpty(t, lastNotice(m))
}

func TestSlashOpensCommandLineWithSuggestions(t *testing.T) {
	m, _ := newTestModel(t, &stubGateway{}, false)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	assert.Equal(t, focusCommand, m.focus)
	assert.True(t, m.showSuggestions)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("exp")})
	require.NotEmpty(t, m.suggestions)
	assert.Equal(t, "export", m.suggestions[0].Name)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "/export ", m.input.Value())
	assert.False(t, m.showSuggestions)
}

func TestEditActiveFile(t *testing.T) {
	m, _ := newTestModel(t, &stubGateway{}, false)
	m.idea.SetValue("A bakery website")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	m = command(t, m, "/edit")
	require.Equal(t, focusEditor, m.focus)
	active, ok := m.session.ActiveFile()
	require.True(t, ok)

	m.editor.SetValue("<p>edited</p>")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Equal(t, focusIdea, m.focus)
	file, _ := m.session.ActiveFile()
	assert.Equal(t, active.Name, file.Name)
	assert.Equal(t, "<p>edited</p>", file.Content)
}

func TestEditEntry(t *testing.T) {
	m, _ := newTestModel(t, &stubGateway{}, false)
	m.idea.SetValue("A bakery website")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	m = command(t, m, "/entry 2")
	require.Equal(t, focusEditor, m.focus)
	m.editor.SetValue("rewritten")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Equal(t, "rewritten", m.session.Transcript()[1].Content)

	m = command(t, m, "/entry 99")
	assert.Contains(t, lastNotice(m), "Usage: /entry")
}

func TestResetClearsEverything(t *testing.T) {
	m, _ := newTestModel(t, &stubGateway{}, false)
	m.idea.SetValue("A bakery website")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotEmpty(t, m.session.Transcript())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})

	assert.Empty(t, m.session.Transcript())
	assert.Empty(t, m.idea.Value())
	assert.Empty(t, m.notices)
	assert.Equal(t, models.PhaseIdle, m.session.State().Phase)
}

func TestConfigReloadSwapsGateway(t *testing.T) {
	missing := &stubGateway{readyErr: inference.ErrMissingCredential}
	m, _ := newTestModel(t, missing, false)
	m.rebuild = func(cfg *config.ForgeConfig) (gateway.Gateway, string, error) {
		return &stubGateway{}, "reloaded-model", nil
	}

	cfg := config.DefaultForgeConfig()
	m = update(t, m, ConfigReloadedMsg{Config: &cfg})
	assert.True(t, m.providerReady)
	assert.Equal(t, "reloaded-model", m.modelID)
	assert.Contains(t, lastNotice(m), "provider ready")

	m.idea.SetValue("A bakery website")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.True(t, m.session.State().Finished)
}

func TestHelpListsCommands(t *testing.T) {
	m, _ := newTestModel(t, &stubGateway{}, false)
	m = command(t, m, "/help")
	help := lastNotice(m)
	assert.True(t, strings.HasPrefix(help, "Commands:"))
	assert.Contains(t, help, "/export")

	m = command(t, m, "/bogus")
	assert.Contains(t, lastNotice(m), "Unknown command: /bogus")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "one two\nthree", wrapText("one two three", 8))
	assert.Equal(t, "a\n\nb", wrapText("a\n\nb", 10))
	assert.Equal(t, "unchanged", wrapText("unchanged", 0))
}
