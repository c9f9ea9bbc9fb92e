package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/syntor/forge/pkg/config"
	"github.com/syntor/forge/pkg/console"
	"github.com/syntor/forge/pkg/gateway"
	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/pipeline"
	"github.com/syntor/forge/pkg/profile"
)

// focus selects which input receives keys
type focus int

const (
	focusIdea focus = iota
	focusCommand
	focusEditor
)

// editTarget is what the editor writes back to
type editTarget struct {
	entryID string // empty when editing a file
	file    string
	label   string
}

const (
	inputHeight = 4 // separator + three lines of input
	ideaLines   = 3
)

// Options configure the TUI model
type Options struct {
	Config  *config.ForgeConfig
	Logger  logging.Logger
	ModelID string
	Version string

	// Check probes the provider once at startup
	Check func(ctx context.Context) error
	// Rebuild creates a gateway for a reloaded configuration
	Rebuild func(cfg *config.ForgeConfig) (gw gateway.Gateway, modelID string, err error)

	Clipboard console.Clipboard
	Commands  *CommandRegistry
}

// Model is the main Bubbletea model for the TUI
type Model struct {
	// UI components
	idea       textarea.Model
	input      textinput.Model
	editor     textarea.Model
	transcript viewport.Model
	files      viewport.Model
	console    viewport.Model
	spinner    spinner.Model
	styles     Styles

	// Infrastructure
	session     *pipeline.Session
	config      *config.ForgeConfig
	logger      logging.Logger
	modelID     string
	version     string
	check       func(ctx context.Context) error
	rebuild     func(cfg *config.ForgeConfig) (gateway.Gateway, string, error)
	clipboard   console.Clipboard
	cmdRegistry *CommandRegistry
	mdRenderer  *MarkdownRenderer
	cache       *renderCache

	// State
	focus         focus
	editing       *editTarget
	questions     []string
	answers       []string
	quizIndex     int
	notices       []string
	codeBlocks    []*CodeBlock
	spinning      bool
	stepStarted   time.Time
	consoleCancel context.CancelFunc
	providerReady bool

	// Autocomplete
	showSuggestions    bool
	suggestions        []Command
	selectedSuggestion int

	// Terminal
	width  int
	height int
	ready  bool

	quitting bool
}

// renderCache keeps rendered transcript entries; glamour is too slow to run
// on every frame
type renderCache struct {
	entries map[string]string
}

// New creates the TUI model around a session
func New(session *pipeline.Session, opts Options) Model {
	if opts.Config == nil {
		cfg := config.DefaultForgeConfig()
		opts.Config = &cfg
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = console.SystemClipboard{}
	}
	if opts.Commands == nil {
		opts.Commands = NewCommandRegistry()
	}

	idea := textarea.New()
	idea.Placeholder = "Describe what to build, then press Ctrl+S..."
	idea.ShowLineNumbers = false
	idea.Prompt = "┃ "
	idea.CharLimit = 0
	idea.SetHeight(ideaLines)
	idea.FocusedStyle.CursorLine = lipgloss.NewStyle()
	idea.Focus()

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 4096
	ti.Width = 80

	editor := textarea.New()
	editor.ShowLineNumbers = true
	editor.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	mdRenderer, _ := NewMarkdownRenderer(80)

	return Model{
		idea:        idea,
		input:       ti,
		editor:      editor,
		transcript:  viewport.New(80, 20),
		files:       viewport.New(40, 10),
		console:     viewport.New(40, 5),
		spinner:     sp,
		styles:      DefaultStyles(),
		session:     session,
		config:      opts.Config,
		logger:      opts.Logger.With(logging.String("component", "tui")),
		modelID:     opts.ModelID,
		version:     opts.Version,
		check:       opts.Check,
		rebuild:     opts.Rebuild,
		clipboard:   opts.Clipboard,
		cmdRegistry: opts.Commands,
		mdRenderer:  mdRenderer,
		cache:       &renderCache{entries: make(map[string]string)},
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.checkProvider())
}

// checkProvider probes the provider without blocking startup
func (m Model) checkProvider() tea.Cmd {
	if m.check == nil {
		return nil
	}
	check := m.check
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := check(ctx)
		return ProviderReadyMsg{Available: err == nil, Error: err}
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.refreshAll()

	case spinner.TickMsg:
		if m.spinning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.refreshTranscript()
			return m, cmd
		}
		return m, nil

	case ProviderReadyMsg:
		m.providerReady = msg.Available
		if msg.Error != nil {
			m.addNotice(providerHint(msg.Error, m.config))
		}

	case StateChangedMsg:
		if msg.State.Running {
			m.stepStarted = time.Now()
		}
		if msg.State.Busy() && !m.spinning {
			m.spinning = true
			cmds = append(cmds, m.spinner.Tick)
		}
		if !msg.State.Busy() {
			m.spinning = false
			if m.focus == focusCommand && len(m.questions) > 0 {
				m.endQuiz()
			}
		}
		m.refreshTranscript()

	case EntryAppendedMsg, EntryUpdatedMsg:
		m.refreshTranscript()

	case WorkspaceChangedMsg:
		m.refreshWorkspace()

	case ConsoleLineMsg, ConsoleClearedMsg:
		m.refreshConsole()

	case RunStartedMsg:
		if msg.Err != nil {
			m.handleRunError(msg.Err)
		} else if msg.Clarification != nil {
			m.beginQuiz(msg.Clarification.Questions)
		}
		m.refreshTranscript()

	case RunFinishedMsg:
		if msg.Err != nil {
			m.handleRunError(msg.Err)
		}
		m.refreshTranscript()

	case ConsoleFinishedMsg:
		m.consoleCancel = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.addNotice("Console: " + msg.Err.Error())
		}

	case ExportedMsg:
		if msg.Err != nil {
			m.addNotice("Export failed: " + msg.Err.Error())
		} else {
			m.addNotice(fmt.Sprintf("Exported %d file(s) to %s", len(msg.Paths), msg.Dir))
		}

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)

	case ClipboardCopyMsg:
		if msg.Success {
			m.addNotice(fmt.Sprintf("Copied code block %d to clipboard", msg.Index))
		} else {
			m.addNotice(fmt.Sprintf("Copy failed: %v", msg.Error))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	if m.focus == focusEditor {
		return m.handleEditorKey(msg)
	}

	if m.showSuggestions {
		switch msg.Type {
		case tea.KeyUp:
			if m.selectedSuggestion > 0 {
				m.selectedSuggestion--
			}
			return m, nil
		case tea.KeyDown:
			if m.selectedSuggestion < len(m.suggestions)-1 {
				m.selectedSuggestion++
			}
			return m, nil
		case tea.KeyTab:
			selected := m.suggestions[m.selectedSuggestion]
			m.input.SetValue("/" + selected.Name + " ")
			m.input.CursorEnd()
			m.hideSuggestions()
			return m, nil
		case tea.KeyEsc:
			m.hideSuggestions()
			return m, nil
		}
	}

	switch msg.Type {
	case tea.KeyEsc:
		if m.focus == focusCommand && len(m.questions) == 0 {
			m.focusIdea()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case tea.KeyCtrlS:
		return m.start("")

	case tea.KeyTab:
		m.changeMode(m.session.Mode().Next())
		return m, nil

	case tea.KeyCtrlL:
		m.changeLanguage(m.session.BotLanguage().Toggle())
		return m, nil

	case tea.KeyCtrlR:
		return m.toggleConsole()

	case tea.KeyCtrlE:
		return m, m.exportCmd(m.config.Pipeline.ExportDir)

	case tea.KeyCtrlX:
		m.reset()
		return m, nil

	case tea.KeyCtrlN, tea.KeyCtrlP:
		m.cycleFile(msg.Type == tea.KeyCtrlN)
		return m, nil

	case tea.KeyCtrlO:
		if m.focus == focusIdea {
			m.focusCommand("")
		} else if len(m.questions) == 0 {
			m.focusIdea()
		}
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	if m.focus == focusIdea {
		if msg.Type == tea.KeyRunes && string(msg.Runes) == "/" && strings.TrimSpace(m.idea.Value()) == "" {
			m.focusCommand("/")
			m.updateSuggestions()
			return m, nil
		}
		var cmd tea.Cmd
		m.idea, cmd = m.idea.Update(msg)
		return m, cmd
	}

	if msg.Type == tea.KeyEnter {
		return m.handleSubmit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.updateSuggestions()
	return m, cmd
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeEditor()
		m.addNotice("Edit discarded")
		return m, nil
	case tea.KeyCtrlS:
		m.saveEditor()
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	left, _ := m.paneWidths()
	switch {
	case msg.X < left:
		m.transcript, cmd = m.transcript.Update(msg)
	case msg.Y < 1+m.filesPaneHeight():
		m.files, cmd = m.files.Update(msg)
	default:
		m.console, cmd = m.console.Update(msg)
	}
	return m, cmd
}

// handleSubmit processes the command line: slash commands or quiz answers
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	m.hideSuggestions()

	if strings.HasPrefix(value, "/") {
		return m.handleSlashCommand(value)
	}
	if len(m.questions) > 0 {
		return m.answer(value)
	}
	if value != "" {
		m.idea.SetValue(value)
		m.focusIdea()
	}
	return m, nil
}

// handleSlashCommand processes slash commands
func (m Model) handleSlashCommand(input string) (tea.Model, tea.Cmd) {
	name, args, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	name = strings.ToLower(name)
	args = strings.TrimSpace(args)

	if len(m.questions) == 0 && m.focus == focusCommand {
		m.focusIdea()
	}

	switch name {
	case "quit", "exit":
		m.quitting = true
		return m, tea.Quit

	case "run":
		return m.start(args)

	case "idea":
		m.idea.SetValue(args)
		m.session.SetIdea(args)

	case "mode":
		mode, err := models.ParseMode(args)
		if err != nil {
			m.addNotice(err.Error())
			break
		}
		m.changeMode(mode)

	case "lang":
		lang := m.session.BotLanguage().Toggle()
		if args != "" {
			parsed, err := models.ParseBotLanguage(args)
			if err != nil {
				m.addNotice(err.Error())
				break
			}
			lang = parsed
		}
		m.changeLanguage(lang)

	case "attach":
		m.attach(args)

	case "detach":
		m.detach(args)

	case "skip":
		if len(m.questions) == 0 {
			m.addNotice("No questions are pending")
			break
		}
		m.endQuiz()
		return m, m.skipCmd()

	case "reset":
		m.reset()

	case "entry":
		m.editEntry(args)

	case "file":
		if _, ok := findFile(m.session.Files(), args); !ok {
			m.addNotice(fmt.Sprintf("No file named %q", args))
			break
		}
		m.session.SelectFile(args)

	case "new":
		if err := m.session.CreateFile(args); err != nil {
			m.addNotice(err.Error())
		}

	case "edit":
		m.editActiveFile()

	case "export":
		dir := args
		if dir == "" {
			dir = m.config.Pipeline.ExportDir
		}
		return m, m.exportCmd(dir)

	case "console":
		return m.toggleConsole()

	case "copy":
		return m, m.copyCodeBlock(args)

	case "profiles":
		m.addNotice(m.renderProfiles())

	case "status":
		m.addNotice(m.renderStatusReport())

	case "help":
		m.addNotice(m.renderHelp())

	case "clear":
		m.notices = nil
		m.refreshTranscript()

	default:
		if cmd, ok := m.cmdRegistry.GetCommand(name); ok && cmd.Category == "template" {
			return m.start(cmd.Expand(args))
		}
		m.addNotice(fmt.Sprintf("Unknown command: /%s. Type /help for available commands.", name))
	}
	return m, nil
}

// start hands the idea to the session and runs the pipeline
func (m Model) start(idea string) (tea.Model, tea.Cmd) {
	if idea != "" {
		m.idea.SetValue(idea)
	}
	m.session.SetIdea(m.idea.Value())
	m.stepStarted = time.Now()

	session := m.session
	return m, func() tea.Msg {
		clar, err := session.Start(context.Background())
		return RunStartedMsg{Clarification: clar, Err: err}
	}
}

func (m *Model) handleRunError(err error) {
	var stepErr *pipeline.StepError
	switch {
	case pipeline.IsAborted(err):
	case errors.Is(err, pipeline.ErrMissingCredential):
		m.addNotice(providerHint(err, m.config))
	case errors.Is(err, pipeline.ErrEmptyIdea):
		m.addNotice("Describe an idea or /attach a file first")
	case errors.Is(err, pipeline.ErrRunActive):
		m.addNotice("A run is already in progress (Ctrl+X resets)")
	case errors.As(err, &stepErr):
		m.logger.Warn("run failed", logging.String("role", string(stepErr.Role)), logging.Err(err))
	default:
		m.addNotice("Error: " + err.Error())
	}
}

// providerHint explains how to fix a provider problem
func providerHint(err error, cfg *config.ForgeConfig) string {
	if errors.Is(err, pipeline.ErrMissingCredential) {
		return fmt.Sprintf("No API key configured for %s. Export it or run `forge config set %s_api_key <key>`; it is picked up without restarting.",
			cfg.Inference.Provider, cfg.Inference.Provider)
	}
	return "Provider unavailable: " + err.Error()
}

func (m *Model) beginQuiz(questions []string) {
	m.questions = questions
	m.answers = make([]string, len(questions))
	m.quizIndex = 0
	m.focusCommand("")
	m.input.Placeholder = "Your answer (Enter for next, /skip to skip)"
}

func (m *Model) endQuiz() {
	m.questions = nil
	m.answers = nil
	m.quizIndex = 0
	m.input.Placeholder = ""
	m.focusIdea()
}

func (m Model) answer(value string) (tea.Model, tea.Cmd) {
	m.answers[m.quizIndex] = value
	m.quizIndex++
	if m.quizIndex < len(m.questions) {
		return m, nil
	}

	answers := m.answers
	m.endQuiz()
	session := m.session
	return m, func() tea.Msg {
		return RunFinishedMsg{Err: session.SubmitAnswers(context.Background(), answers)}
	}
}

func (m Model) skipCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		return RunFinishedMsg{Err: session.SkipClarification(context.Background())}
	}
}

func (m *Model) changeMode(mode models.Mode) {
	if err := m.session.OnModeChanged(mode); err != nil {
		m.addNotice(modeChangeError(err))
	}
}

func (m *Model) changeLanguage(lang models.BotLanguage) {
	if err := m.session.OnBotLanguageChanged(lang); err != nil {
		m.addNotice(modeChangeError(err))
		return
	}
	if m.session.Mode() != models.ModeChatbot {
		m.addNotice(fmt.Sprintf("Bot language set to %s", lang))
	}
}

func modeChangeError(err error) string {
	if errors.Is(err, pipeline.ErrRunActive) {
		return "Wait for the run to finish or press Ctrl+X to reset"
	}
	return err.Error()
}

func (m *Model) reset() {
	if m.consoleCancel != nil {
		m.consoleCancel()
		m.consoleCancel = nil
	}
	m.session.Reset()
	m.idea.Reset()
	m.notices = nil
	m.spinning = false
	if len(m.questions) > 0 {
		m.endQuiz()
	}
	m.cache.entries = make(map[string]string)
	m.refreshAll()
}

func (m *Model) attach(path string) {
	if path == "" {
		m.addNotice("Usage: /attach <path>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		m.addNotice("Attach failed: " + err.Error())
		return
	}
	id := m.session.AddAttachment(filepath.Base(path), data, http.DetectContentType(data))
	m.addNotice(fmt.Sprintf("Attached %s (%s)", filepath.Base(path), shortID(id)))
}

func (m *Model) detach(arg string) {
	if arg == "" || arg == "all" {
		m.session.ClearAttachments()
		m.addNotice("Attachments cleared")
		return
	}
	for _, a := range m.session.Attachments() {
		if a.Name == arg || strings.HasPrefix(a.ID, arg) {
			m.session.RemoveAttachment(a.ID)
			m.addNotice("Removed " + a.Name)
			return
		}
	}
	m.addNotice(fmt.Sprintf("No attachment matches %q", arg))
}

func (m *Model) cycleFile(forward bool) {
	files := m.session.Files()
	if len(files) == 0 {
		return
	}
	active, _ := m.session.ActiveFile()
	idx := 0
	for i, f := range files {
		if f.Name == active.Name {
			idx = i
		}
	}
	if forward {
		idx = (idx + 1) % len(files)
	} else {
		idx = (idx - 1 + len(files)) % len(files)
	}
	m.session.SelectFile(files[idx].Name)
}

func (m Model) toggleConsole() (tea.Model, tea.Cmd) {
	if m.consoleCancel != nil {
		m.consoleCancel()
		m.consoleCancel = nil
		return m, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.consoleCancel = cancel
	session := m.session
	return m, func() tea.Msg {
		defer cancel()
		return ConsoleFinishedMsg{Err: session.RunConsole(ctx)}
	}
}

func (m Model) exportCmd(dir string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		paths, err := session.Export(dir)
		return ExportedMsg{Dir: dir, Paths: paths, Err: err}
	}
}

func (m Model) copyCodeBlock(arg string) tea.Cmd {
	blocks := m.codeBlocks
	clip := m.clipboard
	return func() tea.Msg {
		index := len(blocks)
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return ClipboardCopyMsg{Index: 0, Error: fmt.Errorf("usage: /copy [number]")}
			}
			index = n
		}
		if index < 1 || index > len(blocks) {
			return ClipboardCopyMsg{Index: index, Error: fmt.Errorf("code block %d not found (have %d)", index, len(blocks))}
		}
		if err := clip.WriteAll(blocks[index-1].Content); err != nil {
			return ClipboardCopyMsg{Index: index, Error: err}
		}
		return ClipboardCopyMsg{Success: true, Index: index}
	}
}

// Editor

func (m *Model) editActiveFile() {
	file, ok := m.session.ActiveFile()
	if !ok {
		m.addNotice("No active file")
		return
	}
	m.openEditor(&editTarget{file: file.Name, label: file.Name}, file.Content)
}

func (m *Model) editEntry(arg string) {
	entries := m.session.Transcript()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(entries) {
		m.addNotice(fmt.Sprintf("Usage: /entry <1-%d>", len(entries)))
		return
	}
	entry := entries[n-1]
	prof := profile.Lookup(entry.Role, entry.Mode, m.session.BotLanguage())
	m.openEditor(&editTarget{entryID: entry.ID, label: fmt.Sprintf("entry %d · %s", n, prof.Label())}, entry.Content)
}

func (m *Model) openEditor(target *editTarget, content string) {
	m.editing = target
	m.focus = focusEditor
	m.idea.Blur()
	m.input.Blur()
	m.editor.SetValue(content)
	m.editor.Focus()
	m.layout()
}

func (m *Model) closeEditor() {
	m.editing = nil
	m.editor.Blur()
	m.focusIdea()
	m.layout()
}

func (m *Model) saveEditor() {
	target := m.editing
	content := m.editor.Value()
	m.closeEditor()

	if target.entryID != "" {
		if err := m.session.EditEntry(target.entryID, content); err != nil {
			m.addNotice("Save failed: " + err.Error())
			return
		}
		m.addNotice("Saved " + target.label)
		return
	}
	if !m.session.WriteFile(target.file, content) {
		m.addNotice(fmt.Sprintf("%s no longer exists", target.file))
		return
	}
	m.addNotice("Saved " + target.label)
}

// Focus

func (m *Model) focusIdea() {
	m.focus = focusIdea
	m.input.Blur()
	m.hideSuggestions()
	m.idea.Focus()
}

func (m *Model) focusCommand(prefill string) {
	m.focus = focusCommand
	m.idea.Blur()
	m.input.SetValue(prefill)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) updateSuggestions() {
	value := m.input.Value()
	if strings.HasPrefix(value, "/") && !strings.Contains(value, " ") {
		m.suggestions = m.cmdRegistry.FilterCommands(strings.TrimPrefix(value, "/"))
		m.showSuggestions = len(m.suggestions) > 0
		m.selectedSuggestion = 0
		return
	}
	m.hideSuggestions()
}

func (m *Model) hideSuggestions() {
	m.showSuggestions = false
	m.suggestions = nil
}

// Configuration

func (m *Model) applyConfig(cfg *config.ForgeConfig) {
	if cfg == nil {
		return
	}
	m.config = cfg
	if m.rebuild == nil {
		return
	}
	gw, modelID, err := m.rebuild(cfg)
	if err != nil {
		m.addNotice("Configuration reload failed: " + err.Error())
		return
	}
	wasReady := m.providerReady
	m.session.SetGateway(gw)
	m.modelID = modelID
	m.providerReady = gw.Ready() == nil
	if m.providerReady && !wasReady {
		m.addNotice("Configuration reloaded: provider ready, press Ctrl+S to start")
	} else {
		m.addNotice("Configuration reloaded")
	}
}

// Layout and rendering

func (m *Model) addNotice(text string) {
	m.notices = append(m.notices, text)
	m.refreshTranscript()
}

func (m Model) paneWidths() (left, right int) {
	left = m.width * 3 / 5
	if left < 30 {
		left = 30
	}
	right = m.width - left
	return left, right
}

func (m Model) bodyHeight() int {
	// header + status bar + input + help bar
	h := m.height - 1 - 1 - inputHeight - 1
	if h < 6 {
		h = 6
	}
	return h
}

func (m Model) filesPaneHeight() int {
	return m.bodyHeight() * 2 / 3
}

func (m *Model) layout() {
	left, right := m.paneWidths()
	body := m.bodyHeight()
	filesH := m.filesPaneHeight()
	consoleH := body - filesH

	// borders take two rows/cols, titles one row
	m.transcript.Width = left - 2
	m.transcript.Height = body - 3
	m.files.Width = right - 2
	m.files.Height = filesH - 3
	m.console.Width = right - 2
	m.console.Height = consoleH - 3
	if m.console.Height < 1 {
		m.console.Height = 1
	}

	m.idea.SetWidth(m.width - 2)
	m.input.Width = m.width - 4
	m.editor.SetWidth(m.width - 2)
	m.editor.SetHeight(body - 1)

	if m.mdRenderer != nil && m.mdRenderer.Width() != left-6 {
		if err := m.mdRenderer.UpdateWidth(left - 6); err == nil {
			m.cache.entries = make(map[string]string)
		}
	}
}

func (m *Model) refreshAll() {
	m.refreshTranscript()
	m.refreshWorkspace()
	m.refreshConsole()
}

func (m *Model) refreshTranscript() {
	atBottom := m.transcript.AtBottom()
	m.transcript.SetContent(m.renderTranscript())
	if atBottom || m.spinning {
		m.transcript.GotoBottom()
	}
}

func (m *Model) refreshWorkspace() {
	file, ok := m.session.ActiveFile()
	if !ok {
		m.files.SetContent("")
		return
	}
	m.files.SetContent(RenderFile(file, m.files.Width))
	m.files.GotoTop()
}

func (m *Model) refreshConsole() {
	lines := m.session.ConsoleLines()
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, m.styles.ConsoleTime.Render(line.Timestamp.Format("15:04:05"))+" "+
			m.styles.ConsoleStyle(line.Kind).Render(line.Text))
	}
	m.console.SetContent(strings.Join(out, "\n"))
	m.console.GotoBottom()
}

// renderTranscript renders every entry, the progress line and notices
func (m *Model) renderTranscript() string {
	entries := m.session.Transcript()
	state := m.session.State()
	lang := m.session.BotLanguage()
	width := m.transcript.Width - 2
	if width < 20 {
		width = 20
	}

	var sections []string
	if len(entries) == 0 && !state.Busy() && len(m.notices) == 0 {
		sections = append(sections, GetStartupBanner(m.version, width)+GetWelcomeMessage())
	}

	m.codeBlocks = nil
	for i, entry := range entries {
		sections = append(sections, m.renderEntry(i+1, entry, lang, width))
	}

	switch {
	case state.Running && state.CurrentRole != nil:
		prof := profile.Lookup(*state.CurrentRole, state.Mode, lang)
		elapsed := time.Since(m.stepStarted).Round(100 * time.Millisecond)
		sections = append(sections, fmt.Sprintf("%s %s %s",
			m.spinner.View(),
			m.styles.Badge(prof.Role, prof.Name),
			m.styles.StatusRunning.Render(fmt.Sprintf("%s is working... %s", prof.Title, elapsed))))
	case state.Phase == models.PhaseClarifying && len(m.questions) == 0:
		sections = append(sections, m.spinner.View()+" "+m.styles.StatusRunning.Render("Preparing clarifying questions..."))
	}

	if state.Err != "" {
		sections = append(sections, m.styles.Error.Render("Pipeline stopped: ")+state.Err)
	}
	for _, notice := range m.notices {
		sections = append(sections, m.styles.SystemMessage.Render(wrapText(notice, width)))
	}

	return strings.Join(sections, "\n\n")
}

func (m *Model) renderEntry(n int, entry models.TranscriptEntry, lang models.BotLanguage, width int) string {
	parsed := ParseContent(entry.Content)
	first := len(m.codeBlocks) + 1
	for _, block := range parsed.GetCodeBlocks() {
		block.Index = len(m.codeBlocks) + 1
		m.codeBlocks = append(m.codeBlocks, block)
	}

	key := fmt.Sprintf("%s|%d|%d|%d|%s", entry.ID, len(entry.Content), first, width, lang)
	if cached, ok := m.cache.entries[key]; ok {
		return cached
	}

	prof := profile.Lookup(entry.Role, entry.Mode, lang)
	header := m.styles.Badge(entry.Role, prof.Name) + " " +
		m.styles.RoleTitle.Render(prof.Title) + " " +
		m.styles.HelpDesc.Render(fmt.Sprintf("#%d", n))

	lines := []string{header}
	for _, segment := range parsed.Segments {
		if segment.IsCode {
			lines = append(lines, RenderCodeBlock(m.styles, segment.CodeBlock, width))
			continue
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		rendered := ""
		if m.mdRenderer != nil {
			if out, err := m.mdRenderer.Render(text); err == nil {
				rendered = out
			}
		}
		if rendered == "" {
			rendered = m.styles.EntryText.Render(wrapText(text, width))
		}
		lines = append(lines, rendered)
	}

	out := strings.Join(lines, "\n")
	m.cache.entries[key] = out
	return out
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Initializing...\n"
	}

	mode, lang := m.session.Mode(), m.session.BotLanguage()

	var b strings.Builder
	b.WriteString(GetModernHeader(m.styles, mode, lang, m.width))
	b.WriteString("\n")

	if m.focus == focusEditor && m.editing != nil {
		title := m.styles.PaneTitle.Render("Editing " + m.editing.label)
		b.WriteString(title + "\n" + m.editor.View())
	} else {
		b.WriteString(m.renderBody())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	return b.String()
}

func (m Model) renderBody() string {
	left, right := m.paneWidths()
	body := m.bodyHeight()
	filesH := m.filesPaneHeight()

	transcript := m.transcript
	var suggestions string
	if m.showSuggestions && len(m.suggestions) > 0 {
		suggestions = m.renderSuggestions()
		transcript.Height -= lipgloss.Height(suggestions)
		if transcript.Height < 1 {
			transcript.Height = 1
		}
	}

	leftContent := m.styles.PaneTitle.Render("Transcript") + "\n" + transcript.View()
	if suggestions != "" {
		leftContent += "\n" + suggestions
	}
	leftPane := m.pane(m.focus != focusEditor).Width(left - 2).Height(body - 2).Render(leftContent)

	filesTitle := m.renderFileTabs(right - 4)
	filesPane := m.pane(false).Width(right - 2).Height(filesH - 2).Render(filesTitle + "\n" + m.files.View())

	consoleTitle := m.styles.PaneTitle.Render("Console")
	if m.consoleCancel != nil {
		consoleTitle += " " + m.styles.StatusRunning.Render("running (Ctrl+R stops)")
	}
	consolePane := m.pane(false).Width(right - 2).Height(body - filesH - 2).Render(consoleTitle + "\n" + m.console.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPane, lipgloss.JoinVertical(lipgloss.Left, filesPane, consolePane))
}

func (m Model) pane(focused bool) lipgloss.Style {
	if focused {
		return m.styles.PaneFocused
	}
	return m.styles.Pane
}

func (m Model) renderFileTabs(width int) string {
	files := m.session.Files()
	active, _ := m.session.ActiveFile()
	tabs := make([]string, 0, len(files))
	for _, f := range files {
		if f.Name == active.Name {
			tabs = append(tabs, m.styles.FileTabActive.Render(f.Name))
		} else {
			tabs = append(tabs, m.styles.FileTab.Render(f.Name))
		}
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if lipgloss.Width(line) > width && active.Name != "" {
		return m.styles.FileTabActive.Render(active.Name) + m.styles.FileTab.Render(fmt.Sprintf("+%d", len(files)-1))
	}
	return line
}

// renderStatusBar renders provider, model and run state
func (m Model) renderStatusBar() string {
	state := m.session.State()

	parts := []string{
		m.styles.StatusRole.Render(m.config.Inference.Provider),
		m.styles.StatusModel.Render(m.modelID),
	}

	phase := string(state.Phase)
	if state.Running && state.CurrentRole != nil {
		phase = fmt.Sprintf("step %d/%d", len(m.session.Transcript())+1, len(profile.Sequence()))
	}
	if state.Finished && state.Err == "" {
		phase = "finished"
	} else if state.Err != "" {
		phase = "failed"
	}
	parts = append(parts, m.styles.StatusRunning.Render(phase))

	if n := len(m.session.Attachments()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d attachment(s)", n))
	}
	if !m.providerReady {
		parts = append(parts, m.styles.Warning.Render("provider not ready"))
	}

	return m.styles.StatusBar.Width(m.width).Render(strings.Join(parts, " | "))
}

func (m Model) renderInput() string {
	sep := m.styles.InputSeparator.Render(strings.Repeat("─", m.width))

	var content string
	switch {
	case len(m.questions) > 0:
		progress := m.styles.QuizProgress.Render(fmt.Sprintf("Question %d/%d", m.quizIndex+1, len(m.questions)))
		question := m.styles.QuizQuestion.Render(wrapText(m.questions[m.quizIndex], m.width-4))
		content = progress + " " + question + "\n" + m.styles.InputPrompt.Render("> ") + m.input.View()
	case m.focus == focusCommand:
		content = m.styles.InputPrompt.Render("> ") + m.input.View()
	case m.focus == focusEditor:
		content = m.styles.HelpDesc.Render("Editing; Ctrl+S saves, Esc discards")
	default:
		content = m.idea.View()
	}
	return sep + "\n" + lipgloss.NewStyle().Height(inputHeight-1).MaxHeight(inputHeight-1).Render(content)
}

// renderSuggestions renders the autocomplete suggestions
func (m Model) renderSuggestions() string {
	var items []string
	for i, cmd := range m.suggestions {
		name := fmt.Sprintf("%-12s", "/"+cmd.Name)
		if i == m.selectedSuggestion {
			name = m.styles.SuggestionSelected.Render(name)
		} else {
			name = m.styles.SuggestionItem.Render(name)
		}
		items = append(items, name+" "+m.styles.SuggestionDesc.Render(cmd.Description))

		if i >= 5 && len(m.suggestions) > 6 {
			items = append(items, m.styles.SuggestionDesc.Render(fmt.Sprintf("  ... and %d more", len(m.suggestions)-6)))
			break
		}
	}
	return m.styles.SuggestionBox.Render(strings.Join(items, "\n"))
}

// renderHelpBar renders the key hints for the current focus
func (m Model) renderHelpBar() string {
	key := func(k, desc string) string {
		return m.styles.HelpKey.Render(k) + " " + m.styles.HelpDesc.Render(desc)
	}

	var help []string
	switch {
	case m.focus == focusEditor:
		help = []string{key("Ctrl+S", "save"), key("Esc", "discard")}
	case len(m.questions) > 0:
		help = []string{key("Enter", "answer"), key("/skip", "skip"), key("Ctrl+X", "reset"), key("Ctrl+C", "quit")}
	default:
		help = []string{
			key("Ctrl+S", "start"),
			key("Tab", "mode"),
			key("Ctrl+L", "language"),
			key("Ctrl+R", "console"),
			key("Ctrl+E", "export"),
			key("Ctrl+X", "reset"),
			key("Ctrl+N/P", "file"),
			key("/", "commands"),
			key("Esc", "quit"),
		}
	}
	return m.styles.HelpBar.Render(strings.Join(help, "  "))
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, cmd := range m.cmdRegistry.GetAllCommands() {
		usage := cmd.Usage
		if usage == "" {
			usage = "/" + cmd.Name
		}
		sb.WriteString(fmt.Sprintf("  %-40s %s\n", usage, cmd.Description))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderProfiles() string {
	mode, lang := m.session.Mode(), m.session.BotLanguage()
	var sb strings.Builder
	sb.WriteString(mode.Info().Label + " team:\n")
	for i, role := range profile.Sequence() {
		p := profile.Lookup(role, mode, lang)
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, p.Label(), p.Description))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderStatusReport() string {
	state := m.session.State()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Provider: %s (%s)\n", m.config.Inference.Provider, m.modelID)
	fmt.Fprintf(&sb, "Mode: %s, bot language: %s\n", m.session.Mode().Info().Label, m.session.BotLanguage())
	fmt.Fprintf(&sb, "Phase: %s, entries: %d\n", state.Phase, len(m.session.Transcript()))
	if effective := m.session.EffectiveIdea(); effective != "" {
		fmt.Fprintf(&sb, "Refined idea: %s\n", effective)
	}
	for _, a := range m.session.Attachments() {
		fmt.Fprintf(&sb, "Attachment: %s %s (%s, %d bytes)\n", shortID(a.ID), a.Name, a.MIMEType, len(a.Data))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// wrapText wraps text to fit within the specified width, keeping line breaks
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, paragraph := range strings.Split(text, "\n") {
		var line strings.Builder
		for _, word := range strings.Fields(paragraph) {
			if line.Len() > 0 && line.Len()+len(word)+1 > width {
				out = append(out, line.String())
				line.Reset()
			}
			if line.Len() > 0 {
				line.WriteString(" ")
			}
			line.WriteString(word)
		}
		out = append(out, line.String())
	}
	return strings.Join(out, "\n")
}

func findFile(files []models.VirtualFile, name string) (models.VirtualFile, bool) {
	for _, f := range files {
		if f.Name == name {
			return f, true
		}
	}
	return models.VirtualFile{}, false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

