// Package pipeline orchestrates a generation run: it owns the idea, the
// attachments, the transcript, the workspace and the console of one session
// and drives the fixed role sequence through a gateway.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/syntor/forge/pkg/console"
	"github.com/syntor/forge/pkg/gateway"
	"github.com/syntor/forge/pkg/inference"
	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/metrics"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/workspace"
)

// DefaultStepDelay is the pause before each role step
const DefaultStepDelay = 600 * time.Millisecond

var (
	// ErrMissingCredential is inference.ErrMissingCredential, re-exported so
	// callers only need this package
	ErrMissingCredential = inference.ErrMissingCredential
	ErrEmptyIdea         = errors.New("pipeline: idea and attachments are both empty")
	ErrRunActive         = errors.New("pipeline: a run is already in progress")
	ErrNotClarifying     = errors.New("pipeline: no clarification is pending")
	ErrRunAborted        = errors.New("pipeline: run was reset")
	ErrEntryNotFound     = errors.New("pipeline: transcript entry not found")
	ErrInvalidMode       = errors.New("pipeline: unknown mode")
)

// StepError reports the role whose gateway call ended a run
type StepError struct {
	Role models.Role
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Role, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Config tunes a Session
type Config struct {
	Mode        models.Mode
	BotLanguage models.BotLanguage
	StepDelay   time.Duration

	// Clarify enables the question round before website runs
	Clarify bool

	Clock     console.Clock
	Clipboard console.Clipboard
	Logger    logging.Logger
	Metrics   metrics.Collector
	Observer  Observer
}

// DefaultConfig returns the interactive defaults
func DefaultConfig() Config {
	return Config{
		Mode:        models.ModeWebsite,
		BotLanguage: models.BotJavaScript,
		StepDelay:   DefaultStepDelay,
		Clarify:     true,
	}
}

// run is the snapshot a run works from. Edits to the session's idea or
// attachments after Start do not reach it.
type run struct {
	id          string
	gen         uint64
	idea        string
	attachments []models.Attachment
	mode        models.Mode
	lang        models.BotLanguage
	gateway     gateway.Gateway
	started     time.Time
}

// Session is the single owner of pipeline state. Every mutation goes through
// its methods; readers get copies.
type Session struct {
	mu sync.Mutex

	gateway gateway.Gateway
	config  Config
	clock   console.Clock
	logger  logging.Logger
	metrics metrics.Collector

	observer Observer

	idea          string
	attachments   []models.Attachment
	lang          models.BotLanguage
	transcript    []models.TranscriptEntry
	state         models.PipelineState
	questions     []string
	effectiveIdea string

	workspace *workspace.Workspace
	console   *console.Console

	// generation is bumped by Start and Reset; a run whose generation no
	// longer matches must not touch the session
	generation uint64
	cancel     context.CancelFunc
	pending    *run
}

// NewSession creates an idle session
func NewSession(gw gateway.Gateway, config Config) *Session {
	if !config.Mode.Valid() {
		config.Mode = models.ModeWebsite
	}
	if config.BotLanguage == "" {
		config.BotLanguage = models.BotJavaScript
	}
	if config.StepDelay < 0 {
		config.StepDelay = 0
	}
	if config.Clock == nil {
		config.Clock = console.SystemClock{}
	}
	if config.Clipboard == nil {
		config.Clipboard = console.SystemClipboard{}
	}
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NopCollector{}
	}
	if config.Observer == nil {
		config.Observer = NopObserver{}
	}

	s := &Session{
		gateway:   gw,
		config:    config,
		clock:     config.Clock,
		logger:    config.Logger.With(logging.String("component", "pipeline")),
		metrics:   config.Metrics,
		observer:  config.Observer,
		lang:      config.BotLanguage,
		state:     models.PipelineState{Phase: models.PhaseIdle, Mode: config.Mode},
		workspace: workspace.New(config.Mode, config.BotLanguage),
	}
	s.console = console.New(
		console.WithClock(config.Clock),
		console.WithClipboard(config.Clipboard),
		console.WithLogger(config.Logger.With(logging.String("component", "console"))),
	)
	s.console.OnLine(func(line models.ConsoleLine) { s.obs().ConsoleLine(line) })
	s.console.OnClear(func() { s.obs().ConsoleCleared() })
	return s
}

// SetGateway replaces the gateway used by runs started from now on
func (s *Session) SetGateway(gw gateway.Gateway) {
	s.mu.Lock()
	s.gateway = gw
	s.mu.Unlock()
}

// SetObserver replaces the observer
func (s *Session) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
}

func (s *Session) obs() Observer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observer
}

// State returns a copy of the pipeline state
func (s *Session) State() models.PipelineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() models.PipelineState {
	st := s.state
	if st.CurrentRole != nil {
		r := *st.CurrentRole
		st.CurrentRole = &r
	}
	return st
}

// Transcript returns a copy of the transcript in append order
func (s *Session) Transcript() []models.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcriptLocked()
}

func (s *Session) transcriptLocked() []models.TranscriptEntry {
	out := make([]models.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Mode returns the selected mode
func (s *Session) Mode() models.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Mode
}

// BotLanguage returns the selected chatbot language
func (s *Session) BotLanguage() models.BotLanguage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// Idea returns the editable idea text
func (s *Session) Idea() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idea
}

// SetIdea replaces the idea. A running pipeline keeps the idea it started with.
func (s *Session) SetIdea(idea string) {
	s.mu.Lock()
	s.idea = idea
	s.mu.Unlock()
}

// EffectiveIdea returns the idea the last run actually used: the improved
// prompt after clarification, otherwise the raw idea
func (s *Session) EffectiveIdea() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveIdea
}

// Questions returns the pending clarification questions, or nil
func (s *Session) Questions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.questions == nil {
		return nil
	}
	out := make([]string, len(s.questions))
	copy(out, s.questions)
	return out
}

// Attachments returns the attachments the next run will send
func (s *Session) Attachments() []models.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Attachment, len(s.attachments))
	copy(out, s.attachments)
	return out
}

// AddAttachment stages a binary attachment and returns its ID
func (s *Session) AddAttachment(name string, data []byte, mimeType string) string {
	a := models.NewAttachment(name, data, mimeType)
	s.mu.Lock()
	s.attachments = append(s.attachments, a)
	s.mu.Unlock()
	s.logger.Debug("attachment added",
		logging.String("name", name),
		logging.String("mime_type", mimeType),
		logging.Int("bytes", len(data)),
	)
	return a.ID
}

// RemoveAttachment drops the attachment with id and reports whether it existed
func (s *Session) RemoveAttachment(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.attachments {
		if a.ID == id {
			s.attachments = append(s.attachments[:i:i], s.attachments[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAttachments drops every staged attachment
func (s *Session) ClearAttachments() {
	s.mu.Lock()
	s.attachments = nil
	s.mu.Unlock()
}

// OnModeChanged switches the output domain, reseeds the workspace and clears
// the console. It is refused while a run holds the session.
func (s *Session) OnModeChanged(mode models.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	s.mu.Lock()
	if s.state.Busy() {
		s.mu.Unlock()
		return ErrRunActive
	}
	if s.state.Mode == mode {
		s.mu.Unlock()
		return nil
	}
	s.state.Mode = mode
	s.workspace.Reseed(mode, s.lang, false)
	state := s.stateLocked()
	files, active := s.workspace.Files(), s.workspace.ActiveName()
	observer := s.observer
	s.mu.Unlock()

	s.logger.Info("mode changed", logging.String("mode", string(mode)))
	s.console.Clear()
	observer.StateChanged(state)
	observer.WorkspaceChanged(files, active)
	return nil
}

// OnBotLanguageChanged switches the chatbot target language. In chatbot mode
// the workspace is reseeded for the new language and the console cleared.
func (s *Session) OnBotLanguageChanged(lang models.BotLanguage) error {
	if lang != models.BotJavaScript && lang != models.BotPython {
		return fmt.Errorf("pipeline: unknown bot language %q", lang)
	}

	s.mu.Lock()
	if s.state.Busy() {
		s.mu.Unlock()
		return ErrRunActive
	}
	if s.lang == lang {
		s.mu.Unlock()
		return nil
	}
	s.lang = lang
	if s.state.Mode != models.ModeChatbot {
		s.mu.Unlock()
		return nil
	}
	s.workspace.Reseed(s.state.Mode, lang, false)
	files, active := s.workspace.Files(), s.workspace.ActiveName()
	observer := s.observer
	s.mu.Unlock()

	s.logger.Info("bot language changed", logging.String("language", string(lang)))
	s.console.Clear()
	observer.WorkspaceChanged(files, active)
	return nil
}

// Reset cancels any run, clears the idea, attachments, transcript, questions
// and console, and reseeds the workspace for the current mode
func (s *Session) Reset() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	wasBusy := s.state.Busy()
	runID := s.state.RunID

	s.idea = ""
	s.attachments = nil
	s.transcript = nil
	s.questions = nil
	s.effectiveIdea = ""
	s.pending = nil
	s.state = models.PipelineState{Phase: models.PhaseIdle, Mode: s.state.Mode}
	s.workspace.Reseed(s.state.Mode, s.lang, false)

	state := s.stateLocked()
	files, active := s.workspace.Files(), s.workspace.ActiveName()
	observer := s.observer
	s.mu.Unlock()

	if wasBusy {
		s.logger.Info("run reset while active", logging.String("run_id", runID))
	}
	s.console.Clear()
	observer.StateChanged(state)
	observer.WorkspaceChanged(files, active)
}

// bindContext derives a cancellable context for the run with generation gen and
// registers its cancel function so Reset can stop it
func (s *Session) bindContext(ctx context.Context, r *run) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	ctx = logging.WithRunID(ctx, r.id)
	ctx = logging.WithMode(ctx, string(r.mode))

	s.mu.Lock()
	if s.generation == r.gen {
		s.cancel = cancel
	} else {
		cancel()
	}
	s.mu.Unlock()
	return ctx, cancel
}

func (s *Session) stale(r *run) bool {
	return s.generation != r.gen
}

func hasIdea(idea string, attachments []models.Attachment) bool {
	return strings.TrimSpace(idea) != "" || len(attachments) > 0
}
