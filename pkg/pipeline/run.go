package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/syntor/forge/pkg/gateway"
	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/metrics"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/profile"
)

// Run outcomes recorded in forge_pipeline_runs_total
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusAborted   = "aborted"
)

// Clarification holds the questions a website run waits on
type Clarification struct {
	RunID     string
	Questions []string
}

// Start begins a run from the current idea and attachments. Website runs with
// clarification enabled stop after generating questions and return them; the
// run continues with SubmitAnswers or SkipClarification. Every other run
// executes the whole role sequence before Start returns.
func (s *Session) Start(ctx context.Context) (*Clarification, error) {
	s.mu.Lock()
	if s.state.Busy() {
		s.mu.Unlock()
		return nil, ErrRunActive
	}
	if !hasIdea(s.idea, s.attachments) {
		s.mu.Unlock()
		return nil, ErrEmptyIdea
	}
	if err := s.gateway.Ready(); err != nil {
		s.mu.Unlock()
		s.logger.Warn("run refused", logging.Err(err))
		return nil, err
	}

	s.generation++
	r := &run{
		id:          uuid.New().String(),
		gen:         s.generation,
		idea:        s.idea,
		attachments: append([]models.Attachment(nil), s.attachments...),
		mode:        s.state.Mode,
		lang:        s.lang,
		gateway:     s.gateway,
		started:     time.Now(),
	}
	clarify := s.config.Clarify && r.mode == models.ModeWebsite

	s.transcript = nil
	s.questions = nil
	s.effectiveIdea = ""
	s.pending = nil
	// the run is busy from here until it finishes or is reset
	s.state = models.PipelineState{Phase: models.PhaseClarifying, Mode: r.mode, RunID: r.id}
	if !clarify {
		first := profile.Sequence()[0]
		s.state.Phase = models.PhaseRunning
		s.state.Running = true
		s.state.CurrentRole = &first
	}
	s.workspace.Reseed(r.mode, r.lang, true)

	state := s.stateLocked()
	files, active := s.workspace.Files(), s.workspace.ActiveName()
	observer := s.observer
	s.mu.Unlock()

	s.logger.Info("run started",
		logging.String("run_id", r.id),
		logging.String("mode", string(r.mode)),
		logging.Int("attachments", len(r.attachments)),
		logging.Bool("clarify", clarify),
	)
	s.console.Clear()
	observer.StateChanged(state)
	observer.WorkspaceChanged(files, active)

	if !clarify {
		return nil, s.execute(ctx, r, r.idea)
	}
	return s.clarify(ctx, r)
}

func (s *Session) clarify(ctx context.Context, r *run) (*Clarification, error) {
	ctx, cancel := s.bindContext(ctx, r)
	defer cancel()

	questions, err := r.gateway.GenerateQuestions(ctx, r.idea, r.attachments)
	if err != nil {
		s.logger.WithContext(ctx).Warn("question generation failed, using fallback questions", logging.Err(err))
		s.metrics.IncrementCounter(metrics.GatewayFallbacks.Name, metrics.Labels("operation", gateway.OpQuestions))
		questions = nil
	}
	questions = gateway.NormalizeQuestions(questions)

	s.mu.Lock()
	if s.stale(r) {
		s.mu.Unlock()
		return nil, ErrRunAborted
	}
	s.questions = questions
	s.pending = r
	s.mu.Unlock()

	out := make([]string, len(questions))
	copy(out, questions)
	return &Clarification{RunID: r.id, Questions: out}, nil
}

// SubmitAnswers folds the answers into an improved prompt and runs the
// pipeline with it. Missing or blank answers count as no preference. If the
// improvement call fails the original idea is used.
func (s *Session) SubmitAnswers(ctx context.Context, answers []string) error {
	r, questions, err := s.takePending()
	if err != nil {
		return err
	}

	ctx, cancel := s.bindContext(ctx, r)
	defer cancel()

	idea, err := r.gateway.ImprovePrompt(ctx, r.idea, gateway.PairAnswers(questions, answers))
	if err != nil {
		s.logger.WithContext(ctx).Warn("prompt improvement failed, keeping the original idea", logging.Err(err))
		s.metrics.IncrementCounter(metrics.GatewayFallbacks.Name, metrics.Labels("operation", gateway.OpImprove))
		idea = r.idea
	}
	return s.execute(ctx, r, idea)
}

// SkipClarification runs the pending pipeline with the raw idea
func (s *Session) SkipClarification(ctx context.Context) error {
	r, _, err := s.takePending()
	if err != nil {
		return err
	}
	return s.execute(ctx, r, r.idea)
}

func (s *Session) takePending() (*run, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != models.PhaseClarifying || s.pending == nil {
		return nil, nil, ErrNotClarifying
	}
	r := s.pending
	questions := s.questions
	s.pending = nil
	s.questions = nil
	return r, questions, nil
}

// execute drives the role sequence for r. It returns ErrRunAborted when the
// session was reset underneath it and a *StepError when a gateway call fails.
func (s *Session) execute(ctx context.Context, r *run, idea string) error {
	ctx, cancel := s.bindContext(ctx, r)
	defer cancel()
	logger := s.logger.WithContext(ctx)

	s.metrics.SetGauge(metrics.PipelineActive.Name, 1, nil)
	defer s.metrics.SetGauge(metrics.PipelineActive.Name, 0, nil)

	s.mu.Lock()
	if s.stale(r) {
		s.mu.Unlock()
		s.recordOutcome(r, statusAborted)
		return ErrRunAborted
	}
	s.effectiveIdea = idea
	s.mu.Unlock()

	for _, role := range profile.Sequence() {
		history, err := s.beginStep(r, role)
		if err != nil {
			s.recordOutcome(r, statusAborted)
			return err
		}

		if s.config.StepDelay > 0 {
			if err := s.clock.Sleep(ctx, s.config.StepDelay); err != nil {
				return s.fail(ctx, r, role, err)
			}
		}

		start := time.Now()
		text, err := r.gateway.RunStep(logging.WithRole(ctx, string(role)), gateway.StepRequest{
			Role:        role,
			Idea:        idea,
			Transcript:  history,
			Attachments: r.attachments,
			Mode:        r.mode,
			Lang:        r.lang,
		})
		s.metrics.ObserveDuration(metrics.PipelineStepDuration.Name, start,
			metrics.Labels("role", string(role), "mode", string(r.mode)))
		if err != nil {
			return s.fail(ctx, r, role, err)
		}

		if err := s.appendEntry(r, role, text); err != nil {
			s.recordOutcome(r, statusAborted)
			return err
		}
		logger.Debug("step finished",
			logging.String("role", string(role)),
			logging.Duration("elapsed", time.Since(start)),
		)
	}

	s.mu.Lock()
	if s.stale(r) {
		s.mu.Unlock()
		s.recordOutcome(r, statusAborted)
		return ErrRunAborted
	}
	s.state = models.PipelineState{Phase: models.PhaseFinished, Finished: true, Mode: r.mode, RunID: r.id}
	s.cancel = nil
	state := s.stateLocked()
	observer := s.observer
	s.mu.Unlock()

	s.recordOutcome(r, statusCompleted)
	logger.Info("run finished", logging.Duration("elapsed", time.Since(r.started)))
	observer.StateChanged(state)
	return nil
}

// beginStep marks role as current and returns the transcript it will see
func (s *Session) beginStep(r *run, role models.Role) ([]models.TranscriptEntry, error) {
	s.mu.Lock()
	if s.stale(r) {
		s.mu.Unlock()
		return nil, ErrRunAborted
	}
	changed := !s.state.Running || s.state.CurrentRoleName() != role
	current := role
	s.state.Phase = models.PhaseRunning
	s.state.Running = true
	s.state.Finished = false
	s.state.CurrentRole = &current
	history := s.transcriptLocked()
	state := s.stateLocked()
	observer := s.observer
	s.mu.Unlock()

	if changed {
		observer.StateChanged(state)
	}
	return history, nil
}

func (s *Session) appendEntry(r *run, role models.Role, text string) error {
	s.mu.Lock()
	if s.stale(r) {
		s.mu.Unlock()
		return ErrRunAborted
	}
	entry := models.NewTranscriptEntry(role, text, r.mode)
	s.transcript = append(s.transcript, entry)
	synced := role.IsCodeWriter() && s.syncLocked(r.mode, r.lang, entry.Content)
	files, active := s.workspace.Files(), s.workspace.ActiveName()
	observer := s.observer
	s.mu.Unlock()

	observer.EntryAppended(entry)
	if synced {
		observer.WorkspaceChanged(files, active)
	}
	return nil
}

// fail ends r after a failed step. The transcript keeps the entries produced so far.
func (s *Session) fail(ctx context.Context, r *run, role models.Role, cause error) error {
	s.mu.Lock()
	if s.stale(r) {
		s.mu.Unlock()
		s.recordOutcome(r, statusAborted)
		return ErrRunAborted
	}
	stepErr := &StepError{Role: role, Err: cause}
	s.state = models.PipelineState{
		Phase:    models.PhaseFinished,
		Finished: true,
		Mode:     r.mode,
		Err:      stepErr.Error(),
		RunID:    r.id,
	}
	s.cancel = nil
	state := s.stateLocked()
	observer := s.observer
	s.mu.Unlock()

	s.recordOutcome(r, statusFailed)
	s.logger.WithContext(ctx).Error("run failed",
		logging.String("role", string(role)),
		logging.Err(cause),
	)
	s.console.Append(models.LineError, "[System Error]: Failed to process step. "+cause.Error())
	observer.StateChanged(state)
	return stepErr
}

func (s *Session) recordOutcome(r *run, status string) {
	s.metrics.IncrementCounter(metrics.PipelineRuns.Name, metrics.Labels("mode", string(r.mode), "status", status))
}

// IsAborted reports whether err means the run was discarded by Reset
func IsAborted(err error) bool {
	return errors.Is(err, ErrRunAborted)
}
