package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/pipeline"
)

const (
	defaultBuffer         = 256
	defaultPublishTimeout = 10 * time.Second
)

var _ pipeline.Observer = (*Observer)(nil)

// Observer turns session notifications into events. Publishing happens on a
// background goroutine so a slow bus never stalls the pipeline; when the
// buffer is full events are dropped and counted.
type Observer struct {
	pipeline.NopObserver

	publisher Publisher
	logger    logging.Logger
	sessionID string
	timeout   time.Duration

	mu      sync.Mutex
	runID   string
	mode    models.Mode
	dropped int
	closed  bool

	queue chan Event
	done  chan struct{}
	once  sync.Once
}

// NewObserver starts a publishing observer for one session
func NewObserver(publisher Publisher, logger logging.Logger) *Observer {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Observer{
		publisher: publisher,
		logger:    logger.With(logging.String("component", "events")),
		sessionID: uuid.New().String(),
		timeout:   defaultPublishTimeout,
		queue:     make(chan Event, defaultBuffer),
		done:      make(chan struct{}),
	}
	go o.loop()
	return o
}

// SessionID identifies the session's events on the bus
func (o *Observer) SessionID() string {
	return o.sessionID
}

func (o *Observer) loop() {
	defer close(o.done)
	for event := range o.queue {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		if err := o.publisher.Publish(ctx, event); err != nil {
			o.logger.Warn("event publish failed",
				logging.String("event_type", string(event.Type)),
				logging.Err(err),
			)
		}
		cancel()
	}
}

func (o *Observer) event(t Type) Event {
	e := NewEvent(t, o.sessionID)
	o.mu.Lock()
	e.RunID = o.runID
	e.Mode = o.mode
	o.mu.Unlock()
	return e
}

// enqueue never blocks. The send happens under mu so Close cannot close the
// queue between the check and the send.
func (o *Observer) enqueue(e Event) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	select {
	case o.queue <- e:
		o.mu.Unlock()
	default:
		o.dropped++
		n := o.dropped
		o.mu.Unlock()
		o.logger.Warn("event buffer full, dropping event",
			logging.String("event_type", string(e.Type)),
			logging.Int("dropped", n),
		)
	}
}

// StateChanged publishes the phase and current role
func (o *Observer) StateChanged(state models.PipelineState) {
	o.mu.Lock()
	o.runID = state.RunID
	o.mode = state.Mode
	o.mu.Unlock()

	e := o.event(TypeStateChanged)
	e.Phase = state.Phase
	e.Role = state.CurrentRoleName()
	e.Text = state.Err
	o.enqueue(e)
}

// EntryAppended publishes a finished step
func (o *Observer) EntryAppended(entry models.TranscriptEntry) {
	o.enqueue(o.entryEvent(TypeEntryAppended, entry))
}

// EntryUpdated publishes an edited entry
func (o *Observer) EntryUpdated(entry models.TranscriptEntry) {
	o.enqueue(o.entryEvent(TypeEntryUpdated, entry))
}

func (o *Observer) entryEvent(t Type, entry models.TranscriptEntry) Event {
	e := o.event(t)
	e.Role = entry.Role
	e.EntryID = entry.ID
	e.Mode = entry.Mode
	e.Text = entry.Content
	return e
}

// WorkspaceChanged publishes the file list with the active file as text
func (o *Observer) WorkspaceChanged(files []models.VirtualFile, active string) {
	e := o.event(TypeWorkspaceChanged)
	e.Files = make([]string, len(files))
	for i, f := range files {
		e.Files[i] = f.Name
	}
	e.Text = active
	o.enqueue(e)
}

// ConsoleLine publishes one line of simulated output
func (o *Observer) ConsoleLine(line models.ConsoleLine) {
	e := o.event(TypeConsoleLine)
	e.Kind = line.Kind
	e.Text = line.Text
	o.enqueue(e)
}

// Dropped returns how many events were discarded because the buffer was full
func (o *Observer) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Close publishes what is queued, then closes the publisher
func (o *Observer) Close() error {
	var err error
	o.once.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()
		close(o.queue)
		<-o.done
		err = o.publisher.Close()
	})
	return err
}
