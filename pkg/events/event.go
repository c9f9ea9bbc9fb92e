// Package events publishes pipeline activity to a message bus so runs can be
// followed from outside the process.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/syntor/forge/pkg/models"
)

// Type identifies what happened
type Type string

const (
	TypeStateChanged     Type = "state_changed"
	TypeEntryAppended    Type = "entry_appended"
	TypeEntryUpdated     Type = "entry_updated"
	TypeWorkspaceChanged Type = "workspace_changed"
	TypeConsoleLine      Type = "console_line"
)

// DefaultTopic is the topic events are written to when none is configured
const DefaultTopic = "forge.pipeline.events"

// ErrClosed is returned when publishing after Close
var ErrClosed = errors.New("events: publisher closed")

// Event is one pipeline notification as it travels on the bus
type Event struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	SessionID string          `json:"session_id"`
	RunID     string          `json:"run_id,omitempty"`
	Mode      models.Mode     `json:"mode,omitempty"`
	Phase     models.Phase    `json:"phase,omitempty"`
	Role      models.Role     `json:"role,omitempty"`
	EntryID   string          `json:"entry_id,omitempty"`
	Text      string          `json:"text,omitempty"`
	Kind      models.LineKind `json:"kind,omitempty"`
	Files     []string        `json:"files,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates an event stamped with a fresh ID and the current time
func NewEvent(t Type, sessionID string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

// Key is the partitioning key: events of one run stay ordered
func (e Event) Key() string {
	if e.RunID != "" {
		return e.RunID
	}
	return e.SessionID
}

// ToJSON serializes the event
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON deserializes an event
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher sends events somewhere
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

// Publish records event
func (r *Recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.events = append(r.events, event)
	return nil
}

// Close stops recording
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events of type t
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
