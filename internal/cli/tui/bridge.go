package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/pipeline"
)

// sender is the part of tea.Program the bridge needs
type sender interface {
	Send(msg tea.Msg)
}

// Bridge forwards session notifications to the program as messages. Update
// calls session methods that notify synchronously, and Program.Send blocks
// until the event loop reads, so messages go through an unbounded mailbox
// drained by one goroutine. Order is preserved.
type Bridge struct {
	pipeline.NopObserver

	mu      sync.Mutex
	pending []tea.Msg
	target  sender
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

var _ pipeline.Observer = (*Bridge)(nil)

// NewBridge creates a bridge; messages are held until Attach
func NewBridge() *Bridge {
	return &Bridge{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Attach sets the program and starts delivery
func (b *Bridge) Attach(target sender) {
	b.mu.Lock()
	b.target = target
	b.mu.Unlock()
	go b.loop()
	b.signal()
}

func (b *Bridge) loop() {
	defer close(b.done)
	for range b.wake {
		for {
			b.mu.Lock()
			if len(b.pending) == 0 {
				closed := b.closed
				b.mu.Unlock()
				if closed {
					return
				}
				break
			}
			msg := b.pending[0]
			b.pending = b.pending[1:]
			target := b.target
			b.mu.Unlock()

			target.Send(msg)
		}
	}
}

func (b *Bridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.pending = append(b.pending, msg)
	b.mu.Unlock()
	b.signal()
}

// Close stops delivery; pending messages are dropped
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.pending = nil
	attached := b.target != nil
	b.mu.Unlock()

	b.signal()
	if attached {
		<-b.done
	}
}

func (b *Bridge) StateChanged(state models.PipelineState) {
	b.post(StateChangedMsg{State: state})
}

func (b *Bridge) EntryAppended(entry models.TranscriptEntry) {
	b.post(EntryAppendedMsg{Entry: entry})
}

func (b *Bridge) EntryUpdated(entry models.TranscriptEntry) {
	b.post(EntryUpdatedMsg{Entry: entry})
}

func (b *Bridge) WorkspaceChanged(files []models.VirtualFile, active string) {
	b.post(WorkspaceChangedMsg{Files: files, Active: active})
}

func (b *Bridge) ConsoleLine(line models.ConsoleLine) {
	b.post(ConsoleLineMsg{Line: line})
}

func (b *Bridge) ConsoleCleared() {
	b.post(ConsoleClearedMsg{})
}
