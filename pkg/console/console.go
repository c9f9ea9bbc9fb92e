// Package console simulates running the generated artifact: a scripted,
// timed sequence of status lines with no real process behind it.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/models"
)

// ErrClipboardUnavailable wraps platform clipboard failures
var ErrClipboardUnavailable = errors.New("console: clipboard unavailable")

// Console accumulates simulated run output
type Console struct {
	mu        sync.RWMutex
	lines     []models.ConsoleLine
	clock     Clock
	clipboard Clipboard
	logger    logging.Logger
	onLine    func(models.ConsoleLine)
	onClear   func()
}

// Option configures a Console
type Option func(*Console)

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(con *Console) { con.clock = c }
}

// WithClipboard replaces the system clipboard
func WithClipboard(c Clipboard) Option {
	return func(con *Console) { con.clipboard = c }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(con *Console) { con.logger = l }
}

// New creates an empty console
func New(opts ...Option) *Console {
	c := &Console{
		clock:     SystemClock{},
		clipboard: SystemClipboard{},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnLine registers a callback invoked after each appended line
func (c *Console) OnLine(fn func(models.ConsoleLine)) {
	c.mu.Lock()
	c.onLine = fn
	c.mu.Unlock()
}

// OnClear registers a callback invoked after the console is cleared
func (c *Console) OnClear(fn func()) {
	c.mu.Lock()
	c.onClear = fn
	c.mu.Unlock()
}

// Lines returns a copy of the accumulated output
func (c *Console) Lines() []models.ConsoleLine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.ConsoleLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Clear drops all output
func (c *Console) Clear() {
	c.mu.Lock()
	c.lines = nil
	fn := c.onClear
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Append adds a line stamped with the console clock
func (c *Console) Append(kind models.LineKind, text string) models.ConsoleLine {
	line := models.NewConsoleLine(kind, text, c.clock.Now())
	c.mu.Lock()
	c.lines = append(c.lines, line)
	fn := c.onLine
	c.mu.Unlock()
	if fn != nil {
		fn(line)
	}
	return line
}

// Run plays the script for mode. Chatbot runs start from a clean console.
// Prompt-refiner runs copy the active file to the clipboard and report the
// outcome as a single line. Cancelling ctx stops the script and keeps what was
// already printed.
func (c *Console) Run(ctx context.Context, mode models.Mode, lang models.BotLanguage, active *models.VirtualFile) error {
	if mode == models.ModePromptRefiner {
		c.copyActive(active)
		return nil
	}

	if mode == models.ModeChatbot {
		c.Clear()
	}

	steps := Script(mode, lang)
	var elapsed time.Duration
	for _, step := range steps {
		if wait := step.Delay - elapsed; wait > 0 {
			if err := c.clock.Sleep(ctx, wait); err != nil {
				c.logger.Debug("console script interrupted", logging.String("mode", string(mode)), logging.Err(err))
				return err
			}
			elapsed = step.Delay
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Append(step.Kind, step.Text)
	}
	return nil
}

func (c *Console) copyActive(active *models.VirtualFile) {
	if active == nil {
		c.Append(models.LineError, "No active file to copy.")
		return
	}
	if err := c.clipboard.WriteAll(active.Content); err != nil {
		c.logger.Warn("clipboard write failed", logging.String("file", active.Name), logging.Err(err))
		c.Append(models.LineError, fmt.Sprintf("Could not copy %s to clipboard: %v", active.Name, err))
		return
	}
	c.Append(models.LineSuccess, fmt.Sprintf("Copied %s to clipboard.", active.Name))
}
