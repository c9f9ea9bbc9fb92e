package console

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

// Clock schedules scripted lines. Tests inject a virtual clock.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is done
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Clipboard writes text to the system clipboard
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard is backed by the platform clipboard
type SystemClipboard struct{}

// WriteAll copies text to the clipboard
func (SystemClipboard) WriteAll(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}
	return nil
}
