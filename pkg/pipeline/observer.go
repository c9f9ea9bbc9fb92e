package pipeline

import "github.com/syntor/forge/pkg/models"

// Observer receives session changes. Callbacks run on the goroutine that made
// the change, after the session lock is released, and must not block for long.
type Observer interface {
	StateChanged(state models.PipelineState)
	EntryAppended(entry models.TranscriptEntry)
	EntryUpdated(entry models.TranscriptEntry)
	WorkspaceChanged(files []models.VirtualFile, active string)
	ConsoleLine(line models.ConsoleLine)
	ConsoleCleared()
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) StateChanged(models.PipelineState)            {}
func (NopObserver) EntryAppended(models.TranscriptEntry)          {}
func (NopObserver) EntryUpdated(models.TranscriptEntry)           {}
func (NopObserver) WorkspaceChanged([]models.VirtualFile, string) {}
func (NopObserver) ConsoleLine(models.ConsoleLine)                {}
func (NopObserver) ConsoleCleared()                               {}

// MultiObserver fans notifications out in order
type MultiObserver []Observer

func (m MultiObserver) StateChanged(state models.PipelineState) {
	for _, o := range m {
		o.StateChanged(state)
	}
}

func (m MultiObserver) EntryAppended(entry models.TranscriptEntry) {
	for _, o := range m {
		o.EntryAppended(entry)
	}
}

func (m MultiObserver) EntryUpdated(entry models.TranscriptEntry) {
	for _, o := range m {
		o.EntryUpdated(entry)
	}
}

func (m MultiObserver) WorkspaceChanged(files []models.VirtualFile, active string) {
	for _, o := range m {
		o.WorkspaceChanged(files, active)
	}
}

func (m MultiObserver) ConsoleLine(line models.ConsoleLine) {
	for _, o := range m {
		o.ConsoleLine(line)
	}
}

func (m MultiObserver) ConsoleCleared() {
	for _, o := range m {
		o.ConsoleCleared()
	}
}
