package tui

import (
	"github.com/syntor/forge/pkg/config"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/pipeline"
)

// Session notifications, forwarded from the pipeline observer

// StateChangedMsg carries a new pipeline state
type StateChangedMsg struct {
	State models.PipelineState
}

// EntryAppendedMsg signals a finished step
type EntryAppendedMsg struct {
	Entry models.TranscriptEntry
}

// EntryUpdatedMsg signals an edited transcript entry
type EntryUpdatedMsg struct {
	Entry models.TranscriptEntry
}

// WorkspaceChangedMsg carries the file list after any workspace change
type WorkspaceChangedMsg struct {
	Files  []models.VirtualFile
	Active string
}

// ConsoleLineMsg carries one line of simulated output
type ConsoleLineMsg struct {
	Line models.ConsoleLine
}

// ConsoleClearedMsg signals that the console was emptied
type ConsoleClearedMsg struct{}

// Results of blocking session calls run as commands

// RunStartedMsg is the result of Session.Start
type RunStartedMsg struct {
	Clarification *pipeline.Clarification
	Err           error
}

// RunFinishedMsg is the result of SubmitAnswers or SkipClarification
type RunFinishedMsg struct {
	Err error
}

// ConsoleFinishedMsg is the result of a simulated run
type ConsoleFinishedMsg struct {
	Err error
}

// ExportedMsg reports written files
type ExportedMsg struct {
	Dir   string
	Paths []string
	Err   error
}

// ProviderReadyMsg reports the provider check done at startup
type ProviderReadyMsg struct {
	Available bool
	Error     error
}

// ConfigReloadedMsg carries a configuration re-read after a file change
type ConfigReloadedMsg struct {
	Config *config.ForgeConfig
}

// ClipboardCopyMsg signals that content was copied to clipboard
type ClipboardCopyMsg struct {
	Success bool
	Index   int
	Error   error
}

