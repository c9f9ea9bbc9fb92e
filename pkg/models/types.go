package models

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies one of the fixed agent personas
type Role string

const (
	RoleProductOwner Role = "PRODUCT_OWNER"
	RoleMechanic     Role = "MECHANIC"
	RoleInnovator    Role = "INNOVATOR"
	RoleTechLead     Role = "TECH_LEAD"
	RoleDesigner     Role = "DESIGNER"
	RoleQAEngineer   Role = "QA_ENGINEER"
	RoleSynthesizer  Role = "SYNTHESIZER"
	RoleCritic       Role = "CRITIC"
)

// IsCodeWriter reports whether the role's output is mirrored into the workspace
func (r Role) IsCodeWriter() bool {
	return r == RoleSynthesizer
}

// Mode is the selected output domain
type Mode string

const (
	ModeWebsite       Mode = "website"
	ModeChatbot       Mode = "chatbot"
	ModePromptRefiner Mode = "prompt-refiner"
)

// Modes lists every mode in display order
var Modes = []Mode{ModeWebsite, ModeChatbot, ModePromptRefiner}

// ModeInfo holds the static display data of a mode
type ModeInfo struct {
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
}

var modeInfo = map[Mode]ModeInfo{
	ModeWebsite:       {Label: "Static Site", Description: "One-file HTML + Three.js 3D generator."},
	ModeChatbot:       {Label: "Telegram Bot", Description: "Node.js or Python bot logic."},
	ModePromptRefiner: {Label: "Prompt Refiner", Description: "Refine any text into a super prompt."},
}

// Info returns the display data for the mode
func (m Mode) Info() ModeInfo {
	return modeInfo[m]
}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	_, ok := modeInfo[m]
	return ok
}

// Next returns the following mode in display order, wrapping around
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeWebsite
}

// ParseMode parses a mode name, accepting a few legacy aliases
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "website", "site", "static_site", "static-site":
		return ModeWebsite, nil
	case "chatbot", "bot", "tg_bot", "tg-bot", "telegram":
		return ModeChatbot, nil
	case "prompt-refiner", "prompt", "prompt_optimizer", "refiner":
		return ModePromptRefiner, nil
	}
	return "", fmt.Errorf("unknown mode %q (want website, chatbot or prompt-refiner)", s)
}

// BotLanguage is the chatbot mode's target scripting language
type BotLanguage string

const (
	BotJavaScript BotLanguage = "javascript"
	BotPython     BotLanguage = "python"
)

// BotLanguages lists the supported bot languages
var BotLanguages = []BotLanguage{BotJavaScript, BotPython}

// Toggle returns the other bot language
func (l BotLanguage) Toggle() BotLanguage {
	if l == BotPython {
		return BotJavaScript
	}
	return BotPython
}

// ParseBotLanguage parses a bot language name
func ParseBotLanguage(s string) (BotLanguage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "javascript", "js", "node":
		return BotJavaScript, nil
	case "python", "py":
		return BotPython, nil
	}
	return "", fmt.Errorf("unknown bot language %q (want javascript or python)", s)
}

// TranscriptEntry is one generation step's output. Mode is stamped per entry so
// profile lookups for historical entries stay correct after a mode switch.
type TranscriptEntry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Mode      Mode      `json:"mode"`
}

// Attachment is an immutable binary reference passed to every gateway call of a run
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
}

// Phase is the coarse pipeline lifecycle position
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseClarifying Phase = "clarifying"
	PhaseRunning    Phase = "running"
	PhaseFinished   Phase = "finished"
)

// PipelineState is the observable state of the orchestrator
type PipelineState struct {
	Phase       Phase  `json:"phase"`
	Running     bool   `json:"running"`
	CurrentRole *Role  `json:"current_role,omitempty"`
	Finished    bool   `json:"finished"`
	Mode        Mode   `json:"mode"`
	Err         string `json:"error,omitempty"`
	RunID       string `json:"run_id,omitempty"`
}

// Busy reports whether a run holds the session guard
func (s PipelineState) Busy() bool {
	return s.Phase == PhaseClarifying || s.Phase == PhaseRunning
}

// Validate checks the state invariants
func (s PipelineState) Validate() error {
	if s.Running && s.Finished {
		return &ValidationError{Field: "finished", Message: "running and finished are mutually exclusive"}
	}
	if (s.CurrentRole != nil) != s.Running {
		return &ValidationError{Field: "current_role", Message: "current role must be set exactly while running"}
	}
	return nil
}

// VirtualFile is a named editable text file in the workspace
type VirtualFile struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
	ReadOnly bool   `json:"read_only,omitempty"`
}

// LineKind classifies a console line
type LineKind string

const (
	LineInfo    LineKind = "info"
	LineError   LineKind = "error"
	LineSuccess LineKind = "success"
	LineCommand LineKind = "command"
)

// ConsoleLine is one line of simulated run output
type ConsoleLine struct {
	ID        string    `json:"id"`
	Kind      LineKind  `json:"kind"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidationError represents a model validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error on field '" + e.Field + "': " + e.Message
}
