package models

import (
	"time"

	"github.com/google/uuid"
)

// NewTranscriptEntry creates a transcript entry stamped with the given mode
func NewTranscriptEntry(role Role, content string, mode Mode) TranscriptEntry {
	return TranscriptEntry{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Mode:      mode,
	}
}

// NewAttachment creates an attachment, copying data so later caller mutation cannot leak in
func NewAttachment(name string, data []byte, mimeType string) Attachment {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Attachment{
		ID:       uuid.New().String(),
		Name:     name,
		Data:     buf,
		MIMEType: mimeType,
	}
}

// NewConsoleLine creates a console line
func NewConsoleLine(kind LineKind, text string, at time.Time) ConsoleLine {
	return ConsoleLine{
		ID:        uuid.New().String(),
		Kind:      kind,
		Text:      text,
		Timestamp: at,
	}
}

// CurrentRoleName returns the running role or the empty role
func (s PipelineState) CurrentRoleName() Role {
	if s.CurrentRole == nil {
		return ""
	}
	return *s.CurrentRole
}
