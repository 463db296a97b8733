package model

import (
	"time"
)

// Run represents one end-to-end pipeline execution.
type Run struct {
	ID         string    `json:"id"`
	Tenant     string    `json:"tenant"`
	Status     string    `json:"status"` // running, completed, not_ready, failed
	GateStatus string    `json:"gate_status,omitempty"`
	Questions  []string  `json:"questions,omitempty"`
	BundlePath string    `json:"bundle_path,omitempty"`
	ErrorMsg   string    `json:"error_msg,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Run status constants
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusNotReady  = "not_ready"
	StatusFailed    = "failed"
)

// Evidence is one supporting item attached to an intake, either an uploaded
// file (type "file", value = stored location) or a caller-supplied note.
// Order is preserved from input.
type Evidence struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// StageOutput is the immutable result of executing one pipeline stage:
// a rendered markdown document plus structured metadata.
type StageOutput struct {
	Stage    string
	Markdown string
	Data     map[string]any
}
