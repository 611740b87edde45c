package store

import (
	"time"

	"github.com/cwbudde/shadowcast/internal/shadow"
)

// Record is the persisted summary of one synthesis pass.
// The composite itself lives next to it as an artifact.
type Record struct {
	// ID is the unique identifier of the render
	ID string `json:"id"`

	// Input paths as given by the caller. Depth is optional.
	Foreground string `json:"foreground"`
	Background string `json:"background"`
	Depth      string `json:"depth,omitempty"`

	// Light is the normalized light the pass used
	Light  shadow.Light `json:"light"`
	Layers int          `json:"layers"`

	Placement    shadow.Placement `json:"placement"`
	DepthApplied bool             `json:"depthApplied"`

	// DropShadow is the CSS single-shadow approximation
	DropShadow string `json:"dropShadow"`

	// Artifacts lists the artifact names written for this record
	Artifacts []string `json:"artifacts,omitempty"`

	Elapsed   time.Duration `json:"elapsed"`
	Timestamp time.Time     `json:"timestamp"`
}

// RecordInfo is the listing view of a Record.
type RecordInfo struct {
	ID         string       `json:"id"`
	Foreground string       `json:"foreground"`
	Background string       `json:"background"`
	Light      shadow.Light `json:"light"`
	Timestamp  time.Time    `json:"timestamp"`
}

// NewRecord builds a record from a finished pass.
func NewRecord(id, fg, bg, depth string, res *shadow.Result) *Record {
	return &Record{
		ID:           id,
		Foreground:   fg,
		Background:   bg,
		Depth:        depth,
		Light:        res.Mapping.Light,
		Layers:       res.Mapping.Layers,
		Placement:    res.Placement,
		DepthApplied: res.DepthApplied,
		DropShadow:   res.DropShadow.String(),
		Elapsed:      res.Elapsed,
		Timestamp:    time.Now(),
	}
}

// ToInfo converts a full Record to RecordInfo.
func (r *Record) ToInfo() RecordInfo {
	return RecordInfo{
		ID:         r.ID,
		Foreground: r.Foreground,
		Background: r.Background,
		Light:      r.Light,
		Timestamp:  r.Timestamp,
	}
}

// Validate checks if the record has valid data.
func (r *Record) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if r.Foreground == "" {
		return &ValidationError{Field: "Foreground", Reason: "cannot be empty"}
	}
	if r.Background == "" {
		return &ValidationError{Field: "Background", Reason: "cannot be empty"}
	}
	if r.Layers < 1 || r.Layers > shadow.MaxLayers {
		return &ValidationError{Field: "Layers", Reason: "out of range"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
