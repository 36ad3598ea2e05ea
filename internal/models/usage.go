package models

import "time"

// Session is a reconstructed period of feature usage: one checkout paired
// with its return. The published session list contains only closed sessions
// with non-negative duration; open sessions exist only transiently inside the
// reconciler.
type Session struct {
	User            string    `json:"user"`
	Host            string    `json:"host"`
	Feature         string    `json:"feature"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes float64   `json:"durationMinutes"`
}

// TimeRange is the span covered by a parsed log.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParsedLog is the complete result of interpreting one activity log.
// Everything here is immutable once the parse completes; analytics are
// recomputed from Sessions and Denials on demand.
type ParsedLog struct {
	Events    []LogEvent     `json:"events"`
	Sessions  []Session      `json:"sessions"`
	Denials   []LogEvent     `json:"denials"`
	Metadata  ServerMetadata `json:"metadata"`
	TimeRange *TimeRange     `json:"timeRange,omitempty"`
}

// NewParsedLog creates an empty ParsedLog with metadata placeholders set.
func NewParsedLog() *ParsedLog {
	return &ParsedLog{
		Events:   make([]LogEvent, 0),
		Sessions: make([]Session, 0),
		Denials:  make([]LogEvent, 0),
		Metadata: NewServerMetadata(),
	}
}
