// Package accesslog records who viewed, decrypted, or exported protected
// fields. It is append-only with two independent maintenance rules: a FIFO
// cap on total stored events and an age-based purge run by retention cleanup.
package accesslog

import "time"

// DefaultMaxEvents is the FIFO cap applied after each append.
const DefaultMaxEvents = 1000

// Action is what the caller did with the protected data.
type Action string

const (
	ActionView    Action = "view"
	ActionDecrypt Action = "decrypt"
	ActionExport  Action = "export"
)

// Event is one audit-of-audit record. DataType carries either the field name
// or the sensitive data type that was accessed.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
	DataType  string    `json:"dataType"`
	SubjectID string    `json:"subjectId"`
	Action    Action    `json:"action"`
}

// Filter narrows a query; zero-valued fields are ignored and the remaining
// conditions are AND-combined.
type Filter struct {
	UserID   string
	DataType string
	Action   Action
	From     time.Time
	To       time.Time
}

func (f Filter) matches(e Event) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.DataType != "" && e.DataType != f.DataType {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}
