// Package versionstore keeps the append-only version history of subject
// records. Versions are allocated per subject starting at 1 and are never
// reused or renumbered, even after retention cleanup.
package versionstore

import (
	"time"

	"github.com/fintrail/audita/internal/diff"
	"github.com/fintrail/audita/internal/fieldval"
)

// VersionEntry is one recorded mutation of a subject. Previous is nil for
// Create, Next is nil for Delete.
type VersionEntry struct {
	ID         string            `json:"id"`
	SubjectID  string            `json:"subjectId"`
	Version    int64             `json:"version"`
	Operation  diff.Operation    `json:"operation"`
	Previous   fieldval.Snapshot `json:"previous,omitempty"`
	Next       fieldval.Snapshot `json:"next,omitempty"`
	Changed    diff.ChangeSet    `json:"changedFields"`
	ActorID    string            `json:"actorId"`
	Reason     string            `json:"reason,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// DefaultListLimit applies when a filter does not set one.
const DefaultListLimit = 50

// Filter narrows a history listing. Zero values mean "no constraint".
type Filter struct {
	Operation     diff.Operation
	ActorID       string
	From          time.Time
	To            time.Time
	ChangedFields []string
	Limit         int
	Offset        int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// matches applies the in-process filter semantics shared by the in-memory
// repository and the post-scan narrowing of list results.
func (f Filter) matches(e *VersionEntry) bool {
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if !f.From.IsZero() && e.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.OccurredAt.After(f.To) {
		return false
	}
	if len(f.ChangedFields) > 0 && !e.Changed.Intersects(f.ChangedFields) {
		return false
	}
	return true
}
