package versionstore

import (
	"context"
	"time"
)

// Repository persists version entries. Append allocates the entry's version
// number atomically per subject and fills it in on the passed entry.
type Repository interface {
	Append(ctx context.Context, entry *VersionEntry) error

	// Get returns one entry by subject and version, common.ErrNotFound
	// when no such entry exists.
	Get(ctx context.Context, subjectID string, version int64) (*VersionEntry, error)

	// List returns the subject's history newest-first, narrowed by the
	// filter.
	List(ctx context.Context, subjectID string, f Filter) ([]*VersionEntry, error)

	// MaxVersion returns the highest version ever allocated for the
	// subject, 0 when the subject has no history. Purged entries still
	// count: the counter never moves backwards.
	MaxVersion(ctx context.Context, subjectID string) (int64, error)

	// CountBySubject returns the number of retained entries per subject.
	CountBySubject(ctx context.Context) (map[string]int64, error)

	// PurgeOlderThan removes entries recorded before the cutoff and
	// reports how many were removed. Version numbers are not reassigned.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
