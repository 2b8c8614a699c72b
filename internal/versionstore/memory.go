package versionstore

import (
	"context"
	"sync"
	"time"

	"github.com/fintrail/audita/internal/common"
)

// InMemoryRepository is the non-durable repository used by tests and by the
// demo fallback when Postgres is unreachable.
type InMemoryRepository struct {
	mu       sync.RWMutex
	entries  map[string][]*VersionEntry // subject -> oldest-first
	counters map[string]int64
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		entries:  make(map[string][]*VersionEntry),
		counters: make(map[string]int64),
	}
}

func (r *InMemoryRepository) Append(ctx context.Context, entry *VersionEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[entry.SubjectID]++
	entry.Version = r.counters[entry.SubjectID]

	cp := *entry
	cp.Previous = entry.Previous.Clone()
	cp.Next = entry.Next.Clone()
	r.entries[entry.SubjectID] = append(r.entries[entry.SubjectID], &cp)
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, subjectID string, version int64) (*VersionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries[subjectID] {
		if e.Version == version {
			cp := *e
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *InMemoryRepository) List(ctx context.Context, subjectID string, f Filter) ([]*VersionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.entries[subjectID]
	matched := make([]*VersionEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- { // newest first
		if f.matches(all[i]) {
			cp := *all[i]
			matched = append(matched, &cp)
		}
	}

	if f.Offset >= len(matched) {
		return []*VersionEntry{}, nil
	}
	matched = matched[f.Offset:]
	if limit := f.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *InMemoryRepository) MaxVersion(ctx context.Context, subjectID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[subjectID], nil
}

func (r *InMemoryRepository) CountBySubject(ctx context.Context) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int64, len(r.entries))
	for subject, list := range r.entries {
		if len(list) > 0 {
			out[subject] = int64(len(list))
		}
	}
	return out, nil
}

func (r *InMemoryRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for subject, list := range r.entries {
		kept := list[:0]
		for _, e := range list {
			if e.OccurredAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		r.entries[subject] = kept
	}
	return removed, nil
}
