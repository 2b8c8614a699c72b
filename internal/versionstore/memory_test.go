package versionstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrail/audita/internal/common"
	"github.com/fintrail/audita/internal/diff"
	"github.com/fintrail/audita/internal/fieldval"
)

func entry(subject string, op diff.Operation, at time.Time) *VersionEntry {
	return &VersionEntry{
		ID:         fmt.Sprintf("%s-%d", subject, at.UnixNano()),
		SubjectID:  subject,
		Operation:  op,
		Changed:    diff.AllFields(),
		ActorID:    "u1",
		OccurredAt: at,
	}
}

func TestInMemoryRepository_AppendAllocatesSequentialVersions(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRepository()
	at := time.Now()

	for i := 1; i <= 3; i++ {
		e := entry("c1", diff.OperationUpdate, at)
		require.NoError(t, r.Append(ctx, e))
		assert.Equal(t, int64(i), e.Version)
	}

	other := entry("c2", diff.OperationCreate, at)
	require.NoError(t, r.Append(ctx, other))
	assert.Equal(t, int64(1), other.Version, "counters are per subject")
}

func TestInMemoryRepository_ConcurrentAppendsNeverCollide(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRepository()

	const n = 50
	var wg sync.WaitGroup
	versions := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := entry("c1", diff.OperationUpdate, time.Now())
			require.NoError(t, r.Append(ctx, e))
			versions <- e.Version
		}()
	}
	wg.Wait()
	close(versions)

	seen := make(map[int64]bool)
	for v := range versions {
		assert.False(t, seen[v], "version %d allocated twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, n)
}

func TestInMemoryRepository_GetAndList(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRepository()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	e1 := entry("c1", diff.OperationCreate, base)
	e2 := entry("c1", diff.OperationUpdate, base.Add(time.Hour))
	e2.Changed = diff.Fields("nome")
	e2.ActorID = "u2"
	e3 := entry("c1", diff.OperationUpdate, base.Add(2*time.Hour))
	e3.Changed = diff.Fields("email")
	for _, e := range []*VersionEntry{e1, e2, e3} {
		require.NoError(t, r.Append(ctx, e))
	}

	got, err := r.Get(ctx, "c1", 2)
	require.NoError(t, err)
	assert.Equal(t, diff.OperationUpdate, got.Operation)

	_, err = r.Get(ctx, "c1", 9)
	assert.ErrorIs(t, err, common.ErrNotFound)

	all, err := r.List(ctx, "c1", Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].Version, "newest first")

	byActor, err := r.List(ctx, "c1", Filter{ActorID: "u2"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, int64(2), byActor[0].Version)

	byField, err := r.List(ctx, "c1", Filter{ChangedFields: []string{"nome"}})
	require.NoError(t, err)
	require.Len(t, byField, 2, "create entry matches every field through the sentinel")

	windowed, err := r.List(ctx, "c1", Filter{From: base.Add(30 * time.Minute), To: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, int64(2), windowed[0].Version)

	paged, err := r.List(ctx, "c1", Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, int64(2), paged[0].Version)
}

func TestInMemoryRepository_PurgeKeepsNumbering(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRepository()
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.Append(ctx, entry("c1", diff.OperationCreate, old)))
	require.NoError(t, r.Append(ctx, entry("c1", diff.OperationUpdate, time.Now())))

	removed, err := r.PurgeOlderThan(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// The counter never moves backwards: the next append is version 3.
	next := entry("c1", diff.OperationUpdate, time.Now())
	require.NoError(t, r.Append(ctx, next))
	assert.Equal(t, int64(3), next.Version)

	_, err = r.Get(ctx, "c1", 1)
	assert.True(t, errors.Is(err, common.ErrNotFound), "purged entry stays gone")
}

func TestInMemoryRepository_SnapshotsAreCopied(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRepository()

	snap := fieldval.Snapshot{"nome": fieldval.String("Ana")}
	e := entry("c1", diff.OperationCreate, time.Now())
	e.Next = snap
	require.NoError(t, r.Append(ctx, e))

	snap["nome"] = fieldval.String("mutated")

	got, err := r.Get(ctx, "c1", 1)
	require.NoError(t, err)
	name, _ := got.Next["nome"].Str()
	assert.Equal(t, "Ana", name)
}

func TestInMemoryRepository_CountBySubject(t *testing.T) {
	ctx := context.Background()
	r := NewInMemoryRepository()

	require.NoError(t, r.Append(ctx, entry("c1", diff.OperationCreate, time.Now())))
	require.NoError(t, r.Append(ctx, entry("c1", diff.OperationUpdate, time.Now())))
	require.NoError(t, r.Append(ctx, entry("c2", diff.OperationCreate, time.Now())))

	counts, err := r.CountBySubject(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"c1": 2, "c2": 1}, counts)
}
