package accesslog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendN(t *testing.T, s Store, n int, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.Append(context.Background(), Event{
			ID:        fmt.Sprintf("e%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			UserID:    "u1",
			DataType:  "cpf",
			SubjectID: "c1",
			Action:    ActionView,
		}))
	}
}

func TestInMemoryStore_TrimsToCap(t *testing.T) {
	s := NewInMemoryStore(5)
	appendN(t, s, 8, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	got, err := s.Query(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, got, 5)

	// Oldest evicted first: e0..e2 gone, newest first in results.
	assert.Equal(t, "e7", got[0].ID)
	assert.Equal(t, "e3", got[4].ID)
}

func TestInMemoryStore_QueryFilters(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	events := []Event{
		{ID: "a", Timestamp: base, UserID: "u1", DataType: "cpf", Action: ActionView},
		{ID: "b", Timestamp: base.Add(time.Hour), UserID: "u2", DataType: "cpf", Action: ActionDecrypt},
		{ID: "c", Timestamp: base.Add(2 * time.Hour), UserID: "u1", DataType: "email", Action: ActionExport},
	}
	for _, e := range events {
		require.NoError(t, s.Append(ctx, e))
	}

	tests := []struct {
		name   string
		filter Filter
		ids    []string
	}{
		{name: "no filter", filter: Filter{}, ids: []string{"c", "b", "a"}},
		{name: "by user", filter: Filter{UserID: "u1"}, ids: []string{"c", "a"}},
		{name: "by data type", filter: Filter{DataType: "cpf"}, ids: []string{"b", "a"}},
		{name: "by action", filter: Filter{Action: ActionDecrypt}, ids: []string{"b"}},
		{name: "date range", filter: Filter{From: base.Add(30 * time.Minute), To: base.Add(90 * time.Minute)}, ids: []string{"b"}},
		{name: "combined", filter: Filter{UserID: "u1", DataType: "email"}, ids: []string{"c"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Query(ctx, tc.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tc.ids, ids)
		})
	}
}

func TestInMemoryStore_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	appendN(t, s, 10, base)

	removed, err := s.PurgeOlderThan(ctx, base.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5, removed)

	got, err := s.Query(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestPublisher_StampsEvents(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(0)
	p := NewPublisher(store)

	require.NoError(t, p.Emit(ctx, Event{UserID: "u1", DataType: "cpf", Action: ActionView}))

	got, err := store.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}
