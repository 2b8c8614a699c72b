package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_DefaultWhenUnset(t *testing.T) {
	s := NewInMemoryStore()

	cfg, err := s.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.TenantID)
	assert.Equal(t, 1825, cfg.RetentionDays)
	assert.Empty(t, cfg.AuditedFields)
	assert.False(t, cfg.NotifyOnChange)
}

func TestInMemoryStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	require.NoError(t, s.Upsert(ctx, &AuditConfiguration{
		TenantID:               "acme",
		RetentionDays:          90,
		AuditedFields:          []string{"nome", "cpf"},
		NotifyOnChange:         true,
		NotificationRecipients: []string{"compliance@acme.example"},
	}))

	cfg, err := s.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.Equal(t, []string{"nome", "cpf"}, cfg.AuditedFields)
	assert.True(t, cfg.NotifyOnChange)
	assert.False(t, cfg.UpdatedAt.IsZero())

	// Mutating the returned copy must not leak into the store.
	cfg.RetentionDays = 1
	again, err := s.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 90, again.RetentionDays)
}
