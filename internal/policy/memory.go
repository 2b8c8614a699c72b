package policy

import (
	"context"
	"sync"
	"time"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*AuditConfiguration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{configs: make(map[string]*AuditConfiguration)}
}

func (s *InMemoryStore) Get(ctx context.Context, tenantID string) (*AuditConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.configs[tenantID]; ok {
		cp := *cfg
		return &cp, nil
	}
	return Default(tenantID), nil
}

func (s *InMemoryStore) Upsert(ctx context.Context, cfg *AuditConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	cp.UpdatedAt = time.Now()
	s.configs[cfg.TenantID] = &cp
	return nil
}
