package keystore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fintrail/audita/internal/common"
)

// InMemoryStore keeps key versions in process memory. Used for tests and for
// the demo fallback when the primary store is unreachable.
type InMemoryStore struct {
	mu         sync.RWMutex
	passphrase []byte
	keys       []*Key
}

func NewInMemoryStore(passphrase []byte) *InMemoryStore {
	return &InMemoryStore{passphrase: passphrase}
}

func (s *InMemoryStore) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.Active {
			return nil
		}
	}
	s.appendKeyLocked()
	return nil
}

func (s *InMemoryStore) Active(ctx context.Context) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.Active {
			return k, nil
		}
	}
	return nil, common.ErrNotFound
}

func (s *InMemoryStore) ByVersion(ctx context.Context, version int) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.Version == version {
			return k, nil
		}
	}
	return nil, common.ErrNotFound
}

func (s *InMemoryStore) Rotate(ctx context.Context) (*Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		k.Active = false
	}
	return s.appendKeyLocked(), nil
}

func (s *InMemoryStore) appendKeyLocked() *Key {
	salt := common.GenerateRandByteArray(saltSize)
	k := &Key{
		ID:        uuid.NewString(),
		Version:   len(s.keys) + 1,
		Algorithm: AlgorithmAESGCM,
		Salt:      salt,
		CreatedAt: time.Now(),
		Active:    true,
		material:  DeriveMaterial(s.passphrase, salt),
	}
	s.keys = append(s.keys, k)
	return k
}
