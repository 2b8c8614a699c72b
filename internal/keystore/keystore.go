// Package keystore manages versioned encryption key material. Exactly one
// key per algorithm family is active for new encryptions; retired versions
// are kept forever so historical ciphertexts stay decryptable after rotation.
//
// Raw key bytes are never persisted. Each key row stores a random salt, and
// the material is derived on load with argon2id from the process master
// passphrase and that salt.
package keystore

import (
	"context"
	"time"

	"golang.org/x/crypto/argon2"
)

// AlgorithmAESGCM is the only algorithm family currently produced.
const AlgorithmAESGCM = "aes-256-gcm"

const saltSize = 16

// Key is one version of key material.
type Key struct {
	ID        string
	Version   int
	Algorithm string
	Salt      []byte
	CreatedAt time.Time
	ExpiresAt *time.Time
	Active    bool

	material []byte
}

// Material returns the derived key bytes.
func (k *Key) Material() []byte { return k.material }

// Store provides active/historical key lookup and rotation.
type Store interface {
	// Bootstrap ensures at least one active key exists.
	Bootstrap(ctx context.Context) error

	// Active returns the key used for new encryptions.
	Active(ctx context.Context) (*Key, error)

	// ByVersion returns a key by its version, active or retired.
	ByVersion(ctx context.Context, version int) (*Key, error)

	// Rotate retires the active key and activates a fresh one with the
	// next version number. Retired keys are never deleted.
	Rotate(ctx context.Context) (*Key, error)
}

// DeriveMaterial derives 32 bytes of AES-256 key material from the master
// passphrase and a per-key salt.
func DeriveMaterial(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}
