// Package protection keeps sensitive field values encrypted at rest and
// decides, per caller, whether a read sees the plaintext or only the masked
// preview. Key material comes from the keystore; every outcome that is not a
// successful decryption collapses into the same masked-preview fallback.
package protection

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"time"

	"github.com/fintrail/audita/internal/common"
	"github.com/fintrail/audita/internal/keystore"
)

const ivSize = 12

// expiredKeyGrace is how long past ExpiresAt a retired key may still decrypt
// historical data. Beyond that the ciphertext is only ever shown masked.
const expiredKeyGrace = 30 * 24 * time.Hour

// ProtectedValue is the wire/storage form of an encrypted field. The masked
// preview is derived from the plain value before encryption, so it can be
// displayed without touching key material.
type ProtectedValue struct {
	CipherText    []byte `json:"cipherText"`
	IV            []byte `json:"iv"`
	AuthTag       []byte `json:"authTag,omitempty"`
	KeyVersion    int    `json:"keyVersion"`
	MaskedPreview string `json:"maskedPreview"`
}

// Encryptor performs authenticated encryption with keystore-managed keys.
type Encryptor struct {
	keys keystore.Store
}

func NewEncryptor(keys keystore.Store) *Encryptor {
	return &Encryptor{keys: keys}
}

// Encrypt seals plaintext with the active key and a fresh random IV. The
// GCM tag is stored separately so the stored layout matches the wire model.
func (e *Encryptor) Encrypt(ctx context.Context, plaintext string) (*ProtectedValue, error) {
	key, err := e.keys.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("active key: %w", err)
	}

	aesgcm, err := newGCM(key.Material())
	if err != nil {
		return nil, err
	}

	iv := common.GenerateRandByteArray(ivSize)
	sealed := aesgcm.Seal(nil, iv, []byte(plaintext), nil)

	tagAt := len(sealed) - aesgcm.Overhead()
	return &ProtectedValue{
		CipherText: sealed[:tagAt],
		IV:         iv,
		AuthTag:    sealed[tagAt:],
		KeyVersion: key.Version,
	}, nil
}

// Decrypt opens a protected value with the key version it was sealed under.
// Every failure mode — unknown version, key expired beyond grace, corrupted
// or tampered ciphertext — surfaces as common.ErrDecryption so callers can
// fall back to the masked preview without inspecting the cause.
func (e *Encryptor) Decrypt(ctx context.Context, pv *ProtectedValue) (string, error) {
	key, err := e.keys.ByVersion(ctx, pv.KeyVersion)
	if err != nil {
		return "", fmt.Errorf("%w: unknown key version %d", common.ErrDecryption, pv.KeyVersion)
	}
	if key.ExpiresAt != nil && time.Since(*key.ExpiresAt) > expiredKeyGrace {
		return "", fmt.Errorf("%w: key version %d expired", common.ErrDecryption, pv.KeyVersion)
	}

	aesgcm, err := newGCM(key.Material())
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	sealed := make([]byte, 0, len(pv.CipherText)+len(pv.AuthTag))
	sealed = append(sealed, pv.CipherText...)
	sealed = append(sealed, pv.AuthTag...)

	plaintext, err := aesgcm.Open(nil, pv.IV, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", common.ErrDecryption)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
