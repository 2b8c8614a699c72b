package protection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrail/audita/internal/common"
	"github.com/fintrail/audita/internal/keystore"
)

func newEncryptor(t *testing.T) (*Encryptor, *keystore.InMemoryStore) {
	t.Helper()
	ks := keystore.NewInMemoryStore([]byte("test-passphrase"))
	require.NoError(t, ks.Bootstrap(context.Background()))
	return NewEncryptor(ks), ks
}

func TestEncryptor_RoundTrip(t *testing.T) {
	ctx := context.Background()
	enc, _ := newEncryptor(t)

	for _, plaintext := range []string{"12345678901", "ana@example.com", "x", "um texto bem mais longo do que o normal"} {
		pv, err := enc.Encrypt(ctx, plaintext)
		require.NoError(t, err)
		assert.Equal(t, 1, pv.KeyVersion)
		assert.Len(t, pv.IV, 12)
		assert.Len(t, pv.AuthTag, 16)

		got, err := enc.Decrypt(ctx, pv)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptor_FreshIVPerCall(t *testing.T) {
	ctx := context.Background()
	enc, _ := newEncryptor(t)

	a, err := enc.Encrypt(ctx, "same input")
	require.NoError(t, err)
	b, err := enc.Encrypt(ctx, "same input")
	require.NoError(t, err)

	assert.NotEqual(t, a.IV, b.IV, "IV must never repeat")
	assert.NotEqual(t, a.CipherText, b.CipherText, "ciphertext must not leak input equality")
}

func TestEncryptor_DecryptAfterRotation(t *testing.T) {
	ctx := context.Background()
	enc, ks := newEncryptor(t)

	pv, err := enc.Encrypt(ctx, "sealed under v1")
	require.NoError(t, err)

	_, err = ks.Rotate(ctx)
	require.NoError(t, err)

	// New encryptions pick up v2; old ciphertext still opens with v1.
	pv2, err := enc.Encrypt(ctx, "sealed under v2")
	require.NoError(t, err)
	assert.Equal(t, 2, pv2.KeyVersion)

	got, err := enc.Decrypt(ctx, pv)
	require.NoError(t, err)
	assert.Equal(t, "sealed under v1", got)
}

func TestEncryptor_DecryptFailuresAreTyped(t *testing.T) {
	ctx := context.Background()
	enc, _ := newEncryptor(t)

	pv, err := enc.Encrypt(ctx, "segredo")
	require.NoError(t, err)

	t.Run("unknown key version", func(t *testing.T) {
		bad := *pv
		bad.KeyVersion = 99
		_, err := enc.Decrypt(ctx, &bad)
		assert.ErrorIs(t, err, common.ErrDecryption)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		bad := *pv
		bad.CipherText = append([]byte(nil), pv.CipherText...)
		bad.CipherText[0] ^= 0xff
		_, err := enc.Decrypt(ctx, &bad)
		assert.ErrorIs(t, err, common.ErrDecryption)
	})

	t.Run("tampered auth tag", func(t *testing.T) {
		bad := *pv
		bad.AuthTag = append([]byte(nil), pv.AuthTag...)
		bad.AuthTag[0] ^= 0xff
		_, err := enc.Decrypt(ctx, &bad)
		assert.ErrorIs(t, err, common.ErrDecryption)
	})
}

func TestEncryptor_ExpiredKeyBeyondGrace(t *testing.T) {
	ctx := context.Background()
	ks := keystore.NewInMemoryStore([]byte("pass"))
	require.NoError(t, ks.Bootstrap(ctx))
	enc := NewEncryptor(ks)

	pv, err := enc.Encrypt(ctx, "old data")
	require.NoError(t, err)

	key, err := ks.ByVersion(ctx, 1)
	require.NoError(t, err)
	expired := time.Now().Add(-60 * 24 * time.Hour)
	key.ExpiresAt = &expired

	_, err = enc.Decrypt(ctx, pv)
	assert.ErrorIs(t, err, common.ErrDecryption)
}
