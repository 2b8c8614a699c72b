package protection

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrail/audita/internal/accesslog"
	"github.com/fintrail/audita/internal/codec"
	"github.com/fintrail/audita/internal/fieldval"
	"github.com/fintrail/audita/internal/keystore"
	"github.com/fintrail/audita/internal/logging"
	"github.com/fintrail/audita/internal/metrics"
)

func newGateway(t *testing.T) (*Gateway, *accesslog.InMemoryStore) {
	t.Helper()
	ks := keystore.NewInMemoryStore([]byte("test-passphrase"))
	require.NoError(t, ks.Bootstrap(context.Background()))

	events := accesslog.NewInMemoryStore(0)
	g := NewGateway(
		NewEncryptor(ks),
		codec.New(),
		accesslog.NewPublisher(events),
		logging.NewJSONLogger(&bytes.Buffer{}),
		metrics.New(),
	)
	return g, events
}

var testSpecs = []FieldSpec{
	{Name: "cpf", Type: codec.FieldCPF, AllowedViewers: []string{"auditor-1"}},
	{Name: "email", Type: codec.FieldEmail, AllowedViewers: []string{"*"}},
}

func testRecord() fieldval.Snapshot {
	return fieldval.Snapshot{
		"nome":  fieldval.String("Ana"),
		"cpf":   fieldval.String("12345678901"),
		"email": fieldval.String("ana@example.com"),
	}
}

func TestGateway_Protect(t *testing.T) {
	ctx := context.Background()
	g, _ := newGateway(t)

	rec, err := g.Protect(ctx, "c1", testRecord(), testSpecs)
	require.NoError(t, err)

	// Sensitive fields leave the plain map entirely.
	_, hasCPF := rec.Plain["cpf"]
	assert.False(t, hasCPF)
	assert.True(t, rec.Plain["nome"].Equal(fieldval.String("Ana")))

	require.Contains(t, rec.Sealed, "cpf")
	assert.Equal(t, "***.***.**01", rec.Sealed["cpf"].MaskedPreview)
	assert.NotEmpty(t, rec.Sealed["cpf"].CipherText)
	assert.NotContains(t, string(rec.Sealed["cpf"].CipherText), "12345678901")
}

func TestGateway_Reveal_Permitted(t *testing.T) {
	ctx := context.Background()
	g, events := newGateway(t)

	rec, err := g.Protect(ctx, "c1", testRecord(), testSpecs)
	require.NoError(t, err)

	out := g.Reveal(ctx, rec, []string{"cpf", "email"}, "auditor-1", testSpecs)
	assert.True(t, out["cpf"].Equal(fieldval.String("12345678901")))
	assert.True(t, out["email"].Equal(fieldval.String("ana@example.com")), "wildcard admits any caller")

	got, err := events.Query(ctx, accesslog.Filter{Action: accesslog.ActionDecrypt})
	require.NoError(t, err)
	assert.Len(t, got, 2, "one decrypt event per permitted field")
}

func TestGateway_Reveal_Denied(t *testing.T) {
	ctx := context.Background()
	g, events := newGateway(t)

	rec, err := g.Protect(ctx, "c1", testRecord(), testSpecs)
	require.NoError(t, err)

	out := g.Reveal(ctx, rec, []string{"cpf"}, "intruder", testSpecs)

	s, ok := out["cpf"].Str()
	require.True(t, ok)
	assert.Equal(t, "***.***.**01", s, "denied caller sees only the masked preview")

	views, err := events.Query(ctx, accesslog.Filter{Action: accesslog.ActionView})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "intruder", views[0].UserID)
	assert.Equal(t, "cpf", views[0].DataType)

	decrypts, err := events.Query(ctx, accesslog.Filter{Action: accesslog.ActionDecrypt})
	require.NoError(t, err)
	assert.Empty(t, decrypts, "no decryption may be attempted without permission")
}

func TestGateway_Reveal_DecryptionFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	g, events := newGateway(t)

	rec, err := g.Protect(ctx, "c1", testRecord(), testSpecs)
	require.NoError(t, err)

	// Corrupt the stored ciphertext: a permitted caller must get the same
	// masked preview a denied caller would, never an error.
	rec.Sealed["cpf"].CipherText[0] ^= 0xff

	out := g.Reveal(ctx, rec, []string{"cpf"}, "auditor-1", testSpecs)
	s, ok := out["cpf"].Str()
	require.True(t, ok)
	assert.Equal(t, "***.***.**01", s)

	// The attempt is still recorded.
	got, err := events.Query(ctx, accesslog.Filter{Action: accesslog.ActionDecrypt})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGateway_Reveal_EventPerField(t *testing.T) {
	ctx := context.Background()
	g, events := newGateway(t)

	rec, err := g.Protect(ctx, "c1", testRecord(), testSpecs)
	require.NoError(t, err)

	const n = 7
	for i := 0; i < n; i++ {
		g.Reveal(ctx, rec, []string{"cpf"}, "auditor-1", testSpecs)
	}

	got, err := events.Query(ctx, accesslog.Filter{})
	require.NoError(t, err)
	assert.Len(t, got, n)
}

func TestGateway_MaskSnapshot(t *testing.T) {
	g, _ := newGateway(t)

	out := g.MaskSnapshot(testRecord(), "intruder", testSpecs)
	assert.Equal(t, "***.***.**01", out["cpf"].String())
	assert.Equal(t, "Ana", out["nome"].String(), "non-sensitive fields pass through")

	// Permitted caller keeps the plaintext.
	out = g.MaskSnapshot(testRecord(), "auditor-1", testSpecs)
	assert.Equal(t, "12345678901", out["cpf"].String())

	assert.Nil(t, g.MaskSnapshot(nil, "x", testSpecs))
}

func TestFieldSpec_Permits(t *testing.T) {
	spec := FieldSpec{AllowedViewers: []string{"u1"}}
	assert.True(t, spec.Permits("u1"))
	assert.False(t, spec.Permits("u2"))
	assert.False(t, spec.Permits(""))

	wildcard := FieldSpec{AllowedViewers: []string{"*"}}
	assert.True(t, wildcard.Permits("anyone"))

	assert.False(t, FieldSpec{}.Permits("u1"), "empty allow-list denies everyone")
}
