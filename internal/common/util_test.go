package common

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandByteArray_Basic(t *testing.T) {
	n := 32
	buf := GenerateRandByteArray(n)
	assert.Len(t, buf, n)
}

func TestGenerateRandByteArray_EntropyHint(t *testing.T) {
	n := 32
	a := GenerateRandByteArray(n)
	b := GenerateRandByteArray(n)
	if bytes.Equal(a, b) {
		t.Logf("warning: two GenerateRandByteArray(%d) results are identical; extremely unlikely", n)
		t.Fail()
	}
}
