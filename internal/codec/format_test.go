package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fintrail/audita/internal/fieldval"
)

func TestFormat(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		ft   FieldType
		v    fieldval.Value
		want string
	}{
		{name: "currency", ft: FieldCurrency, v: fieldval.Number(1234.5), want: "R$ 1.234,50"},
		{name: "currency small", ft: FieldCurrency, v: fieldval.Number(7), want: "R$ 7,00"},
		{name: "date", ft: FieldDate, v: fieldval.String("2026-08-28T10:30:00Z"), want: "28/08/2026"},
		{name: "bool true", ft: FieldBool, v: fieldval.Bool(true), want: "Sim"},
		{name: "bool false", ft: FieldBool, v: fieldval.Bool(false), want: "Não"},
		{name: "date with bad value passes through", ft: FieldDate, v: fieldval.String("ontem"), want: "ontem"},
		{name: "currency with non-number passes through", ft: FieldCurrency, v: fieldval.String("x"), want: "x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Format(tc.ft, tc.v))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 28, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "28/08/2026 14:05:09", FormatTimestamp(ts))
}
