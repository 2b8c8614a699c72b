// Package codec implements type-aware masking and locale-aware display
// formatting of individual field values. Masking is deterministic and pure:
// the same raw value always yields the same masked string, and no input ever
// produces an error.
package codec

import (
	"strings"

	"github.com/fintrail/audita/internal/fieldval"
)

// FieldType selects the masking or formatting rule for a field.
type FieldType string

const (
	FieldCPF      FieldType = "cpf"
	FieldCNPJ     FieldType = "cnpj"
	FieldPhone    FieldType = "phone"
	FieldEmail    FieldType = "email"
	FieldCard     FieldType = "card"
	FieldCVV      FieldType = "cvv"
	FieldGeneric  FieldType = "generic"
	FieldCurrency FieldType = "currency"
	FieldDate     FieldType = "date"
	FieldBool     FieldType = "bool"
)

// Placeholder is returned when a value cannot be masked meaningfully
// (non-string kinds). Empty strings mask to the empty string.
const Placeholder = "***"

// CardMasker is the caller-supplied rule for card numbers. The codec does not
// own PCI masking policy; it only delegates to it.
type CardMasker func(string) string

// Codec bundles the masking rules and the display locale. Construct once and
// share; all methods are safe for concurrent use.
type Codec struct {
	cardMasker CardMasker
}

// Option configures a Codec.
type Option func(*Codec)

// WithCardMasker overrides the default card-number rule.
func WithCardMasker(m CardMasker) Option {
	return func(c *Codec) {
		if m != nil {
			c.cardMasker = m
		}
	}
}

func New(opts ...Option) *Codec {
	c := &Codec{cardMasker: defaultCardMasker}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mask redacts v according to the field type. Non-string values mask to the
// fixed placeholder, empty strings to the empty string.
func (c *Codec) Mask(ft FieldType, v fieldval.Value) string {
	s, ok := v.Str()
	if !ok {
		if v.IsNull() {
			return ""
		}
		return Placeholder
	}
	return c.MaskString(ft, s)
}

// MaskString redacts a raw string value according to the field type. Values
// that do not fit the declared type (wrong digit count, malformed email) fall
// back to the generic rule so nothing is revealed by accident.
func (c *Codec) MaskString(ft FieldType, s string) string {
	if s == "" {
		return ""
	}
	switch ft {
	case FieldCPF:
		return maskCPF(s)
	case FieldCNPJ:
		return maskCNPJ(s)
	case FieldPhone:
		return maskPhone(s)
	case FieldEmail:
		return maskEmail(s)
	case FieldCard:
		return c.cardMasker(s)
	case FieldCVV:
		return "***"
	default:
		return maskGeneric(s)
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// maskCPF keeps the last two digits: ***.***.**DD.
func maskCPF(s string) string {
	d := onlyDigits(s)
	if len(d) != 11 {
		return maskGeneric(s)
	}
	return "***.***.**" + d[9:]
}

// maskCNPJ keeps the last two digits: **.***.***/****-DD.
func maskCNPJ(s string) string {
	d := onlyDigits(s)
	if len(d) != 14 {
		return maskGeneric(s)
	}
	return "**.***.***/****-" + d[12:]
}

// maskPhone keeps the area code and the last two digits:
// "11999998888" -> "(11) *****-88".
func maskPhone(s string) string {
	d := onlyDigits(s)
	if len(d) < 10 {
		return maskGeneric(s)
	}
	rest := d[2:]
	return "(" + d[:2] + ") " + strings.Repeat("*", len(rest)-4) + "-" + rest[len(rest)-2:]
}

// maskEmail keeps the first character of the local part and the full domain.
func maskEmail(s string) string {
	at := strings.Index(s, "@")
	if at < 1 {
		return maskGeneric(s)
	}
	local := []rune(s[:at])
	return string(local[0]) + "***@" + s[at+1:]
}

// maskGeneric fully masks values up to 4 characters; longer values reveal
// the first and last ceil(20%) characters and mask the middle.
func maskGeneric(s string) string {
	r := []rune(s)
	n := len(r)
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	keep := (n + 4) / 5
	return string(r[:keep]) + strings.Repeat("*", n-2*keep) + string(r[n-keep:])
}

// defaultCardMasker keeps only the last four digits.
func defaultCardMasker(s string) string {
	d := onlyDigits(s)
	if len(d) < 4 {
		return "***"
	}
	return "**** **** **** " + d[len(d)-4:]
}
