package codec

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/fintrail/audita/internal/fieldval"
)

// Display layouts for pt-BR output.
const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04:05"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Format renders a non-sensitive value for display using pt-BR conventions.
// This path never masks.
func (c *Codec) Format(ft FieldType, v fieldval.Value) string {
	switch ft {
	case FieldCurrency:
		if f, ok := v.Num(); ok {
			return "R$ " + printer.Sprint(number.Decimal(f, number.Scale(2)))
		}
	case FieldDate:
		if s, ok := v.Str(); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t.Format(dateLayout)
			}
		}
	case FieldBool:
		if b, ok := v.Boolean(); ok {
			if b {
				return "Sim"
			}
			return "Não"
		}
	}
	return v.String()
}

// FormatTimestamp renders a timestamp the way exports display it.
func FormatTimestamp(t time.Time) string {
	return t.Format(dateTimeLayout)
}
