package protection

import (
	"context"

	"github.com/fintrail/audita/internal/accesslog"
	"github.com/fintrail/audita/internal/codec"
	"github.com/fintrail/audita/internal/fieldval"
	"github.com/fintrail/audita/internal/logging"
	"github.com/fintrail/audita/internal/metrics"
)

// WildcardViewer in an allow-list grants every caller access to the field.
const WildcardViewer = "*"

// FieldSpec declares one sensitive field: its masking type and who may see
// the plaintext. The allow-list is policy data handed in by the caller, not
// logic owned by the gateway.
type FieldSpec struct {
	Name           string
	Type           codec.FieldType
	AllowedViewers []string
}

// Permits reports whether the caller is on the field's allow-list.
func (s FieldSpec) Permits(callerID string) bool {
	for _, v := range s.AllowedViewers {
		if v == WildcardViewer || (callerID != "" && v == callerID) {
			return true
		}
	}
	return false
}

// ProtectedRecord is a record whose sensitive fields have been sealed.
// Plain holds the untouched non-sensitive fields.
type ProtectedRecord struct {
	SubjectID string
	Plain     fieldval.Snapshot
	Sealed    map[string]*ProtectedValue
}

// Gateway applies encryption and masking on the way out and permission-gated
// decryption on the way in, logging every protected read.
type Gateway struct {
	enc     *Encryptor
	codec   *codec.Codec
	events  accesslog.Recorder
	logger  logging.Logger
	metrics *metrics.Metrics
}

func NewGateway(enc *Encryptor, c *codec.Codec, events accesslog.Recorder, logger logging.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{enc: enc, codec: c, events: events, logger: logger, metrics: m}
}

// Protect seals each spec'd field of the record, replacing the plain value
// with a ProtectedValue carrying a masked preview computed before
// encryption. Fields absent from the record are skipped.
func (g *Gateway) Protect(ctx context.Context, subjectID string, record fieldval.Snapshot, specs []FieldSpec) (*ProtectedRecord, error) {
	out := &ProtectedRecord{
		SubjectID: subjectID,
		Plain:     record.Clone(),
		Sealed:    make(map[string]*ProtectedValue, len(specs)),
	}

	for _, spec := range specs {
		v, ok := record[spec.Name]
		if !ok {
			continue
		}
		plain, isStr := v.Str()
		if !isStr {
			// Non-string sensitive values have no meaningful plaintext to
			// seal; the preview placeholder is all that remains visible.
			out.Plain[spec.Name] = fieldval.String(g.codec.Mask(spec.Type, v))
			continue
		}

		pv, err := g.enc.Encrypt(ctx, plain)
		if err != nil {
			return nil, err
		}
		pv.MaskedPreview = g.codec.MaskString(spec.Type, plain)

		delete(out.Plain, spec.Name)
		out.Sealed[spec.Name] = pv
	}
	return out, nil
}

// Reveal resolves the requested sealed fields for the caller. A permitted
// caller gets the plaintext when decryption succeeds and the masked preview
// when it does not; a caller without permission always gets the preview and
// no decryption is attempted. Both denials look identical from the outside.
// Exactly one access event is recorded per requested field.
func (g *Gateway) Reveal(ctx context.Context, rec *ProtectedRecord, fields []string, callerID string, specs []FieldSpec) fieldval.Snapshot {
	byName := make(map[string]FieldSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	out := rec.Plain.Clone()
	if out == nil {
		out = fieldval.Snapshot{}
	}

	for _, name := range fields {
		pv, ok := rec.Sealed[name]
		if !ok {
			continue
		}
		spec := byName[name]

		action := accesslog.ActionView
		value := pv.MaskedPreview

		if spec.Permits(callerID) {
			action = accesslog.ActionDecrypt
			plain, err := g.enc.Decrypt(ctx, pv)
			if err == nil {
				value = plain
			} else {
				g.metrics.DecryptFailure()
				g.logger.Warn(ctx, "decryption failed, returning masked preview",
					"subject", rec.SubjectID, "field", name, "keyVersion", pv.KeyVersion)
			}
		}

		g.recordAccess(ctx, rec.SubjectID, name, callerID, action)
		out[name] = fieldval.String(value)
	}
	return out
}

// MaskSnapshot redacts the spec'd fields of a plain snapshot for callers
// without permission. Used by query paths serving historical snapshots,
// which are stored unencrypted inside version entries.
func (g *Gateway) MaskSnapshot(snap fieldval.Snapshot, callerID string, specs []FieldSpec) fieldval.Snapshot {
	if snap == nil {
		return nil
	}
	out := snap.Clone()
	for _, spec := range specs {
		v, ok := out[spec.Name]
		if !ok || spec.Permits(callerID) {
			continue
		}
		out[spec.Name] = fieldval.String(g.codec.Mask(spec.Type, v))
	}
	return out
}

func (g *Gateway) recordAccess(ctx context.Context, subjectID, field, callerID string, action accesslog.Action) {
	err := g.events.Emit(ctx, accesslog.Event{
		UserID:    callerID,
		DataType:  field,
		SubjectID: subjectID,
		Action:    action,
	})
	if err != nil {
		g.logger.Error(ctx, "failed to record access event", "subject", subjectID, "field", field)
	}
	g.metrics.AccessRecorded(string(action))
}
