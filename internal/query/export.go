package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fintrail/audita/internal/codec"
	"github.com/fintrail/audita/internal/common"
	"github.com/fintrail/audita/internal/diff"
	"github.com/fintrail/audita/internal/versionstore"
)

// Uploader stores an export under a key in object storage.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
}

// csvHeader is the fixed pt-BR export header. Every field, header included,
// is quoted regardless of content.
const csvHeader = `"Data/Hora","Versão","Operação","Usuário","Campos Alterados","Motivo"`

var operationLabels = map[diff.Operation]string{
	diff.OperationCreate: "Criação",
	diff.OperationUpdate: "Atualização",
	diff.OperationDelete: "Exclusão",
}

// ExportJSON renders the subject's full history, masked for the caller, as
// indented JSON. The export itself is recorded as one access event.
func (s *Service) ExportJSON(ctx context.Context, subjectID, callerID string) ([]byte, error) {
	entries, err := s.history(ctx, subjectID, callerID)
	if err != nil {
		return nil, err
	}

	doc := struct {
		SubjectID   string                       `json:"subjectId"`
		GeneratedAt time.Time                    `json:"generatedAt"`
		Entries     []*versionstore.VersionEntry `json:"entries"`
	}{
		SubjectID:   subjectID,
		GeneratedAt: time.Now().UTC(),
		Entries:     entries,
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.logger.Error(ctx, "json export failed", "subject", subjectID)
		return nil, fmt.Errorf("%w: export json", common.ErrOperationFailed)
	}
	s.recordExport(ctx, subjectID, callerID, "json")
	return out, nil
}

// ExportCSV renders the subject's history as a pt-BR CSV: fixed header,
// dd/mm/yyyy timestamps, operation labels in Portuguese, every field quoted.
func (s *Service) ExportCSV(ctx context.Context, subjectID, callerID string) ([]byte, error) {
	entries, err := s.history(ctx, subjectID, callerID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(csvHeader)
	buf.WriteString("\n")
	for _, e := range entries {
		writeCSVRow(&buf,
			codec.FormatTimestamp(e.OccurredAt),
			strconv.FormatInt(e.Version, 10),
			operationLabels[e.Operation],
			e.ActorID,
			changedFieldsLabel(e.Changed),
			e.Reason,
		)
	}

	s.recordExport(ctx, subjectID, callerID, "csv")
	return buf.Bytes(), nil
}

// Archive exports the subject's history and uploads it to object storage,
// returning the storage key.
func (s *Service) Archive(ctx context.Context, subjectID, callerID, format string) (string, error) {
	if s.archiver == nil {
		return "", fmt.Errorf("%w: no archive storage configured", common.ErrOperationFailed)
	}

	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case "csv":
		body, err = s.ExportCSV(ctx, subjectID, callerID)
		contentType = "text/csv; charset=utf-8"
	case "json":
		body, err = s.ExportJSON(ctx, subjectID, callerID)
		contentType = "application/json"
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", common.ErrOperationFailed, format)
	}
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("exports/%s/%s.%s",
		time.Now().UTC().Format("2006/01/02"), uuid.NewString(), format)
	if err := s.archiver.Upload(ctx, key, contentType, bytes.NewReader(body)); err != nil {
		s.logger.Error(ctx, "export archival failed", "subject", subjectID, "key", key)
		return "", fmt.Errorf("%w: archive export", common.ErrOperationFailed)
	}
	s.logger.Info(ctx, "export archived", "subject", subjectID, "key", key)
	return key, nil
}

// history fetches the full (unpaged) masked history for exports.
func (s *Service) history(ctx context.Context, subjectID, callerID string) ([]*versionstore.VersionEntry, error) {
	max, err := s.versions.MaxVersion(ctx, subjectID)
	if err != nil {
		s.logger.Error(ctx, "export history lookup failed", "subject", subjectID)
		return nil, fmt.Errorf("%w: export", common.ErrOperationFailed)
	}
	if max == 0 {
		return nil, common.ErrNotFound
	}
	return s.History(ctx, subjectID, callerID, versionstore.Filter{Limit: int(max)})
}

func changedFieldsLabel(c diff.ChangeSet) string {
	if c.All() {
		return "*"
	}
	return strings.Join(c.Names(), ", ")
}

// writeCSVRow writes one record with every field quoted, doubling embedded
// quotes. encoding/csv quotes only when it must, which the fixed export
// format does not allow.
func writeCSVRow(buf *bytes.Buffer, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}
