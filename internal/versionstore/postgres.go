package versionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fintrail/audita/internal/common"
	"github.com/fintrail/audita/internal/dbx"
	"github.com/fintrail/audita/internal/diff"
	"github.com/fintrail/audita/internal/fieldval"
)

// PostgresRepository stores entries in version_entries with a per-subject
// counter row in subject_versions. The counter only ever moves forward, so
// version numbers survive retention cleanup.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, entry *VersionEntry) error {
	changed, err := json.Marshal(entry.Changed)
	if err != nil {
		return fmt.Errorf("encode changed fields: %w", err)
	}
	previous, err := marshalSnapshot(entry.Previous)
	if err != nil {
		return fmt.Errorf("encode previous snapshot: %w", err)
	}
	next, err := marshalSnapshot(entry.Next)
	if err != nil {
		return fmt.Errorf("encode next snapshot: %w", err)
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO subject_versions (subject_id, current_version)
			VALUES ($1, 1)
			ON CONFLICT (subject_id)
			DO UPDATE SET current_version = subject_versions.current_version + 1
			RETURNING current_version
		`, entry.SubjectID)
		if err := row.Scan(&entry.Version); err != nil {
			return fmt.Errorf("allocate version: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO version_entries
				(id, subject_id, version, operation, previous_state, next_state,
				 changed_fields, actor_id, reason, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, entry.ID, entry.SubjectID, entry.Version, string(entry.Operation),
			previous, next, changed, entry.ActorID, entry.Reason, entry.OccurredAt)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

const entryColumns = `id, subject_id, version, operation, previous_state, next_state,
	changed_fields, actor_id, reason, occurred_at`

func (r *PostgresRepository) Get(ctx context.Context, subjectID string, version int64) (*VersionEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM version_entries WHERE subject_id = $1 AND version = $2
	`, subjectID, version)

	entry, err := scanEntry(row.Scan)
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) List(ctx context.Context, subjectID string, f Filter) ([]*VersionEntry, error) {
	conds := []string{"subject_id = $1"}
	args := []any{subjectID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Operation != "" {
		add("operation = $%d", string(f.Operation))
	}
	if f.ActorID != "" {
		add("actor_id = $%d", f.ActorID)
	}
	if !f.From.IsZero() {
		add("occurred_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("occurred_at <= $%d", f.To)
	}

	// Changed-field filtering happens in-process: the sentinel entry ["*"]
	// matches every field, which a jsonb containment test cannot express.
	query := `SELECT ` + entryColumns + ` FROM version_entries WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY version DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	matched := make([]*VersionEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		if len(f.ChangedFields) > 0 && !entry.Changed.Intersects(f.ChangedFields) {
			continue
		}
		matched = append(matched, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if f.Offset >= len(matched) {
		return []*VersionEntry{}, nil
	}
	matched = matched[f.Offset:]
	if limit := f.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *PostgresRepository) MaxVersion(ctx context.Context, subjectID string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx,
		`SELECT current_version FROM subject_versions WHERE subject_id = $1`,
		subjectID).Scan(&v)
	if err != nil {
		if dbx.IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) CountBySubject(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT subject_id, COUNT(*) FROM version_entries GROUP BY subject_id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var subject string
		var n int64
		if err := rows.Scan(&subject, &n); err != nil {
			return nil, err
		}
		out[subject] = n
	}
	return out, rows.Err()
}

func (r *PostgresRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM version_entries WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return int(n), nil
}

func marshalSnapshot(s fieldval.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil // SQL NULL preserves absence
	}
	return json.Marshal(s)
}

func scanEntry(scan func(dest ...any) error) (*VersionEntry, error) {
	var (
		entry          VersionEntry
		operation      string
		previous, next []byte
		changed        []byte
	)
	err := scan(&entry.ID, &entry.SubjectID, &entry.Version, &operation,
		&previous, &next, &changed, &entry.ActorID, &entry.Reason, &entry.OccurredAt)
	if err != nil {
		return nil, err
	}

	entry.Operation = diff.Operation(operation)
	if previous != nil {
		if err := json.Unmarshal(previous, &entry.Previous); err != nil {
			return nil, fmt.Errorf("decode previous snapshot: %w", err)
		}
	}
	if next != nil {
		if err := json.Unmarshal(next, &entry.Next); err != nil {
			return nil, fmt.Errorf("decode next snapshot: %w", err)
		}
	}
	if err := json.Unmarshal(changed, &entry.Changed); err != nil {
		return nil, fmt.Errorf("decode changed fields: %w", err)
	}
	return &entry, nil
}
