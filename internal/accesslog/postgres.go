package accesslog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fintrail/audita/internal/dbx"
)

// PostgresStore persists access events in the access_events table. The FIFO
// cap is enforced with a delete of everything past the newest maxEvents rows.
type PostgresStore struct {
	db        *sql.DB
	maxEvents int
}

func NewPostgresStore(db *sql.DB, maxEvents int) *PostgresStore {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &PostgresStore{db: db, maxEvents: maxEvents}
}

func (s *PostgresStore) Append(ctx context.Context, e Event) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO access_events (id, ts, user_id, data_type, subject_id, action)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.ID, e.Timestamp, e.UserID, e.DataType, e.SubjectID, string(e.Action))
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM access_events WHERE id NOT IN (
				SELECT id FROM access_events ORDER BY ts DESC, id DESC LIMIT $1
			)
		`, s.maxEvents)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Query(ctx context.Context, f Filter) ([]Event, error) {
	conds := make([]string, 0, 5)
	args := make([]any, 0, 5)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.DataType != "" {
		add("data_type = $%d", f.DataType)
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if !f.From.IsZero() {
		add("ts >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("ts <= $%d", f.To)
	}

	query := `SELECT id, ts, user_id, data_type, subject_id, action FROM access_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		var action string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserID, &e.DataType, &e.SubjectID, &action); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM access_events WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return int(n), nil
}
