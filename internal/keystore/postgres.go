package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fintrail/audita/internal/common"
	"github.com/fintrail/audita/internal/dbx"
)

// PostgresStore persists key versions in the encryption_keys table. Material
// is derived after scan and never written to the database.
type PostgresStore struct {
	db         *sql.DB
	passphrase []byte
}

func NewPostgresStore(db *sql.DB, passphrase []byte) *PostgresStore {
	return &PostgresStore{db: db, passphrase: passphrase}
}

const keyColumns = `id, version, algorithm, salt, created_at, expires_at, is_active`

func (s *PostgresStore) scanKey(row *sql.Row) (*Key, error) {
	k := &Key{}
	err := row.Scan(&k.ID, &k.Version, &k.Algorithm, &k.Salt, &k.CreatedAt, &k.ExpiresAt, &k.Active)
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	k.material = DeriveMaterial(s.passphrase, k.Salt)
	return k, nil
}

func (s *PostgresStore) Bootstrap(ctx context.Context) error {
	_, err := s.Active(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	_, err = s.Rotate(ctx)
	return err
}

func (s *PostgresStore) Active(ctx context.Context) (*Key, error) {
	query := `SELECT ` + keyColumns + ` FROM encryption_keys WHERE is_active AND algorithm = $1`
	return s.scanKey(s.db.QueryRowContext(ctx, query, AlgorithmAESGCM))
}

func (s *PostgresStore) ByVersion(ctx context.Context, version int) (*Key, error) {
	query := `SELECT ` + keyColumns + ` FROM encryption_keys WHERE version = $1`
	return s.scanKey(s.db.QueryRowContext(ctx, query, version))
}

// Rotate deactivates the current key and inserts the next version inside one
// transaction, so two concurrent rotations cannot both end up active.
func (s *PostgresStore) Rotate(ctx context.Context) (*Key, error) {
	k := &Key{
		ID:        uuid.NewString(),
		Algorithm: AlgorithmAESGCM,
		Salt:      common.GenerateRandByteArray(saltSize),
		Active:    true,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE encryption_keys SET is_active = false WHERE is_active AND algorithm = $1`,
			AlgorithmAESGCM); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		query := `
			INSERT INTO encryption_keys (id, version, algorithm, salt, is_active)
			VALUES ($1, (SELECT COALESCE(MAX(version), 0) + 1 FROM encryption_keys), $2, $3, true)
			RETURNING version, created_at
		`
		if err := tx.QueryRowContext(ctx, query, k.ID, k.Algorithm, k.Salt).
			Scan(&k.Version, &k.CreatedAt); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	k.material = DeriveMaterial(s.passphrase, k.Salt)
	return k, nil
}
