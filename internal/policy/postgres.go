package policy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fintrail/audita/internal/dbx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, tenantID string) (*AuditConfiguration, error) {
	query := `
		SELECT tenant_id, retention_days, max_versions_per_subject,
		       audited_fields, notify_on_change, notification_recipients, updated_at
		FROM audit_configurations WHERE tenant_id = $1
	`
	cfg := &AuditConfiguration{}
	var fields, recipients []byte
	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(
		&cfg.TenantID, &cfg.RetentionDays, &cfg.MaxVersionsPerSubject,
		&fields, &cfg.NotifyOnChange, &recipients, &cfg.UpdatedAt,
	)
	if err != nil {
		if dbx.IsNoRows(err) {
			return Default(tenantID), nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(fields, &cfg.AuditedFields); err != nil {
		return nil, fmt.Errorf("decode audited fields: %w", err)
	}
	if err := json.Unmarshal(recipients, &cfg.NotificationRecipients); err != nil {
		return nil, fmt.Errorf("decode recipients: %w", err)
	}
	return cfg, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, cfg *AuditConfiguration) error {
	fields, err := json.Marshal(cfg.AuditedFields)
	if err != nil {
		return fmt.Errorf("encode audited fields: %w", err)
	}
	recipients, err := json.Marshal(cfg.NotificationRecipients)
	if err != nil {
		return fmt.Errorf("encode recipients: %w", err)
	}

	query := `
		INSERT INTO audit_configurations
			(tenant_id, retention_days, max_versions_per_subject,
			 audited_fields, notify_on_change, notification_recipients, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (tenant_id)
		DO UPDATE SET
			retention_days = EXCLUDED.retention_days,
			max_versions_per_subject = EXCLUDED.max_versions_per_subject,
			audited_fields = EXCLUDED.audited_fields,
			notify_on_change = EXCLUDED.notify_on_change,
			notification_recipients = EXCLUDED.notification_recipients,
			updated_at = now()
	`
	_, err = s.db.ExecContext(ctx, query,
		cfg.TenantID, cfg.RetentionDays, cfg.MaxVersionsPerSubject,
		fields, cfg.NotifyOnChange, recipients)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
