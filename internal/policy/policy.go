// Package policy holds the per-tenant audit configuration: retention,
// advisory caps, which fields are tracked, and change notifications. It is
// written by administrators and read by the version store and the retention
// worker.
package policy

import (
	"context"
	"time"
)

// DefaultTenant is used when the deployment is single-tenant.
const DefaultTenant = "default"

// AuditConfiguration is one tenant's audit policy.
type AuditConfiguration struct {
	TenantID string `json:"tenantId"`

	// RetentionDays makes entries older than this purge-eligible.
	RetentionDays int `json:"retentionDays"`

	// MaxVersionsPerSubject is advisory; the store never drops entries to
	// honor it, it only reports the excess.
	MaxVersionsPerSubject int `json:"maxVersionsPerSubject"`

	// AuditedFields limits which fields are tracked on updates. Empty
	// means every field is tracked.
	AuditedFields []string `json:"auditedFields"`

	NotifyOnChange         bool     `json:"notifyOnChange"`
	NotificationRecipients []string `json:"notificationRecipients"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Default returns the configuration applied before an administrator has
// saved one: five years of retention, all fields audited, no notifications.
func Default(tenantID string) *AuditConfiguration {
	return &AuditConfiguration{
		TenantID:      tenantID,
		RetentionDays: 1825,
	}
}

// Store persists per-tenant configurations.
type Store interface {
	// Get returns the tenant's configuration, or the default when none
	// was saved yet.
	Get(ctx context.Context, tenantID string) (*AuditConfiguration, error)

	// Upsert creates or replaces the tenant's configuration.
	Upsert(ctx context.Context, cfg *AuditConfiguration) error
}
