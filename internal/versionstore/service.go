package versionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fintrail/audita/internal/common"
	"github.com/fintrail/audita/internal/diff"
	"github.com/fintrail/audita/internal/fieldval"
	"github.com/fintrail/audita/internal/logging"
	"github.com/fintrail/audita/internal/metrics"
	"github.com/fintrail/audita/internal/notify"
	"github.com/fintrail/audita/internal/policy"
)

// Service is the write/read front of the version store: it diffs snapshots,
// applies the tenant policy, appends entries, and fans out notifications.
type Service struct {
	repo     Repository
	policies policy.Store
	tenantID string
	notifier *notify.Publisher
	logger   logging.Logger
	metrics  *metrics.Metrics
	readOnly bool
}

type Option func(*Service)

// WithNotifier enables change notifications for tenants that opted in.
func WithNotifier(p *notify.Publisher) Option {
	return func(s *Service) { s.notifier = p }
}

// WithTenant sets the tenant whose policy governs this service.
func WithTenant(tenantID string) Option {
	return func(s *Service) { s.tenantID = tenantID }
}

// ReadOnly rejects writes with ErrStoreUnavailable. Used when the service
// runs against the in-memory fallback and must not pretend to persist.
func ReadOnly() Option {
	return func(s *Service) { s.readOnly = true }
}

func NewService(repo Repository, policies policy.Store, logger logging.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		policies: policies,
		tenantID: policy.DefaultTenant,
		logger:   logger.With("component", "versionstore"),
		metrics:  m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordChange diffs the two snapshots and appends a version entry. A nil
// previous records a Create, a nil next a Delete. Updates that touch no
// audited field are suppressed and return a nil entry.
func (s *Service) RecordChange(ctx context.Context, subjectID string, previous, next fieldval.Snapshot, actorID, reason string) (*VersionEntry, error) {
	if s.readOnly {
		return nil, common.ErrStoreUnavailable
	}
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}

	changed, operation := diff.Diff(previous, next)

	cfg, err := s.policies.Get(ctx, s.tenantID)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	if operation == diff.OperationUpdate && len(cfg.AuditedFields) > 0 {
		changed = changed.Intersect(cfg.AuditedFields)
	}
	if operation == diff.OperationUpdate && changed.Empty() {
		s.logger.Debug(ctx, "update touched no audited field, skipping", "subject", subjectID)
		return nil, nil
	}

	entry := &VersionEntry{
		ID:         uuid.NewString(),
		SubjectID:  subjectID,
		Operation:  operation,
		Previous:   previous.Clone(),
		Next:       next.Clone(),
		Changed:    changed,
		ActorID:    actorID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append version: %w", err)
	}

	s.metrics.VersionAppended()
	s.logger.Info(ctx, "version recorded",
		"subject", subjectID, "version", entry.Version, "operation", string(operation))

	if cfg.NotifyOnChange && s.notifier != nil {
		s.notifier.Emit(ctx, notify.Notice{
			SubjectID:     subjectID,
			Version:       entry.Version,
			Operation:     operation,
			ChangedFields: changed.Names(),
			Recipients:    cfg.NotificationRecipients,
			OccurredAt:    entry.OccurredAt,
		})
	}
	return entry, nil
}

// GetVersion returns one history entry. A subject without history yields
// ErrNotFound; a version outside [1, max] yields ErrInvalidVersion.
func (s *Service) GetVersion(ctx context.Context, subjectID string, version int64) (*VersionEntry, error) {
	max, err := s.repo.MaxVersion(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if max == 0 {
		return nil, common.ErrNotFound
	}
	if version <= 0 || version > max {
		return nil, fmt.Errorf("%w: %d (subject has versions 1..%d)", common.ErrInvalidVersion, version, max)
	}
	return s.repo.Get(ctx, subjectID, version)
}

// History lists the subject's entries newest-first, narrowed by the filter.
func (s *Service) History(ctx context.Context, subjectID string, f Filter) ([]*VersionEntry, error) {
	return s.repo.List(ctx, subjectID, f)
}

// MaxVersion exposes the highest version allocated for the subject.
func (s *Service) MaxVersion(ctx context.Context, subjectID string) (int64, error) {
	return s.repo.MaxVersion(ctx, subjectID)
}

// CountBySubject reports retained entry counts, for stats and cap warnings.
func (s *Service) CountBySubject(ctx context.Context) (map[string]int64, error) {
	return s.repo.CountBySubject(ctx)
}

// PurgeExpired removes entries older than the tenant's retention window.
// Version numbers are never reassigned, so history stays tamper-evident.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if s.readOnly {
		return 0, common.ErrStoreUnavailable
	}
	cfg, err := s.policies.Get(ctx, s.tenantID)
	if err != nil {
		return 0, fmt.Errorf("load policy: %w", err)
	}

	cutoff := now.AddDate(0, 0, -cfg.RetentionDays)
	n, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	if n > 0 {
		s.metrics.Purged(n)
		s.logger.Info(ctx, "retention cleanup", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}
