// Package query is the read side of the audit trail: history listings,
// version comparison, pt-BR exports, and usage stats. Every snapshot leaving
// this package went through the protection gateway's masking first.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintrail/audita/internal/accesslog"
	"github.com/fintrail/audita/internal/common"
	"github.com/fintrail/audita/internal/diff"
	"github.com/fintrail/audita/internal/logging"
	"github.com/fintrail/audita/internal/metrics"
	"github.com/fintrail/audita/internal/policy"
	"github.com/fintrail/audita/internal/protection"
	"github.com/fintrail/audita/internal/versionstore"
)

// Service answers history queries on behalf of a caller. The caller identity
// drives masking: fields the caller may not see come back redacted.
type Service struct {
	versions *versionstore.Service
	gateway  *protection.Gateway
	policies policy.Store
	tenantID string
	specs    []protection.FieldSpec
	events   accesslog.Recorder
	archiver Uploader
	logger   logging.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

// WithFieldSpecs declares which snapshot fields are sensitive and who may
// see them unmasked.
func WithFieldSpecs(specs []protection.FieldSpec) Option {
	return func(s *Service) { s.specs = specs }
}

// WithArchiver enables archival of exports to object storage.
func WithArchiver(u Uploader) Option {
	return func(s *Service) { s.archiver = u }
}

func WithTenant(tenantID string) Option {
	return func(s *Service) { s.tenantID = tenantID }
}

func NewService(versions *versionstore.Service, gateway *protection.Gateway, policies policy.Store, events accesslog.Recorder, logger logging.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		versions: versions,
		gateway:  gateway,
		policies: policies,
		tenantID: policy.DefaultTenant,
		events:   events,
		logger:   logger.With("component", "query"),
		metrics:  m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History lists a subject's version entries newest-first with snapshots
// masked for the caller.
func (s *Service) History(ctx context.Context, subjectID, callerID string, f versionstore.Filter) ([]*versionstore.VersionEntry, error) {
	entries, err := s.versions.History(ctx, subjectID, f)
	if err != nil {
		s.logger.Error(ctx, "history listing failed", "subject", subjectID)
		return nil, fmt.Errorf("%w: list history", common.ErrOperationFailed)
	}
	for _, e := range entries {
		s.maskEntry(e, callerID)
	}
	return entries, nil
}

// GetVersion returns one entry, masked for the caller. Unknown subjects
// yield ErrNotFound and out-of-range versions ErrInvalidVersion, unwrapped,
// so callers can distinguish the two.
func (s *Service) GetVersion(ctx context.Context, subjectID string, version int64, callerID string) (*versionstore.VersionEntry, error) {
	e, err := s.versions.GetVersion(ctx, subjectID, version)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrInvalidVersion) {
			return nil, err
		}
		s.logger.Error(ctx, "version lookup failed", "subject", subjectID, "version", version)
		return nil, fmt.Errorf("%w: get version", common.ErrOperationFailed)
	}
	s.maskEntry(e, callerID)
	return e, nil
}

// CompareVersions lists the field transitions between the states recorded at
// two versions, ordered by field name. Both states are masked for the caller
// before comparison, so redacted fields compare as their masked form.
func (s *Service) CompareVersions(ctx context.Context, subjectID string, versionA, versionB int64, callerID string) ([]diff.FieldChange, error) {
	a, err := s.GetVersion(ctx, subjectID, versionA, callerID)
	if err != nil {
		return nil, err
	}
	b, err := s.GetVersion(ctx, subjectID, versionB, callerID)
	if err != nil {
		return nil, err
	}
	return diff.Compare(a.Next, b.Next), nil
}

// Stats summarizes store usage and flags subjects over the advisory
// per-subject cap. The cap never drops data, it only surfaces here.
type Stats struct {
	Subjects     int              `json:"subjects"`
	Entries      int64            `json:"entries"`
	PerSubject   map[string]int64 `json:"perSubject"`
	OverCapacity []string         `json:"overCapacity,omitempty"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.versions.CountBySubject(ctx)
	if err != nil {
		s.logger.Error(ctx, "stats collection failed")
		return nil, fmt.Errorf("%w: collect stats", common.ErrOperationFailed)
	}
	cfg, err := s.policies.Get(ctx, s.tenantID)
	if err != nil {
		s.logger.Error(ctx, "stats policy load failed")
		return nil, fmt.Errorf("%w: collect stats", common.ErrOperationFailed)
	}

	out := &Stats{Subjects: len(counts), PerSubject: counts}
	for subject, n := range counts {
		out.Entries += n
		if cfg.MaxVersionsPerSubject > 0 && n > int64(cfg.MaxVersionsPerSubject) {
			out.OverCapacity = append(out.OverCapacity, subject)
		}
	}
	return out, nil
}

// SubjectStats summarizes one subject's history: who changed it, how, and
// when. Field values never appear here, so no masking is needed.
type SubjectStats struct {
	SubjectID   string                   `json:"subjectId"`
	Versions    int64                    `json:"versions"`
	ByOperation map[diff.Operation]int64 `json:"byOperation"`
	ByActor     map[string]int64         `json:"byActor"`
	FirstChange time.Time                `json:"firstChange"`
	LastChange  time.Time                `json:"lastChange"`
}

func (s *Service) SubjectStats(ctx context.Context, subjectID string) (*SubjectStats, error) {
	max, err := s.versions.MaxVersion(ctx, subjectID)
	if err != nil {
		s.logger.Error(ctx, "subject stats lookup failed", "subject", subjectID)
		return nil, fmt.Errorf("%w: subject stats", common.ErrOperationFailed)
	}
	if max == 0 {
		return nil, common.ErrNotFound
	}

	entries, err := s.versions.History(ctx, subjectID, versionstore.Filter{Limit: int(max)})
	if err != nil {
		s.logger.Error(ctx, "subject stats listing failed", "subject", subjectID)
		return nil, fmt.Errorf("%w: subject stats", common.ErrOperationFailed)
	}

	out := &SubjectStats{
		SubjectID:   subjectID,
		Versions:    int64(len(entries)),
		ByOperation: make(map[diff.Operation]int64),
		ByActor:     make(map[string]int64),
	}
	for _, e := range entries {
		out.ByOperation[e.Operation]++
		out.ByActor[e.ActorID]++
		if out.FirstChange.IsZero() || e.OccurredAt.Before(out.FirstChange) {
			out.FirstChange = e.OccurredAt
		}
		if e.OccurredAt.After(out.LastChange) {
			out.LastChange = e.OccurredAt
		}
	}
	return out, nil
}

func (s *Service) maskEntry(e *versionstore.VersionEntry, callerID string) {
	e.Previous = s.gateway.MaskSnapshot(e.Previous, callerID, s.specs)
	e.Next = s.gateway.MaskSnapshot(e.Next, callerID, s.specs)
}

func (s *Service) recordExport(ctx context.Context, subjectID, callerID, format string) {
	err := s.events.Emit(ctx, accesslog.Event{
		UserID:    callerID,
		DataType:  format,
		SubjectID: subjectID,
		Action:    accesslog.ActionExport,
	})
	if err != nil {
		s.logger.Error(ctx, "failed to record export event", "subject", subjectID)
	}
	s.metrics.AccessRecorded(string(accesslog.ActionExport))
	s.metrics.ExportDone(format)
}
