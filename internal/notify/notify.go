// Package notify delivers change notices to the recipients configured in
// the audit policy. Emission is decoupled from delivery through a channel so
// the append path never waits on a sink.
package notify

import (
	"context"
	"time"

	"github.com/fintrail/audita/internal/diff"
	"github.com/fintrail/audita/internal/logging"
)

// Notice describes one recorded mutation for notification purposes. It
// carries field names only, never field values.
type Notice struct {
	SubjectID     string
	Version       int64
	Operation     diff.Operation
	ChangedFields []string
	Recipients    []string
	OccurredAt    time.Time
}

// Sender delivers a notice to its recipients (mail, webhook, queue...).
type Sender interface {
	Send(ctx context.Context, n Notice) error
}

// LogSender writes notices to the structured log. It is the default sink in
// deployments without a delivery integration.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "notify")}
}

func (s *LogSender) Send(ctx context.Context, n Notice) error {
	s.logger.Info(ctx, "change notification",
		"subject", n.SubjectID,
		"version", n.Version,
		"operation", string(n.Operation),
		"recipients", n.Recipients,
	)
	return nil
}

// Publisher accepts notices and hands them to the worker. A full inbox
// drops the notice with a warning; notifications are best-effort and must
// not stall appends.
type Publisher struct {
	inbox  chan Notice
	logger logging.Logger
}

func NewPublisher(buffer int, logger logging.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Publisher{inbox: make(chan Notice, buffer), logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, n Notice) {
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now()
	}
	select {
	case p.inbox <- n:
	default:
		p.logger.Warn(ctx, "change notice dropped, inbox full", "subject", n.SubjectID)
	}
}

func (p *Publisher) Inbox() <-chan Notice { return p.inbox }

// Worker consumes notices from the publisher and delivers them through the
// sender. Delivery failures are logged and skipped, not retried.
type Worker struct {
	sender Sender
	inbox  <-chan Notice
	logger logging.Logger
}

func NewWorker(sender Sender, inbox <-chan Notice, logger logging.Logger) *Worker {
	return &Worker{sender: sender, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-w.inbox:
			if err := w.sender.Send(ctx, n); err != nil {
				w.logger.Error(ctx, "notification delivery failed",
					"subject", n.SubjectID, "version", n.Version)
			}
		}
	}
}
