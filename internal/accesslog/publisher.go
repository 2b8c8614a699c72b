package accesslog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fintrail/audita/internal/logging"
)

// Recorder is the producer-side interface consumed by the protection
// gateway. Both the synchronous Publisher and the channel-backed
// AsyncPublisher satisfy it.
type Recorder interface {
	Emit(ctx context.Context, e Event) error
}

// Publisher stamps ids/timestamps and appends directly to the store.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, e Event) error {
	stamp(&e)
	return p.store.Append(ctx, e)
}

func stamp(e *Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}

// AsyncPublisher hands events to a channel drained by a Worker, so reveal
// paths never block on the event store. A full inbox drops the event with a
// warning instead of stalling the caller.
type AsyncPublisher struct {
	inbox  chan Event
	logger logging.Logger
}

func NewAsyncPublisher(buffer int, logger logging.Logger) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &AsyncPublisher{inbox: make(chan Event, buffer), logger: logger}
}

func (p *AsyncPublisher) Emit(ctx context.Context, e Event) error {
	stamp(&e)
	select {
	case p.inbox <- e:
	default:
		p.logger.Warn(ctx, "access event dropped, inbox full",
			"user", e.UserID, "dataType", e.DataType)
	}
	return nil
}

// Inbox exposes the receive side for the Worker.
func (p *AsyncPublisher) Inbox() <-chan Event { return p.inbox }

// Worker consumes access events from a channel and persists them.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-w.inbox:
			if err := w.store.Append(ctx, e); err != nil {
				return err
			}
		}
	}
}
