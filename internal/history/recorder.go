package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/andy/invoicer/internal/reqctx"
	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Kind is the change kind stored on a history record.
type Kind string

const (
	KindCreate Kind = "CREATE"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

var (
	// ErrActorNotFound means the acting user does not exist (anonymous or deleted).
	ErrActorNotFound = errors.New("history actor not found")
	// ErrUnknownEntity means the entity table has no descriptor.
	ErrUnknownEntity = errors.New("entity has no history descriptor")
	// ErrMissingPrevious means an update was recorded without its pre-update state.
	ErrMissingPrevious = errors.New("update recorded without previous state")
	// ErrQueueFull means the write queue is saturated and the record was dropped.
	ErrQueueFull = errors.New("history queue full")
	// ErrClosed means the recorder no longer accepts records.
	ErrClosed = errors.New("history recorder closed")
)

// Entity is implemented by audited domain types.
type Entity interface {
	HistoryTable() string
	HistoryID() int64
	// HistoryValues returns field values keyed by Field.Name.
	// Relations are given as *int64 or nil.
	HistoryValues() map[string]any
	// KeepHistory is the per-instance audit toggle, read when the change is recorded.
	KeepHistory() bool
}

// Record is one immutable history row.
type Record struct {
	ID        int64
	Table     string
	TableID   int64
	Kind      Kind
	Value     map[string]any
	Changes   map[string]any // UPDATE only
	UserID    int64
	CreatedAt time.Time
}

// Store persists history records.
type Store interface {
	Insert(ctx context.Context, record *Record) error
}

// ActorResolver checks that the acting user exists.
type ActorResolver interface {
	ActorExists(ctx context.Context, userID int64) (bool, error)
}

// Options tunes the background writer.
type Options struct {
	QueueSize   int
	Workers     int
	MaxAttempts uint
	RetryDelay  time.Duration
	Logger      *slog.Logger
	Metrics     *Metrics
}

type job struct {
	record    Record
	requestID string
}

// Recorder computes history records synchronously and writes them from a
// bounded queue drained by background workers. The triggering mutation never
// waits for, nor fails because of, the history write. Records still queued
// when the process dies are lost.
type Recorder struct {
	registry *Registry
	store    Store
	actors   ActorResolver
	logger   *slog.Logger
	metrics  *Metrics
	attempts uint
	delay    time.Duration
	workers  int
	now      func() time.Time

	jobs    chan job
	mu      sync.RWMutex
	closed  bool
	started bool
	group   *errgroup.Group
}

// NewRecorder wires a recorder. Call Start before recording.
func NewRecorder(registry *Registry, store Store, actors ActorResolver, opts Options) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Recorder{
		registry: registry,
		store:    store,
		actors:   actors,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		attempts: opts.MaxAttempts,
		delay:    opts.RetryDelay,
		workers:  opts.Workers,
		now:      time.Now,
		jobs:     make(chan job, opts.QueueSize),
	}
}

// Start launches the workers. ctx bounds the writes, not the queue.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for j := range r.jobs {
				r.metrics.setDepth(len(r.jobs))
				r.write(gctx, j)
			}
			return nil
		})
	}
	r.group = g
}

// Close stops accepting records and waits for the queue to drain or ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.jobs)
	g := r.group
	r.mu.Unlock()

	if g == nil {
		if n := len(r.jobs); n > 0 {
			r.logger.Warn("history recorder closed before start, records lost", "count", n)
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "history queue not drained")
	}
}

// Record computes the snapshot (and change set for updates) of entity and
// queues it for writing. It returns nil without queuing anything when history
// is disabled for the type or the instance, or when an update changed only
// timestamps.
func (r *Recorder) Record(ctx context.Context, kind Kind, entity, previous Entity) error {
	table := entity.HistoryTable()
	desc, ok := r.registry.Lookup(table)
	if !ok {
		return errors.Wrapf(ErrUnknownEntity, "table %q", table)
	}
	if desc.Disabled || !entity.KeepHistory() {
		r.metrics.observe(kind, outcomeSkipped)
		return nil
	}

	identity, err := reqctx.Current(ctx)
	if err != nil {
		return err
	}

	values := entity.HistoryValues()
	rec := Record{
		Table:     table,
		TableID:   entity.HistoryID(),
		Kind:      kind,
		Value:     Snapshot(desc, values),
		UserID:    identity.UserID,
		CreatedAt: r.now().UTC(),
	}

	if kind == KindUpdate {
		if previous == nil {
			return errors.Wrapf(ErrMissingPrevious, "%s %d", table, rec.TableID)
		}
		rec.Changes = Diff(desc, previous.HistoryValues(), values)
		if len(rec.Changes) == 0 {
			r.metrics.observe(kind, outcomeNoChange)
			return nil
		}
	}

	return r.enqueue(job{record: rec, requestID: identity.RequestID})
}

func (r *Recorder) enqueue(j job) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}

	select {
	case r.jobs <- j:
		r.metrics.setDepth(len(r.jobs))
		return nil
	default:
		r.metrics.observe(j.record.Kind, outcomeDropped)
		return errors.Wrapf(ErrQueueFull, "%s %d", j.record.Table, j.record.TableID)
	}
}

// Created records a CREATE, logging instead of returning errors.
func (r *Recorder) Created(ctx context.Context, entity Entity) {
	r.fireAndForget(ctx, KindCreate, entity, nil)
}

// Updated records an UPDATE against the state loaded before the write.
func (r *Recorder) Updated(ctx context.Context, entity, previous Entity) {
	r.fireAndForget(ctx, KindUpdate, entity, previous)
}

// Removed records a DELETE.
func (r *Recorder) Removed(ctx context.Context, entity Entity) {
	r.fireAndForget(ctx, KindDelete, entity, nil)
}

func (r *Recorder) fireAndForget(ctx context.Context, kind Kind, entity, previous Entity) {
	if err := r.Record(ctx, kind, entity, previous); err != nil {
		reqctx.Logger(ctx).WarnContext(ctx, "history not recorded",
			"table", entity.HistoryTable(),
			"id", entity.HistoryID(),
			"kind", string(kind),
			"error", err.Error())
	}
}

func (r *Recorder) write(ctx context.Context, j job) {
	rec := j.record
	logger := r.logger.With("request_id", j.requestID, "table", rec.Table, "id", rec.TableID, "kind", string(rec.Kind))

	err := retry.Do(func() error {
		if rec.UserID <= reqctx.AnonymousUserID {
			return retry.Unrecoverable(ErrActorNotFound)
		}
		exists, err := r.actors.ActorExists(ctx, rec.UserID)
		if err != nil {
			return err
		}
		if !exists {
			return retry.Unrecoverable(ErrActorNotFound)
		}
		record := rec
		return r.store.Insert(ctx, &record)
	},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("retrying history write", "attempt", n+1, "error", err.Error())
		}),
	)

	switch {
	case err == nil:
		r.metrics.observe(rec.Kind, outcomeWritten)
	case errors.Is(err, ErrActorNotFound):
		r.metrics.observe(rec.Kind, outcomeNoActor)
		logger.Warn("history actor not found, record skipped", "user_id", rec.UserID)
	default:
		r.metrics.observe(rec.Kind, outcomeFailed)
		logger.Error("failed to write history record", "error", err.Error())
	}
}
