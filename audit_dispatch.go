package auth

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// DispatcherOption customizes an AuditDispatcher
type DispatcherOption func(*AuditDispatcher)

// WithQueueSize sets the buffered queue capacity
func WithQueueSize(n int) DispatcherOption {
	return func(d *AuditDispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithWorkers sets the number of writer goroutines
func WithWorkers(n int) DispatcherOption {
	return func(d *AuditDispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithMaxAttempts bounds how many times a single entry is written
func WithMaxAttempts(n int) DispatcherOption {
	return func(d *AuditDispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the base delay between attempts; attempt n waits n*d
func WithRetryBackoff(d time.Duration) DispatcherOption {
	return func(ad *AuditDispatcher) {
		if d >= 0 {
			ad.backoff = d
		}
	}
}

// WithAttemptTimeout bounds a single write attempt
func WithAttemptTimeout(d time.Duration) DispatcherOption {
	return func(ad *AuditDispatcher) {
		if d > 0 {
			ad.attemptTimeout = d
		}
	}
}

// WithDispatcherLogger sets the logger
func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *AuditDispatcher) {
		d.logger = normalizeLogger(logger)
	}
}

// WithFailureHandler is called with every entry that exhausted its attempts
func WithFailureHandler(fn func(entry *AuditEntry, err error)) DispatcherOption {
	return func(d *AuditDispatcher) {
		d.onFailure = fn
	}
}

// AuditDispatcher is an AuditStore that hands entries to a bounded queue
// drained by background writers. Append never blocks: a full or closed queue
// is reported as ErrAuditWriteFailed. Each entry is attempted at most
// maxAttempts times; entries that still fail are logged with their id.
type AuditDispatcher struct {
	store          AuditStore
	queue          chan *AuditEntry
	queueSize      int
	workers        int
	maxAttempts    int
	backoff        time.Duration
	attemptTimeout time.Duration
	logger         Logger
	onFailure      func(entry *AuditEntry, err error)

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ AuditStore = (*AuditDispatcher)(nil)

// NewAuditDispatcher starts the writers and returns the dispatcher
func NewAuditDispatcher(store AuditStore, opts ...DispatcherOption) *AuditDispatcher {
	d := &AuditDispatcher{
		store:          store,
		queueSize:      256,
		workers:        2,
		maxAttempts:    3,
		backoff:        200 * time.Millisecond,
		attemptTimeout: DefaultAuditWriteTimeout,
		logger:         DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	d.queue = make(chan *AuditEntry, d.queueSize)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Append enqueues entry without waiting for it to be written
func (d *AuditDispatcher) Append(_ context.Context, entry *AuditEntry) error {
	if entry == nil {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return auditWriteFailed(entry.ID, errors.New("audit dispatcher closed", errors.CategoryOperation))
	}

	select {
	case d.queue <- entry.Clone():
		return nil
	default:
		d.logger.Warn("AuditDispatcher: queue full, entry %s rejected", entry.ID)
		return auditWriteFailed(entry.ID, errors.New("audit queue full", errors.CategoryRateLimit))
	}
}

// Pending returns the number of queued entries
func (d *AuditDispatcher) Pending() int {
	return len(d.queue)
}

// Close stops intake and waits for queued entries to be written or for ctx to
// end, whichever comes first.
func (d *AuditDispatcher) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.logger.Error("AuditDispatcher: close interrupted with %d entries pending", len(d.queue))
		return ctx.Err()
	}
}

func (d *AuditDispatcher) run() {
	defer d.wg.Done()
	for entry := range d.queue {
		d.deliver(entry)
	}
}

func (d *AuditDispatcher) deliver(entry *AuditEntry) {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err = d.write(entry); err == nil {
			return
		}

		d.logger.Warn("AuditDispatcher: attempt %d/%d for entry %s failed: %v", attempt, d.maxAttempts, entry.ID, err)

		if attempt < d.maxAttempts && d.backoff > 0 {
			time.Sleep(time.Duration(attempt) * d.backoff)
		}
	}

	d.logger.Error("AuditDispatcher: giving up on entry %s (%s %s/%s by %s): %v",
		entry.ID, entry.Action, entry.EntityType, entry.EntityID, entry.ActorID, err)

	if d.onFailure != nil {
		d.onFailure(entry, auditWriteFailed(entry.ID, err))
	}
}

func (d *AuditDispatcher) write(entry *AuditEntry) error {
	if d.store == nil {
		return errors.New("no audit store configured", errors.CategoryInternal)
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.attemptTimeout)
	defer cancel()
	return d.store.Append(ctx, entry.Clone())
}
