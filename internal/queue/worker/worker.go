package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/delivery"
	"github.com/geocoder89/storejobs/internal/domain/task"
	"github.com/geocoder89/storejobs/internal/notifications"
	"github.com/geocoder89/storejobs/internal/observability"
)

type TaskStore interface {
	ClaimNext(ctx context.Context, workerID string) (task.Task, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// DeliveryLedger records which notifications went out, so a task retried
// after a crash does not send twice.
type DeliveryLedger interface {
	TryStart(ctx context.Context, key delivery.Key, taskID, recipient string) error
	MarkSent(ctx context.Context, key delivery.Key) error
	MarkFailed(ctx context.Context, key delivery.Key, errMsg string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	WorkerID      string
	Concurrency   int
	PollInterval  time.Duration
	LockTTL       time.Duration
	ShutdownGrace time.Duration
}

type Worker struct {
	cfg      Config
	store    TaskStore
	ledger   DeliveryLedger
	notifier notifications.Notifier
	log      *slog.Logger
	prom     *observability.Prom
	metrics  *observability.TaskMetrics
	db       Pinger

	readyMu sync.RWMutex
	ready   bool

	backoff func(attempt int) time.Duration
	now     func() time.Time
}

type Deps struct {
	Store    TaskStore
	Ledger   DeliveryLedger
	Notifier notifications.Notifier
	Log      *slog.Logger
	Prom     *observability.Prom
	DB       Pinger
}

func New(cfg Config, deps Deps) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 60 * time.Second
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:      cfg,
		store:    deps.Store,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		log:      log.With("worker_id", cfg.WorkerID),
		prom:     deps.Prom,
		metrics:  observability.NewTaskMetrics(),
		db:       deps.DB,
		backoff:  ExponentialBackoff,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (w *Worker) Metrics() *observability.TaskMetrics { return w.metrics }

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

var ErrShutdownGraceExceeded = errors.New("worker shutdown grace exceeded")

// Run polls until ctx is cancelled, then waits up to ShutdownGrace for
// in-flight tasks to finish.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	w.setReady(true)
	w.log.Info("worker started", "concurrency", w.cfg.Concurrency, "poll_interval", w.cfg.PollInterval)

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.loop(ctx, slot)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.reaper(ctx)
	}()

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker received shutdown signal")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("worker drained")
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
		return ErrShutdownGraceExceeded
	}
}

func (w *Worker) loop(ctx context.Context, slot int) {
	for {
		if ctx.Err() != nil {
			return
		}

		processed, err := w.ProcessOne(ctx)
		if err != nil {
			w.log.Error("process task failed", "slot", slot, "err", err)
		}

		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// reaper requeues tasks whose worker died mid-flight.
func (w *Worker) reaper(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.LockTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.store.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
			if err != nil {
				w.log.Error("requeue stale tasks failed", "err", err)
				continue
			}
			if n > 0 {
				w.log.Warn("requeued stale tasks", "count", n)
			}
		}
	}
}
