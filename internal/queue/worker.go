package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/logger"
)

// Processor runs one job. Errors matching domain.ErrFatalExtraction halt the
// queue; any other error fails only that job.
type Processor interface {
	Process(ctx context.Context, queryID string) error
}

type ProcessorFunc func(ctx context.Context, queryID string) error

func (f ProcessorFunc) Process(ctx context.Context, queryID string) error {
	return f(ctx, queryID)
}

// Worker drains a Queue one job at a time, sleeping a fixed delay between jobs.
type Worker struct {
	queue     *Queue
	processor Processor
	delay     time.Duration
	Logger    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(q *Queue, p Processor, delay time.Duration, log *logger.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.Default()
	}

	return &Worker{
		queue:     q,
		processor: p,
		delay:     delay,
		Logger:    log.WithComponent("worker"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (w *Worker) Start() {
	w.Logger.Info("Starting worker", "delay", w.delay)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		_ = w.Run(w.ctx)
	}()
}

func (w *Worker) Stop() {
	w.Logger.Info("Stopping worker")
	w.cancel()
	w.wg.Wait()
}

// Run processes jobs until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		id, ok := w.queue.next()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-w.queue.Wake():
				continue
			}
		}

		w.runJob(ctx, id)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.delay):
		}
	}
}

func (w *Worker) runJob(ctx context.Context, id string) {
	log := w.Logger.With("query_id", id)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in job", "panic", r)
			w.queue.finish(id, fmt.Errorf("panic: %v", r))
		}
	}()

	log.Info("Running job")
	err := w.processor.Process(ctx, id)

	switch {
	case err == nil:
		w.queue.finish(id, nil)
		log.Info("Job complete", "duration", time.Since(start))
	case domain.IsFatal(err):
		w.queue.halt(id, err)
		log.Error("Fatal extraction error, halting queue until resumed", "error", err)
	default:
		w.queue.finish(id, err)
		log.Warn("Job failed", "error", err, "duration", time.Since(start))
	}
}
