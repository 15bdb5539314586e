// Package worker polls the named job queues and dispatches claimed jobs
// to the registered processor.Processor for their queue. Grounded on
// pkg/scan/worker.Worker's poll/claim/execute loop, generalized from one
// implicit queue and an ExecutorRegistry keyed by job type to a fixed
// QueueName per worker and a processor.Registry keyed by queue name.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/jobqueue"
	"github.com/accesslint/platform/pkg/processor"
	"github.com/rs/zerolog/log"
)

// Worker runs in a goroutine, polling one queue for jobs and executing
// them against Collaborators.
type Worker struct {
	id           string
	queueName    db.QueueName
	queue        jobqueue.JobQueue
	registry     *processor.Registry
	collabs      processor.Collaborators
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds worker configuration.
type Config struct {
	ID            string
	QueueName     db.QueueName
	Queue         jobqueue.JobQueue
	Registry      *processor.Registry
	Collaborators processor.Collaborators
	PollInterval  time.Duration
}

// New creates a new worker bound to a single queue.
func New(cfg Config) *Worker {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.Registry == nil {
		cfg.Registry = processor.DefaultRegistry
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		id:           cfg.ID,
		queueName:    cfg.QueueName,
		queue:        cfg.Queue,
		registry:     cfg.Registry,
		collabs:      cfg.Collaborators,
		pollInterval: cfg.PollInterval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins the worker's main loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
	log.Info().Str("worker_id", w.id).Str("queue", string(w.queueName)).Msg("Worker started")
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	log.Info().Str("worker_id", w.id).Msg("Worker stopping")
	w.cancel()
	w.wg.Wait()
	log.Info().Str("worker_id", w.id).Msg("Worker stopped")
}

// ID returns the worker's ID.
func (w *Worker) ID() string {
	return w.id
}

func (w *Worker) run() {
	defer w.wg.Done()

	log.Debug().Str("worker_id", w.id).Msg("Worker run loop started")

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		job, err := w.queue.Claim(w.ctx, w.queueName, w.id)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("worker_id", w.id).Msg("Error claiming job")
			w.sleep()
			continue
		}

		if job == nil {
			w.sleep()
			continue
		}

		w.executeJob(job)
	}
}

func (w *Worker) sleep() {
	select {
	case <-w.ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *Worker) executeJob(job *db.Job) {
	logger := log.With().
		Str("worker_id", w.id).
		Uint("job_id", job.ID).
		Str("queue", string(job.QueueName)).
		Logger()

	logger.Debug().Msg("Executing job")

	proc, ok := w.registry.Get(job.QueueName)
	if !ok {
		logger.Warn().Msg("No processor registered for queue")
		_ = w.queue.Fail(w.ctx, job.ID, processor.ErrUnregistered(job.QueueName).Error(), nil)
		return
	}

	start := time.Now()
	result, err := func() (res processor.Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("processor panicked: %v", r)
			}
		}()
		return proc(w.ctx, job, w.collabs)
	}()
	duration := time.Since(start)

	if w.ctx.Err() != nil && err != nil {
		logger.Debug().Dur("duration", duration).Msg("Job interrupted by shutdown")
		return
	}

	if err != nil {
		logger.Warn().Err(err).Dur("duration", duration).Msg("Job failed")
		_ = w.queue.Fail(w.ctx, job.ID, err.Error(), w.onPermanentFailure)
		return
	}

	logger.Info().Dur("duration", duration).Int("issues_found", result.IssuesFound).Msg("Job completed")
	if err := w.queue.Complete(w.ctx, job.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to mark job complete")
	}
}

// onPermanentFailure runs once a job exhausts its retry attempts. Only
// send-email carries a queue-specific hook today (nullifying the owning
// row's email per SPEC_FULL.md §4.7 step 5); other queues have none.
func (w *Worker) onPermanentFailure(job *db.Job) {
	if job.QueueName == db.QueueSendEmail {
		processor.OnSendEmailPermanentFailure(w.collabs.Conn, job)
	}
}
