// Package jobqueue provides a durable, named-queue job abstraction
// backed by Postgres FOR UPDATE SKIP LOCKED claiming.
package jobqueue

import (
	"context"
	"encoding/json"

	"github.com/accesslint/platform/db"
)

// EnqueueOptions mirrors SPEC_FULL.md §4.6's enqueue(payload, opts) contract.
type EnqueueOptions struct {
	Attempts int
	Backoff  db.BackoffOptions
	DelayMs  int
}

func (o EnqueueOptions) toJobOptions() db.JobOptions {
	return db.JobOptions{Attempts: o.Attempts, Backoff: o.Backoff, DelayMs: o.DelayMs}
}

// JobQueue is the contract every named queue (scan-page, generate-report,
// send-email, batch-report, ai-batch) is accessed through. Generalized
// from the teacher's ScanJob-scoped queue.JobQueue interface to a
// queueName-scoped one sharing a single Job table.
type JobQueue interface {
	Enqueue(ctx context.Context, queueName db.QueueName, payload interface{}, opts EnqueueOptions) (*db.Job, error)
	EnqueueBatch(ctx context.Context, queueName db.QueueName, payloads []interface{}, opts EnqueueOptions) ([]*db.Job, error)
	Claim(ctx context.Context, queueName db.QueueName, workerID string) (*db.Job, error)
	Complete(ctx context.Context, jobID uint) error
	Fail(ctx context.Context, jobID uint, errMsg string, onPermanentFailure func(*db.Job)) error
	Stats(ctx context.Context, queueName db.QueueName) (*db.QueueStats, error)
	ResetStaleJobs(ctx context.Context, workerID string) (int64, error)
}

// PostgresQueue is the durable JobQueue backed by db.Job, grounded on
// pkg/scan/queue/postgres.go's Claim/Complete/Fail/Stats shape,
// generalized from one implicit queue to queueName-scoped operations.
type PostgresQueue struct {
	conn *db.DatabaseConnection
}

// New returns a JobQueue backed by conn.
func New(conn *db.DatabaseConnection) *PostgresQueue {
	return &PostgresQueue{conn: conn}
}

func (q *PostgresQueue) Enqueue(ctx context.Context, queueName db.QueueName, payload interface{}, opts EnqueueOptions) (*db.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return q.conn.CreateJob(queueName, raw, opts.toJobOptions())
}

func (q *PostgresQueue) EnqueueBatch(ctx context.Context, queueName db.QueueName, payloads []interface{}, opts EnqueueOptions) ([]*db.Job, error) {
	raws := make([][]byte, 0, len(payloads))
	for _, p := range payloads {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	return q.conn.CreateJobs(queueName, raws, opts.toJobOptions())
}

func (q *PostgresQueue) Claim(ctx context.Context, queueName db.QueueName, workerID string) (*db.Job, error) {
	return q.conn.ClaimJob(queueName, workerID)
}

func (q *PostgresQueue) Complete(ctx context.Context, jobID uint) error {
	return q.conn.CompleteJob(jobID)
}

// Fail re-enqueues with backoff delay while attempts remain, per
// SPEC_FULL.md §4.6's generalization of the teacher's flat
// CanRetry()/reset-to-pending into a delayed state=delayed re-enqueue.
func (q *PostgresQueue) Fail(ctx context.Context, jobID uint, errMsg string, onPermanentFailure func(*db.Job)) error {
	return q.conn.FailJob(jobID, errMsg, onPermanentFailure)
}

func (q *PostgresQueue) Stats(ctx context.Context, queueName db.QueueName) (*db.QueueStats, error) {
	return q.conn.GetQueueStats(queueName)
}

func (q *PostgresQueue) ResetStaleJobs(ctx context.Context, workerID string) (int64, error) {
	return q.conn.ResetStaleJobs(workerID)
}

var _ JobQueue = (*PostgresQueue)(nil)
