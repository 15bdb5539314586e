package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// QueueName names one of the five durable job queues (SPEC_FULL.md §4.6).
type QueueName string

const (
	QueueScanPage      QueueName = "scan-page"
	QueueGenerateReport QueueName = "generate-report"
	QueueSendEmail     QueueName = "send-email"
	QueueBatchReport   QueueName = "batch-report"
	QueueAIBatch       QueueName = "ai-batch"
)

// JobState is the lifecycle state of a Job row. Adapted from the
// teacher's ScanJobStatus (pending/claimed/running/completed/failed/
// cancelled), narrowed to the five states SPEC_FULL.md §3 names, which
// include "delayed" for the backoff-aware retry path.
type JobState string

const (
	JobStateWaiting   JobState = "waiting"
	JobStateDelayed   JobState = "delayed"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// BackoffStrategy selects how Fail computes the next retry delay.
type BackoffStrategy string

const (
	BackoffExponential BackoffStrategy = "exponential"
	BackoffFixed       BackoffStrategy = "fixed"
)

// BackoffOptions configures a queue's retry delay computation.
type BackoffOptions struct {
	Strategy  BackoffStrategy `json:"strategy"`
	InitialMs int             `json:"initial_ms"`
	MaxMs     int             `json:"max_ms"`
}

// NextDelay computes the retry delay for the given (1-indexed) attempt.
func (b BackoffOptions) NextDelay(attempt int) time.Duration {
	if b.InitialMs <= 0 {
		b.InitialMs = 1000
	}
	if b.MaxMs <= 0 {
		b.MaxMs = 5 * 60 * 1000
	}
	delayMs := b.InitialMs
	if b.Strategy == BackoffExponential {
		for i := 1; i < attempt; i++ {
			delayMs *= 2
			if delayMs >= b.MaxMs {
				delayMs = b.MaxMs
				break
			}
		}
	}
	if delayMs > b.MaxMs {
		delayMs = b.MaxMs
	}
	return time.Duration(delayMs) * time.Millisecond
}

// JobOptions mirrors the enqueue(payload, opts) contract of SPEC_FULL.md §4.6.
type JobOptions struct {
	Attempts int
	Backoff  BackoffOptions
	DelayMs  int
}

// Job is one unit of durable work on a named queue. Generalized from
// the teacher's ScanJob (one implicit queue per db.ScanJob row) into
// five named queues sharing one table distinguished by QueueName.
type Job struct {
	BaseModel
	QueueName   QueueName `json:"queue_name" gorm:"index;size:50;not null"`
	Payload     []byte    `json:"payload" gorm:"type:jsonb"`
	State       JobState  `json:"state" gorm:"index;size:20;not null;default:'waiting'"`
	AttemptsMade int      `json:"attempts_made" gorm:"default:0"`
	MaxAttempts int       `json:"max_attempts" gorm:"default:5"`
	NextRunAt   time.Time `json:"next_run_at" gorm:"index"`
	LastError   *string   `json:"last_error,omitempty" gorm:"type:text"`

	WorkerID    *string    `json:"worker_id,omitempty" gorm:"index;size:255"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	BackoffStrategy  BackoffStrategy `json:"backoff_strategy" gorm:"size:20;default:'exponential'"`
	BackoffInitialMs int             `json:"backoff_initial_ms" gorm:"default:1000"`
	BackoffMaxMs     int             `json:"backoff_max_ms" gorm:"default:300000"`
}

func (j Job) backoff() BackoffOptions {
	return BackoffOptions{Strategy: j.BackoffStrategy, InitialMs: j.BackoffInitialMs, MaxMs: j.BackoffMaxMs}
}

// IsTerminal reports whether the job has reached a terminal state.
func (j Job) IsTerminal() bool {
	return j.State == JobStateCompleted || j.State == JobStateFailed
}

func (j Job) String() string {
	return fmt.Sprintf("ID: %d, Queue: %s, State: %s, Attempts: %d/%d", j.ID, j.QueueName, j.State, j.AttemptsMade, j.MaxAttempts)
}

// CreateJob enqueues a new job on queueName.
func (conn *DatabaseConnection) CreateJob(queueName QueueName, payload []byte, opts JobOptions) (*Job, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 5
	}
	nextRunAt := time.Now()
	if opts.DelayMs > 0 {
		nextRunAt = nextRunAt.Add(time.Duration(opts.DelayMs) * time.Millisecond)
	}

	job := &Job{
		QueueName:        queueName,
		Payload:          payload,
		State:            JobStateWaiting,
		MaxAttempts:      opts.Attempts,
		NextRunAt:        nextRunAt,
		BackoffStrategy:  opts.Backoff.Strategy,
		BackoffInitialMs: opts.Backoff.InitialMs,
		BackoffMaxMs:     opts.Backoff.MaxMs,
	}
	if job.BackoffStrategy == "" {
		job.BackoffStrategy = BackoffExponential
	}

	result := conn.db.Create(job)
	if result.Error != nil {
		log.Error().Err(result.Error).Str("queue", string(queueName)).Msg("Job creation failed")
	}
	return job, result.Error
}

// CreateJobs enqueues a batch of jobs on the same queue in one insert.
func (conn *DatabaseConnection) CreateJobs(queueName QueueName, payloads [][]byte, opts JobOptions) ([]*Job, error) {
	jobs := make([]*Job, 0, len(payloads))
	for _, p := range payloads {
		jobs = append(jobs, &Job{
			QueueName:        queueName,
			Payload:          p,
			State:            JobStateWaiting,
			MaxAttempts:      maxInt(opts.Attempts, 5),
			NextRunAt:        time.Now(),
			BackoffStrategy:  orDefaultBackoff(opts.Backoff.Strategy),
			BackoffInitialMs: opts.Backoff.InitialMs,
			BackoffMaxMs:     opts.Backoff.MaxMs,
		})
	}
	if len(jobs) == 0 {
		return jobs, nil
	}
	result := conn.db.Create(&jobs)
	return jobs, result.Error
}

func maxInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func orDefaultBackoff(s BackoffStrategy) BackoffStrategy {
	if s == "" {
		return BackoffExponential
	}
	return s
}

// ClaimJob atomically claims the next due job on queueName for
// workerID, using FOR UPDATE SKIP LOCKED. Grounded on the teacher's
// ClaimScanJob raw-SQL shape, generalized from a scan-scoped filter to
// a queue-scoped one and from "pending" to "waiting/delayed due now".
func (conn *DatabaseConnection) ClaimJob(queueName QueueName, workerID string) (*Job, error) {
	var job Job
	now := time.Now()

	err := conn.db.Raw(`
		UPDATE jobs
		SET state = ?, worker_id = ?, claimed_at = ?, started_at = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE queue_name = ?
			  AND state IN (?, ?)
			  AND next_run_at <= ?
			ORDER BY next_run_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *
	`,
		JobStateActive, workerID, now, now,
		queueName,
		JobStateWaiting, JobStateDelayed,
		now,
	).Scan(&job).Error

	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

// CompleteJob marks a job as successfully completed.
func (conn *DatabaseConnection) CompleteJob(jobID uint) error {
	now := time.Now()
	return conn.db.Model(&Job{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"state":        JobStateCompleted,
		"completed_at": now,
	}).Error
}

// FailJob records a job failure. If attempts remain, it is re-enqueued
// with a delay computed from the queue's backoff options; otherwise it
// is marked permanently failed and onPermanentFailure is invoked.
func (conn *DatabaseConnection) FailJob(jobID uint, errMsg string, onPermanentFailure func(*Job)) error {
	var job Job
	if err := conn.db.First(&job, jobID).Error; err != nil {
		return err
	}

	job.AttemptsMade++
	now := time.Now()

	if job.AttemptsMade < job.MaxAttempts {
		delay := job.backoff().NextDelay(job.AttemptsMade)
		return conn.db.Model(&Job{}).Where("id = ?", jobID).Updates(map[string]interface{}{
			"state":         JobStateDelayed,
			"attempts_made": job.AttemptsMade,
			"next_run_at":   now.Add(delay),
			"last_error":    errMsg,
			"worker_id":     nil,
			"claimed_at":    nil,
		}).Error
	}

	if err := conn.db.Model(&Job{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"state":         JobStateFailed,
		"attempts_made": job.AttemptsMade,
		"last_error":    errMsg,
		"completed_at":  now,
	}).Error; err != nil {
		return err
	}

	if onPermanentFailure != nil {
		job.State = JobStateFailed
		job.LastError = &errMsg
		onPermanentFailure(&job)
	}
	return nil
}

// ResetStaleJobs resets jobs claimed by workerID back to waiting, used
// on worker shutdown to release in-flight work.
func (conn *DatabaseConnection) ResetStaleJobs(workerID string) (int64, error) {
	result := conn.db.Model(&Job{}).
		Where("state = ? AND worker_id = ?", JobStateActive, workerID).
		Updates(map[string]interface{}{
			"state":      JobStateWaiting,
			"worker_id":  nil,
			"claimed_at": nil,
			"started_at": nil,
		})
	return result.RowsAffected, result.Error
}

// ResetAllStaleJobs resets jobs that have been active longer than
// staleThreshold, for crash recovery at startup.
func (conn *DatabaseConnection) ResetAllStaleJobs(staleThreshold time.Duration) (int64, error) {
	threshold := time.Now().Add(-staleThreshold)
	result := conn.db.Model(&Job{}).
		Where("state = ? AND claimed_at < ?", JobStateActive, threshold).
		Updates(map[string]interface{}{
			"state":      JobStateWaiting,
			"worker_id":  nil,
			"claimed_at": nil,
			"started_at": nil,
		})
	return result.RowsAffected, result.Error
}

// QueueStats reports counts by state for one queue.
type QueueStats struct {
	WaitingCount   int64
	DelayedCount   int64
	ActiveCount    int64
	CompletedCount int64
	FailedCount    int64
	TotalCount     int64
}

// GetQueueStats returns job counts by state for queueName.
func (conn *DatabaseConnection) GetQueueStats(queueName QueueName) (*QueueStats, error) {
	type row struct {
		State JobState
		Count int64
	}
	var rows []row
	if err := conn.db.Model(&Job{}).Select("state, count(*) as count").
		Where("queue_name = ?", queueName).Group("state").Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &QueueStats{}
	for _, r := range rows {
		switch r.State {
		case JobStateWaiting:
			stats.WaitingCount = r.Count
		case JobStateDelayed:
			stats.DelayedCount = r.Count
		case JobStateActive:
			stats.ActiveCount = r.Count
		case JobStateCompleted:
			stats.CompletedCount = r.Count
		case JobStateFailed:
			stats.FailedCount = r.Count
		}
		stats.TotalCount += r.Count
	}
	return stats, nil
}
