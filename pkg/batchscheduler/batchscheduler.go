// Package batchscheduler admits new BatchScans under the monthly quota,
// fans child scans out to the scan-page queue, and marks batches STALE
// when no child has progressed within the idle window. Grounded on
// pkg/scan/manager/manager.go's CreateScanRecord + ScheduleCrawlWithOptions
// + advisory-lock-guarded stale recovery shape (SPEC_FULL.md §4.8).
package batchscheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/jobqueue"
	"github.com/accesslint/platform/pkg/processor"
	"github.com/accesslint/platform/pkg/taxonomy"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentEnqueues bounds how many child scan-page jobs a single
// batch admission enqueues at once.
const maxConcurrentEnqueues = 8

// Config holds the scheduler's tunables.
type Config struct {
	MonthlyLimit int           // default 3, shared with Discovery admission
	IdleWindow   time.Duration // how long without progress before a batch is marked STALE
	SweepInterval time.Duration
}

// DefaultConfig matches spec.md §6's recognized environment defaults.
func DefaultConfig() Config {
	return Config{
		MonthlyLimit:  3,
		IdleWindow:    30 * time.Minute,
		SweepInterval: 5 * time.Minute,
	}
}

// Scheduler admits batches, fans out child jobs, and runs the STALE janitor.
type Scheduler struct {
	conn   *db.DatabaseConnection
	queue  jobqueue.JobQueue
	config Config

	stopCh chan struct{}
}

// New builds a Scheduler bound to conn and queue.
func New(conn *db.DatabaseConnection, queue jobqueue.JobQueue, config Config) *Scheduler {
	return &Scheduler{conn: conn, queue: queue, config: config, stopCh: make(chan struct{})}
}

// CreateBatch admits a new batch under the monthly quota (the same rule
// Discovery creation uses) and fans out one scan-page job per URL.
func (s *Scheduler) CreateBatch(ctx context.Context, sessionID, userID, homepageURL string, wcagLevel db.WCAGLevel, urls []string, email *string) (*db.BatchScan, error) {
	now := time.Now()
	count, err := s.conn.GetDiscoveryCount(sessionID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("check monthly usage: %w", err)
	}
	if count >= s.config.MonthlyLimit {
		return nil, taxonomy.New(taxonomy.CodeUsageLimitExceeded, "monthly batch admission limit reached")
	}

	batch := &db.BatchScan{
		HomepageURL: homepageURL,
		WCAGLevel:   wcagLevel,
		Status:      db.BatchScanStatusRunning,
		Email:       email,
	}
	batch, err = s.conn.CreateBatchScan(batch, urls)
	if err != nil {
		return nil, fmt.Errorf("create batch scan: %w", err)
	}

	if err := s.conn.IncrementDiscoveryCount(sessionID, userID, now); err != nil {
		log.Warn().Err(err).Uint("batch_id", batch.ID).Msg("Failed to increment monthly usage after batch admission")
	}

	batch, err = s.conn.GetBatchScanByID(batch.ID)
	if err != nil {
		return nil, fmt.Errorf("reload batch scan %d: %w", batch.ID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEnqueues)
	for _, scan := range batch.Scans {
		scan := scan
		g.Go(func() error {
			if _, err := s.queue.Enqueue(gctx, db.QueueScanPage, processor.ScanPagePayload{ScanID: scan.ID}, jobqueue.EnqueueOptions{}); err != nil {
				log.Error().Err(err).Uint("scan_id", scan.ID).Uint("batch_id", batch.ID).Msg("Failed to enqueue child scan-page job")
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info().Uint("batch_id", batch.ID).Int("total_urls", batch.TotalUrls).Msg("Batch scan admitted")
	return batch, nil
}

// Start runs the STALE janitor loop until Stop is called.
func (s *Scheduler) Start() {
	go s.runLoop()
}

// Stop terminates the janitor loop.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) runLoop() {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.config.SweepInterval).Msg("Started batch STALE janitor loop")

	for {
		select {
		case <-s.stopCh:
			log.Debug().Msg("Batch STALE janitor loop stopped")
			return
		case <-ticker.C:
			s.sweepStaleBatches()
		}
	}
}

// StaleBatchSweepAdvisoryLockID guards the janitor sweep so only one
// scheduler instance runs it at a time, mirroring the teacher's
// StaleJobRecoveryAdvisoryLockID pattern for its own recovery loop.
const StaleBatchSweepAdvisoryLockID = 8675310

func (s *Scheduler) sweepStaleBatches() {
	var acquired bool
	err := s.conn.DB().Raw("SELECT pg_try_advisory_lock(?)", StaleBatchSweepAdvisoryLockID).Scan(&acquired).Error
	if err != nil {
		log.Warn().Err(err).Msg("Failed to acquire advisory lock for batch STALE sweep")
		return
	}
	if !acquired {
		log.Trace().Msg("Skipping batch STALE sweep - another instance holds the lock")
		return
	}
	defer func() {
		if err := s.conn.DB().Exec("SELECT pg_advisory_unlock(?)", StaleBatchSweepAdvisoryLockID).Error; err != nil {
			log.Warn().Err(err).Msg("Failed to release advisory lock for batch STALE sweep")
		}
	}()

	threshold := time.Now().Add(-s.config.IdleWindow)
	stale, err := s.conn.ListStaleBatchScans(threshold)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list stale batch scans")
		return
	}
	for _, batch := range stale {
		if err := s.conn.MarkBatchScanStale(batch.ID); err != nil {
			log.Warn().Err(err).Uint("batch_id", batch.ID).Msg("Failed to mark batch scan stale")
			continue
		}
		log.Info().Uint("batch_id", batch.ID).Msg("Batch scan marked STALE (no child progress within idle window)")
	}
}
