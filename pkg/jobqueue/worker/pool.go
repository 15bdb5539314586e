package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/jobqueue"
	"github.com/accesslint/platform/pkg/processor"
	"github.com/rs/zerolog/log"
)

// Pool manages one worker node's set of workers, one or more per queue.
// Grounded on pkg/scan/worker.Pool's node-registration/heartbeat/graceful-
// shutdown shape, generalized from a single job-type queue to the five
// named queues sharing db.Job.
type Pool struct {
	workers  []*Worker
	mu       sync.RWMutex
	started  bool
	queue    jobqueue.JobQueue
	registry *processor.Registry
	collabs  processor.Collaborators

	nodeID            string
	heartbeatInterval time.Duration
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
}

// PoolConfig holds pool configuration. QueueConcurrency maps each named
// queue to how many workers poll it; queues absent from the map are not
// serviced by this pool. DefaultQueueConcurrency is used when nil.
type PoolConfig struct {
	QueueConcurrency  map[db.QueueName]int
	NodeIDPrefix      string
	NodeID            string
	Queue             jobqueue.JobQueue
	Registry          *processor.Registry
	Collaborators     processor.Collaborators
	HeartbeatInterval time.Duration
	Version           string
}

// DefaultQueueConcurrency mirrors a single-node deployment servicing
// every queue, weighted toward scan-page since it drives the browser.
func DefaultQueueConcurrency() map[db.QueueName]int {
	return map[db.QueueName]int{
		db.QueueScanPage:       5,
		db.QueueGenerateReport: 2,
		db.QueueSendEmail:      2,
		db.QueueBatchReport:    2,
		db.QueueAIBatch:        2,
	}
}

// NewPool creates a new worker pool and registers its node in the database.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.QueueConcurrency == nil {
		cfg.QueueConcurrency = DefaultQueueConcurrency()
	}
	if cfg.NodeIDPrefix == "" {
		cfg.NodeIDPrefix = "worker"
	}
	if cfg.Registry == nil {
		cfg.Registry = processor.DefaultRegistry
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}

	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID = db.GenerateWorkerNodeID(cfg.NodeIDPrefix)
	}

	ctx, cancel := context.WithCancel(context.Background())

	totalWorkers := 0
	for _, n := range cfg.QueueConcurrency {
		totalWorkers += n
	}

	p := &Pool{
		workers:           make([]*Worker, 0, totalWorkers),
		queue:             cfg.Queue,
		registry:          cfg.Registry,
		collabs:           cfg.Collaborators,
		nodeID:            nodeID,
		heartbeatInterval: cfg.HeartbeatInterval,
		ctx:               ctx,
		cancel:            cancel,
	}

	for queueName, count := range cfg.QueueConcurrency {
		for i := 0; i < count; i++ {
			p.workers = append(p.workers, New(Config{
				ID:            fmt.Sprintf("%s-%s-%d", nodeID, queueName, i),
				QueueName:     queueName,
				Queue:         cfg.Queue,
				Registry:      cfg.Registry,
				Collaborators: cfg.Collaborators,
			}))
		}
	}

	hostname, _ := os.Hostname()
	node := &db.WorkerNode{
		ID:          nodeID,
		Hostname:    hostname,
		WorkerCount: totalWorkers,
		Version:     cfg.Version,
	}
	if err := cfg.Collaborators.Conn.RegisterWorkerNode(node); err != nil {
		log.Error().Err(err).Str("node_id", nodeID).Msg("Failed to register worker node")
	}

	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	log.Info().Int("worker_count", len(p.workers)).Str("node_id", p.nodeID).Msg("Starting worker pool")

	for _, w := range p.workers {
		w.Start()
	}

	p.wg.Add(1)
	go p.heartbeatLoop()

	p.started = true
}

func (p *Pool) heartbeatLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.collabs.Conn.UpdateWorkerHeartbeat(p.nodeID); err != nil {
				log.Warn().Err(err).Str("node_id", p.nodeID).Msg("Failed to update heartbeat")
			}
		}
	}
}

// Stop stops all workers, releases their in-flight jobs back to
// waiting, and deregisters the node.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	log.Info().Int("worker_count", len(p.workers)).Str("node_id", p.nodeID).Msg("Stopping worker pool")

	p.cancel()

	for _, w := range p.workers {
		w.Stop()
	}

	p.wg.Wait()

	for _, w := range p.workers {
		released, err := p.queue.ResetStaleJobs(context.Background(), w.id)
		if err != nil {
			log.Warn().Err(err).Str("worker_id", w.id).Msg("Failed to release in-flight job during shutdown")
		} else if released > 0 {
			log.Info().Str("worker_id", w.id).Int64("released_jobs", released).Msg("Released in-flight job during shutdown")
		}
	}

	if err := p.collabs.Conn.DeregisterWorkerNode(p.nodeID); err != nil {
		log.Warn().Err(err).Str("node_id", p.nodeID).Msg("Failed to deregister worker node")
	} else {
		log.Info().Str("node_id", p.nodeID).Msg("Worker node deregistered")
	}

	p.started = false
	log.Info().Msg("Worker pool stopped")
}

// WorkerCount returns the number of workers in the pool.
func (p *Pool) WorkerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.workers)
}

// IsRunning returns true if the pool is running.
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

// NodeID returns the unique identifier for this worker pool node.
func (p *Pool) NodeID() string {
	return p.nodeID
}
