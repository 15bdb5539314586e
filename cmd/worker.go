package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/jobqueue"
	"github.com/accesslint/platform/pkg/jobqueue/worker"
	"github.com/accesslint/platform/pkg/processor"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	workerNodeID     string
	workerNodePrefix string
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage standalone job runtime workers",
	Long: `Run standalone workers that connect to the database and process jobs from
the five named queues (scan-page, generate-report, send-email, batch-report,
ai-batch).

Workers automatically register themselves and maintain heartbeats for monitoring.
Multiple worker processes can run simultaneously, competing for jobs via the queue.`,
}

// workerStartCmd represents the worker start command
var workerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a standalone worker pool processing every named queue",
	Long: `Start a worker pool that claims and processes jobs from the queue.

Examples:
  # Start with default per-queue concurrency
  accesslint worker start

  # Start with a custom node ID
  accesslint worker start --id "worker-node-2"`,
	Run: runWorkerStart,
}

// workerStatusCmd represents the worker status command
var workerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show status of all registered worker nodes",
	Run:   runWorkerStatus,
}

// workerCleanupCmd represents the worker cleanup command
var workerCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Cleanup stale workers and reset their claimed jobs",
	Long: `Identifies worker nodes that haven't sent a heartbeat within the threshold,
marks them as stopped, and resets any jobs they had claimed back to waiting.`,
	Run: runWorkerCleanup,
}

var pruneAge string

// workerPruneCmd represents the worker prune command
var workerPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old stopped worker nodes from the database",
	Long: `Removes worker node records that have been stopped for longer than the
specified age.

Examples:
  accesslint worker prune --age 168h`,
	Run: runWorkerPrune,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(workerStartCmd)
	workerCmd.AddCommand(workerStatusCmd)
	workerCmd.AddCommand(workerCleanupCmd)
	workerCmd.AddCommand(workerPruneCmd)

	workerStartCmd.Flags().StringVar(&workerNodeID, "id", "", "Custom node ID (auto-generated if not set)")
	workerStartCmd.Flags().StringVar(&workerNodePrefix, "prefix", "worker", "Prefix for auto-generated node ID")

	workerPruneCmd.Flags().StringVar(&pruneAge, "age", "24h", "Delete workers stopped for longer than this duration")
}

// buildCollaborators assembles the processors' external dependencies.
// Concrete HeadlessBrowser/EmailSender/ObjectStore/InferenceInvoker
// adapters are deliberately not wired here: SPEC_FULL.md §6 places
// those integrations out of scope, so operators inject them by
// replacing this function for their deployment (e.g. with a chromedp
// browser, an SMTP sender, an S3 store, a model API client). Left nil,
// any job whose processor reaches a missing collaborator (scan-page,
// send-email, generate-report, batch-report, ai-batch) fails and is
// retried like any other processor error.
func buildCollaborators(conn *db.DatabaseConnection, queue jobqueue.JobQueue) processor.Collaborators {
	return processor.Collaborators{
		Conn:  conn,
		Queue: queue,
	}
}

func runWorkerStart(cmd *cobra.Command, args []string) {
	logger := log.With().Str("component", "worker-cli").Logger()

	conn := db.Connection()
	logger.Info().Msg("Database connected")

	queue := jobqueue.New(conn)
	collabs := buildCollaborators(conn, queue)

	cfg := worker.PoolConfig{
		Queue:         queue,
		Registry:      processor.DefaultRegistry,
		Collaborators: collabs,
		NodeID:        workerNodeID,
		NodeIDPrefix:  workerNodePrefix,
	}

	pool := worker.NewPool(cfg)
	pool.Start()

	logger.Info().Str("node_id", pool.NodeID()).Int("workers", pool.WorkerCount()).Msg("Workers started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Msg("Press Ctrl+C to stop workers")

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	logger.Info().Msg("Shutting down workers...")
	pool.Stop()

	logger.Info().Msg("Workers stopped successfully")
}

func runWorkerStatus(cmd *cobra.Command, args []string) {
	logger := log.With().Str("component", "worker-cli").Logger()

	conn := db.Connection()

	nodes, err := conn.GetAllWorkerNodes()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to get worker nodes")
	}

	if len(nodes) == 0 {
		logger.Info().Msg("No worker nodes registered")
		return
	}

	stats, err := conn.GetWorkerNodeStats()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to get worker stats")
	}

	logger.Info().
		Int("total", stats.TotalNodes).
		Int("running", stats.RunningNodes).
		Int("stopped", stats.StoppedNodes).
		Int64("jobs_claimed", stats.TotalClaimed).
		Int64("jobs_completed", stats.TotalCompleted).
		Int64("jobs_failed", stats.TotalFailed).
		Msg("Worker node summary")

	heartbeatThreshold := 2 * time.Minute
	for _, node := range nodes {
		isStale := time.Since(node.LastSeenAt) > heartbeatThreshold
		staleIndicator := ""
		if isStale && node.Status == db.WorkerNodeStatusRunning {
			staleIndicator = " (STALE)"
		}

		logger.Info().
			Str("id", node.ID).
			Str("hostname", node.Hostname).
			Str("status", string(node.Status)+staleIndicator).
			Int("workers", node.WorkerCount).
			Time("started_at", node.StartedAt).
			Time("last_seen", node.LastSeenAt).
			Int("claimed", node.JobsClaimed).
			Int("completed", node.JobsCompleted).
			Int("failed", node.JobsFailed).
			Msg("Worker node")
	}
}

func runWorkerCleanup(cmd *cobra.Command, args []string) {
	logger := log.With().Str("component", "worker-cli").Logger()

	conn := db.Connection()

	heartbeatThreshold := 2 * time.Minute

	logger.Info().Dur("threshold", heartbeatThreshold).Msg("Cleaning up stale workers")

	resetCount, err := conn.ResetJobsFromStaleWorkers(heartbeatThreshold)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to cleanup stale workers")
	}

	logger.Info().Int64("jobs_reset", resetCount).Msg("Stale workers cleaned up successfully")
}

func runWorkerPrune(cmd *cobra.Command, args []string) {
	logger := log.With().Str("component", "worker-cli").Logger()

	age, err := time.ParseDuration(pruneAge)
	if err != nil {
		logger.Fatal().Err(err).Str("age", pruneAge).Msg("Invalid age duration format")
	}

	conn := db.Connection()

	logger.Info().Dur("age", age).Msg("Pruning old stopped workers")

	deletedCount, err := conn.DeleteOldWorkerNodes(age)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to prune old workers")
	}

	logger.Info().Int64("deleted", deletedCount).Msg("Old worker nodes pruned successfully")
}
