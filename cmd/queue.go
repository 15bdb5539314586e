package cmd

import (
	"fmt"
	"os"

	"github.com/accesslint/platform/db"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the job runtime's named queues",
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show waiting/active/completed/failed counts for every named queue",
	Run:   runQueueStats,
}

func init() {
	queueCmd.AddCommand(queueStatsCmd)
	rootCmd.AddCommand(queueCmd)
}

var allQueues = []db.QueueName{
	db.QueueScanPage,
	db.QueueGenerateReport,
	db.QueueSendEmail,
	db.QueueBatchReport,
	db.QueueAIBatch,
}

func runQueueStats(cmd *cobra.Command, args []string) {
	conn := db.Connection()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Queue", "Waiting", "Delayed", "Active", "Completed", "Failed"})

	for _, name := range allQueues {
		stats, err := conn.GetQueueStats(name)
		if err != nil {
			fmt.Printf("failed to load stats for %s: %v\n", name, err)
			os.Exit(1)
		}
		table.Append([]string{
			string(name),
			fmt.Sprintf("%d", stats.WaitingCount),
			fmt.Sprintf("%d", stats.DelayedCount),
			fmt.Sprintf("%d", stats.ActiveCount),
			fmt.Sprintf("%d", stats.CompletedCount),
			fmt.Sprintf("%d", stats.FailedCount),
		})
	}

	table.Render()
}
