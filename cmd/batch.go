package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/batchscheduler"
	"github.com/accesslint/platform/pkg/jobqueue"
	"github.com/spf13/cobra"
)

var (
	batchWCAGLevel string
	batchEmail     string
	batchSessionID string
	batchUserID    string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Request and inspect multi-URL batch scans",
}

var batchCreateCmd = &cobra.Command{
	Use:   "create [homepage-url] [url1,url2,...]",
	Short: "Admit a batch scan across the given URLs and fan out a child scan per URL",
	Args:  cobra.ExactArgs(2),
	Run:   runBatchCreate,
}

var batchShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a batch scan's progress",
	Args:  cobra.ExactArgs(1),
	Run:   runBatchShow,
}

func init() {
	batchCreateCmd.Flags().StringVar(&batchWCAGLevel, "wcag-level", "AA", "Conformance target: A, AA, or AAA")
	batchCreateCmd.Flags().StringVar(&batchEmail, "email", "", "Email address to notify on completion")
	batchCreateCmd.Flags().StringVar(&batchSessionID, "session-id", "", "Anonymous session identifying the requester, for monthly quota admission")
	batchCreateCmd.Flags().StringVar(&batchUserID, "user-id", "", "Authenticated user identifying the requester, for monthly quota admission")

	batchCmd.AddCommand(batchCreateCmd)
	batchCmd.AddCommand(batchShowCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatchCreate(cmd *cobra.Command, args []string) {
	conn := db.Connection()
	queue := jobqueue.New(conn)
	scheduler := batchscheduler.New(conn, queue, batchscheduler.DefaultConfig())

	homepageURL := args[0]
	urls := strings.Split(args[1], ",")

	var email *string
	if batchEmail != "" {
		email = &batchEmail
	}

	batch, err := scheduler.CreateBatch(context.Background(), batchSessionID, batchUserID, homepageURL, db.WCAGLevel(batchWCAGLevel), urls, email)
	if err != nil {
		fmt.Printf("failed to create batch: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Batch %d created for %s: %d URLs queued\n", batch.ID, batch.HomepageURL, batch.TotalUrls)
}

func runBatchShow(cmd *cobra.Command, args []string) {
	conn := db.Connection()

	var id uint
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		fmt.Printf("invalid batch id: %s\n", args[0])
		os.Exit(1)
	}

	batch, err := conn.GetBatchScanByID(id)
	if err != nil {
		fmt.Printf("batch %d not found: %v\n", id, err)
		os.Exit(1)
	}

	fmt.Printf("Batch %d: %s\nStatus: %s\nProgress: %d/%d completed, %d failed\n",
		batch.ID, batch.HomepageURL, batch.Status, batch.CompletedCount, batch.TotalUrls, batch.FailedCount)
}
