package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/jobqueue"
	"github.com/accesslint/platform/pkg/processor"
	"github.com/spf13/cobra"
)

var (
	scanWCAGLevel string
	scanEmail     string
	scanAIEnabled bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Request and inspect single-page accessibility scans",
}

var scanCreateCmd = &cobra.Command{
	Use:   "create [url]",
	Short: "Request a scan of one URL and enqueue it for processing",
	Args:  cobra.ExactArgs(1),
	Run:   runScanCreate,
}

var scanShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a scan's status and result summary",
	Args:  cobra.ExactArgs(1),
	Run:   runScanShow,
}

func init() {
	scanCreateCmd.Flags().StringVar(&scanWCAGLevel, "wcag-level", "AA", "Conformance target: A, AA, or AAA")
	scanCreateCmd.Flags().StringVar(&scanEmail, "email", "", "Email address to notify on completion")
	scanCreateCmd.Flags().BoolVar(&scanAIEnabled, "ai", false, "Run the AI Batch Analyzer against this scan")

	scanCmd.AddCommand(scanCreateCmd)
	scanCmd.AddCommand(scanShowCmd)
	rootCmd.AddCommand(scanCmd)
}

func runScanCreate(cmd *cobra.Command, args []string) {
	conn := db.Connection()
	queue := jobqueue.New(conn)

	scan := &db.Scan{
		URL:       args[0],
		WCAGLevel: db.WCAGLevel(scanWCAGLevel),
		Status:    db.ScanStatusPending,
		AIEnabled: scanAIEnabled,
	}
	if scanEmail != "" {
		scan.Email = &scanEmail
	}

	if _, err := conn.CreateScan(scan); err != nil {
		fmt.Printf("failed to create scan: %v\n", err)
		os.Exit(1)
	}

	if _, err := queue.Enqueue(context.Background(), db.QueueScanPage, processor.ScanPagePayload{ScanID: scan.ID}, jobqueue.EnqueueOptions{}); err != nil {
		fmt.Printf("scan %d created but failed to enqueue: %v\n", scan.ID, err)
		os.Exit(1)
	}

	fmt.Printf("Scan %d created for %s (wcag=%s)\n", scan.ID, scan.URL, scan.WCAGLevel)
}

func runScanShow(cmd *cobra.Command, args []string) {
	conn := db.Connection()

	var id uint
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		fmt.Printf("invalid scan id: %s\n", args[0])
		os.Exit(1)
	}

	scan, err := conn.GetScanByID(id, true)
	if err != nil {
		fmt.Printf("scan %d not found: %v\n", id, err)
		os.Exit(1)
	}

	fmt.Printf("Scan %d: %s\nStatus: %s\nWCAG: %s\n", scan.ID, scan.URL, scan.Status, scan.WCAGLevel)
	if scan.ErrorMessage != nil {
		fmt.Printf("Error: %s\n", *scan.ErrorMessage)
	}
	if scan.Result != nil {
		fmt.Printf("Issues: %d (critical=%d serious=%d moderate=%d minor=%d)\n",
			scan.Result.TotalIssues, scan.Result.CriticalCount, scan.Result.SeriousCount,
			scan.Result.ModerateCount, scan.Result.MinorCount)
	}
}
