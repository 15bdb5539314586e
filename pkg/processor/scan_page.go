package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/jobqueue"
	"github.com/rs/zerolog/log"
)

// ScanPagePayload is the scan-page queue's job payload.
type ScanPagePayload struct {
	ScanID uint `json:"scan_id"`
}

// accessibilityViolation is the shape produced by the analyzer embedded
// in external.PageAnalysis.Violations, one entry per failed rule.
type accessibilityViolation struct {
	RuleID        string   `json:"rule_id"`
	Impact        string   `json:"impact"`
	WCAGCriteria  []string `json:"wcag_criteria"`
	Description   string   `json:"description"`
	HelpText      string   `json:"help_text"`
	HelpURL       string   `json:"help_url"`
	HTMLSnippet   string   `json:"html_snippet"`
	CSSSelector   string   `json:"css_selector"`
}

type pageAnalysisResult struct {
	PassedChecks       int                      `json:"passed_checks"`
	InapplicableChecks int                      `json:"inapplicable_checks"`
	Violations         []accessibilityViolation `json:"violations"`
}

// ScanPage drives a HeadlessBrowser against the scan's URL, persists the
// resulting Issues and ScanResult, and updates the Scan's terminal state
// and batch counters. Grounded on worker.Worker.executeJob's
// "look up an executor, run it, translate into Complete/Fail" shape,
// specialized to the one queue that owns write access to Scan/Issue.
func ScanPage(ctx context.Context, job *db.Job, c Collaborators) (Result, error) {
	var payload ScanPagePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return Result{}, fmt.Errorf("invalid scan-page payload: %w", err)
	}

	scan, err := c.Conn.GetScanByID(payload.ScanID, false)
	if err != nil {
		return Result{}, fmt.Errorf("scan %d not found: %w", payload.ScanID, err)
	}

	if err := c.Conn.UpdateScanStatus(scan.ID, db.ScanStatusRunning, nil); err != nil {
		log.Warn().Err(err).Uint("scan_id", scan.ID).Msg("Failed to mark scan running")
	}

	start := time.Now()
	analysis, err := c.Browser.LoadAndAnalyze(ctx, scan.URL)
	durationMs := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		_ = c.Conn.UpdateScanStatus(scan.ID, db.ScanStatusFailed, &errMsg)
		c.finishBatchChild(scan, false)
		return Result{}, fmt.Errorf("analysis failed for scan %d: %w", scan.ID, err)
	}

	var parsed pageAnalysisResult
	if err := json.Unmarshal(analysis.Violations, &parsed); err != nil {
		errMsg := "failed to parse analyzer output: " + err.Error()
		_ = c.Conn.UpdateScanStatus(scan.ID, db.ScanStatusFailed, &errMsg)
		c.finishBatchChild(scan, false)
		return Result{}, fmt.Errorf("parse analyzer output for scan %d: %w", scan.ID, err)
	}

	issues := make([]db.Issue, 0, len(parsed.Violations))
	for _, v := range parsed.Violations {
		issues = append(issues, db.Issue{
			RuleID:       v.RuleID,
			Impact:       db.NewImpact(v.Impact),
			WCAGCriteria: db.StringSlice(v.WCAGCriteria),
			Description:  v.Description,
			HelpText:     v.HelpText,
			HelpURL:      v.HelpURL,
			HTMLSnippet:  v.HTMLSnippet,
			CSSSelector:  v.CSSSelector,
		})
	}

	result := &db.ScanResult{
		ScanID:             scan.ID,
		PassedChecks:       parsed.PassedChecks,
		InapplicableChecks: parsed.InapplicableChecks,
		Issues:             issues,
	}
	if err := c.Conn.SaveScanResult(result); err != nil {
		errMsg := err.Error()
		_ = c.Conn.UpdateScanStatus(scan.ID, db.ScanStatusFailed, &errMsg)
		c.finishBatchChild(scan, false)
		return Result{}, fmt.Errorf("persist scan result for scan %d: %w", scan.ID, err)
	}

	if err := c.Conn.SetScanDuration(scan.ID, durationMs); err != nil {
		log.Warn().Err(err).Uint("scan_id", scan.ID).Msg("Failed to set scan duration")
	}
	if err := c.Conn.UpdateScanStatus(scan.ID, db.ScanStatusCompleted, nil); err != nil {
		log.Warn().Err(err).Uint("scan_id", scan.ID).Msg("Failed to mark scan completed")
	}

	if scan.AIEnabled {
		if _, err := c.Queue.Enqueue(ctx, db.QueueAIBatch, AIBatchPayload{ScanID: scan.ID, HTMLContent: analysis.HTML}, jobqueue.EnqueueOptions{}); err != nil {
			log.Error().Err(err).Uint("scan_id", scan.ID).Msg("Failed to enqueue ai-batch job")
		}
	}

	c.finishBatchChild(scan, true)

	return Result{IssuesFound: len(issues)}, nil
}

// finishBatchChild records this scan's outcome against its owning batch
// and, once every child has resolved, enqueues the batch-report job
// (IncrementBatchScanProgress transitions the batch to COMPLETED only
// when completedCount+failedCount reaches totalUrls).
func (c Collaborators) finishBatchChild(scan *db.Scan, succeeded bool) {
	if scan.BatchScanID == nil {
		return
	}
	batchID := *scan.BatchScanID
	if err := c.Conn.IncrementBatchScanProgress(batchID, succeeded); err != nil {
		log.Warn().Err(err).Uint("batch_scan_id", batchID).Msg("Failed to update batch scan progress")
		return
	}

	batch, err := c.Conn.GetBatchScanByID(batchID)
	if err != nil {
		log.Warn().Err(err).Uint("batch_scan_id", batchID).Msg("Failed to reload batch scan after progress update")
		return
	}
	if batch.Status != db.BatchScanStatusCompleted {
		return
	}
	if _, err := c.Queue.Enqueue(context.Background(), db.QueueBatchReport, BatchReportPayload{BatchID: batch.ID}, jobqueue.EnqueueOptions{}); err != nil {
		log.Error().Err(err).Uint("batch_scan_id", batchID).Msg("Failed to enqueue batch-report job")
	}
}
