package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/jobqueue"
	"github.com/accesslint/platform/pkg/report"
	"github.com/gosimple/slug"
)

// BatchReportPayload is the batch-report queue's job payload.
type BatchReportPayload struct {
	BatchID uint `json:"batch_id"`
}

// BatchReport aggregates a batch scan's children into one PDF, uploads
// it, and enqueues a batch_complete notification, per SPEC_FULL.md
// §4.7. Only fires once every child scan has reached a terminal state:
// the scan-page processor enqueues this job when its child's progress
// update marks the batch COMPLETED.
func BatchReport(ctx context.Context, job *db.Job, c Collaborators) (Result, error) {
	var payload BatchReportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return Result{}, fmt.Errorf("invalid batch-report payload: %w", err)
	}

	batch, err := c.Conn.GetBatchScanByID(payload.BatchID)
	if err != nil {
		return Result{}, fmt.Errorf("batch scan %d not found: %w", payload.BatchID, err)
	}

	aggregate := aggregateChildResults(batch)

	var buf bytes.Buffer
	err = report.GenerateReport(report.ReportOptions{
		Title:     fmt.Sprintf("Batch Accessibility Report: %s", batch.HomepageURL),
		URL:       batch.HomepageURL,
		WCAGLevel: string(batch.WCAGLevel),
		Result:    aggregate,
		Format:    report.ReportFormatPDF,
	}, &buf)
	if err != nil {
		return Result{}, fmt.Errorf("render batch report for batch %d: %w", batch.ID, err)
	}

	key := fmt.Sprintf("reports/batch-%d-%s.pdf", batch.ID, slug.Make(batch.HomepageURL))
	url, err := c.Store.Put(ctx, key, buf.Bytes(), "application/pdf")
	if err != nil {
		return Result{}, fmt.Errorf("upload batch report for batch %d: %w", batch.ID, err)
	}

	if batch.Email != nil && *batch.Email != "" {
		_, err := c.Queue.Enqueue(ctx, db.QueueSendEmail, SendEmailPayload{
			BatchID: &batch.ID,
			Email:   *batch.Email,
			Type:    EmailTypeBatchComplete,
		}, jobqueue.EnqueueOptions{})
		if err != nil {
			return Result{}, fmt.Errorf("enqueue batch_complete email for batch %d: %w", batch.ID, err)
		}
	}

	return Result{ArtifactURL: url}, nil
}

// aggregateChildResults rolls up every child scan's ScanResult into a
// single synthetic result for the batch PDF.
func aggregateChildResults(batch *db.BatchScan) *db.ScanResult {
	aggregate := &db.ScanResult{}
	for _, scan := range batch.Scans {
		if scan.Result == nil {
			continue
		}
		aggregate.Issues = append(aggregate.Issues, scan.Result.Issues...)
		aggregate.PassedChecks += scan.Result.PassedChecks
		aggregate.InapplicableChecks += scan.Result.InapplicableChecks
	}
	aggregate.Tally()
	return aggregate
}
