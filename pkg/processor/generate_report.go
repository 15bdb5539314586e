package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/report"
	"github.com/gosimple/slug"
)

// artifactTTL is how long a generated report's download URL is valid.
const artifactTTL = 24 * time.Hour

// GenerateReportPayload is the generate-report queue's job payload.
type GenerateReportPayload struct {
	ScanID uint               `json:"scan_id"`
	Format report.ReportFormat `json:"format"`
}

// GenerateReport renders a scan's result and uploads it to the Object
// Store, per SPEC_FULL.md §4.7: csv is small enough to always finish
// within one job attempt, while pdf/json are produced the same way
// here and left to the caller to poll the Job's terminal state for
// (the spec's "status=generating -> ready" distinction is a caller-side
// view of JobState, not a different code path in the processor).
func GenerateReport(ctx context.Context, job *db.Job, c Collaborators) (Result, error) {
	var payload GenerateReportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return Result{}, fmt.Errorf("invalid generate-report payload: %w", err)
	}

	scan, err := c.Conn.GetScanByID(payload.ScanID, true)
	if err != nil {
		return Result{}, fmt.Errorf("scan %d not found: %w", payload.ScanID, err)
	}
	if scan.Result == nil {
		return Result{}, fmt.Errorf("scan %d has no result", payload.ScanID)
	}

	var buf bytes.Buffer
	err = report.GenerateReport(report.ReportOptions{
		ScanID:    scan.ID,
		Title:     fmt.Sprintf("Accessibility Report: %s", scan.URL),
		URL:       scan.URL,
		WCAGLevel: string(scan.WCAGLevel),
		Result:    scan.Result,
		Format:    payload.Format,
	}, &buf)
	if err != nil {
		return Result{}, fmt.Errorf("render report for scan %d: %w", scan.ID, err)
	}

	contentType := contentTypeFor(payload.Format)
	key := fmt.Sprintf("reports/scan-%d-%s.%s", scan.ID, slug.Make(scan.URL), payload.Format)
	url, err := c.Store.Put(ctx, key, buf.Bytes(), contentType)
	if err != nil {
		return Result{}, fmt.Errorf("upload report for scan %d: %w", scan.ID, err)
	}

	expiresAt := time.Now().Add(artifactTTL).Unix()
	return Result{ArtifactURL: url, ExpiresAt: &expiresAt}, nil
}

func contentTypeFor(format report.ReportFormat) string {
	switch format {
	case report.ReportFormatPDF:
		return "application/pdf"
	case report.ReportFormatCSV:
		return "text/csv"
	default:
		return "application/json"
	}
}
