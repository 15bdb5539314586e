package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/aibatch"
)

// AIBatchPayload is the ai-batch queue's job payload. HTMLContent is
// captured by the scan-page processor at analysis time (§4.7), since
// nothing else in the system retains a scan's rendered DOM.
type AIBatchPayload struct {
	ScanID      uint   `json:"scan_id"`
	HTMLContent string `json:"html_content"`
}

// AIBatch drives the AI Batch Analyzer against one scan's existing
// Issues, annotating every Issue whose wcagCriteria includes a
// criterion the model reports as failing. Grounded on
// pkg/aibatch.Analyzer.Run (SPEC_FULL.md §4.9).
func AIBatch(ctx context.Context, job *db.Job, c Collaborators) (Result, error) {
	var payload AIBatchPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return Result{}, fmt.Errorf("invalid ai-batch payload: %w", err)
	}

	scan, err := c.Conn.GetScanByID(payload.ScanID, true)
	if err != nil {
		return Result{}, fmt.Errorf("scan %d not found: %w", payload.ScanID, err)
	}

	if err := c.Conn.UpdateScanAIStatus(scan.ID, db.AIStatusProcessing, 0, 0); err != nil {
		return Result{}, fmt.Errorf("mark scan %d ai processing: %w", scan.ID, err)
	}

	analyzer := &aibatch.Analyzer{Conn: c.Conn, Infer: c.Infer, Config: aibatch.DefaultConfig()}
	start := time.Now()
	verifications, err := analyzer.Run(ctx, scan.ID, scan.URL, scan.WCAGLevel, payload.HTMLContent)
	durationMs := time.Since(start).Milliseconds()

	if err != nil {
		_ = c.Conn.UpdateScanAIStatus(scan.ID, db.AIStatusFailed, 0, durationMs)
		return Result{}, fmt.Errorf("ai batch analysis failed for scan %d: %w", scan.ID, err)
	}

	annotated := 0
	if scan.Result != nil {
		for _, v := range verifications {
			if v.Passed {
				continue
			}
			for _, issue := range scan.Result.Issues {
				if !criteriaMatch(issue.WCAGCriteria, v.CriterionID) {
					continue
				}
				if err := c.Conn.UpdateIssueAIAnnotation(issue.ID, v.Explanation, v.FixSuggestion, v.Priority); err != nil {
					continue
				}
				annotated++
			}
		}
	}

	if err := c.Conn.UpdateScanAIStatus(scan.ID, db.AIStatusCompleted, 0, durationMs); err != nil {
		return Result{}, fmt.Errorf("mark scan %d ai completed: %w", scan.ID, err)
	}

	return Result{IssuesFound: annotated}, nil
}

func criteriaMatch(criteria db.StringSlice, criterionID string) bool {
	for _, c := range criteria {
		if strings.EqualFold(c, criterionID) {
			return true
		}
	}
	return false
}
