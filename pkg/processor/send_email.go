package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/accesslint/platform/db"
	"github.com/rs/zerolog/log"
)

// EmailType names a send-email job's notification kind.
type EmailType string

const (
	EmailTypeScanComplete  EmailType = "scan_complete"
	EmailTypeScanFailed    EmailType = "scan_failed"
	EmailTypeBatchComplete EmailType = "batch_complete"
)

// SendEmailPayload is the send-email queue's job payload.
type SendEmailPayload struct {
	ScanID  *uint     `json:"scan_id,omitempty"`
	BatchID *uint     `json:"batch_id,omitempty"`
	Email   string    `json:"email"`
	Type    EmailType `json:"type"`
}

// fastScanThresholdMs gates scan_complete notifications: scans that
// finish faster than this are assumed to have been watched
// synchronously by the requester, so no email is needed.
const fastScanThresholdMs = 30000

var emailTemplates = map[EmailType]*template.Template{
	EmailTypeScanComplete:  template.Must(template.New("scan_complete").Parse("Your accessibility scan of {{.URL}} is complete: {{.TotalIssues}} issues found.")),
	EmailTypeScanFailed:    template.Must(template.New("scan_failed").Parse("Your accessibility scan of {{.URL}} failed: {{.ErrorMessage}}")),
	EmailTypeBatchComplete: template.Must(template.New("batch_complete").Parse("Your batch scan of {{.HomepageURL}} is complete: {{.CompletedCount}} succeeded, {{.FailedCount}} failed.")),
}

// SendEmail dispatches a scan or batch notification, per SPEC_FULL.md
// §4.7's load/gate/render/send/nullify sequence. The fast-scan gate
// applies only to scan_complete and skips the Email Sender call, but
// the email is nullified regardless; scan_failed and batch_complete
// are never gated.
func SendEmail(ctx context.Context, job *db.Job, c Collaborators) (Result, error) {
	var payload SendEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return Result{}, fmt.Errorf("invalid send-email payload: %w", err)
	}

	switch payload.Type {
	case EmailTypeScanComplete, EmailTypeScanFailed:
		return sendScanEmail(ctx, payload, c)
	case EmailTypeBatchComplete:
		return sendBatchEmail(ctx, payload, c)
	default:
		return Result{}, fmt.Errorf("unknown email type: %s", payload.Type)
	}
}

func sendScanEmail(ctx context.Context, payload SendEmailPayload, c Collaborators) (Result, error) {
	if payload.ScanID == nil {
		return Result{}, fmt.Errorf("send-email: scan_id required for %s", payload.Type)
	}
	scan, err := c.Conn.GetScanByID(*payload.ScanID, true)
	if err != nil {
		return Result{}, fmt.Errorf("SCAN_NOT_FOUND: %w", err)
	}

	if payload.Type == EmailTypeScanComplete {
		if scan.Result == nil {
			return Result{}, fmt.Errorf("NO_RESULTS: scan %d has no result", scan.ID)
		}
		if scan.DurationMs != nil && *scan.DurationMs < fastScanThresholdMs {
			log.Debug().Uint("scan_id", scan.ID).Msg("Skipping send-email: fast-scan gate")
			if err := c.Conn.NullifyScanEmail(scan.ID); err != nil {
				log.Warn().Err(err).Uint("scan_id", scan.ID).Msg("Failed to nullify scan email on fast-scan gate")
			}
			return Result{}, nil
		}
	}

	var buf bytes.Buffer
	data := struct {
		URL          string
		TotalIssues  int
		ErrorMessage string
	}{URL: scan.URL}
	if scan.Result != nil {
		data.TotalIssues = scan.Result.TotalIssues
	}
	if scan.ErrorMessage != nil {
		data.ErrorMessage = *scan.ErrorMessage
	}
	if err := emailTemplates[payload.Type].Execute(&buf, data); err != nil {
		return Result{}, fmt.Errorf("render email template: %w", err)
	}

	subject := "Accessibility scan complete"
	if payload.Type == EmailTypeScanFailed {
		subject = "Accessibility scan failed"
	}
	if err := c.Email.Send(ctx, payload.Email, subject, buf.String()); err != nil {
		return Result{}, fmt.Errorf("send email for scan %d: %w", scan.ID, err)
	}

	if err := c.Conn.NullifyScanEmail(scan.ID); err != nil {
		log.Warn().Err(err).Uint("scan_id", scan.ID).Msg("Failed to nullify scan email after send")
	}
	return Result{}, nil
}

func sendBatchEmail(ctx context.Context, payload SendEmailPayload, c Collaborators) (Result, error) {
	if payload.BatchID == nil {
		return Result{}, fmt.Errorf("send-email: batch_id required for %s", payload.Type)
	}
	batch, err := c.Conn.GetBatchScanByID(*payload.BatchID)
	if err != nil {
		return Result{}, fmt.Errorf("BATCH_NOT_FOUND: %w", err)
	}

	var buf bytes.Buffer
	data := struct {
		HomepageURL    string
		CompletedCount int
		FailedCount    int
	}{batch.HomepageURL, batch.CompletedCount, batch.FailedCount}
	if err := emailTemplates[EmailTypeBatchComplete].Execute(&buf, data); err != nil {
		return Result{}, fmt.Errorf("render batch email template: %w", err)
	}

	if err := c.Email.Send(ctx, payload.Email, "Batch accessibility scan complete", buf.String()); err != nil {
		return Result{}, fmt.Errorf("send batch email for batch %d: %w", batch.ID, err)
	}

	if err := c.Conn.NullifyBatchScanEmail(batch.ID); err != nil {
		log.Warn().Err(err).Uint("batch_id", batch.ID).Msg("Failed to nullify batch email after send")
	}
	return Result{}, nil
}

// OnSendEmailPermanentFailure nullifies the owning row's email
// regardless of outcome once attempts are exhausted, per SPEC_FULL.md
// §4.7 step 5's permanent-failure hook.
func OnSendEmailPermanentFailure(conn *db.DatabaseConnection, job *db.Job) {
	var payload SendEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Error().Err(err).Msg("Failed to parse send-email payload in permanent-failure hook")
		return
	}
	if payload.ScanID != nil {
		if err := conn.NullifyScanEmail(*payload.ScanID); err != nil {
			log.Warn().Err(err).Uint("scan_id", *payload.ScanID).Msg("Failed to nullify scan email after permanent failure")
		}
	}
	if payload.BatchID != nil {
		if err := conn.NullifyBatchScanEmail(*payload.BatchID); err != nil {
			log.Warn().Err(err).Uint("batch_id", *payload.BatchID).Msg("Failed to nullify batch email after permanent failure")
		}
	}
	log.Error().Str("queue", string(job.QueueName)).Uint("job_id", job.ID).Msg("send-email job permanently failed")
}
