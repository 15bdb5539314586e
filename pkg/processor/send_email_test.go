package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/accesslint/platform/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmailSender records every Send call so tests can assert on
// whether the Email Sender collaborator was invoked.
type fakeEmailSender struct {
	sent []string
	err  error
}

func (f *fakeEmailSender) Send(ctx context.Context, to, subject, body string) error {
	f.sent = append(f.sent, to)
	return f.err
}

func newTestCollaborators(t *testing.T, email *fakeEmailSender) (Collaborators, *db.DatabaseConnection) {
	t.Helper()
	conn := db.NewTestConnection()
	return Collaborators{Conn: conn, Email: email}, conn
}

func mustPayload(t *testing.T, payload SendEmailPayload) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return data
}

func TestSendEmailFastScanGateSkipsSend(t *testing.T) {
	email := &fakeEmailSender{}
	c, conn := newTestCollaborators(t, email)

	fast := int64(fastScanThresholdMs - 1)
	scan, err := conn.CreateScan(&db.Scan{
		URL:        "https://example.com",
		WCAGLevel:  db.WCAGLevelAA,
		Status:     db.ScanStatusCompleted,
		DurationMs: &fast,
		Email:      strPtr("requester@example.com"),
	})
	require.NoError(t, err)
	require.NoError(t, conn.SaveScanResult(&db.ScanResult{ScanID: scan.ID}))

	job := &db.Job{
		QueueName: db.QueueSendEmail,
		Payload:   mustPayload(t, SendEmailPayload{ScanID: &scan.ID, Email: "requester@example.com", Type: EmailTypeScanComplete}),
	}

	result, err := SendEmail(context.Background(), job, c)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Empty(t, email.sent, "fast-scan gate must suppress the Email Sender call")

	reloaded, err := conn.GetScanByID(scan.ID, false)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Email, "fast-scan gate must still nullify the scan's email")
}

func TestSendEmailSlowScanSendsAndNullifies(t *testing.T) {
	email := &fakeEmailSender{}
	c, conn := newTestCollaborators(t, email)

	slow := int64(fastScanThresholdMs + 1)
	scan, err := conn.CreateScan(&db.Scan{
		URL:        "https://example.com",
		WCAGLevel:  db.WCAGLevelAA,
		Status:     db.ScanStatusCompleted,
		DurationMs: &slow,
		Email:      strPtr("requester@example.com"),
	})
	require.NoError(t, err)
	require.NoError(t, conn.SaveScanResult(&db.ScanResult{ScanID: scan.ID}))

	job := &db.Job{
		QueueName: db.QueueSendEmail,
		Payload:   mustPayload(t, SendEmailPayload{ScanID: &scan.ID, Email: "requester@example.com", Type: EmailTypeScanComplete}),
	}

	result, err := SendEmail(context.Background(), job, c)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Equal(t, []string{"requester@example.com"}, email.sent, "a scan past the fast-scan threshold must send")

	reloaded, err := conn.GetScanByID(scan.ID, false)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Email, "a sent scan email must be nullified afterward")
}

func TestSendEmailScanFailedBypassesFastScanGate(t *testing.T) {
	email := &fakeEmailSender{}
	c, conn := newTestCollaborators(t, email)

	fast := int64(1)
	errMsg := "boom"
	scan, err := conn.CreateScan(&db.Scan{
		URL:          "https://example.com",
		WCAGLevel:    db.WCAGLevelAA,
		Status:       db.ScanStatusFailed,
		DurationMs:   &fast,
		Email:        strPtr("requester@example.com"),
		ErrorMessage: &errMsg,
	})
	require.NoError(t, err)

	job := &db.Job{
		QueueName: db.QueueSendEmail,
		Payload:   mustPayload(t, SendEmailPayload{ScanID: &scan.ID, Email: "requester@example.com", Type: EmailTypeScanFailed}),
	}

	_, err = SendEmail(context.Background(), job, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"requester@example.com"}, email.sent, "scan_failed is never gated by scan duration")
}

func TestOnSendEmailPermanentFailureNullifiesScanEmail(t *testing.T) {
	conn := db.NewTestConnection()

	scan, err := conn.CreateScan(&db.Scan{
		URL:       "https://example.com",
		WCAGLevel: db.WCAGLevelAA,
		Status:    db.ScanStatusCompleted,
		Email:     strPtr("requester@example.com"),
	})
	require.NoError(t, err)

	job := &db.Job{
		ID:        scan.ID,
		QueueName: db.QueueSendEmail,
		Payload:   mustPayload(t, SendEmailPayload{ScanID: &scan.ID, Email: "requester@example.com", Type: EmailTypeScanComplete}),
	}

	OnSendEmailPermanentFailure(conn, job)

	reloaded, err := conn.GetScanByID(scan.ID, false)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Email)

	// Calling it again on an already-nullified email must not error or panic.
	OnSendEmailPermanentFailure(conn, job)
	reloaded, err = conn.GetScanByID(scan.ID, false)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Email)
}

func TestOnSendEmailPermanentFailureNullifiesBatchEmail(t *testing.T) {
	conn := db.NewTestConnection()

	email := "requester@example.com"
	batch, err := conn.CreateBatchScan(&db.BatchScan{
		HomepageURL: "https://example.com",
		WCAGLevel:   db.WCAGLevelAA,
		Status:      db.BatchScanStatusRunning,
		Email:       &email,
	}, []string{"https://example.com/a"})
	require.NoError(t, err)

	job := &db.Job{
		ID:        batch.ID,
		QueueName: db.QueueSendEmail,
		Payload:   mustPayload(t, SendEmailPayload{BatchID: &batch.ID, Email: email, Type: EmailTypeBatchComplete}),
	}

	OnSendEmailPermanentFailure(conn, job)

	reloaded, err := conn.GetBatchScanByID(batch.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Email)
}

func strPtr(s string) *string { return &s }
