package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffOptionsNextDelay_Fixed(t *testing.T) {
	b := BackoffOptions{Strategy: BackoffFixed, InitialMs: 1000, MaxMs: 60000}
	assert.Equal(t, 1*time.Second, b.NextDelay(1))
	assert.Equal(t, 1*time.Second, b.NextDelay(2))
	assert.Equal(t, 1*time.Second, b.NextDelay(5))
}

func TestBackoffOptionsNextDelay_Exponential(t *testing.T) {
	b := BackoffOptions{Strategy: BackoffExponential, InitialMs: 1000, MaxMs: 60000}
	assert.Equal(t, 1*time.Second, b.NextDelay(1))
	assert.Equal(t, 2*time.Second, b.NextDelay(2))
	assert.Equal(t, 4*time.Second, b.NextDelay(3))
	assert.Equal(t, 8*time.Second, b.NextDelay(4))
}

func TestBackoffOptionsNextDelay_CapsAtMax(t *testing.T) {
	b := BackoffOptions{Strategy: BackoffExponential, InitialMs: 1000, MaxMs: 5000}
	assert.Equal(t, 5*time.Second, b.NextDelay(10))
}

func TestBackoffOptionsNextDelay_DefaultsApplied(t *testing.T) {
	b := BackoffOptions{Strategy: BackoffExponential}
	assert.Equal(t, 1*time.Second, b.NextDelay(1))
}

func TestJobIsTerminal(t *testing.T) {
	tests := []struct {
		state JobState
		want  bool
	}{
		{JobStateWaiting, false},
		{JobStateDelayed, false},
		{JobStateActive, false},
		{JobStateCompleted, true},
		{JobStateFailed, true},
	}
	for _, tt := range tests {
		job := Job{State: tt.state}
		assert.Equal(t, tt.want, job.IsTerminal(), "state %s", tt.state)
	}
}

func TestJobString(t *testing.T) {
	job := Job{QueueName: QueueScanPage, State: JobStateActive, AttemptsMade: 1, MaxAttempts: 5}
	job.ID = 42
	s := job.String()
	assert.Contains(t, s, "42")
	assert.Contains(t, s, "scan-page")
	assert.Contains(t, s, "active")
}

func TestQueueNameConstants(t *testing.T) {
	assert.Equal(t, QueueName("scan-page"), QueueScanPage)
	assert.Equal(t, QueueName("generate-report"), QueueGenerateReport)
	assert.Equal(t, QueueName("send-email"), QueueSendEmail)
	assert.Equal(t, QueueName("batch-report"), QueueBatchReport)
	assert.Equal(t, QueueName("ai-batch"), QueueAIBatch)
}
