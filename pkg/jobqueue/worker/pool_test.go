package worker

import (
	"testing"

	"github.com/accesslint/platform/db"
	"github.com/stretchr/testify/assert"
)

func TestDefaultQueueConcurrency(t *testing.T) {
	cc := DefaultQueueConcurrency()

	assert.Equal(t, 5, cc[db.QueueScanPage])
	assert.Equal(t, 2, cc[db.QueueGenerateReport])
	assert.Equal(t, 2, cc[db.QueueSendEmail])
	assert.Equal(t, 2, cc[db.QueueBatchReport])
	assert.Equal(t, 2, cc[db.QueueAIBatch])

	total := 0
	for _, n := range cc {
		total += n
	}
	assert.Equal(t, 13, total)
}
