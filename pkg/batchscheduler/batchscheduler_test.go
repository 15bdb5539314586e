package batchscheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MonthlyLimit)
	assert.Equal(t, 30*time.Minute, cfg.IdleWindow)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
}
