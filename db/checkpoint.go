package db

import (
	"fmt"
	"time"
)

// Checkpoint tracks the AI Batch Analyzer's resumable progress against
// one scan, per SPEC_FULL.md §3. Invariant: CompletedBatches is a
// subset of [0, TotalBatches).
type Checkpoint struct {
	BaseModel
	ScanID           uint      `json:"scan_id" gorm:"uniqueIndex;not null"`
	URL              string    `json:"url" gorm:"type:text;not null"`
	WCAGLevel        WCAGLevel `json:"wcag_level" gorm:"size:10;not null"`
	TotalBatches     int       `json:"total_batches" gorm:"not null"`
	CompletedBatches IntSlice  `json:"completed_batches" gorm:"type:jsonb"`
	TokensUsed       int64     `json:"tokens_used" gorm:"default:0"`
}

func (c Checkpoint) String() string {
	return fmt.Sprintf("ScanID: %d, %d/%d batches complete", c.ScanID, len(c.CompletedBatches), c.TotalBatches)
}

// IsComplete reports whether every batch index has been recorded.
func (c Checkpoint) IsComplete() bool {
	return len(c.CompletedBatches) >= c.TotalBatches
}

// GetOrCreateCheckpoint returns the existing checkpoint for scanID, or
// creates a fresh one bounded to totalBatches.
func (conn *DatabaseConnection) GetOrCreateCheckpoint(scanID uint, url string, wcagLevel WCAGLevel, totalBatches int) (*Checkpoint, error) {
	var checkpoint Checkpoint
	err := conn.db.Where("scan_id = ?", scanID).First(&checkpoint).Error
	if err == nil {
		return &checkpoint, nil
	}

	checkpoint = Checkpoint{
		ScanID:       scanID,
		URL:          url,
		WCAGLevel:    wcagLevel,
		TotalBatches: totalBatches,
	}
	if err := conn.db.Create(&checkpoint).Error; err != nil {
		return nil, err
	}
	return &checkpoint, nil
}

// MarkBatchComplete records batchIndex as done and adds tokensUsed,
// both monotonic, idempotent on repeated calls for the same index.
func (conn *DatabaseConnection) MarkBatchComplete(scanID uint, batchIndex int, tokensUsed int64) error {
	var checkpoint Checkpoint
	if err := conn.db.Where("scan_id = ?", scanID).First(&checkpoint).Error; err != nil {
		return err
	}

	for _, b := range checkpoint.CompletedBatches {
		if b == batchIndex {
			return nil
		}
	}
	checkpoint.CompletedBatches = append(checkpoint.CompletedBatches, batchIndex)
	checkpoint.TokensUsed += tokensUsed
	return conn.db.Save(&checkpoint).Error
}

// CacheEntry is a content-addressed AI Batch Analyzer cache row.
// Immutable after write; keyed by (contentHash, wcagLevel, batchNumber)
// per SPEC_FULL.md §3.
type CacheEntry struct {
	BaseModel
	ContentHash  string    `json:"content_hash" gorm:"uniqueIndex:idx_cache_key;size:64;not null"`
	WCAGLevel    WCAGLevel `json:"wcag_level" gorm:"uniqueIndex:idx_cache_key;size:10;not null"`
	BatchNumber  int       `json:"batch_number" gorm:"uniqueIndex:idx_cache_key;not null"`
	Verifications []byte   `json:"verifications" gorm:"type:jsonb"`
	TokensUsed   int64     `json:"tokens_used"`
	Model        string    `json:"model" gorm:"size:100"`
	StoredAt     time.Time `json:"stored_at"`
}

// GetCacheEntry looks up a cached AI verification result.
func (conn *DatabaseConnection) GetCacheEntry(contentHash string, wcagLevel WCAGLevel, batchNumber int) (*CacheEntry, error) {
	var entry CacheEntry
	err := conn.db.Where("content_hash = ? AND wcag_level = ? AND batch_number = ?", contentHash, wcagLevel, batchNumber).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PutCacheEntry writes a new immutable cache row. A write to an
// existing key is a no-op, preserving immutability.
func (conn *DatabaseConnection) PutCacheEntry(entry *CacheEntry) error {
	entry.StoredAt = time.Now()
	return conn.db.Where("content_hash = ? AND wcag_level = ? AND batch_number = ?",
		entry.ContentHash, entry.WCAGLevel, entry.BatchNumber).
		FirstOrCreate(entry).Error
}
