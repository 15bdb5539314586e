package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// BatchScanStatus tracks a multi-URL batch scan's lifecycle.
type BatchScanStatus string

const (
	BatchScanStatusPending   BatchScanStatus = "PENDING"
	BatchScanStatusRunning   BatchScanStatus = "RUNNING"
	BatchScanStatusCompleted BatchScanStatus = "COMPLETED"
	BatchScanStatusFailed    BatchScanStatus = "FAILED"
	BatchScanStatusCancelled BatchScanStatus = "CANCELLED"
	BatchScanStatusStale     BatchScanStatus = "STALE"
)

// BatchScan fans out a WCAG audit across every page of a Discovery.
// Invariant: completedCount + failedCount <= totalUrls; status=COMPLETED
// implies completedCount + failedCount == totalUrls (SPEC_FULL.md §3).
type BatchScan struct {
	BaseModel
	HomepageURL    string          `json:"homepage_url" gorm:"type:text;not null"`
	WCAGLevel      WCAGLevel       `json:"wcag_level" gorm:"size:10;not null;default:'AA'"`
	Status         BatchScanStatus `json:"status" gorm:"index;size:20;not null;default:'PENDING'"`
	TotalUrls      int             `json:"total_urls" gorm:"not null"`
	CompletedCount int             `json:"completed_count" gorm:"default:0"`
	FailedCount    int             `json:"failed_count" gorm:"default:0"`
	Email          *string         `json:"email,omitempty" gorm:"size:320"`

	Scans []Scan `json:"-" gorm:"foreignKey:BatchScanID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (b BatchScan) String() string {
	return fmt.Sprintf("ID: %d, Homepage: %s, Status: %s, %d/%d", b.ID, b.HomepageURL, b.Status, b.CompletedCount+b.FailedCount, b.TotalUrls)
}

// IsTerminal reports whether the batch has reached a terminal state.
func (b BatchScan) IsTerminal() bool {
	return b.Status == BatchScanStatusCompleted || b.Status == BatchScanStatusFailed ||
		b.Status == BatchScanStatusCancelled || b.Status == BatchScanStatusStale
}

// CreateBatchScan creates a batch scan record and its child Scan rows
// in one transaction, grounded on the teacher's CreateScanRecord +
// per-child job enqueue shape (pkg/scan/manager/manager.go).
func (conn *DatabaseConnection) CreateBatchScan(batch *BatchScan, urls []string) (*BatchScan, error) {
	err := conn.db.Transaction(func(tx *gorm.DB) error {
		batch.TotalUrls = len(urls)
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		scans := make([]Scan, 0, len(urls))
		for _, u := range urls {
			scans = append(scans, Scan{
				URL:         u,
				WCAGLevel:   batch.WCAGLevel,
				Status:      ScanStatusPending,
				BatchScanID: &batch.ID,
			})
		}
		if len(scans) > 0 {
			if err := tx.Create(&scans).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Interface("batch", batch).Msg("BatchScan creation failed")
		return nil, err
	}
	return batch, nil
}

// IncrementBatchScanProgress atomically bumps a batch's completed or
// failed counter and transitions to COMPLETED once every child scan
// has resolved.
func (conn *DatabaseConnection) IncrementBatchScanProgress(batchID uint, succeeded bool) error {
	return conn.db.Transaction(func(tx *gorm.DB) error {
		column := "completed_count"
		if !succeeded {
			column = "failed_count"
		}
		if err := tx.Model(&BatchScan{}).Where("id = ?", batchID).
			Update(column, gorm.Expr(column+" + 1")).Error; err != nil {
			return err
		}

		var batch BatchScan
		if err := tx.First(&batch, batchID).Error; err != nil {
			return err
		}
		if batch.CompletedCount+batch.FailedCount >= batch.TotalUrls && batch.Status == BatchScanStatusRunning {
			return tx.Model(&BatchScan{}).Where("id = ?", batchID).Update("status", BatchScanStatusCompleted).Error
		}
		return nil
	})
}

// GetBatchScanByID retrieves a batch scan by ID, preloading child scans
// and their results for aggregation (e.g. by the batch-report processor).
func (conn *DatabaseConnection) GetBatchScanByID(id uint) (*BatchScan, error) {
	var batch BatchScan
	if err := conn.db.Preload("Scans.Result.Issues").First(&batch, id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListStaleBatchScans finds RUNNING batch scans whose updated_at is
// older than threshold, for the janitor sweep.
func (conn *DatabaseConnection) ListStaleBatchScans(threshold time.Time) ([]*BatchScan, error) {
	var batches []*BatchScan
	err := conn.db.Where("status = ? AND updated_at < ?", BatchScanStatusRunning, threshold).Find(&batches).Error
	return batches, err
}

// MarkBatchScanStale transitions a batch to STALE.
func (conn *DatabaseConnection) MarkBatchScanStale(id uint) error {
	return conn.db.Model(&BatchScan{}).Where("id = ?", id).Update("status", BatchScanStatusStale).Error
}

// NullifyBatchScanEmail clears a batch's email after notification,
// mirroring NullifyScanEmail's GDPR retention rule for batch rows.
func (conn *DatabaseConnection) NullifyBatchScanEmail(id uint) error {
	return conn.db.Model(&BatchScan{}).Where("id = ?", id).Update("email", nil).Error
}
