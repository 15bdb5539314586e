package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// WCAGLevel is the conformance target of a Scan or BatchScan.
type WCAGLevel string

const (
	WCAGLevelA   WCAGLevel = "A"
	WCAGLevelAA  WCAGLevel = "AA"
	WCAGLevelAAA WCAGLevel = "AAA"
)

// ScanStatus represents the status of an accessibility scan. Adapted
// from the teacher's ScanStatus (same type/const shape), narrowed to
// the four states SPEC_FULL.md §3 names for a single-page scan.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "PENDING"
	ScanStatusRunning   ScanStatus = "RUNNING"
	ScanStatusCompleted ScanStatus = "COMPLETED"
	ScanStatusFailed    ScanStatus = "FAILED"
)

// AIStatus tracks the AI Batch Analyzer's progress against one scan.
type AIStatus string

const (
	AIStatusPending    AIStatus = "PENDING"
	AIStatusProcessing AIStatus = "PROCESSING"
	AIStatusCompleted  AIStatus = "COMPLETED"
	AIStatusFailed     AIStatus = "FAILED"
)

// Scan is a single requested accessibility scan of one URL.
type Scan struct {
	BaseModel
	SessionID   *string    `json:"session_id,omitempty" gorm:"index;size:255"`
	UserID      *string    `json:"user_id,omitempty" gorm:"index;size:255"`
	URL         string     `json:"url" gorm:"type:text;not null"`
	WCAGLevel   WCAGLevel  `json:"wcag_level" gorm:"size:10;not null;default:'AA'"`
	Email       *string    `json:"email,omitempty" gorm:"size:320"`
	Status      ScanStatus `json:"status" gorm:"index;size:20;not null;default:'PENDING'"`
	DurationMs  *int64     `json:"duration_ms,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty" gorm:"type:text"`

	AIEnabled     bool      `json:"ai_enabled" gorm:"default:false"`
	AIStatus      *AIStatus `json:"ai_status,omitempty" gorm:"size:20"`
	AITokensUsed  int64     `json:"ai_tokens_used" gorm:"default:0"`
	AIDurationMs  int64     `json:"ai_duration_ms" gorm:"default:0"`

	BatchScanID *uint `json:"batch_scan_id,omitempty" gorm:"index"`

	Result *ScanResult `json:"result,omitempty" gorm:"foreignKey:ScanID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// ScanResult is the aggregate accessibility audit outcome for one Scan.
type ScanResult struct {
	BaseModel
	ScanID             uint    `json:"scan_id" gorm:"uniqueIndex;not null"`
	TotalIssues        int     `json:"total_issues" gorm:"default:0"`
	CriticalCount      int     `json:"critical_count" gorm:"default:0"`
	SeriousCount       int     `json:"serious_count" gorm:"default:0"`
	ModerateCount      int     `json:"moderate_count" gorm:"default:0"`
	MinorCount         int     `json:"minor_count" gorm:"default:0"`
	PassedChecks       int     `json:"passed_checks" gorm:"default:0"`
	InapplicableChecks int     `json:"inapplicable_checks" gorm:"default:0"`
	Issues             []Issue `json:"issues,omitempty" gorm:"foreignKey:ScanResultID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Tally recomputes the per-impact counters from Issues, matching how
// generate-report summarizes a result before rendering (SPEC_FULL.md §4.7).
func (r *ScanResult) Tally() {
	r.CriticalCount, r.SeriousCount, r.ModerateCount, r.MinorCount = 0, 0, 0, 0
	for _, issue := range r.Issues {
		switch issue.Impact {
		case ImpactCritical:
			r.CriticalCount++
		case ImpactSerious:
			r.SeriousCount++
		case ImpactModerate:
			r.ModerateCount++
		case ImpactMinor:
			r.MinorCount++
		}
	}
	r.TotalIssues = len(r.Issues)
}

func (s Scan) String() string {
	return fmt.Sprintf("ID: %d, URL: %s, WCAG: %s, Status: %s", s.ID, s.URL, s.WCAGLevel, s.Status)
}

// IsTerminal reports whether the scan has reached a terminal state.
func (s Scan) IsTerminal() bool {
	return s.Status == ScanStatusCompleted || s.Status == ScanStatusFailed
}

// ScanFilter represents available scan filters.
type ScanFilter struct {
	SessionID   string
	UserID      string
	Statuses    []ScanStatus
	BatchScanID uint
	Pagination  Pagination
	SortBy      string
	SortOrder   string
}

// CreateScan creates a new scan.
func (d *DatabaseConnection) CreateScan(scan *Scan) (*Scan, error) {
	result := d.db.Create(scan)
	if result.Error != nil {
		log.Error().Err(result.Error).Interface("scan", scan).Msg("Scan creation failed")
	}
	return scan, result.Error
}

// GetScanByID retrieves a scan by ID, optionally preloading its result.
func (d *DatabaseConnection) GetScanByID(id uint, includeResult bool) (*Scan, error) {
	query := d.db
	if includeResult {
		query = query.Preload("Result").Preload("Result.Issues")
	}
	var scan Scan
	if err := query.First(&scan, id).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

// UpdateScanStatus transitions a scan's status and, when errorMessage
// is non-nil, records it. Duration is not touched here.
func (d *DatabaseConnection) UpdateScanStatus(id uint, status ScanStatus, errorMessage *string) error {
	updates := map[string]interface{}{"status": status}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}
	return d.db.Model(&Scan{}).Where("id = ?", id).Updates(updates).Error
}

// SetScanDuration records how long a scan took end-to-end.
func (d *DatabaseConnection) SetScanDuration(id uint, durationMs int64) error {
	return d.db.Model(&Scan{}).Where("id = ?", id).Update("duration_ms", durationMs).Error
}

// NullifyScanEmail clears a scan's email field for GDPR compliance,
// per SPEC_FULL.md §4.7 send-email step 4.
func (d *DatabaseConnection) NullifyScanEmail(id uint) error {
	return d.db.Model(&Scan{}).Where("id = ?", id).Update("email", nil).Error
}

// UpdateScanAIStatus transitions a scan's AI Batch Analyzer status and
// atomically accumulates its token/duration counters.
func (d *DatabaseConnection) UpdateScanAIStatus(id uint, status AIStatus, tokensUsed int64, durationMs int64) error {
	return d.db.Model(&Scan{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ai_status":      status,
		"ai_tokens_used": gorm.Expr("ai_tokens_used + ?", tokensUsed),
		"ai_duration_ms": gorm.Expr("ai_duration_ms + ?", durationMs),
	}).Error
}

// SaveScanResult upserts the ScanResult (and its Issues) for a scan.
func (d *DatabaseConnection) SaveScanResult(result *ScanResult) error {
	result.Tally()
	return d.db.Save(result).Error
}

// ListScans lists scans with filters, most recent first.
func (d *DatabaseConnection) ListScans(filter ScanFilter) (scans []*Scan, count int64, err error) {
	query := d.db.Model(&Scan{})

	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.BatchScanID != 0 {
		query = query.Where("batch_scan_id = ?", filter.BatchScanID)
	}

	if err = query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at DESC"
	if filter.SortBy != "" {
		sortOrder := "asc"
		if filter.SortOrder == "desc" {
			sortOrder = "desc"
		}
		order = filter.SortBy + " " + sortOrder
	}

	err = query.Scopes(Paginate(&filter.Pagination)).Order(order).Find(&scans).Error
	return scans, count, err
}

// CountScansSince counts scans owned by sessionID or userID created
// since since, used by MonthlyUsage reconciliation.
func (d *DatabaseConnection) CountScansSince(sessionID, userID string, since time.Time) (int64, error) {
	query := d.db.Model(&Scan{}).Where("created_at >= ?", since)
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	} else if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
