package db

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// DiscoveryMode distinguishes an automated crawl from a manually
// curated page list.
type DiscoveryMode string

const (
	DiscoveryModeAuto   DiscoveryMode = "AUTO"
	DiscoveryModeManual DiscoveryMode = "MANUAL"
)

// DiscoveryStatus mirrors the discoveryengine state machine's terminal
// and in-flight states.
type DiscoveryStatus string

const (
	DiscoveryStatusPending   DiscoveryStatus = "PENDING"
	DiscoveryStatusRunning   DiscoveryStatus = "RUNNING"
	DiscoveryStatusCompleted DiscoveryStatus = "COMPLETED"
	DiscoveryStatusFailed    DiscoveryStatus = "FAILED"
	DiscoveryStatusCancelled DiscoveryStatus = "CANCELLED"
)

// DiscoveryPhase mirrors discoveryengine.Phase.
type DiscoveryPhase string

const (
	DiscoveryPhaseSitemap    DiscoveryPhase = "SITEMAP"
	DiscoveryPhaseNavigation DiscoveryPhase = "NAVIGATION"
	DiscoveryPhaseCrawl      DiscoveryPhase = "CRAWL"
	DiscoveryPhaseNone       DiscoveryPhase = "NONE"
)

// Discovery is one requested website-discovery run, per SPEC_FULL.md §3.
type Discovery struct {
	BaseModel
	SessionID      string          `json:"session_id" gorm:"index;size:255;not null"`
	HomepageURL    string          `json:"homepage_url" gorm:"type:text;not null"`
	Mode           DiscoveryMode   `json:"mode" gorm:"size:10;not null;default:'AUTO'"`
	Status         DiscoveryStatus `json:"status" gorm:"index;size:20;not null;default:'PENDING'"`
	Phase          DiscoveryPhase  `json:"phase" gorm:"size:20;not null;default:'NONE'"`
	MaxPages       int             `json:"max_pages" gorm:"default:100"`
	MaxDepth       int             `json:"max_depth" gorm:"default:3"`
	PartialResults bool            `json:"partial_results" gorm:"default:false"`
	ErrorMessage   *string         `json:"error_message,omitempty" gorm:"type:text"`
	ErrorCode      *string         `json:"error_code,omitempty" gorm:"size:100"`

	Pages []DiscoveredPage `json:"pages,omitempty" gorm:"foreignKey:DiscoveryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (d Discovery) String() string {
	return fmt.Sprintf("ID: %d, Homepage: %s, Status: %s, Phase: %s", d.ID, d.HomepageURL, d.Status, d.Phase)
}

// IsTerminal reports whether the discovery has reached a terminal state.
func (d Discovery) IsTerminal() bool {
	return d.Status == DiscoveryStatusCompleted || d.Status == DiscoveryStatusFailed || d.Status == DiscoveryStatusCancelled
}

// CreateDiscovery creates a new discovery row.
func (conn *DatabaseConnection) CreateDiscovery(discovery *Discovery) (*Discovery, error) {
	result := conn.db.Create(discovery)
	if result.Error != nil {
		log.Error().Err(result.Error).Interface("discovery", discovery).Msg("Discovery creation failed")
	}
	return discovery, result.Error
}

// GetDiscoveryByID retrieves a discovery, optionally preloading pages.
func (conn *DatabaseConnection) GetDiscoveryByID(id uint, includePages bool) (*Discovery, error) {
	query := conn.db
	if includePages {
		query = query.Preload("Pages")
	}
	var discovery Discovery
	if err := query.First(&discovery, id).Error; err != nil {
		return nil, err
	}
	return &discovery, nil
}

// UpdateDiscoveryPhase advances a discovery to a new status/phase.
func (conn *DatabaseConnection) UpdateDiscoveryPhase(id uint, status DiscoveryStatus, phase DiscoveryPhase) error {
	return conn.db.Model(&Discovery{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": status,
		"phase":  phase,
	}).Error
}

// FailDiscovery marks a discovery terminally failed.
func (conn *DatabaseConnection) FailDiscovery(id uint, code, message string) error {
	return conn.db.Model(&Discovery{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        DiscoveryStatusFailed,
		"error_code":    code,
		"error_message": message,
	}).Error
}

// CompleteDiscovery marks a discovery finished, recording whether any
// phase produced only partial results.
func (conn *DatabaseConnection) CompleteDiscovery(id uint, partial bool) error {
	status := DiscoveryStatusCompleted
	return conn.db.Model(&Discovery{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":          status,
		"phase":           DiscoveryPhaseCrawl,
		"partial_results": partial,
	}).Error
}
