package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MonthlyUsage tracks discovery admission counters per guest session
// or user, keyed by calendar month. Created lazily and only
// incremented within a month; a new monthKey effectively resets it
// (SPEC_FULL.md §3).
type MonthlyUsage struct {
	BaseModel
	GuestSessionID *string `json:"guest_session_id,omitempty" gorm:"uniqueIndex:idx_usage_owner_month;size:255"`
	UserID         *string `json:"user_id,omitempty" gorm:"uniqueIndex:idx_usage_owner_month;size:255"`
	MonthKey       string  `json:"month_key" gorm:"uniqueIndex:idx_usage_owner_month;size:7;not null"`
	DiscoveryCount int     `json:"discovery_count" gorm:"default:0"`
}

func (u MonthlyUsage) String() string {
	return fmt.Sprintf("MonthKey: %s, DiscoveryCount: %d", u.MonthKey, u.DiscoveryCount)
}

// CurrentMonthKey returns the calendar-month key ("2026-07") for now.
func CurrentMonthKey(now time.Time) string {
	return now.Format("2006-01")
}

// GetDiscoveryCount returns the current month's discovery count for
// the given owner (exactly one of sessionID/userID must be set).
func (conn *DatabaseConnection) GetDiscoveryCount(sessionID, userID string, now time.Time) (int, error) {
	monthKey := CurrentMonthKey(now)
	query := conn.db.Model(&MonthlyUsage{}).Where("month_key = ?", monthKey)
	if sessionID != "" {
		query = query.Where("guest_session_id = ?", sessionID)
	} else {
		query = query.Where("user_id = ?", userID)
	}

	var usage MonthlyUsage
	err := query.First(&usage).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return usage.DiscoveryCount, nil
}

// IncrementDiscoveryCount lazily creates the current month's usage row
// and atomically increments it by one, per the admission contract's
// "increment after the Discovery row is created" rule.
func (conn *DatabaseConnection) IncrementDiscoveryCount(sessionID, userID string, now time.Time) error {
	monthKey := CurrentMonthKey(now)

	var sessionPtr, userPtr *string
	if sessionID != "" {
		sessionPtr = &sessionID
	}
	if userID != "" {
		userPtr = &userID
	}

	usage := MonthlyUsage{
		GuestSessionID: sessionPtr,
		UserID:         userPtr,
		MonthKey:       monthKey,
	}

	return conn.db.Transaction(func(tx *gorm.DB) error {
		q := tx.Where("month_key = ?", monthKey)
		if sessionPtr != nil {
			q = q.Where("guest_session_id = ?", *sessionPtr)
		} else {
			q = q.Where("guest_session_id IS NULL")
		}
		if userPtr != nil {
			q = q.Where("user_id = ?", *userPtr)
		} else {
			q = q.Where("user_id IS NULL")
		}
		result := q.FirstOrCreate(&usage)
		if result.Error != nil {
			return result.Error
		}
		return tx.Model(&MonthlyUsage{}).Where("id = ?", usage.ID).
			Update("discovery_count", gorm.Expr("discovery_count + 1")).Error
	})
}
