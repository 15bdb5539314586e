package db

import (
	"fmt"
	"strings"

	"github.com/accesslint/platform/pkg/urlsafety"
	cregex "github.com/mingrammer/commonregex"
	"github.com/rs/zerolog/log"
)

// PageSource records how a DiscoveredPage entered its Discovery.
type PageSource string

const (
	PageSourceSitemap    PageSource = "SITEMAP"
	PageSourceNavigation PageSource = "NAVIGATION"
	PageSourceCrawled    PageSource = "CRAWLED"
	PageSourceManual     PageSource = "MANUAL"
)

// DiscoveredPage is one URL found within a Discovery. Invariant:
// (discoveryId, normalize(url)) unique, enforced by a composite index
// plus an application-level check in AddDiscoveredPage.
type DiscoveredPage struct {
	BaseModel
	DiscoveryID uint       `json:"discovery_id" gorm:"uniqueIndex:idx_discovery_url;not null"`
	URL         string     `json:"url" gorm:"uniqueIndex:idx_discovery_url;type:text;not null"`
	Title       *string    `json:"title,omitempty" gorm:"size:500"`
	Source      PageSource `json:"source" gorm:"size:20;not null"`
	Depth       int        `json:"depth" gorm:"default:0"`
	HTTPStatus  *int       `json:"http_status,omitempty"`
	ContentType *string    `json:"content_type,omitempty" gorm:"size:255"`
}

func (p DiscoveredPage) String() string {
	return fmt.Sprintf("ID: %d, URL: %s, Source: %s, Depth: %d", p.ID, p.URL, p.Source, p.Depth)
}

const maxTitleLength = 500

// sanitizeTitle redacts anything PII-shaped out of a scraped <title>
// before clamping it, since page titles are attacker/author-controlled
// text surfaced straight back to the requester.
func sanitizeTitle(title string) *string {
	if title == "" {
		return nil
	}
	for _, email := range cregex.Emails(title) {
		title = strings.ReplaceAll(title, email, "[redacted-email]")
	}
	for _, phone := range cregex.PhonesWithExts(title) {
		title = strings.ReplaceAll(title, phone, "[redacted-phone]")
	}
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength]
	}
	return &title
}

// AddDiscoveredPage appends a page to a discovery, enforcing the
// (discoveryId, normalize(url)) uniqueness invariant and canonicalizing
// the URL before insert.
func (conn *DatabaseConnection) AddDiscoveredPage(discoveryID uint, page DiscoveredPage) (*DiscoveredPage, error) {
	page.DiscoveryID = discoveryID
	page.URL = urlsafety.Canonicalize(page.URL)
	if page.Title != nil {
		page.Title = sanitizeTitle(*page.Title)
	}

	var existing DiscoveredPage
	err := conn.db.Where("discovery_id = ? AND url = ?", discoveryID, page.URL).First(&existing).Error
	if err == nil {
		return &existing, nil
	}

	result := conn.db.Create(&page)
	if result.Error != nil {
		log.Error().Err(result.Error).Interface("page", page).Msg("DiscoveredPage creation failed")
		return nil, result.Error
	}
	return &page, nil
}

// RemoveManualPage deletes a MANUAL-source page from a discovery.
// Only MANUAL pages may be individually removed (SPEC_FULL.md §3's
// append-only invariant for automated sources).
func (conn *DatabaseConnection) RemoveManualPage(discoveryID, pageID uint) error {
	return conn.db.Where("id = ? AND discovery_id = ? AND source = ?", pageID, discoveryID, PageSourceManual).
		Delete(&DiscoveredPage{}).Error
}

// ListDiscoveredPages lists pages for one discovery, in discovery order.
func (conn *DatabaseConnection) ListDiscoveredPages(discoveryID uint) ([]*DiscoveredPage, error) {
	var pages []*DiscoveredPage
	err := conn.db.Where("discovery_id = ?", discoveryID).Order("id ASC").Find(&pages).Error
	return pages, err
}
