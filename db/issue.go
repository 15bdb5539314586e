package db

import (
	"fmt"
	"sort"

	"github.com/accesslint/platform/lib"
	"github.com/rs/zerolog/log"
)

// Issue is one accessibility violation found on a scanned page, per
// SPEC_FULL.md §3. Adapted from the teacher's vulnerability Issue
// (same BaseModel/filter/list/grouped-list shape), re-fielded for
// axe-core-style WCAG findings instead of HTTP-request findings.
type Issue struct {
	BaseModel
	ScanResultID    uint        `json:"scan_result_id" gorm:"index;not null"`
	RuleID          string      `json:"rule_id" gorm:"index;size:255;not null"`
	Impact          Impact      `json:"impact" gorm:"index;size:20;not null;default:'UNKNOWN'"`
	WCAGCriteria    StringSlice `json:"wcag_criteria" gorm:"type:jsonb"`
	Description     string      `json:"description" gorm:"type:text"`
	HelpText        string      `json:"help_text" gorm:"type:text"`
	HelpURL         string      `json:"help_url" gorm:"type:text"`
	HTMLSnippet     string      `json:"html_snippet,omitempty" gorm:"type:text"`
	CSSSelector     string      `json:"css_selector,omitempty" gorm:"size:1000"`
	AIExplanation   string      `json:"ai_explanation,omitempty" gorm:"type:text"`
	AIFixSuggestion string      `json:"ai_fix_suggestion,omitempty" gorm:"type:text"`
	AIPriority      *int        `json:"ai_priority,omitempty"`
}

func (i Issue) String() string {
	return fmt.Sprintf(
		"ID: %d, Rule: %s, Impact: %s, URL snippet len: %d",
		i.ID, i.RuleID, i.Impact, len(i.HTMLSnippet),
	)
}

func (i Issue) Pretty() string {
	return fmt.Sprintf(
		"%sID:%s %d\n%sRule:%s %s\n%sImpact:%s %s\n%sWCAG:%s %v\n%sDescription:%s %s\n\n%sHelp:%s %s (%s)\n",
		lib.Blue, lib.ResetColor, i.ID,
		lib.Blue, lib.ResetColor, i.RuleID,
		lib.Blue, lib.ResetColor, i.Impact,
		lib.Blue, lib.ResetColor, i.WCAGCriteria,
		lib.Blue, lib.ResetColor, i.Description,
		lib.Blue, lib.ResetColor, i.HelpText, i.HelpURL,
	)
}

// GroupedIssue aggregates Issues sharing a rule/impact for report
// summaries, grounded on the teacher's GroupedIssue shape.
type GroupedIssue struct {
	RuleID string       `json:"rule_id"`
	Impact string       `json:"impact"`
	Count  int          `json:"count"`
	Items  []*IssueItem `json:"items"`
}

type IssueItem struct {
	ID          uint   `json:"id"`
	CSSSelector string `json:"css_selector"`
}

// IssueFilter represents available issue filters.
type IssueFilter struct {
	ScanResultID uint
	RuleIDs      []string
	Impacts      []Impact
	Pagination   Pagination
}

// ListIssues lists issues, most severe first.
func (d *DatabaseConnection) ListIssues(filter IssueFilter) (issues []*Issue, count int64, err error) {
	query := d.db.Model(&Issue{})

	if filter.ScanResultID != 0 {
		query = query.Where("scan_result_id = ?", filter.ScanResultID)
	}
	if len(filter.RuleIDs) > 0 {
		query = query.Where("rule_id IN ?", filter.RuleIDs)
	}
	if len(filter.Impacts) > 0 {
		query = query.Where("impact IN ?", filter.Impacts)
	}

	if err = query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	err = query.Scopes(Paginate(&filter.Pagination)).
		Order(impactOrderQuery).
		Order("rule_id ASC, created_at DESC").
		Find(&issues).Error
	return issues, count, err
}

// ListIssuesGrouped groups issues by rule and impact for report
// summaries.
func (d *DatabaseConnection) ListIssuesGrouped(filter IssueFilter) ([]*GroupedIssue, error) {
	var issues []Issue
	query := d.db.Model(&Issue{}).Select("id, rule_id, impact, css_selector")

	if filter.ScanResultID != 0 {
		query = query.Where("scan_result_id = ?", filter.ScanResultID)
	}
	if len(filter.RuleIDs) > 0 {
		query = query.Where("rule_id IN ?", filter.RuleIDs)
	}

	if err := query.Find(&issues).Error; err != nil {
		return nil, err
	}

	grouped := make(map[string]*GroupedIssue)
	for _, issue := range issues {
		key := issue.RuleID + "|" + issue.Impact.String()
		g, ok := grouped[key]
		if !ok {
			g = &GroupedIssue{RuleID: issue.RuleID, Impact: issue.Impact.String()}
			grouped[key] = g
		}
		g.Items = append(g.Items, &IssueItem{ID: issue.ID, CSSSelector: issue.CSSSelector})
		g.Count = len(g.Items)
	}

	var result []*GroupedIssue
	for _, g := range grouped {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool {
		return GetImpactOrder(result[i].Impact) < GetImpactOrder(result[j].Impact)
	})
	return result, nil
}

// CreateIssue saves an issue to the database.
func (d *DatabaseConnection) CreateIssue(issue Issue) (Issue, error) {
	result := d.db.Create(&issue)
	if result.Error != nil {
		log.Error().Err(result.Error).Interface("issue", issue).Msg("Failed to create accessibility issue")
	}
	return issue, result.Error
}

// CreateIssues saves a batch of issues for one scan result.
func (d *DatabaseConnection) CreateIssues(issues []*Issue) error {
	if len(issues) == 0 {
		return nil
	}
	result := d.db.Create(issues)
	if result.Error != nil {
		log.Error().Err(result.Error).Int("count", len(issues)).Msg("Failed to create accessibility issues batch")
	}
	return result.Error
}

// GetIssue retrieves a single issue by ID.
func (d *DatabaseConnection) GetIssue(id uint) (issue Issue, err error) {
	err = d.db.First(&issue, id).Error
	return issue, err
}

// UpdateIssueAIAnnotation records the AI Batch Analyzer's explanation,
// fix suggestion, and priority for one failed-criterion finding.
func (d *DatabaseConnection) UpdateIssueAIAnnotation(issueID uint, explanation, fixSuggestion string, priority *int) error {
	return d.db.Model(&Issue{}).Where("id = ?", issueID).Updates(map[string]interface{}{
		"ai_explanation":    explanation,
		"ai_fix_suggestion": fixSuggestion,
		"ai_priority":       priority,
	}).Error
}
