package report

import (
	"sort"

	"github.com/accesslint/platform/db"
)

// buildReportData projects a ScanResult's Issues into report-friendly
// shapes and computes the summary counters, grounded on the teacher's
// processIssues/generateSummary split (pkg/report/utils.go).
func buildReportData(title, url, wcagLevel string, generatedAt string, result *db.ScanResult) ReportData {
	issues := make([]*ReportIssue, 0, len(result.Issues))
	ruleIDs := make(map[string]bool)

	for _, issue := range result.Issues {
		issues = append(issues, &ReportIssue{
			ID:           issue.ID,
			RuleID:       issue.RuleID,
			Impact:       issue.Impact.String(),
			WCAGCriteria: []string(issue.WCAGCriteria),
			Description:  issue.Description,
			HelpText:     issue.HelpText,
			HelpURL:      issue.HelpURL,
			CSSSelector:  issue.CSSSelector,
		})
		ruleIDs[issue.RuleID] = true
	}

	sort.Slice(issues, func(i, j int) bool {
		oi, oj := db.GetImpactOrder(issues[i].Impact), db.GetImpactOrder(issues[j].Impact)
		if oi != oj {
			return oi < oj
		}
		return issues[i].RuleID < issues[j].RuleID
	})

	summary := Summary{
		TotalIssues:   result.TotalIssues,
		CriticalCount: result.CriticalCount,
		SeriousCount:  result.SeriousCount,
		ModerateCount: result.ModerateCount,
		MinorCount:    result.MinorCount,
		PassedChecks:  result.PassedChecks,
		UniqueRuleIDs: len(ruleIDs),
		ImpactCounts: map[string]int{
			string(db.ImpactCritical): result.CriticalCount,
			string(db.ImpactSerious):  result.SeriousCount,
			string(db.ImpactModerate): result.ModerateCount,
			string(db.ImpactMinor):    result.MinorCount,
		},
	}

	return ReportData{
		Title:       title,
		URL:         url,
		WCAGLevel:   wcagLevel,
		GeneratedAt: generatedAt,
		Summary:     summary,
		Issues:      issues,
	}
}
