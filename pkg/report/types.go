package report

// ReportFormat is the artifact format generate-report can produce.
type ReportFormat string

const (
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatJSON ReportFormat = "json"
	ReportFormatCSV  ReportFormat = "csv"
)

// ReportIssue is the report-friendly projection of a db.Issue.
type ReportIssue struct {
	ID           uint     `json:"id"`
	RuleID       string   `json:"rule_id"`
	Impact       string   `json:"impact"`
	WCAGCriteria []string `json:"wcag_criteria,omitempty"`
	Description  string   `json:"description"`
	HelpText     string   `json:"help_text,omitempty"`
	HelpURL      string   `json:"help_url,omitempty"`
	CSSSelector  string   `json:"css_selector,omitempty"`
}

// Summary contains aggregate counters for the report header.
type Summary struct {
	TotalIssues    int            `json:"total_issues"`
	CriticalCount  int            `json:"critical_count"`
	SeriousCount   int            `json:"serious_count"`
	ModerateCount  int            `json:"moderate_count"`
	MinorCount     int            `json:"minor_count"`
	PassedChecks   int            `json:"passed_checks"`
	ImpactCounts   map[string]int `json:"impact_counts"`
	UniqueRuleIDs  int            `json:"unique_rule_ids"`
}

// ReportData is the fully assembled report payload, independent of
// output format.
type ReportData struct {
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	WCAGLevel   string         `json:"wcag_level"`
	GeneratedAt string         `json:"generated_at"`
	Summary     Summary        `json:"summary"`
	Issues      []*ReportIssue `json:"issues"`
}
