package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/accesslint/platform/db"
	"github.com/stretchr/testify/assert"
)

func testResult() *db.ScanResult {
	result := &db.ScanResult{
		PassedChecks:       12,
		InapplicableChecks: 3,
		Issues: []db.Issue{
			{RuleID: "image-alt", Impact: db.ImpactCritical, Description: "Images must have alt text", HelpURL: "https://example.com/image-alt", WCAGCriteria: db.StringSlice{"1.1.1"}},
			{RuleID: "color-contrast", Impact: db.ImpactSerious, Description: "Text must have sufficient contrast", WCAGCriteria: db.StringSlice{"1.4.3"}},
			{RuleID: "label", Impact: db.ImpactModerate, Description: "Form elements must have labels"},
		},
	}
	result.Tally()
	return result
}

func TestGenerateReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateReport(ReportOptions{
		Title:     "Accessibility Report",
		URL:       "https://example.com",
		WCAGLevel: "AA",
		Result:    testResult(),
		Format:    ReportFormatJSON,
	}, &buf)
	assert.NoError(t, err)

	var data ReportData
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, 3, data.Summary.TotalIssues)
	assert.Equal(t, 1, data.Summary.CriticalCount)
	assert.Len(t, data.Issues, 3)
	// most severe first
	assert.Equal(t, "image-alt", data.Issues[0].RuleID)
}

func TestGenerateReport_CSV(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateReport(ReportOptions{
		Title:  "Accessibility Report",
		Result: testResult(),
		Format: ReportFormatCSV,
	}, &buf)
	assert.NoError(t, err)

	reader := csv.NewReader(&buf)
	records, err := reader.ReadAll()
	assert.NoError(t, err)
	assert.Len(t, records, 4) // header + 3 issues
	assert.Equal(t, "rule_id", records[0][1])
}

func TestGenerateReport_PDF(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateReport(ReportOptions{
		Title:     "Accessibility Report",
		URL:       "https://example.com",
		WCAGLevel: "AA",
		Result:    testResult(),
		Format:    ReportFormatPDF,
	}, &buf)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
}

func TestGenerateReport_InvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateReport(ReportOptions{Result: testResult(), Format: "bogus"}, &buf)
	assert.Error(t, err)
}

func TestGenerateReport_NilResult(t *testing.T) {
	var buf bytes.Buffer
	err := GenerateReport(ReportOptions{Format: ReportFormatJSON}, &buf)
	assert.Error(t, err)
}
