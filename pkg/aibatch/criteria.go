package aibatch

import "github.com/accesslint/platform/db"

// Criterion is one entry in the WCAG verification instruction set the
// AI Batch Analyzer drives the Inference Invoker against.
type Criterion struct {
	CriterionID string
	Level       db.WCAGLevel
	Description string
}

// Registry is a representative set of WCAG success criteria, enough to
// exercise every level's nesting rule (A ⊆ AA ⊆ AAA). A production
// deployment would load this from the authored rule set; out of scope
// here per spec.md's "authoring WCAG rules" Non-goal.
var Registry = []Criterion{
	{CriterionID: "1.1.1", Level: db.WCAGLevelA, Description: "Non-text Content"},
	{CriterionID: "1.3.1", Level: db.WCAGLevelA, Description: "Info and Relationships"},
	{CriterionID: "1.4.1", Level: db.WCAGLevelA, Description: "Use of Color"},
	{CriterionID: "2.1.1", Level: db.WCAGLevelA, Description: "Keyboard"},
	{CriterionID: "2.4.2", Level: db.WCAGLevelA, Description: "Page Titled"},
	{CriterionID: "3.1.1", Level: db.WCAGLevelA, Description: "Language of Page"},
	{CriterionID: "4.1.2", Level: db.WCAGLevelA, Description: "Name, Role, Value"},
	{CriterionID: "1.4.3", Level: db.WCAGLevelAA, Description: "Contrast (Minimum)"},
	{CriterionID: "1.4.5", Level: db.WCAGLevelAA, Description: "Images of Text"},
	{CriterionID: "2.4.6", Level: db.WCAGLevelAA, Description: "Headings and Labels"},
	{CriterionID: "2.4.7", Level: db.WCAGLevelAA, Description: "Focus Visible"},
	{CriterionID: "3.2.3", Level: db.WCAGLevelAA, Description: "Consistent Navigation"},
	{CriterionID: "1.4.6", Level: db.WCAGLevelAAA, Description: "Contrast (Enhanced)"},
	{CriterionID: "2.1.3", Level: db.WCAGLevelAAA, Description: "Keyboard (No Exception)"},
	{CriterionID: "2.4.9", Level: db.WCAGLevelAAA, Description: "Link Purpose (Link Only)"},
	{CriterionID: "3.1.5", Level: db.WCAGLevelAAA, Description: "Reading Level"},
}

// levelRank orders levels for the A ⊆ AA ⊆ AAA nesting rule.
var levelRank = map[db.WCAGLevel]int{
	db.WCAGLevelA:   0,
	db.WCAGLevelAA:  1,
	db.WCAGLevelAAA: 2,
}

// CriteriaForLevel returns every criterion at or below level, sorted
// lexicographically by CriterionID (SPEC_FULL.md §4.9 step 2).
func CriteriaForLevel(level db.WCAGLevel) []Criterion {
	maxRank, ok := levelRank[level]
	if !ok {
		maxRank = levelRank[db.WCAGLevelAA]
	}
	var out []Criterion
	for _, c := range Registry {
		if levelRank[c.Level] <= maxRank {
			out = append(out, c)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CriterionID < out[j-1].CriterionID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
