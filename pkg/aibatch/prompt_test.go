package aibatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_IncludesEveryCriterion(t *testing.T) {
	mb := MiniBatch{Index: 0, Criteria: []Criterion{
		{CriterionID: "1.1.1", Description: "Non-text Content"},
		{CriterionID: "1.3.1", Description: "Info and Relationships"},
	}}
	prompt := buildPrompt(mb)
	assert.True(t, strings.Contains(prompt, "1.1.1"))
	assert.True(t, strings.Contains(prompt, "1.3.1"))
	assert.True(t, strings.Contains(prompt, "Info and Relationships"))
}
