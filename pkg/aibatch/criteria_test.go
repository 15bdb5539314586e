package aibatch

import (
	"testing"

	"github.com/accesslint/platform/db"
	"github.com/stretchr/testify/assert"
)

func TestCriteriaForLevel_A(t *testing.T) {
	criteria := CriteriaForLevel(db.WCAGLevelA)
	for _, c := range criteria {
		assert.Equal(t, db.WCAGLevelA, c.Level)
	}
}

func TestCriteriaForLevel_AAIncludesA(t *testing.T) {
	a := CriteriaForLevel(db.WCAGLevelA)
	aa := CriteriaForLevel(db.WCAGLevelAA)
	assert.Greater(t, len(aa), len(a))
	for _, c := range a {
		assert.Contains(t, aa, c)
	}
}

func TestCriteriaForLevel_AAAIncludesAllLower(t *testing.T) {
	aa := CriteriaForLevel(db.WCAGLevelAA)
	aaa := CriteriaForLevel(db.WCAGLevelAAA)
	assert.Greater(t, len(aaa), len(aa))
	for _, c := range aa {
		assert.Contains(t, aaa, c)
	}
}

func TestCriteriaForLevel_SortedLexicographically(t *testing.T) {
	criteria := CriteriaForLevel(db.WCAGLevelAAA)
	for i := 1; i < len(criteria); i++ {
		assert.LessOrEqual(t, criteria[i-1].CriterionID, criteria[i].CriterionID)
	}
}

func TestCriteriaForLevel_Deterministic(t *testing.T) {
	first := CriteriaForLevel(db.WCAGLevelAA)
	second := CriteriaForLevel(db.WCAGLevelAA)
	assert.Equal(t, first, second)
}
