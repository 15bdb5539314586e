package aibatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition_FixedSize(t *testing.T) {
	criteria := make([]Criterion, 12)
	for i := range criteria {
		criteria[i] = Criterion{CriterionID: string(rune('a' + i))}
	}
	mbs := Partition(criteria, 5)
	assert.Len(t, mbs, 3)
	assert.Len(t, mbs[0].Criteria, 5)
	assert.Len(t, mbs[1].Criteria, 5)
	assert.Len(t, mbs[2].Criteria, 2)
}

func TestPartition_IndicesAreSequential(t *testing.T) {
	criteria := make([]Criterion, 11)
	mbs := Partition(criteria, 5)
	for i, mb := range mbs {
		assert.Equal(t, i, mb.Index)
	}
}

func TestPartition_DefaultsWhenSizeNonPositive(t *testing.T) {
	criteria := make([]Criterion, DefaultMiniBatchSize+1)
	mbs := Partition(criteria, 0)
	assert.Len(t, mbs, 2)
}

func TestPartition_Deterministic(t *testing.T) {
	criteria := CriteriaForLevel("AAA")
	first := Partition(criteria, 5)
	second := Partition(criteria, 5)
	assert.Equal(t, first, second)
}

func TestGroupIntoBatches(t *testing.T) {
	mbs := Partition(make([]Criterion, 250), 5)
	groups := GroupIntoBatches(mbs, 20)
	assert.Len(t, groups, 3)
	assert.Len(t, groups[0], 20)
	assert.Len(t, groups[2], 10)
}
