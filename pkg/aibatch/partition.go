package aibatch

// MiniBatch is one fixed-size group of criteria sent to the Inference
// Invoker in a single call. Index is the mini-batch's position in the
// deterministic partition and doubles as the Checkpoint/CacheEntry
// batch number.
type MiniBatch struct {
	Index    int
	Criteria []Criterion
}

const (
	DefaultMiniBatchSize = 5
	DefaultBatchSize     = 100
)

// Partition splits criteria (already sorted by CriteriaForLevel) into
// fixed-size mini-batches. Deterministic given the same inputs, per
// SPEC_FULL.md §4.9 step 2.
func Partition(criteria []Criterion, miniBatchSize int) []MiniBatch {
	if miniBatchSize <= 0 {
		miniBatchSize = DefaultMiniBatchSize
	}
	var out []MiniBatch
	for i := 0; i < len(criteria); i += miniBatchSize {
		end := i + miniBatchSize
		if end > len(criteria) {
			end = len(criteria)
		}
		out = append(out, MiniBatch{Index: len(out), Criteria: criteria[i:end]})
	}
	return out
}

// GroupIntoBatches chunks mini-batches into scheduling groups of
// batchSize, for progress logging; it has no effect on a mini-batch's
// Index or on checkpoint/cache keys.
func GroupIntoBatches(miniBatches []MiniBatch, batchSize int) [][]MiniBatch {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var out [][]MiniBatch
	for i := 0; i < len(miniBatches); i += batchSize {
		end := i + batchSize
		if end > len(miniBatches) {
			end = len(miniBatches)
		}
		out = append(out, miniBatches[i:end])
	}
	return out
}
