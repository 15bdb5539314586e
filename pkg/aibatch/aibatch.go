// Package aibatch implements the AI Batch Analyzer: deterministic
// mini-batch partitioning of the WCAG criteria registry, content-hash
// caching, checkpointed resumable execution, and classified
// retry/backoff against the Inference Invoker (SPEC_FULL.md §4.9).
// Checkpointing is grounded on db.ScanJob's Attempts/MaxAttempts retry
// counters generalized to db.Checkpoint's completedBatches set; content
// hashing reuses lib.HashBytes unchanged from the teacher.
package aibatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/lib"
	"github.com/accesslint/platform/pkg/external"
	"github.com/accesslint/platform/pkg/taxonomy"
	"github.com/rs/zerolog/log"
)

// Config holds the analyzer's tunables, matching spec.md §6's
// recognized AI defaults.
type Config struct {
	BatchSize         int
	MiniBatchSize     int
	Delay             time.Duration
	InvocationTimeout time.Duration
	MaxRetries        int
}

// DefaultConfig matches spec.md §6: batchSize=100, miniBatchSize=5,
// delay=2s, timeout=180000ms, retries=3.
func DefaultConfig() Config {
	return Config{
		BatchSize:         DefaultBatchSize,
		MiniBatchSize:     DefaultMiniBatchSize,
		Delay:             2 * time.Second,
		InvocationTimeout: 180 * time.Second,
		MaxRetries:        3,
	}
}

// Verification is one criterion's pass/fail outcome from the model,
// carrying the same AI annotation fields SPEC_FULL.md §3 adds to Issue
// (aiExplanation, aiFixSuggestion, aiPriority) for failed criteria.
type Verification struct {
	CriterionID   string `json:"criterion_id"`
	Passed        bool   `json:"passed"`
	Explanation   string `json:"explanation,omitempty"`
	FixSuggestion string `json:"fix_suggestion,omitempty"`
	Priority      *int   `json:"priority,omitempty"`
}

// inferenceOutput is the structured payload the Inference Invoker is
// expected to emit for one mini-batch invocation.
type inferenceOutput struct {
	ScanID        uint           `json:"scan_id"`
	Verifications []Verification `json:"verifications"`
	TokensUsed    int64          `json:"tokens_used"`
}

// Analyzer drives one scan's WCAG verification against htmlContent,
// mini-batch by mini-batch.
type Analyzer struct {
	Conn   *db.DatabaseConnection
	Infer  external.InferenceInvoker
	Config Config
}

// New builds an Analyzer with DefaultConfig.
func New(conn *db.DatabaseConnection, infer external.InferenceInvoker) *Analyzer {
	return &Analyzer{Conn: conn, Infer: infer, Config: DefaultConfig()}
}

// Run verifies every criterion at wcagLevel against htmlContent for
// scanID, resuming from any existing Checkpoint. It returns every
// verification produced during THIS call; mini-batches already in
// completedBatches are skipped without re-invoking the model (their
// results live in the content-hash cache from when they first
// completed, not in this call's return value).
func (a *Analyzer) Run(ctx context.Context, scanID uint, url string, wcagLevel db.WCAGLevel, htmlContent string) ([]Verification, error) {
	cfg := a.Config
	if cfg.MiniBatchSize <= 0 {
		cfg = DefaultConfig()
	}

	criteria := CriteriaForLevel(wcagLevel)
	miniBatches := Partition(criteria, cfg.MiniBatchSize)
	totalBatches := len(miniBatches)

	checkpoint, err := a.Conn.GetOrCreateCheckpoint(scanID, url, wcagLevel, totalBatches)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint for scan %d: %w", scanID, err)
	}
	done := make(map[int]bool, len(checkpoint.CompletedBatches))
	for _, idx := range checkpoint.CompletedBatches {
		done[idx] = true
	}

	contentHash := lib.HashBytes([]byte(htmlContent))
	var produced []Verification

	for i, mb := range miniBatches {
		if ctx.Err() != nil {
			return produced, ctx.Err()
		}
		if done[mb.Index] {
			continue
		}

		verifications, tokensUsed, err := a.runMiniBatch(ctx, scanID, contentHash, wcagLevel, mb)
		if err != nil {
			return produced, fmt.Errorf("mini-batch %d for scan %d: %w", mb.Index, scanID, err)
		}
		produced = append(produced, verifications...)

		if err := a.Conn.MarkBatchComplete(scanID, mb.Index, tokensUsed); err != nil {
			log.Warn().Err(err).Uint("scan_id", scanID).Int("batch_index", mb.Index).Msg("Failed to persist checkpoint")
		}

		if i < len(miniBatches)-1 {
			select {
			case <-time.After(cfg.Delay):
			case <-ctx.Done():
				return produced, ctx.Err()
			}
		}
	}

	return produced, nil
}

// runMiniBatch resolves one mini-batch via the content-hash cache,
// falling back to invokeWithRetry on a miss.
func (a *Analyzer) runMiniBatch(ctx context.Context, scanID uint, contentHash string, wcagLevel db.WCAGLevel, mb MiniBatch) ([]Verification, int64, error) {
	if cached, err := a.Conn.GetCacheEntry(contentHash, wcagLevel, mb.Index); err == nil {
		var verifications []Verification
		if jerr := json.Unmarshal(cached.Verifications, &verifications); jerr == nil {
			return verifications, 0, nil
		}
	}

	verifications, tokensUsed, err := a.invokeWithRetry(ctx, scanID, mb)
	if err != nil {
		return nil, 0, err
	}

	data, merr := json.Marshal(verifications)
	if merr == nil {
		_ = a.Conn.PutCacheEntry(&db.CacheEntry{
			ContentHash:   contentHash,
			WCAGLevel:     wcagLevel,
			BatchNumber:   mb.Index,
			Verifications: data,
			TokensUsed:    tokensUsed,
		})
	}
	return verifications, tokensUsed, nil
}

// invokeWithRetry drives the Inference Invoker for one mini-batch, up
// to Config.MaxRetries additional attempts after the first, classifying
// failures and backing off per SPEC_FULL.md §4.9 step 5.
func (a *Analyzer) invokeWithRetry(ctx context.Context, scanID uint, mb MiniBatch) ([]Verification, int64, error) {
	prompt := buildPrompt(mb)
	var lastErr error

	for attempt := 0; attempt <= a.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(classifyError(lastErr), attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			}
		}
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}

		raw, _, err := a.Infer.Invoke(ctx, prompt, int(a.Config.InvocationTimeout.Milliseconds()))
		if err != nil {
			lastErr = err
			continue
		}

		var out inferenceOutput
		if jerr := json.Unmarshal([]byte(raw), &out); jerr != nil {
			lastErr = taxonomy.New(taxonomy.CodeInvalidOutput, "failed to parse inference output")
			continue
		}
		if out.ScanID != scanID {
			lastErr = taxonomy.New(taxonomy.CodeInvalidOutput, "inference output missing or mismatched scan id")
			continue
		}
		return out.Verifications, out.TokensUsed, nil
	}

	return nil, 0, fmt.Errorf("exhausted %d retries: %w", a.Config.MaxRetries, lastErr)
}

func buildPrompt(mb MiniBatch) string {
	prompt := "Verify the following WCAG success criteria against the provided page content:\n"
	for _, c := range mb.Criteria {
		prompt += fmt.Sprintf("- %s: %s\n", c.CriterionID, c.Description)
	}
	return prompt
}
