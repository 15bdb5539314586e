package aibatch

import (
	"time"

	"github.com/accesslint/platform/pkg/taxonomy"
)

// classifyError maps an Inference Invoker failure onto the worker-layer
// taxonomy, per SPEC_FULL.md §4.9 step 5. Invokers are expected to
// return *taxonomy.Error; anything else is UNKNOWN.
func classifyError(err error) taxonomy.Code {
	if err == nil {
		return ""
	}
	if te, ok := err.(*taxonomy.Error); ok {
		switch te.Code {
		case taxonomy.CodeRateLimit, taxonomy.CodeTimeout, taxonomy.CodeProcessCrash,
			taxonomy.CodeInvalidOutput, taxonomy.CodeURLUnreachable:
			return te.Code
		}
	}
	return taxonomy.CodeUnknown
}

// retryDelay computes the backoff before retry attempt n (1-indexed),
// per SPEC_FULL.md §4.9 step 5: RATE_LIMIT backs off from a 60s base,
// everything else from a 5s base, both doubling per attempt.
func retryDelay(code taxonomy.Code, attempt int) time.Duration {
	base := 5 * time.Second
	if code == taxonomy.CodeRateLimit {
		base = 60 * time.Second
	}
	return base * time.Duration(uint(1)<<uint(attempt))
}
