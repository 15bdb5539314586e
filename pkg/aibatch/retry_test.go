package aibatch

import (
	"errors"
	"testing"
	"time"

	"github.com/accesslint/platform/pkg/taxonomy"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError_KnownTaxonomyCodes(t *testing.T) {
	for _, code := range []taxonomy.Code{
		taxonomy.CodeRateLimit, taxonomy.CodeTimeout, taxonomy.CodeProcessCrash,
		taxonomy.CodeInvalidOutput, taxonomy.CodeURLUnreachable,
	} {
		assert.Equal(t, code, classifyError(taxonomy.New(code, "x")))
	}
}

func TestClassifyError_UnknownPlainError(t *testing.T) {
	assert.Equal(t, taxonomy.CodeUnknown, classifyError(errors.New("boom")))
}

func TestClassifyError_UnrelatedTaxonomyCode(t *testing.T) {
	assert.Equal(t, taxonomy.CodeUnknown, classifyError(taxonomy.New(taxonomy.CodeScanNotFound, "x")))
}

func TestRetryDelay_RateLimitUsesLargerBase(t *testing.T) {
	assert.Equal(t, 120*time.Second, retryDelay(taxonomy.CodeRateLimit, 1))
	assert.Equal(t, 240*time.Second, retryDelay(taxonomy.CodeRateLimit, 2))
}

func TestRetryDelay_DefaultBase(t *testing.T) {
	assert.Equal(t, 10*time.Second, retryDelay(taxonomy.CodeTimeout, 1))
	assert.Equal(t, 20*time.Second, retryDelay(taxonomy.CodeUnknown, 2))
}
