// Package external declares the system's external collaborators as
// Go interfaces only. Per SPEC_FULL.md §6, concrete
// browser automation, email delivery, object storage, and inference
// backends are out of scope; this package exists so the rest of the
// module can depend on stable shapes and tests can supply fakes.
package external

import "context"

// HTMLFetcher retrieves raw bytes for a URL, bounded to maxBytes.
// Implementations must enforce the same-domain/private-address checks
// upstream (pkg/urlsafety) before calling Fetch.
type HTMLFetcher interface {
	Fetch(ctx context.Context, url string, maxBytes int64) ([]byte, int, error)
}

// HTMLParser extracts landmark-region links from already-fetched HTML.
// Its method mirrors pkg/navigation.Extract, which is a package-level
// function returning navigation.Link; no package in the module depends
// on this interface.
type HTMLParser interface {
	Extract(html []byte, homepage string) ([]Link, error)
}

// Link mirrors pkg/navigation.Link to avoid an import cycle between
// pkg/external and pkg/navigation.
type Link struct {
	URL  string
	Text string
}

// HeadlessBrowser loads a URL in a rendered browser context and
// returns the rendered DOM plus any accessibility-relevant signals the
// scan-page processor needs (axe-core style violations are opaque
// payloads here; this package does not interpret them).
type HeadlessBrowser interface {
	LoadAndAnalyze(ctx context.Context, url string) (*PageAnalysis, error)
}

// PageAnalysis is the opaque result of driving a page through the
// headless browser and running the accessibility analyzer against it.
type PageAnalysis struct {
	HTML       string
	DurationMs int64
	Violations []byte // opaque, analyzer-defined JSON payload
}

// EmailSender dispatches a rendered notification.
type EmailSender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// ObjectStore persists a generated artifact and returns a
// time-bounded retrieval URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
}

// PersistentStore is the narrow surface the job runtime needs from the
// durable store, kept distinct from *gorm.DB so processors can be
// tested against a fake.
type PersistentStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Save(ctx context.Context, key string, value interface{}) error
}

// InferenceInvoker drives the external model used by the AI Batch
// Analyzer. Errors are classified by the caller per SPEC_FULL.md §4.9
// step 5 (pkg/taxonomy worker-layer codes).
type InferenceInvoker interface {
	Invoke(ctx context.Context, prompt string, timeoutMs int) (output string, durationMs int64, err error)
}
