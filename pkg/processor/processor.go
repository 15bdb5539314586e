// Package processor holds one pure function per named job queue, each
// translating a claimed db.Job into domain work and a Result. The
// dispatch shape (a registry mapping queue name to handler) is grounded
// on pkg/scan/executor's ExecutorRegistry (Register/Get keyed by job
// type), here keyed by db.QueueName instead.
package processor

import (
	"context"
	"fmt"

	"github.com/accesslint/platform/db"
)

// Result is what a processor returns on success. Fields are optional;
// a processor sets only what applies to its queue.
type Result struct {
	ArtifactURL string
	ExpiresAt   *int64
	IssuesFound int
}

// Processor executes one job to completion or returns an error. Per
// SPEC_FULL.md §4.6's "at-least-once delivery" contract, implementations
// MUST be idempotent on (jobId, payload).
type Processor func(ctx context.Context, job *db.Job, collaborators Collaborators) (Result, error)

// Registry maps queue names to their processor, mirroring
// executor.ExecutorRegistry's Register/Get shape.
type Registry struct {
	processors map[db.QueueName]Processor
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[db.QueueName]Processor)}
}

// Register adds a processor for queueName.
func (r *Registry) Register(queueName db.QueueName, p Processor) {
	r.processors[queueName] = p
}

// Get retrieves the processor for queueName.
func (r *Registry) Get(queueName db.QueueName) (Processor, bool) {
	p, ok := r.processors[queueName]
	return p, ok
}

// DefaultRegistry is the global processor registry, wired by cmd/worker.go.
var DefaultRegistry = NewRegistry()

// ErrUnregistered is returned when no processor exists for a queue.
func ErrUnregistered(queueName db.QueueName) error {
	return fmt.Errorf("no processor registered for queue: %s", queueName)
}
