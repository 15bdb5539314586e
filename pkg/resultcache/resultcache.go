// Package resultcache implements the Result Cache & Usage Store named
// in SPEC_FULL.md §4.10: a thin Get/Set/Delete-with-TTL interface, an
// in-memory reference implementation (no Redis or other cache client
// is added to go.mod, since nothing in the pack demonstrates one and
// the teacher's own "cache" is ad hoc in-process state), and adapters
// binding it to pkg/discoveryengine's UsageStore/ResultPublisher
// collaborator shapes.
package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/accesslint/platform/db"
	"github.com/accesslint/platform/pkg/discoveryengine"
)

// Cache is the Get/Set/Delete-with-TTL interface named in §4.10.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type entry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is a process-local Cache, adequate for tests and for a
// single-node deployment; a future multi-node deployment would swap
// this for a real backend behind the same interface.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewMemoryCache builds an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry)}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, expires: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

var _ Cache = (*MemoryCache)(nil)

// DiscoveryResultTTL is the cache lifetime for a published discovery
// snapshot, per §4.10.
const DiscoveryResultTTL = 24 * time.Hour

func discoveryKey(id string) string {
	return fmt.Sprintf("discovery:%s:result", id)
}

// storedDiscoveryResult wraps a discoveryengine.Result with its owning
// id so a read can detect a poisoned or stale entry.
type storedDiscoveryResult struct {
	DiscoveryID string                 `json:"discovery_id"`
	Result      discoveryengine.Result `json:"result"`
}

// Publisher adapts a Cache into discoveryengine.ResultPublisher and
// supplies the matching read path.
type Publisher struct {
	Cache Cache
}

// NewPublisher builds a Publisher backed by cache.
func NewPublisher(cache Cache) *Publisher {
	return &Publisher{Cache: cache}
}

// PublishDiscovery writes result under discovery:{id}:result.
func (p *Publisher) PublishDiscovery(ctx context.Context, discoveryID string, result discoveryengine.Result, ttl time.Duration) error {
	stored := storedDiscoveryResult{DiscoveryID: discoveryID, Result: result}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal discovery result for %s: %w", discoveryID, err)
	}
	return p.Cache.Set(ctx, discoveryKey(discoveryID), data, ttl)
}

// GetDiscovery returns the cached snapshot for id. A hit whose
// embedded id doesn't match the requested id is treated as a miss and
// the corrupt entry is evicted, per §4.10's integrity check.
func (p *Publisher) GetDiscovery(ctx context.Context, id string) (discoveryengine.Result, bool, error) {
	data, ok, err := p.Cache.Get(ctx, discoveryKey(id))
	if err != nil || !ok {
		return discoveryengine.Result{}, false, err
	}
	var stored storedDiscoveryResult
	if err := json.Unmarshal(data, &stored); err != nil {
		_ = p.Cache.Delete(ctx, discoveryKey(id))
		return discoveryengine.Result{}, false, nil
	}
	if stored.DiscoveryID != id {
		_ = p.Cache.Delete(ctx, discoveryKey(id))
		return discoveryengine.Result{}, false, nil
	}
	return stored.Result, true, nil
}

var _ discoveryengine.ResultPublisher = (*Publisher)(nil)

// UsageStoreAdapter binds db.MonthlyUsage's per-session counters to
// discoveryengine.UsageStore's shape.
type UsageStoreAdapter struct {
	Conn *db.DatabaseConnection
}

func (u *UsageStoreAdapter) DiscoveryCount(ctx context.Context, sessionID string) (int, error) {
	return u.Conn.GetDiscoveryCount(sessionID, "", time.Now())
}

func (u *UsageStoreAdapter) IncrementDiscoveryCount(ctx context.Context, sessionID string) error {
	return u.Conn.IncrementDiscoveryCount(sessionID, "", time.Now())
}

var _ discoveryengine.UsageStore = (*UsageStoreAdapter)(nil)
