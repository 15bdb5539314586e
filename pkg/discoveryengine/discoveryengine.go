// Package discoveryengine drives the Discovery Engine's phased state
// machine (SITEMAP -> NAVIGATION -> CRAWL), grounded on the teacher's
// pkg/crawl/crawler.go fan-out shape: a bounded-concurrency pool, a
// visited-set standing in for crawler.go's sync.Map of pages, and a
// cancellation-aware run loop. Named discoveryengine to avoid
// collision with the teacher's own unrelated pkg/discovery
// (endpoint-fingerprinting, a dropped feature; see DESIGN.md).
package discoveryengine

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/accesslint/platform/pkg/external"
	"github.com/accesslint/platform/pkg/navigation"
	"github.com/accesslint/platform/pkg/robots"
	"github.com/accesslint/platform/pkg/sitemap"
	"github.com/accesslint/platform/pkg/taxonomy"
	"github.com/accesslint/platform/pkg/urlsafety"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// Phase mirrors Discovery.phase.
type Phase string

const (
	PhaseSitemap    Phase = "SITEMAP"
	PhaseNavigation Phase = "NAVIGATION"
	PhaseCrawl      Phase = "CRAWL"
	PhaseNone       Phase = "NONE"
)

// Status mirrors Discovery.status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

const (
	MaxConcurrentFetches = 10
	MinFetchIntervalMs   = 100
	MaxFetchBytes        = 5 * 1024 * 1024
)

// PageSource records how a page entered the discovery.
type PageSource string

const (
	SourceSitemap    PageSource = "SITEMAP"
	SourceNavigation PageSource = "NAVIGATION"
	SourceCrawled    PageSource = "CRAWLED"
	SourceManual     PageSource = "MANUAL"
)

// Page is one discovered URL.
type Page struct {
	URL    string
	Depth  int
	Source PageSource
}

// Options bound a single discovery run.
type Options struct {
	MaxPages int
	MaxDepth int
}

// Result is the outcome of a completed or partially-completed run.
type Result struct {
	Status        Status
	Phase         Phase
	Pages         []Page
	PartialResults bool
	ErrorCode     taxonomy.Code
	ErrorMessage  string
}

// UsageStore is the narrow admission-check surface Run needs.
type UsageStore interface {
	DiscoveryCount(ctx context.Context, sessionID string) (int, error)
	IncrementDiscoveryCount(ctx context.Context, sessionID string) error
}

// ResultPublisher writes a completed run's snapshot to the result
// cache, per §4.5's Publication contract.
type ResultPublisher interface {
	PublishDiscovery(ctx context.Context, discoveryID string, result Result, ttl time.Duration) error
}

const defaultMonthlyDiscoveryLimit = 3

// Engine runs discoveries against one HTMLFetcher collaborator.
type Engine struct {
	Fetcher   external.HTMLFetcher
	Usage     UsageStore
	Publisher ResultPublisher
}

// rateLimiter enforces a minimum interval between requests to the
// same origin, the same shape as the teacher's per-scan rate limiter
// (pkg/scan/ratelimit) but instantiated per discovery run.
type rateLimiter struct {
	mu          sync.Mutex
	nextAllowed map[string]time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{nextAllowed: make(map[string]time.Time)}
}

func (r *rateLimiter) wait(ctx context.Context, origin string, interval time.Duration) {
	r.mu.Lock()
	next, ok := r.nextAllowed[origin]
	now := time.Now()
	var delay time.Duration
	if ok && next.After(now) {
		delay = next.Sub(now)
	}
	r.nextAllowed[origin] = now.Add(delay).Add(interval)
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
}

// Run executes the full PENDING->...->terminal state machine for one
// discovery against homepage, honoring admission control, the phase
// sequence, concurrency bound, per-origin rate limiting, and
// cancellation.
func (e *Engine) Run(ctx context.Context, sessionID, discoveryID, homepage string, opts Options) Result {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 3
	}

	if e.Usage != nil {
		count, err := e.Usage.DiscoveryCount(ctx, sessionID)
		if err == nil && count >= defaultMonthlyDiscoveryLimit {
			return Result{
				Status:       StatusFailed,
				Phase:        PhaseNone,
				ErrorCode:    taxonomy.CodeUsageLimitExceeded,
				ErrorMessage: "monthly discovery limit exceeded",
			}
		}
	}

	visited := make(map[string]*Page)
	var order []string
	var mu sync.Mutex
	add := func(p Page) bool {
		mu.Lock()
		defer mu.Unlock()
		canon := urlsafety.Canonicalize(p.URL)
		if _, seen := visited[canon]; seen {
			return false
		}
		if len(visited) >= opts.MaxPages {
			return false
		}
		p.URL = canon
		visited[canon] = &p
		order = append(order, canon)
		return true
	}

	partial := false
	limiter := newRateLimiter()

	// SITEMAP phase.
	if err := ctx.Err(); err != nil {
		return cancelledResult(visited, order)
	}
	robotsPolicy, sitemapURLs, err := e.runSitemapPhase(ctx, homepage, limiter)
	if err != nil {
		log.Warn().Err(err).Str("homepage", homepage).Msg("discoveryengine: sitemap phase failed, continuing")
		partial = true
	}
	for _, u := range sitemapURLs {
		if !urlsafety.IsSameDomain(u, homepage) {
			continue
		}
		add(Page{URL: u, Depth: 0, Source: SourceSitemap})
	}

	// NAVIGATION phase: homepage must be reachable or the run fails.
	if err := ctx.Err(); err != nil {
		return cancelledResult(visited, order)
	}
	homeBody, status, err := e.fetchValidated(ctx, homepage, limiter, homepage)
	if err != nil || status >= 400 {
		return Result{
			Status:       StatusFailed,
			Phase:        PhaseNavigation,
			ErrorCode:    taxonomy.CodeURLUnreachable,
			ErrorMessage: "homepage unreachable",
		}
	}
	add(Page{URL: homepage, Depth: 0, Source: SourceNavigation})
	navLinks, navErr := navigation.Extract(homeBody, homepage)
	if navErr != nil {
		partial = true
	}
	for _, l := range navLinks {
		add(Page{URL: l.URL, Depth: 1, Source: SourceNavigation})
	}

	// CRAWL phase: bounded BFS over everything discovered so far.
	e.runCrawlPhase(ctx, homepage, opts, robotsPolicy, limiter, visited, &order, &mu)

	mu.Lock()
	pages := make([]Page, 0, len(order))
	for _, u := range order {
		pages = append(pages, *visited[u])
	}
	mu.Unlock()

	status2 := StatusCompleted
	if ctx.Err() != nil {
		status2 = StatusCancelled
	}

	result := Result{
		Status:         status2,
		Phase:          PhaseCrawl,
		Pages:          pages,
		PartialResults: partial,
	}

	if e.Usage != nil {
		_ = e.Usage.IncrementDiscoveryCount(ctx, sessionID)
	}
	if status2 == StatusCompleted && e.Publisher != nil {
		_ = e.Publisher.PublishDiscovery(ctx, discoveryID, result, 24*time.Hour)
	}
	return result
}

func cancelledResult(visited map[string]*Page, order []string) Result {
	pages := make([]Page, 0, len(order))
	for _, u := range order {
		pages = append(pages, *visited[u])
	}
	return Result{Status: StatusCancelled, Phase: PhaseSitemap, Pages: pages}
}

func (e *Engine) runSitemapPhase(ctx context.Context, homepage string, limiter *rateLimiter) (*robots.Policy, []string, error) {
	robotsBody, _, err := e.fetchValidated(ctx, joinPath(homepage, "/robots.txt"), limiter, homepage)
	var policy *robots.Policy
	if err == nil {
		policy = robots.Parse(string(robotsBody), "accesslint")
	} else {
		policy = robots.Parse("", "accesslint")
	}

	sitemapLocs := policy.SitemapURLs
	if len(sitemapLocs) == 0 {
		sitemapLocs = []string{joinPath(homepage, "/sitemap.xml")}
	}

	var all []string
	fetcher := &sitemapFetcherAdapter{engine: e, ctx: ctx, limiter: limiter, homepage: homepage}
	for _, loc := range sitemapLocs {
		body, _, ferr := e.fetchValidated(ctx, loc, limiter, homepage)
		if ferr != nil {
			continue
		}
		entries := sitemap.Resolve(fetcher, body, homepage, 0)
		for _, en := range entries {
			all = append(all, en.URL)
		}
	}
	return policy, all, nil
}

type sitemapFetcherAdapter struct {
	engine   *Engine
	ctx      context.Context
	limiter  *rateLimiter
	homepage string
}

func (a *sitemapFetcherAdapter) Fetch(url string, maxBytes int64) ([]byte, error) {
	body, _, err := a.engine.fetchValidated(a.ctx, url, a.limiter, a.homepage)
	return body, err
}

func (e *Engine) runCrawlPhase(ctx context.Context, homepage string, opts Options, policy *robots.Policy, limiter *rateLimiter, visited map[string]*Page, order *[]string, mu *sync.Mutex) {
	p := pool.New().WithMaxGoroutines(MaxConcurrentFetches)

	mu.Lock()
	frontier := make([]Page, 0, len(*order))
	for _, u := range *order {
		frontier = append(frontier, *visited[u])
	}
	mu.Unlock()

	processed := make(map[string]struct{})
	var processedMu sync.Mutex

	for len(frontier) > 0 {
		if ctx.Err() != nil {
			break
		}
		current := frontier
		frontier = nil

		for _, page := range current {
			page := page
			if page.Depth >= opts.MaxDepth {
				continue
			}
			processedMu.Lock()
			if _, ok := processed[page.URL]; ok {
				processedMu.Unlock()
				continue
			}
			processed[page.URL] = struct{}{}
			processedMu.Unlock()

			p.Go(func() {
				if ctx.Err() != nil {
					return
				}
				body, status, err := e.fetchValidated(ctx, page.URL, limiter, homepage)
				if err != nil || status >= 400 {
					log.Debug().Err(err).Str("url", page.URL).Msg("discoveryengine: crawl fetch failed, dropping")
					return
				}
				if !robots.IsAllowed(pathOf(page.URL), policy) {
					return
				}
				links, err := navigation.Extract(body, homepage)
				if err != nil {
					return
				}
				mu.Lock()
				for _, l := range links {
					canon := urlsafety.Canonicalize(l.URL)
					if _, seen := visited[canon]; seen {
						continue
					}
					if len(visited) >= opts.MaxPages {
						continue
					}
					np := Page{URL: canon, Depth: page.Depth + 1, Source: SourceCrawled}
					visited[canon] = &np
					*order = append(*order, canon)
					frontier = append(frontier, np)
				}
				mu.Unlock()
			})
		}
		p.Wait()
	}
}

// fetchValidated re-validates url via pkg/urlsafety immediately before
// fetch (per §4.5 Safety) and rate-limits per-origin.
func (e *Engine) fetchValidated(ctx context.Context, rawURL string, limiter *rateLimiter, homepage string) ([]byte, int, error) {
	if verr := urlsafety.Validate(rawURL, homepage); verr != nil {
		return nil, 0, verr
	}
	origin := originOf(rawURL)
	limiter.wait(ctx, origin, MinFetchIntervalMs*time.Millisecond)
	if ctx.Err() != nil {
		return nil, 0, ctx.Err()
	}
	body, status, err := e.Fetcher.Fetch(ctx, rawURL, MaxFetchBytes)
	return body, status, err
}

func joinPath(homepage, p string) string {
	u, err := url.Parse(homepage)
	if err != nil {
		return homepage + p
	}
	ref, err := url.Parse(p)
	if err != nil {
		return homepage + p
	}
	return u.ResolveReference(ref).String()
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}
