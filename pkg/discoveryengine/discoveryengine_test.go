package discoveryengine

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, maxBytes int64) ([]byte, int, error) {
	body, ok := f.pages[url]
	if !ok {
		return nil, 404, fmt.Errorf("not found: %s", url)
	}
	return []byte(body), 200, nil
}

type fixedUsage struct {
	count int
}

func (u *fixedUsage) DiscoveryCount(ctx context.Context, sessionID string) (int, error) {
	return u.count, nil
}

func (u *fixedUsage) IncrementDiscoveryCount(ctx context.Context, sessionID string) error {
	u.count++
	return nil
}

func newTestEngine(pages map[string]string, usage *fixedUsage) *Engine {
	return &Engine{
		Fetcher: &fakeFetcher{pages: pages},
		Usage:   usage,
	}
}

func TestRunAdmissionDeniedAtUsageLimit(t *testing.T) {
	usage := &fixedUsage{count: 3}
	engine := newTestEngine(map[string]string{}, usage)

	result := engine.Run(context.Background(), "session-1", "d1", "https://example.com", Options{})

	if result.Status != StatusFailed {
		t.Fatalf("Status = %v, want FAILED", result.Status)
	}
	if result.ErrorCode != "USAGE_LIMIT_EXCEEDED" {
		t.Fatalf("ErrorCode = %v, want USAGE_LIMIT_EXCEEDED", result.ErrorCode)
	}
}

func TestRunFailsWhenHomepageUnreachable(t *testing.T) {
	usage := &fixedUsage{count: 0}
	engine := newTestEngine(map[string]string{}, usage)

	result := engine.Run(context.Background(), "session-1", "d1", "https://example.com", Options{})

	if result.Status != StatusFailed {
		t.Fatalf("Status = %v, want FAILED", result.Status)
	}
}

func TestRunRespectsMaxPagesAndSameDomain(t *testing.T) {
	usage := &fixedUsage{count: 0}
	pages := map[string]string{
		"https://example.com":          `<nav><a href="/a">A</a><a href="https://evil.com/x">Evil</a></nav>`,
		"https://example.com/a":        `<nav><a href="/b">B</a></nav>`,
		"https://example.com/b":        `<nav><a href="/c">C</a></nav>`,
		"https://example.com/c":        `<nav><a href="/d">D</a></nav>`,
		"https://example.com/robots.txt": "User-agent: *\n",
	}
	engine := newTestEngine(pages, usage)

	result := engine.Run(context.Background(), "session-1", "d1", "https://example.com", Options{MaxPages: 3, MaxDepth: 3})

	if len(result.Pages) > 3 {
		t.Fatalf("got %d pages, want <= 3", len(result.Pages))
	}
	seen := make(map[string]bool)
	for _, p := range result.Pages {
		if seen[p.URL] {
			t.Fatalf("duplicate page %q", p.URL)
		}
		seen[p.URL] = true
		if !strings.HasPrefix(p.URL, "https://example.com") {
			t.Fatalf("page %q is not same-domain", p.URL)
		}
	}
	if usage.count != 1 {
		t.Fatalf("usage count = %d, want incremented once", usage.count)
	}
}

func TestRunIsCancellable(t *testing.T) {
	usage := &fixedUsage{count: 0}
	pages := map[string]string{
		"https://example.com": `<nav><a href="/a">A</a></nav>`,
	}
	engine := newTestEngine(pages, usage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Run(ctx, "session-1", "d1", "https://example.com", Options{})
	if result.Status != StatusCancelled && result.Status != StatusFailed {
		t.Fatalf("Status = %v, want CANCELLED or FAILED on a pre-cancelled context", result.Status)
	}
}
