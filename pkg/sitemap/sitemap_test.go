package sitemap

import "testing"

type fakeFetcher struct {
	byURL map[string][]byte
	calls []string
}

func (f *fakeFetcher) Fetch(url string, maxBytes int64) ([]byte, error) {
	f.calls = append(f.calls, url)
	return f.byURL[url], nil
}

func TestResolveURLSet(t *testing.T) {
	xml := []byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc><lastmod>2024-01-01</lastmod><priority>0.8</priority></url>
  <url><loc>https://example.com/b</loc><changefreq>daily</changefreq></url>
</urlset>`)

	entries := Resolve(nil, xml, "https://example.com", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].URL != "https://example.com/a" || entries[0].Priority == nil || *entries[0].Priority != 0.8 {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].ChangeFreq != "daily" {
		t.Errorf("entry 1 changefreq = %q, want daily", entries[1].ChangeFreq)
	}
}

func TestResolveIndexSSRFGuard(t *testing.T) {
	indexXML := []byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://evil.com/sitemap.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-products.xml</loc></sitemap>
</sitemapindex>`)

	childXML := []byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/product-1</loc></url>
</urlset>`)

	fetcher := &fakeFetcher{byURL: map[string][]byte{
		"https://example.com/sitemap-products.xml": childXML,
	}}

	entries := Resolve(fetcher, indexXML, "https://example.com", 0)

	for _, call := range fetcher.calls {
		if call == "https://evil.com/sitemap.xml" {
			t.Fatal("fetcher was called for a non-same-domain sitemap (SSRF guard violated)")
		}
	}
	if len(entries) != 1 || entries[0].URL != "https://example.com/product-1" {
		t.Fatalf("expected only the same-domain child's entry, got %+v", entries)
	}
}

func TestResolveMaxRecursionDepth(t *testing.T) {
	indexXML := []byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/next.xml</loc></sitemap>
</sitemapindex>`)

	fetcher := &fakeFetcher{byURL: map[string][]byte{
		"https://example.com/next.xml": indexXML,
	}}

	entries := Resolve(fetcher, indexXML, "https://example.com", MaxRecursionDepth+1)
	if entries != nil {
		t.Fatalf("expected nil entries beyond max recursion depth, got %+v", entries)
	}
}

func TestParsePriorityClamps(t *testing.T) {
	if got := parsePriority("1.5"); got == nil || *got != 1 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
	if got := parsePriority("-0.5"); got == nil || *got != 0 {
		t.Errorf("expected clamp to 0, got %v", got)
	}
	if got := parsePriority(""); got != nil {
		t.Errorf("expected nil for empty string, got %v", got)
	}
}
