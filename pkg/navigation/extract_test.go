package navigation

import "testing"

func TestExtractLandmarkPriority(t *testing.T) {
	// "nav" matches every <nav> element in the document, including the
	// ones nested under header/footer, so links inside them surface in
	// document order during the first (highest-priority) selector pass.
	// The later ".menu" pass then contributes only its genuinely new
	// link; its duplicate of /products is dropped by URL dedup.
	html := `
	<html><body>
		<nav><a href="/products">Products</a></nav>
		<div class="menu"><a href="/products">Products dup</a><a href="/menu-only">Menu only</a></div>
		<header><nav><a href="/header-nav">Header nav</a></nav></header>
		<footer><nav><a href="/footer-nav">Footer nav</a></nav></footer>
	</body></html>`

	links, err := Extract([]byte(html), "https://example.com")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	want := []string{
		"https://example.com/products",
		"https://example.com/header-nav",
		"https://example.com/footer-nav",
		"https://example.com/menu-only",
	}
	if len(links) != len(want) {
		t.Fatalf("got %d links, want %d: %+v", len(links), len(want), links)
	}
	for i, w := range want {
		if links[i].URL != w {
			t.Errorf("link[%d] = %q, want %q", i, links[i].URL, w)
		}
	}
}

func TestExtractSkipsCrossDomain(t *testing.T) {
	html := `<nav><a href="https://evil.com/phish">Phish</a><a href="/ok">OK</a></nav>`
	links, err := Extract([]byte(html), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 || links[0].URL != "https://example.com/ok" {
		t.Fatalf("expected only same-domain link, got %+v", links)
	}
}

func TestExtractSkipsEmptyHref(t *testing.T) {
	html := `<nav><a href="">Empty</a><a>Missing</a><a href="/real">Real</a></nav>`
	links, err := Extract([]byte(html), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 || links[0].URL != "https://example.com/real" {
		t.Fatalf("expected only the real link, got %+v", links)
	}
}

func TestExtractCollapsesWhitespaceAndStripsFragment(t *testing.T) {
	html := `<nav><a href="/about#team">  About   Us  </a></nav>`
	links, err := Extract([]byte(html), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if links[0].URL != "https://example.com/about" {
		t.Errorf("URL = %q, want fragment stripped", links[0].URL)
	}
	if links[0].Text != "About Us" {
		t.Errorf("Text = %q, want collapsed whitespace", links[0].Text)
	}
}

func TestExtractDeduplicatesPreservingFirstOccurrence(t *testing.T) {
	html := `<nav><a href="/a">First</a><a href="/a/">Second</a><a href="/a#x">Third</a></nav>`
	links, err := Extract([]byte(html), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 deduplicated link, got %d: %+v", len(links), links)
	}
	if links[0].Text != "First" {
		t.Errorf("expected first-occurrence text kept, got %q", links[0].Text)
	}
}
