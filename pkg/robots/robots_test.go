package robots

import "testing"

func TestParseScenario(t *testing.T) {
	text := "User-agent: *\nDisallow: /admin/\nCrawl-delay: 1\nSitemap: https://example.com/sitemap.xml"

	policy := Parse(text, "any-agent")

	if len(policy.DisallowedPaths) != 1 || policy.DisallowedPaths[0] != "/admin/" {
		t.Fatalf("DisallowedPaths = %v, want [/admin/]", policy.DisallowedPaths)
	}
	if policy.CrawlDelaySeconds == nil || *policy.CrawlDelaySeconds != 1 {
		t.Fatalf("CrawlDelaySeconds = %v, want 1", policy.CrawlDelaySeconds)
	}
	if len(policy.SitemapURLs) != 1 || policy.SitemapURLs[0] != "https://example.com/sitemap.xml" {
		t.Fatalf("SitemapURLs = %v, want [https://example.com/sitemap.xml]", policy.SitemapURLs)
	}

	if !IsAllowed("/about", policy) {
		t.Error("/about should be allowed")
	}
	if IsAllowed("/admin/users", policy) {
		t.Error("/admin/users should be disallowed")
	}
}

func TestParseUserAgentOverridesWildcard(t *testing.T) {
	text := "User-agent: *\nDisallow: /private/\n\nUser-agent: a11ybot\nDisallow: /only-for-a11ybot/\n"

	policy := Parse(text, "a11ybot")
	if len(policy.DisallowedPaths) != 1 || policy.DisallowedPaths[0] != "/only-for-a11ybot/" {
		t.Fatalf("expected UA-specific group to override wildcard, got %v", policy.DisallowedPaths)
	}

	wildcardPolicy := Parse(text, "othercrawler")
	if len(wildcardPolicy.DisallowedPaths) != 1 || wildcardPolicy.DisallowedPaths[0] != "/private/" {
		t.Fatalf("expected wildcard group for unmatched UA, got %v", wildcardPolicy.DisallowedPaths)
	}
}

func TestParseIgnoresComments(t *testing.T) {
	text := "# this is a comment\nUser-agent: *\nDisallow: /x/ # trailing comment\n"
	policy := Parse(text, "bot")
	if len(policy.DisallowedPaths) != 1 || policy.DisallowedPaths[0] != "/x/" {
		t.Fatalf("DisallowedPaths = %v, want [/x/] with comment stripped", policy.DisallowedPaths)
	}
}

func TestParseDeduplicatesDisallow(t *testing.T) {
	text := "User-agent: *\nDisallow: /dup/\nDisallow: /dup/\nDisallow: /unique/\n"
	policy := Parse(text, "bot")
	want := []string{"/dup/", "/unique/"}
	if len(policy.DisallowedPaths) != len(want) {
		t.Fatalf("DisallowedPaths = %v, want %v", policy.DisallowedPaths, want)
	}
	for i, w := range want {
		if policy.DisallowedPaths[i] != w {
			t.Errorf("DisallowedPaths[%d] = %q, want %q", i, policy.DisallowedPaths[i], w)
		}
	}
}

func TestParseDropsInvalidSitemapURLs(t *testing.T) {
	text := "User-agent: *\nSitemap: not-a-url\nSitemap: https://example.com/sitemap.xml\n"
	policy := Parse(text, "bot")
	if len(policy.SitemapURLs) != 1 || policy.SitemapURLs[0] != "https://example.com/sitemap.xml" {
		t.Fatalf("SitemapURLs = %v, want only the valid one", policy.SitemapURLs)
	}
}

func TestIsAllowedPrependsSlash(t *testing.T) {
	policy := Parse("User-agent: *\nDisallow: /admin/\n", "bot")
	if IsAllowed("about", policy) == false {
		t.Error("'about' without leading slash should still be evaluated as /about and be allowed")
	}
}

func TestRoundTrip(t *testing.T) {
	texts := []string{
		"User-agent: *\nDisallow: /admin/\nCrawl-delay: 1\nSitemap: https://example.com/sitemap.xml\n",
		"User-agent: a11ybot\nDisallow: /only-for-a11ybot/\nDisallow: /also/\n",
		"User-agent: *\n",
	}

	for _, text := range texts {
		original := Parse(text, "a11ybot")
		reparsed := Parse(Serialize(original), "a11ybot")

		if len(original.DisallowedPaths) != len(reparsed.DisallowedPaths) {
			t.Fatalf("round trip of %q: DisallowedPaths = %v, want %v", text, reparsed.DisallowedPaths, original.DisallowedPaths)
		}
		for i := range original.DisallowedPaths {
			if original.DisallowedPaths[i] != reparsed.DisallowedPaths[i] {
				t.Errorf("round trip of %q: DisallowedPaths[%d] = %q, want %q", text, i, reparsed.DisallowedPaths[i], original.DisallowedPaths[i])
			}
		}
	}
}
