package urlsafety

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips www", "https://www.example.com/page", "https://example.com/page"},
		{"lowercases host", "https://EXAMPLE.COM/page", "https://example.com/page"},
		{"strips trailing slash", "https://example.com/page/", "https://example.com/page"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"drops fragment", "https://example.com/page#x", "https://example.com/page"},
		{"preserves query", "https://example.com/page?a=1", "https://example.com/page?a=1"},
		{"invalid returns unchanged", "://bad", "://bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonicalize(tt.in); got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	urls := []string{
		"https://www.example.com/page/",
		"https://EXAMPLE.com/about#section",
		"http://example.com",
	}
	for _, u := range urls {
		once := Canonicalize(u)
		twice := Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize not idempotent for %q: %q != %q", u, once, twice)
		}
	}
}

func TestIsSameDomain(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "https://example.com/a", "https://example.com/b", true},
		{"www variant", "https://www.example.com/a", "https://example.com/b", true},
		{"case insensitive", "https://EXAMPLE.com/a", "https://example.com/b", true},
		{"different domain", "https://example.com", "https://evil.com", false},
		{"invalid a", "://bad", "https://example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSameDomain(tt.a, tt.b); got != tt.want {
				t.Errorf("IsSameDomain(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsSameDomainReflexive(t *testing.T) {
	urls := []string{"https://example.com/x", "https://sub.example.com", "http://a.b.c/d?e=f"}
	for _, u := range urls {
		if !IsSameDomain(u, u) {
			t.Errorf("IsSameDomain(%q, %q) should be true", u, u)
		}
	}
}

func TestIsPrivateAddress(t *testing.T) {
	privateHosts := []string{
		"10.0.0.1", "10.255.255.255",
		"172.16.0.1", "172.31.255.255",
		"192.168.0.1", "192.168.255.255",
		"127.0.0.1", "127.255.255.255",
		"169.254.0.1",
		"::1",
		"fe80::1",
	}
	for _, h := range privateHosts {
		if !IsPrivateAddress(h) {
			t.Errorf("IsPrivateAddress(%q) = false, want true", h)
		}
	}

	publicHosts := []string{"8.8.8.8", "1.1.1.1", "example.com", "not-an-ip", ""}
	for _, h := range publicHosts {
		if IsPrivateAddress(h) {
			t.Errorf("IsPrivateAddress(%q) = true, want false", h)
		}
	}
}

func TestValidate(t *testing.T) {
	homepage := "https://example.com"

	if err := Validate("https://example.com/about", homepage); err != nil {
		t.Errorf("expected valid url, got %v", err)
	}

	if err := Validate("://bad", homepage); err == nil || err.Code != "INVALID_URL" {
		t.Errorf("expected INVALID_URL, got %v", err)
	}

	if err := Validate("ftp://example.com/file", homepage); err == nil || err.Code != "UNSUPPORTED_SCHEME" {
		t.Errorf("expected UNSUPPORTED_SCHEME, got %v", err)
	}

	if err := Validate("http://127.0.0.1/admin", homepage); err == nil || err.Code != "PRIVATE_ADDRESS" {
		t.Errorf("expected PRIVATE_ADDRESS, got %v", err)
	}

	if err := Validate("https://evil.com/page", homepage); err == nil || err.Code != "DOMAIN_MISMATCH" {
		t.Errorf("expected DOMAIN_MISMATCH, got %v", err)
	}
}

func TestDeduplicate(t *testing.T) {
	in := []string{
		"https://example.com/page",
		"https://example.com/page/",
		"https://EXAMPLE.COM/page",
		"https://www.example.com/page",
		"https://example.com/page#x",
		"https://example.com/about",
		"https://example.com/about/",
	}
	got := Deduplicate(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 unique urls, got %d: %v", len(got), got)
	}
	if got[0] != "https://example.com/page" {
		t.Errorf("first entry = %q, want .../page", got[0])
	}
	if got[1] != "https://example.com/about" {
		t.Errorf("second entry = %q, want .../about", got[1])
	}
}
