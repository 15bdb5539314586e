// Package urlsafety implements URL canonicalization and the SSRF safety
// filter shared by every fetch the discovery engine makes.
package urlsafety

import (
	"net"
	"net/url"
	"strings"

	"github.com/accesslint/platform/pkg/taxonomy"
	"github.com/jpillora/go-tld"
)

// Canonicalize lowercases the host, strips a leading "www.", drops the
// fragment, and strips a trailing "/" except when the path is exactly
// "/". The query string is preserved. On parse failure the original
// string is returned unchanged, per spec.
func Canonicalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(u.Host, "www.")
	u.Fragment = ""

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String()
}

// IsSameDomain reports whether a and b are the same host in "www" scope
// mode, the teacher's pkg/scope.Scope.IsInScope semantics for
// scope="www": a bare host matches either with or without a "www."
// prefix on the other side. Uses go-tld's Hostname parsing rather than
// net/url so the comparison shares the teacher's own domain-scoping
// parser. Returns false if either URL fails to parse.
func IsSameDomain(a, b string) bool {
	ua, err := tld.Parse(a)
	if err != nil {
		return false
	}
	ub, err := tld.Parse(b)
	if err != nil {
		return false
	}

	ha := strings.ToLower(ua.Hostname())
	hb := strings.ToLower(ub.Hostname())

	return ha == hb || "www."+ha == hb || ha == "www."+hb
}

// privateCIDRs enumerates the address ranges isPrivateAddress treats as
// private, per §4.1/§8 of the specification.
var privateCIDRs = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"::1/128",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivateAddress reports whether host is a literal IP address inside
// one of the private/loopback/link-local ranges. Hostnames that fail
// to parse as literal IPs return false — DNS resolution is not
// performed here.
func IsPrivateAddress(host string) bool {
	ip := net.ParseIP(strings.TrimSpace(strings.ToLower(host)))
	if ip == nil {
		return false
	}
	for _, n := range privateCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Validate checks u against the homepage it was discovered under,
// returning a classified *taxonomy.Error on any violation.
func Validate(rawURL, homepage string) *taxonomy.Error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return taxonomy.Wrap(taxonomy.CodeInvalidURL, "could not parse url", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return taxonomy.New(taxonomy.CodeUnsupportedScheme, "scheme must be http or https")
	}

	if IsPrivateAddress(u.Hostname()) {
		return taxonomy.New(taxonomy.CodePrivateAddress, "host resolves to a private address")
	}

	if !IsSameDomain(rawURL, homepage) {
		return taxonomy.New(taxonomy.CodeDomainMismatch, "url is not same-domain as homepage")
	}

	return nil
}

// Deduplicate canonicalizes each URL and returns the first occurrence
// of each distinct canonical form, preserving input order.
func Deduplicate(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		c := Canonicalize(u)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
