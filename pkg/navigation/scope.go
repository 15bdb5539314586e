package navigation

import (
	"github.com/jpillora/go-tld"
	"github.com/rs/zerolog/log"
)

// registrableDomain returns the eTLD+1 (e.g. "example.com" for
// "www.example.com" or "m.example.com") using the public-suffix-aware
// parser, or "" if host does not parse as a domain. Grounded on
// pkg/scope/scope.go's use of jpillora/go-tld for scope matching.
func registrableDomain(host string) string {
	parsed, err := tld.Parse("https://" + host)
	if err != nil || parsed.Domain == "" || parsed.TLD == "" {
		return ""
	}
	return parsed.Domain + "." + parsed.TLD
}

// logIfCrossSubdomain records, at debug level, links that share the
// homepage's registrable domain but live on a different subdomain.
// urlsafety.IsSameDomain already rejects them (the spec's same-domain
// rule is host equality after www-stripping, not eTLD+1 equality) —
// this only gives an operator visibility into near-miss links.
func logIfCrossSubdomain(candidateHost, homepageHost string) {
	if candidateHost == homepageHost {
		return
	}
	cd := registrableDomain(candidateHost)
	hd := registrableDomain(homepageHost)
	if cd != "" && cd == hd {
		log.Debug().
			Str("candidate_host", candidateHost).
			Str("homepage_host", homepageHost).
			Str("registrable_domain", cd).
			Msg("navigation link shares registrable domain but different subdomain, excluded")
	}
}
