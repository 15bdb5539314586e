// Package navigation implements the Navigation Extractor: given a
// fetched homepage document, it extracts in-domain links from landmark
// HTML regions in priority order. The DOM-traversal idiom (goquery
// document + CSS-selector Find/Each) is grounded on the teacher's
// pkg/web/extract.go, which uses the same library for a different
// extraction target (inline JavaScript, not anchors).
package navigation

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/accesslint/platform/pkg/urlsafety"
	"golang.org/x/net/html"
)

// Link is one extracted, resolved, canonicalized navigation link.
type Link struct {
	URL  string
	Text string
}

// landmarkSelectors lists the CSS selectors to search, in priority
// order. An element matched by an earlier selector is not revisited
// for a later one (SPEC_FULL.md §9(a)).
var landmarkSelectors = []string{
	"nav",
	`[role="navigation"]`,
	"header nav",
	".nav",
	".menu",
	"footer nav",
}

// Extract parses html and returns the in-domain links found within
// landmark regions, resolved against homepage, canonicalized,
// fragment-stripped, and deduplicated preserving first occurrence.
func Extract(html []byte, homepage string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, err
	}

	homepageURL, err := url.Parse(homepage)
	if err != nil {
		return nil, err
	}

	visited := make(map[*html.Node]struct{})
	seenURLs := make(map[string]struct{})
	var links []Link

	for _, selector := range landmarkSelectors {
		doc.Find(selector).Each(func(_ int, region *goquery.Selection) {
			region.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				node := a.Get(0)
				if _, already := visited[node]; already {
					return
				}
				visited[node] = struct{}{}

				href, exists := a.Attr("href")
				if !exists {
					return
				}
				href = strings.TrimSpace(href)
				if href == "" {
					return
				}

				resolved, err := resolveHref(homepageURL, href)
				if err != nil {
					return
				}

				if !urlsafety.IsSameDomain(resolved, homepage) {
					logIfCrossSubdomain(hostOf(resolved), homepageURL.Hostname())
					return
				}

				canonical := urlsafety.Canonicalize(resolved)
				if _, dup := seenURLs[canonical]; dup {
					return
				}
				seenURLs[canonical] = struct{}{}

				links = append(links, Link{
					URL:  canonical,
					Text: collapseWhitespace(a.Text()),
				})
			})
		})
	}

	return links, nil
}

// resolveHref resolves href against base and strips its fragment.
func resolveHref(base *url.URL, href string) (string, error) {
	rel, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	resolved := base.ResolveReference(rel)
	resolved.Fragment = ""
	return resolved.String(), nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
