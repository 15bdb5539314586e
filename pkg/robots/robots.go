// Package robots implements the Robots Policy component: parsing
// robots.txt text into a structured policy and answering "is path
// allowed for user-agent A?". The matching semantics are grounded on
// github.com/temoto/robotstxt's Group.Test, adopted from the retrieval
// pack's dillonlara115-cli-scanner/internal/crawler/robots.go — the
// teacher itself carries no robots.txt parser.
package robots

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

// Policy is the parsed, structured result of §4.2's parse operation.
type Policy struct {
	DisallowedPaths   []string
	CrawlDelaySeconds *int
	SitemapURLs       []string

	// matcher delegates prefix/wildcard matching to the well-tested
	// temoto/robotstxt engine for the selected group, rather than
	// reimplementing wildcard matching a second time.
	matcher *robotstxt.Group
}

type group struct {
	agents       []string
	disallow     []string
	seen         map[string]struct{}
	crawlDelay   *int
}

func newGroup() *group {
	return &group{seen: make(map[string]struct{})}
}

// Parse reads robots.txt text and builds a Policy for userAgent.
// Directive names are matched case-insensitively; "#" starts a
// comment to end of line; empty lines separate groups. Rules for
// userAgent override the wildcard ("*") group entirely; otherwise the
// wildcard group applies. Duplicate disallow paths are removed,
// preserving first occurrence. Invalid Sitemap: URLs are dropped.
func Parse(text string, userAgent string) *Policy {
	var wildcardGroup, uaGroup, current *group
	wildcardGroup = newGroup()
	var sitemaps []string

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			current = nil
			continue
		}

		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		directive := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch directive {
		case "user-agent":
			if current == nil {
				current = newGroup()
			}
			current.agents = append(current.agents, strings.ToLower(value))
			if value == "*" {
				wildcardGroup = mergeOrReplace(wildcardGroup, current)
			}
			if strings.EqualFold(value, userAgent) {
				uaGroup = mergeOrReplace(uaGroup, current)
			}
		case "disallow":
			addDisallow(current, value)
		case "crawl-delay":
			if current == nil {
				continue
			}
			if seconds, err := strconv.Atoi(value); err == nil {
				current.crawlDelay = &seconds
			}
		case "sitemap":
			if isValidSitemapURL(value) {
				sitemaps = append(sitemaps, value)
			}
		}
	}

	active := wildcardGroup
	if uaGroup != nil {
		active = uaGroup
	}

	p := &Policy{
		DisallowedPaths: active.disallow,
		CrawlDelaySeconds: active.crawlDelay,
		SitemapURLs:     sitemaps,
	}

	rd, err := robotstxt.FromBytes([]byte(text))
	if err != nil {
		log.Debug().Err(err).Msg("temoto/robotstxt could not parse robots.txt, falling back to prefix matching only")
	} else {
		p.matcher = rd.FindGroup(userAgent)
	}

	return p
}

// mergeOrReplace keeps accumulating directives into the same logical
// group across multiple "User-agent:" lines that share one rule block
// (per the robots.txt convention of repeated User-agent lines before a
// shared set of Disallow lines).
func mergeOrReplace(existing, current *group) *group {
	if existing == nil {
		return current
	}
	if existing == current {
		return existing
	}
	return current
}

func addDisallow(current *group, value string) {
	if current == nil || value == "" {
		return
	}
	if _, dup := current.seen[value]; dup {
		return
	}
	current.seen[value] = struct{}{}
	current.disallow = append(current.disallow, value)
}

func isValidSitemapURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

// IsAllowed reports whether path is permitted under policy. A leading
// "/" is prepended if missing. Empty and "/" disallow entries are
// ignored. A disallow string matches by literal prefix, with "*"
// treated as "any sequence" — delegated to temoto/robotstxt's matcher
// when available, since it already implements this wildcard
// semantics; otherwise, or when DisallowedPaths carries a "/" entry
// (which the matcher would apply to every path), a simple prefix check
// over DisallowedPaths is used as a fallback.
func IsAllowed(path string, policy *Policy) bool {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	useMatcher := policy.matcher != nil
	for _, d := range policy.DisallowedPaths {
		if d == "/" {
			useMatcher = false
		}
	}
	if useMatcher {
		return policy.matcher.Test(path)
	}

	for _, d := range policy.DisallowedPaths {
		if d == "" || d == "/" {
			continue
		}
		if matchesWildcardPrefix(path, d) {
			return false
		}
	}
	return true
}

// Serialize renders policy back to robots.txt text as a single
// wildcard user-agent group. Parsing the result under any user-agent
// reconstructs the same DisallowedPaths/CrawlDelaySeconds/SitemapURLs,
// since Policy itself only retains the one active group a prior Parse
// resolved to, not every original per-agent group.
func Serialize(p *Policy) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	for _, d := range p.DisallowedPaths {
		b.WriteString("Disallow: ")
		b.WriteString(d)
		b.WriteString("\n")
	}
	if p.CrawlDelaySeconds != nil {
		b.WriteString("Crawl-delay: ")
		b.WriteString(strconv.Itoa(*p.CrawlDelaySeconds))
		b.WriteString("\n")
	}
	for _, s := range p.SitemapURLs {
		b.WriteString("Sitemap: ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return b.String()
}

func matchesWildcardPrefix(path, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return strings.HasPrefix(path, pattern)
	}
	segments := strings.Split(pattern, "*")
	rest := path
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		idx := strings.Index(rest, seg)
		if idx == -1 || (i == 0 && idx != 0) {
			return false
		}
		rest = rest[idx+len(seg):]
	}
	return true
}
