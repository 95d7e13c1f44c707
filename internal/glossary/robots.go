package glossary

import (
	"bufio"
	"context"
	"net/url"
	"strings"
	"sync"
)

// robotsCache fetches and caches robots.txt per host, applying only the
// "User-agent: *" group's Disallow directives. The parser is small and
// deliberately conservative, treating any fetch failure as "allowed"
// rather than blocking every lookup when robots.txt itself is
// unreachable.
type robotsCache struct {
	mu    sync.Mutex
	rules map[string][]string // host -> disallowed path prefixes
	fetch map[string]bool     // host -> already attempted
}

func newRobotsCache() *robotsCache {
	return &robotsCache{
		rules: make(map[string][]string),
		fetch: make(map[string]bool),
	}
}

// Allowed reports whether pageURL may be fetched under host's robots.txt,
// fetching and caching the rules on first use for host.
func (r *robotsCache) Allowed(ctx context.Context, f Fetcher, host, pageURL string) bool {
	r.mu.Lock()
	if !r.fetch[host] {
		r.mu.Unlock()
		r.load(ctx, f, host)
		r.mu.Lock()
	}
	disallowed := r.rules[host]
	r.mu.Unlock()

	u, err := url.Parse(pageURL)
	if err != nil {
		return true
	}
	for _, prefix := range disallowed {
		if prefix != "" && strings.HasPrefix(u.Path, prefix) {
			return false
		}
	}
	return true
}

func (r *robotsCache) load(ctx context.Context, f Fetcher, host string) {
	robotsURL := "https://" + host + "/robots.txt"
	status, body, err := f.Fetch(ctx, robotsURL)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetch[host] = true
	if err != nil || status >= 400 {
		r.rules[host] = nil
		return
	}
	r.rules[host] = parseDisallowAll(body)
}

// parseDisallowAll extracts Disallow paths from every "User-agent: *"
// group of a robots.txt body; a group ends at the next User-agent line
// naming another agent.
func parseDisallowAll(body []byte) []string {
	var disallowed []string
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	inWildcardGroup := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case strings.HasPrefix(lower, "user-agent:"):
			agent := strings.TrimSpace(line[len("user-agent:"):])
			inWildcardGroup = agent == "*"
		case inWildcardGroup && strings.HasPrefix(lower, "disallow:"):
			path := strings.TrimSpace(line[len("disallow:"):])
			disallowed = append(disallowed, path)
		}
	}
	return disallowed
}
