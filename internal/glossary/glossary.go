// Package glossary resolves domain terms against a ranked list of
// external sources, each scraped with CSS selectors tried in priority
// order, behind a per-host token bucket and robots.txt compliance,
// backed by the shared two-tier cache and a built-in static fallback.
// DefineTerm never returns an error: a failure is always encoded in the
// returned Record, so callers handle exactly one shape.
package glossary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
	"github.com/krump3t/astra-graphrag/internal/cache"
	"github.com/krump3t/astra-graphrag/internal/resilience"
	"github.com/krump3t/astra-graphrag/log"
)

const userAgent = "GraphRAG-Glossary/1.0"

// Record is the glossary definition record returned to the orchestrator
// and, ultimately, to the caller.
type Record struct {
	Term         string    `json:"term"`
	Definition   string    `json:"definition"`
	Source       string    `json:"source"`
	SourceURL    string    `json:"source_url"`
	Timestamp    time.Time `json:"timestamp"`
	Cached       bool      `json:"cached"`
	Fallback     bool      `json:"fallback,omitempty"`
	Error        string    `json:"error,omitempty"`
	SourcesTried []string  `json:"sources_tried,omitempty"`
}

const (
	maxDefinitionLen = 2000
	maxTermLen       = 100
	minHealthyLen    = 10
)

// SourceConfig is one entry in the ranked source list: a URL template
// (with a single %s for the normalized term) and the CSS selectors tried,
// in order, against the fetched page.
type SourceConfig struct {
	Name        string
	URLTemplate string
	Selectors   []string
}

// DefaultSources returns the default source priority (slb, spe, aapg):
// industry glossaries for the subsurface well-log domain.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:        "slb",
			URLTemplate: "https://glossary.slb.com/en/terms/%s",
			Selectors:   []string{".glossary-term-description", "article .content", "main p"},
		},
		{
			Name:        "spe",
			URLTemplate: "https://petrowiki.spe.org/%s",
			Selectors:   []string{"#mw-content-text p", ".mw-parser-output p"},
		},
		{
			Name:        "aapg",
			URLTemplate: "https://wiki.aapg.org/%s",
			Selectors:   []string{"#mw-content-text p"},
		},
	}
}

// DefaultStaticFallback seeds a small built-in dictionary so common
// domain terms resolve even with every remote source unreachable.
func DefaultStaticFallback() map[string]string {
	return map[string]string{
		"porosity":     "The fraction of a rock's bulk volume that is pore space, available to store fluids.",
		"permeability": "A measure of a rock's ability to transmit fluids through its interconnected pore network.",
		"lithology":    "The physical character of a rock, typically described from cuttings, core, or log response.",
		"mnemonic":     "The short code assigned to a logging curve identifying the measurement it represents (e.g. GR, RHOB).",
	}
}

// Fetcher performs the actual HTTP GET for a source page and for
// robots.txt. httpFetcher is the production implementation; tests supply
// a stub.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (status int, body []byte, err error)
}

type httpFetcher struct {
	client *http.Client
}

func newHTTPFetcher(connectTO, readTO, totalTO time.Duration) *httpFetcher {
	return &httpFetcher{
		client: &http.Client{
			Timeout: totalTO,
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: connectTO}).DialContext,
				ResponseHeaderTimeout: readTO,
			},
		},
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, &apierrors.TransientError{Op: "glossary_fetch", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if apierrors.TransientStatusCode(resp.StatusCode) {
		return resp.StatusCode, body, &apierrors.TransientError{Op: "glossary_fetch", StatusCode: resp.StatusCode, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, body, &apierrors.UpstreamFailure{Op: "glossary_fetch", Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	return resp.StatusCode, body, nil
}

// Service is the glossary subsystem: source list, cache, rate limiter,
// robots compliance, and static fallback composed behind DefineTerm.
type Service struct {
	sources        []SourceConfig
	cache          *cache.Cache
	limiter        *resilience.HostLimiter
	fetcher        Fetcher
	robots         *robotsCache
	retryPolicy    resilience.RetryPolicy
	ttl            time.Duration
	maxWait        time.Duration
	staticFallback map[string]string
	sanitizer      *bluemonday.Policy
	logger         log.Logger
}

// Option configures a Service at construction.
type Option func(*Service)

// WithLogger overrides the default no-op logger.
func WithLogger(l log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithStaticFallback overrides the built-in static dictionary.
func WithStaticFallback(m map[string]string) Option {
	return func(s *Service) { s.staticFallback = m }
}

// WithFetcher overrides the HTTP fetcher, used by tests to stub network
// access.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithRetryPolicy overrides the default 1s/2s/4s backoff, used by tests
// to keep failure paths fast.
func WithRetryPolicy(p resilience.RetryPolicy) Option {
	return func(s *Service) { s.retryPolicy = p }
}

// WithRateLimit overrides the default per-host refill rate of one
// request per second and the maximum time a caller blocks waiting for a
// token.
func WithRateLimit(perSecond float64, maxWait time.Duration) Option {
	return func(s *Service) {
		s.limiter = resilience.NewHostLimiter(perSecond)
		s.maxWait = maxWait
	}
}

// New builds a Service over sources, sharing c for caching and limiting
// each host to one request per second by default.
func New(sources []SourceConfig, c *cache.Cache, connectTO, readTO, totalTO time.Duration, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		sources:        sources,
		cache:          c,
		limiter:        resilience.NewHostLimiter(1.0),
		fetcher:        newHTTPFetcher(connectTO, readTO, totalTO),
		robots:         newRobotsCache(),
		retryPolicy:    resilience.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, BackoffFactor: 2.0},
		ttl:            ttl,
		maxWait:        totalTO,
		staticFallback: DefaultStaticFallback(),
		sanitizer:      bluemonday.StrictPolicy(),
		logger:         &log.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var punctuation = regexp.MustCompile(`[^\w\s-]`)

func normalize(term string) string {
	lower := strings.ToLower(strings.TrimSpace(term))
	lower = punctuation.ReplaceAllString(lower, "")
	return strings.TrimFunc(lower, unicode.IsSpace)
}

func cacheKey(source, normalizedTerm string) string {
	return fmt.Sprintf("glossary:%s:%s", source, normalizedTerm)
}

// DefineTerm resolves term against the cache, then the ranked source
// list, then the static fallback, returning a Record in every case.
func (s *Service) DefineTerm(ctx context.Context, term string) Record {
	normalized := normalize(term)
	if len(normalized) > maxTermLen {
		normalized = normalized[:maxTermLen]
	}

	for _, src := range s.sources {
		key := cacheKey(src.Name, normalized)
		if raw, hit := s.cache.Get(ctx, key); hit {
			var rec Record
			if err := json.Unmarshal(raw, &rec); err == nil {
				rec.Cached = true
				return rec
			}
		}
	}

	var triedSources []string
	for _, src := range s.sources {
		triedSources = append(triedSources, src.Name)
		rec, ok := s.fetchFromSource(ctx, src, term, normalized)
		if ok {
			s.writeCache(ctx, src.Name, normalized, rec)
			return rec
		}
	}

	if def, ok := s.staticFallback[normalized]; ok {
		return Record{
			Term:       term,
			Definition: def,
			Source:     "static",
			Timestamp:  time.Now(),
			Fallback:   true,
		}
	}

	return Record{
		Term:         term,
		Error:        "no source produced a definition",
		SourcesTried: triedSources,
		Timestamp:    time.Now(),
	}
}

func (s *Service) fetchFromSource(ctx context.Context, src SourceConfig, term, normalized string) (Record, bool) {
	pageURL := fmt.Sprintf(src.URLTemplate, url.PathEscape(normalized))
	host := hostOf(pageURL)

	if !s.robots.Allowed(ctx, s.fetcher, host, pageURL) {
		s.logger.Warn("glossary: robots.txt disallows %s", pageURL)
		return Record{}, false
	}

	if err := s.limiter.Take(ctx, host, s.maxWait); err != nil {
		s.logger.Warn("glossary: rate limited fetching %s: %v", pageURL, err)
		return Record{}, false
	}

	var status int
	var body []byte
	retryErr := resilience.Retry(ctx, s.retryPolicy, func(ctx context.Context) error {
		var ferr error
		status, body, ferr = s.fetcher.Fetch(ctx, pageURL)
		return ferr
	})
	if retryErr != nil {
		s.logger.Warn("glossary: fetch failed for %s: %v", pageURL, retryErr)
		return Record{}, false
	}
	_ = status

	definition, ok := extractDefinition(body, src.Selectors)
	if !ok {
		return Record{}, false
	}
	definition = s.sanitizer.Sanitize(definition)
	definition = strings.TrimSpace(definition)
	if len([]rune(definition)) < minHealthyLen {
		return Record{}, false
	}
	if len([]rune(definition)) > maxDefinitionLen {
		return Record{}, false
	}

	return Record{
		Term:       term,
		Definition: definition,
		Source:     src.Name,
		SourceURL:  pageURL,
		Timestamp:  time.Now(),
		Cached:     false,
	}, true
}

func (s *Service) writeCache(ctx context.Context, source, normalized string, rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	s.cache.Set(ctx, cacheKey(source, normalized), data, s.ttl)
}

// extractDefinition tries each selector in order against body, returning
// the first whose matched text passes the health check.
func extractDefinition(body []byte, selectors []string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", false
	}
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if len(strings.TrimSpace(text)) >= minHealthyLen {
			return text, true
		}
	}
	return "", false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
