// Package relationship scores the confidence of a query matching a
// relationship/traversal shape, classifies it in or out of the knowledge
// domain, and recognizes aggregation and structured-extraction patterns.
// The scoring formula and keyword lists are deliberately simple and
// data-driven rather than a learned model, matching the rest of the
// pipeline's preference for deterministic, testable routing.
package relationship

import (
	"regexp"
	"strings"
)

// Bucket is one of the three confidence tiers that modulate retrieval
// breadth and routing elsewhere in the pipeline.
type Bucket int

const (
	Low Bucket = iota
	Medium
	High
)

func (b Bucket) String() string {
	switch b {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// BucketOf classifies a confidence score into its tier.
func BucketOf(score float64) Bucket {
	switch {
	case score >= 0.85:
		return High
	case score >= 0.60:
		return Medium
	default:
		return Low
	}
}

var relationshipPattern = regexp.MustCompile(`(?i)(what|which)\s+\w+\s+(are|is)\s+(available\s+)?(for|of|in)\s+`)

var relationshipKeywords = []string{"curves for", "curves available", "related to", "measures", "describes", "reports on"}

type entityKindPattern struct {
	kind    string
	pattern *regexp.Regexp
}

// entityKindPatterns is an ordered list, not a map: iteration order must
// be deterministic so confidence_evidence is stable across runs for the
// same query.
var entityKindPatterns = []entityKindPattern{
	{"well", regexp.MustCompile(`(?i)\bwell\b|\b\d+[_/-]\d+(-\d+)?\b`)},
	{"curve", regexp.MustCompile(`(?i)\bcurves?\b|\b(GR|RHOB|NPHI|SP|RES)\b`)},
}

// Evidence is a human-readable note explaining a contribution to the
// confidence score, surfaced verbatim in metadata.confidence_evidence.
type Evidence = string

// Score computes the [0,1] confidence score for a query: +0.6 for a
// structural relationship pattern, +0.2 for a relationship keyword, +0.1
// for each of up to two recognized entity kinds, and +0.1 synergy when
// both the pattern and a keyword are present, capped at 1.0.
func Score(query string) (float64, []Evidence) {
	var score float64
	var evidence []Evidence

	patternMatch := relationshipPattern.MatchString(query)
	if patternMatch {
		score += 0.6
		evidence = append(evidence, "structural_pattern_match")
	}

	keywordMatch := false
	lower := strings.ToLower(query)
	for _, kw := range relationshipKeywords {
		if strings.Contains(lower, kw) {
			keywordMatch = true
			score += 0.2
			evidence = append(evidence, "keyword:"+kw)
			break
		}
	}

	entityKinds := 0
	for _, ek := range entityKindPatterns {
		if entityKinds >= 2 {
			break
		}
		if ek.pattern.MatchString(query) {
			entityKinds++
			score += 0.1
			evidence = append(evidence, "entity_kind:"+ek.kind)
		}
	}

	if patternMatch && keywordMatch {
		score += 0.1
		evidence = append(evidence, "synergy_bonus")
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, evidence
}

// ApplyTraversal reports whether a query should be answered via graph
// traversal rather than retrieval-augmented generation. It checks only the
// structural relationship pattern; it does not check which relation type
// the query names.
func ApplyTraversal(query string) bool {
	return relationshipPattern.MatchString(query)
}

type outOfDomainTopic struct {
	topic    string
	keywords []string
}

// outOfDomainKeywords is an ordered list, not a map: iteration order must
// be deterministic so a query matching several topics always reports the
// same reason.
var outOfDomainKeywords = []outOfDomainTopic{
	{"politics", []string{"election", "president", "senator", "congress", "vote for"}},
	{"food", []string{"recipe", "restaurant", "cuisine", "cook"}},
	{"entertainment", []string{"movie", "actor", "celebrity", "tv show"}},
	{"weather", []string{"forecast", "temperature today", "rain tomorrow"}},
	{"sports", []string{"football", "basketball", "world cup", "olympics"}},
}

// ScopeCheck is the result of the deterministic in/out-of-domain
// classifier.
type ScopeCheck struct {
	InScope bool
	Reason  string
}

// CheckScope labels a query in-domain unless it matches one of the
// out-of-domain topic keyword lists.
func CheckScope(query string) ScopeCheck {
	lower := strings.ToLower(query)
	for _, t := range outOfDomainKeywords {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return ScopeCheck{InScope: false, Reason: "matched out-of-domain topic: " + t.topic}
			}
		}
	}
	return ScopeCheck{InScope: true}
}

var (
	countPattern    = regexp.MustCompile(`(?i)^\s*how many\b`)
	listPattern     = regexp.MustCompile(`(?i)^\s*list\s+(all\s+)?`)
	distinctPattern = regexp.MustCompile(`(?i)\bdistinct\b|\bunique\b`)
)

// AggregationKind is the recognized shape of a structured aggregation
// shortcut, or "" if the query does not match one.
type AggregationKind string

const (
	AggregationNone     AggregationKind = ""
	AggregationCount    AggregationKind = "COUNT"
	AggregationList     AggregationKind = "LIST"
	AggregationDistinct AggregationKind = "DISTINCT"
)

// DetectAggregation classifies a query as COUNT, LIST, DISTINCT, or none.
func DetectAggregation(query string) AggregationKind {
	switch {
	case distinctPattern.MatchString(query):
		return AggregationDistinct
	case countPattern.MatchString(query):
		return AggregationCount
	case listPattern.MatchString(query):
		return AggregationList
	default:
		return AggregationNone
	}
}

var extractionPattern = regexp.MustCompile(`(?i)\bwhat\s+is\s+the\s+(\w[\w\s]*?)\s+for\b|\bwell\s+name\s+for\b`)

// IsStructuredExtraction reports whether a query asks for a single
// attribute of an identified entity.
func IsStructuredExtraction(query string) bool {
	return extractionPattern.MatchString(query)
}

// ExtractionAttribute returns the node attribute key a structured
// extraction query is asking for ("well_name" for the "well name for"
// phrasing, or the captured "<X> for" phrase otherwise), or ok=false if
// query does not match the extraction pattern.
func ExtractionAttribute(query string) (attr string, ok bool) {
	m := extractionPattern.FindStringSubmatch(query)
	if m == nil {
		return "", false
	}
	if m[1] == "" {
		return "well_name", true
	}
	return strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "_"), true
}

var entityIDPattern = regexp.MustCompile(`\b\d+[_/-]\d+(?:-\d+)?\b|\b(?:GR|RHOB|NPHI|SP|RES)\b`)

// ExtractEntityID returns the first well- or curve-id-shaped token found
// in query, used to resolve a structured extraction's target entity.
func ExtractEntityID(query string) (string, bool) {
	m := entityIDPattern.FindString(query)
	return m, m != ""
}

var glossaryTriggerPattern = regexp.MustCompile(`(?i)^\s*(define|what\s+is|explain)\b`)

// IsGlossaryTrigger reports whether a query matches the glossary trigger
// set (define X / what is X / explain X).
func IsGlossaryTrigger(query string) bool {
	return glossaryTriggerPattern.MatchString(query)
}

// IsExcluded reports whether query contains any of the configured
// exclusion phrases, which take precedence over a glossary trigger match.
func IsExcluded(query string, exclusionPhrases []string) bool {
	lower := strings.ToLower(query)
	for _, phrase := range exclusionPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
