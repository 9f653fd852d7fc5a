// Package search implements candidate selection, optional fuzzy fallback,
// and composite scoring over memory records (spec §4.4).
package search

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/emergent-company/memoryd/internal/memory"
)

// Weights are the configurable composite-score coefficients (spec §4.4,
// defaults w_r=0.30, w_rel=0.25, w_i=0.25, w_imp=0.20).
type Weights struct {
	Recency     float64
	Relevance   float64
	Interaction float64
	Importance  float64
}

// DefaultWeights returns the spec-documented default weighting.
func DefaultWeights() Weights {
	return Weights{Recency: 0.30, Relevance: 0.25, Interaction: 0.25, Importance: 0.20}
}

// Filter narrows the candidate set before scoring.
type Filter struct {
	Project  string
	Tags     []string
	Category string
	Status   string
	Fuzzy    bool
}

// Result pairs a record with its computed score.
type Result struct {
	Record memory.Record
	Score  float64
}

const fuzzyThresholdCount = 5
const fuzzyMinQueryLen = 3

// fuzzy modes and thresholds (spec §4.4: exact 0.3, balanced 0.6, tolerant 0.8).
var fuzzyModeThresholds = []float64{0.3, 0.6, 0.8}

// Search runs the full pipeline over records: candidate selection, optional
// fuzzy fallback, composite scoring, and tie-broken ordering.
func Search(records []memory.Record, query string, f Filter, w Weights) []Result {
	filtered := applyFilters(records, f)

	terms := queryTerms(query)
	exactIDs := make(map[string]bool)
	var candidates []memory.Record
	for _, r := range filtered {
		if len(terms) == 0 || matchesAllTerms(r, terms) {
			candidates = append(candidates, r)
			exactIDs[r.ID] = true
		}
	}

	if (f.Fuzzy || len(exactIDs) < fuzzyThresholdCount) && len(query) > fuzzyMinQueryLen {
		for _, r := range filtered {
			if exactIDs[r.ID] {
				continue
			}
			if fuzzyMatches(r, query) {
				candidates = append(candidates, r)
				exactIDs[r.ID] = true
			}
		}
	}

	now := time.Now().UTC()
	results := make([]Result, 0, len(candidates))
	for _, r := range candidates {
		score := compositeScore(r, query, terms, now, w)
		results = append(results, Result{Record: r, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Record.Timestamp.Equal(results[j].Record.Timestamp) {
			return results[i].Record.Timestamp.After(results[j].Record.Timestamp)
		}
		return results[i].Record.ID < results[j].Record.ID
	})
	return results
}

func applyFilters(records []memory.Record, f Filter) []memory.Record {
	out := make([]memory.Record, 0, len(records))
	for _, r := range records {
		if f.Project != "" && r.Project != f.Project {
			continue
		}
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if len(f.Tags) > 0 && !hasAnyTag(r.Tags, f.Tags) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasAnyTag(recordTags, want []string) bool {
	set := make(map[string]bool, len(recordTags))
	for _, t := range recordTags {
		set[strings.ToLower(t)] = true
	}
	for _, t := range want {
		if set[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

func queryTerms(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	fields := strings.Fields(strings.ToLower(query))
	return fields
}

// matchesAllTerms reports whether every whitespace-separated query term is
// a case-insensitive substring of the record's content or any tag (spec
// §4.4 step 1).
func matchesAllTerms(r memory.Record, terms []string) bool {
	content := strings.ToLower(r.Content)
	tags := strings.ToLower(strings.Join(r.Tags, " "))
	for _, term := range terms {
		if strings.Contains(content, term) || strings.Contains(tags, term) {
			continue
		}
		return false
	}
	return true
}

// fuzzyMatches runs bounded edit-distance matching across the three
// documented modes, normalizing Levenshtein distance by the longer string's
// length to get a [0,1] similarity (spec §4.4 step 2).
func fuzzyMatches(r memory.Record, query string) bool {
	best := bestSimilarity(strings.ToLower(r.Content), strings.ToLower(query))
	for _, threshold := range fuzzyModeThresholds {
		if best >= 1-threshold {
			return true
		}
	}
	return false
}

// bestSimilarity compares the query with each whitespace-separated word of
// content and returns the highest normalized similarity seen, since content
// is much longer than the query and direct whole-string distance would
// always be poor.
func bestSimilarity(content, query string) float64 {
	if len(query) == 0 {
		return 0
	}
	words := strings.Fields(content)
	best := 0.0
	for _, w := range words {
		dist := levenshtein.ComputeDistance(w, query)
		maxLen := len(w)
		if len(query) > maxLen {
			maxLen = len(query)
		}
		if maxLen == 0 {
			continue
		}
		sim := 1 - float64(dist)/float64(maxLen)
		if sim > best {
			best = sim
		}
	}
	return best
}

func compositeScore(r memory.Record, query string, terms []string, now time.Time, w Weights) float64 {
	recency := recencyScore(r, now)
	relevance := relevanceScore(r, query, terms)
	interaction := interactionScore(r, now)
	importance := importanceScore(r)

	score := w.Recency*recency + w.Relevance*relevance + w.Interaction*interaction + w.Importance*importance
	return clamp01(score)
}

func recencyScore(r memory.Record, now time.Time) float64 {
	ref := r.LastAccessed
	if ref.IsZero() {
		ref = r.Timestamp
	}
	days := now.Sub(ref).Hours() / 24
	if days < 0 {
		days = 0
	}
	return clamp01(math.Exp(-days / 30))
}

func relevanceScore(r memory.Record, query string, terms []string) float64 {
	score := 0.5
	contentLower := strings.ToLower(r.Content)
	firstLine := contentLower
	if idx := strings.IndexByte(contentLower, '\n'); idx >= 0 {
		firstLine = contentLower[:idx]
	}
	for _, term := range terms {
		if strings.Contains(firstLine, term) {
			score += 0.3
		}
		if strings.Contains(contentLower, term) {
			score += 0.1
		}
	}
	for _, tag := range r.Tags {
		if tag == "important" || tag == "critical" || tag == "urgent" {
			score += 0.1
		}
	}
	if strings.Contains(r.Content, "```") {
		score += 0.05
	}
	return clamp01(score)
}

func interactionScore(r memory.Record, now time.Time) float64 {
	score := math.Log(float64(r.AccessCount)+1) / math.Log(50)
	score = clamp01(score)
	if !r.LastAccessed.IsZero() && now.Sub(r.LastAccessed) <= 7*24*time.Hour {
		score += 0.2
	}
	return clamp01(score)
}

func importanceScore(r memory.Record) float64 {
	score := 0.3
	switch r.Priority {
	case "high":
		score += 0.4
	case "medium":
		score += 0.2
	}
	length := len(r.Content)
	switch {
	case length > 1000:
		score += 0.2
	case length > 300:
		score += 0.1
	}
	if r.Complexity >= 3 {
		score += 0.1
	}
	return clamp01(score)
}

// clamp01 implements the spec's numerical semantics: NaN/Infinity clamp to
// 0/1, values outside [0,1] are clamped (spec §4.4 "Numerical semantics").
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if math.IsInf(v, 1) {
		return 1
	}
	if math.IsInf(v, -1) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
