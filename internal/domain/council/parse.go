package council

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrParse indicates reviewer output that cannot be reduced to a ranking.
// Callers treat it as "no score from this reviewer", never as a pipeline
// failure.
var ErrParse = errors.New("unparseable review")

// reviewWire is the JSON shape reviewers are asked to emit. Rubric scores
// decode as any so a single non-numeric value is discarded on its own
// instead of sinking the whole review.
type reviewWire struct {
	Ranking      []string                  `json:"ranking"`
	RubricScores map[string]map[string]any `json:"rubric_scores"`
}

var labelPattern = regexp.MustCompile(`Response\s+[A-Z]+`)

// ParseReview extracts a Review from one reviewer's raw output. It prefers
// the strict JSON shape, tolerating markdown fences and surrounding prose;
// when that fails it falls back to scanning for candidate labels in order
// of appearance. Unknown labels are dropped and duplicates keep their
// first position. Returns ErrParse when no ranking can be recovered.
func ParseReview(reviewer, content string, validLabels map[string]string) (Review, error) {
	rv := Review{Reviewer: reviewer, RawText: content}

	var wire reviewWire
	if err := json.Unmarshal([]byte(extractJSON(content)), &wire); err == nil {
		rv.Ranking = filterLabels(wire.Ranking, validLabels)
		rv.Entries = entriesFromWire(wire.RubricScores, validLabels)
	}

	if len(rv.Ranking) == 0 {
		rv.Ranking = filterLabels(labelPattern.FindAllString(content, -1), validLabels)
	}
	if len(rv.Ranking) == 0 {
		return rv, fmt.Errorf("reviewer %s produced no recognizable ranking: %w", reviewer, ErrParse)
	}
	return rv, nil
}

// filterLabels keeps only known labels, first occurrence wins.
func filterLabels(raw []string, valid map[string]string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, label := range raw {
		label = strings.TrimSpace(label)
		if _, ok := valid[label]; !ok {
			continue
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out
}

// entriesFromWire converts the rubric map into typed entries, keeping only
// numeric scores for recognized dimensions. Entries are ordered by label
// so downstream output is deterministic.
func entriesFromWire(scores map[string]map[string]any, valid map[string]string) []RankingEntry {
	known := make(map[Dimension]bool, 5)
	for _, d := range Dimensions() {
		known[d] = true
	}

	entries := make([]RankingEntry, 0, len(scores))
	for label, dims := range scores {
		label = strings.TrimSpace(label)
		if _, ok := valid[label]; !ok {
			continue
		}
		entry := RankingEntry{Label: label, Scores: make(map[Dimension]float64, len(dims))}
		for name, value := range dims {
			dim := Dimension(strings.ToLower(strings.TrimSpace(name)))
			if !known[dim] {
				continue
			}
			num, ok := asFloat(value)
			if !ok {
				continue
			}
			entry.Scores[dim] = num
		}
		if len(entry.Scores) > 0 {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Label < entries[j].Label })
	return entries
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// extractJSON pulls a JSON object out of text that may carry markdown
// fences or surrounding prose.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		return strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
