package tactic

import (
	"math"
	"sort"
	"strings"
)

// Rank merges candidates by exact tactic text, keeping the highest confidence
// seen for each, and orders them by descending confidence. Ties keep the order
// in which tactics were first seen. Rank does not modify its input.
func Rank(cands []Candidate) []Candidate {
	best := make(map[string]int, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		i, seen := best[c.Tactic]
		if !seen {
			best[c.Tactic] = len(out)
			out = append(out, c)
			continue
		}
		if c.Confidence > out[i].Confidence {
			out[i].Confidence = c.Confidence
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func clampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// filterPrefix keeps candidates whose tactic starts with prefix.
func filterPrefix(cands []Candidate, prefix string) []Candidate {
	if prefix == "" {
		return cands
	}
	out := cands[:0:0]
	for _, c := range cands {
		if strings.HasPrefix(c.Tactic, prefix) {
			out = append(out, c)
		}
	}
	return out
}
