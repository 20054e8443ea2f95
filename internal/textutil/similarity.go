package textutil

import "strings"

// TokenSet builds the set of unique whitespace-delimited tokens in value.
func TokenSet(value string) map[string]struct{} {
	fields := strings.Fields(value)
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

// JaccardSimilarity computes token-set overlap between two strings.
// Returns 0 when either side has no tokens.
func JaccardSimilarity(a, b string) float64 {
	setA := TokenSet(a)
	setB := TokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
