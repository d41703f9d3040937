package network

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MatchTier identifies which rule of the name matcher produced a match.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierExact
	TierSubstring
	TierCleaned
)

func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierSubstring:
		return "substring"
	case TierCleaned:
		return "cleaned"
	default:
		return "none"
	}
}

// Match is the result of MatchName.
type Match[T any] struct {
	Value T
	Tier  MatchTier
	// Ambiguous counts the other candidates that matched at the same tier
	// and lost only because they came later in the catalog.
	Ambiguous int
}

var privateQualifier = regexp.MustCompile(`(?i)\(private\)`)

// lower folds s to lower case for case-insensitive comparison.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// stripPrivate removes the first "(private)" qualifier.
func stripPrivate(s string) string {
	loc := privateQualifier.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return strings.TrimSpace(s[:loc[0]] + s[loc[1]:])
}

// MatchName resolves input against candidates. Tiers are tried in order and
// the first tier with any match wins; within a tier the first candidate in
// slice order wins:
//
//  1. exact, case-insensitive
//  2. substring in either direction, case-insensitive
//  3. both sides with "(private)" removed, exact or substring
//
// Empty names never match.
func MatchName[T any](input string, candidates []T, name func(T) string) (Match[T], bool) {
	query := lower(strings.TrimSpace(input))
	if query == "" {
		return Match[T]{}, false
	}
	cleanQuery := stripPrivate(query)

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = lower(strings.TrimSpace(name(c)))
	}

	contains := func(a, b string) bool {
		return a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a))
	}

	tiers := []struct {
		tier    MatchTier
		matches func(candidate string) bool
	}{
		{TierExact, func(c string) bool { return c == query }},
		{TierSubstring, func(c string) bool { return contains(c, query) }},
		{TierCleaned, func(c string) bool {
			cleaned := stripPrivate(c)
			return cleaned != "" && cleanQuery != "" && (cleaned == cleanQuery || contains(cleaned, cleanQuery))
		}},
	}

	for _, t := range tiers {
		first, count := -1, 0
		for i, c := range names {
			if c == "" || !t.matches(c) {
				continue
			}
			if first < 0 {
				first = i
			}
			count++
		}
		if first >= 0 {
			return Match[T]{Value: candidates[first], Tier: t.tier, Ambiguous: count - 1}, true
		}
	}
	return Match[T]{}, false
}
