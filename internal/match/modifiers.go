package match

import (
	"sort"
	"strings"
)

// ModifierTokens splits a formatted modifier string such as "public static final"
// into tokens.
func ModifierTokens(formatted string) []string {
	return strings.Fields(formatted)
}

// Modifiers reports whether the actual modifier set satisfies the expected one.
// An empty expectation matches anything; otherwise both sets must be equal.
func Modifiers(actual, expected []string) bool {
	want := tokenSet(expected)
	if len(want) == 0 {
		return true
	}
	got := tokenSet(actual)
	if len(got) != len(want) {
		return false
	}
	for token := range want {
		if _, ok := got[token]; !ok {
			return false
		}
	}
	return true
}

// ModifierDiff lists expected tokens that are missing and actual tokens that
// were not expected, both sorted. It is meant for failure messages.
func ModifierDiff(actual, expected []string) (missing, unexpected []string) {
	want := tokenSet(expected)
	got := tokenSet(actual)
	for token := range want {
		if _, ok := got[token]; !ok {
			missing = append(missing, token)
		}
	}
	for token := range got {
		if _, ok := want[token]; !ok {
			unexpected = append(unexpected, token)
		}
	}
	sort.Strings(missing)
	sort.Strings(unexpected)
	return missing, unexpected
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		for _, field := range strings.Fields(t) {
			set[field] = struct{}{}
		}
	}
	return set
}
