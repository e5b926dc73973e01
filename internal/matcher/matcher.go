package matcher

import "strings"

// Algorithm counts non-overlapping occurrences of a pattern in a text.
// Implementations are stateless and safe for concurrent use.
type Algorithm interface {
	// Name is the configuration name of the algorithm.
	Name() string

	// Count returns the number of non-overlapping occurrences of pattern
	// in text. It returns 0 when pattern is empty or longer than text.
	Count(text, pattern string) int
}

// Configuration names accepted by Lookup.
const (
	NameBruteForce = "brute-force"
	NameBoyerMoore = "boyer-moore"
	NameKMP        = "kmp"
)

var algorithms = map[string]Algorithm{
	NameBruteForce: BruteForce{},
	NameBoyerMoore: BoyerMoore{},
	NameKMP:        KMP{},
}

// Lookup returns the algorithm registered under name (case-insensitive).
// Unknown names resolve to BruteForce with ok set to false so callers can
// log the fallback.
func Lookup(name string) (algo Algorithm, ok bool) {
	algo, ok = algorithms[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return BruteForce{}, false
	}
	return algo, true
}

// Names lists the accepted algorithm names.
func Names() []string {
	return []string{NameBruteForce, NameBoyerMoore, NameKMP}
}
