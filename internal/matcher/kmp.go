package matcher

// KMP is Knuth–Morris–Pratt driven by the prefix (failure) table.
//
// After a full match the matched-prefix length restarts at zero rather than
// at failure[m-1]; falling back through the table would let the next match
// reuse bytes of the previous one and count overlapping occurrences.
type KMP struct{}

// Name implements Algorithm.
func (KMP) Name() string { return NameKMP }

// Count implements Algorithm.
func (KMP) Count(text, pattern string) int {
	m, n := len(pattern), len(text)
	if m == 0 || m > n {
		return 0
	}

	failure := prefixTable(pattern)

	hits, j := 0, 0
	for i := 0; i < n; i++ {
		c := text[i]
		for j > 0 && c != pattern[j] {
			j = failure[j-1]
		}
		if c == pattern[j] {
			j++
		}
		if j == m {
			hits++
			j = 0
		}
	}
	return hits
}

// prefixTable returns, for every prefix pattern[:i+1], the length of its
// longest proper prefix that is also a suffix.
func prefixTable(pattern string) []int {
	failure := make([]int, len(pattern))
	length := 0
	for i := 1; i < len(pattern); i++ {
		for length > 0 && pattern[i] != pattern[length] {
			length = failure[length-1]
		}
		if pattern[i] == pattern[length] {
			length++
		}
		failure[i] = length
	}
	return failure
}
