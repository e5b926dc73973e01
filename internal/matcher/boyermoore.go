package matcher

// BoyerMoore is the bad-character-only simplification of Boyer–Moore.
//
// The pattern is compared right to left at each alignment. On a mismatch at
// pattern index k against text byte c, the alignment moves so the last
// occurrence of c in the pattern sits under c, or by one when that occurrence
// is at or right of k. No alignment that could match is ever skipped: any
// shift smaller than the computed one places a pattern byte other than c
// under c.
type BoyerMoore struct{}

// Name implements Algorithm.
func (BoyerMoore) Name() string { return NameBoyerMoore }

// Count implements Algorithm.
func (BoyerMoore) Count(text, pattern string) int {
	m, n := len(pattern), len(text)
	if m == 0 || m > n {
		return 0
	}

	last := lastOccurrence(pattern)

	hits := 0
	for s := 0; s <= n-m; {
		k := m - 1
		for k >= 0 && text[s+k] == pattern[k] {
			k--
		}
		if k < 0 {
			hits++
			s += m
			continue
		}
		s += max(1, k-last[text[s+k]])
	}
	return hits
}

// lastOccurrence maps every byte value to its rightmost index in pattern,
// or -1 when the byte does not occur.
func lastOccurrence(pattern string) *[256]int {
	var last [256]int
	for i := range last {
		last[i] = -1
	}
	for i := 0; i < len(pattern); i++ {
		last[pattern[i]] = i
	}
	return &last
}
