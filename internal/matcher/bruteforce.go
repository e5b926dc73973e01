package matcher

// BruteForce compares the pattern at every alignment of the text.
type BruteForce struct{}

// Name implements Algorithm.
func (BruteForce) Name() string { return NameBruteForce }

// Count implements Algorithm.
func (BruteForce) Count(text, pattern string) int {
	m, n := len(pattern), len(text)
	if m == 0 || m > n {
		return 0
	}

	hits := 0
	for i := 0; i <= n-m; {
		if text[i:i+m] == pattern {
			hits++
			i += m
			continue
		}
		i++
	}
	return hits
}
