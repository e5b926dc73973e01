// Package matcher implements the exact string matching algorithms a worker
// uses to count pattern occurrences in file contents.
//
// # Counting contract
//
// Every Algorithm counts non-overlapping occurrences: the leftmost match is
// consumed and the scan resumes at the first byte after it. Counting "abab"
// in "abababab" therefore yields 2 (offsets 0 and 4), never 3. An empty
// pattern, or a pattern longer than the text, yields 0.
//
// Matching is byte oriented. Because UTF-8 is self-synchronizing, a byte-level
// match of a valid UTF-8 pattern inside valid UTF-8 text is always aligned on
// rune boundaries, so byte and rune counts agree.
//
// # Algorithms
//
//	brute-force  O(n·m)  compares the pattern at every alignment
//	boyer-moore  O(n·m)  right-to-left compare, bad-character shift only
//	kmp          O(n+m)  single pass driven by the prefix (failure) table
//
// All three produce identical counts for any input; the package tests check
// this exhaustively over a small alphabet.
//
// # Selection
//
// A worker picks its algorithm once at startup:
//
//	algo, ok := matcher.Lookup(cfg.Worker.Algorithm)
//	if !ok {
//	    logger.Warn("unknown algorithm, using brute-force", "requested", cfg.Worker.Algorithm)
//	}
//	n := algo.Count(strings.ToLower(text), "needle")
package matcher
