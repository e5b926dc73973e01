package coordinator

import (
	"cmp"

	"golang.org/x/exp/slices"

	"github.com/dreamware/grepmesh/internal/cluster"
)

// Result is the merged answer to one query.
type Result struct {
	Hits      []cluster.Hit
	TotalHits int
}

// Response converts r to its wire form.
func (r Result) Response() cluster.SearchResponse {
	hits := r.Hits
	if hits == nil {
		hits = []cluster.Hit{}
	}
	return cluster.SearchResponse{Hits: hits, TotalHits: r.TotalHits}
}

// Aggregate merges hits by file, summing the counts of a file reported more
// than once, and orders the result by count descending with the file name
// ascending as tie-break. TotalHits is the sum of the merged counts.
func Aggregate(hits []cluster.Hit) Result {
	grouped := make(map[string]int, len(hits))
	for _, h := range hits {
		grouped[h.File] += h.Count
	}

	res := Result{Hits: make([]cluster.Hit, 0, len(grouped))}
	for file, count := range grouped {
		res.Hits = append(res.Hits, cluster.Hit{File: file, Count: count})
		res.TotalHits += count
	}

	slices.SortFunc(res.Hits, func(a, b cluster.Hit) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.File, b.File)
	})
	return res
}
