package query

import (
	"bytes"
	"container/heap"

	"github.com/goedderz/iresearch/postings"
)

// fuzzyMatch is one candidate term a Levenshtein automaton walk
// accepted, carrying enough to both rank it and fetch its postings
// later.
type fuzzyMatch struct {
	term       []byte
	stats      postings.Stats
	distance   int
	similarity float64
}

// topTermsHeap is a min-heap over similarity (lowest first), so
// pushing past Limit can evict the worst match in O(log k). Ties break
// by ascending term bytes, matching spec.md §8 property 4.
type topTermsHeap []fuzzyMatch

func (h topTermsHeap) Len() int { return len(h) }
func (h topTermsHeap) Less(i, j int) bool {
	if h[i].similarity != h[j].similarity {
		return h[i].similarity < h[j].similarity
	}
	return bytes.Compare(h[i].term, h[j].term) > 0
}
func (h topTermsHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *topTermsHeap) Push(x interface{}) { *h = append(*h, x.(fuzzyMatch)) }
func (h *topTermsHeap) Pop() interface{} {
	old := *h
	n := len(old)
	last := old[n-1]
	*h = old[:n-1]
	return last
}

// termCollector gathers fuzzy-match candidates, either keeping all of
// them (limit == 0, spec.md's "all-terms collector") or only the
// highest-similarity Limit of them (the "top-terms collector").
type termCollector struct {
	limit int
	all   []fuzzyMatch
	top   topTermsHeap
}

func newTermCollector(limit int) *termCollector {
	return &termCollector{limit: limit}
}

func (c *termCollector) add(m fuzzyMatch) {
	if c.limit == 0 {
		c.all = append(c.all, m)
		return
	}
	if len(c.top) < c.limit {
		heap.Push(&c.top, m)
		return
	}
	if (topTermsHeap{m, c.top[0]}).Less(0, 1) {
		return // worse than the current floor, drop it
	}
	heap.Pop(&c.top)
	heap.Push(&c.top, m)
}

func (c *termCollector) results() []fuzzyMatch {
	if c.limit == 0 {
		return c.all
	}
	return []fuzzyMatch(c.top)
}
