package suggest

import (
	"container/heap"
	"sort"
)

// Better reports whether a ranks ahead of b: exact matches first, then
// higher weight, then the lexicographically smaller key.
func Better(a, b Result) bool {
	if a.Exact != b.Exact {
		return a.Exact
	}
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.Key < b.Key
}

// resultHeap keeps the worst held result at the root.
type resultHeap []Result

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return Better(h[j], h[i]) }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) {
	*h = append(*h, x.(Result))
}

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopK retains the k best results pushed into it.
type TopK struct {
	k int
	h resultHeap
}

func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{k: k, h: make(resultHeap, 0, k)}
}

// Push offers r. Once full, r only displaces the current worst result when
// it ranks strictly better.
func (t *TopK) Push(r Result) {
	if t.k == 0 {
		return
	}
	if len(t.h) < t.k {
		heap.Push(&t.h, r)
		return
	}
	if !Better(r, t.h[0]) {
		return
	}
	t.h[0] = r
	heap.Fix(&t.h, 0)
}

// Results drains the held results, best first. The TopK is empty afterwards.
func (t *TopK) Results() []Result {
	out := make([]Result, len(t.h))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(Result)
	}
	return out
}

// Rank returns the k best of results, best first.
func Rank(results []Result, k int) []Result {
	if len(results) <= k {
		out := append([]Result(nil), results...)
		sort.Slice(out, func(i, j int) bool { return Better(out[i], out[j]) })
		return out
	}
	t := NewTopK(k)
	for _, r := range results {
		t.Push(r)
	}
	return t.Results()
}
