package ranker

import (
	"container/heap"

	"github.com/opengloss/ogls/pkg/model"
)

// candidate is one shard's scored entry pending merge into the caller's
// top-Limit result.
type candidate struct {
	score float64
	id    model.LexemeID
	word  string
}

// candidateHeap is a bounded min-heap over candidates: the worst entry
// (lowest score, ties broken toward the higher LexemeID so the lower id
// survives a tie) sits at the root and is the one evicted when a better
// candidate arrives. This mirrors original_source's RankedResult::cmp,
// whose doubly-reversed Ord nets out to exactly this eviction order.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].id > h[j].id
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) {
	*h = append(*h, x.(candidate))
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// pushCandidate inserts c into h, keeping h bounded to at most limit
// entries by evicting the current worst one if c is an improvement.
func pushCandidate(h *candidateHeap, c candidate, limit int) {
	if h.Len() < limit {
		heap.Push(h, c)
		return
	}
	if h.Len() == 0 {
		return
	}
	worst := (*h)[0]
	if c.score > worst.score || (c.score == worst.score && c.id < worst.id) {
		heap.Pop(h)
		heap.Push(h, c)
	}
}
