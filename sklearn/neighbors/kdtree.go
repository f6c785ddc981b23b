package neighbors

import (
	"container/heap"
	"sort"
)

const leafSize = 30

// kdNode is either a leaf holding sample indices or an internal split.
type kdNode struct {
	idx         []int
	dim         int
	split       float64
	left, right *kdNode
}

// kdTree indexes rows for exact k-nearest-neighbour queries.
type kdTree struct {
	rows [][]float64
	root *kdNode
}

func buildKDTree(rows [][]float64) *kdTree {
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	t := &kdTree{rows: rows}
	t.root = t.build(idx)
	return t
}

func (t *kdTree) build(idx []int) *kdNode {
	if len(idx) <= leafSize {
		return &kdNode{idx: idx}
	}
	dim := t.widestDim(idx)
	sort.Slice(idx, func(a, b int) bool { return t.rows[idx[a]][dim] < t.rows[idx[b]][dim] })
	mid := len(idx) / 2
	split := t.rows[idx[mid]][dim]
	if t.rows[idx[0]][dim] == t.rows[idx[len(idx)-1]][dim] {
		return &kdNode{idx: idx}
	}
	return &kdNode{
		dim:   dim,
		split: split,
		left:  t.build(idx[:mid]),
		right: t.build(idx[mid:]),
	}
}

func (t *kdTree) widestDim(idx []int) int {
	d := len(t.rows[idx[0]])
	best, bestSpread := 0, -1.0
	for j := 0; j < d; j++ {
		lo, hi := t.rows[idx[0]][j], t.rows[idx[0]][j]
		for _, i := range idx[1:] {
			v := t.rows[i][j]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > bestSpread {
			best, bestSpread = j, hi-lo
		}
	}
	return best
}

func (t *kdTree) query(x []float64, k int) []neighbor {
	h := make(maxHeap, 0, k+1)
	t.search(t.root, x, k, &h)
	return h.sorted()
}

func (t *kdTree) search(n *kdNode, x []float64, k int, h *maxHeap) {
	if n.left == nil {
		for _, i := range n.idx {
			h.offer(neighbor{index: i, dist2: squaredDistance(x, t.rows[i])}, k)
		}
		return
	}
	diff := x[n.dim] - n.split
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = n.right, n.left
	}
	t.search(near, x, k, h)
	if h.Len() < k || diff*diff <= (*h)[0].dist2 {
		t.search(far, x, k, h)
	}
}

type neighbor struct {
	index int
	dist2 float64
}

// maxHeap keeps the k closest neighbours seen so far, farthest on top.
type maxHeap []neighbor

func (h maxHeap) Len() int { return len(h) }
func (h maxHeap) Less(a, b int) bool {
	if h[a].dist2 != h[b].dist2 {
		return h[a].dist2 > h[b].dist2
	}
	return h[a].index > h[b].index
}
func (h maxHeap) Swap(a, b int) { h[a], h[b] = h[b], h[a] }
func (h *maxHeap) Push(x any)   { *h = append(*h, x.(neighbor)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

func (h *maxHeap) offer(n neighbor, k int) {
	if h.Len() < k {
		heap.Push(h, n)
		return
	}
	top := (*h)[0]
	if n.dist2 < top.dist2 || (n.dist2 == top.dist2 && n.index < top.index) {
		(*h)[0] = n
		heap.Fix(h, 0)
	}
}

// sorted returns the neighbours nearest first. Ties are ordered by index.
func (h maxHeap) sorted() []neighbor {
	out := append([]neighbor(nil), h...)
	sort.Slice(out, func(a, b int) bool {
		if out[a].dist2 != out[b].dist2 {
			return out[a].dist2 < out[b].dist2
		}
		return out[a].index < out[b].index
	})
	return out
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
