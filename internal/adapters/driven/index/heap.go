package index

// scored is a candidate result during search.
type scored struct {
	id    int
	score float32
}

// beats reports whether s ranks ahead of o: higher score first, then
// lower vector id.
func (s scored) beats(o scored) bool {
	if s.score != o.score {
		return s.score > o.score
	}
	return s.id < o.id
}

// scoreHeap keeps the current top-k with the weakest candidate at the root.
type scoreHeap []scored

func (h scoreHeap) Len() int           { return len(h) }
func (h scoreHeap) Less(i, j int) bool { return h[j].beats(h[i]) }
func (h scoreHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *scoreHeap) Push(x any) {
	*h = append(*h, x.(scored))
}

func (h *scoreHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
