package evaluator

import "container/heap"

// worklist is a priority queue of pending program points ordered by
// (body id, pc, point key). A point is queued at most once.
type worklist struct {
	items   pointHeap
	members map[string]bool
}

func newWorklist() *worklist {
	return &worklist{members: map[string]bool{}}
}

// Insert queues ep unless it is already queued. It reports whether ep was added.
func (w *worklist) Insert(ep *ExecPoint) bool {
	if w.members[ep.key] {
		return false
	}
	w.members[ep.key] = true
	heap.Push(&w.items, ep)
	return true
}

// Pop removes the smallest point.
func (w *worklist) Pop() *ExecPoint {
	ep := heap.Pop(&w.items).(*ExecPoint)
	delete(w.members, ep.key)
	return ep
}

func (w *worklist) Len() int { return len(w.items) }

func (w *worklist) Contains(ep *ExecPoint) bool { return w.members[ep.key] }

type pointHeap []*ExecPoint

func (h pointHeap) Len() int { return len(h) }

func (h pointHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	ai, bi := bodyID(a), bodyID(b)
	if ai != bi {
		return ai < bi
	}
	if a.PC != b.PC {
		return a.PC < b.PC
	}
	return a.key < b.key
}

func (h pointHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pointHeap) Push(x any) { *h = append(*h, x.(*ExecPoint)) }

func (h *pointHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func bodyID(ep *ExecPoint) int {
	if ep.Ctx.Body == nil {
		return -1
	}
	return ep.Ctx.Body.ID
}
