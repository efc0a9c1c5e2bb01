package pedpeel

// degreeQueue buckets variables by degree. Each variable carries its own
// next/prev links so moving it between buckets is O(1).
type degreeQueue struct {
	head   []int
	next   []int
	prev   []int
	deg    []int
	queued []bool
	min    int
	n      int
}

func grow(s []int, n int) []int {
	if cap(s) < n {
		return make([]int, n)
	}
	return s[:n]
}

func (q *degreeQueue) reset(nvar int) {
	q.head = grow(q.head, nvar+1)
	q.next = grow(q.next, nvar)
	q.prev = grow(q.prev, nvar)
	q.deg = grow(q.deg, nvar)
	if cap(q.queued) < nvar {
		q.queued = make([]bool, nvar)
	} else {
		q.queued = q.queued[:nvar]
		clear(q.queued)
	}
	for i := range q.head {
		q.head[i] = -1
	}
	q.min = 0
	q.n = 0
}

func (q *degreeQueue) push(v, d int) {
	if d >= len(q.head) {
		d = len(q.head) - 1
	}
	q.deg[v] = d
	q.prev[v] = -1
	q.next[v] = q.head[d]
	if q.head[d] >= 0 {
		q.prev[q.head[d]] = v
	}
	q.head[d] = v
	q.queued[v] = true
	q.n++
	if d < q.min {
		q.min = d
	}
}

func (q *degreeQueue) remove(v int) {
	if !q.queued[v] {
		return
	}
	if q.prev[v] >= 0 {
		q.next[q.prev[v]] = q.next[v]
	} else {
		q.head[q.deg[v]] = q.next[v]
	}
	if q.next[v] >= 0 {
		q.prev[q.next[v]] = q.prev[v]
	}
	q.queued[v] = false
	q.n--
}

func (q *degreeQueue) update(v, d int) {
	q.remove(v)
	q.push(v, d)
}

// popMin removes and returns a variable of least degree, or -1.
func (q *degreeQueue) popMin() int {
	if q.n == 0 {
		return -1
	}
	for q.head[q.min] < 0 {
		q.min++
	}
	v := q.head[q.min]
	q.remove(v)
	return v
}
