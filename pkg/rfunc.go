package pedpeel

// rfunc is a table over the joint values of vars, the last variable
// varying fastest.
type rfunc struct {
	vars   []int
	p      []float64
	arity  int
	inUse  bool
	listed bool
}

func ipow(b, e int) int {
	n := 1
	for ; e > 0; e-- {
		n *= b
	}
	return n
}

// rfPool recycles R-functions by arity.
type rfPool struct {
	free   map[int][]*rfunc
	live   []*rfunc
	nalloc int
}

func (pl *rfPool) acquire(arity, dom int) *rfunc {
	if pl.free == nil {
		pl.free = map[int][]*rfunc{}
	}
	var rf *rfunc
	if l := pl.free[arity]; len(l) > 0 {
		rf = l[len(l)-1]
		pl.free[arity] = l[:len(l)-1]
	} else {
		rf = &rfunc{vars: make([]int, 0, arity), arity: arity}
		pl.nalloc++
	}
	rf.vars = rf.vars[:0]
	n := ipow(dom, arity)
	if cap(rf.p) < n {
		rf.p = make([]float64, n)
	} else {
		rf.p = rf.p[:n]
		clear(rf.p)
	}
	rf.inUse = true
	if !rf.listed {
		rf.listed = true
		pl.live = append(pl.live, rf)
	}
	return rf
}

func (pl *rfPool) release(rf *rfunc) {
	if rf == nil || !rf.inUse {
		return
	}
	rf.inUse = false
	pl.free[rf.arity] = append(pl.free[rf.arity], rf)
}

// releaseAll returns every R-function acquired since the last call.
func (pl *rfPool) releaseAll() {
	for _, rf := range pl.live {
		pl.release(rf)
		rf.listed = false
	}
	pl.live = pl.live[:0]
}

func (pl *rfPool) inUse() int {
	n := 0
	for _, rf := range pl.live {
		if rf.inUse {
			n++
		}
	}
	return n
}
