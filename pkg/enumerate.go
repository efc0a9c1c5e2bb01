package pedpeel

import (
	"fmt"
)

// enumerator walks every joint value of vars, last variable fastest,
// tracking the matching cell of each factor through per-variable strides.
// Factor variables outside vars are read from assign.
type enumerator struct {
	dom     int
	vars    []int
	vals    []int
	facs    []*rfunc
	idx     []int
	strides [][]int
}

func (e *enumerator) reset(vars []int, dom int, facs []*rfunc, assign []int, pos []int) {
	e.dom = dom
	e.vars = vars
	e.vals = grow(e.vals, len(vars))
	clear(e.vals)
	e.facs = facs
	e.idx = grow(e.idx, len(facs))
	for len(e.strides) < len(facs) {
		e.strides = append(e.strides, nil)
	}
	for k, v := range vars {
		pos[v] = k
	}
	for f, rf := range facs {
		st := grow(e.strides[f], len(vars))
		clear(st)
		base := 0
		w := 1
		for j := len(rf.vars) - 1; j >= 0; j-- {
			v := rf.vars[j]
			if k := pos[v]; k >= 0 {
				st[k] += w
			} else {
				if assign == nil || assign[v] < 0 {
					panic(fmt.Errorf("enumerator.reset: variable %v neither enumerated nor assigned", v))
				}
				base += assign[v] * w
			}
			w *= dom
		}
		e.strides[f] = st
		e.idx[f] = base
	}
	for _, v := range vars {
		pos[v] = -1
	}
}

func (e *enumerator) next() bool {
	for k := len(e.vars) - 1; k >= 0; k-- {
		if e.vals[k]+1 < e.dom {
			e.vals[k]++
			for f := range e.facs {
				e.idx[f] += e.strides[f][k]
			}
			return true
		}
		for f := range e.facs {
			e.idx[f] -= e.strides[f][k] * (e.dom - 1)
		}
		e.vals[k] = 0
	}
	return false
}

func (e *enumerator) product() float64 {
	x := 1.0
	for f, rf := range e.facs {
		x *= rf.p[e.idx[f]]
	}
	return x
}
