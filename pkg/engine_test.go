package pedpeel

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestDegreeQueue(t *testing.T) {
	var q degreeQueue
	q.reset(4)
	q.push(0, 2)
	q.push(1, 0)
	q.push(2, 1)
	q.push(3, 1)
	q.update(0, 0)
	q.remove(3)
	want := []int{0, 1, 2, -1}
	for _, w := range want {
		if got := q.popMin(); got != w {
			t.Errorf("got %v; want %v", got, w)
		}
	}
}

func TestPool(t *testing.T) {
	var pl rfPool
	a := pl.acquire(2, 3)
	if len(a.p) != 9 {
		t.Fatalf("got %v cells; want 9", len(a.p))
	}
	a.p[4] = 1
	b := pl.acquire(1, 3)
	if pl.inUse() != 2 {
		t.Errorf("got %v in use; want 2", pl.inUse())
	}
	pl.release(a)
	c := pl.acquire(2, 3)
	if c != a {
		t.Errorf("released function not reused")
	}
	if c.p[4] != 0 {
		t.Errorf("reused function not cleared")
	}
	pl.releaseAll()
	if pl.inUse() != 0 || b.inUse {
		t.Errorf("got %v in use after releaseAll", pl.inUse())
	}
	if pl.nalloc != 2 {
		t.Errorf("got %v allocations; want 2", pl.nalloc)
	}
}

func checkOrder(t *testing.T, nvar int, steps []PeelStep) {
	t.Helper()
	seen := make([]int, nvar)
	for _, st := range steps {
		for _, v := range st.Peel {
			seen[v]++
		}
	}
	for v, n := range seen {
		if n != 1 {
			t.Errorf("variable %v peeled %v times", v, n)
		}
	}
}

func TestMinDegreeOrder(t *testing.T) {
	var g elimGraph
	steps := g.minDegreeOrder(3, [][]int{{0, 1}, {1, 2}})
	checkOrder(t, 3, steps)
	if steps[0].Peel[0] != 0 || steps[0].NOut != 1 {
		t.Errorf("got first step %v; want peel 0 leaving 1", steps[0])
	}

	steps = g.minDegreeOrder(4, [][]int{{0, 1, 2, 3}})
	checkOrder(t, 4, steps)
	if len(steps) != 1 || steps[0].NOut != 0 {
		t.Errorf("got %v; want one step peeling the clique", steps)
	}

	// a 4-cycle plus a hub leaves a complex step
	steps = g.minDegreeOrder(6, [][]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 0}, {4, 1}, {4, 2}, {4, 3}, {5, 4}})
	checkOrder(t, 6, steps)
	if steps[0].Peel[0] != 5 {
		t.Errorf("got first step %v; want leaf 5", steps[0])
	}
}

func TestRun(t *testing.T) {
	c := NewPeelContext(trioPed(t), rand.NewSource(1), nil)
	eq := c.pool.acquire(2, 2)
	eq.vars = append(eq.vars, 0, 1)
	eq.p[0], eq.p[3] = 1, 1
	pr := &problem{nvar: 2, dom: 2, prior: [][]float64{{.5, .5}, {.25, .75}}, facs: []*rfunc{eq}}
	steps := c.graph.minDegreeOrder(2, [][]int{{0, 1}})
	like, e := c.run(pr, steps, false)
	if e != nil {
		t.Fatal(e)
	}
	if want := math.Log(.5*.25 + .5*.75); !near(like, want) {
		t.Errorf("got %v; want %v", like, want)
	}
	c.pool.releaseAll()

	eq = c.pool.acquire(2, 2)
	eq.vars = append(eq.vars, 0, 1)
	eq.p[0], eq.p[3] = 1, 1
	pr.facs = []*rfunc{eq}
	for it := 0; it < 20; it++ {
		like, e := c.run(pr, steps, true)
		if e != nil {
			t.Fatal(e)
		}
		if !near(like, math.Log(.5)) {
			t.Errorf("sampled like %v", like)
		}
		if c.assign[0] != c.assign[1] {
			t.Errorf("got %v; want equal values", c.assign[:2])
		}
	}
	c.pool.releaseAll()

	zero := c.pool.acquire(1, 2)
	zero.vars = append(zero.vars, 0)
	pr = &problem{nvar: 1, dom: 2, prior: make([][]float64, 1), facs: []*rfunc{zero}}
	if _, e := c.run(pr, c.graph.minDegreeOrder(1, [][]int{{0}}), false); !errors.Is(e, ErrZeroProbability) {
		t.Errorf("got %v; want %v", e, ErrZeroProbability)
	}
	c.pool.releaseAll()
}
