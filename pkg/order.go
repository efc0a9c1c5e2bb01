package pedpeel

import (
	"golang.org/x/exp/slices"
)

type OpKind int8

const (
	SimpleOp OpKind = iota
	ComplexOp
)

func (k OpKind) String() string {
	if k == SimpleOp {
		return "simple"
	}
	return "complex"
}

// PeelStep peels the variables in Peel together, leaving a function over
// NOut remaining variables.
type PeelStep struct {
	Kind OpKind
	Peel []int
	NOut int
}

type elimGraph struct {
	adj []map[int]struct{}
	q   degreeQueue
}

func (g *elimGraph) link(a, b int) {
	if a == b {
		return
	}
	g.adj[a][b] = struct{}{}
	g.adj[b][a] = struct{}{}
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// indistinguishable reports whether u and v have the same closed
// neighbourhood.
func (g *elimGraph) indistinguishable(u, v int) bool {
	if len(g.adj[u]) != len(g.adj[v]) {
		return false
	}
	for w := range g.adj[v] {
		if w == u {
			continue
		}
		if _, ok := g.adj[u][w]; !ok {
			return false
		}
	}
	return true
}

// minDegreeOrder orders the variables of a graph whose cliques are the given
// scopes. Every variable appears in exactly one step.
func (g *elimGraph) minDegreeOrder(nvar int, scopes [][]int) []PeelStep {
	g.adj = make([]map[int]struct{}, nvar)
	for v := range g.adj {
		g.adj[v] = map[int]struct{}{}
	}
	for _, sc := range scopes {
		for i, a := range sc {
			for _, b := range sc[i+1:] {
				g.link(a, b)
			}
		}
	}
	g.q.reset(nvar)
	for v := nvar - 1; v >= 0; v-- {
		g.q.push(v, len(g.adj[v]))
	}

	var steps []PeelStep
	for v := g.q.popMin(); v >= 0; v = g.q.popMin() {
		peel := []int{v}
		nb := sortedKeys(g.adj[v])
		for _, u := range nb {
			if g.indistinguishable(u, v) {
				peel = append(peel, u)
				g.q.remove(u)
			}
		}
		var rest []int
		for _, u := range nb {
			if !slices.Contains(peel, u) {
				rest = append(rest, u)
			}
		}
		for _, p := range peel {
			for u := range g.adj[p] {
				delete(g.adj[u], p)
			}
			g.adj[p] = nil
		}
		for i, a := range rest {
			for _, b := range rest[i+1:] {
				g.link(a, b)
			}
		}
		for _, a := range rest {
			g.q.update(a, len(g.adj[a]))
		}
		kind := SimpleOp
		if len(rest) > 2 {
			kind = ComplexOp
		}
		steps = append(steps, PeelStep{Kind: kind, Peel: peel, NOut: len(rest)})
	}
	return steps
}
