package pedpeel

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// GeneralPeel returns the log likelihood of trait locus l in component ci
// given the current segregation indicators. Founder genes are the variables;
// individuals with data tie their two genes together, and the elimination
// order is found from that graph on every call. With Sample set the genes
// are drawn jointly and passed down to every member.
func (c *PeelContext) GeneralPeel(l *Locus, ci int, flags PeelFlags) (float64, error) {
	if l.Linkage != Autosomal {
		return 0, fmt.Errorf("GeneralPeel: locus %v linkage %v; %w", l.Name, l.Linkage, ErrLinkage)
	}
	sample := flags&Sample != 0
	if sample {
		l.ensure(len(c.Ped.Inds))
	}
	defer c.pool.releaseAll()

	gm, e := PassFounderGenes(c.Ped, ci, l)
	if e != nil {
		return 0, fmt.Errorf("GeneralPeel: locus %v; %w", l.Name, e)
	}
	if len(gm.Members) == 1 {
		return c.peelSingleton(l, gm.Members[0], flags)
	}

	n := l.NAlleles
	like := 0.0
	pr := &problem{nvar: gm.NGenes(), dom: n, prior: make([][]float64, gm.NGenes())}
	for g, owner := range gm.Owner {
		pr.prior[g] = l.GroupFreq(c.Ped.Inds[owner].Group)
	}

	pairs := map[[2]int]*rfunc{}
	tab := make([]float64, n*n)
	for j, i := range gm.Members {
		if l.Pen == nil {
			break
		}
		for k := range tab {
			tab[k] = 1
		}
		if !l.Pen.Pen(i, tab, false) {
			continue
		}
		g0, g1 := gm.Genes[j][0], gm.Genes[j][1]
		lo, hi := min(g0, g1), max(g0, g1)
		rf, ok := pairs[[2]int{lo, hi}]
		if !ok {
			arity := 2
			if lo == hi {
				arity = 1
			}
			rf = c.pool.acquire(arity, n)
			rf.vars = append(rf.vars, lo)
			if hi != lo {
				rf.vars = append(rf.vars, hi)
			}
			for k := range rf.p {
				rf.p[k] = 1
			}
			pairs[[2]int{lo, hi}] = rf
			pr.facs = append(pr.facs, rf)
		}
		for a := 0; a < n; a++ {
			if lo == hi {
				rf.p[a] *= tab[a*n+a]
				continue
			}
			for b := 0; b < n; b++ {
				if g0 == lo {
					rf.p[a*n+b] *= tab[a*n+b]
				} else {
					rf.p[a*n+b] *= tab[b*n+a]
				}
			}
		}
		lz, e := scaled(rf)
		if e != nil {
			return like, fmt.Errorf("GeneralPeel: locus %v individual %v; %w", l.Name, c.Ped.Inds[i].ID, e)
		}
		like += lz
	}

	scopes := make([][]int, 0, len(pr.facs))
	for _, rf := range pr.facs {
		scopes = append(scopes, rf.vars)
	}
	steps := c.graph.minDegreeOrder(pr.nvar, scopes)
	lk, e := c.run(pr, steps, sample)
	like += lk
	if e != nil {
		return like, fmt.Errorf("GeneralPeel: locus %v component %v; %w", l.Name, ci, e)
	}
	if sample {
		c.writeGenes(l, gm, flags)
	}
	c.Log.WithFields(log.Fields{"locus": l.Name, "component": ci, "genes": gm.NGenes(), "steps": len(steps), "like": like}).Debug("general peel")
	return like, nil
}

func (c *PeelContext) peelSingleton(l *Locus, i int, flags PeelFlags) (float64, error) {
	n := l.NAlleles
	ind := &c.Ped.Inds[i]
	f := l.GroupFreq(ind.Group)
	w := make([]float64, n*n)
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			w[a*n+b] = f[a] * f[b]
		}
	}
	if l.Pen != nil {
		l.Pen.Pen(i, w, false)
	}
	z := floats.Sum(w)
	if !(z > 0) {
		return 0, fmt.Errorf("GeneralPeel: locus %v singleton %v; %w", l.Name, ind.ID, ErrZeroProbability)
	}
	if flags&Sample != 0 {
		k := int(distuv.NewCategorical(w, c.src).Rand())
		al := [2]int{k/n + 1, k%n + 1}
		c.setGenotype(l, i, al)
		l.Seg[0][i], l.Seg[1][i] = -1, -1
		if flags&CountAlleles != 0 {
			l.count(ind.Group, al[0])
			l.count(ind.Group, al[1])
		}
	}
	return math.Log(z), nil
}

func (c *PeelContext) writeGenes(l *Locus, gm *GeneMap, flags PeelFlags) {
	alle := make([]int, gm.NGenes())
	for g := range alle {
		a := c.assign[g] + 1
		if a < 1 || a > l.NAlleles {
			panic(fmt.Errorf("writeGenes: gene %v sampled allele %v out of range [1,%v]", g, a, l.NAlleles))
		}
		alle[g] = a
	}
	for j, i := range gm.Members {
		c.setGenotype(l, i, [2]int{alle[gm.Genes[j][0]], alle[gm.Genes[j][1]]})
	}
	if flags&CountAlleles != 0 {
		for g, owner := range gm.Owner {
			l.count(c.Ped.Inds[owner].Group, alle[g])
		}
	}
	if flags&ClearAmbiguousSeg == 0 || c.SIMode || !l.Linked {
		return
	}
	for _, i := range gm.Members {
		ind := &c.Ped.Inds[i]
		if ind.Founder() {
			l.Seg[0][i], l.Seg[1][i] = -1, -1
			continue
		}
		for s := 0; s < 2; s++ {
			pg := gm.Genes[gm.Pos[inheritedFrom(ind, s)]]
			if alle[pg[0]] == alle[pg[1]] {
				l.Seg[s][i] = -2
			}
		}
	}
}
