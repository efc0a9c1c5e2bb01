package pedpeel

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// alleleClasses maps alleles to peeling values. Alleles nobody in a
// component can carry specifically share one class.
type alleleClasses struct {
	dom     int
	classOf []int
	alleles [][]int
}

func identityClasses(n int) alleleClasses {
	ac := alleleClasses{dom: n, classOf: make([]int, n+1), alleles: make([][]int, n)}
	for a := 1; a <= n; a++ {
		ac.classOf[a] = a - 1
		ac.alleles[a-1] = []int{a}
	}
	return ac
}

func lumpClasses(l *Locus, members []int) alleleClasses {
	n := l.NAlleles
	var seen AlleleSet
	for _, i := range members {
		for _, g := range l.cands(i) {
			seen = seen.Add(g.Mat).Add(g.Pat)
		}
	}
	keep := seen.Alleles()
	if len(keep) >= n-1 {
		return identityClasses(n)
	}
	ac := alleleClasses{dom: len(keep) + 1, classOf: make([]int, n+1), alleles: make([][]int, len(keep)+1)}
	for a := 1; a <= n; a++ {
		cls := len(keep)
		if k := slices.Index(keep, a); k >= 0 {
			cls = k
		}
		ac.classOf[a] = cls
		ac.alleles[cls] = append(ac.alleles[cls], a)
	}
	return ac
}

func (ac alleleClasses) freqs(l *Locus, g int) []float64 {
	f := l.GroupFreq(g)
	out := make([]float64, ac.dom)
	for a := 1; a <= l.NAlleles; a++ {
		out[ac.classOf[a]] += f[a-1]
	}
	return out
}

// PeelLocus returns the log likelihood of loci[idx] summed over components.
// The other loci supply segregation indicators for the transmission model.
// With Sample set a joint genotype draw is written to Gt and Seg; with
// SampleFreq as well the allele frequencies are redrawn from the founders.
// CountAlleles accumulates the sampled founder alleles in l.Counts.
func (c *PeelContext) PeelLocus(loci []*Locus, idx int, flags PeelFlags) (float64, error) {
	l := loci[idx]
	if l.NAlleles > MaxAlleles {
		return 0, fmt.Errorf("PeelLocus: locus %v; %v alleles; %w", l.Name, l.NAlleles, ErrTooManyAlleles)
	}
	sample := flags&Sample != 0
	if sample {
		l.ensure(len(c.Ped.Inds))
		c.counts = make([][]float64, c.Ped.NGroups)
		for g := range c.counts {
			c.counts[g] = make([]float64, l.NAlleles)
		}
	}
	like := 0.0
	for ci := range c.Ped.Comps {
		if ci < len(l.SkipComp) && l.SkipComp[ci] {
			continue
		}
		lk, e := c.peelComponent(loci, idx, ci, flags)
		c.pool.releaseAll()
		if e != nil {
			return like, fmt.Errorf("PeelLocus: locus %v component %v; %w", l.Name, ci, e)
		}
		like += lk
	}
	if sample && flags&SampleFreq != 0 {
		SampleFreqs(l, c.counts, c.src)
	}
	c.Log.WithFields(log.Fields{"locus": l.Name, "like": like}).Debug("peeled locus")
	return like, nil
}

func (c *PeelContext) peelComponent(loci []*Locus, idx, ci int, flags PeelFlags) (float64, error) {
	l := loci[idx]
	sample := flags&Sample != 0
	seq := c.sequence(ci, l.Linkage)
	ac := identityClasses(l.NAlleles)
	if !sample && l.Pen == nil {
		ac = lumpClasses(l, seq.Members)
		if ac.dom < 2 {
			return 0, nil
		}
	}

	pr := &problem{nvar: seq.NVar, dom: ac.dom, prior: make([][]float64, seq.NVar)}
	gfreq := map[int][]float64{}
	for j, i := range seq.Members {
		ind := &c.Ped.Inds[i]
		sl := seq.Slots[j]
		if ind.Founder() {
			f, ok := gfreq[ind.Group]
			if !ok {
				f = ac.freqs(l, ind.Group)
				gfreq[ind.Group] = f
			}
			for _, v := range sl {
				if v >= 0 {
					pr.prior[v] = f
				}
			}
		} else {
			for s, kv := range sl {
				if kv < 0 {
					continue
				}
				pv := seq.vars(inheritedFrom(ind, s))
				pr.facs = append(pr.facs, c.transmissionFactor(pv, kv, ac.dom, transmissionProbs(loci, idx, i, s)))
			}
		}
		if rf := c.obsFactor(l, i, seq.vars(i), sl, ac); rf != nil {
			pr.facs = append(pr.facs, rf)
		}
	}

	like, e := c.run(pr, seq.Steps, sample)
	if e != nil {
		return like, e
	}
	if sample {
		c.writeSample(loci, idx, seq, flags)
	}
	return like, nil
}

func (c *PeelContext) transmissionFactor(pv []int, kv, dom int, tp [2]float64) *rfunc {
	switch len(pv) {
	case 2:
		rf := c.pool.acquire(3, dom)
		rf.vars = append(rf.vars, pv[0], pv[1], kv)
		for a := 0; a < dom; a++ {
			for b := 0; b < dom; b++ {
				base := (a*dom + b) * dom
				rf.p[base+a] += tp[0]
				rf.p[base+b] += tp[1]
			}
		}
		return rf
	case 1:
		rf := c.pool.acquire(2, dom)
		rf.vars = append(rf.vars, pv[0], kv)
		for a := 0; a < dom; a++ {
			rf.p[a*dom+a] = 1
		}
		return rf
	}
	panic(fmt.Errorf("transmissionFactor: parent carries %v slots", len(pv)))
}

func (c *PeelContext) obsFactor(l *Locus, i int, vars []int, sl [2]int, ac alleleClasses) *rfunc {
	if len(vars) == 0 {
		return nil
	}
	dom := ac.dom
	rf := c.pool.acquire(len(vars), dom)
	rf.vars = append(rf.vars, vars...)
	cands := l.cands(i)
	informative := len(cands) > 0
	if informative {
		mat, pat := PossibleAlleles(cands, l.NAlleles)
		if len(vars) == 2 {
			for cm := 0; cm < dom; cm++ {
				for cp := 0; cp < dom; cp++ {
					rf.p[cm*dom+cp] = admit2(mat, pat, ac.alleles[cm], ac.alleles[cp])
				}
			}
		} else {
			allowed := mat
			if sl[0] < 0 {
				allowed = 0
				for _, ps := range pat {
					allowed = allowed.Union(ps)
				}
			}
			for cls := 0; cls < dom; cls++ {
				for _, a := range ac.alleles[cls] {
					if allowed.Has(a) {
						rf.p[cls] = 1
					}
				}
			}
		}
	} else {
		for k := range rf.p {
			rf.p[k] = 1
		}
	}
	if l.Pen != nil && dom == l.NAlleles && l.Pen.Pen(i, rf.p, len(vars) == 1) {
		informative = true
	}
	if !informative {
		c.pool.release(rf)
		return nil
	}
	return rf
}

func admit2(mat AlleleSet, pat []AlleleSet, as, bs []int) float64 {
	for _, a := range as {
		if !mat.Has(a) {
			continue
		}
		for _, b := range bs {
			if pat[a].Has(b) {
				return 1
			}
		}
	}
	return 0
}

// writeSample stores the joint draw in c.assign as genotype codes and
// segregation indicators. Lumping is off when sampling, so value v is
// allele v+1. With CountAlleles set founder alleles are added to l.Counts.
func (c *PeelContext) writeSample(loci []*Locus, idx int, seq *PeelSequence, flags PeelFlags) {
	l := loci[idx]
	alle := make([][2]int, len(seq.Members))
	for j, i := range seq.Members {
		ind := &c.Ped.Inds[i]
		for s, v := range seq.Slots[j] {
			if v < 0 {
				continue
			}
			a := c.assign[v] + 1
			if a < 1 || a > l.NAlleles {
				panic(fmt.Errorf("writeSample: individual %v sampled allele %v out of range [1,%v]", ind.ID, a, l.NAlleles))
			}
			alle[j][s] = a
		}
		c.setGenotype(l, i, alle[j])

		if ind.Founder() {
			for s, a := range alle[j] {
				l.Seg[s][i] = -1
				if a <= 0 {
					continue
				}
				c.counts[min(ind.Group, len(c.counts)-1)][a-1]++
				if flags&CountAlleles != 0 {
					l.count(ind.Group, a)
				}
			}
			continue
		}
		for s := 0; s < 2; s++ {
			l.Seg[s][i] = -1
			if seq.Slots[j][s] < 0 {
				continue
			}
			par := seq.Pos[inheritedFrom(ind, s)]
			if seq.Slots[par][0] < 0 || seq.Slots[par][1] < 0 {
				continue
			}
			l.Seg[s][i] = c.segIndicator(loci, idx, i, s, alle[par], alle[j][s])
		}
	}
}

func (c *PeelContext) setGenotype(l *Locus, i int, al [2]int) {
	code := 0
	switch {
	case al[0] > 0 && al[1] > 0:
		code = GenotypeCode(al[0], al[1])
	case al[0] > 0:
		code = GenotypeCode(al[0], al[0])
	case al[1] > 0:
		code = GenotypeCode(al[1], al[1])
	}
	if l.Res != nil && code > 0 {
		old := l.Gt[i]
		if old <= 0 {
			old = 1
		}
		l.Res.Update(i, old, code)
	}
	l.Gt[i] = code
}

func (c *PeelContext) segIndicator(loci []*Locus, idx, k, s int, par [2]int, x int) int {
	l := loci[idx]
	if par[0] != par[1] {
		if x == par[0] {
			return 0
		}
		return 1
	}
	if c.SIMode || (l.Trait && !l.Linked) {
		tp := transmissionProbs(loci, idx, k, s)
		if c.rng.Float64() < tp[0] {
			return 0
		}
		return 1
	}
	return -2
}
