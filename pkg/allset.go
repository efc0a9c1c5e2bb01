package pedpeel

// PossibleAlleles expands s over alleles 1..n. mat holds every allowed
// maternal allele; pat[a] holds the paternal alleles allowed with maternal
// allele a. An empty set allows everything.
func PossibleAlleles(s GenotypeSet, n int) (mat AlleleSet, pat []AlleleSet) {
	full := FullAlleleSet(n)
	pat = make([]AlleleSet, n+1)
	if len(s) == 0 {
		for a := 1; a <= n; a++ {
			pat[a] = full
		}
		return full, pat
	}
	for _, g := range s {
		ps := full
		if g.Pat != 0 {
			ps = NewAlleleSet(g.Pat)
		}
		if g.Mat != 0 {
			mat = mat.Add(g.Mat)
			pat[g.Mat] = pat[g.Mat].Union(ps)
			continue
		}
		mat = full
		for a := 1; a <= n; a++ {
			pat[a] = pat[a].Union(ps)
		}
	}
	return mat, pat
}

// DeterminedSeg reports which parental allele kid k received in slot s when
// elimination alone settles it: 0 for the parent's maternal allele, 1 for
// the paternal one, -1 when not applicable and -2 when ambiguous.
func (el *Elimination) DeterminedSeg(k, s int) int {
	ind := &el.Ped.Inds[k]
	l := el.Marker.Linkage
	if ind.Founder() || !l.HasSlot(ind.Sex, s) {
		return -1
	}
	par := ind.Dam
	if s == 1 {
		par = ind.Sire
	}
	if l.NSlots(el.Ped.Inds[par].Sex) != 2 {
		return -1
	}
	if !el.Fixed(par) || !el.Fixed(k) {
		return -2
	}
	pg := el.Cands[par][0]
	x := el.Cands[k][0].Allele(s)
	switch {
	case pg.Mat == pg.Pat:
		return -2
	case x == pg.Mat:
		return 0
	case x == pg.Pat:
		return 1
	}
	return -2
}

// SegIndicators fills l.Seg with the indicators settled by elimination.
func (el *Elimination) SegIndicators(l *Locus) {
	n := len(el.Ped.Inds)
	for s := 0; s < 2; s++ {
		if len(l.Seg[s]) != n {
			l.Seg[s] = make([]int, n)
		}
		for k := 0; k < n; k++ {
			l.Seg[s][k] = el.DeterminedSeg(k, s)
		}
	}
}
