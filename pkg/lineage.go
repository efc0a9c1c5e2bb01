package pedpeel

import (
	"github.com/gammazero/deque"
	"golang.org/x/exp/slices"
)

// lineageParent is the parent that passes a uniparental allele to i, or -1.
func (el *Elimination) lineageParent(i int) int {
	ind := &el.Ped.Inds[i]
	if ind.Founder() {
		return -1
	}
	m, p := el.Marker.Linkage.Slots(ind.Sex)
	switch {
	case m:
		return ind.Dam
	case p:
		return ind.Sire
	}
	return -1
}

// lineage eliminates a Y, W or mitochondrial marker in component c. Carriers
// joined by transmission share a single allele.
func (el *Elimination) lineage(c int) {
	comp := &el.Ped.Comps[c]
	l := el.Marker.Linkage
	obs := map[int]int{}
	for _, i := range comp.Members {
		ind := &el.Ped.Inds[i]
		el.Cands[i] = nil
		el.raw[i] = nil
		el.version[i]++
		g := el.Marker.Call(i)
		if g.Wild() {
			continue
		}
		if !l.Carrier(ind.Sex) {
			el.record(YObsFemale, c, -1, i)
			continue
		}
		if g.Pat != 0 && g.Pat != g.Mat {
			if l == Mitochondrial {
				el.record(MitHetFemale, c, -1, i)
			} else {
				el.record(YHetMale, c, -1, i)
			}
			continue
		}
		obs[i] = g.Mat
		el.raw[i] = GenotypeSet{l.OneSlot(ind.Sex, g.Mat)}
	}

	seen := map[int]bool{}
	var q deque.Deque[int]
	for _, i := range comp.Members {
		if seen[i] || !l.Carrier(el.Ped.Inds[i].Sex) {
			continue
		}
		var line []int
		seen[i] = true
		q.PushBack(i)
		for q.Len() > 0 {
			j := q.PopFront()
			line = append(line, j)
			next := slices.Clone(el.Ped.Inds[j].Kids)
			if p := el.lineageParent(j); p >= 0 {
				next = append(next, p)
			}
			for _, k := range next {
				if seen[k] || !l.Carrier(el.Ped.Inds[k].Sex) {
					continue
				}
				if k != el.lineageParent(j) && el.lineageParent(k) != j {
					continue
				}
				seen[k] = true
				q.PushBack(k)
			}
		}
		el.resolveLineage(c, line, obs)
	}
}

func (el *Elimination) resolveLineage(c int, line []int, obs map[int]int) {
	slices.Sort(line)
	first, a := -1, 0
	conflict := false
	for _, i := range line {
		b, ok := obs[i]
		if !ok {
			continue
		}
		if first < 0 {
			first, a = i, b
			continue
		}
		if b != a {
			el.record(ElimPass2YM, c, -1, i)
			conflict = true
		}
	}
	switch {
	case first < 0:
		return
	case conflict:
		for _, i := range line {
			el.Cands[i] = el.raw[i].Clone()
		}
		if el.opts.Strict {
			el.skipped[c] = true
		}
		return
	}
	for _, i := range line {
		el.Cands[i] = GenotypeSet{el.Marker.Linkage.OneSlot(el.Ped.Inds[i].Sex, a)}
	}
}
