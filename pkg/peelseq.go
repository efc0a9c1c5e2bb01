package pedpeel

import (
	log "github.com/sirupsen/logrus"
)

type seqKey struct {
	comp int
	link Linkage
}

// PeelSequence is the elimination order for the allele-slot variables of
// one component. Slots holds the variable of each member's maternal and
// paternal slot, or -1 when the slot is not carried.
type PeelSequence struct {
	Comp    int
	Linkage Linkage
	Members []int
	Slots   [][2]int
	Pos     map[int]int
	NVar    int
	Steps   []PeelStep
}

func (seq *PeelSequence) vars(i int) []int {
	var out []int
	for _, v := range seq.Slots[seq.Pos[i]] {
		if v >= 0 {
			out = append(out, v)
		}
	}
	return out
}

// inheritedFrom is the parent passing slot s to i.
func inheritedFrom(ind *Individual, s int) int {
	if s == 0 {
		return ind.Dam
	}
	return ind.Sire
}

// BuildPeelSequence orders the variables of component ci assuming every
// member carries an observation. The order stays valid for any subset of
// observations.
func (c *PeelContext) BuildPeelSequence(ci int, link Linkage) *PeelSequence {
	comp := &c.Ped.Comps[ci]
	seq := &PeelSequence{
		Comp:    ci,
		Linkage: link,
		Members: comp.Members,
		Slots:   make([][2]int, len(comp.Members)),
		Pos:     make(map[int]int, len(comp.Members)),
	}
	for j, i := range comp.Members {
		seq.Pos[i] = j
		seq.Slots[j] = [2]int{-1, -1}
		m, p := link.Slots(c.Ped.Inds[i].Sex)
		if m {
			seq.Slots[j][0] = seq.NVar
			seq.NVar++
		}
		if p {
			seq.Slots[j][1] = seq.NVar
			seq.NVar++
		}
	}

	var scopes [][]int
	for j, i := range comp.Members {
		ind := &c.Ped.Inds[i]
		if own := seq.vars(i); len(own) > 1 {
			scopes = append(scopes, own)
		}
		if ind.Founder() {
			continue
		}
		for s, kv := range seq.Slots[j] {
			if kv < 0 {
				continue
			}
			sc := append(seq.vars(inheritedFrom(ind, s)), kv)
			scopes = append(scopes, sc)
		}
	}
	seq.Steps = c.graph.minDegreeOrder(seq.NVar, scopes)
	c.Log.WithFields(log.Fields{"component": ci, "linkage": link, "steps": len(seq.Steps)}).Debug("built peel sequence")
	return seq
}

func (c *PeelContext) sequence(ci int, link Linkage) *PeelSequence {
	k := seqKey{ci, link}
	if seq, ok := c.seqs[k]; ok {
		return seq
	}
	seq := c.BuildPeelSequence(ci, link)
	c.seqs[k] = seq
	return seq
}
