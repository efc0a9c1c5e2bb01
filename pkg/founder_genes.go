package pedpeel

import (
	"fmt"
)

// GeneMap assigns founder genes to the members of a component. Founders own
// two new genes each; everyone else carries the parental genes picked by
// their segregation indicators.
type GeneMap struct {
	Members []int
	Genes   [][2]int
	Owner   []int
	Pos     map[int]int
}

func (gm *GeneMap) NGenes() int {
	return len(gm.Owner)
}

func PassFounderGenes(ped *Pedigree, ci int, l *Locus) (*GeneMap, error) {
	comp := &ped.Comps[ci]
	gm := &GeneMap{
		Members: comp.Members,
		Genes:   make([][2]int, len(comp.Members)),
		Pos:     make(map[int]int, len(comp.Members)),
	}
	for j, i := range comp.Members {
		gm.Pos[i] = j
		ind := &ped.Inds[i]
		if ind.Founder() {
			n := len(gm.Owner)
			gm.Genes[j] = [2]int{n, n + 1}
			gm.Owner = append(gm.Owner, i, i)
			continue
		}
		for s := 0; s < 2; s++ {
			sg := -1
			if i < len(l.Seg[s]) {
				sg = l.Seg[s][i]
			}
			if sg < 0 || sg > 1 {
				return nil, fmt.Errorf("PassFounderGenes: individual %v slot %v; %w", ind.ID, s, ErrSegUnset)
			}
			gm.Genes[j][s] = gm.Genes[gm.Pos[inheritedFrom(ind, s)]][sg]
		}
	}
	return gm, nil
}
