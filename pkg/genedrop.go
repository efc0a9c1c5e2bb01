package pedpeel

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// GeneDrop simulates genotypes for l by drawing founder alleles from the
// group frequencies and passing one parental allele to each child slot.
// Slots an individual does not carry stay 0.
func GeneDrop(ped *Pedigree, l *Locus, src rand.Source) []Genotype {
	gts := make([]Genotype, len(ped.Inds))
	coin := distuv.Bernoulli{P: 0.5, Src: src}
	founder := map[int]distuv.Categorical{}
	draw := func(g int) int {
		c, ok := founder[g]
		if !ok {
			c = distuv.NewCategorical(l.GroupFreq(g), src)
			founder[g] = c
		}
		return int(c.Rand()) + 1
	}

	for _, comp := range ped.Comps {
		for _, i := range comp.Members {
			ind := &ped.Inds[i]
			var g Genotype
			for s := 0; s < 2; s++ {
				if !l.Linkage.HasSlot(ind.Sex, s) {
					continue
				}
				p := inheritedFrom(ind, s)
				if p < 0 {
					g = g.WithAllele(s, draw(ind.Group))
					continue
				}
				g = g.WithAllele(s, transmitted(gts[p], coin))
			}
			gts[i] = g
		}
	}
	return gts
}

func transmitted(pg Genotype, coin distuv.Bernoulli) int {
	switch {
	case pg.Mat == 0:
		return pg.Pat
	case pg.Pat == 0:
		return pg.Mat
	case coin.Rand() == 0:
		return pg.Mat
	}
	return pg.Pat
}

// Observe turns simulated genotypes into unordered calls. Each call is
// dropped with probability missing; one-slot genotypes are called
// homozygous.
func Observe(name string, nall int, link Linkage, gts []Genotype, missing float64, src rand.Source) *Marker {
	mk := &Marker{Name: name, NAlleles: nall, Linkage: link, Calls: make([]Genotype, len(gts))}
	drop := distuv.Bernoulli{P: missing, Src: src}
	for i, g := range gts {
		if g.Wild() || (missing > 0 && drop.Rand() == 1) {
			continue
		}
		if g.Mat == 0 || g.Pat == 0 {
			a := g.Single()
			g = Genotype{a, a}
		}
		mk.Calls[i] = g
	}
	return mk
}

// MaskLike copies the missingness of ref onto mk.
func MaskLike(mk, ref *Marker) {
	for i := range mk.Calls {
		if ref.Call(i).Wild() {
			mk.Calls[i] = Genotype{}
		}
	}
}

// EmpiricalP is the share of null likelihoods at or below actual.
func EmpiricalP(actual float64, null []float64) float64 {
	if len(null) == 0 {
		return 1
	}
	n := 0
	for _, x := range null {
		if x <= actual {
			n++
		}
	}
	return float64(n) / float64(len(null))
}
