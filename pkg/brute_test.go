package pedpeel

import (
	"fmt"
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

type slotRef struct {
	i, s int
}

func evenOdds(k, s int) [2]float64 {
	return [2]float64{.5, .5}
}

// bruteLike sums the probability of every ordered allele assignment to the
// carried slots of ped. tp gives the chance that kid k's slot s holds its
// parent's maternal or paternal allele when the parent carries both.
func bruteLike(ped *Pedigree, l *Locus, tp func(k, s int) [2]float64) float64 {
	pos := map[slotRef]int{}
	for i := range ped.Inds {
		for s := 0; s < 2; s++ {
			if l.Linkage.HasSlot(ped.Inds[i].Sex, s) {
				pos[slotRef{i, s}] = len(pos)
			}
		}
	}
	alle := make([]int, len(pos))
	for k := range alle {
		alle[k] = 1
	}
	total := 0.0
	for {
		total += bruteWeight(ped, l, pos, alle, tp)
		k := 0
		for ; k < len(alle); k++ {
			if alle[k] < l.NAlleles {
				alle[k]++
				break
			}
			alle[k] = 1
		}
		if k == len(alle) {
			return total
		}
	}
}

func bruteWeight(ped *Pedigree, l *Locus, pos map[slotRef]int, alle []int, tp func(k, s int) [2]float64) float64 {
	w := 1.0
	for i := range ped.Inds {
		ind := &ped.Inds[i]
		var own [2]int
		for s := 0; s < 2; s++ {
			k, ok := pos[slotRef{i, s}]
			if !ok {
				continue
			}
			a := alle[k]
			own[s] = a
			if ind.Founder() {
				w *= l.GroupFreq(ind.Group)[a-1]
				continue
			}
			p := inheritedFrom(ind, s)
			pm, okm := pos[slotRef{p, 0}]
			pp, okp := pos[slotRef{p, 1}]
			switch {
			case okm && okp:
				pr := tp(i, s)
				x := 0.0
				if alle[pm] == a {
					x += pr[0]
				}
				if alle[pp] == a {
					x += pr[1]
				}
				w *= x
			case okm && alle[pm] != a, okp && alle[pp] != a:
				return 0
			case !okm && !okp:
				panic(fmt.Sprintf("bruteWeight: %v slot %v has no source", ind.ID, s))
			}
		}
		if !bruteAdmits(l.cands(i), own) {
			return 0
		}
	}
	return w
}

func bruteAdmits(cands GenotypeSet, own [2]int) bool {
	if len(cands) == 0 {
		return true
	}
	for _, c := range cands {
		ok := true
		for s, a := range own {
			if b := c.Allele(s); a != 0 && b != 0 && b != a {
				ok = false
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// loopPed has a full-sib mating.
func loopPed(t *testing.T) *Pedigree {
	return mustPed(t,
		ent("gf", "0", "0", Male),
		ent("gm", "0", "0", Female),
		ent("b", "gf", "gm", Male),
		ent("s", "gf", "gm", Female),
		ent("k", "b", "s", Male),
	)
}

func TestPeelLocusBruteForce(t *testing.T) {
	tests := []struct {
		name string
		ped  *Pedigree
		nall int
	}{
		{"three generations", threeGen(t), 2},
		{"sib mating", loopPed(t), 3},
	}
	links := []Linkage{Autosomal, XLinked, ZLinked, YLinked, WLinked, Mitochondrial}
	for _, test := range tests {
		ped := test.ped
		for _, link := range links {
			for seed := uint64(1); seed <= 3; seed++ {
				src := rand.NewSource(seed)
				sim := NewLocus("m1", test.nall, 1, link)
				for a := range sim.Freq[0] {
					sim.Freq[0][a] = float64(a+1) / float64(test.nall*(test.nall+1)/2)
				}
				mk := Observe("m1", test.nall, link, GeneDrop(ped, sim, src), .3, src)
				l := elimLocus(t, ped, mk)
				l.Freq[0] = sim.Freq[0]
				want := math.Log(bruteLike(ped, l, evenOdds))

				c := NewPeelContext(ped, rand.NewSource(seed), nil)
				for _, flags := range []PeelFlags{0, Sample} {
					got, e := c.PeelLocus([]*Locus{l}, 0, flags)
					if e != nil {
						t.Fatalf("%v %v seed %v: %v", test.name, link, seed, e)
					}
					if !near(got, want) {
						t.Errorf("%v %v seed %v flags %v: got %v; want %v", test.name, link, seed, flags, got, want)
					}
				}
				for i, k := range l.Gt {
					if k > 0 && !admitted(l.Cands[i], k) {
						t.Errorf("%v %v seed %v: %v sampled code %v outside %v", test.name, link, seed, ped.Inds[i].ID, k, l.Cands[i])
					}
				}
				if c.pool.inUse() != 0 {
					t.Errorf("%v %v: live R-functions after peeling", test.name, link)
				}
			}
		}
	}
}

func TestPeelLinkedLoci(t *testing.T) {
	ped := mustPed(t,
		ent("f", "0", "0", Male),
		ent("m", "0", "0", Female),
		ent("k1", "f", "m", Female),
		ent("k2", "f", "m", Male),
	)
	k1, k2 := idx(ped, "k1"), idx(ped, "k2")
	a := NewLocus("a", 2, 1, Autosomal)
	a.ensure(ped.Len())
	a.Linked = true
	a.Seg[1][k1], a.Seg[1][k2] = 0, 0

	b := elimLocus(t, ped, marker(ped, Autosomal, 2, map[string]Genotype{
		"f":  {1, 2},
		"m":  {1, 1},
		"k1": {1, 2},
		"k2": {1, 2},
	}))
	b.Linked = true
	b.Pos = [2]float64{10, 10}

	th := Haldane(10)
	tp := func(k, s int) [2]float64 {
		if s == 1 && (k == k1 || k == k2) {
			return [2]float64{1 - th, th}
		}
		return evenOdds(k, s)
	}
	want := math.Log(bruteLike(ped, b, tp))
	// both kids take the father's 2; it is his paternal allele in one phase
	if closed := math.Log((th*th + (1-th)*(1-th)) / 16); !near(want, closed) {
		t.Fatalf("enumeration %v disagrees with closed form %v", want, closed)
	}

	c := NewPeelContext(ped, rand.NewSource(1), nil)
	loci := []*Locus{a, b}
	got, e := c.PeelLocus(loci, 1, 0)
	if e != nil {
		t.Fatal(e)
	}
	if !near(got, want) {
		t.Errorf("linked: got %v; want %v", got, want)
	}
	got, e = c.PeelLocus(loci, 1, Sample)
	if e != nil {
		t.Fatal(e)
	}
	if !near(got, want) {
		t.Errorf("linked sample: got %v; want %v", got, want)
	}

	b.Linked = false
	if got, e = c.PeelLocus(loci, 1, 0); e != nil {
		t.Fatal(e)
	}
	if want := math.Log(1.0 / 32); !near(got, want) {
		t.Errorf("unlinked: got %v; want %v", got, want)
	}
}
