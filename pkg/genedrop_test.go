package pedpeel

import (
	"testing"

	"golang.org/x/exp/rand"
)

func TestGeneDropConsistent(t *testing.T) {
	ped := threeGen(t)
	src := rand.NewSource(3)
	for _, link := range []Linkage{Autosomal, XLinked, YLinked} {
		l := NewLocus("sim", 4, 1, link)
		for r := 0; r < 20; r++ {
			gts := GeneDrop(ped, l, src)
			for i, g := range gts {
				m, p := link.Slots(ped.Inds[i].Sex)
				if (g.Mat != 0) != m || (g.Pat != 0) != p {
					t.Fatalf("%v: individual %v got %v", link, ped.Inds[i].ID, g)
				}
			}
			mk := Observe("sim", 4, link, gts, 0, src)
			el := Eliminate(ped, mk, ElimOptions{})
			if len(el.Errors()) != 0 {
				t.Fatalf("%v: simulated data inconsistent: %v", link, el.Errors())
			}
		}
	}
}

func TestObserveMissing(t *testing.T) {
	ped := threeGen(t)
	l := NewLocus("sim", 2, 1, Autosomal)
	gts := GeneDrop(ped, l, rand.NewSource(1))
	mk := Observe("sim", 2, Autosomal, gts, 1, rand.NewSource(1))
	for i := range mk.Calls {
		if !mk.Call(i).Wild() {
			t.Errorf("call %v kept at missing rate 1", mk.Calls[i])
		}
	}

	full := Observe("sim", 2, Autosomal, gts, 0, rand.NewSource(1))
	ref := &Marker{Calls: make([]Genotype, len(gts))}
	ref.Calls[0] = Genotype{1, 1}
	MaskLike(full, ref)
	if full.Call(0).Wild() || !full.Call(1).Wild() {
		t.Errorf("got %v; want only the first call kept", full.Calls)
	}
}

func TestEmpiricalP(t *testing.T) {
	if got := EmpiricalP(-3, []float64{-1, -2, -3, -4}); got != .5 {
		t.Errorf("got %v; want .5", got)
	}
	if got := EmpiricalP(0, nil); got != 1 {
		t.Errorf("got %v; want 1", got)
	}
}
