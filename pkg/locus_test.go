package pedpeel

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestEffectModelSampling(t *testing.T) {
	ped := threeGen(t)
	n := ped.Len()
	l := NewLocus("qtl", 2, 1, Autosomal)
	l.Trait = true
	l.ensure(n)
	y := []float64{0.1, 1.9, 1.2, -0.3, 2.2, 0.8, 1.0}
	m := &EffectModel{N: 2, Eff: []float64{1, 2}, Res: append([]float64(nil), y...), Var: 1, Has: make([]bool, n), Gt: make([]int, n)}
	for i := range m.Has {
		m.Has[i] = i != idx(ped, "u")
	}
	l.Pen, l.Res = m, m

	c := NewPeelContext(ped, rand.NewSource(9), nil)
	for it := 0; it < 20; it++ {
		like, e := c.PeelLocus([]*Locus{l}, 0, Sample)
		if e != nil {
			t.Fatal(e)
		}
		if math.IsNaN(like) || math.IsInf(like, 0) {
			t.Fatalf("got like %v", like)
		}
		for i := range y {
			if got := m.Res[i] + m.effect(l.Gt[i]); math.Abs(got-y[i]) > 1e-9 {
				t.Fatalf("individual %v: residual plus effect %v; want %v", ped.Inds[i].ID, got, y[i])
			}
		}
		for _, id := range []string{"f", "k1", "k2", "u"} {
			i := idx(ped, id)
			for s := 0; s < 2; s++ {
				if sg := l.Seg[s][i]; sg != 0 && sg != 1 {
					t.Fatalf("%v slot %v: got indicator %v; want 0 or 1", id, s, sg)
				}
			}
		}
	}
}

func TestEffectModelUpdate(t *testing.T) {
	m := &EffectModel{N: 2, Eff: []float64{1, 2}, Res: []float64{1.5}, Var: 1, Has: []bool{true}, Gt: []int{1}}
	before := []float64{1, 1, 1, 1}
	m.Pen(0, before, false)
	code := GenotypeCode(2, 2)
	m.Update(0, 1, code)
	if m.Gt[0] != code {
		t.Errorf("got code %v; want %v", m.Gt[0], code)
	}
	after := []float64{1, 1, 1, 1}
	m.Pen(0, after, false)
	for k := range before {
		if math.Abs(before[k]-after[k]) > 1e-12 {
			t.Errorf("cell %v: got %v after update; want %v", k, after[k], before[k])
		}
	}
}

func TestLinkageSlots(t *testing.T) {
	tests := []struct {
		l         Linkage
		sex       int64
		mat, pat  bool
		hemi, uni bool
	}{
		{Autosomal, Male, true, true, false, false},
		{XLinked, Male, true, false, true, false},
		{XLinked, Female, true, true, false, false},
		{ZLinked, Female, false, true, true, false},
		{YLinked, Male, false, true, false, true},
		{YLinked, Female, false, false, false, true},
		{WLinked, Female, true, false, false, true},
		{Mitochondrial, Male, true, false, false, true},
	}
	for _, test := range tests {
		m, p := test.l.Slots(test.sex)
		if m != test.mat || p != test.pat {
			t.Errorf("%v sex %v: got %v %v; want %v %v", test.l, test.sex, m, p, test.mat, test.pat)
		}
		if got := test.l.Hemizygous(test.sex); got != test.hemi {
			t.Errorf("%v sex %v hemizygous: got %v; want %v", test.l, test.sex, got, test.hemi)
		}
		if got := test.l.Uniparental(); got != test.uni {
			t.Errorf("%v uniparental: got %v; want %v", test.l, got, test.uni)
		}
	}
	if g := YLinked.OneSlot(Male, 3); g != (Genotype{0, 3}) {
		t.Errorf("got %v; want (0,3)", g)
	}
	for _, s := range []string{"autosomal", "X", "mit", "w"} {
		if _, e := ParseLinkage(s); e != nil {
			t.Errorf("%v: %v", s, e)
		}
	}
	if _, e := ParseLinkage("q"); e == nil {
		t.Errorf("parsed unknown linkage")
	}
}

func TestPossibleAlleles(t *testing.T) {
	mat, pat := PossibleAlleles(GenotypeSet{{1, 2}, {3, 0}}, 3)
	if mat != NewAlleleSet(1, 3) {
		t.Errorf("got mat %v", mat.Alleles())
	}
	if pat[1] != NewAlleleSet(2) || pat[3] != FullAlleleSet(3) || !pat[2].Empty() {
		t.Errorf("got pat %v", pat)
	}
	mat, _ = PossibleAlleles(nil, 3)
	if mat != FullAlleleSet(3) {
		t.Errorf("empty set got %v", mat.Alleles())
	}
}

func TestSegIndicators(t *testing.T) {
	ped := threeGen(t)
	mk := marker(ped, Autosomal, 3, map[string]Genotype{
		"gf": {1, 1},
		"gm": {2, 3},
		"f":  {1, 2},
		"m":  {3, 3},
		"k1": {1, 3},
	})
	el := Eliminate(ped, mk, ElimOptions{})
	if len(el.Errors()) != 0 {
		t.Fatal(el.Errors())
	}
	l := NewLocus("m1", 3, 1, Autosomal)
	el.SegIndicators(l)
	f, k1, k2 := idx(ped, "f"), idx(ped, "k1"), idx(ped, "k2")
	// f is (2,1) by phase, so k1's paternal 1 is f's paternal allele
	if got := l.Seg[1][k1]; got != 1 {
		t.Errorf("k1 paternal: got %v; want 1", got)
	}
	if got := l.Seg[0][f]; got != -2 {
		t.Errorf("f maternal from an unphased dam: got %v; want -2", got)
	}
	if got := l.Seg[1][f]; got != -2 {
		t.Errorf("f paternal from homozygous sire: got %v; want -2", got)
	}
	if got := l.Seg[0][k2]; got != -2 {
		t.Errorf("untyped k2: got %v; want -2", got)
	}
	if got := l.Seg[0][idx(ped, "gf")]; got != -1 {
		t.Errorf("founder: got %v; want -1", got)
	}
}
