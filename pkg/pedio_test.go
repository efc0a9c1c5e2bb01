package pedpeel

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jgbaldwinbrown/iterh"
	log "github.com/sirupsen/logrus"
)

const testPed = "fam1\tf\t0\t0\t1\t0\t0\n" +
	"fam1\tm\t0\t0\t2\t0\t1\n" +
	"fam1\tk\tf\tm\t2\t1\t0\n"

func TestParsePed(t *testing.T) {
	ps, e := iterh.CollectWithError(ParsePed(strings.NewReader(testPed)))
	if e != nil {
		t.Fatal(e)
	}
	if len(ps) != 3 {
		t.Fatalf("got %v entries; want 3", len(ps))
	}
	want := PedEntry{FamilyID: "fam1", IndividualID: "k", PaternalID: "f", MaternalID: "m", Sex: 2, Phenotype: 1}
	if ps[2] != want {
		t.Errorf("got %v; want %v", ps[2], want)
	}
	if ps[1].Group != 1 {
		t.Errorf("got group %v; want 1", ps[1].Group)
	}

	ped := mustPed(t, ps...)
	if ped.NGroups != 2 {
		t.Errorf("got %v groups; want 2", ped.NGroups)
	}

	var b bytes.Buffer
	if e := WritePed(&b, ps); e != nil {
		t.Fatal(e)
	}
	if b.String() != testPed {
		t.Errorf("got %q; want %q", b.String(), testPed)
	}
}

func TestParsePedSafe(t *testing.T) {
	in := testPed + "fam1\tbad\t0\t0\tx\t0\t0\n"
	ps := ParsePedSafe(strings.NewReader(in), log.NewEntry(log.New()))
	if len(ps) != 3 {
		t.Errorf("got %v entries; want 3", len(ps))
	}
	_, e := iterh.CollectWithError(ParsePed(strings.NewReader("fam1\tshort\t0\n")))
	if !errors.Is(e, ParseError) {
		t.Errorf("got %v; want %v", e, ParseError)
	}
}

func TestBuildMarkers(t *testing.T) {
	ped := trioPed(t)
	genos := "f\tm1\t1\t2\n" +
		"k\tm1\t3\t1\n" +
		"m\tm2\t2\t2\n"
	ents, e := iterh.CollectWithError(ParseGenos(strings.NewReader(genos)))
	if e != nil {
		t.Fatal(e)
	}
	mks, e := BuildMarkers(ped, Autosomal, ents...)
	if e != nil {
		t.Fatal(e)
	}
	if len(mks) != 2 || mks[0].Name != "m1" || mks[1].Name != "m2" {
		t.Fatalf("got %v; want markers m1 m2", mks)
	}
	if mks[0].NAlleles != 3 {
		t.Errorf("got %v alleles; want 3", mks[0].NAlleles)
	}
	if got := mks[0].Call(idx(ped, "k")); got != (Genotype{3, 1}) {
		t.Errorf("got %v; want (3,1)", got)
	}
	if !mks[1].Call(idx(ped, "f")).Wild() {
		t.Errorf("untyped call not missing")
	}

	if _, e := BuildMarkers(ped, Autosomal, GenoEntry{IndividualID: "nobody", Marker: "m1", A1: 1, A2: 1}); !errors.Is(e, ErrUnknownParent) {
		t.Errorf("got %v; want %v", e, ErrUnknownParent)
	}

	var b bytes.Buffer
	if e := WriteGenos(&b, ped, mks...); e != nil {
		t.Fatal(e)
	}
	if b.String() != genos {
		t.Errorf("got %q; want %q", b.String(), genos)
	}
}

func TestApplyFreqsAndMap(t *testing.T) {
	l := NewLocus("m1", 3, 2, Autosomal)
	loci := map[string]*Locus{"m1": l}
	e := ApplyFreqs(loci,
		FreqEntry{Marker: "m1", Group: 1, Allele: 2, Freq: .5, Fixed: true},
		FreqEntry{Marker: "other", Group: 0, Allele: 1, Freq: .5},
	)
	if e != nil {
		t.Fatal(e)
	}
	for a, want := range []float64{.25, .5, .25} {
		if !near(l.Freq[1][a], want) {
			t.Errorf("allele %v: got %v; want %v", a+1, l.Freq[1][a], want)
		}
	}
	if !l.FreqFixed[1] || l.FreqFixed[0] {
		t.Errorf("got fixed %v", l.FreqFixed)
	}

	e = ApplyFreqs(loci,
		FreqEntry{Marker: "m1", Group: 0, Allele: 1, Freq: .9},
		FreqEntry{Marker: "m1", Allele: 4, Freq: .1},
	)
	if !errors.Is(e, ParseError) {
		t.Errorf("got %v; want %v", e, ParseError)
	}
	if !near(l.Freq[0][0], 1.0/3) {
		t.Errorf("invalid entries changed group 0: %v", l.Freq[0])
	}

	ApplyMap(loci, MapEntry{Marker: "m1", Female: 12, Male: 8})
	if !l.Linked || l.Pos != [2]float64{12, 8} {
		t.Errorf("got linked %v pos %v", l.Linked, l.Pos)
	}
}

func TestApplyFreqsRescales(t *testing.T) {
	l := NewLocus("m1", 2, 1, Autosomal)
	e := ApplyFreqs(map[string]*Locus{"m1": l},
		FreqEntry{Marker: "m1", Allele: 1, Freq: .6},
		FreqEntry{Marker: "m1", Allele: 2, Freq: .6},
	)
	if e != nil {
		t.Fatal(e)
	}
	if !near(l.Freq[0][0], .5) || !near(l.Freq[0][1], .5) {
		t.Errorf("got %v; want [.5 .5]", l.Freq[0])
	}
	if len(l.FreqFixed) != 0 {
		t.Errorf("got fixed %v; want none", l.FreqFixed)
	}
}

func TestParseFreqLine(t *testing.T) {
	f, e := ParseFreqLine([]string{"m1", "0", "2", "0.25", "fixed"})
	if e != nil {
		t.Fatal(e)
	}
	if want := (FreqEntry{"m1", 0, 2, .25, true}); f != want {
		t.Errorf("got %v; want %v", f, want)
	}
	if f, e = ParseFreqLine([]string{"m1", "0", "2", "0.25"}); e != nil || f.Fixed {
		t.Errorf("got %v, %v; want a free entry", f, e)
	}
	if _, e = ParseFreqLine([]string{"m1", "0", "2", "0.25", "maybe"}); !errors.Is(e, ParseError) {
		t.Errorf("got %v; want %v", e, ParseError)
	}
}

func TestWriteElimErrors(t *testing.T) {
	ped := trioPed(t)
	mk := marker(ped, Autosomal, 2, map[string]Genotype{
		"f": {1, 2},
		"m": {1, 1},
		"k": {2, 2},
	})
	el := Eliminate(ped, mk, ElimOptions{})
	var b bytes.Buffer
	if e := WriteElimErrors(&b, ped, el.Errors()...); e != nil {
		t.Fatal(e)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %q", b.String())
	}
	if want := "m1\tGEN_ELIM_PASS1\t0\tf\tm\tk"; lines[1] != want {
		t.Errorf("got %q; want %q", lines[1], want)
	}
}
