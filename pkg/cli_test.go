package pedpeel

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

func testInputs(t *testing.T) *Inputs {
	ped := threeGen(t)
	mk := marker(ped, Autosomal, 3, map[string]Genotype{
		"gf": {1, 2},
		"m":  {3, 3},
		"k1": {1, 3},
		"k2": {2, 3},
	})
	return &Inputs{Ped: ped, Markers: []*Marker{mk}, Linkage: Autosomal, Log: log.NewEntry(log.New())}
}

func TestRunPeel(t *testing.T) {
	in := testInputs(t)
	c := DefaultConfig()
	c.Iterations = 5
	c.SampleFreq = true
	els := in.Eliminate(false)
	loci, e := in.Loci(c, els)
	if e != nil {
		t.Fatal(e)
	}
	ctx := NewPeelContext(in.Ped, rand.NewSource(1), in.Log)
	base, likes, e := RunPeel(ctx, loci, c)
	if e != nil {
		t.Fatal(e)
	}
	if len(base) != 1 || base[0] >= 0 {
		t.Errorf("got base likelihoods %v", base)
	}
	if len(likes[0]) != 5 {
		t.Errorf("got %v iterations; want 5", len(likes[0]))
	}
}

func TestGeneDropTest(t *testing.T) {
	in := testInputs(t)
	c := DefaultConfig()
	c.Replicates = 10
	ps, e := GeneDropTest(in, c, rand.NewSource(2))
	if e != nil {
		t.Fatal(e)
	}
	p, ok := ps["m1"]
	if !ok || p < 0 || p > 1 {
		t.Errorf("got %v", ps)
	}
}

func TestLociFreqFile(t *testing.T) {
	ped := trioPed(t)
	mk := marker(ped, Autosomal, 2, map[string]Genotype{
		"f": {1, 2},
		"m": {1, 1},
	})
	in := &Inputs{Ped: ped, Markers: []*Marker{mk}, Linkage: Autosomal, Log: log.NewEntry(log.New())}
	path := filepath.Join(t.TempDir(), "freqs.txt")
	if e := os.WriteFile(path, []byte("m1\t0\t1\t0.5\nm1\t0\t2\t0.3\nm1\t0\t3\t0.2\n"), 0644); e != nil {
		t.Fatal(e)
	}
	c := DefaultConfig()
	c.FreqPath = path
	loci, e := in.Loci(c, in.Eliminate(false))
	if e != nil {
		t.Fatal(e)
	}
	l := loci[0]
	if l.NAlleles != 3 {
		t.Fatalf("got %v alleles; want 3", l.NAlleles)
	}
	for a, want := range []float64{.5, .3, .2} {
		if !near(l.Freq[0][a], want) {
			t.Errorf("allele %v: got %v; want %v", a+1, l.Freq[0][a], want)
		}
	}

	ctx := NewPeelContext(ped, rand.NewSource(3), in.Log)
	if _, e := ctx.PeelLocus(loci, 0, Sample|SampleFreq); e != nil {
		t.Fatal(e)
	}
	if near(l.Freq[0][2], .2) {
		t.Errorf("loaded frequencies were not resampled: %v", l.Freq[0])
	}
}
