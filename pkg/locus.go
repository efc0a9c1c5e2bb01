package pedpeel

import (
	"errors"
	"math"
)

var (
	ErrZeroProbability = errors.New("zero probability configuration")
	ErrSegUnset        = errors.New("segregation indicator not set")
	ErrLinkage         = errors.New("unsupported linkage type")
	ErrTooManyAlleles  = errors.New("too many alleles")
)

type PeelFlags uint8

const (
	Sample PeelFlags = 1 << iota
	ClearAmbiguousSeg
	CountAlleles
	SampleFreq
)

// Penetrance multiplies the likelihood of individual i into tab. tab is
// indexed (mat-1)*n + pat-1 for two-slot individuals and a-1 for one-slot
// ones. It returns false, leaving tab untouched, when i has no data.
type Penetrance interface {
	Pen(i int, tab []float64, oneSlot bool) bool
}

// ResidualUpdater adjusts a quantitative model after individual i's genotype
// code changes.
type ResidualUpdater interface {
	Update(i, oldCode, newCode int)
}

// Locus is a marker or trait locus in a linkage group. Seg, Gt and Counts
// are written by sampling.
type Locus struct {
	Name     string
	NAlleles int
	Linkage  Linkage
	Trait    bool
	Linked   bool
	// Pos is the map position on the female (0) and male (1) maps, in cM.
	Pos         [2]float64
	Freq        [][]float64
	FreqFixed   []bool
	PriorCounts []float64
	Counts      [][]float64
	Cands       []GenotypeSet
	SkipComp    []bool
	Seg         [2][]int
	Gt          []int
	Pen         Penetrance
	Res         ResidualUpdater
}

func NewLocus(name string, nall, ngroups int, link Linkage) *Locus {
	l := &Locus{Name: name, NAlleles: nall, Linkage: link}
	l.Freq = make([][]float64, ngroups)
	for g := range l.Freq {
		l.Freq[g] = make([]float64, nall)
		for a := range l.Freq[g] {
			l.Freq[g][a] = 1 / float64(nall)
		}
	}
	return l
}

// GroupFreq returns the frequencies of genetic group g, falling back to
// group 0.
func (l *Locus) GroupFreq(g int) []float64 {
	if g < len(l.Freq) {
		return l.Freq[g]
	}
	return l.Freq[0]
}

func (l *Locus) cands(i int) GenotypeSet {
	if i < len(l.Cands) {
		return l.Cands[i]
	}
	return nil
}

func (l *Locus) ensure(n int) {
	if len(l.Gt) != n {
		l.Gt = make([]int, n)
	}
	for s := 0; s < 2; s++ {
		if len(l.Seg[s]) != n {
			l.Seg[s] = make([]int, n)
			for i := range l.Seg[s] {
				l.Seg[s][i] = -1
			}
		}
	}
}

func (l *Locus) count(g, a int) {
	for len(l.Counts) <= g {
		l.Counts = append(l.Counts, make([]float64, l.NAlleles))
	}
	l.Counts[g][a-1]++
}

// EffectModel is a Gaussian trait model with one effect per genotype code.
// Code 1 is the baseline with no effect; Eff[k-2] is the effect of code k.
type EffectModel struct {
	N   int
	Eff []float64
	Res []float64
	Var float64
	Has []bool
	Gt  []int
}

func (m *EffectModel) effect(k int) float64 {
	if k < 2 || k-2 >= len(m.Eff) {
		return 0
	}
	return m.Eff[k-2]
}

// Update moves the effect of individual i from oldCode to newCode. Pen reads
// the current code from Gt, so Gt is updated here as well.
func (m *EffectModel) Update(i, oldCode, newCode int) {
	m.Res[i] += m.effect(oldCode) - m.effect(newCode)
	if i < len(m.Gt) {
		m.Gt[i] = newCode
	}
}

func (m *EffectModel) Pen(i int, tab []float64, oneSlot bool) bool {
	if i >= len(m.Has) || !m.Has[i] {
		return false
	}
	cur := 1
	if i < len(m.Gt) && m.Gt[i] > 0 {
		cur = m.Gt[i]
	}
	y := m.Res[i] + m.effect(cur)
	dens := func(k int) float64 {
		d := y - m.effect(k)
		return math.Exp(-d * d / (2 * m.Var))
	}
	if oneSlot {
		for a := 1; a <= m.N; a++ {
			tab[a-1] *= dens(GenotypeCode(a, a))
		}
		return true
	}
	for a := 1; a <= m.N; a++ {
		for b := 1; b <= m.N; b++ {
			tab[(a-1)*m.N+b-1] *= dens(GenotypeCode(a, b))
		}
	}
	return true
}
