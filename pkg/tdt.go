package pedpeel

import (
	"fmt"
	"io"
	"math"

	"github.com/jgbaldwinbrown/csvh"
	"gonum.org/v1/gonum/stat/distuv"
)

func ChiSqTrio(b, c float64) float64 {
	if b+c == 0 {
		return 0
	}
	chisq := ((b - c) * (b - c)) / (b + c)
	return chisq
}

// TDTResult counts transmissions of one allele from heterozygous parents
// carrying it: B transmitted, C not.
type TDTResult struct {
	Marker string
	Allele int
	B      float64
	C      float64
	Chisq  float64
	P      float64
}

// parentPattern returns the unordered genotype of a diploid parent whose
// alleles are known up to phase.
func (el *Elimination) parentPattern(i int) (Pattern, bool) {
	if el.Marker.Linkage.NSlots(el.Ped.Inds[i].Sex) != 2 {
		return Pattern{}, false
	}
	if !el.Fixed(i) && !el.knownApartFromPhase(i) {
		return Pattern{}, false
	}
	g := el.Cands[i][0]
	return NewPattern(g.Mat, g.Pat), true
}

// TDT tests allele against the transmissions from heterozygous parents to
// children whose genotype elimination settled.
func (el *Elimination) TDT(allele int) TDTResult {
	res := TDTResult{Marker: el.Marker.Name, Allele: allele}
	l := el.Marker.Linkage
	for k := range el.Ped.Inds {
		ind := &el.Ped.Inds[k]
		if ind.Founder() || !el.Fixed(k) {
			continue
		}
		for s := 0; s < 2; s++ {
			if !l.HasSlot(ind.Sex, s) {
				continue
			}
			pt, ok := el.parentPattern(inheritedFrom(ind, s))
			if !ok || pt[0] == pt[1] || !pt.Has(allele) {
				continue
			}
			if el.Cands[k][0].Allele(s) == allele {
				res.B++
			} else {
				res.C++
			}
		}
	}
	res.Chisq = ChiSqTrio(res.B, res.C)
	dist := distuv.ChiSquared{K: 1}
	res.P = 1 - dist.CDF(math.Abs(res.Chisq))
	return res
}

func (el *Elimination) TDTAll() []TDTResult {
	out := make([]TDTResult, 0, el.Marker.NAlleles)
	for a := 1; a <= el.Marker.NAlleles; a++ {
		out = append(out, el.TDT(a))
	}
	return out
}

func WriteTDT(w io.Writer, rs ...TDTResult) error {
	if _, e := fmt.Fprintf(w, "marker\tallele\tb\tc\tchisq\tp\n"); e != nil {
		return e
	}
	for _, r := range rs {
		if _, e := fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n", r.Marker, r.Allele, r.B, r.C, r.Chisq, r.P); e != nil {
			return e
		}
	}
	return nil
}

func WriteTDTPath(path string, rs ...TDTResult) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()
	return WriteTDT(w, rs...)
}
