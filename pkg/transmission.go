package pedpeel

import (
	"math"
)

const minTheta = 1e-8

// Haldane converts a map distance in cM to a recombination fraction.
func Haldane(d float64) float64 {
	th := .5 * (1 - math.Exp(-.02*math.Abs(d)))
	if th < minTheta {
		th = minTheta
	}
	return th
}

// transmissionProbs returns the probabilities that individual k received,
// in slot s, its parent's maternal (index 0) and paternal (index 1) allele.
// The nearest locus on each side of loci[idx] with a known segregation
// indicator for k conditions the result. Unmapped loci segregate freely.
func transmissionProbs(loci []*Locus, idx, k, s int) [2]float64 {
	tp := [2]float64{1, 1}
	if !loci[idx].Linked {
		return [2]float64{.5, .5}
	}
	pos := loci[idx].Pos[s]
	left, right := -1, -1
	ld, rd := math.Inf(1), math.Inf(1)
	for j, o := range loci {
		if j == idx || !o.Linked || k >= len(o.Seg[s]) || o.Seg[s][k] < 0 {
			continue
		}
		d := o.Pos[s] - pos
		if d <= 0 && -d < ld {
			left, ld = j, -d
		} else if d > 0 && d < rd {
			right, rd = j, d
		}
	}
	flanks := []struct {
		j int
		d float64
	}{{left, ld}, {right, rd}}
	for _, fl := range flanks {
		if fl.j < 0 {
			continue
		}
		th := Haldane(fl.d)
		sg := loci[fl.j].Seg[s][k]
		tp[sg] *= 1 - th
		tp[1-sg] *= th
	}
	z := tp[0] + tp[1]
	return [2]float64{tp[0] / z, tp[1] / z}
}
