package pedpeel

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SampleFreqs redraws each group's allele frequencies from a Dirichlet
// posterior by sequential beta draws. counts holds founder allele counts per
// group; fixed frequencies are left alone and the free ones share the rest.
func SampleFreqs(l *Locus, counts [][]float64, src rand.Source) {
	n := l.NAlleles
	for g := range l.Freq {
		if g >= len(counts) {
			break
		}
		f := l.Freq[g]
		c := make([]float64, n)
		z := 1.0
		var free []int
		for a := 0; a < n; a++ {
			if a < len(l.FreqFixed) && l.FreqFixed[a] {
				z -= f[a]
				continue
			}
			free = append(free, a)
			c[a] = counts[g][a] + 1/float64(n)
			if a < len(l.PriorCounts) {
				c[a] += l.PriorCounts[a]
			}
		}
		if len(free) == 0 {
			continue
		}
		z1 := 0.0
		for _, a := range free {
			z1 += c[a]
		}
		for _, a := range free[:len(free)-1] {
			z1 -= c[a]
			x := distuv.Beta{Alpha: c[a], Beta: z1, Src: src}.Rand()
			f[a] = z * x
			z -= f[a]
		}
		f[free[len(free)-1]] = z
	}
}
