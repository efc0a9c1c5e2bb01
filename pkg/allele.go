package pedpeel

import (
	"math/bits"
)

// AlleleSet is a bit set of 1-based alleles. Bit a-1 is set when allele a is
// still possible.
type AlleleSet uint64

const MaxAlleles = 64

func NewAlleleSet(as ...int) AlleleSet {
	var s AlleleSet
	for _, a := range as {
		s = s.Add(a)
	}
	return s
}

// FullAlleleSet has every allele from 1 to n.
func FullAlleleSet(n int) AlleleSet {
	if n >= MaxAlleles {
		return ^AlleleSet(0)
	}
	return AlleleSet(1)<<uint(n) - 1
}

func (s AlleleSet) Add(a int) AlleleSet {
	if a < 1 || a > MaxAlleles {
		return s
	}
	return s | 1<<uint(a-1)
}

func (s AlleleSet) Has(a int) bool {
	if a < 1 || a > MaxAlleles {
		return false
	}
	return s&(1<<uint(a-1)) != 0
}

func (s AlleleSet) Union(o AlleleSet) AlleleSet {
	return s | o
}

func (s AlleleSet) Intersect(o AlleleSet) AlleleSet {
	return s & o
}

func (s AlleleSet) Count() int {
	return bits.OnesCount64(uint64(s))
}

func (s AlleleSet) Empty() bool {
	return s == 0
}

// Alleles lists the members in increasing order.
func (s AlleleSet) Alleles() []int {
	out := make([]int, 0, s.Count())
	for x := uint64(s); x != 0; x &= x - 1 {
		out = append(out, bits.TrailingZeros64(x)+1)
	}
	return out
}
