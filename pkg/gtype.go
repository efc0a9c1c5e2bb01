package pedpeel

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Genotype is an ordered (maternal, paternal) allele pair. Allele 0 is a
// wildcard.
type Genotype struct {
	Mat int
	Pat int
}

func (g Genotype) Swap() Genotype {
	return Genotype{g.Pat, g.Mat}
}

func (g Genotype) String() string {
	return fmt.Sprintf("(%v,%v)", g.Mat, g.Pat)
}

// Allele returns the allele in slot s, 0 for maternal and 1 for paternal.
func (g Genotype) Allele(s int) int {
	if s == 0 {
		return g.Mat
	}
	return g.Pat
}

func (g Genotype) WithAllele(s, a int) Genotype {
	if s == 0 {
		g.Mat = a
	} else {
		g.Pat = a
	}
	return g
}

func (g Genotype) Wild() bool {
	return g.Mat == 0 && g.Pat == 0
}

// Single returns the allele of a one-slot genotype.
func (g Genotype) Single() int {
	if g.Mat != 0 {
		return g.Mat
	}
	return g.Pat
}

// A GenotypeSet lists candidate genotypes. An empty set places no constraint
// on the individual.
type GenotypeSet []Genotype

func (s GenotypeSet) Contains(g Genotype) bool {
	return slices.Contains(s, g)
}

// Admits reports whether the fully specified genotype g matches some entry,
// with wildcard slots matching anything.
func (s GenotypeSet) Admits(g Genotype) bool {
	if len(s) == 0 {
		return true
	}
	for _, c := range s {
		if (c.Mat == 0 || c.Mat == g.Mat) && (c.Pat == 0 || c.Pat == g.Pat) {
			return true
		}
	}
	return false
}

func (s GenotypeSet) Clone() GenotypeSet {
	return slices.Clone(s)
}

// SameSet compares two sets ignoring order.
func SameSet(a, b GenotypeSet) bool {
	if len(a) != len(b) {
		return false
	}
	for _, g := range a {
		if !b.Contains(g) {
			return false
		}
	}
	return true
}

// Relation describes how a new entry compares with an existing one.
type Relation int8

const (
	Disjoint Relation = iota
	Equal
	Narrower // new is more specific than existing
	Wider    // new subsumes existing
	Overlap
)

func (r Relation) String() string {
	switch r {
	case Disjoint:
		return "Disjoint"
	case Equal:
		return "Equal"
	case Narrower:
		return "Narrower"
	case Wider:
		return "Wider"
	case Overlap:
		return "Overlap"
	}
	return fmt.Sprintf("Relation(%d)", int8(r))
}

// Combine merges the relations of two independent components of an entry.
func (r Relation) Combine(o Relation) Relation {
	switch {
	case r == Disjoint || o == Disjoint:
		return Disjoint
	case r == Equal:
		return o
	case o == Equal:
		return r
	case r == o:
		return r
	}
	return Overlap
}

func relateSlot(n, o int) Relation {
	switch {
	case n == o:
		return Equal
	case n == 0:
		return Wider
	case o == 0:
		return Narrower
	}
	return Disjoint
}

func RelateOrdered(n, o Genotype) Relation {
	return relateSlot(n.Mat, o.Mat).Combine(relateSlot(n.Pat, o.Pat))
}

// Pattern is an unordered parental genotype, larger allele first so that
// wildcards trail.
type Pattern [2]int

var WildPattern = Pattern{0, 0}

func NewPattern(a, b int) Pattern {
	if a < b {
		return Pattern{b, a}
	}
	return Pattern{a, b}
}

func (p Pattern) String() string {
	return fmt.Sprintf("<%v,%v>", p[0], p[1])
}

func (p Pattern) Has(a int) bool {
	return p[0] == a || p[1] == a
}

// RelatePattern compares unordered diploid patterns.
func RelatePattern(n, o Pattern) Relation {
	nk, ok := known(n), known(o)
	switch {
	case nk == 0 && ok == 0:
		return Equal
	case ok == 0:
		return Narrower
	case nk == 0:
		return Wider
	case nk == 1 && ok == 1:
		if n[0] == o[0] {
			return Equal
		}
		return Overlap
	case nk == 1:
		if o.Has(n[0]) {
			return Wider
		}
		return Disjoint
	case ok == 1:
		if n.Has(o[0]) {
			return Narrower
		}
		return Disjoint
	}
	if n == o {
		return Equal
	}
	return Disjoint
}

// RelateHemi compares one-slot patterns.
func RelateHemi(n, o Pattern) Relation {
	return relateSlot(n[0], o[0])
}

func known(p Pattern) int {
	n := 0
	for _, a := range p {
		if a != 0 {
			n++
		}
	}
	return n
}

// insertRelated adds x unless an entry already covers it, and drops every
// entry that x covers. x takes the place of the first dropped entry.
func insertRelated[T any](list []T, x T, rel func(n, o T) Relation) []T {
	for _, o := range list {
		if r := rel(x, o); r == Equal || r == Narrower {
			return list
		}
	}
	pos := -1
	out := list[:0]
	for _, o := range list {
		if rel(x, o) == Wider {
			if pos < 0 {
				pos = len(out)
			}
			continue
		}
		out = append(out, o)
	}
	if pos < 0 {
		return append(out, x)
	}
	return slices.Insert(out, pos, x)
}

func insertGenotype(s GenotypeSet, g Genotype) GenotypeSet {
	return insertRelated(s, g, RelateOrdered)
}

// normalize maps a lone wildcard to the empty set.
func normalize(s GenotypeSet) GenotypeSet {
	if len(s) == 1 && s[0].Wild() {
		return nil
	}
	return s
}

// DecodeCall splits a triangular call code k = a1(a1+1)/2 + a2 into its
// alleles, a1 >= a2.
func DecodeCall(k int) (a1, a2 int) {
	a1 = int(math.Sqrt(.25+2*float64(k)) - .49999)
	a2 = k - a1*(a1+1)/2
	return a1, a2
}

func CallCode(a1, a2 int) int {
	if a1 < a2 {
		a1, a2 = a2, a1
	}
	return a1*(a1+1)/2 + a2
}

// GenotypeCode numbers unordered genotypes of 1-based alleles from 1.
func GenotypeCode(a, b int) int {
	if a < b {
		a, b = b, a
	}
	return a*(a-1)/2 + b
}

// DecodeGenotype inverts GenotypeCode.
func DecodeGenotype(k int) (a, b int) {
	a = int(math.Sqrt(2*float64(k)-1.75) + .50001)
	for a*(a-1)/2 >= k {
		a--
	}
	for (a+1)*a/2 < k {
		a++
	}
	return a, k - a*(a-1)/2
}
