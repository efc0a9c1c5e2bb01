package pedpeel

import (
	"fmt"
	"strings"
)

type Linkage int8

const (
	Autosomal Linkage = iota
	XLinked
	ZLinked
	YLinked
	WLinked
	Mitochondrial
)

var linkageNames = []string{"autosomal", "x", "z", "y", "w", "mit"}

func (l Linkage) String() string {
	if int(l) < len(linkageNames) {
		return linkageNames[l]
	}
	return fmt.Sprintf("Linkage(%d)", int8(l))
}

func ParseLinkage(s string) (Linkage, error) {
	s = strings.ToLower(s)
	switch s {
	case "", "a", "auto":
		return Autosomal, nil
	case "mt", "mito", "mitochondrial":
		return Mitochondrial, nil
	}
	for i, n := range linkageNames {
		if s == n {
			return Linkage(i), nil
		}
	}
	return 0, fmt.Errorf("ParseLinkage: unknown linkage %q", s)
}

// Slots reports which allele slots an individual of the given sex carries:
// the maternally and the paternally inherited one. Slot 0 is always inherited
// from the mother and slot 1 from the father.
func (l Linkage) Slots(sex int64) (mat, pat bool) {
	switch l {
	case XLinked:
		return true, sex != Male
	case ZLinked:
		return sex != Female, true
	case YLinked:
		return false, sex == Male
	case WLinked:
		return sex == Female, false
	case Mitochondrial:
		return true, false
	}
	return true, true
}

func (l Linkage) HasSlot(sex int64, s int) bool {
	m, p := l.Slots(sex)
	if s == 0 {
		return m
	}
	return p
}

// Hemizygous is true when exactly one slot is carried by a sex that is
// diploid for the other sex-chromosome variant (X males, Z females).
func (l Linkage) Hemizygous(sex int64) bool {
	return (l == XLinked && sex == Male) || (l == ZLinked && sex == Female)
}

// Uniparental loci are inherited along a single line and handled by
// lineage elimination.
func (l Linkage) Uniparental() bool {
	return l == YLinked || l == WLinked || l == Mitochondrial
}

func (l Linkage) Carrier(sex int64) bool {
	m, p := l.Slots(sex)
	return m || p
}

// NSlots counts the carried slots.
func (l Linkage) NSlots(sex int64) int {
	n := 0
	m, p := l.Slots(sex)
	if m {
		n++
	}
	if p {
		n++
	}
	return n
}

// OneSlot stores allele a in the single slot carried by sex.
func (l Linkage) OneSlot(sex int64, a int) Genotype {
	if m, _ := l.Slots(sex); m {
		return Genotype{a, 0}
	}
	return Genotype{0, a}
}
