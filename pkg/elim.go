package pedpeel

import (
	"github.com/gammazero/deque"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Marker holds raw calls for one locus. Calls are unordered allele pairs
// indexed by individual; the zero Genotype is a missing call.
type Marker struct {
	Name     string
	NAlleles int
	Linkage  Linkage
	Calls    []Genotype
}

func (m *Marker) Call(i int) Genotype {
	if i >= len(m.Calls) {
		return Genotype{}
	}
	g := m.Calls[i]
	if g.Mat < g.Pat {
		g = g.Swap()
	}
	return g
}

type ElimOptions struct {
	// Strict stops propagation in a component at its first error and
	// marks the component skipped.
	Strict bool
	Log    *log.Entry
}

// FamilyGenotype pairs the mother's pattern (index 0) with the father's.
type FamilyGenotype [2]Pattern

type FamilySet []FamilyGenotype

// OpenFamilySet places no constraint on either parent.
var OpenFamilySet = FamilySet{{WildPattern, WildPattern}}

type Elimination struct {
	Ped     *Pedigree
	Marker  *Marker
	Cands   []GenotypeSet
	FamSets []FamilySet

	opts     ElimOptions
	log      *log.Entry
	roleHemi [2]bool
	raw      []GenotypeSet
	version  []int
	snap     [][]int
	active   []bool
	skipped  []bool
	errs     []ElimError
	queue    deque.Deque[int]
	queued   []bool
}

// Eliminate runs genotype elimination for mk over every component of ped.
func Eliminate(ped *Pedigree, mk *Marker, opts ElimOptions) *Elimination {
	el := NewElimination(ped, mk, opts)
	for c := range ped.Comps {
		el.EliminateComponent(c)
	}
	return el
}

func NewElimination(ped *Pedigree, mk *Marker, opts ElimOptions) *Elimination {
	el := &Elimination{
		Ped:     ped,
		Marker:  mk,
		Cands:   make([]GenotypeSet, len(ped.Inds)),
		FamSets: make([]FamilySet, len(ped.Fams)),
		opts:    opts,
		log:     opts.Log,
		raw:     make([]GenotypeSet, len(ped.Inds)),
		version: make([]int, len(ped.Inds)),
		snap:    make([][]int, len(ped.Fams)),
		active:  make([]bool, len(ped.Fams)),
		skipped: make([]bool, len(ped.Comps)),
		queued:  make([]bool, len(ped.Fams)),
	}
	if el.log == nil {
		el.log = log.NewEntry(log.StandardLogger())
	}
	el.roleHemi[0] = mk.Linkage.Hemizygous(Female)
	el.roleHemi[1] = mk.Linkage.Hemizygous(Male)
	return el
}

func (el *Elimination) Errors() []ElimError {
	return el.errs
}

func (el *Elimination) Skipped(c int) bool {
	return el.skipped[c]
}

func (el *Elimination) Active(f int) bool {
	return el.active[f]
}

// EliminateComponent rebuilds candidate and family sets of component c from
// the raw calls and propagates them to a fixed point. Errors are appended.
func (el *Elimination) EliminateComponent(c int) {
	comp := &el.Ped.Comps[c]
	el.skipped[c] = false
	lg := el.log.WithFields(log.Fields{"marker": el.Marker.Name, "component": c})
	nerr := len(el.errs)

	if el.Marker.Linkage.Uniparental() {
		el.lineage(c)
		lg.WithField("errors", len(el.errs)-nerr).Debug("lineage elimination")
		return
	}

	for _, i := range comp.Members {
		el.assignRaw(i)
	}
	for _, f := range comp.Families {
		el.active[f] = true
		el.FamSets[f] = nil
		el.snap[f] = nil
	}

	lg.Debug("pass 1")
	for _, f := range comp.Families {
		if el.skipped[c] {
			break
		}
		el.pass1(f)
	}

	lg.Debug("pass 2")
	for _, f := range comp.Families {
		if el.active[f] {
			el.push(f)
		}
	}
	el.pass2(c)
	lg.WithField("errors", len(el.errs)-nerr).Debug("elimination done")
}

// Propagate revisits every active family with all members treated as
// changed. On a component already at its fixed point nothing narrows.
func (el *Elimination) Propagate() {
	if el.Marker.Linkage.Uniparental() {
		return
	}
	for c := range el.Ped.Comps {
		if el.skipped[c] {
			continue
		}
		for _, f := range el.Ped.Comps[c].Families {
			if !el.active[f] {
				continue
			}
			for j := range el.snap[f] {
				el.snap[f][j] = -1
			}
			el.push(f)
		}
		el.pass2(c)
	}
}

func (el *Elimination) record(kind ElimErrorKind, c, f, i int) {
	e := ElimError{Kind: kind, Marker: el.Marker.Name, Component: c, Family: f, Individual: i}
	el.errs = append(el.errs, e)
	el.log.WithFields(log.Fields{"kind": kind, "family": f, "individual": i}).Debug("elimination error")
}

func (el *Elimination) assignRaw(i int) {
	ind := &el.Ped.Inds[i]
	l := el.Marker.Linkage
	g := el.Marker.Call(i)
	var s GenotypeSet
	switch {
	case g.Wild():
	case l.Hemizygous(ind.Sex):
		if g.Pat != 0 && g.Pat != g.Mat {
			el.record(XHetMale, ind.Component, -1, i)
			break
		}
		s = GenotypeSet{l.OneSlot(ind.Sex, g.Mat)}
	case g.Pat == 0:
		el.record(HalfObs, ind.Component, -1, i)
		s = GenotypeSet{{g.Mat, 0}, {0, g.Mat}}
	case g.Mat == g.Pat:
		s = GenotypeSet{g}
	default:
		s = GenotypeSet{g, g.Swap()}
	}
	el.raw[i] = s
	el.Cands[i] = s.Clone()
	el.version[i]++
}

func (el *Elimination) members(f int) []int {
	fam := &el.Ped.Fams[f]
	out := make([]int, 0, len(fam.Kids)+2)
	out = append(out, fam.Mother, fam.Father)
	return append(out, fam.Kids...)
}

func (el *Elimination) snapshot(f int) {
	mem := el.members(f)
	el.snap[f] = el.snap[f][:0]
	for _, i := range mem {
		el.snap[f] = append(el.snap[f], el.version[i])
	}
}

func (el *Elimination) push(f int) {
	if !el.queued[f] {
		el.queued[f] = true
		el.queue.PushBack(f)
	}
}

// bump records a change to i and marks its other families dirty.
func (el *Elimination) bump(i, from int) {
	el.version[i]++
	ind := &el.Ped.Inds[i]
	if ind.Natal >= 0 && ind.Natal != from && el.active[ind.Natal] {
		el.push(ind.Natal)
	}
	for _, f := range ind.Families {
		if f != from && el.active[f] {
			el.push(f)
		}
	}
}

// Fixed reports a single fully specified genotype.
func (el *Elimination) Fixed(i int) bool {
	s := el.Cands[i]
	if len(s) != 1 {
		return false
	}
	m, p := el.Marker.Linkage.Slots(el.Ped.Inds[i].Sex)
	return (!m || s[0].Mat != 0) && (!p || s[0].Pat != 0)
}

func (el *Elimination) knownApartFromPhase(i int) bool {
	s := el.Cands[i]
	if len(s) != 2 {
		return false
	}
	a := s[0]
	return a.Mat != 0 && a.Pat != 0 && a.Mat != a.Pat && s[1] == a.Swap()
}

func (el *Elimination) patterns(i int) []Pattern {
	s := el.Cands[i]
	if len(s) == 0 {
		return []Pattern{WildPattern}
	}
	hemi := el.Marker.Linkage.Hemizygous(el.Ped.Inds[i].Sex)
	out := make([]Pattern, 0, len(s))
	for _, g := range s {
		var p Pattern
		if hemi {
			p = Pattern{g.Single(), 0}
		} else {
			p = NewPattern(g.Mat, g.Pat)
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func (el *Elimination) famRel(n, o FamilyGenotype) Relation {
	r := Equal
	for p := 0; p < 2; p++ {
		if el.roleHemi[p] {
			r = r.Combine(RelateHemi(n[p], o[p]))
		} else {
			r = r.Combine(RelatePattern(n[p], o[p]))
		}
	}
	return r
}

func (el *Elimination) simpleBuild(f int) FamilySet {
	fam := &el.Ped.Fams[f]
	var fs FamilySet
	for _, pm := range el.patterns(fam.Mother) {
		for _, pf := range el.patterns(fam.Father) {
			e := FamilyGenotype{pm, pf}
			if !slices.Contains(fs, e) {
				fs = append(fs, e)
			}
		}
	}
	return fs
}

// place puts allele a into the first slot of pt that holds a or is open.
func place(pt Pattern, a int, hemi bool) (Pattern, bool) {
	if hemi {
		switch pt[0] {
		case a:
			return pt, true
		case 0:
			return Pattern{a, 0}, true
		}
		return pt, false
	}
	for s := 0; s < 2; s++ {
		if pt[s] == a {
			return pt, true
		}
		if pt[s] == 0 {
			pt[s] = a
			return NewPattern(pt[0], pt[1]), true
		}
	}
	return pt, false
}

func (el *Elimination) transmit(e FamilyGenotype, g Genotype, sex int64) (FamilyGenotype, bool) {
	for p := 0; p < 2; p++ {
		if !el.Marker.Linkage.HasSlot(sex, p) {
			continue
		}
		a := g.Allele(p)
		if a == 0 {
			continue
		}
		pt, ok := place(e[p], a, el.roleHemi[p])
		if !ok {
			return e, false
		}
		e[p] = pt
	}
	return e, true
}

// incorporateKid keeps the family entries that can transmit some candidate
// genotype of kid k. An empty result means k is inconsistent with fs.
func (el *Elimination) incorporateKid(fs FamilySet, k int) FamilySet {
	kc := el.Cands[k]
	if len(kc) == 0 {
		return fs
	}
	sex := el.Ped.Inds[k].Sex
	var out FamilySet
	for _, e := range fs {
		for _, g := range kc {
			if ne, ok := el.transmit(e, g, sex); ok {
				out = insertRelated(out, ne, el.famRel)
			}
		}
	}
	return out
}

func meetPattern(a, b Pattern, hemi bool) (Pattern, bool) {
	var r Relation
	if hemi {
		r = RelateHemi(a, b)
	} else {
		r = RelatePattern(a, b)
	}
	switch r {
	case Equal, Narrower:
		return a, true
	case Wider:
		return b, true
	case Overlap:
		return NewPattern(a[0], b[0]), true
	}
	return a, false
}

// mergeParent narrows the role p patterns of fs by parent i's candidates.
func (el *Elimination) mergeParent(fs FamilySet, p, i int) FamilySet {
	pats := el.patterns(i)
	var out FamilySet
	for _, e := range fs {
		for _, pc := range pats {
			if m, ok := meetPattern(e[p], pc, el.roleHemi[p]); ok {
				ne := e
				ne[p] = m
				out = insertRelated(out, ne, el.famRel)
			}
		}
	}
	return out
}

func refineOne(c Genotype, pt Pattern) (Genotype, bool) {
	nk := known(pt)
	switch {
	case nk == 0:
		return c, true
	case c.Mat != 0 && c.Pat != 0:
		if nk == 1 {
			return c, pt[0] == c.Mat || pt[0] == c.Pat
		}
		return c, NewPattern(c.Mat, c.Pat) == pt
	}
	s := 0
	if c.Mat == 0 {
		s = 1
	}
	a := c.Allele(s)
	o := 1 - s
	if nk == 1 {
		if pt[0] != a {
			return c.WithAllele(o, pt[0]), true
		}
		return c, true
	}
	switch a {
	case pt[0]:
		return c.WithAllele(o, pt[1]), true
	case pt[1]:
		return c.WithAllele(o, pt[0]), true
	}
	return c, false
}

func mirrors(pt Pattern) []Genotype {
	g := Genotype{pt[0], pt[1]}
	if pt[0] == pt[1] {
		return []Genotype{g}
	}
	return []Genotype{g, g.Swap()}
}

func (el *Elimination) refineParent(i int, pats []Pattern) GenotypeSet {
	old := el.Cands[i]
	sex := el.Ped.Inds[i].Sex
	l := el.Marker.Linkage
	if l.Hemizygous(sex) {
		var as []int
		for _, pt := range pats {
			if pt[0] == 0 {
				return old
			}
			if !slices.Contains(as, pt[0]) {
				as = append(as, pt[0])
			}
		}
		var out GenotypeSet
		if len(old) == 0 {
			for _, a := range as {
				out = append(out, l.OneSlot(sex, a))
			}
			return out
		}
		for _, g := range old {
			if slices.Contains(as, g.Single()) {
				out = append(out, g)
			}
		}
		return out
	}

	var out GenotypeSet
	for _, c := range old {
		for _, pt := range pats {
			if c.Wild() {
				for _, g := range mirrors(pt) {
					out = insertGenotype(out, g)
				}
				continue
			}
			if g, ok := refineOne(c, pt); ok {
				out = insertGenotype(out, g)
			}
		}
	}
	if len(old) == 0 {
		for _, pt := range pats {
			for _, g := range mirrors(pt) {
				out = insertGenotype(out, g)
			}
		}
	}
	return normalize(out)
}

func (el *Elimination) updateParents(f int, fs FamilySet) {
	fam := &el.Ped.Fams[f]
	for p := 0; p < 2; p++ {
		i := fam.Parent(p)
		if el.Fixed(i) || el.knownApartFromPhase(i) {
			continue
		}
		var pats []Pattern
		for _, e := range fs {
			if !slices.Contains(pats, e[p]) {
				pats = append(pats, e[p])
			}
		}
		old := el.Cands[i]
		nw := el.refineParent(i, pats)
		if len(nw) == 0 && len(old) > 0 {
			continue
		}
		if !SameSet(nw, old) {
			el.Cands[i] = nw
			el.bump(i, f)
		}
	}
}

func roleAlleles(pt Pattern, hemi bool) []int {
	if hemi || pt[0] == pt[1] {
		return []int{pt[0]}
	}
	return []int{pt[0], pt[1]}
}

func (el *Elimination) transmissions(fs FamilySet, sex int64) []Genotype {
	l := el.Marker.Linkage
	var out []Genotype
	for _, e := range fs {
		ms, ps := []int{0}, []int{0}
		if l.HasSlot(sex, 0) {
			ms = roleAlleles(e[0], el.roleHemi[0])
		}
		if l.HasSlot(sex, 1) {
			ps = roleAlleles(e[1], el.roleHemi[1])
		}
		for _, m := range ms {
			for _, p := range ps {
				g := Genotype{m, p}
				if !slices.Contains(out, g) {
					out = append(out, g)
				}
			}
		}
	}
	return out
}

func meet(c, t Genotype) (Genotype, bool) {
	var out Genotype
	for s := 0; s < 2; s++ {
		cv, tv := c.Allele(s), t.Allele(s)
		switch {
		case tv == 0:
			out = out.WithAllele(s, cv)
		case cv == 0 || cv == tv:
			out = out.WithAllele(s, tv)
		default:
			return c, false
		}
	}
	return out, true
}

func (el *Elimination) updateKids(f int, fs FamilySet) {
	for _, k := range el.Ped.Fams[f].Kids {
		if el.Fixed(k) {
			continue
		}
		trans := el.transmissions(fs, el.Ped.Inds[k].Sex)
		old := el.Cands[k]
		var nw GenotypeSet
		if len(old) == 0 {
			for _, t := range trans {
				nw = insertGenotype(nw, t)
			}
		} else {
			for _, c := range old {
				for _, t := range trans {
					if g, ok := meet(c, t); ok {
						nw = insertGenotype(nw, g)
					}
				}
			}
		}
		nw = normalize(nw)
		if len(nw) == 0 && len(old) > 0 {
			continue
		}
		if !SameSet(nw, old) {
			el.Cands[k] = nw
			el.bump(k, f)
		}
	}
}

// resetDerived restores members of f whose candidates came from other
// families to their raw calls.
func (el *Elimination) resetDerived(f int) bool {
	reset := false
	for _, i := range el.members(f) {
		if !SameSet(el.Cands[i], el.raw[i]) {
			el.Cands[i] = el.raw[i].Clone()
			el.bump(i, f)
			reset = true
		}
	}
	return reset
}

func (el *Elimination) pass1(f int) {
	fam := &el.Ped.Fams[f]
	for attempt := 0; ; attempt++ {
		fs := el.simpleBuild(f)
		var bad []int
		for _, k := range fam.Kids {
			nfs := el.incorporateKid(fs, k)
			if len(nfs) == 0 {
				bad = append(bad, k)
				continue
			}
			fs = nfs
		}
		if len(bad) == 0 {
			el.FamSets[f] = fs
			el.updateParents(f, fs)
			el.updateKids(f, fs)
			el.snapshot(f)
			return
		}
		if attempt == 0 && el.resetDerived(f) {
			continue
		}
		for _, k := range bad {
			el.record(ElimPass1, fam.Component, f, k)
		}
		el.FamSets[f] = nil
		el.active[f] = false
		if el.opts.Strict {
			el.skipped[fam.Component] = true
		}
		return
	}
}

func (el *Elimination) pass2(c int) {
	for el.queue.Len() > 0 {
		f := el.queue.PopFront()
		el.queued[f] = false
		if !el.active[f] || el.skipped[c] {
			continue
		}
		el.revisit(f)
	}
}

func (el *Elimination) fail(kind ElimErrorKind, f, i int) {
	c := el.Ped.Fams[f].Component
	el.record(kind, c, f, i)
	el.active[f] = false
	if el.opts.Strict {
		el.skipped[c] = true
	}
}

func (el *Elimination) revisit(f int) {
	fam := &el.Ped.Fams[f]
	snap := el.snap[f]
	fs := slices.Clone(el.FamSets[f])
	for j, k := range fam.Kids {
		if el.version[k] == snap[j+2] {
			continue
		}
		fs = el.incorporateKid(fs, k)
		if len(fs) == 0 {
			el.fail(ElimPass2Kid, f, k)
			return
		}
	}
	for p := 0; p < 2; p++ {
		i := fam.Parent(p)
		if el.version[i] == snap[p] || len(el.Cands[i]) == 0 {
			continue
		}
		fs = el.mergeParent(fs, p, i)
		if len(fs) == 0 {
			el.fail(ElimPass2Par, f, i)
			return
		}
	}
	el.FamSets[f] = fs
	el.updateParents(f, fs)
	el.updateKids(f, fs)
	el.snapshot(f)
}

// Apply copies candidate sets and skipped components into a peeling locus.
func (el *Elimination) Apply(l *Locus) {
	l.Cands = el.Cands
	l.SkipComp = slices.Clone(el.skipped)
}
