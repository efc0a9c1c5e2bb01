package pedpeel

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/jgbaldwinbrown/iterh"
	log "github.com/sirupsen/logrus"
)

var ParseError = errors.New("entry parsing error")

func comment(l []string) bool {
	return len(l) == 0 || strings.HasPrefix(l[0], "#")
}

// parseLines runs parse over every non-comment line of a tab-separated
// reader.
func parseLines[T any](name string, r io.Reader, parse func([]string) (T, error)) iter.Seq2[T, error] {
	return func(y func(T, error) bool) {
		var zero T
		h := csvh.Handle0(name + ": %w")
		cr := csvh.CsvIn(r)
		for l, e := cr.Read(); e != io.EOF; l, e = cr.Read() {
			if e != nil {
				if !y(zero, h(e)) {
					return
				}
				continue
			}
			if comment(l) {
				continue
			}
			ent, e := parse(l)
			if e != nil {
				if !y(ent, fmt.Errorf("%v: line %v; %w", name, l, e)) {
					return
				}
				continue
			}
			if !y(ent, nil) {
				return
			}
		}
	}
}

func parsePath[T any](path string, parse func(io.Reader) iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(y func(T, error) bool) {
		r, e := csvh.OpenMaybeGz(path)
		if e != nil {
			var zero T
			y(zero, e)
			return
		}
		defer r.Close()
		for ent, e := range parse(r) {
			if !y(ent, e) {
				return
			}
		}
	}
}

// ParsePedLine reads family, individual, father, mother, sex and phenotype,
// plus an optional genetic group.
func ParsePedLine(line []string) (PedEntry, error) {
	var p PedEntry
	if len(line) < 6 {
		return p, ParseError
	}
	if _, e := csvh.Scan(line[:6], &p.FamilyID, &p.IndividualID, &p.PaternalID, &p.MaternalID, &p.Sex, &p.Phenotype); e != nil {
		return p, e
	}
	if len(line) > 6 {
		if _, e := csvh.Scan(line[6:7], &p.Group); e != nil {
			return p, e
		}
	}
	return p, nil
}

func ParsePed(r io.Reader) iter.Seq2[PedEntry, error] {
	return parseLines("ParsePed", r, ParsePedLine)
}

func ParsePedPath(path string) iter.Seq2[PedEntry, error] {
	return parsePath(path, ParsePed)
}

// ParsePedPathMaybe reads stdin when path is empty.
func ParsePedPathMaybe(path string) ([]PedEntry, error) {
	if path == "" {
		return iterh.CollectWithError(ParsePed(os.Stdin))
	}
	return iterh.CollectWithError(ParsePedPath(path))
}

// ParsePedSafe logs and skips lines that do not parse.
func ParsePedSafe(r io.Reader, lg *log.Entry) []PedEntry {
	var ps []PedEntry
	for p, e := range ParsePed(r) {
		if e != nil {
			lg.WithError(e).Warn("ParsePedSafe: skipping line")
			continue
		}
		ps = append(ps, p)
	}
	return ps
}

func WritePedEntry(w io.Writer, p PedEntry) error {
	_, e := fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
		p.FamilyID,
		p.IndividualID,
		p.PaternalID,
		p.MaternalID,
		p.Sex,
		p.Phenotype,
		p.Group,
	)
	return e
}

func WritePed(w io.Writer, ps []PedEntry) error {
	for _, p := range ps {
		if e := WritePedEntry(w, p); e != nil {
			return e
		}
	}
	return nil
}

func WritePedPath(path string, ps []PedEntry) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()

	return WritePed(w, ps)
}

type GenoEntry struct {
	IndividualID string
	Marker       string
	A1           int64
	A2           int64
}

func ParseGenoLine(line []string) (GenoEntry, error) {
	var g GenoEntry
	if len(line) < 4 {
		return g, ParseError
	}
	_, e := csvh.Scan(line[:4], &g.IndividualID, &g.Marker, &g.A1, &g.A2)
	return g, e
}

func ParseGenos(r io.Reader) iter.Seq2[GenoEntry, error] {
	return parseLines("ParseGenos", r, ParseGenoLine)
}

func ParseGenosPath(path string) iter.Seq2[GenoEntry, error] {
	return parsePath(path, ParseGenos)
}

// BuildMarkers groups genotype entries by marker in order of first
// appearance. Allele counts come from the largest allele seen.
func BuildMarkers(ped *Pedigree, link Linkage, ents ...GenoEntry) ([]*Marker, error) {
	var out []*Marker
	idx := map[string]*Marker{}
	for _, g := range ents {
		i, ok := ped.Index(g.IndividualID)
		if !ok {
			return nil, fmt.Errorf("BuildMarkers: marker %v individual %v; %w", g.Marker, g.IndividualID, ErrUnknownParent)
		}
		if g.A1 < 0 || g.A2 < 0 {
			return nil, fmt.Errorf("BuildMarkers: marker %v individual %v; %w", g.Marker, g.IndividualID, ParseError)
		}
		mk, ok := idx[g.Marker]
		if !ok {
			mk = &Marker{Name: g.Marker, Linkage: link, Calls: make([]Genotype, ped.Len())}
			idx[g.Marker] = mk
			out = append(out, mk)
		}
		mk.Calls[i] = Genotype{int(g.A1), int(g.A2)}
		mk.NAlleles = max(mk.NAlleles, int(g.A1), int(g.A2))
	}
	return out, nil
}

func WriteGenos(w io.Writer, ped *Pedigree, mks ...*Marker) error {
	for _, mk := range mks {
		for i, g := range mk.Calls {
			if g.Wild() {
				continue
			}
			if _, e := fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", ped.Inds[i].ID, mk.Name, g.Mat, g.Pat); e != nil {
				return e
			}
		}
	}
	return nil
}

func WriteGenosPath(path string, ped *Pedigree, mks ...*Marker) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()
	return WriteGenos(w, ped, mks...)
}

// FreqEntry is one line of a frequency file: marker, group, allele, frequency
// and an optional fifth column marking the frequency fixed.
type FreqEntry struct {
	Marker string
	Group  int64
	Allele int64
	Freq   float64
	Fixed  bool
}

func ParseFreqLine(line []string) (FreqEntry, error) {
	var f FreqEntry
	if len(line) < 4 {
		return f, ParseError
	}
	if _, e := csvh.Scan(line[:4], &f.Marker, &f.Group, &f.Allele, &f.Freq); e != nil {
		return f, e
	}
	if len(line) > 4 {
		switch strings.ToLower(line[4]) {
		case "fixed", "1", "true":
			f.Fixed = true
		case "", "free", "0", "false":
		default:
			return f, fmt.Errorf("ParseFreqLine: fixed column %q; %w", line[4], ParseError)
		}
	}
	return f, nil
}

func ParseFreqsPath(path string) iter.Seq2[FreqEntry, error] {
	return parsePath(path, func(r io.Reader) iter.Seq2[FreqEntry, error] {
		return parseLines("ParseFreqs", r, ParseFreqLine)
	})
}

// FreqAlleles returns the largest allele each marker names.
func FreqAlleles(ents ...FreqEntry) map[string]int {
	out := map[string]int{}
	for _, f := range ents {
		out[f.Marker] = max(out[f.Marker], int(f.Allele))
	}
	return out
}

type freqKey struct {
	l *Locus
	g int
}

// ApplyFreqs sets locus frequencies from the entries. Within each group the
// alleles not listed share what the listed ones leave, and the result is
// scaled to sum to one. Only entries marked Fixed are held fixed when
// frequencies are resampled. Nothing is changed when any entry is invalid.
func ApplyFreqs(loci map[string]*Locus, ents ...FreqEntry) error {
	listed := map[freqKey]map[int]float64{}
	var keys []freqKey
	for _, f := range ents {
		l, ok := loci[f.Marker]
		if !ok {
			continue
		}
		if f.Allele < 1 || int(f.Allele) > l.NAlleles || f.Group < 0 || int(f.Group) >= len(l.Freq) || f.Freq < 0 || f.Freq > 1 {
			return fmt.Errorf("ApplyFreqs: %v; %w", f, ParseError)
		}
		k := freqKey{l, int(f.Group)}
		if listed[k] == nil {
			listed[k] = map[int]float64{}
			keys = append(keys, k)
		}
		listed[k][int(f.Allele)-1] = f.Freq
	}

	fresh := make([][]float64, len(keys))
	for j, k := range keys {
		fs := make([]float64, k.l.NAlleles)
		sum := 0.0
		for a, x := range listed[k] {
			fs[a] = x
			sum += x
		}
		if rest := k.l.NAlleles - len(listed[k]); rest > 0 && sum < 1 {
			for a := range fs {
				if _, ok := listed[k][a]; !ok {
					fs[a] = (1 - sum) / float64(rest)
				}
			}
			sum = 1
		}
		if sum <= 0 {
			return fmt.Errorf("ApplyFreqs: marker %v group %v sums to zero; %w", k.l.Name, k.g, ParseError)
		}
		for a := range fs {
			fs[a] /= sum
		}
		fresh[j] = fs
	}

	for j, k := range keys {
		k.l.Freq[k.g] = fresh[j]
	}
	for _, f := range ents {
		l, ok := loci[f.Marker]
		if !ok || !f.Fixed {
			continue
		}
		if len(l.FreqFixed) != l.NAlleles {
			l.FreqFixed = make([]bool, l.NAlleles)
		}
		l.FreqFixed[f.Allele-1] = true
	}
	return nil
}

type MapEntry struct {
	Marker string
	Female float64
	Male   float64
}

func ParseMapLine(line []string) (MapEntry, error) {
	var m MapEntry
	if len(line) < 3 {
		return m, ParseError
	}
	_, e := csvh.Scan(line[:3], &m.Marker, &m.Female, &m.Male)
	return m, e
}

func ParseMapPath(path string) iter.Seq2[MapEntry, error] {
	return parsePath(path, func(r io.Reader) iter.Seq2[MapEntry, error] {
		return parseLines("ParseMap", r, ParseMapLine)
	})
}

// ApplyMap places loci on the map; placed loci are linked.
func ApplyMap(loci map[string]*Locus, ents ...MapEntry) {
	for _, m := range ents {
		if l, ok := loci[m.Marker]; ok {
			l.Pos = [2]float64{m.Female, m.Male}
			l.Linked = true
		}
	}
}

func WriteElimErrors(w io.Writer, ped *Pedigree, errs ...ElimError) error {
	if _, e := fmt.Fprintf(w, "marker\tkind\tcomponent\tfather\tmother\tindividual\n"); e != nil {
		return e
	}
	for _, x := range errs {
		father, mother, ind := "0", "0", "0"
		if x.Family >= 0 {
			father = ped.Inds[ped.Fams[x.Family].Father].ID
			mother = ped.Inds[ped.Fams[x.Family].Mother].ID
		}
		if x.Individual >= 0 {
			ind = ped.Inds[x.Individual].ID
		}
		if _, e := fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n", x.Marker, x.Kind, x.Component, father, mother, ind); e != nil {
			return e
		}
	}
	return nil
}

func WriteElimErrorsPath(path string, ped *Pedigree, errs ...ElimError) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()
	return WriteElimErrors(w, ped, errs...)
}

// WriteSampledGenos writes the current genotype draw of each locus.
func WriteSampledGenos(w io.Writer, ped *Pedigree, loci ...*Locus) error {
	if _, e := fmt.Fprintf(w, "fam\tind\tlocus\ta1\ta2\n"); e != nil {
		return e
	}
	for _, l := range loci {
		for i, k := range l.Gt {
			if k <= 0 {
				continue
			}
			a, b := DecodeGenotype(k)
			if _, e := fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", ped.Inds[i].FamilyID, ped.Inds[i].ID, l.Name, a, b); e != nil {
				return e
			}
		}
	}
	return nil
}

func WriteSampledGenosPath(path string, ped *Pedigree, loci ...*Locus) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()
	return WriteSampledGenos(w, ped, loci...)
}
