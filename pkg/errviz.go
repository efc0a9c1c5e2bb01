package pedpeel

import (
	"fmt"
	"io"

	"github.com/jgbaldwinbrown/csvh"
)

func Red() string {
	return `"#cc6666"`
}

func Blue() string {
	return `"#6666cc"`
}

func Grey() string {
	return `"#bbbbbb"`
}

func PointAes() string {
	return "shape = point, width = 0.06, height = 0.06"
}

func SexAes(sex int64) string {
	switch sex {
	case Male:
		return fmt.Sprintf("style = filled, fillcolor = %v, shape = square", Blue())
	case Female:
		return fmt.Sprintf("style = filled, fillcolor = %v, shape = circle", Red())
	}
	return fmt.Sprintf("style = filled, fillcolor = %v, shape = diamond", Grey())
}

func ErrAes() string {
	return `, penwidth = 3, color = "#dd0000"`
}

type errMarks struct {
	inds map[int][]string
	fams map[int][]string
}

func markErrors(errs ...ElimError) errMarks {
	m := errMarks{inds: map[int][]string{}, fams: map[int][]string{}}
	for _, e := range errs {
		if e.Individual >= 0 {
			m.inds[e.Individual] = append(m.inds[e.Individual], e.Kind.String())
		}
		if e.Family >= 0 {
			m.fams[e.Family] = append(m.fams[e.Family], e.Kind.String())
		}
	}
	return m
}

func vizIndiv(w io.Writer, ped *Pedigree, i int, m errMarks) (n int, err error) {
	ind := &ped.Inds[i]
	label := ind.ID
	extra := ""
	if ks, ok := m.inds[i]; ok {
		label = fmt.Sprintf("%v\n%v", ind.ID, ks)
		extra = ErrAes()
	}
	return fmt.Fprintf(w, "p%v [label = %q, %v%v]\n", i, label, SexAes(ind.Sex), extra)
}

func vizFamily(w io.Writer, ped *Pedigree, f int, m errMarks) (n int, err error) {
	fam := &ped.Fams[f]
	extra := ""
	if _, ok := m.fams[f]; ok {
		extra = ErrAes()
	}
	nw, e := fmt.Fprintf(w, "r%v [%v%v]\np%v -> r%v\np%v -> r%v\n", f, PointAes(), extra, fam.Father, f, fam.Mother, f)
	n += nw
	if e != nil {
		return n, e
	}
	for _, k := range fam.Kids {
		nw, e := fmt.Fprintf(w, "r%v -> p%v\n", f, k)
		n += nw
		if e != nil {
			return n, e
		}
	}
	return n, nil
}

// ToGraphViz draws the components of ped that carry elimination errors,
// one cluster per component, with the offending individuals and families
// outlined.
func ToGraphViz(w io.Writer, ped *Pedigree, errs ...ElimError) (n int, err error) {
	m := markErrors(errs...)
	bad := map[int]int{}
	for _, e := range errs {
		bad[e.Component]++
	}

	nw, e := fmt.Fprintf(w, "digraph full {\n")
	n += nw
	if e != nil {
		return n, e
	}

	for c := range ped.Comps {
		nerr, ok := bad[c]
		if !ok {
			continue
		}
		comp := &ped.Comps[c]
		nw, e := fmt.Fprintf(w, "subgraph cluster_%v {\nlabel = \"component %v: %v errors\"\ngraph [color = \"#888888\"]\n", c, c, nerr)
		n += nw
		if e != nil {
			return n, e
		}
		for _, i := range comp.Members {
			nw, e := vizIndiv(w, ped, i, m)
			n += nw
			if e != nil {
				return n, e
			}
		}
		for _, f := range comp.Families {
			nw, e := vizFamily(w, ped, f, m)
			n += nw
			if e != nil {
				return n, e
			}
		}
		nw, e = fmt.Fprintf(w, "}\n")
		n += nw
		if e != nil {
			return n, e
		}
	}

	nw, e = fmt.Fprintf(w, "}\n")
	n += nw
	if e != nil {
		return n, e
	}
	return n, nil
}

func WriteGraphVizPath(path string, ped *Pedigree, errs ...ElimError) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()
	_, e = ToGraphViz(w, ped, errs...)
	return e
}
