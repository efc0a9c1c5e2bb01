package pedpeel

import (
	"errors"
	"fmt"

	"github.com/gammazero/deque"
	"golang.org/x/exp/slices"
)

type PedEntry struct {
	FamilyID     string
	IndividualID string
	PaternalID   string
	MaternalID   string
	Sex          int64
	Phenotype    int64
	Group        int64
}

const (
	SexUnknown int64 = 0
	Male       int64 = 1
	Female     int64 = 2
)

var (
	ErrPedigreeCycle = errors.New("pedigree contains a cycle")
	ErrHalfParent    = errors.New("individual has exactly one parent")
	ErrParentSex     = errors.New("parent sex conflicts with role")
	ErrDuplicateID   = errors.New("duplicate individual ID")
	ErrUnknownParent = errors.New("parent not present in pedigree")
)

func MissingID(id string) bool {
	return id == "" || id == "0"
}

// Individual references other individuals and families by index. Absent
// references are -1.
type Individual struct {
	ID        string
	FamilyID  string
	Sex       int64
	Group     int
	Sire      int
	Dam       int
	Natal     int
	Families  []int
	Kids      []int
	Component int
}

func (in *Individual) Founder() bool {
	return in.Sire < 0 && in.Dam < 0
}

type NuclearFamily struct {
	Father    int
	Mother    int
	Kids      []int
	Component int
}

// Parent returns the mother for role 0 and the father for role 1.
func (f *NuclearFamily) Parent(role int) int {
	if role == 0 {
		return f.Mother
	}
	return f.Father
}

// Component members are in topological order, parents before children.
type Component struct {
	Members  []int
	Families []int
}

type Pedigree struct {
	Inds    []Individual
	Fams    []NuclearFamily
	Comps   []Component
	NGroups int
	index   map[string]int
}

func (p *Pedigree) Index(id string) (int, bool) {
	i, ok := p.index[id]
	return i, ok
}

func (p *Pedigree) Len() int {
	return len(p.Inds)
}

// UniqPed drops repeated individual IDs, keeping the first entry.
func UniqPed(ped ...PedEntry) []PedEntry {
	seen := map[string]struct{}{}
	var out []PedEntry
	for _, p := range ped {
		if _, ok := seen[p.IndividualID]; ok {
			continue
		}
		seen[p.IndividualID] = struct{}{}
		out = append(out, p)
	}
	return out
}

func BuildPedigree(ps ...PedEntry) (*Pedigree, error) {
	ped := &Pedigree{index: make(map[string]int, len(ps))}
	for _, e := range ps {
		if _, ok := ped.index[e.IndividualID]; ok {
			return nil, fmt.Errorf("BuildPedigree: %v; %w", e.IndividualID, ErrDuplicateID)
		}
		ped.index[e.IndividualID] = len(ped.Inds)
		ped.Inds = append(ped.Inds, Individual{
			ID:        e.IndividualID,
			FamilyID:  e.FamilyID,
			Sex:       e.Sex,
			Group:     int(e.Group),
			Sire:      -1,
			Dam:       -1,
			Natal:     -1,
			Component: -1,
		})
		if int(e.Group)+1 > ped.NGroups {
			ped.NGroups = int(e.Group) + 1
		}
	}
	if ped.NGroups == 0 {
		ped.NGroups = 1
	}

	famIdx := map[[2]int]int{}
	for i, e := range ps {
		if MissingID(e.PaternalID) && MissingID(e.MaternalID) {
			continue
		}
		if MissingID(e.PaternalID) || MissingID(e.MaternalID) {
			return nil, fmt.Errorf("BuildPedigree: %v; %w", e.IndividualID, ErrHalfParent)
		}
		sire, ok := ped.index[e.PaternalID]
		if !ok {
			return nil, fmt.Errorf("BuildPedigree: %v father %v; %w", e.IndividualID, e.PaternalID, ErrUnknownParent)
		}
		dam, ok := ped.index[e.MaternalID]
		if !ok {
			return nil, fmt.Errorf("BuildPedigree: %v mother %v; %w", e.IndividualID, e.MaternalID, ErrUnknownParent)
		}
		if e := ped.setParentSex(sire, Male); e != nil {
			return nil, e
		}
		if e := ped.setParentSex(dam, Female); e != nil {
			return nil, e
		}
		ind := &ped.Inds[i]
		ind.Sire, ind.Dam = sire, dam

		key := [2]int{sire, dam}
		f, ok := famIdx[key]
		if !ok {
			f = len(ped.Fams)
			famIdx[key] = f
			ped.Fams = append(ped.Fams, NuclearFamily{Father: sire, Mother: dam, Component: -1})
			ped.Inds[sire].Families = append(ped.Inds[sire].Families, f)
			ped.Inds[dam].Families = append(ped.Inds[dam].Families, f)
		}
		ped.Fams[f].Kids = append(ped.Fams[f].Kids, i)
		ind.Natal = f
		ped.Inds[sire].Kids = append(ped.Inds[sire].Kids, i)
		ped.Inds[dam].Kids = append(ped.Inds[dam].Kids, i)
	}

	order, e := ped.topoOrder()
	if e != nil {
		return nil, e
	}
	ped.buildComponents(order)
	return ped, nil
}

func (p *Pedigree) setParentSex(i int, sex int64) error {
	ind := &p.Inds[i]
	if ind.Sex == SexUnknown {
		ind.Sex = sex
		return nil
	}
	if ind.Sex != sex {
		return fmt.Errorf("BuildPedigree: %v; %w", ind.ID, ErrParentSex)
	}
	return nil
}

func (p *Pedigree) topoOrder() ([]int, error) {
	npar := make([]int, len(p.Inds))
	var q deque.Deque[int]
	for i := range p.Inds {
		if !p.Inds[i].Founder() {
			npar[i] = 2
		} else {
			q.PushBack(i)
		}
	}
	order := make([]int, 0, len(p.Inds))
	for q.Len() > 0 {
		i := q.PopFront()
		order = append(order, i)
		for _, k := range p.Inds[i].Kids {
			npar[k]--
			if npar[k] == 0 {
				q.PushBack(k)
			}
		}
	}
	if len(order) != len(p.Inds) {
		return nil, fmt.Errorf("BuildPedigree: %w", ErrPedigreeCycle)
	}
	return order, nil
}

func (p *Pedigree) neighbors(i int) []int {
	in := &p.Inds[i]
	out := slices.Clone(in.Kids)
	if in.Sire >= 0 {
		out = append(out, in.Sire, in.Dam)
	}
	return out
}

func (p *Pedigree) buildComponents(order []int) {
	var q deque.Deque[int]
	for i := range p.Inds {
		if p.Inds[i].Component >= 0 {
			continue
		}
		c := len(p.Comps)
		p.Comps = append(p.Comps, Component{})
		p.Inds[i].Component = c
		q.PushBack(i)
		for q.Len() > 0 {
			j := q.PopFront()
			for _, k := range p.neighbors(j) {
				if p.Inds[k].Component < 0 {
					p.Inds[k].Component = c
					q.PushBack(k)
				}
			}
		}
	}
	for _, i := range order {
		c := p.Inds[i].Component
		p.Comps[c].Members = append(p.Comps[c].Members, i)
	}
	for f := range p.Fams {
		c := p.Inds[p.Fams[f].Father].Component
		p.Fams[f].Component = c
		p.Comps[c].Families = append(p.Comps[c].Families, f)
	}
}

// ComponentEntries rebuilds the ped entries of one component.
func (p *Pedigree) ComponentEntries(c int) []PedEntry {
	out := make([]PedEntry, 0, len(p.Comps[c].Members))
	for _, i := range p.Comps[c].Members {
		in := &p.Inds[i]
		e := PedEntry{
			FamilyID:     in.FamilyID,
			IndividualID: in.ID,
			PaternalID:   "0",
			MaternalID:   "0",
			Sex:          in.Sex,
			Group:        int64(in.Group),
		}
		if in.Sire >= 0 {
			e.PaternalID = p.Inds[in.Sire].ID
			e.MaternalID = p.Inds[in.Dam].ID
		}
		out = append(out, e)
	}
	return out
}

func Must(e error) {
	if e != nil {
		panic(e)
	}
}
