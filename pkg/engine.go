package pedpeel

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// PeelContext holds the pools and scratch space reused across peeling
// calls. It is not safe for concurrent use; give each goroutine its own.
type PeelContext struct {
	Ped    *Pedigree
	SIMode bool
	Log    *log.Entry

	src     rand.Source
	rng     *rand.Rand
	pool    rfPool
	graph   elimGraph
	en      enumerator
	pos     []int
	varFacs [][]*rfunc
	ops     []peelOp
	assign  []int
	weights []float64
	counts  [][]float64
	seqs    map[seqKey]*PeelSequence
}

func NewPeelContext(ped *Pedigree, src rand.Source, lg *log.Entry) *PeelContext {
	if lg == nil {
		lg = log.NewEntry(log.StandardLogger())
	}
	return &PeelContext{
		Ped:  ped,
		Log:  lg,
		src:  src,
		rng:  rand.New(src),
		seqs: map[seqKey]*PeelSequence{},
	}
}

// problem is a product of factors over nvar variables sharing one domain.
// prior[v], when set, weights variable v when it is peeled.
type problem struct {
	nvar  int
	dom   int
	prior [][]float64
	facs  []*rfunc
}

type peelOp struct {
	peel []int
	out  []int
	facs []*rfunc
}

func (c *PeelContext) prepare(nvar int) {
	c.pos = grow(c.pos, nvar)
	for i := range c.pos {
		c.pos[i] = -1
	}
	c.assign = grow(c.assign, nvar)
	for i := range c.assign {
		c.assign[i] = -1
	}
	for len(c.varFacs) < nvar {
		c.varFacs = append(c.varFacs, nil)
	}
	c.varFacs = c.varFacs[:nvar]
	for i := range c.varFacs {
		c.varFacs[i] = c.varFacs[i][:0]
	}
	c.ops = c.ops[:0]
}

func (c *PeelContext) addFactor(rf *rfunc) {
	for _, v := range rf.vars {
		c.varFacs[v] = append(c.varFacs[v], rf)
	}
}

// collect detaches every live factor touching a variable in peel.
func (c *PeelContext) collect(peel []int) (facs []*rfunc, out []int) {
	for _, v := range peel {
		for _, rf := range c.varFacs[v] {
			if !slices.Contains(facs, rf) {
				facs = append(facs, rf)
			}
		}
	}
	for _, rf := range facs {
		for _, v := range rf.vars {
			c.varFacs[v] = removeFactor(c.varFacs[v], rf)
			if !slices.Contains(peel, v) && !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	slices.Sort(out)
	return facs, out
}

func removeFactor(l []*rfunc, rf *rfunc) []*rfunc {
	if i := slices.Index(l, rf); i >= 0 {
		return slices.Delete(l, i, i+1)
	}
	return l
}

func (c *PeelContext) priorWeight(pr *problem, peel []int, vals []int) float64 {
	x := 1.0
	for j, v := range peel {
		if pr.prior[v] != nil {
			x *= pr.prior[v][vals[j]]
		}
	}
	return x
}

// run peels pr in the order given by steps and returns the log likelihood.
// When sample is set the steps are replayed in reverse afterwards, leaving a
// joint draw of every variable in c.assign. Terminal steps are then only
// evaluated in the reverse pass.
func (c *PeelContext) run(pr *problem, steps []PeelStep, sample bool) (float64, error) {
	c.prepare(pr.nvar)
	for _, rf := range pr.facs {
		c.addFactor(rf)
	}
	like := 0.0
	for si, st := range steps {
		facs, out := c.collect(st.Peel)
		op := peelOp{peel: st.Peel, out: out, facs: facs}
		if sample && len(out) == 0 {
			c.ops = append(c.ops, op)
			continue
		}
		res := c.pool.acquire(len(out), pr.dom)
		res.vars = append(res.vars, out...)
		vars := append(slices.Clone(out), st.Peel...)
		c.en.reset(vars, pr.dom, facs, nil, c.pos)
		psize := ipow(pr.dom, len(st.Peel))
		for n := 0; ; n++ {
			res.p[n/psize] += c.en.product() * c.priorWeight(pr, st.Peel, c.en.vals[len(out):])
			if !c.en.next() {
				break
			}
		}
		z := floats.Sum(res.p)
		if !(z > 0) {
			return like, fmt.Errorf("run: step %v peeling %v; %w", si, st.Peel, ErrZeroProbability)
		}
		like += math.Log(z)
		if len(out) > 0 {
			floats.Scale(1/z, res.p)
			c.addFactor(res)
		} else {
			c.pool.release(res)
		}
		if sample {
			c.ops = append(c.ops, op)
		} else {
			for _, rf := range facs {
				c.pool.release(rf)
			}
		}
		c.Log.WithFields(log.Fields{"step": si, "kind": st.Kind, "peel": st.Peel, "out": out, "z": z}).Trace("peel op")
	}
	if !sample {
		return like, nil
	}
	for i := len(c.ops) - 1; i >= 0; i-- {
		op := c.ops[i]
		c.en.reset(op.peel, pr.dom, op.facs, c.assign, c.pos)
		c.weights = c.weights[:0]
		for {
			c.weights = append(c.weights, c.en.product()*c.priorWeight(pr, op.peel, c.en.vals))
			if !c.en.next() {
				break
			}
		}
		z := floats.Sum(c.weights)
		if !(z > 0) {
			return like, fmt.Errorf("run: reverse step %v peeling %v; %w", i, op.peel, ErrZeroProbability)
		}
		if len(op.out) == 0 {
			like += math.Log(z)
		}
		k := int(distuv.NewCategorical(c.weights, c.src).Rand())
		for j := len(op.peel) - 1; j >= 0; j-- {
			c.assign[op.peel[j]] = k % pr.dom
			k /= pr.dom
		}
	}
	return like, nil
}

// scaled rescales rf to unit mass and returns the log of the old mass.
func scaled(rf *rfunc) (float64, error) {
	z := floats.Sum(rf.p)
	if !(z > 0) {
		return 0, ErrZeroProbability
	}
	floats.Scale(1/z, rf.p)
	return math.Log(z), nil
}
