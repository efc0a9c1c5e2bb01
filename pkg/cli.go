package pedpeel

import (
	"flag"
	"fmt"
	"os"

	"github.com/jgbaldwinbrown/iterh"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

type ConfigFlags struct {
	Config
	ConfigPath string
}

// BindConfigFlags registers the flags shared by the commands on fs.
func BindConfigFlags(fs *flag.FlagSet, f *ConfigFlags) {
	f.Config = DefaultConfig()
	fs.StringVar(&f.ConfigPath, "config", "", "TOML config; flags given on the command line override it")
	fs.StringVar(&f.PedPath, "p", "", "input .ped path (default stdin)")
	fs.StringVar(&f.GenoPath, "g", "", "genotype path: ind, marker, a1, a2")
	fs.StringVar(&f.FreqPath, "f", "", "allele frequency path: marker, group, allele, freq")
	fs.StringVar(&f.MapPath, "m", "", "map path: marker, female cM, male cM")
	fs.StringVar(&f.OutPrefix, "o", f.OutPrefix, "output prefix")
	fs.StringVar(&f.Linkage, "l", f.Linkage, "linkage: autosomal, x, z, y, w or mit")
	fs.BoolVar(&f.Strict, "strict", false, "skip components at their first elimination error")
	fs.BoolVar(&f.SIMode, "si", false, "draw ambiguous segregation indicators")
	fs.BoolVar(&f.SampleFreq, "samplefreq", false, "resample allele frequencies each iteration")
	fs.BoolVar(&f.SafeParse, "safe", false, "skip unparseable pedigree lines")
	fs.IntVar(&f.Seed, "s", 0, "random seed")
	fs.IntVar(&f.Iterations, "i", f.Iterations, "sampling iterations")
	fs.IntVar(&f.Replicates, "r", f.Replicates, "gene drop replicates")
	fs.IntVar(&f.NAlleles, "n", f.NAlleles, "alleles per simulated locus")
	fs.Float64Var(&f.Missing, "missing", 0, "missing call rate for simulated markers")
	fs.StringVar(&f.LogLevel, "log", f.LogLevel, "log level")
}

// ParseConfigFlags parses args, then loads -config and reapplies the flags
// that were set explicitly.
func ParseConfigFlags(fs *flag.FlagSet, f *ConfigFlags, args []string) error {
	if e := fs.Parse(args); e != nil {
		return e
	}
	if f.ConfigPath == "" {
		return nil
	}
	set := map[string]string{}
	fs.Visit(func(fl *flag.Flag) {
		set[fl.Name] = fl.Value.String()
	})
	if e := f.Config.Load(f.ConfigPath); e != nil {
		return e
	}
	for name, val := range set {
		if e := fs.Set(name, val); e != nil {
			return e
		}
	}
	return nil
}

func GetConfigFlags() ConfigFlags {
	var f ConfigFlags
	BindConfigFlags(flag.CommandLine, &f)
	if e := ParseConfigFlags(flag.CommandLine, &f, os.Args[1:]); e != nil {
		log.Fatal(e)
	}
	return f
}

// Inputs is everything read from the input files of a run.
type Inputs struct {
	Ped     *Pedigree
	Entries []PedEntry
	Markers []*Marker
	Linkage Linkage
	Log     *log.Entry
}

func LoadInputs(c Config) (*Inputs, error) {
	lg, e := NewLogger(c.LogLevel)
	if e != nil {
		return nil, e
	}
	in := &Inputs{Log: lg}
	if in.Linkage, e = ParseLinkage(c.Linkage); e != nil {
		return nil, e
	}

	if c.SafeParse {
		r := os.Stdin
		if c.PedPath != "" {
			f, e := os.Open(c.PedPath)
			if e != nil {
				return nil, e
			}
			defer f.Close()
			r = f
		}
		in.Entries = ParsePedSafe(r, lg)
	} else if in.Entries, e = ParsePedPathMaybe(c.PedPath); e != nil {
		return nil, e
	}
	in.Entries = UniqPed(in.Entries...)
	if in.Ped, e = BuildPedigree(in.Entries...); e != nil {
		return nil, e
	}
	lg.WithFields(log.Fields{"individuals": in.Ped.Len(), "families": len(in.Ped.Fams), "components": len(in.Ped.Comps)}).Info("read pedigree")

	if c.GenoPath == "" {
		return in, nil
	}
	genos, e := iterh.CollectWithError(ParseGenosPath(c.GenoPath))
	if e != nil {
		return nil, e
	}
	if in.Markers, e = BuildMarkers(in.Ped, in.Linkage, genos...); e != nil {
		return nil, e
	}
	lg.WithField("markers", len(in.Markers)).Info("read genotypes")
	return in, nil
}

func (in *Inputs) Eliminate(strict bool) []*Elimination {
	out := make([]*Elimination, 0, len(in.Markers))
	for _, mk := range in.Markers {
		el := Eliminate(in.Ped, mk, ElimOptions{Strict: strict, Log: in.Log})
		in.Log.WithFields(log.Fields{"marker": mk.Name, "errors": len(el.Errors())}).Info("eliminated")
		out = append(out, el)
	}
	return out
}

// Loci builds one peeling locus per eliminated marker, with frequencies and
// map positions applied when configured. A locus has as many alleles as the
// largest one seen in either the genotypes or the frequency file.
func (in *Inputs) Loci(c Config, els []*Elimination) ([]*Locus, error) {
	var fs []FreqEntry
	if c.FreqPath != "" {
		var e error
		if fs, e = iterh.CollectWithError(ParseFreqsPath(c.FreqPath)); e != nil {
			return nil, e
		}
	}
	nall := FreqAlleles(fs...)

	loci := make([]*Locus, 0, len(els))
	byName := map[string]*Locus{}
	for _, el := range els {
		n := max(el.Marker.NAlleles, nall[el.Marker.Name], 1)
		l := NewLocus(el.Marker.Name, n, max(in.Ped.NGroups, 1), el.Marker.Linkage)
		el.Apply(l)
		el.SegIndicators(l)
		loci = append(loci, l)
		byName[l.Name] = l
	}
	if e := ApplyFreqs(byName, fs...); e != nil {
		return nil, e
	}
	if c.MapPath != "" {
		ms, e := iterh.CollectWithError(ParseMapPath(c.MapPath))
		if e != nil {
			return nil, e
		}
		ApplyMap(byName, ms...)
	}
	return loci, nil
}

func AllErrors(els ...*Elimination) []ElimError {
	var out []ElimError
	for _, el := range els {
		out = append(out, el.Errors()...)
	}
	return out
}

func FullEliminate() {
	f := GetConfigFlags()
	in, e := LoadInputs(f.Config)
	if e != nil {
		log.Fatal(e)
	}
	els := in.Eliminate(f.Strict)
	var tdts []TDTResult
	for _, el := range els {
		tdts = append(tdts, el.TDTAll()...)
	}
	if e := WriteTDTPath(f.OutPrefix+"_tdt.txt", tdts...); e != nil {
		log.Fatal(e)
	}
	errs := AllErrors(els...)
	if e := WriteElimErrorsPath(f.OutPrefix+"_errors.txt", in.Ped, errs...); e != nil {
		log.Fatal(e)
	}
	if len(errs) == 0 {
		return
	}
	if e := WriteGraphVizPath(f.OutPrefix+"_errors.dot", in.Ped, errs...); e != nil {
		log.Fatal(e)
	}
}

// RunPeel peels every locus once without sampling, then runs the sampling
// iterations. It returns the unsampled log likelihoods and the per-iteration
// ones.
func RunPeel(ctx *PeelContext, loci []*Locus, c Config) (base []float64, likes [][]float64, err error) {
	base = make([]float64, len(loci))
	likes = make([][]float64, len(loci))
	for i := range loci {
		if base[i], err = ctx.PeelLocus(loci, i, 0); err != nil {
			return nil, nil, err
		}
	}
	flags := Sample | CountAlleles
	if c.SampleFreq {
		flags |= SampleFreq
	}
	for it := 0; it < c.Iterations; it++ {
		for i := range loci {
			lk, e := ctx.PeelLocus(loci, i, flags)
			if e != nil {
				return nil, nil, e
			}
			likes[i] = append(likes[i], lk)
		}
	}
	return base, likes, nil
}

func FullPeel() {
	f := GetConfigFlags()
	in, e := LoadInputs(f.Config)
	if e != nil {
		log.Fatal(e)
	}
	els := in.Eliminate(f.Strict)
	if errs := AllErrors(els...); len(errs) > 0 {
		if e := WriteElimErrorsPath(f.OutPrefix+"_errors.txt", in.Ped, errs...); e != nil {
			log.Fatal(e)
		}
	}
	loci, e := in.Loci(f.Config, els)
	if e != nil {
		log.Fatal(e)
	}

	ctx := NewPeelContext(in.Ped, rand.NewSource(uint64(f.Seed)), in.Log)
	ctx.SIMode = f.SIMode
	base, likes, e := RunPeel(ctx, loci, f.Config)
	if e != nil {
		log.Fatal(e)
	}
	for i, l := range loci {
		fmt.Printf("%v\t%v\n", l.Name, base[i])
	}

	names := make([]string, 0, len(loci))
	for _, l := range loci {
		names = append(names, l.Name)
	}
	ss, e := iterh.CollectWithError(Summaries(names, likes))
	if e != nil {
		log.Fatal(e)
	}
	if e := WriteSummariesPath(f.OutPrefix+"_likes.txt", ss...); e != nil {
		log.Fatal(e)
	}
	if f.Iterations > 0 {
		if e := WriteSampledGenosPath(f.OutPrefix+"_genos.txt.gz", in.Ped, loci...); e != nil {
			log.Fatal(e)
		}
	}
}

// GeneDropTest compares the likelihood of each observed marker against
// markers simulated on the same pedigree with the same missing calls. The
// result is the share of replicates at least as unlikely as the data.
func GeneDropTest(in *Inputs, c Config, src rand.Source) (map[string]float64, error) {
	els := in.Eliminate(c.Strict)
	loci, e := in.Loci(c, els)
	if e != nil {
		return nil, e
	}
	ctx := NewPeelContext(in.Ped, src, in.Log)
	out := map[string]float64{}
	for i, l := range loci {
		actual, e := ctx.PeelLocus(loci, i, 0)
		if e != nil {
			return nil, e
		}
		null := make([]float64, 0, c.Replicates)
		for r := 0; r < c.Replicates; r++ {
			mk := Observe(l.Name, l.NAlleles, l.Linkage, GeneDrop(in.Ped, l, src), 0, src)
			MaskLike(mk, in.Markers[i])
			sim := NewLocus(l.Name, l.NAlleles, len(l.Freq), l.Linkage)
			sim.Freq = l.Freq
			Eliminate(in.Ped, mk, ElimOptions{Log: in.Log}).Apply(sim)
			lk, e := ctx.PeelLocus([]*Locus{sim}, 0, 0)
			if e != nil {
				return nil, e
			}
			null = append(null, lk)
		}
		out[l.Name] = EmpiricalP(actual, null)
	}
	return out, nil
}

// FullGeneDrop simulates markers when no genotypes are given and tests the
// given ones otherwise.
func FullGeneDrop() {
	f := GetConfigFlags()
	in, e := LoadInputs(f.Config)
	if e != nil {
		log.Fatal(e)
	}
	src := rand.NewSource(uint64(f.Seed))

	if len(in.Markers) > 0 {
		ps, e := GeneDropTest(in, f.Config, src)
		if e != nil {
			log.Fatal(e)
		}
		for _, mk := range in.Markers {
			fmt.Printf("%v\t%v\n", mk.Name, ps[mk.Name])
		}
		return
	}

	mks := make([]*Marker, 0, f.Replicates)
	for r := 0; r < f.Replicates; r++ {
		l := NewLocus(fmt.Sprintf("sim%v", r), f.NAlleles, max(in.Ped.NGroups, 1), in.Linkage)
		mks = append(mks, Observe(l.Name, l.NAlleles, l.Linkage, GeneDrop(in.Ped, l, src), f.Missing, src))
	}
	if e := WriteGenosPath(f.OutPrefix+"_genos.txt", in.Ped, mks...); e != nil {
		log.Fatal(e)
	}
}

// FullExtract writes the component containing one individual.
func FullExtract() {
	var id string
	var f ConfigFlags
	flag.StringVar(&id, "id", "", "individual whose component to extract")
	BindConfigFlags(flag.CommandLine, &f)
	if e := ParseConfigFlags(flag.CommandLine, &f, os.Args[1:]); e != nil {
		log.Fatal(e)
	}
	in, e := LoadInputs(f.Config)
	if e != nil {
		log.Fatal(e)
	}
	i, ok := in.Ped.Index(id)
	if !ok {
		log.Fatalf("individual %v not in pedigree", id)
	}
	if e := WritePed(os.Stdout, in.Ped.ComponentEntries(in.Ped.Inds[i].Component)); e != nil {
		log.Fatal(e)
	}
}
