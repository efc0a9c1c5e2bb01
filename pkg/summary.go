package pedpeel

import (
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/montanaflynn/stats"
)

func Zscores(fs stats.Float64Data) ([]float64, error) {
	mean, e := stats.Mean(fs)
	if e != nil {
		return nil, e
	}
	sd, e := stats.StandardDeviation(fs)
	if e != nil {
		return nil, e
	}
	out := make([]float64, 0, len(fs))
	for _, f := range fs {
		if sd == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (f-mean)/sd)
	}
	return out, nil
}

func Quantile(fs []float64, perc float64) float64 {
	sorted := slices.Sorted(slices.Values(fs))
	quant := min(int(perc*float64(len(fs))), len(fs)-1)
	return sorted[quant]
}

// LikeSummary describes the log likelihoods one locus took over the
// iterations of a run.
type LikeSummary struct {
	Locus string
	N     int
	Mean  float64
	SD    float64
	Lo    float64
	Hi    float64
}

func SummarizeLikes(locus string, likes stats.Float64Data) (LikeSummary, error) {
	s := LikeSummary{Locus: locus, N: len(likes)}
	var e error
	if s.Mean, e = stats.Mean(likes); e != nil {
		return s, fmt.Errorf("SummarizeLikes: %v; %w", locus, e)
	}
	if s.SD, e = stats.StandardDeviation(likes); e != nil {
		return s, fmt.Errorf("SummarizeLikes: %v; %w", locus, e)
	}
	if s.Lo, e = stats.PercentileNearestRank(likes, 2.5); e != nil {
		return s, fmt.Errorf("SummarizeLikes: %v; %w", locus, e)
	}
	if s.Hi, e = stats.PercentileNearestRank(likes, 97.5); e != nil {
		return s, fmt.Errorf("SummarizeLikes: %v; %w", locus, e)
	}
	return s, nil
}

// Summaries skips loci with no recorded likelihoods.
func Summaries(names []string, likes [][]float64) iter.Seq2[LikeSummary, error] {
	return func(y func(LikeSummary, error) bool) {
		for i, name := range names {
			if len(likes[i]) == 0 {
				continue
			}
			if !y(SummarizeLikes(name, likes[i])) {
				return
			}
		}
	}
}

func WriteSummaries(w io.Writer, ss ...LikeSummary) error {
	if _, e := fmt.Fprintf(w, "locus\tn\tmean\tsd\tlo\thi\tz\n"); e != nil {
		return e
	}
	means := make([]float64, 0, len(ss))
	for _, s := range ss {
		means = append(means, s.Mean)
	}
	zs := make([]float64, len(ss))
	if len(ss) > 1 {
		var e error
		if zs, e = Zscores(means); e != nil {
			return e
		}
	}
	for i, s := range ss {
		if _, e := fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\n", s.Locus, s.N, s.Mean, s.SD, s.Lo, s.Hi, zs[i]); e != nil {
			return e
		}
	}
	return nil
}

func WriteSummariesPath(path string, ss ...LikeSummary) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return e
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()
	return WriteSummaries(w, ss...)
}
