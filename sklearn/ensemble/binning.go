package ensemble

import (
	"sort"

	"github.com/mirzakinn/sales-prediction/core/parallel"
)

// DefaultMaxBin is the maximum number of histogram bins per feature.
const DefaultMaxBin = 255

// binMapper discretises each feature into at most maxBin ordered bins.
// thresholds[f][b] is the upper edge of bin b, so x <= thresholds[f][b]
// exactly when x falls in a bin <= b.
type binMapper struct {
	thresholds [][]float64
}

func newBinMapper(cols [][]float64, maxBin int) *binMapper {
	if maxBin <= 1 || maxBin > DefaultMaxBin {
		maxBin = DefaultMaxBin
	}
	m := &binMapper{thresholds: make([][]float64, len(cols))}
	parallel.ForEach(len(cols), func(f int) {
		m.thresholds[f] = binThresholds(cols[f], maxBin)
	})
	return m
}

// binThresholds returns the cut points between bins. With few distinct
// values every value gets its own bin, otherwise bins hold equal counts of
// distinct values.
func binThresholds(values []float64, maxBin int) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	unique := sorted[:1]
	for _, v := range sorted[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}

	step := 1
	if len(unique) > maxBin {
		step = (len(unique) + maxBin - 1) / maxBin
	}
	cuts := make([]float64, 0, len(unique)/step)
	for i := step; i < len(unique); i += step {
		lo, hi := unique[i-1], unique[i]
		cut := lo + (hi-lo)/2
		if cut >= hi {
			cut = lo
		}
		cuts = append(cuts, cut)
	}
	return cuts
}

func (m *binMapper) numBins(f int) int {
	return len(m.thresholds[f]) + 1
}

func (m *binMapper) bin(f int, x float64) uint8 {
	th := m.thresholds[f]
	return uint8(sort.Search(len(th), func(i int) bool { return th[i] >= x }))
}

// transform bins column-major data.
func (m *binMapper) transform(cols [][]float64) [][]uint8 {
	out := make([][]uint8, len(cols))
	parallel.ForEach(len(cols), func(f int) {
		col := cols[f]
		binned := make([]uint8, len(col))
		for i, x := range col {
			binned[i] = m.bin(f, x)
		}
		out[f] = binned
	})
	return out
}
