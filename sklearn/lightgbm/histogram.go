package lightgbm

import (
	"math"
	"sort"

	"github.com/mirzakinn/sales-prediction/core/parallel"
)

// HistogramBin accumulates the gradient statistics of the rows whose value
// falls in (previous UpperBound, UpperBound].
type HistogramBin struct {
	UpperBound float64
	Count      int
	SumGrad    float64
	SumHess    float64
}

// FeatureHistogram is the histogram of one feature over one leaf. Bins is nil
// for features left out of the current tree.
type FeatureHistogram struct {
	FeatureIndex int
	Bins         []HistogramBin
}

// SplitInfo describes the best split found for a leaf. Bin is the last bin
// that goes left.
type SplitInfo struct {
	Feature    int
	Bin        int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
	LeftGrad   float64
	RightGrad  float64
	LeftHess   float64
	RightHess  float64
}

// Valid reports whether a usable split was found.
func (s SplitInfo) Valid() bool { return s.Gain > 0 }

// HistogramBuilder discretises the training features once and builds
// per-leaf gradient histograms over the resulting bins.
type HistogramBuilder struct {
	MaxBin              int
	Lambda              float64 // L2 regularisation
	Alpha               float64 // L1 regularisation
	MinGainToSplit      float64
	MinDataInLeaf       int
	MinSumHessianInLeaf float64

	// binBounds[f] holds the upper bound of every bin of feature f; the last
	// bound is +Inf.
	binBounds [][]float64
	// binned[f][i] is the bin of row i on feature f.
	binned [][]int
}

// NewHistogramBuilder copies the split constraints out of params.
func NewHistogramBuilder(params *TrainingParams) *HistogramBuilder {
	maxBin := params.MaxBin
	if maxBin < 2 {
		maxBin = 255
	}
	return &HistogramBuilder{
		MaxBin:              maxBin,
		Lambda:              params.Lambda,
		Alpha:               params.Alpha,
		MinGainToSplit:      params.MinGainToSplit,
		MinDataInLeaf:       max(params.MinDataInLeaf, 1),
		MinSumHessianInLeaf: params.MinSumHessianInLeaf,
	}
}

// Bin computes the bin boundaries of every column and assigns each row to
// its bin. columns is column-major.
func (hb *HistogramBuilder) Bin(columns [][]float64) {
	hb.binBounds = make([][]float64, len(columns))
	hb.binned = make([][]int, len(columns))
	parallel.ForEach(len(columns), func(f int) {
		bounds := hb.findBinBoundaries(columns[f])
		idx := make([]int, len(columns[f]))
		for i, v := range columns[f] {
			idx[i] = findBinIndex(v, bounds)
		}
		hb.binBounds[f] = bounds
		hb.binned[f] = idx
	})
}

// GoesLeft reports whether row i falls on the left side of split.
func (hb *HistogramBuilder) GoesLeft(split SplitInfo, i int) bool {
	return hb.binned[split.Feature][i] <= split.Bin
}

// findBinBoundaries places one bin per distinct value when there are at most
// MaxBin of them, cutting halfway between neighbours, and equal-frequency
// bins otherwise.
func (hb *HistogramBuilder) findBinBoundaries(values []float64) []float64 {
	if len(values) == 0 {
		return []float64{math.Inf(1)}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	unique := sorted[:1:1]
	for _, v := range sorted[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}

	var bounds []float64
	if len(unique) <= hb.MaxBin {
		bounds = make([]float64, 0, len(unique))
		for i := 0; i+1 < len(unique); i++ {
			bounds = append(bounds, (unique[i]+unique[i+1])/2)
		}
	} else {
		last := sorted[len(sorted)-1]
		for i := 1; i < hb.MaxBin; i++ {
			cut := sorted[(len(sorted)-1)*i/hb.MaxBin]
			if cut >= last {
				break
			}
			if len(bounds) == 0 || cut > bounds[len(bounds)-1] {
				bounds = append(bounds, cut)
			}
		}
	}
	return append(bounds, math.Inf(1))
}

// findBinIndex returns the first bin whose upper bound is >= value.
func findBinIndex(value float64, binBounds []float64) int {
	i := sort.SearchFloat64s(binBounds, value)
	if i >= len(binBounds) {
		return len(binBounds) - 1
	}
	return i
}

// BuildHistograms aggregates grad and hess over the rows in indices for
// each feature in features.
func (hb *HistogramBuilder) BuildHistograms(indices, features []int, gradients, hessians []float64) []FeatureHistogram {
	histograms := make([]FeatureHistogram, len(hb.binned))
	for f := range histograms {
		histograms[f].FeatureIndex = f
	}
	parallel.ForEach(len(features), func(k int) {
		f := features[k]
		bounds := hb.binBounds[f]
		bins := make([]HistogramBin, len(bounds))
		for b := range bins {
			bins[b].UpperBound = bounds[b]
		}
		col := hb.binned[f]
		for _, i := range indices {
			bin := &bins[col[i]]
			bin.Count++
			bin.SumGrad += gradients[i]
			bin.SumHess += hessians[i]
		}
		histograms[f].Bins = bins
	})
	return histograms
}

// HistogramSubtraction derives a child's histograms as parent minus sibling,
// which avoids a pass over the larger child's rows.
func (hb *HistogramBuilder) HistogramSubtraction(parent, sibling []FeatureHistogram) []FeatureHistogram {
	result := make([]FeatureHistogram, len(parent))
	for f := range parent {
		result[f].FeatureIndex = f
		if parent[f].Bins == nil {
			continue
		}
		bins := make([]HistogramBin, len(parent[f].Bins))
		for b := range bins {
			p, s := parent[f].Bins[b], sibling[f].Bins[b]
			bins[b] = HistogramBin{
				UpperBound: p.UpperBound,
				Count:      p.Count - s.Count,
				SumGrad:    p.SumGrad - s.SumGrad,
				SumHess:    p.SumHess - s.SumHess,
			}
		}
		result[f].Bins = bins
	}
	return result
}

// FindBestSplit scans every histogram and returns the split with the largest
// gain, or a zero SplitInfo when none beats MinGainToSplit.
func (hb *HistogramBuilder) FindBestSplit(histograms []FeatureHistogram, totalGrad, totalHess float64, count int) SplitInfo {
	var best SplitInfo
	for _, hist := range histograms {
		split := hb.FindBestSplitFromHistogram(hist, totalGrad, totalHess, count)
		if split.Gain > best.Gain {
			best = split
		}
	}
	return best
}

// FindBestSplitFromHistogram tries every bin boundary of one feature.
func (hb *HistogramBuilder) FindBestSplitFromHistogram(hist FeatureHistogram, totalGrad, totalHess float64, count int) SplitInfo {
	best := SplitInfo{Feature: hist.FeatureIndex}
	var leftGrad, leftHess float64
	leftCount := 0
	for b := 0; b+1 < len(hist.Bins); b++ {
		bin := hist.Bins[b]
		leftGrad += bin.SumGrad
		leftHess += bin.SumHess
		leftCount += bin.Count
		if bin.Count == 0 {
			continue
		}
		rightCount := count - leftCount
		if leftCount < hb.MinDataInLeaf || rightCount < hb.MinDataInLeaf {
			continue
		}
		rightGrad, rightHess := totalGrad-leftGrad, totalHess-leftHess
		if leftHess < hb.MinSumHessianInLeaf || rightHess < hb.MinSumHessianInLeaf {
			continue
		}
		gain := hb.calculateGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess)
		if gain > hb.MinGainToSplit && gain > best.Gain {
			best = SplitInfo{
				Feature:    hist.FeatureIndex,
				Bin:        b,
				Threshold:  bin.UpperBound,
				Gain:       gain,
				LeftCount:  leftCount,
				RightCount: rightCount,
				LeftGrad:   leftGrad,
				RightGrad:  rightGrad,
				LeftHess:   leftHess,
				RightHess:  rightHess,
			}
		}
	}
	return best
}

// calculateGain is the reduction in regularised loss from splitting a leaf.
func (hb *HistogramBuilder) calculateGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	gain := 0.5 * (hb.leafScore(leftGrad, leftHess) + hb.leafScore(rightGrad, rightHess) - hb.leafScore(totalGrad, totalHess))
	if math.IsNaN(gain) || math.IsInf(gain, 0) {
		return 0
	}
	return gain
}

func (hb *HistogramBuilder) leafScore(sumGrad, sumHess float64) float64 {
	denom := sumHess + hb.Lambda
	if denom < 1e-16 {
		return 0
	}
	g := thresholdL1(sumGrad, hb.Alpha)
	return g * g / denom
}

// LeafValue is the loss-minimising output of a leaf, -G/(H+λ) with G
// soft-thresholded by the L1 penalty.
func (hb *HistogramBuilder) LeafValue(sumGrad, sumHess float64) float64 {
	denom := sumHess + hb.Lambda
	if denom < 1e-16 {
		return 0
	}
	return -thresholdL1(sumGrad, hb.Alpha) / denom
}

func thresholdL1(g, alpha float64) float64 {
	if alpha <= 0 {
		return g
	}
	reg := math.Max(math.Abs(g)-alpha, 0)
	return math.Copysign(reg, g)
}
