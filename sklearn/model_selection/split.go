// Package model_selection provides cross-validation splitters, parameter
// grids and an exhaustive grid search over regression estimators.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// Fold holds the sample indices of one cross-validation split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits samples into NSplits consecutive folds. The first
// nSamples % NSplits folds receive one extra sample. With Shuffle set the
// indices are permuted once with RandomSeed before folding.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold returns an unshuffled k-fold splitter.
func NewKFold(nSplits int) *KFold {
	return &KFold{NSplits: nSplits}
}

// Split returns NSplits folds over nSamples samples.
func (kf *KFold) Split(nSamples int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", kf.NSplits)
	}
	if nSamples < kf.NSplits {
		return nil, errors.NewValidationError("n_splits",
			"cannot be greater than the number of samples", kf.NSplits)
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, kf.RandomSeed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	start := 0
	for i := range folds {
		size := foldSize
		if i < remainder {
			size++
		}
		end := start + size
		test := append([]int(nil), indices[start:end]...)
		train := make([]int, 0, nSamples-size)
		train = append(train, indices[:start]...)
		train = append(train, indices[end:]...)
		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		start = end
	}
	return folds, nil
}

// SelectRows copies the given rows of X into a new matrix.
func SelectRows(X mat.Matrix, rows []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(rows), c, nil)
	if d, ok := X.(*mat.Dense); ok {
		for i, r := range rows {
			copy(out.RawRowView(i), d.RawRowView(r))
		}
		return out
	}
	for i, r := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// SelectElems copies the given elements of y into a new vector.
func SelectElems(y mat.Vector, rows []int) *mat.VecDense {
	out := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		out.SetVec(i, y.AtVec(r))
	}
	return out
}

// SampleIndices draws k distinct indices from [0, n) with the given seed and
// returns them in ascending order.
func SampleIndices(n, k int, seed uint64) []int {
	if k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	r := rand.New(rand.NewPCG(seed, seed))
	picked := r.Perm(n)[:k]
	sort.Ints(picked)
	return picked
}

// TrainTestSplit shuffles the rows with seed and holds out
// ceil(testSize * n) of them for testing.
func TrainTestSplit(X mat.Matrix, y mat.Vector, testSize float64, seed uint64) (XTrain, XTest *mat.Dense, yTrain, yTest *mat.VecDense, err error) {
	n, _ := X.Dims()
	if n != y.Len() {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", n, y.Len(), 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, nil, nil, errors.NewValidationError("test_size",
			"leaves an empty train or test set", testSize)
	}

	r := rand.New(rand.NewPCG(seed, seed))
	perm := r.Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]
	return SelectRows(X, trainIdx), SelectRows(X, testIdx),
		SelectElems(y, trainIdx), SelectElems(y, testIdx), nil
}
