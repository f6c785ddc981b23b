package automl

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/sklearn/model_selection"
)

// Dataset is a numeric feature matrix with its target. X.Rows must equal Y.Len.
type Dataset struct {
	X *mat.Dense
	Y *mat.VecDense
}

// Rows returns the number of samples.
func (d Dataset) Rows() int {
	if d.X == nil {
		return 0
	}
	r, _ := d.X.Dims()
	return r
}

// Cols returns the number of features.
func (d Dataset) Cols() int {
	if d.X == nil {
		return 0
	}
	_, c := d.X.Dims()
	return c
}

// Validate checks the dataset is non-empty, X and Y agree on rows and every
// cell is finite.
func (d Dataset) Validate(name string) error {
	if d.X == nil || d.Y == nil {
		return errors.NewValidationError(name, "features and target are required", nil)
	}
	r, c := d.X.Dims()
	if r == 0 || c == 0 {
		return errors.NewValidationError(name, "must not be empty", r)
	}
	if d.Y.Len() != r {
		return errors.NewDimensionError(name, r, d.Y.Len(), 0)
	}
	for i := 0; i < r; i++ {
		if v := d.Y.AtVec(i); !finite(v) {
			return errors.NewValidationError(name, fmt.Sprintf("target row %d is not finite", i), v)
		}
		for j := 0; j < c; j++ {
			if v := d.X.At(i, j); !finite(v) {
				return errors.NewValidationError(name, fmt.Sprintf("feature row %d column %d is not finite", i, j), v)
			}
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (d Dataset) subset(rows []int) Dataset {
	return Dataset{
		X: model_selection.SelectRows(d.X, rows),
		Y: model_selection.SelectElems(d.Y, rows),
	}
}

// Split pairs a training set with its test set.
type Split struct {
	Train Dataset
	Test  Dataset
}

// Sampler reduces oversized training sets to a fixed-size uniform sample.
type Sampler struct {
	Cap          int
	Seed         uint64
	TestFraction float64
	TestMax      int
}

// Sample draws Cap training rows without replacement when train has more
// than Cap rows, and subsamples test to
// floor(min(TestFraction, TestMax/testRows) * testRows) rows (at least one)
// with the same seed. Sampled rows keep their original order. Otherwise
// the inputs are returned as they are; they are never modified.
func (s Sampler) Sample(train, test Dataset) (Split, bool) {
	if train.Rows() <= s.Cap {
		return Split{Train: train, Test: test}, false
	}
	work := Split{
		Train: train.subset(model_selection.SampleIndices(train.Rows(), s.Cap, s.Seed)),
		Test:  test,
	}
	if n := test.Rows(); n > 0 {
		frac := math.Min(s.TestFraction, float64(s.TestMax)/float64(n))
		k := max(1, int(math.Floor(frac*float64(n))))
		if k < n {
			work.Test = test.subset(model_selection.SampleIndices(n, k, s.Seed))
		}
	}
	return work, true
}

// Sample applies the default sampler with the given training cap.
func Sample(train, test Dataset, rowCap int) (Split, bool) {
	s := DefaultConfig().Sampler()
	s.Cap = rowCap
	return s.Sample(train, test)
}
