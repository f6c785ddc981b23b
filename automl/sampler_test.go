package automl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// indexed returns a dataset whose feature and target both hold the row index.
func indexed(rows int) Dataset {
	X := mat.NewDense(rows, 1, nil)
	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		X.Set(i, 0, float64(i))
		y.SetVec(i, float64(i))
	}
	return Dataset{X: X, Y: y}
}

func TestSampleIdentityBelowCap(t *testing.T) {
	train, test := indexed(1000), indexed(200)
	work, sampled := Sample(train, test, 1000)
	assert.False(t, sampled)
	assert.Same(t, train.X, work.Train.X)
	assert.Same(t, train.Y, work.Train.Y)
	assert.Same(t, test.X, work.Test.X)
}

func TestSampleExactSizeAndOrder(t *testing.T) {
	train, test := indexed(5000), indexed(1000)
	before := mat.DenseCopyOf(train.X)

	work, sampled := Sample(train, test, 1200)
	require.True(t, sampled)
	require.Equal(t, 1200, work.Train.Rows())
	// min(0.3, 20000/1000) * 1000
	assert.Equal(t, 300, work.Test.Rows())

	for i := 0; i < work.Train.Rows(); i++ {
		assert.Equal(t, work.Train.X.At(i, 0), work.Train.Y.AtVec(i))
		if i > 0 {
			assert.Less(t, work.Train.X.At(i-1, 0), work.Train.X.At(i, 0))
		}
	}
	assert.True(t, mat.Equal(before, train.X))

	again, _ := Sample(train, test, 1200)
	assert.True(t, mat.Equal(work.Train.X, again.Train.X))
	assert.True(t, mat.Equal(work.Test.X, again.Test.X))
}

func TestSampleTinyTestSetKeepsOneRow(t *testing.T) {
	s := Sampler{Cap: 10, Seed: 42, TestFraction: 0.3, TestMax: 20000}
	work, sampled := s.Sample(indexed(100), indexed(2))
	require.True(t, sampled)
	assert.Equal(t, 1, work.Test.Rows())
}
