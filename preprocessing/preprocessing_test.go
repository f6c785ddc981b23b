package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})
	s := NewStandardScalerDefault()
	out, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, 1.118033988749895, s.Scale[0], 1e-12)
	// constant column keeps unit scale
	assert.Equal(t, 1.0, s.Scale[1])
	assert.InDelta(t, 0.0, out.At(0, 1), 1e-12)

	back, err := s.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))

	_, err = s.Transform(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestStandardScalerNotFitted(t *testing.T) {
	_, err := NewStandardScalerDefault().Transform(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{10, 20, 30})
	m := NewMinMaxScalerDefault()
	out, err := m.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, mat.Col(nil, 0, out))

	back, err := m.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestLabelEncoder(t *testing.T) {
	e := NewLabelEncoder()
	codes, err := e.FitTransform([]string{"north", "south", "east", "north"})
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "north", "south"}, e.Classes)
	assert.Equal(t, []float64{1, 2, 0, 1}, codes)

	labels, err := e.InverseTransform([]float64{0, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "south"}, labels)

	_, err = e.Transform([]string{"west"})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}
