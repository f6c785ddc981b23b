package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/internal/config"
	"github.com/mirzakinn/sales-prediction/linear"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/preprocessing"
)

// salesCSV has 20 rows: sales = 10*price + 3 (+100 in the north region).
// Row 5 is missing its price and row 12 its sales.
func salesCSV() string {
	var b strings.Builder
	b.WriteString("price, region ,sales\n")
	for i := 0; i < 20; i++ {
		region := "south"
		bonus := 0
		if i%2 == 0 {
			region, bonus = "north", 100
		}
		price := fmt.Sprint(i)
		sales := fmt.Sprint(10*i + 3 + bonus)
		switch i {
		case 5:
			price = "NA"
		case 12:
			sales = ""
		}
		fmt.Fprintf(&b, "%s,%s,%s\n", price, region, sales)
	}
	return b.String()
}

func readSales(t *testing.T) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(salesCSV()))
	require.NoError(t, err)
	return tbl
}

func defaultOptions() Options {
	return OptionsFrom(config.DefaultConfig().Data, "sales", nil)
}

func TestReadCSV(t *testing.T) {
	tbl := readSales(t)
	assert.Equal(t, []string{"price", "region", "sales"}, tbl.Header)
	assert.Len(t, tbl.Rows, 20)
	idx, ok := tbl.Column("region")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = tbl.Column("profit")
	assert.False(t, ok)

	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("a,a\n1,2\n"))
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	assert.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV()), 0o600))
	tbl, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 20)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestIsMissing(t *testing.T) {
	for _, s := range []string{"", "NA", "n/a", "NaN", "null", "None"} {
		assert.True(t, IsMissing(s), s)
	}
	for _, s := range []string{"0", "north", "-"} {
		assert.False(t, IsMissing(s), s)
	}
}

func TestPrepareDropsEncodesSplitsAndScales(t *testing.T) {
	p, err := Prepare(readSales(t), defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 18, p.Rows)
	assert.Equal(t, 2, p.Dropped)
	assert.Equal(t, []string{"price", "region"}, p.FeatureNames)
	// ceil(0.2 * 18) = 4
	assert.Equal(t, 14, p.Train.Rows())
	assert.Equal(t, 4, p.Test.Rows())
	assert.Equal(t, 2, p.Train.Cols())

	require.Contains(t, p.Encoders, "region")
	assert.Equal(t, []string{"north", "south"}, p.Encoders["region"].Classes)
	assert.NotContains(t, p.Encoders, "price")

	scaler, ok := p.Scaler.(*preprocessing.StandardScaler)
	require.True(t, ok)
	for j := 0; j < 2; j++ {
		col := mat.Col(nil, j, p.Train.X)
		var sum float64
		for _, v := range col {
			sum += v
		}
		assert.InDelta(t, 0, sum/float64(len(col)), 1e-9)
	}
	assert.Len(t, scaler.Mean, 2)
}

func TestPrepareIsDeterministic(t *testing.T) {
	a, err := Prepare(readSales(t), defaultOptions())
	require.NoError(t, err)
	b, err := Prepare(readSales(t), defaultOptions())
	require.NoError(t, err)
	assert.True(t, mat.Equal(a.Train.X, b.Train.X))
	assert.True(t, mat.Equal(a.Test.Y, b.Test.Y))
}

func TestPrepareWithoutScaling(t *testing.T) {
	opts := defaultOptions()
	opts.Scaler = config.ScalerNone
	opts.Features = []string{"price"}
	p, err := Prepare(readSales(t), opts)
	require.NoError(t, err)
	assert.Nil(t, p.Scaler)
	assert.Empty(t, p.Encoders)
	assert.Equal(t, 2, p.Dropped)
	for i := 0; i < p.Train.Rows(); i++ {
		price := p.Train.X.At(i, 0)
		sales := p.Train.Y.AtVec(i)
		assert.Contains(t, []float64{10*price + 3, 10*price + 103}, sales)
	}
}

func TestPrepareRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		csv    string
	}{
		{"unknown target", func(o *Options) { o.Target = "profit" }, ""},
		{"unknown feature", func(o *Options) { o.Features = []string{"weather"} }, ""},
		{"target as feature", func(o *Options) { o.Features = []string{"sales"} }, ""},
		{"missing fails", func(o *Options) { o.Missing = config.MissingFail }, ""},
		{"bad scaler", func(o *Options) { o.Scaler = "robust" }, ""},
		{"bad test size", func(o *Options) { o.TestSize = 0 }, ""},
		{"text target", func(o *Options) { o.Target = "region"; o.Features = []string{"price"} }, ""},
		{"too few rows", nil, "price,sales\n1,2\nNA,3\n"},
		{"infinite feature", nil, "price,sales\n1,2\ninf,3\n4,5\n"},
		{"infinite target", nil, "price,sales\n1,2\n2,-Infinity\n4,5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := readSales(t)
			if tt.csv != "" {
				var err error
				tbl, err = ReadCSV(strings.NewReader(tt.csv))
				require.NoError(t, err)
			}
			opts := defaultOptions()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			_, err := Prepare(tbl, opts)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestPreparedTransformAppliesFittedEncodersAndScaler(t *testing.T) {
	p, err := Prepare(readSales(t), defaultOptions())
	require.NoError(t, err)

	raw, err := ReadCSV(strings.NewReader("region,price,note\nsouth,3,x\nnorth,7,y\n"))
	require.NoError(t, err)
	got, err := p.Transform(raw)
	require.NoError(t, err)

	// north=0, south=1; column order follows FeatureNames.
	want, err := p.Scaler.Transform(mat.NewDense(2, 2, []float64{3, 1, 7, 0}))
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))

	lr := linear.NewLinearRegression()
	require.NoError(t, lr.Fit(p.Train.X, p.Train.Y))
	pred, err := p.Predict(lr, raw)
	require.NoError(t, err)
	require.Len(t, pred, 2)
	assert.InDelta(t, 33, pred[0], 1e-6)
	assert.InDelta(t, 173, pred[1], 1e-6)
}

func TestPreparedTransformRejects(t *testing.T) {
	p, err := Prepare(readSales(t), defaultOptions())
	require.NoError(t, err)

	tests := []struct {
		name string
		csv  string
	}{
		{"unseen label", "price,region\n3,east\n"},
		{"missing column", "price\n3\n"},
		{"missing cell", "price,region\nNA,north\n"},
		{"text in numeric column", "price,region\ncheap,north\n"},
		{"infinite value", "price,region\n+Inf,north\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ReadCSV(strings.NewReader(tt.csv))
			require.NoError(t, err)
			_, err = p.Transform(raw)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}

	_, err = p.Transform(&Table{Header: []string{"price", "region"}})
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}
