// Package dataset turns a CSV table into the train and test matrices the
// search consumes.
//
// Preparation follows a fixed order: select columns, handle missing
// values, label-encode non-numeric features, split, then scale with
// statistics fitted on the training rows only.
package dataset

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/automl"
	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/internal/config"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
	"github.com/mirzakinn/sales-prediction/preprocessing"
	"github.com/mirzakinn/sales-prediction/sklearn/model_selection"
)

// Options selects the target and features and controls preparation.
// Empty Features means every column except the target.
type Options struct {
	Target   string
	Features []string
	TestSize float64
	Seed     uint64
	Scaler   string
	Missing  string
}

// OptionsFrom builds Options from the data section of cfg.
func OptionsFrom(cfg config.Data, target string, features []string) Options {
	return Options{
		Target:   target,
		Features: features,
		TestSize: cfg.TestSize,
		Seed:     cfg.Seed,
		Scaler:   cfg.Scaler,
		Missing:  cfg.Missing,
	}
}

// Prepared is a table ready for training.
type Prepared struct {
	Train        automl.Dataset
	Test         automl.Dataset
	Target       string
	FeatureNames []string

	// Encoders holds one label encoder per non-numeric feature column.
	Encoders map[string]*preprocessing.LabelEncoder
	// Scaler is nil when scaling is disabled.
	Scaler model.Transformer

	Rows    int
	Dropped int
}

// Prepare converts t according to opts.
func Prepare(t *Table, opts Options) (*Prepared, error) {
	logger := log.GetLoggerWithName("dataset")

	targetIdx, ok := t.Column(opts.Target)
	if !ok {
		return nil, errors.NewValidationError("target", "no such column", opts.Target)
	}
	features := opts.Features
	if len(features) == 0 {
		for _, h := range t.Header {
			if h != opts.Target {
				features = append(features, h)
			}
		}
	}
	if len(features) == 0 {
		return nil, errors.NewValidationError("features", "no feature columns", t.Header)
	}
	featIdx := make([]int, len(features))
	for i, name := range features {
		if name == opts.Target {
			return nil, errors.NewValidationError("features", "target cannot be a feature", name)
		}
		idx, ok := t.Column(name)
		if !ok {
			return nil, errors.NewValidationError("features", "no such column", name)
		}
		featIdx[i] = idx
	}

	rows, dropped, err := completeRows(t, append([]int{targetIdx}, featIdx...), opts.Missing)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.NewValidationError("rows", "need at least two complete rows", len(rows))
	}

	y := make([]float64, len(rows))
	for i, row := range rows {
		v, err := strconv.ParseFloat(row[targetIdx], 64)
		if err != nil {
			return nil, errors.NewValidationError("target", "must be numeric for regression", row[targetIdx])
		}
		if math.IsInf(v, 0) {
			return nil, errors.NewValidationError("target", "must be finite", row[targetIdx])
		}
		y[i] = v
	}

	X := mat.NewDense(len(rows), len(features), nil)
	encoders := make(map[string]*preprocessing.LabelEncoder)
	for j, idx := range featIdx {
		col := make([]string, len(rows))
		for i, row := range rows {
			col[i] = row[idx]
		}
		values, numeric, err := parseNumeric(features[j], col)
		if err != nil {
			return nil, err
		}
		if !numeric {
			enc := preprocessing.NewLabelEncoder()
			if values, err = enc.FitTransform(col); err != nil {
				return nil, err
			}
			encoders[features[j]] = enc
		}
		X.SetCol(j, values)
	}

	XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(X, mat.NewVecDense(len(y), y), opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}

	scaler, err := newScaler(opts.Scaler)
	if err != nil {
		return nil, err
	}
	if scaler != nil {
		if XTrain, err = transform(scaler.FitTransform(XTrain)); err != nil {
			return nil, err
		}
		if XTest, err = transform(scaler.Transform(XTest)); err != nil {
			return nil, err
		}
	}

	p := &Prepared{
		Train:        automl.Dataset{X: XTrain, Y: yTrain},
		Test:         automl.Dataset{X: XTest, Y: yTest},
		Target:       opts.Target,
		FeatureNames: append([]string(nil), features...),
		Encoders:     encoders,
		Scaler:       scaler,
		Rows:         len(rows),
		Dropped:      dropped,
	}
	logger.Info("dataset prepared",
		log.SamplesKey, p.Rows,
		log.FeaturesKey, len(features),
		log.DroppedRowsKey, dropped,
		"encoded_columns", len(encoders),
	)
	return p, nil
}

func completeRows(t *Table, cols []int, policy string) ([][]string, int, error) {
	out := make([][]string, 0, len(t.Rows))
	dropped := 0
	for i, row := range t.Rows {
		missing := len(row) != len(t.Header)
		for _, c := range cols {
			if missing || IsMissing(row[c]) {
				missing = true
				break
			}
		}
		if !missing {
			out = append(out, row)
			continue
		}
		if policy == config.MissingFail {
			return nil, 0, errors.NewValidationError("missing", "incomplete row", i+2)
		}
		dropped++
	}
	return out, dropped, nil
}

// parseNumeric parses col as numbers. A column with any unparsable cell is
// not numeric; infinite values are rejected.
func parseNumeric(name string, col []string) ([]float64, bool, error) {
	out := make([]float64, len(col))
	for i, s := range col {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false, nil
		}
		if math.IsInf(v, 0) {
			return nil, false, errors.NewValidationError(name, "must be finite", s)
		}
		out[i] = v
	}
	return out, true, nil
}

func newScaler(kind string) (model.Transformer, error) {
	switch kind {
	case "", config.ScalerStandard:
		return preprocessing.NewStandardScalerDefault(), nil
	case config.ScalerMinMax:
		return preprocessing.NewMinMaxScalerDefault(), nil
	case config.ScalerNone:
		return nil, nil
	default:
		return nil, errors.NewValidationError("scaler", "must be standard, minmax or none", kind)
	}
}

func transform(m mat.Matrix, err error) (*mat.Dense, error) {
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(m), nil
}
