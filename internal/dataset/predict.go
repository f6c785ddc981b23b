package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/metrics"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// Transform turns raw records into a feature matrix with the encoders and
// scaler fitted by Prepare. t must carry every feature column; other
// columns, the target included, are ignored. Incomplete cells and labels
// unseen during preparation are ValidationErrors.
func (p *Prepared) Transform(t *Table) (*mat.Dense, error) {
	if len(t.Rows) == 0 {
		return nil, errors.NewValueError("Prepared.Transform", "no records")
	}
	idx := make([]int, len(p.FeatureNames))
	for j, name := range p.FeatureNames {
		c, ok := t.Column(name)
		if !ok {
			return nil, errors.NewValidationError("features", "no such column", name)
		}
		idx[j] = c
	}

	X := mat.NewDense(len(t.Rows), len(p.FeatureNames), nil)
	for j, name := range p.FeatureNames {
		col := make([]string, len(t.Rows))
		for i, row := range t.Rows {
			if len(row) != len(t.Header) || IsMissing(row[idx[j]]) {
				return nil, errors.NewValidationError(name, fmt.Sprintf("record %d has no value", i+1), nil)
			}
			col[i] = row[idx[j]]
		}

		var values []float64
		if enc, ok := p.Encoders[name]; ok {
			v, err := enc.Transform(col)
			if err != nil {
				return nil, errors.Wrapf(err, "encode %s", name)
			}
			values = v
		} else {
			v, numeric, err := parseNumeric(name, col)
			if err != nil {
				return nil, err
			}
			if !numeric {
				return nil, errors.NewValidationError(name, "must be numeric", col)
			}
			values = v
		}
		X.SetCol(j, values)
	}

	if p.Scaler == nil {
		return X, nil
	}
	return transform(p.Scaler.Transform(X))
}

// Predict transforms t and returns est's predictions rounded to two
// decimals, one per record.
func (p *Prepared) Predict(est model.Predictor, t *Table) ([]float64, error) {
	X, err := p.Transform(t)
	if err != nil {
		return nil, err
	}
	pred, err := est.Predict(X)
	if err != nil {
		return nil, err
	}
	out, err := model.Column("Prepared.Predict", pred)
	if err != nil {
		return nil, err
	}
	for i, v := range out {
		out[i] = metrics.Round(v, 2)
	}
	log.GetLoggerWithName("dataset").Debug("records predicted", log.SamplesKey, len(out))
	return out, nil
}
