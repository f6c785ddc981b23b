package preprocessing

import (
	"sort"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// LabelEncoder はカテゴリ文字列を 0..n_classes-1 の整数コードに変換する。
// クラスはソート順に並ぶ。
type LabelEncoder struct {
	Classes []string
	index   map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit は出現するクラスを学習する
func (e *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	e.Classes = make([]string, 0, len(seen))
	for v := range seen {
		e.Classes = append(e.Classes, v)
	}
	sort.Strings(e.Classes)
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.index[c] = i
	}
	return nil
}

// Transform はクラス文字列をコードに変換する。未知のクラスは ValidationError。
func (e *LabelEncoder) Transform(values []string) ([]float64, error) {
	if e.index == nil {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	out := make([]float64, len(values))
	for i, v := range values {
		code, ok := e.index[v]
		if !ok {
			return nil, errors.NewValidationError("label", "unseen label", v)
		}
		out[i] = float64(code)
	}
	return out, nil
}

// FitTransform は学習と変換をまとめて行う
func (e *LabelEncoder) FitTransform(values []string) ([]float64, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// InverseTransform はコードをクラス文字列に戻す
func (e *LabelEncoder) InverseTransform(codes []float64) ([]string, error) {
	if e.index == nil {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		k := int(c)
		if float64(k) != c || k < 0 || k >= len(e.Classes) {
			return nil, errors.NewValidationError("code", "out of range", c)
		}
		out[i] = e.Classes[k]
	}
	return out, nil
}
