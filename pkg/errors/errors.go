// Package errors はモデル探索エンジン全体で使うエラー型と警告の仕組みを提供します。
// cockroachdb/errors をラップし、ログへ構造化して出力できるエラー型を定義します。
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	警告ハンドリング
//
// ===========================================================================

var (
	warnMu      sync.Mutex
	warnHandler = func(w error) {
		log.Printf("salesml-warning: %v\n", w)
	}
	// pkg/log から注入される（循環importを避けるため）
	zerologWarn func(w error)
)

// SetWarningHandler は警告の出力先を差し替えます。
func SetWarningHandler(handler func(w error)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	warnHandler = handler
}

// SetZerologWarnFunc は zerolog ベースの警告関数を設定します。
// nil を渡すと SetWarningHandler のハンドラに戻ります。
func SetZerologWarnFunc(fn func(w error)) {
	warnMu.Lock()
	defer warnMu.Unlock()
	zerologWarn = fn
}

// Warn は警告を発生させます。処理は中断しません。
func Warn(w error) {
	warnMu.Lock()
	defer warnMu.Unlock()

	if zerologWarn != nil {
		zerologWarn(w)
		return
	}
	if warnHandler != nil {
		warnHandler(w)
	}
}

// ConvergenceWarning は反復ソルバーが max_iter 以内に収束しなかったことを示します。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s did not converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s did not converge after %d iterations; consider increasing max_iter", w.Algorithm, w.Iterations)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しい ConvergenceWarning を作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError は未学習のモデルで Predict を呼んだ場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("salesml: %s: model is not fitted yet, call Fit() before %s()", e.ModelName, e.Method)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は NotFittedError をスタックトレース付きで返します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は行数・列数の不一致を表します。Axis は 0 が行、1 が列です。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("salesml: %s: dimension mismatch on axis %d (%s): expected %d, got %d",
		e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は DimensionError をスタックトレース付きで返します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError はパラメータや入力の検証失敗を表します。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("salesml: invalid %s: %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は ValidationError をスタックトレース付きで返します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は計算できない値（空データ、分散ゼロなど）を表します。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("salesml: %s: %s", e.Op, e.Message)
}

// NewValueError は ValueError をスタックトレース付きで返します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError はモデル内部の失敗（特異行列など）を包みます。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("salesml: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("salesml: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は ModelError をスタックトレース付きで返します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericalInstabilityError は NaN や Inf が検出されたことを表します。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	shown := e.Values
	suffix := ""
	if len(shown) > 5 {
		shown = shown[:5]
		suffix = ", ..."
	}
	parts := make([]string, len(shown))
	for i, v := range shown {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("salesml: numerical instability in %s at iteration %d: [%s%s]",
		e.Operation, e.Iteration, strings.Join(parts, ", "), suffix)
}

// NewNumericalInstabilityError は NumericalInstabilityError をスタックトレース付きで返します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values, Iteration: iteration})
}

// ===========================================================================
//
//	モデル探索のエラー型
//
// ===========================================================================

// TrialTimeoutError はアルゴリズム単位の試行が時間予算を超えたことを表します。
// 試行は破棄され、ランキングには含まれません。
type TrialTimeoutError struct {
	Algorithm string
	Budget    time.Duration
}

func (e *TrialTimeoutError) Error() string {
	return fmt.Sprintf("salesml: trial %s exceeded its budget of %s", e.Algorithm, e.Budget)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *TrialTimeoutError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("algorithm", e.Algorithm).
		Dur("budget", e.Budget).
		Str("type", "TrialTimeoutError")
}

// NewTrialTimeoutError は TrialTimeoutError をスタックトレース付きで返します。
func NewTrialTimeoutError(algorithm string, budget time.Duration) error {
	return errors.WithStack(&TrialTimeoutError{Algorithm: algorithm, Budget: budget})
}

// AttemptFailure は一回の試行が採用されなかった理由です。
type AttemptFailure struct {
	Algorithm string
	Reason    string
}

// NoUsableModelError は全ての試行が失敗・タイムアウト・棄却された場合のエラーです。
// 探索の呼び出し元まで伝播する唯一の実行時エラーです。
type NoUsableModelError struct {
	Attempts []AttemptFailure
}

func (e *NoUsableModelError) Error() string {
	if len(e.Attempts) == 0 {
		return "salesml: no usable model: no algorithm was attempted"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.Algorithm, a.Reason))
	}
	return fmt.Sprintf("salesml: no usable model after %d attempts: %s", len(e.Attempts), strings.Join(parts, "; "))
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *NoUsableModelError) MarshalZerologObject(event *zerolog.Event) {
	algs := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		algs = append(algs, a.Algorithm)
	}
	event.Int("attempts", len(e.Attempts)).
		Strs("algorithms", algs).
		Str("type", "NoUsableModelError")
}

// NewNoUsableModelError は NoUsableModelError をスタックトレース付きで返します。
func NewNoUsableModelError(attempts []AttemptFailure) error {
	return errors.WithStack(&NoUsableModelError{Attempts: attempts})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

var (
	// ErrEmptyData は空の入力データを表します。
	ErrEmptyData = errors.New("empty data")
	// ErrSingularMatrix は正規方程式が解けないことを表します。
	ErrSingularMatrix = errors.New("singular matrix")
)

// Is はエラーチェーンに target が含まれるかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーチェーンから target の型を取り出します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap はメッセージ付きでエラーを包みます。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf はフォーマット済みメッセージでエラーを包みます。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf はフォーマット済みの新しいエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}
