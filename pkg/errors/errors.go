// Package errors holds the error and warning types returned by tabml
// packages. Constructors attach stack traces through cockroachdb/errors, so
// callers inspect them with As and print traces with %+v.
package errors

import (
	"fmt"
	stdlog "log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Sentinel errors.
var (
	// ErrEmptyData is returned for inputs without rows.
	ErrEmptyData = errors.New("empty data")
	// ErrSingleClass is returned when a classifier is fit on one class.
	ErrSingleClass = errors.New("only one class present in y")
)

var (
	warnMu      sync.Mutex
	warnHandler = func(w error) { stdlog.Printf("tabml-warning: %v", w) }
	// structuredWarn is installed by pkg/log, which imports this package.
	structuredWarn func(w error)
)

// SetWarningHandler replaces the fallback warning handler. A nil handler
// discards warnings.
func SetWarningHandler(handler func(w error)) {
	warnMu.Lock()
	warnHandler = handler
	warnMu.Unlock()
}

// SetZerologWarnFunc installs a structured warning sink that takes
// precedence over the fallback handler.
func SetZerologWarnFunc(fn func(w error)) {
	warnMu.Lock()
	structuredWarn = fn
	warnMu.Unlock()
}

// Warn reports a non-fatal condition such as an undefined metric.
func Warn(w error) {
	warnMu.Lock()
	defer warnMu.Unlock()
	switch {
	case structuredWarn != nil:
		structuredWarn(w)
	case warnHandler != nil:
		warnHandler(w)
	}
}

// UndefinedMetricWarning reports a metric that has no defined value for the
// given labels, e.g. precision with no positive predictions. Result is the
// value returned instead.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "UndefinedMetricWarning").
		Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result)
}

// NotFittedError is returned when Predict or Transform runs before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("tabml: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// DimensionError is returned when an input has the wrong number of rows
// (Axis 0) or features (Axis 1).
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

func (e *DimensionError) Error() string {
	name := "features"
	if e.Axis == 0 {
		name = "rows"
	}
	return fmt.Sprintf("tabml: %s: dimension mismatch on axis %d (%s). Expected %d, got %d",
		e.Op, e.Axis, name, e.Expected, e.Got)
}

// ValidationError reports an invalid hyperparameter or configuration value.
// ParamName uses the snake_case or dotted config name.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tabml: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// ValueError reports an argument with an acceptable type but unusable value.
type ValueError struct {
	Op      string
	Message string
}

func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("tabml: %s: %s", e.Op, e.Message)
}

// ModelError is an estimator failure of the given kind, optionally caused
// by Err.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tabml: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("tabml: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// ColumnNotFoundError is returned when a frame lacks the requested column.
type ColumnNotFoundError struct {
	Column    string
	Available []string
}

func NewColumnNotFoundError(column string, available []string) error {
	return errors.WithStack(&ColumnNotFoundError{Column: column, Available: available})
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("tabml: column %q not found (available: %v)", e.Column, e.Available)
}

// ParseError is returned when a cell cannot be read as Target, e.g. a
// currency or a date. Row is zero-based and excludes the header.
type ParseError struct {
	Column string
	Row    int
	Value  string
	Target string
}

func NewParseError(column string, row int, value, target string) error {
	return errors.WithStack(&ParseError{Column: column, Row: row, Value: value, Target: target})
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tabml: cannot parse %q in column %q (row %d) as %s", e.Value, e.Column, e.Row, e.Target)
}

// Thin re-exports so callers need a single errors import.

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func New(message string) error {
	return errors.New(message)
}

func WithStack(err error) error {
	return errors.WithStack(err)
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
