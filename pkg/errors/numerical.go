package errors

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

// maxReportedValues bounds the values kept by NumericalInstabilityError.
const maxReportedValues = 10

// NumericalInstabilityError reports NaN or Inf values in an input matrix or
// in a training quantity such as a boosting loss.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	// Iteration is the boosting round, or -1 for input checks.
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	shown := make([]string, 0, 6)
	for i, v := range e.Values {
		if i == 5 {
			shown = append(shown, "...")
			break
		}
		shown = append(shown, fmt.Sprintf("%.6g", v))
	}
	where := e.Operation
	if e.Iteration >= 0 {
		where = fmt.Sprintf("%s at iteration %d", e.Operation, e.Iteration)
	}
	return fmt.Sprintf("tabml: non-finite values in %s: [%s]", where, strings.Join(shown, ", "))
}

// NewNumericalInstabilityError returns a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	})
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// CheckScalar fails when value is NaN or Inf.
func CheckScalar(operation string, value float64, iteration int) error {
	if finite(value) {
		return nil
	}
	return NewNumericalInstabilityError(operation, []float64{value}, iteration)
}

// CheckMatrix fails on the first row of matrix holding NaN or Inf, reporting
// up to ten offending values from that row.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols, iteration int) error {
	for i := 0; i < rows; i++ {
		var bad []float64
		for j := 0; j < cols && len(bad) < maxReportedValues; j++ {
			if v := matrix.At(i, j); !finite(v) {
				bad = append(bad, v)
			}
		}
		if len(bad) > 0 {
			return NewNumericalInstabilityError(operation, bad, iteration)
		}
	}
	return nil
}

// StabilizeLog returns log(value) with value clamped below at 1e-15.
func StabilizeLog(value float64) float64 {
	return math.Log(math.Max(value, 1e-15))
}

// Sigmoid is the logistic function, evaluated without overflow.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	z := math.Exp(x)
	return z / (1 + z)
}

// LogSumExp returns log(sum(exp(values))), shifting by the maximum.
func LogSumExp(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}
	hi := values[0]
	for _, v := range values[1:] {
		hi = math.Max(hi, v)
	}
	if math.IsInf(hi, -1) {
		return hi
	}
	sum := 0.0
	for _, v := range values {
		sum += math.Exp(v - hi)
	}
	return hi + math.Log(sum)
}
