package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
)

// PanicError is a recovered panic converted into an error.
type PanicError struct {
	Op    string
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
}

// Recover converts a panic in the calling function into a *PanicError stored
// in *err. Use it as
//
//	func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
//		defer errors.Recover(&err, "DecisionTreeClassifier.Fit")
//		...
//	}
//
// An error already held in *err is kept as a secondary error.
func Recover(err *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	perr := &PanicError{Op: op, Value: r, Stack: string(debug.Stack())}
	if *err != nil {
		*err = errors.WithSecondaryError(perr, *err)
		return
	}
	*err = perr
}

// SafeExecute runs fn and returns its error, or a *PanicError if it panics.
func SafeExecute(op string, fn func() error) (err error) {
	defer Recover(&err, op)
	return fn()
}
