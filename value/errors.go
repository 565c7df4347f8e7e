package value

import (
	"errors"
	"fmt"
)

// ErrorKind classifies dispatch failures.
type ErrorKind int

const (
	// LookupMiss: no implementation and no viable conversion path.
	LookupMiss ErrorKind = iota + 1
	// ConversionFailure: a conversion function existed but produced nothing.
	ConversionFailure
	// OperatorFailure: the selected implementation itself failed.
	OperatorFailure
)

func (k ErrorKind) String() string {
	switch k {
	case LookupMiss:
		return "lookup-miss"
	case ConversionFailure:
		return "conversion-failure"
	case OperatorFailure:
		return "operator-failure"
	}
	return "unknown"
}

var (
	ErrLookupMiss        = errors.New("operator not implemented")
	ErrConversionFailure = errors.New("type conversion failed")
	ErrInterrupted       = errors.New("operation interrupted")
	ErrUndefined         = errors.New("undefined value")
)

// DispatchError is returned by every dispatch entry point on failure.
// errors.Is matches it against ErrLookupMiss or ErrConversionFailure by
// kind; for OperatorFailure the underlying error is reachable through
// Unwrap.
type DispatchError struct {
	Kind  ErrorKind
	Op    string
	Types []string
	msg   string
	Err   error
}

func (e *DispatchError) Error() string {
	return e.msg
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

func (e *DispatchError) Is(target error) bool {
	switch target {
	case ErrLookupMiss:
		return e.Kind == LookupMiss
	case ErrConversionFailure:
		return e.Kind == ConversionFailure
	}
	return false
}

// KindOf returns the kind of a dispatch error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

func errBinaryOp(op, t1, t2 string) error {
	return &DispatchError{
		Kind:  LookupMiss,
		Op:    op,
		Types: []string{t1, t2},
		msg:   fmt.Sprintf("binary operator '%s' not implemented for '%s' by '%s' operations", op, t1, t2),
	}
}

func errBinaryOpConv(op string) error {
	return &DispatchError{
		Kind: ConversionFailure,
		Op:   op,
		msg:  fmt.Sprintf("type conversion failed for binary operator '%s'", op),
	}
}

func errUnaryOp(op, t string) error {
	return &DispatchError{
		Kind:  LookupMiss,
		Op:    op,
		Types: []string{t},
		msg:   fmt.Sprintf("unary operator '%s' not implemented for '%s' operations", op, t),
	}
}

func errUnaryOpConv(op string) error {
	return &DispatchError{
		Kind: ConversionFailure,
		Op:   op,
		msg:  fmt.Sprintf("type conversion failed for unary operator '%s'", op),
	}
}

func errCatOp(t1, t2 string) error {
	return &DispatchError{
		Kind:  LookupMiss,
		Op:    "cat",
		Types: []string{t1, t2},
		msg:   fmt.Sprintf("concatenation operator not implemented for '%s' by '%s' operations", t1, t2),
	}
}

func errCatOpConv() error {
	return &DispatchError{
		Kind: ConversionFailure,
		Op:   "cat",
		msg:  "type conversion failed for concatenation operator",
	}
}

func errNoAssignConversion(op, tl, tr string) error {
	return &DispatchError{
		Kind:  LookupMiss,
		Op:    op,
		Types: []string{tl, tr},
		msg:   fmt.Sprintf("operator %s: no conversion for assignment of '%s' to indexed '%s'", op, tr, tl),
	}
}

func errAssignConversionFailed(op, tl, tr string) error {
	return &DispatchError{
		Kind:  ConversionFailure,
		Op:    op,
		Types: []string{tl, tr},
		msg:   fmt.Sprintf("type conversion for assignment of '%s' to indexed '%s' failed", tr, tl),
	}
}

func errIndexedAssignment(op, tl, tr string) error {
	return &DispatchError{
		Kind:  LookupMiss,
		Op:    op,
		Types: []string{tl, tr},
		msg:   fmt.Sprintf("assignment of '%s' to indexed '%s' not implemented", tr, tl),
	}
}

// operatorFailure wraps an error returned by an operator implementation.
// Errors that are already DispatchErrors (from nested dispatch) pass
// through unchanged.
func operatorFailure(op string, err error) error {
	var de *DispatchError
	if errors.As(err, &de) {
		return err
	}
	return &DispatchError{
		Kind: OperatorFailure,
		Op:   op,
		msg:  err.Error(),
		Err:  err,
	}
}

func errUndefinedOperand(op string) error {
	return &DispatchError{
		Kind: OperatorFailure,
		Op:   op,
		msg:  fmt.Sprintf("operator %s: invalid use of undefined value", op),
		Err:  ErrUndefined,
	}
}

func errUndefinedIncr(op string) error {
	return &DispatchError{
		Kind: OperatorFailure,
		Op:   op,
		msg:  fmt.Sprintf("in x%s or %sx, x must be defined first", op, op),
		Err:  ErrUndefined,
	}
}

func errUndefinedComputed(op string, indexed bool) error {
	a := "A"
	if indexed {
		a = "A(index)"
	}
	return &DispatchError{
		Kind: OperatorFailure,
		Op:   op,
		msg:  fmt.Sprintf("in computed assignment %s OP= X, A must be defined first", a),
		Err:  ErrUndefined,
	}
}

func errNotIndexable(t string, kind IndexKind) error {
	return &DispatchError{
		Kind:  OperatorFailure,
		Op:    "index",
		Types: []string{t},
		msg:   fmt.Sprintf("'%s' object cannot be indexed with %c", t, kind),
	}
}

func errEmptyConv(t string, kind IndexKind) error {
	return &DispatchError{
		Kind:  LookupMiss,
		Op:    "=",
		Types: []string{t},
		msg:   fmt.Sprintf("invalid use of undefined value in indexed assignment of '%s' with %c", t, kind),
	}
}

// NotImplemented returns the lookup-miss error for op applied to one or
// two operand type names. Class overrides use it to report a missing
// method the same way a table miss is reported.
func NotImplemented(op string, types ...string) error {
	if len(types) == 1 {
		return errUnaryOp(op, types[0])
	}
	if len(types) == 2 {
		return errBinaryOp(op, types[0], types[1])
	}
	return &DispatchError{Kind: LookupMiss, Op: op, Types: types, msg: fmt.Sprintf("operator %s not implemented", op)}
}
