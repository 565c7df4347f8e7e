package builtin

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"unsafe"

	"github.com/chazu/opdispatch/value"
)

// integer is the set of element types of the integer families.
type integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// intClass returns the class name of T, e.g. "int8".
func intClass[T integer]() string {
	var zero T
	switch any(zero).(type) {
	case int8:
		return "int8"
	case int16:
		return "int16"
	case int32:
		return "int32"
	case int64:
		return "int64"
	case uint8:
		return "uint8"
	case uint16:
		return "uint16"
	case uint32:
		return "uint32"
	}
	return "uint64"
}

// intBounds returns the range of T as float64. The 64-bit upper bounds
// round up to 2^63 and 2^64.
func intBounds[T integer]() (lo, hi float64) {
	var zero T
	switch any(zero).(type) {
	case int8:
		return math.MinInt8, math.MaxInt8
	case int16:
		return math.MinInt16, math.MaxInt16
	case int32:
		return math.MinInt32, math.MaxInt32
	case int64:
		return math.MinInt64, math.MaxInt64
	case uint8:
		return 0, math.MaxUint8
	case uint16:
		return 0, math.MaxUint16
	case uint32:
		return 0, math.MaxUint32
	}
	return 0, math.MaxUint64
}

// saturate rounds x to the nearest integer, halves away from zero, and
// clamps it to T's range. NaN becomes 0.
func saturate[T integer](x float64) T {
	if math.IsNaN(x) {
		return 0
	}
	lo, hi := intBounds[T]()
	x = math.Round(x)
	switch {
	case x <= lo:
		return T(lo)
	case x >= hi:
		return intMax[T]()
	}
	return T(x)
}

// intMax returns the largest value of T.
func intMax[T integer]() T {
	var zero T
	if ^zero < 0 {
		return ^(^zero << (8*unsafe.Sizeof(zero) - 1))
	}
	return ^zero
}

// IntScalar is a scalar of one of the integer classes.
type IntScalar[T integer] struct {
	V T
}

// NewInt returns an integer scalar value.
func NewInt[T integer](x T) value.Value { return value.NewValue(&IntScalar[T]{V: x}) }

func (s *IntScalar[T]) TypeName() string          { return intClass[T]() + " scalar" }
func (s *IntScalar[T]) ClassName() string         { return intClass[T]() }
func (s *IntScalar[T]) Dims() value.Dims          { return value.Dims{1, 1} }
func (s *IntScalar[T]) Clone() value.Rep          { return &IntScalar[T]{V: s.V} }
func (s *IntScalar[T]) EmptyClone() value.Rep     { return &IntMatrix[T]{} }
func (s *IntScalar[T]) intArray() array[T]        { return scalarArray(s.V) }
func (s *IntScalar[T]) realArray() array[float64] { return scalarArray(float64(s.V)) }
func (s *IntScalar[T]) String() string            { return formatInt(s.V) }

func (s *IntScalar[T]) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, s.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := s.intArray().index(args)
	if err != nil {
		return value.Undefined, err
	}
	return value.NewValue(&IntMatrix[T]{a: a}), nil
}

// IntMatrix is a matrix of one of the integer classes.
type IntMatrix[T integer] struct {
	a array[T]
}

// NewIntMatrix returns a rows x cols integer matrix over column-major data.
func NewIntMatrix[T integer](rows, cols int, data []T) value.Value {
	if data == nil {
		data = make([]T, rows*cols)
	}
	return value.NewValue(&IntMatrix[T]{a: array[T]{rows: rows, cols: cols, data: data}})
}

func (m *IntMatrix[T]) TypeName() string      { return intClass[T]() + " matrix" }
func (m *IntMatrix[T]) ClassName() string     { return intClass[T]() }
func (m *IntMatrix[T]) Dims() value.Dims      { return m.a.dims() }
func (m *IntMatrix[T]) Clone() value.Rep      { return &IntMatrix[T]{a: m.a.clone()} }
func (m *IntMatrix[T]) EmptyClone() value.Rep { return &IntMatrix[T]{} }
func (m *IntMatrix[T]) intArray() array[T]    { return m.a }
func (m *IntMatrix[T]) String() string        { return formatArray(m.a, formatInt[T]) }

// Data returns the column-major elements.
func (m *IntMatrix[T]) Data() []T { return m.a.data }

func (m *IntMatrix[T]) realArray() array[float64] {
	return mapArray(m.a, func(x T) float64 { return float64(x) })
}

func (m *IntMatrix[T]) TryNarrowingConversion() value.Rep {
	if m.a.isScalar() {
		return &IntScalar[T]{V: m.a.data[0]}
	}
	return nil
}

func (m *IntMatrix[T]) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, m.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := m.a.index(args)
	if err != nil {
		return value.Undefined, err
	}
	return value.NewValue(&IntMatrix[T]{a: a}), nil
}

func formatInt[T integer](x T) string {
	var zero T
	if ^zero < 0 {
		return strconv.FormatInt(int64(x), 10)
	}
	return strconv.FormatUint(uint64(x), 10)
}

// ints converts an integer or real operand to T. Reals saturate.
func ints[T integer](r value.Rep) array[T] {
	if i, ok := r.(interface{ intArray() array[T] }); ok {
		return i.intArray()
	}
	return mapArray(realOf(r), saturate[T])
}

// ---------------------------------------------------------------------------
// Kernels
//
// Arithmetic saturates at the bounds of the class.
// ---------------------------------------------------------------------------

func intResult[T integer](a array[T]) value.Value {
	return value.NewValue(&IntMatrix[T]{a: a})
}

func intOperand[T integer](r value.Rep) (array[T], bool) {
	i, ok := r.(interface{ intArray() array[T] })
	if !ok {
		return array[T]{}, false
	}
	return i.intArray(), true
}

// intKernel is an integer kernel split by operand kind: exact for two
// operands of class T, left and right for T mixed with double. Every
// registered pair has at least one operand of class T.
type intKernel[T integer, R any] struct {
	exact func(x, y T) R
	left  func(x T, y float64) R
	right func(x float64, y T) R
}

func (k intKernel[T, R]) fn(op string) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		ai, aok := intOperand[T](a)
		bi, bok := intOperand[T](b)
		var (
			out array[R]
			err error
		)
		switch {
		case aok && bok:
			out, err = broadcast(ctx, op, ai, bi, k.exact)
		case aok:
			out, err = broadcast(ctx, op, ai, realOf(b), k.left)
		case bok:
			out, err = broadcast(ctx, op, realOf(a), bi, k.right)
		default:
			return value.Undefined, fmt.Errorf("operator %s: no %s operand", op, intClass[T]())
		}
		if err != nil {
			return value.Undefined, err
		}
		switch o := any(out).(type) {
		case array[bool]:
			return boolResult(o), nil
		case array[T]:
			return intResult(o), nil
		}
		return value.Undefined, fmt.Errorf("operator %s: unexpected result", op)
	}
}

// intArith combines exactly where both sides are integers of class T, so
// a double holding an integer inside T's range is converted first. Any
// other double goes through float64 and is saturated back.
func intArith[T integer](op string, g func(x, y T) T, f func(x, y float64) float64) value.BinaryFunc {
	return intKernel[T, T]{
		exact: g,
		left: func(x T, y float64) T {
			if yi, ok := exactInt[T](y); ok {
				return g(x, yi)
			}
			return saturate[T](f(float64(x), y))
		},
		right: func(x float64, y T) T {
			if xi, ok := exactInt[T](x); ok {
				return g(xi, y)
			}
			return saturate[T](f(x, float64(y)))
		},
	}.fn(op)
}

func intDivide[T integer](op string, left bool) value.BinaryFunc {
	if left {
		return intArith(op, func(x, y T) T { return satQuo(y, x) }, func(x, y float64) float64 { return y / x })
	}
	return intArith(op, satQuo[T], func(x, y float64) float64 { return x / y })
}

// intCompare compares exactly. A double beyond T's range orders beyond
// every value of T.
func intCompare[T integer](op string, f func(x, y float64) bool) value.BinaryFunc {
	lo, hi := intBounds[T]()
	// mixed compares x of class T against the double y; flip swaps the
	// sides back for the right-hand case.
	mixed := func(x T, y float64, flip bool) bool {
		var xf float64
		switch {
		case math.IsNaN(y):
			xf = float64(x)
		case y >= hi+1:
			xf, y = 0, 1
		case y < lo:
			xf, y = 1, 0
		default:
			if yi, ok := exactInt[T](y); ok {
				if flip {
					return cmpInts(yi, x, f)
				}
				return cmpInts(x, yi, f)
			}
			xf = float64(x)
		}
		if flip {
			return f(y, xf)
		}
		return f(xf, y)
	}
	return intKernel[T, bool]{
		exact: func(x, y T) bool { return cmpInts(x, y, f) },
		left:  func(x T, y float64) bool { return mixed(x, y, false) },
		right: func(x float64, y T) bool { return mixed(y, x, true) },
	}.fn(op)
}

// cmpInts applies f to the order of x and y.
func cmpInts[T integer](x, y T, f func(x, y float64) bool) bool {
	switch {
	case x < y:
		return f(0, 1)
	case x > y:
		return f(1, 0)
	}
	return f(0, 0)
}

func intUMinus[T integer](ctx context.Context, a value.Rep) (value.Value, error) {
	return intResult(mapArray(ints[T](a), satNeg[T])), nil
}

func intUPlus[T integer](ctx context.Context, a value.Rep) (value.Value, error) {
	return intResult(ints[T](a).clone()), nil
}

func intTranspose[T integer](ctx context.Context, a value.Rep) (value.Value, error) {
	return intResult(ints[T](a).transpose()), nil
}

func intNot[T integer](ctx context.Context, a value.Rep) (value.Value, error) {
	return boolResult(mapArray(ints[T](a), func(x T) bool { return x == 0 })), nil
}

func intCat[T integer](ctx context.Context, a, b value.Rep, raIdx []int) (value.Value, error) {
	out, err := catArrays(ints[T](a), ints[T](b), raIdx)
	if err != nil {
		return value.Undefined, err
	}
	return intResult(out), nil
}

func intMatrixAssign[T integer](ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Rep) error {
	m := lhs.(*IntMatrix[T])
	args, err := parenArgs(idx, m.TypeName())
	if err != nil {
		return err
	}
	return m.a.assign(args, ints[T](rhs), 0)
}

func intScalarToMatrix[T integer](r value.Rep) value.Rep {
	return &IntMatrix[T]{a: r.(*IntScalar[T]).intArray()}
}

// intIncr is the in-place ++ / -- on an integer scalar, saturating.
func intIncr[T integer](up bool) value.NonConstUnaryFunc {
	return func(ctx context.Context, a value.Rep) error {
		s, ok := a.(*IntScalar[T])
		if !ok {
			return fmt.Errorf("unexpected %s", a.TypeName())
		}
		if up {
			s.V = satAdd(s.V, 1)
		} else {
			s.V = satSub(s.V, 1)
		}
		return nil
	}
}
