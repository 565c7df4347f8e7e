package builtin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/chazu/opdispatch/value"
	"gonum.org/v1/gonum/mat"
)

func realResult(a array[float64]) value.Value {
	return value.NewValue(&Matrix{a: a})
}

func boolResult(a array[bool]) value.Value {
	return value.NewValue(&BoolMatrix{a: a})
}

// realElementwise lifts f to a broadcasting kernel on real operands.
func realElementwise(op string, f func(x, y float64) float64) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		out, err := broadcast(ctx, op, realOf(a), realOf(b), f)
		if err != nil {
			return value.Undefined, err
		}
		return realResult(out), nil
	}
}

func realCompare(op string, f func(x, y float64) bool) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		out, err := broadcast(ctx, op, realOf(a), realOf(b), f)
		if err != nil {
			return value.Undefined, err
		}
		return boolResult(out), nil
	}
}

func realLogical(op string, f func(x, y bool) bool) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		x, err := logicalOf(op, a)
		if err != nil {
			return value.Undefined, err
		}
		y, err := logicalOf(op, b)
		if err != nil {
			return value.Undefined, err
		}
		out, err := broadcast(ctx, op, x, y, f)
		if err != nil {
			return value.Undefined, err
		}
		return boolResult(out), nil
	}
}

// logicalOf converts a real or logical operand for & and |.
func logicalOf(op string, r value.Rep) (array[bool], error) {
	if b, ok := r.(booler); ok {
		return b.boolArray(), nil
	}
	a := realOf(r)
	out := newArray[bool](a.rows, a.cols)
	for i, x := range a.data {
		if math.IsNaN(x) {
			return array[bool]{}, fmt.Errorf("operator %s: logical conversion from NaN value", op)
		}
		out.data[i] = x != 0
	}
	return out, nil
}

func realDivide(op string, left bool) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		x, y := realOf(a), realOf(b)
		divisor := y
		if left {
			divisor = x
		}
		for _, d := range divisor.data {
			if d == 0 {
				divideByZero()
				break
			}
		}
		f := func(p, q float64) float64 { return p / q }
		if left {
			f = func(p, q float64) float64 { return q / p }
		}
		out, err := broadcast(ctx, op, x, y, f)
		if err != nil {
			return value.Undefined, err
		}
		return realResult(out), nil
	}
}

// realElPow is .^, giving a complex result where a negative base meets a
// non-integer exponent.
func realElPow(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := realOf(a), realOf(b)
	needComplex := false
	for _, p := range x.data {
		if p < 0 {
			for _, q := range y.data {
				if q != math.Trunc(q) {
					needComplex = true
					break
				}
			}
			break
		}
	}
	if !needComplex {
		out, err := broadcast(ctx, ".^", x, y, math.Pow)
		if err != nil {
			return value.Undefined, err
		}
		return realResult(out), nil
	}
	out, err := broadcast(ctx, ".^", x, y, func(p, q float64) complex128 {
		return cmplx.Pow(complex(p, 0), complex(q, 0))
	})
	if err != nil {
		return value.Undefined, err
	}
	return complexResult(out), nil
}

// realMul is the matrix product, elementwise when either side is 1x1.
func realMul(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := realOf(a), realOf(b)
	if x.isScalar() || y.isScalar() {
		out, _ := broadcast(ctx, "*", x, y, func(p, q float64) float64 { return p * q })
		return realResult(out), nil
	}
	out, err := matMul(ctx, x, y)
	if err != nil {
		return value.Undefined, err
	}
	return realResult(out), nil
}

func matMul(ctx context.Context, x, y array[float64]) (array[float64], error) {
	if x.cols != y.rows {
		return array[float64]{}, nonconformant("*", x.dims(), y.dims())
	}
	if err := value.Poll(ctx); err != nil {
		return array[float64]{}, err
	}
	if x.isEmpty() || y.isEmpty() {
		return newArray[float64](x.rows, y.cols), nil
	}
	var out mat.Dense
	out.Mul(dense(x), dense(y))
	return fromDense(&out), nil
}

// solve returns x such that a*x = b, in the least squares sense when a is
// not square.
func solve(ctx context.Context, op string, a, b array[float64]) (array[float64], error) {
	if a.rows != b.rows {
		return array[float64]{}, nonconformant(op, a.dims(), b.dims())
	}
	if err := value.Poll(ctx); err != nil {
		return array[float64]{}, err
	}
	if a.isEmpty() || b.isEmpty() {
		return newArray[float64](a.cols, b.cols), nil
	}
	var x mat.Dense
	err := x.Solve(dense(a), dense(b))
	var cond mat.Condition
	switch {
	case errors.As(err, &cond):
		singularMatrix(1 / float64(cond))
		if math.IsInf(float64(cond), 1) {
			out := newArray[float64](a.cols, b.cols)
			for i := range out.data {
				out.data[i] = math.Inf(1)
			}
			return out, nil
		}
	case err != nil:
		return array[float64]{}, fmt.Errorf("operator %s: %w", op, err)
	}
	return fromDense(&x), nil
}

// realLDiv is a\b.
func realLDiv(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := realOf(a), realOf(b)
	if x.isScalar() {
		return realDivide(`\`, true)(ctx, a, b)
	}
	out, err := solve(ctx, `\`, x, y)
	if err != nil {
		return value.Undefined, err
	}
	return realResult(out), nil
}

// realDiv is a/b, computed as (b.' \ a.').'.
func realDiv(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := realOf(a), realOf(b)
	if y.isScalar() {
		return realDivide("/", false)(ctx, a, b)
	}
	if x.cols != y.cols {
		return value.Undefined, nonconformant("/", x.dims(), y.dims())
	}
	out, err := solve(ctx, "/", y.transpose(), x.transpose())
	if err != nil {
		return value.Undefined, err
	}
	return realResult(out.transpose()), nil
}

const errPowShape = "for x^y, only square matrix arguments are permitted and one argument must be scalar.  Use .^ for elementwise power."

// realPow is a^b: scalar power, or a square matrix to an integer power.
func realPow(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := realOf(a), realOf(b)
	if x.isScalar() && y.isScalar() {
		return realElPow(ctx, a, b)
	}
	if !y.isScalar() || x.rows != x.cols {
		return value.Undefined, errors.New(errPowShape)
	}
	n := y.data[0]
	if n != math.Trunc(n) {
		return value.Undefined, errors.New("matrix power with a non-integer exponent is not implemented")
	}
	if err := value.Poll(ctx); err != nil {
		return value.Undefined, err
	}
	if x.isEmpty() {
		return realResult(x.clone()), nil
	}
	base := dense(x)
	if n < 0 {
		var inv mat.Dense
		err := inv.Inverse(base)
		var cond mat.Condition
		if errors.As(err, &cond) {
			singularMatrix(1 / float64(cond))
		} else if err != nil {
			return value.Undefined, fmt.Errorf("operator ^: %w", err)
		}
		base, n = &inv, -n
	}
	var out mat.Dense
	out.Pow(base, int(n))
	return realResult(fromDense(&out)), nil
}

func realTranspose(ctx context.Context, a value.Rep) (value.Value, error) {
	return realResult(realOf(a).transpose()), nil
}

func realUMinus(ctx context.Context, a value.Rep) (value.Value, error) {
	return realResult(mapArray(realOf(a), func(x float64) float64 { return -x })), nil
}

func realUPlus(ctx context.Context, a value.Rep) (value.Value, error) {
	return realResult(realOf(a).clone()), nil
}

func realNot(ctx context.Context, a value.Rep) (value.Value, error) {
	x := realOf(a)
	for _, p := range x.data {
		if math.IsNaN(p) {
			return value.Undefined, errors.New("logical conversion from NaN value")
		}
	}
	return boolResult(mapArray(x, func(p float64) bool { return p == 0 })), nil
}

// ---------------------------------------------------------------------------
// In-place kernels
// ---------------------------------------------------------------------------

func scalarStep(delta float64) value.NonConstUnaryFunc {
	return func(ctx context.Context, a value.Rep) error {
		a.(*Scalar).V += delta
		return nil
	}
}

func matrixStep(delta float64) value.NonConstUnaryFunc {
	return func(ctx context.Context, a value.Rep) error {
		d := a.(*Matrix).a.data
		for i := range d {
			d[i] += delta
		}
		return nil
	}
}

// matrixUpdate is an in-place compound assignment m op= rhs.
func matrixUpdate(op string, f func(x, y float64) float64) value.AssignFunc {
	return func(ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Rep) error {
		if !idx.IsWhole() {
			return fmt.Errorf("operator %s: indexed update not supported in place", op)
		}
		m := lhs.(*Matrix)
		y := realOf(rhs)
		if !y.isScalar() && (y.rows != m.a.rows || y.cols != m.a.cols) {
			return nonconformant(op, m.a.dims(), y.dims())
		}
		for i := range m.a.data {
			if y.isScalar() {
				m.a.data[i] = f(m.a.data[i], y.data[0])
			} else {
				m.a.data[i] = f(m.a.data[i], y.data[i])
			}
		}
		return nil
	}
}

// matrixAssign is m(idx) = rhs for any real rhs.
func matrixAssign(ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Rep) error {
	m := lhs.(*Matrix)
	args, err := parenArgs(idx, m.TypeName())
	if err != nil {
		return err
	}
	return m.a.assign(args, realOf(rhs), 0)
}

func scalarUpdate(f func(x, y float64) float64) value.AssignFunc {
	return func(ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Rep) error {
		if !idx.IsWhole() {
			return errors.New("indexed update not supported in place")
		}
		s := lhs.(*Scalar)
		s.V = f(s.V, rhs.(*Scalar).V)
		return nil
	}
}

func realCat(ctx context.Context, a, b value.Rep, raIdx []int) (value.Value, error) {
	out, err := catArrays(realOf(a), realOf(b), raIdx)
	if err != nil {
		return value.Undefined, err
	}
	return realResult(out), nil
}

// scalarToMatrix widens any real value to a dense matrix.
func scalarToMatrix(r value.Rep) value.Rep {
	return &Matrix{a: realOf(r).clone()}
}

// ---------------------------------------------------------------------------
// Compound kernels
// ---------------------------------------------------------------------------

// realTransMul is a.'*b without materializing the transpose.
func realTransMul(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := realOf(a), realOf(b)
	if x.rows != y.rows {
		return value.Undefined, nonconformant("*", value.Dims{x.cols, x.rows}, y.dims())
	}
	if err := value.Poll(ctx); err != nil {
		return value.Undefined, err
	}
	if x.isEmpty() || y.isEmpty() {
		return realResult(newArray[float64](x.cols, y.cols)), nil
	}
	var out mat.Dense
	out.Mul(dense(x).T(), dense(y))
	return realResult(fromDense(&out)), nil
}

// realMulTrans is a*b.'.
func realMulTrans(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := realOf(a), realOf(b)
	if x.cols != y.cols {
		return value.Undefined, nonconformant("*", x.dims(), value.Dims{y.cols, y.rows})
	}
	if err := value.Poll(ctx); err != nil {
		return value.Undefined, err
	}
	if x.isEmpty() || y.isEmpty() {
		return realResult(newArray[float64](x.rows, y.rows)), nil
	}
	var out mat.Dense
	out.Mul(dense(x), dense(y).T())
	return realResult(fromDense(&out)), nil
}
