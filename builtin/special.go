package builtin

import (
	"context"
	"fmt"

	"github.com/chazu/opdispatch/value"
)

// Diag is a rows x cols matrix that is zero off its main diagonal.
type Diag struct {
	rows, cols int
	d          []float64
}

// NewDiag returns a rows x cols diagonal matrix with diagonal d, which
// must have min(rows, cols) elements.
func NewDiag(rows, cols int, d []float64) value.Value {
	if len(d) != min(rows, cols) {
		panic(fmt.Sprintf("builtin: %d diagonal elements for a %dx%d matrix", len(d), rows, cols))
	}
	return value.NewValue(&Diag{rows: rows, cols: cols, d: d})
}

func (m *Diag) TypeName() string      { return "diagonal matrix" }
func (m *Diag) ClassName() string     { return "double" }
func (m *Diag) Dims() value.Dims      { return value.Dims{m.rows, m.cols} }
func (m *Diag) EmptyClone() value.Rep { return &Matrix{} }

func (m *Diag) Clone() value.Rep {
	return &Diag{rows: m.rows, cols: m.cols, d: append([]float64(nil), m.d...)}
}

func (m *Diag) realArray() array[float64] {
	a := newArray[float64](m.rows, m.cols)
	for i, x := range m.d {
		a.data[i*m.rows+i] = x
	}
	return a
}

func (m *Diag) String() string {
	return "diag" + formatArray(array[float64]{rows: 1, cols: len(m.d), data: m.d}, formatReal)
}

func (m *Diag) NumericConversion() value.Conversion {
	return value.Conversion{Target: "matrix", Fn: diagToMatrix}
}

func (m *Diag) TryNarrowingConversion() value.Rep {
	if m.rows == 1 && m.cols == 1 {
		return &Scalar{V: m.d[0]}
	}
	return nil
}

func (m *Diag) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, m.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := m.realArray().index(args)
	if err != nil {
		return value.Undefined, err
	}
	return realResult(a), nil
}

func diagToMatrix(r value.Rep) value.Rep {
	return &Matrix{a: r.(*Diag).realArray()}
}

// Perm is a permutation matrix: row i has its single 1 in column p[i].
type Perm struct {
	p []int
}

// NewPerm returns the permutation matrix for p, a permutation of 0..n-1.
func NewPerm(p []int) value.Value {
	seen := make([]bool, len(p))
	for _, k := range p {
		if k < 0 || k >= len(p) || seen[k] {
			panic(fmt.Sprintf("builtin: %v is not a permutation", p))
		}
		seen[k] = true
	}
	return value.NewValue(&Perm{p: p})
}

func (m *Perm) TypeName() string      { return "permutation matrix" }
func (m *Perm) ClassName() string     { return "double" }
func (m *Perm) Dims() value.Dims      { return value.Dims{len(m.p), len(m.p)} }
func (m *Perm) Clone() value.Rep      { return &Perm{p: append([]int(nil), m.p...)} }
func (m *Perm) EmptyClone() value.Rep { return &Matrix{} }

func (m *Perm) realArray() array[float64] {
	n := len(m.p)
	a := newArray[float64](n, n)
	for i, j := range m.p {
		a.data[j*n+i] = 1
	}
	return a
}

func (m *Perm) String() string { return fmt.Sprintf("perm%v", m.p) }

func (m *Perm) NumericConversion() value.Conversion {
	return value.Conversion{Target: "matrix", Fn: func(r value.Rep) value.Rep {
		return &Matrix{a: r.(*Perm).realArray()}
	}}
}

func (m *Perm) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, m.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := m.realArray().index(args)
	if err != nil {
		return value.Undefined, err
	}
	return realResult(a), nil
}

// ---------------------------------------------------------------------------
// Kernels
// ---------------------------------------------------------------------------

func diagResult(rows, cols int, d []float64) value.Value {
	return value.NewValue(&Diag{rows: rows, cols: cols, d: d})
}

func diagAdd(sign float64) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		x, y := a.(*Diag), b.(*Diag)
		if x.rows != y.rows || x.cols != y.cols {
			return value.Undefined, nonconformant(opSign(sign), x.Dims(), y.Dims())
		}
		d := make([]float64, len(x.d))
		for i := range d {
			d[i] = x.d[i] + sign*y.d[i]
		}
		return diagResult(x.rows, x.cols, d), nil
	}
}

func opSign(sign float64) string {
	if sign < 0 {
		return "-"
	}
	return "+"
}

func diagMul(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := a.(*Diag), b.(*Diag)
	if x.cols != y.rows {
		return value.Undefined, nonconformant("*", x.Dims(), y.Dims())
	}
	d := make([]float64, min(x.rows, y.cols))
	for i := range d {
		if i < len(x.d) && i < len(y.d) {
			d[i] = x.d[i] * y.d[i]
		}
	}
	return diagResult(x.rows, y.cols, d), nil
}

// diagMulMatrix scales the rows of a dense matrix.
func diagMulMatrix(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := a.(*Diag), realOf(b)
	if x.cols != y.rows {
		return value.Undefined, nonconformant("*", x.Dims(), y.dims())
	}
	out := newArray[float64](x.rows, y.cols)
	for j := 0; j < y.cols; j++ {
		for i, s := range x.d {
			out.data[j*out.rows+i] = s * y.data[j*y.rows+i]
		}
	}
	return realResult(out), nil
}

// matrixMulDiag scales the columns of a dense matrix.
func matrixMulDiag(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := realOf(a), b.(*Diag)
	if x.cols != y.rows {
		return value.Undefined, nonconformant("*", x.dims(), y.Dims())
	}
	out := newArray[float64](x.rows, y.cols)
	for j, s := range y.d {
		for i := 0; i < x.rows; i++ {
			out.data[j*out.rows+i] = x.data[j*x.rows+i] * s
		}
	}
	return realResult(out), nil
}

func diagMulScalar(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, k := a.(*Diag), b.(*Scalar).V
	d := make([]float64, len(x.d))
	for i, v := range x.d {
		d[i] = v * k
	}
	return diagResult(x.rows, x.cols, d), nil
}

func scalarMulDiag(ctx context.Context, a, b value.Rep) (value.Value, error) {
	return diagMulScalar(ctx, b, a)
}

func diagTranspose(ctx context.Context, a value.Rep) (value.Value, error) {
	x := a.(*Diag)
	return diagResult(x.cols, x.rows, append([]float64(nil), x.d...)), nil
}

// diagLDiv is D\B, dividing rows of a square system by the diagonal.
func diagLDiv(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := a.(*Diag), realOf(b)
	if x.rows != y.rows {
		return value.Undefined, nonconformant(`\`, x.Dims(), y.dims())
	}
	out := newArray[float64](x.cols, y.cols)
	for _, s := range x.d {
		if s == 0 {
			divideByZero()
			break
		}
	}
	for j := 0; j < y.cols; j++ {
		for i, s := range x.d {
			out.data[j*out.rows+i] = y.data[j*y.rows+i] / s
		}
	}
	return realResult(out), nil
}

func permResult(p []int) value.Value {
	return value.NewValue(&Perm{p: p})
}

// permMul composes permutations: (P*Q)(i, :) = Q(P.p[i], :).
func permMul(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := a.(*Perm), b.(*Perm)
	if len(x.p) != len(y.p) {
		return value.Undefined, nonconformant("*", x.Dims(), y.Dims())
	}
	p := make([]int, len(x.p))
	for i, k := range x.p {
		p[i] = y.p[k]
	}
	return permResult(p), nil
}

// permMulMatrix permutes the rows of a dense matrix.
func permMulMatrix(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := a.(*Perm), realOf(b)
	if len(x.p) != y.rows {
		return value.Undefined, nonconformant("*", x.Dims(), y.dims())
	}
	out := newArray[float64](y.rows, y.cols)
	for j := 0; j < y.cols; j++ {
		for i, k := range x.p {
			out.data[j*y.rows+i] = y.data[j*y.rows+k]
		}
	}
	return realResult(out), nil
}

// permTranspose is the inverse permutation.
func permTranspose(ctx context.Context, a value.Rep) (value.Value, error) {
	x := a.(*Perm)
	p := make([]int, len(x.p))
	for i, k := range x.p {
		p[k] = i
	}
	return permResult(p), nil
}
