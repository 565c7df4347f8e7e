package builtin

import (
	"context"
	"math/cmplx"
	"strconv"

	"github.com/chazu/opdispatch/value"
)

// complexer is implemented by the complex representations.
type complexer interface {
	complexArray() array[complex128]
}

// complexOf returns a complex view of any numeric operand.
func complexOf(r value.Rep) array[complex128] {
	if c, ok := r.(complexer); ok {
		return c.complexArray()
	}
	return mapArray(realOf(r), func(x float64) complex128 { return complex(x, 0) })
}

func complexResult(a array[complex128]) value.Value {
	return value.NewValue(&ComplexMatrix{a: a})
}

// ComplexScalar is a complex double scalar.
type ComplexScalar struct {
	V complex128
}

// NewComplex returns a complex scalar value. A zero imaginary part narrows
// to a real scalar.
func NewComplex(z complex128) value.Value { return value.NewValue(&ComplexScalar{V: z}) }

func (c *ComplexScalar) TypeName() string                { return "complex scalar" }
func (c *ComplexScalar) ClassName() string               { return "double" }
func (c *ComplexScalar) Dims() value.Dims                { return value.Dims{1, 1} }
func (c *ComplexScalar) Clone() value.Rep                { return &ComplexScalar{V: c.V} }
func (c *ComplexScalar) EmptyClone() value.Rep           { return &ComplexMatrix{} }
func (c *ComplexScalar) complexArray() array[complex128] { return scalarArray(c.V) }
func (c *ComplexScalar) String() string                  { return formatComplex(c.V) }

func (c *ComplexScalar) TryNarrowingConversion() value.Rep {
	if imag(c.V) == 0 {
		return &Scalar{V: real(c.V)}
	}
	return nil
}

func (c *ComplexScalar) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, c.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := c.complexArray().index(args)
	if err != nil {
		return value.Undefined, err
	}
	return complexResult(a), nil
}

// ComplexMatrix is a dense complex double matrix.
type ComplexMatrix struct {
	a array[complex128]
}

// NewComplexMatrix returns a rows x cols complex matrix over column-major
// data.
func NewComplexMatrix(rows, cols int, data []complex128) value.Value {
	if data == nil {
		data = make([]complex128, rows*cols)
	}
	return value.NewValue(&ComplexMatrix{a: array[complex128]{rows: rows, cols: cols, data: data}})
}

func (m *ComplexMatrix) TypeName() string                { return "complex matrix" }
func (m *ComplexMatrix) ClassName() string               { return "double" }
func (m *ComplexMatrix) Dims() value.Dims                { return m.a.dims() }
func (m *ComplexMatrix) Clone() value.Rep                { return &ComplexMatrix{a: m.a.clone()} }
func (m *ComplexMatrix) EmptyClone() value.Rep           { return &ComplexMatrix{} }
func (m *ComplexMatrix) complexArray() array[complex128] { return m.a }

// Data returns the column-major elements.
func (m *ComplexMatrix) Data() []complex128 { return m.a.data }

func (m *ComplexMatrix) String() string { return formatArray(m.a, formatComplex) }

// TryNarrowingConversion goes straight to the final form: an all-real
// matrix becomes a real matrix or scalar, a 1x1 becomes a complex scalar.
func (m *ComplexMatrix) TryNarrowingConversion() value.Rep {
	allReal := true
	for _, z := range m.a.data {
		if imag(z) != 0 {
			allReal = false
			break
		}
	}
	switch {
	case allReal && m.a.isScalar():
		return &Scalar{V: real(m.a.data[0])}
	case allReal && !m.a.isEmpty():
		return &Matrix{a: mapArray(m.a, func(z complex128) float64 { return real(z) })}
	case m.a.isScalar():
		return &ComplexScalar{V: m.a.data[0]}
	}
	return nil
}

func (m *ComplexMatrix) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, m.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := m.a.index(args)
	if err != nil {
		return value.Undefined, err
	}
	return complexResult(a), nil
}

func formatComplex(z complex128) string {
	im := imag(z)
	sign := "+"
	if im < 0 || (im == 0 && 1/im < 0) {
		sign, im = "-", -im
	}
	return formatReal(real(z)) + sign + strconv.FormatFloat(im, 'g', 5, 64) + "i"
}

// ---------------------------------------------------------------------------
// Kernels
// ---------------------------------------------------------------------------

func complexElementwise(op string, f func(x, y complex128) complex128) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		out, err := broadcast(ctx, op, complexOf(a), complexOf(b), f)
		if err != nil {
			return value.Undefined, err
		}
		return complexResult(out), nil
	}
}

func complexCompare(op string, f func(x, y complex128) bool) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		out, err := broadcast(ctx, op, complexOf(a), complexOf(b), f)
		if err != nil {
			return value.Undefined, err
		}
		return boolResult(out), nil
	}
}

func complexDivide(ctx context.Context, a, b value.Rep) (value.Value, error) {
	y := complexOf(b)
	for _, z := range y.data {
		if z == 0 {
			divideByZero()
			break
		}
	}
	out, err := broadcast(ctx, "./", complexOf(a), y, func(p, q complex128) complex128 { return p / q })
	if err != nil {
		return value.Undefined, err
	}
	return complexResult(out), nil
}

// complexMul is the complex matrix product, elementwise when either side
// is 1x1.
func complexMul(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := complexOf(a), complexOf(b)
	if x.isScalar() || y.isScalar() {
		out, _ := broadcast(ctx, "*", x, y, func(p, q complex128) complex128 { return p * q })
		return complexResult(out), nil
	}
	out, err := cmatMul(ctx, x, y)
	if err != nil {
		return value.Undefined, err
	}
	return complexResult(out), nil
}

func complexElPow(ctx context.Context, a, b value.Rep) (value.Value, error) {
	out, err := broadcast(ctx, ".^", complexOf(a), complexOf(b), cmplx.Pow)
	if err != nil {
		return value.Undefined, err
	}
	return complexResult(out), nil
}

func complexUMinus(ctx context.Context, a value.Rep) (value.Value, error) {
	return complexResult(mapArray(complexOf(a), func(z complex128) complex128 { return -z })), nil
}

func complexUPlus(ctx context.Context, a value.Rep) (value.Value, error) {
	return complexResult(complexOf(a).clone()), nil
}

func complexTranspose(ctx context.Context, a value.Rep) (value.Value, error) {
	return complexResult(complexOf(a).transpose()), nil
}

func complexHermitian(ctx context.Context, a value.Rep) (value.Value, error) {
	return complexResult(mapArray(complexOf(a).transpose(), cmplx.Conj)), nil
}

func complexNot(ctx context.Context, a value.Rep) (value.Value, error) {
	return boolResult(mapArray(complexOf(a), func(z complex128) bool { return z == 0 })), nil
}

func complexCat(ctx context.Context, a, b value.Rep, raIdx []int) (value.Value, error) {
	out, err := catArrays(complexOf(a), complexOf(b), raIdx)
	if err != nil {
		return value.Undefined, err
	}
	return complexResult(out), nil
}

func complexMatrixAssign(ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Rep) error {
	m := lhs.(*ComplexMatrix)
	args, err := parenArgs(idx, m.TypeName())
	if err != nil {
		return err
	}
	return m.a.assign(args, complexOf(rhs), 0)
}

// toComplexMatrix widens a real or complex value to a complex matrix.
func toComplexMatrix(r value.Rep) value.Rep {
	return &ComplexMatrix{a: complexOf(r).clone()}
}
