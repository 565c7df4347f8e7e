package builtin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/opdispatch/value"
	"gonum.org/v1/gonum/mat"
)

// realer is implemented by every representation with a real double view.
// Dense types return their own storage; callers must not modify it.
type realer interface {
	realArray() array[float64]
}

func realOf(r value.Rep) array[float64] {
	return r.(realer).realArray()
}

// Scalar is a real double scalar.
type Scalar struct {
	V float64
}

// NewScalar returns a double scalar value.
func NewScalar(x float64) value.Value { return value.NewValue(&Scalar{V: x}) }

func (s *Scalar) TypeName() string          { return "scalar" }
func (s *Scalar) ClassName() string         { return "double" }
func (s *Scalar) Dims() value.Dims          { return value.Dims{1, 1} }
func (s *Scalar) Clone() value.Rep          { return &Scalar{V: s.V} }
func (s *Scalar) EmptyClone() value.Rep     { return &Matrix{} }
func (s *Scalar) realArray() array[float64] { return scalarArray(s.V) }
func (s *Scalar) String() string            { return formatReal(s.V) }

func (s *Scalar) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, s.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := s.realArray().index(args)
	if err != nil {
		return value.Undefined, err
	}
	return value.NewValue(&Matrix{a: a}), nil
}

// Matrix is a dense real double matrix stored column-major.
type Matrix struct {
	a array[float64]
}

// NewMatrix returns a rows x cols matrix. data is column-major and is
// used without copying; nil gives zeros.
func NewMatrix(rows, cols int, data []float64) value.Value {
	return value.NewValue(newMatrix(rows, cols, data))
}

func newMatrix(rows, cols int, data []float64) *Matrix {
	if data == nil {
		data = make([]float64, rows*cols)
	}
	if len(data) != rows*cols {
		panic(fmt.Sprintf("builtin: %d elements for a %dx%d matrix", len(data), rows, cols))
	}
	return &Matrix{a: array[float64]{rows: rows, cols: cols, data: data}}
}

// RowVector returns a 1xN matrix holding xs.
func RowVector(xs ...float64) value.Value {
	return NewMatrix(1, len(xs), append([]float64(nil), xs...))
}

func (m *Matrix) TypeName() string          { return "matrix" }
func (m *Matrix) ClassName() string         { return "double" }
func (m *Matrix) Dims() value.Dims          { return m.a.dims() }
func (m *Matrix) Clone() value.Rep          { return &Matrix{a: m.a.clone()} }
func (m *Matrix) EmptyClone() value.Rep     { return &Matrix{} }
func (m *Matrix) realArray() array[float64] { return m.a }

// At returns the element at row i, column j (zero-based).
func (m *Matrix) At(i, j int) float64 { return m.a.at(i, j) }

// Data returns the column-major elements.
func (m *Matrix) Data() []float64 { return m.a.data }

func (m *Matrix) TryNarrowingConversion() value.Rep {
	if m.a.isScalar() {
		return &Scalar{V: m.a.data[0]}
	}
	return nil
}

func (m *Matrix) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, m.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := m.a.index(args)
	if err != nil {
		return value.Undefined, err
	}
	return value.NewValue(&Matrix{a: a}), nil
}

func (m *Matrix) String() string { return formatArray(m.a, formatReal) }

func formatReal(x float64) string {
	return strconv.FormatFloat(x, 'g', 5, 64)
}

func formatArray[T any](a array[T], f func(T) string) string {
	if a.isEmpty() {
		return fmt.Sprintf("[](%dx%d)", a.rows, a.cols)
	}
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < a.rows; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		for j := 0; j < a.cols; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(f(a.at(i, j)))
		}
	}
	b.WriteByte(']')
	return b.String()
}

// ---------------------------------------------------------------------------
// gonum bridging
// ---------------------------------------------------------------------------

// dense returns a as a gonum matrix. Column-major storage is a row-major
// transpose, so the view is the transpose of a Dense over the same data.
func dense(a array[float64]) mat.Matrix {
	return mat.NewDense(a.cols, a.rows, a.data).T()
}

// fromDense copies a gonum matrix into column-major storage.
func fromDense(m mat.Matrix) array[float64] {
	r, c := m.Dims()
	out := newArray[float64](r, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out.data[j*r+i] = m.At(i, j)
		}
	}
	return out
}
