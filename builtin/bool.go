package builtin

import (
	"context"

	"github.com/chazu/opdispatch/value"
)

// booler is implemented by the logical representations.
type booler interface {
	boolArray() array[bool]
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Bool is a logical scalar.
type Bool struct {
	V bool
}

// NewBool returns a logical scalar value.
func NewBool(b bool) value.Value { return value.NewValue(&Bool{V: b}) }

func (b *Bool) TypeName() string          { return "bool" }
func (b *Bool) ClassName() string         { return "logical" }
func (b *Bool) Dims() value.Dims          { return value.Dims{1, 1} }
func (b *Bool) Clone() value.Rep          { return &Bool{V: b.V} }
func (b *Bool) EmptyClone() value.Rep     { return &BoolMatrix{} }
func (b *Bool) boolArray() array[bool]    { return scalarArray(b.V) }
func (b *Bool) realArray() array[float64] { return scalarArray(b2f(b.V)) }

func (b *Bool) String() string {
	if b.V {
		return "true"
	}
	return "false"
}

func (b *Bool) NumericConversion() value.Conversion {
	return value.Conversion{Target: "scalar", Fn: func(r value.Rep) value.Rep {
		return &Scalar{V: b2f(r.(*Bool).V)}
	}}
}

func (b *Bool) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, b.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := b.boolArray().index(args)
	if err != nil {
		return value.Undefined, err
	}
	return boolResult(a), nil
}

// BoolMatrix is a logical matrix.
type BoolMatrix struct {
	a array[bool]
}

// NewBoolMatrix returns a rows x cols logical matrix over column-major
// data. nil gives all false.
func NewBoolMatrix(rows, cols int, data []bool) value.Value {
	if data == nil {
		data = make([]bool, rows*cols)
	}
	return value.NewValue(&BoolMatrix{a: array[bool]{rows: rows, cols: cols, data: data}})
}

func (m *BoolMatrix) TypeName() string          { return "bool matrix" }
func (m *BoolMatrix) ClassName() string         { return "logical" }
func (m *BoolMatrix) Dims() value.Dims          { return m.a.dims() }
func (m *BoolMatrix) Clone() value.Rep          { return &BoolMatrix{a: m.a.clone()} }
func (m *BoolMatrix) EmptyClone() value.Rep     { return &BoolMatrix{} }
func (m *BoolMatrix) boolArray() array[bool]    { return m.a }
func (m *BoolMatrix) realArray() array[float64] { return mapArray(m.a, b2f) }

// Data returns the column-major elements.
func (m *BoolMatrix) Data() []bool { return m.a.data }

func (m *BoolMatrix) String() string {
	return formatArray(m.a, func(b bool) string { return formatReal(b2f(b)) })
}

func (m *BoolMatrix) NumericConversion() value.Conversion {
	return value.Conversion{Target: "matrix", Fn: func(r value.Rep) value.Rep {
		return &Matrix{a: r.(*BoolMatrix).realArray()}
	}}
}

func (m *BoolMatrix) TryNarrowingConversion() value.Rep {
	if m.a.isScalar() {
		return &Bool{V: m.a.data[0]}
	}
	return nil
}

func (m *BoolMatrix) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, m.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := m.a.index(args)
	if err != nil {
		return value.Undefined, err
	}
	return boolResult(a), nil
}

// ---------------------------------------------------------------------------
// Kernels
// ---------------------------------------------------------------------------

func boolNot(ctx context.Context, a value.Rep) (value.Value, error) {
	return boolResult(mapArray(a.(booler).boolArray(), func(b bool) bool { return !b })), nil
}

func boolTranspose(ctx context.Context, a value.Rep) (value.Value, error) {
	return boolResult(a.(booler).boolArray().transpose()), nil
}

func boolCat(ctx context.Context, a, b value.Rep, raIdx []int) (value.Value, error) {
	out, err := catArrays(a.(booler).boolArray(), b.(booler).boolArray(), raIdx)
	if err != nil {
		return value.Undefined, err
	}
	return boolResult(out), nil
}

func boolMatrixAssign(ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Rep) error {
	m := lhs.(*BoolMatrix)
	args, err := parenArgs(idx, m.TypeName())
	if err != nil {
		return err
	}
	return m.a.assign(args, rhs.(booler).boolArray(), false)
}

// boolToMatrix widens any logical value to a double matrix.
func boolToMatrix(r value.Rep) value.Rep {
	return &Matrix{a: mapArray(r.(booler).boolArray(), b2f)}
}
