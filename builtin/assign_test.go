package builtin

import (
	"context"
	"testing"

	"github.com/chazu/opdispatch/value"
)

func paren(args ...value.Value) []value.Index { return []value.Index{value.Paren(args...)} }

func assign(t *testing.T, d *value.Dispatcher, v *value.Value, chain []value.Index, rhs value.Value) {
	t.Helper()
	if err := v.Assign(context.Background(), d, value.OpAsnEq, chain, rhs); err != nil {
		t.Fatalf("assign %s into %s: %v", rhs.TypeName(), v.TypeName(), err)
	}
}

func TestIndexedAssignResolution(t *testing.T) {
	d, _ := setup(t)
	tests := []struct {
		name  string
		lhs   value.Value
		chain []value.Index
		rhs   value.Value
		typ   string
		want  []float64
	}{
		{"exact", RowVector(1, 2, 3), paren(NewScalar(2)), NewScalar(5), "matrix", []float64{1, 5, 3}},
		{"growth", RowVector(1, 2, 3), paren(NewScalar(5)), NewScalar(1), "matrix", []float64{1, 2, 3, 0, 1}},
		{"scalar widens", NewScalar(1), paren(NewScalar(2)), NewScalar(3), "matrix", []float64{1, 3}},
		{"bool matrix widens", NewBoolMatrix(1, 2, []bool{true, false}), paren(NewScalar(1)), NewScalar(2), "matrix", []float64{2, 0}},
		{"rhs numeric conversion", RowVector(0, 0), paren(NewScalar(1)), NewBool(true), "matrix", []float64{1, 0}},
		{"rhs type conversion", RowVector(0, 0, 0), paren(RowVector(1, 2)), NewRange(7, 1, 8), "matrix", []float64{7, 8, 0}},
		{"colon row", mat2(1, 2, 3, 4), paren(NewScalar(2), All()), NewScalar(0), "matrix", []float64{1, 0, 2, 0}},
		{"logical mask", RowVector(1, 2, 3), paren(NewBoolMatrix(1, 3, []bool{true, false, true})), NewScalar(0), "matrix", []float64{0, 2, 0}},
		{"range widens", NewRange(1, 1, 3), paren(NewScalar(1)), NewScalar(9), "matrix", []float64{9, 2, 3}},
		{"diagonal widens", NewDiag(2, 2, []float64{1, 1}), paren(NewScalar(2), NewScalar(1)), NewScalar(5), "matrix", []float64{1, 5, 0, 1}},
		{"sparse stays sparse", NewSparse(2, 2, nil), paren(NewScalar(2), NewScalar(2)), NewScalar(5), "sparse matrix", []float64{0, 0, 0, 5}},
		{"int saturates", NewIntMatrix(1, 2, []int8{1, 2}), paren(NewScalar(1)), NewScalar(300), "int8 matrix", []float64{127, 2}},
		{"int scalar widens", NewInt[uint8](1), paren(NewScalar(2)), NewInt[uint8](2), "uint8 matrix", []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.lhs
			assign(t, d, &v, tt.chain, tt.rhs)
			expectType(t, v, tt.typ)
			expectReals(t, v, tt.want...)
		})
	}
}

func TestAssignComplexIntoReal(t *testing.T) {
	d, _ := setup(t)
	v := RowVector(1, 2)
	assign(t, d, &v, paren(NewScalar(1)), NewComplex(1i))
	expectType(t, v, "complex matrix")
	if data := v.Rep().(*ComplexMatrix).Data(); data[0] != 1i || data[1] != 2 {
		t.Errorf("got %s", v)
	}

	// Storing a real back over the only complex element narrows.
	assign(t, d, &v, paren(NewScalar(1)), NewScalar(1))
	expectType(t, v, "matrix")
}

func TestAssignString(t *testing.T) {
	d, _ := setup(t)
	v := NewString("abc")
	assign(t, d, &v, paren(NewScalar(2)), NewString("X"))
	if v.String() != "aXc" {
		t.Errorf("got %q", v)
	}
}

func TestAssignCopyOnWrite(t *testing.T) {
	d, _ := setup(t)
	a := RowVector(1, 2)
	b := a.Copy()
	assign(t, d, &b, paren(NewScalar(1)), NewScalar(9))
	expectReals(t, a, 1, 2)
	expectReals(t, b, 9, 2)
}

func TestAssignUndefined(t *testing.T) {
	d, _ := setup(t)

	var x value.Value
	assign(t, d, &x, paren(NewScalar(3)), NewScalar(1))
	expectType(t, x, "matrix")
	expectReals(t, x, 0, 0, 1)

	var c value.Value
	assign(t, d, &c, []value.Index{value.Brace(NewScalar(2))}, NewScalar(5))
	expectType(t, c, "cell")
	expectDims(t, c, 1, 2)
	cell := c.Rep().(*Cell)
	expectType(t, cell.Elem(0), "matrix")
	expectReals(t, cell.Elem(1), 5)

	var s value.Value
	assign(t, d, &s, []value.Index{value.Field("x"), value.Field("y")}, NewScalar(1))
	expectType(t, s, "scalar struct")
	inner := s.Rep().(*Struct).Get("x")
	expectType(t, inner, "scalar struct")
	expectReals(t, inner.Rep().(*Struct).Get("y"), 1)
}

func TestAssignNested(t *testing.T) {
	d, _ := setup(t)
	ctx := context.Background()
	c := NewCell(NewScalar(1))
	chain := []value.Index{value.Brace(NewScalar(3)), value.Field("name")}
	assign(t, d, &c, chain, NewString("a"))
	expectDims(t, c, 1, 3)

	got, err := d.Subsref(ctx, c, chain)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "a" {
		t.Errorf("c{3}.name = %q", got)
	}

	// Element inside a struct field.
	s := NewStruct()
	assign(t, d, &s, []value.Index{value.Field("m")}, RowVector(1, 2))
	assign(t, d, &s, []value.Index{value.Field("m"), value.Paren(NewScalar(2))}, NewScalar(7))
	got, err = d.Subsref(ctx, s, []value.Index{value.Field("m")})
	if err != nil {
		t.Fatal(err)
	}
	expectReals(t, got, 1, 7)
}

func TestAssignCompoundIndexed(t *testing.T) {
	d, _ := setup(t)
	v := RowVector(1, 2)
	if err := v.Assign(context.Background(), d, value.OpAddEq, paren(NewScalar(2)), NewScalar(10)); err != nil {
		t.Fatal(err)
	}
	expectReals(t, v, 1, 12)
}

func TestAssignOpInPlace(t *testing.T) {
	d, _ := setup(t)
	ctx := context.Background()
	m := RowVector(1, 2)
	shared := m.Copy()
	if err := m.AssignOp(ctx, d, value.OpAddEq, NewScalar(1)); err != nil {
		t.Fatal(err)
	}
	expectReals(t, m, 2, 3)
	expectReals(t, shared, 1, 2)

	s := NewScalar(3)
	if err := s.AssignOp(ctx, d, value.OpMulEq, NewScalar(4)); err != nil {
		t.Fatal(err)
	}
	expectReals(t, s, 12)

	if err := m.NonConstUnaryOp(ctx, d, value.OpIncr); err != nil {
		t.Fatal(err)
	}
	expectReals(t, m, 3, 4)
}

func TestAssignErrors(t *testing.T) {
	d, _ := setup(t)
	ctx := context.Background()

	c := NewCell(NewScalar(1))
	err := c.Assign(ctx, d, value.OpAsnEq, paren(NewScalar(1)), NewScalar(2))
	expectKind(t, err, value.OperatorFailure)
	if err.Error() != "conversion to cell array failed" {
		t.Errorf("error = %v", err)
	}
	expectType(t, c, "cell")

	m := mat2(1, 2, 3, 4)
	err = m.Assign(ctx, d, value.OpAsnEq, paren(NewScalar(9)), NewScalar(1))
	expectKind(t, err, value.OperatorFailure)
	expectReals(t, m, 1, 3, 2, 4)

	_, err = d.Subsref(ctx, NewScalar(1), []value.Index{value.Brace(NewScalar(1))})
	expectKind(t, err, value.OperatorFailure)
}

func TestCellIndex(t *testing.T) {
	d, _ := setup(t)
	ctx := context.Background()
	c := NewCell(NewScalar(1), NewString("x"), RowVector(1, 2))

	got, err := d.Subsref(ctx, c, []value.Index{value.Brace(NewScalar(2))})
	if err != nil {
		t.Fatal(err)
	}
	expectType(t, got, "string")

	got, err = d.Subsref(ctx, c, []value.Index{value.Paren(RowVector(1, 3))})
	if err != nil {
		t.Fatal(err)
	}
	expectType(t, got, "cell")
	expectDims(t, got, 1, 2)

	_, err = d.Subsref(ctx, c, []value.Index{value.Brace(All())})
	expectKind(t, err, value.OperatorFailure)

	got, err = d.Subsref(ctx, c, []value.Index{value.Brace(NewScalar(3)), value.Paren(NewScalar(2))})
	if err != nil {
		t.Fatal(err)
	}
	expectReals(t, got, 2)
}

func TestContainerReleasesElements(t *testing.T) {
	d, _ := setup(t)
	x, y := NewScalar(1), NewScalar(2)

	c := NewCell(x)
	shared := c.Copy()
	c.Release()
	if x.RefCount() != 2 {
		t.Errorf("cell still shared: refs = %d, want 2", x.RefCount())
	}
	shared.Release()
	if x.RefCount() != 1 {
		t.Errorf("after cell release: refs = %d, want 1", x.RefCount())
	}

	c = NewCell(x)
	assign(t, d, &c, []value.Index{value.Brace(NewScalar(1))}, y)
	if x.RefCount() != 1 || y.RefCount() != 2 {
		t.Errorf("c{1} = y: x refs %d, y refs %d", x.RefCount(), y.RefCount())
	}
	tmp := NewCell(x)
	assign(t, d, &c, paren(RowVector(2, 3)), tmp)
	tmp.Release()
	if x.RefCount() != 3 {
		t.Errorf("c(2:3) = {x}: refs = %d, want 3", x.RefCount())
	}
	c.Release()
	if x.RefCount() != 1 || y.RefCount() != 1 {
		t.Errorf("after cell release: x refs %d, y refs %d", x.RefCount(), y.RefCount())
	}

	s := NewStruct()
	s.Rep().(*Struct).Set("a", x)
	s.Rep().(*Struct).Set("a", x)
	o := NewObject("point")
	o.Rep().(*Object).Set("p", x)
	if x.RefCount() != 3 {
		t.Errorf("struct and object fields: refs = %d, want 3", x.RefCount())
	}
	s.Release()
	o.Release()
	if x.RefCount() != 1 || !x.IsDefined() {
		t.Errorf("after struct and object release: refs = %d", x.RefCount())
	}
}
