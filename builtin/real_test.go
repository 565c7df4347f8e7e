package builtin

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chazu/opdispatch/value"
)

func TestInstallRegistersTypes(t *testing.T) {
	d, ty := setup(t)
	if n := d.NumTypes(); n != 31 {
		t.Errorf("NumTypes = %d, want 31", n)
	}
	if names := d.TypeNames(); names[0] != "scalar" || names[1] != "matrix" {
		t.Errorf("first names = %v", names[:2])
	}
	if len(ty.Ints) != 16 {
		t.Errorf("len(Ints) = %d, want 16", len(ty.Ints))
	}
	if ty.Ints["uint16 matrix"] != d.TypeID("uint16 matrix") {
		t.Error("Ints id does not match registry")
	}
	if d.Capacity() < d.NumTypes() {
		t.Errorf("capacity %d below type count", d.Capacity())
	}
}

func TestRealArithmetic(t *testing.T) {
	d, _ := setup(t)
	tests := []struct {
		name string
		op   value.BinaryOp
		a, b value.Value
		typ  string
		want []float64
	}{
		{"scalar add", value.OpAdd, NewScalar(1), NewScalar(2), "scalar", []float64{3}},
		{"broadcast right", value.OpAdd, RowVector(1, 2), NewScalar(1), "matrix", []float64{2, 3}},
		{"broadcast left", value.OpSub, NewScalar(5), RowVector(1, 2), "matrix", []float64{4, 3}},
		{"elementwise product", value.OpElMul, mat2(1, 2, 3, 4), mat2(1, 2, 3, 4), "matrix", []float64{1, 9, 4, 16}},
		{"elementwise divide", value.OpElDiv, RowVector(2, 4), NewScalar(2), "matrix", []float64{1, 2}},
		{"elementwise left divide", value.OpElLDiv, NewScalar(2), RowVector(2, 4), "matrix", []float64{1, 2}},
		{"matrix product", value.OpMul, mat2(1, 2, 3, 4), col(5, 6), "matrix", []float64{17, 39}},
		{"scalar product", value.OpMul, NewScalar(3), RowVector(1, 2), "matrix", []float64{3, 6}},
		{"left divide", value.OpLDiv, mat2(2, 0, 0, 4), col(2, 4), "matrix", []float64{1, 1}},
		{"right divide", value.OpDiv, RowVector(2, 4), mat2(2, 0, 0, 4), "matrix", []float64{1, 1}},
		{"matrix power", value.OpPow, mat2(1, 1, 1, 0), NewScalar(5), "matrix", []float64{8, 5, 5, 3}},
		{"inverse power", value.OpPow, mat2(2, 0, 0, 4), NewScalar(-1), "matrix", []float64{0.5, 0, 0, 0.25}},
		{"scalar power", value.OpPow, NewScalar(2), NewScalar(10), "scalar", []float64{1024}},
		{"elementwise power", value.OpElPow, RowVector(1, 2, 3), NewScalar(2), "matrix", []float64{1, 4, 9}},
		{"product narrows", value.OpMul, RowVector(1, 2), col(3, 4), "scalar", []float64{11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eval(t, d, tt.op, tt.a, tt.b)
			expectType(t, got, tt.typ)
			expectReals(t, got, tt.want...)
		})
	}
}

func TestEmptyMatrixProduct(t *testing.T) {
	d, _ := setup(t)
	got := eval(t, d, value.OpMul, NewMatrix(0, 3, nil), NewMatrix(3, 2, nil))
	expectDims(t, got, 0, 2)
	got = eval(t, d, value.OpMul, NewMatrix(2, 0, nil), NewMatrix(0, 2, nil))
	expectDims(t, got, 2, 2)
	expectReals(t, got, 0, 0, 0, 0)
}

func TestNonconformant(t *testing.T) {
	d, _ := setup(t)
	_, err := d.BinaryOp(context.Background(), value.OpAdd, RowVector(1, 2), RowVector(1, 2, 3))
	expectKind(t, err, value.OperatorFailure)
	want := "operator +: nonconformant arguments (op1 is 1x2, op2 is 1x3)"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
}

func TestSingularSolveGivesInf(t *testing.T) {
	d, _ := setup(t)
	got := eval(t, d, value.OpLDiv, mat2(1, 2, 2, 4), col(1, 1))
	for _, x := range reals(got) {
		if !math.IsInf(x, 1) {
			t.Fatalf("got %v, want Inf", reals(got))
		}
	}
}

func TestMatrixPowerShape(t *testing.T) {
	d, _ := setup(t)
	_, err := d.BinaryOp(context.Background(), value.OpPow, mat2(1, 2, 3, 4), mat2(1, 2, 3, 4))
	expectKind(t, err, value.OperatorFailure)
	if !strings.Contains(err.Error(), "Use .^ for elementwise power") {
		t.Errorf("error = %v", err)
	}
}

func TestNegativeBaseFractionalPower(t *testing.T) {
	d, _ := setup(t)
	got := eval(t, d, value.OpElPow, NewScalar(-4), NewScalar(0.5))
	expectType(t, got, "complex scalar")
	z := got.Rep().(*ComplexScalar).V
	if math.Abs(imag(z)-2) > 1e-12 || math.Abs(real(z)) > 1e-12 {
		t.Errorf("(-4).^0.5 = %v", z)
	}
}

func TestComparisons(t *testing.T) {
	d, _ := setup(t)
	got := eval(t, d, value.OpGT, NewScalar(3), NewScalar(2))
	expectType(t, got, "bool")
	if !got.Rep().(*Bool).V {
		t.Error("3 > 2 is false")
	}

	got = eval(t, d, value.OpGE, RowVector(1, 2, 3), NewScalar(2))
	expectType(t, got, "bool matrix")
	want := []bool{false, true, true}
	for i, b := range got.Rep().(*BoolMatrix).Data() {
		if b != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestLogicalRejectsNaN(t *testing.T) {
	d, _ := setup(t)
	_, err := d.BinaryOp(context.Background(), value.OpElAnd, NewScalar(math.NaN()), NewScalar(1))
	expectKind(t, err, value.OperatorFailure)
}

func TestRealUnary(t *testing.T) {
	d, _ := setup(t)
	got := evalUnary(t, d, value.OpUMinus, RowVector(1, -2))
	expectReals(t, got, -1, 2)

	got = evalUnary(t, d, value.OpTranspose, RowVector(1, 2, 3))
	expectDims(t, got, 3, 1)

	got = evalUnary(t, d, value.OpNot, RowVector(0, 1))
	expectType(t, got, "bool matrix")
	if data := got.Rep().(*BoolMatrix).Data(); !data[0] || data[1] {
		t.Errorf("!(0, 1) = %v", got)
	}
}

func TestTransMulUsesExactEntry(t *testing.T) {
	d, _ := setup(t)
	ctx := context.Background()
	got, err := d.CompoundBinaryOp(ctx, value.OpTransMul, mat2(1, 2, 3, 4), col(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	expectReals(t, got, 4, 6)

	var exact uint64
	for _, r := range d.StatsSnapshot() {
		if r.Kind == "compound" && r.Op == "transtimes" {
			exact += r.Exact
		}
	}
	if exact != 1 {
		t.Errorf("exact compound hits = %d, want 1", exact)
	}

	// transldiv has no entry and decomposes.
	got, err = d.CompoundBinaryOp(ctx, value.OpTransLDiv, mat2(2, 0, 0, 4), col(2, 4))
	if err != nil {
		t.Fatal(err)
	}
	expectReals(t, got, 1, 1)
}

func TestDivideByZero(t *testing.T) {
	prev := CurrentPolicy()
	defer SetPolicy(prev)
	SetPolicy(Policy{WarnDivideByZero: true})

	d := value.NewDispatcher(value.Options{})
	Install(d, CurrentPolicy())
	got := eval(t, d, value.OpDiv, NewScalar(1), NewScalar(0))
	if !math.IsInf(reals(got)[0], 1) {
		t.Errorf("1/0 = %v", got)
	}
}

func TestKernelsPollForInterrupts(t *testing.T) {
	d, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	big := NewMatrix(1, 2*pollEvery, nil)
	_, err := d.BinaryOp(ctx, value.OpAdd, big, big)
	if !errors.Is(err, value.ErrInterrupted) {
		t.Fatalf("err = %v, want ErrInterrupted", err)
	}
}

func TestMatrixNarrowsToScalar(t *testing.T) {
	v := NewMatrix(1, 1, []float64{7})
	expectType(t, v, "scalar")
	if NewMatrix(0, 0, nil).TypeName() != "matrix" {
		t.Error("empty matrix narrowed")
	}
}
