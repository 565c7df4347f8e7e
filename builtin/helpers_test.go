package builtin

import (
	"context"
	"math"
	"math/cmplx"
	"testing"

	"github.com/chazu/opdispatch/value"
)

func setup(t *testing.T) (*value.Dispatcher, *Types) {
	t.Helper()
	d := value.NewDispatcher(value.Options{Stats: true})
	return d, Install(d, DefaultPolicy())
}

// eval dispatches a binary operator and fails the test on error.
func eval(t *testing.T, d *value.Dispatcher, op value.BinaryOp, a, b value.Value) value.Value {
	t.Helper()
	v, err := d.BinaryOp(context.Background(), op, a, b)
	if err != nil {
		t.Fatalf("%s %s %s: %v", a.TypeName(), op, b.TypeName(), err)
	}
	return v
}

func evalUnary(t *testing.T, d *value.Dispatcher, op value.UnaryOp, a value.Value) value.Value {
	t.Helper()
	v, err := d.UnaryOp(context.Background(), op, a)
	if err != nil {
		t.Fatalf("%s %s: %v", op, a.TypeName(), err)
	}
	return v
}

// reals returns the column-major elements of a real-viewable value.
func reals(v value.Value) []float64 {
	return realOf(v.Rep()).data
}

func expectType(t *testing.T, v value.Value, name string) {
	t.Helper()
	if v.TypeName() != name {
		t.Fatalf("type = %q, want %q (value %s)", v.TypeName(), name, v)
	}
}

func expectReals(t *testing.T, v value.Value, want ...float64) {
	t.Helper()
	got := reals(v)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] && !(math.IsNaN(got[i]) && math.IsNaN(want[i])) {
			if math.Abs(got[i]-want[i]) > 1e-12 {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	}
}

func expectComplex(t *testing.T, v value.Value, want ...complex128) {
	t.Helper()
	got := complexOf(v.Rep()).data
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if cmplx.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func expectDims(t *testing.T, v value.Value, rows, cols int) {
	t.Helper()
	if d := v.Dims(); d.Rows() != rows || d.Cols() != cols {
		t.Fatalf("dims = %s, want %dx%d", d, rows, cols)
	}
}

func expectKind(t *testing.T, err error, kind value.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := value.KindOf(err); got != kind {
		t.Fatalf("kind = %s, want %s (%v)", got, kind, err)
	}
}

// mat2 builds a 2x2 matrix from row-major elements.
func mat2(a, b, c, d float64) value.Value {
	return NewMatrix(2, 2, []float64{a, c, b, d})
}

func col(xs ...float64) value.Value {
	return NewMatrix(len(xs), 1, append([]float64(nil), xs...))
}
