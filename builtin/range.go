package builtin

import (
	"context"
	"fmt"
	"math"

	"github.com/chazu/opdispatch/value"
)

// Range is a lazily materialized row vector base, base+inc, ... of n
// elements.
type Range struct {
	Base, Inc float64
	N         int
}

// NewRange returns base:inc:limit. An increment that cannot reach limit
// gives an empty range.
func NewRange(base, inc, limit float64) value.Value {
	return value.NewValue(&Range{Base: base, Inc: inc, N: rangeLen(base, inc, limit)})
}

const epsilon = 2.220446049250313e-16

func rangeLen(base, inc, limit float64) int {
	if inc == 0 || math.IsNaN(base) || math.IsNaN(inc) || math.IsNaN(limit) {
		return 0
	}
	if (inc > 0 && base > limit) || (inc < 0 && base < limit) {
		return 0
	}
	// tolerate rounding in the quotient, as in 0:0.1:1
	q := (limit - base) / inc
	return int(math.Floor(q+3*epsilon*q)) + 1
}

func (r *Range) TypeName() string      { return "range" }
func (r *Range) ClassName() string     { return "double" }
func (r *Range) Dims() value.Dims      { return value.Dims{1, r.N} }
func (r *Range) Clone() value.Rep      { return &Range{Base: r.Base, Inc: r.Inc, N: r.N} }
func (r *Range) EmptyClone() value.Rep { return &Matrix{} }

// Limit returns the last element, or the base for an empty range.
func (r *Range) Limit() float64 {
	if r.N == 0 {
		return r.Base
	}
	return r.Base + float64(r.N-1)*r.Inc
}

func (r *Range) realArray() array[float64] {
	out := newArray[float64](1, r.N)
	for i := range out.data {
		out.data[i] = r.Base + float64(i)*r.Inc
	}
	return out
}

func (r *Range) String() string {
	return fmt.Sprintf("%s:%s:%s", formatReal(r.Base), formatReal(r.Inc), formatReal(r.Limit()))
}

func (r *Range) NumericConversion() value.Conversion {
	return value.Conversion{Target: "matrix", Fn: rangeToMatrix}
}

func (r *Range) TryNarrowingConversion() value.Rep {
	if r.N == 1 {
		return &Scalar{V: r.Base}
	}
	return nil
}

func (r *Range) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, r.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := r.realArray().index(args)
	if err != nil {
		return value.Undefined, err
	}
	return realResult(a), nil
}

func rangeToMatrix(r value.Rep) value.Rep {
	return &Matrix{a: r.(*Range).realArray()}
}

// ---------------------------------------------------------------------------
// Kernels
// ---------------------------------------------------------------------------

// Range arithmetic with a scalar stays a range.

func rangeResult(base, inc float64, n int) value.Value {
	return value.NewValue(&Range{Base: base, Inc: inc, N: n})
}

func rangeAddScalar(sign float64) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		r, s := a.(*Range), b.(*Scalar)
		return rangeResult(r.Base+sign*s.V, r.Inc, r.N), nil
	}
}

// scalarAddRange is s + r, or s - r when sign is -1.
func scalarAddRange(sign float64) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		s, r := a.(*Scalar), b.(*Range)
		return rangeResult(s.V+sign*r.Base, sign*r.Inc, r.N), nil
	}
}

func rangeMulScalar(ctx context.Context, a, b value.Rep) (value.Value, error) {
	r, s := a.(*Range), b.(*Scalar)
	return rangeResult(r.Base*s.V, r.Inc*s.V, r.N), nil
}

func scalarMulRange(ctx context.Context, a, b value.Rep) (value.Value, error) {
	return rangeMulScalar(ctx, b, a)
}

func rangeUMinus(ctx context.Context, a value.Rep) (value.Value, error) {
	r := a.(*Range)
	return rangeResult(-r.Base, -r.Inc, r.N), nil
}
