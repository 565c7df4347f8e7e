package builtin

import (
	"context"

	"github.com/chazu/opdispatch/value"
)

// String is a char matrix; a single-row string is the common case.
type String struct {
	a array[byte]
}

// NewString returns a 1xN char value holding s.
func NewString(s string) value.Value {
	return value.NewValue(&String{a: array[byte]{rows: 1, cols: len(s), data: []byte(s)}})
}

func (s *String) TypeName() string      { return "string" }
func (s *String) ClassName() string     { return "char" }
func (s *String) Dims() value.Dims      { return s.a.dims() }
func (s *String) Clone() value.Rep      { return &String{a: s.a.clone()} }
func (s *String) EmptyClone() value.Rep { return &String{} }

func (s *String) realArray() array[float64] {
	return mapArray(s.a, func(c byte) float64 { return float64(c) })
}

// String returns the rows joined by newlines.
func (s *String) String() string {
	if s.a.rows <= 1 {
		return string(s.a.data)
	}
	t := s.a.transpose()
	out := make([]byte, 0, len(t.data)+s.a.rows)
	for i := 0; i < s.a.rows; i++ {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, t.data[i*s.a.cols:(i+1)*s.a.cols]...)
	}
	return string(out)
}

func (s *String) NumericConversion() value.Conversion {
	return value.Conversion{Target: "matrix", Fn: func(r value.Rep) value.Rep {
		return &Matrix{a: r.(*String).realArray()}
	}}
}

func (s *String) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, s.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := s.a.index(args)
	if err != nil {
		return value.Undefined, err
	}
	return value.NewValue(&String{a: a}), nil
}

// chars converts a char or real operand to char codes, truncating reals.
func chars(r value.Rep) array[byte] {
	if s, ok := r.(*String); ok {
		return s.a
	}
	return mapArray(realOf(r), func(x float64) byte { return byte(saturate[uint8](x)) })
}

func stringCat(ctx context.Context, a, b value.Rep, raIdx []int) (value.Value, error) {
	out, err := catArrays(chars(a), chars(b), raIdx)
	if err != nil {
		return value.Undefined, err
	}
	return value.NewValue(&String{a: out}), nil
}

func stringTranspose(ctx context.Context, a value.Rep) (value.Value, error) {
	return value.NewValue(&String{a: a.(*String).a.transpose()}), nil
}

func stringAssign(ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Rep) error {
	s := lhs.(*String)
	args, err := parenArgs(idx, s.TypeName())
	if err != nil {
		return err
	}
	return s.a.assign(args, chars(rhs), 0)
}
