package builtin

import (
	"fmt"
	"math"

	"github.com/chazu/opdispatch/value"
)

// Colon is the magic colon subscript, as in a(:, 2).
type Colon struct{}

func (Colon) TypeName() string   { return "magic-colon" }
func (Colon) ClassName() string  { return "magic-colon" }
func (Colon) Dims() value.Dims   { return value.Dims{1, 1} }
func (c Colon) Clone() value.Rep { return c }
func (Colon) String() string     { return ":" }

// All returns a new magic colon value.
func All() value.Value { return value.NewValue(Colon{}) }

// subscript converts one index argument into zero-based positions. extent
// is the size a colon expands to. shape is the natural shape of the
// result when the argument alone determines it.
func subscript(v value.Value, extent int) (pos []int, colon bool, shape value.Dims, err error) {
	switch r := v.Rep().(type) {
	case Colon:
		pos = make([]int, extent)
		for i := range pos {
			pos[i] = i
		}
		return pos, true, value.Dims{extent, 1}, nil
	case *Bool:
		if r.V {
			return []int{0}, false, value.Dims{1, 1}, nil
		}
		return nil, false, value.Dims{0, 0}, nil
	case *BoolMatrix:
		for i, b := range r.a.data {
			if b {
				pos = append(pos, i)
			}
		}
		shape = value.Dims{len(pos), 1}
		if r.a.rows == 1 {
			shape = value.Dims{1, len(pos)}
		}
		return pos, false, shape, nil
	case realer:
		a := r.realArray()
		pos = make([]int, len(a.data))
		for i, x := range a.data {
			if x != math.Trunc(x) || x < 1 || x > math.MaxInt32 {
				return nil, false, nil, badSubscript(x)
			}
			pos[i] = int(x) - 1
		}
		return pos, false, a.dims(), nil
	}
	if !v.IsDefined() {
		return nil, false, nil, fmt.Errorf("index: %w", value.ErrUndefined)
	}
	return nil, false, nil, fmt.Errorf("subscript indices must be either positive integers or logicals, not '%s'", v.TypeName())
}

func badSubscript(x float64) error {
	if x == math.Trunc(x) && x < 1 {
		return fmt.Errorf("index (%g): out of bound; value %g out of bound", x, x)
	}
	return fmt.Errorf("index (%g): subscripts must be either integers 1 to (2^63)-1 or logicals", x)
}

func outOfBound(k, extent int) error {
	return fmt.Errorf("index (%d): out of bound %d", k+1, extent)
}

// index reads a(args...).
func (a array[T]) index(args []value.Value) (array[T], error) {
	switch len(args) {
	case 0:
		return a.clone(), nil
	case 1:
		pos, colon, shape, err := subscript(args[0], a.numel())
		if err != nil {
			return array[T]{}, err
		}
		n := len(pos)
		out := array[T]{data: make([]T, n)}
		for i, k := range pos {
			if k >= a.numel() {
				return array[T]{}, outOfBound(k, a.numel())
			}
			out.data[i] = a.data[k]
		}
		switch {
		case colon:
			out.rows, out.cols = n, 1
		case a.rows == 1 && a.cols != 1:
			out.rows, out.cols = 1, n
		case a.cols == 1 && a.rows != 1:
			out.rows, out.cols = n, 1
		case shape.Numel() == n:
			out.rows, out.cols = shape.Rows(), shape.Cols()
		default:
			out.rows, out.cols = n, 1
		}
		return out, nil
	case 2:
		ri, _, _, err := subscript(args[0], a.rows)
		if err != nil {
			return array[T]{}, err
		}
		ci, _, _, err := subscript(args[1], a.cols)
		if err != nil {
			return array[T]{}, err
		}
		out := newArray[T](len(ri), len(ci))
		for j, c := range ci {
			if c >= a.cols {
				return array[T]{}, fmt.Errorf("index (_,%d): out of bound %d", c+1, a.cols)
			}
			for i, r := range ri {
				if r >= a.rows {
					return array[T]{}, fmt.Errorf("index (%d,_): out of bound %d", r+1, a.rows)
				}
				out.data[j*out.rows+i] = a.data[c*a.rows+r]
			}
		}
		return out, nil
	}
	return array[T]{}, fmt.Errorf("index: only 2-D indexing is supported, got %d subscripts", len(args))
}

// assign performs a(args...) = rhs, growing a when a subscript is past
// the end. New elements are set to fill. A 1x1 rhs is broadcast.
func (a *array[T]) assign(args []value.Value, rhs array[T], fill T) error {
	switch len(args) {
	case 1:
		pos, _, _, err := subscript(args[0], a.numel())
		if err != nil {
			return err
		}
		if !rhs.isScalar() && rhs.numel() != len(pos) {
			return fmt.Errorf("=: nonconformant arguments (op1 is 1x%d, op2 is %s)", len(pos), rhs.dims())
		}
		hi := -1
		for _, k := range pos {
			hi = max(hi, k)
		}
		if hi >= a.numel() {
			switch {
			case a.numel() == 0:
				a.resize(1, hi+1, fill)
			case a.rows == 1:
				a.resize(1, hi+1, fill)
			case a.cols == 1:
				a.resize(hi+1, 1, fill)
			default:
				return fmt.Errorf("A(I) = X: unable to resize A")
			}
		}
		for i, k := range pos {
			if rhs.isScalar() {
				a.data[k] = rhs.data[0]
			} else {
				a.data[k] = rhs.data[i]
			}
		}
		return nil
	case 2:
		rext, cext := a.rows, a.cols
		if a.numel() == 0 {
			rext, cext = rhs.rows, rhs.cols
		}
		ri, _, _, err := subscript(args[0], rext)
		if err != nil {
			return err
		}
		ci, _, _, err := subscript(args[1], cext)
		if err != nil {
			return err
		}
		if !rhs.isScalar() && (rhs.numel() != len(ri)*len(ci)) {
			return fmt.Errorf("=: nonconformant arguments (op1 is %dx%d, op2 is %s)", len(ri), len(ci), rhs.dims())
		}
		rhi, chi := a.rows-1, a.cols-1
		for _, r := range ri {
			rhi = max(rhi, r)
		}
		for _, c := range ci {
			chi = max(chi, c)
		}
		a.resize(rhi+1, chi+1, fill)
		k := 0
		for _, c := range ci {
			for _, r := range ri {
				if rhs.isScalar() {
					a.data[c*a.rows+r] = rhs.data[0]
				} else {
					a.data[c*a.rows+r] = rhs.data[k]
				}
				k++
			}
		}
		return nil
	}
	return fmt.Errorf("index: only 2-D assignment is supported, got %d subscripts", len(args))
}

// parenArgs checks that idx is a paren subscript and returns its
// arguments.
func parenArgs(idx value.Index, typ string) ([]value.Value, error) {
	if idx.Kind != value.IndexParen {
		return nil, fmt.Errorf("'%s' object cannot be indexed with %c", typ, idx.Kind)
	}
	return idx.Args, nil
}
