package builtin

import (
	"context"
	"fmt"

	"github.com/chazu/opdispatch/value"
)

// array is a column-major two-dimensional array.
type array[T any] struct {
	rows, cols int
	data       []T
}

func newArray[T any](rows, cols int) array[T] {
	return array[T]{rows: rows, cols: cols, data: make([]T, rows*cols)}
}

func scalarArray[T any](x T) array[T] {
	return array[T]{rows: 1, cols: 1, data: []T{x}}
}

func (a array[T]) dims() value.Dims { return value.Dims{a.rows, a.cols} }

func (a array[T]) numel() int { return len(a.data) }

func (a array[T]) isScalar() bool { return a.rows == 1 && a.cols == 1 }

func (a array[T]) isEmpty() bool { return a.rows == 0 || a.cols == 0 }

func (a array[T]) at(i, j int) T { return a.data[j*a.rows+i] }

func (a array[T]) clone() array[T] {
	return array[T]{rows: a.rows, cols: a.cols, data: append([]T(nil), a.data...)}
}

func (a array[T]) transpose() array[T] {
	out := newArray[T](a.cols, a.rows)
	for j := 0; j < a.cols; j++ {
		for i := 0; i < a.rows; i++ {
			out.data[i*a.cols+j] = a.data[j*a.rows+i]
		}
	}
	return out
}

// resize grows or shrinks a in place, keeping elements at their (i, j)
// positions and filling new slots with fill.
func (a *array[T]) resize(rows, cols int, fill T) {
	if rows == a.rows && cols == a.cols {
		return
	}
	out := newArray[T](rows, cols)
	for k := range out.data {
		out.data[k] = fill
	}
	for j := 0; j < min(cols, a.cols); j++ {
		for i := 0; i < min(rows, a.rows); i++ {
			out.data[j*rows+i] = a.data[j*a.rows+i]
		}
	}
	*a = out
}

func mapArray[T, R any](a array[T], f func(T) R) array[R] {
	out := newArray[R](a.rows, a.cols)
	for i, x := range a.data {
		out.data[i] = f(x)
	}
	return out
}

// pollEvery is how many elements a kernel processes between interrupt
// polls.
const pollEvery = 4096

// broadcast applies f elementwise. Either operand may be a 1x1 array, in
// which case it is paired with every element of the other.
func broadcast[T, U, R any](ctx context.Context, op string, a array[T], b array[U], f func(T, U) R) (array[R], error) {
	switch {
	case a.isScalar() && !b.isScalar():
		out := newArray[R](b.rows, b.cols)
		x := a.data[0]
		for i, y := range b.data {
			if i%pollEvery == 0 {
				if err := value.Poll(ctx); err != nil {
					return array[R]{}, err
				}
			}
			out.data[i] = f(x, y)
		}
		return out, nil
	case b.isScalar():
		out := newArray[R](a.rows, a.cols)
		y := b.data[0]
		for i, x := range a.data {
			if i%pollEvery == 0 {
				if err := value.Poll(ctx); err != nil {
					return array[R]{}, err
				}
			}
			out.data[i] = f(x, y)
		}
		return out, nil
	}
	if a.rows != b.rows || a.cols != b.cols {
		return array[R]{}, nonconformant(op, a.dims(), b.dims())
	}
	out := newArray[R](a.rows, a.cols)
	for i := range a.data {
		if i%pollEvery == 0 {
			if err := value.Poll(ctx); err != nil {
				return array[R]{}, err
			}
		}
		out.data[i] = f(a.data[i], b.data[i])
	}
	return out, nil
}

func nonconformant(op string, d1, d2 value.Dims) error {
	return fmt.Errorf("operator %s: nonconformant arguments (op1 is %s, op2 is %s)", op, d1, d2)
}

// catArrays places b at offset (r, c) relative to a. Empty operands are
// skipped so that [[], x] yields x.
func catArrays[T any](a, b array[T], raIdx []int) (array[T], error) {
	if b.isEmpty() {
		return a.clone(), nil
	}
	if a.isEmpty() {
		return b.clone(), nil
	}
	r, c := raIdx[0], raIdx[1]
	if c > 0 && a.rows != b.rows {
		return array[T]{}, fmt.Errorf("horizontal dimensions mismatch (%s vs %s)", a.dims(), b.dims())
	}
	if r > 0 && a.cols != b.cols {
		return array[T]{}, fmt.Errorf("vertical dimensions mismatch (%s vs %s)", a.dims(), b.dims())
	}
	out := a.clone()
	var zero T
	out.resize(max(a.rows, r+b.rows), max(a.cols, c+b.cols), zero)
	for j := 0; j < b.cols; j++ {
		for i := 0; i < b.rows; i++ {
			out.data[(c+j)*out.rows+r+i] = b.data[j*b.rows+i]
		}
	}
	return out, nil
}
