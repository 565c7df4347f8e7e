package builtin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/chazu/opdispatch/value"
)

// Complex linear algebra. gonum's CDense has neither a product nor a
// solver, so the solve is Gaussian elimination with partial pivoting on
// column-major data.

func cmatMul(ctx context.Context, x, y array[complex128]) (array[complex128], error) {
	if x.cols != y.rows {
		return array[complex128]{}, nonconformant("*", x.dims(), y.dims())
	}
	out := newArray[complex128](x.rows, y.cols)
	for j := 0; j < y.cols; j++ {
		if err := value.Poll(ctx); err != nil {
			return array[complex128]{}, err
		}
		for k := 0; k < x.cols; k++ {
			ykj := y.data[j*y.rows+k]
			if ykj == 0 {
				continue
			}
			for i := 0; i < x.rows; i++ {
				out.data[j*out.rows+i] += x.data[k*x.rows+i] * ykj
			}
		}
	}
	return out, nil
}

func cidentity(n int) array[complex128] {
	out := newArray[complex128](n, n)
	for i := 0; i < n; i++ {
		out.data[i*n+i] = 1
	}
	return out
}

func chermitian(a array[complex128]) array[complex128] {
	return mapArray(a.transpose(), cmplx.Conj)
}

// csolveSquare solves a*x = b for square a. A zero pivot fills the result
// with Inf.
func csolveSquare(ctx context.Context, a, b array[complex128]) (array[complex128], error) {
	n, k := a.rows, b.cols
	m := a.clone().data
	x := b.clone()

	minPivot, maxPivot := math.Inf(1), 0.0
	for c := 0; c < n; c++ {
		if err := value.Poll(ctx); err != nil {
			return array[complex128]{}, err
		}
		p, best := c, cmplx.Abs(m[c*n+c])
		for r := c + 1; r < n; r++ {
			if v := cmplx.Abs(m[c*n+r]); v > best {
				p, best = r, v
			}
		}
		if best == 0 {
			singularMatrix(0)
			for i := range x.data {
				x.data[i] = cmplx.Inf()
			}
			return x, nil
		}
		minPivot, maxPivot = math.Min(minPivot, best), math.Max(maxPivot, best)
		if p != c {
			for j := 0; j < n; j++ {
				m[j*n+p], m[j*n+c] = m[j*n+c], m[j*n+p]
			}
			for j := 0; j < k; j++ {
				x.data[j*n+p], x.data[j*n+c] = x.data[j*n+c], x.data[j*n+p]
			}
		}
		piv := m[c*n+c]
		for r := c + 1; r < n; r++ {
			f := m[c*n+r] / piv
			if f == 0 {
				continue
			}
			for j := c + 1; j < n; j++ {
				m[j*n+r] -= f * m[j*n+c]
			}
			for j := 0; j < k; j++ {
				x.data[j*n+r] -= f * x.data[j*n+c]
			}
		}
	}
	if rcond := minPivot / maxPivot; rcond < epsilon {
		singularMatrix(rcond)
	}

	for j := 0; j < k; j++ {
		col := x.data[j*n : (j+1)*n]
		for r := n - 1; r >= 0; r-- {
			s := col[r]
			for c := r + 1; c < n; c++ {
				s -= m[c*n+r] * col[c]
			}
			col[r] = s / m[r*n+r]
		}
	}
	return x, nil
}

// csolve returns x such that a*x = b, through the normal equations when a
// is not square.
func csolve(ctx context.Context, op string, a, b array[complex128]) (array[complex128], error) {
	if a.rows != b.rows {
		return array[complex128]{}, nonconformant(op, a.dims(), b.dims())
	}
	if a.isEmpty() || b.isEmpty() {
		return newArray[complex128](a.cols, b.cols), nil
	}
	if a.rows == a.cols {
		return csolveSquare(ctx, a, b)
	}
	ah := chermitian(a)
	ata, err := cmatMul(ctx, ah, a)
	if err != nil {
		return array[complex128]{}, err
	}
	atb, err := cmatMul(ctx, ah, b)
	if err != nil {
		return array[complex128]{}, err
	}
	return csolveSquare(ctx, ata, atb)
}

func complexElLDiv(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x := complexOf(a)
	for _, z := range x.data {
		if z == 0 {
			divideByZero()
			break
		}
	}
	out, err := broadcast(ctx, `.\`, x, complexOf(b), func(p, q complex128) complex128 { return q / p })
	if err != nil {
		return value.Undefined, err
	}
	return complexResult(out), nil
}

// complexLDiv is a\b.
func complexLDiv(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := complexOf(a), complexOf(b)
	if x.isScalar() {
		return complexElLDiv(ctx, a, b)
	}
	out, err := csolve(ctx, `\`, x, y)
	if err != nil {
		return value.Undefined, err
	}
	return complexResult(out), nil
}

// complexDiv is a/b, computed as (b.' \ a.').'.
func complexDiv(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := complexOf(a), complexOf(b)
	if y.isScalar() {
		return complexDivide(ctx, a, b)
	}
	if x.cols != y.cols {
		return value.Undefined, nonconformant("/", x.dims(), y.dims())
	}
	out, err := csolve(ctx, "/", y.transpose(), x.transpose())
	if err != nil {
		return value.Undefined, err
	}
	return complexResult(out.transpose()), nil
}

// complexPow is a^b: scalar power, or a square matrix to an integer power
// by repeated squaring.
func complexPow(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := complexOf(a), complexOf(b)
	if x.isScalar() && y.isScalar() {
		return complexElPow(ctx, a, b)
	}
	if !y.isScalar() || x.rows != x.cols {
		return value.Undefined, errors.New(errPowShape)
	}
	e := y.data[0]
	if imag(e) != 0 || real(e) != math.Trunc(real(e)) {
		return value.Undefined, errors.New("matrix power with a non-integer exponent is not implemented")
	}
	if x.isEmpty() {
		return complexResult(x.clone()), nil
	}
	n := int(real(e))
	if n < 0 {
		inv, err := csolveSquare(ctx, x, cidentity(x.rows))
		if err != nil {
			return value.Undefined, fmt.Errorf("operator ^: %w", err)
		}
		x, n = inv, -n
	}
	out := cidentity(x.rows)
	var err error
	for n > 0 {
		if n&1 != 0 {
			if out, err = cmatMul(ctx, out, x); err != nil {
				return value.Undefined, err
			}
		}
		n >>= 1
		if n > 0 {
			if x, err = cmatMul(ctx, x, x); err != nil {
				return value.Undefined, err
			}
		}
	}
	return complexResult(out), nil
}
