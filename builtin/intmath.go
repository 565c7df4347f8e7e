package builtin

import (
	"math"
	"math/bits"
)

// Saturating integer arithmetic on the element type itself. Classes
// narrower than 64 bits compute in int64 or uint64 and clamp; the 64-bit
// classes detect overflow with math/bits.

func isSigned[T integer]() bool {
	var zero T
	return ^zero < 0
}

// intMin returns the smallest value of T.
func intMin[T integer]() T {
	if isSigned[T]() {
		return ^intMax[T]()
	}
	return 0
}

// fromInt64 clamps v to a signed T.
func fromInt64[T integer](v int64) T {
	switch {
	case v > int64(intMax[T]()):
		return intMax[T]()
	case v < int64(intMin[T]()):
		return intMin[T]()
	}
	return T(v)
}

// fromUint64 clamps v to an unsigned T.
func fromUint64[T integer](v uint64) T {
	if v > uint64(intMax[T]()) {
		return intMax[T]()
	}
	return T(v)
}

func addInt64(x, y int64) int64 {
	s := x + y
	if (x >= 0) == (y >= 0) && (s >= 0) != (x >= 0) {
		if x >= 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return s
}

func subInt64(x, y int64) int64 {
	s := x - y
	if (x >= 0) != (y >= 0) && (s >= 0) != (x >= 0) {
		if x >= 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return s
}

// magnitude returns |x| without overflowing on MinInt64.
func magnitude(x int64) uint64 {
	if x < 0 {
		return -uint64(x)
	}
	return uint64(x)
}

func mulInt64(x, y int64) int64 {
	if x == 0 || y == 0 {
		return 0
	}
	hi, lo := bits.Mul64(magnitude(x), magnitude(y))
	if (x < 0) != (y < 0) {
		if hi != 0 || lo > 1<<63 {
			return math.MinInt64
		}
		return int64(-lo)
	}
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lo)
}

// quoInt64 divides rounding halves away from zero. Division by zero gives
// the bound with the sign of x, or 0 for 0/0.
func quoInt64(x, y int64) int64 {
	switch {
	case y == 0 && x == 0:
		return 0
	case y == 0 && x > 0:
		return math.MaxInt64
	case y == 0:
		return math.MinInt64
	case x == math.MinInt64 && y == -1:
		return math.MaxInt64
	}
	q, r := x/y, x%y
	if r != 0 {
		ar, ay := magnitude(r), magnitude(y)
		if ar >= ay-ar {
			if (x < 0) == (y < 0) {
				q++
			} else {
				q--
			}
		}
	}
	return q
}

func quoUint64(x, y uint64) uint64 {
	if y == 0 {
		if x == 0 {
			return 0
		}
		return math.MaxUint64
	}
	q, r := x/y, x%y
	if r != 0 && r >= y-r {
		q++
	}
	return q
}

func satAdd[T integer](x, y T) T {
	if isSigned[T]() {
		return fromInt64[T](addInt64(int64(x), int64(y)))
	}
	s, carry := bits.Add64(uint64(x), uint64(y), 0)
	if carry != 0 {
		return intMax[T]()
	}
	return fromUint64[T](s)
}

func satSub[T integer](x, y T) T {
	if isSigned[T]() {
		return fromInt64[T](subInt64(int64(x), int64(y)))
	}
	d, borrow := bits.Sub64(uint64(x), uint64(y), 0)
	if borrow != 0 {
		return 0
	}
	return T(d)
}

func satMul[T integer](x, y T) T {
	if isSigned[T]() {
		return fromInt64[T](mulInt64(int64(x), int64(y)))
	}
	hi, lo := bits.Mul64(uint64(x), uint64(y))
	if hi != 0 {
		return intMax[T]()
	}
	return fromUint64[T](lo)
}

func satQuo[T integer](x, y T) T {
	if isSigned[T]() {
		return fromInt64[T](quoInt64(int64(x), int64(y)))
	}
	return fromUint64[T](quoUint64(uint64(x), uint64(y)))
}

func satNeg[T integer](x T) T {
	if isSigned[T]() {
		return fromInt64[T](subInt64(0, int64(x)))
	}
	return 0
}

// satPow raises x to a non-negative integer power by squaring. Negative
// powers of signed values go through float64 and round.
func satPow[T integer](x, n T) T {
	if n < 0 {
		return saturate[T](math.Pow(float64(x), float64(n)))
	}
	r := T(1)
	for n > 0 {
		if n&1 != 0 {
			r = satMul(r, x)
		}
		n >>= 1
		if n > 0 {
			x = satMul(x, x)
		}
	}
	return r
}

// exactInt returns y as a T when y is an integer inside T's range. The
// 64-bit upper bounds are 2^63 and 2^64 as floats, so hi+1 == hi there and
// the comparison still excludes them.
func exactInt[T integer](y float64) (T, bool) {
	lo, hi := intBounds[T]()
	if y != math.Trunc(y) || y < lo || y >= hi+1 {
		return 0, false
	}
	return T(y), true
}
