package builtin

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/opdispatch/value"
)

// Sparse is a real matrix in compressed sparse column form. Column j's
// entries are vals[colPtr[j]:colPtr[j+1]] at rows rowIdx[...], sorted by
// row. Explicit zeros are never stored.
type Sparse struct {
	rows, cols int
	colPtr     []int
	rowIdx     []int
	vals       []float64
}

// Triplet is one (row, col, value) entry for NewSparse, zero-based.
type Triplet struct {
	Row, Col int
	V        float64
}

// NewSparse builds a rows x cols sparse matrix. Duplicate positions are
// summed.
func NewSparse(rows, cols int, entries []Triplet) value.Value {
	a := newArray[float64](rows, cols)
	for _, e := range entries {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			panic(fmt.Sprintf("builtin: sparse entry (%d,%d) outside %dx%d", e.Row, e.Col, rows, cols))
		}
		a.data[e.Col*rows+e.Row] += e.V
	}
	return value.NewValue(sparseFrom(a))
}

// sparseFrom compresses a dense array.
func sparseFrom(a array[float64]) *Sparse {
	s := &Sparse{rows: a.rows, cols: a.cols, colPtr: make([]int, a.cols+1)}
	for j := 0; j < a.cols; j++ {
		for i := 0; i < a.rows; i++ {
			if x := a.data[j*a.rows+i]; x != 0 {
				s.rowIdx = append(s.rowIdx, i)
				s.vals = append(s.vals, x)
			}
		}
		s.colPtr[j+1] = len(s.vals)
	}
	return s
}

func (s *Sparse) TypeName() string      { return "sparse matrix" }
func (s *Sparse) ClassName() string     { return "double" }
func (s *Sparse) Dims() value.Dims      { return value.Dims{s.rows, s.cols} }
func (s *Sparse) EmptyClone() value.Rep { return &Sparse{colPtr: []int{0}} }

// Nnz returns the number of stored entries.
func (s *Sparse) Nnz() int { return len(s.vals) }

func (s *Sparse) Clone() value.Rep {
	return &Sparse{
		rows:   s.rows,
		cols:   s.cols,
		colPtr: append([]int(nil), s.colPtr...),
		rowIdx: append([]int(nil), s.rowIdx...),
		vals:   append([]float64(nil), s.vals...),
	}
}

func (s *Sparse) realArray() array[float64] {
	a := newArray[float64](s.rows, s.cols)
	for j := 0; j < s.cols; j++ {
		for k := s.colPtr[j]; k < s.colPtr[j+1]; k++ {
			a.data[j*s.rows+s.rowIdx[k]] = s.vals[k]
		}
	}
	return a
}

func (s *Sparse) String() string {
	return fmt.Sprintf("<sparse %dx%d, nnz=%d>", s.rows, s.cols, s.Nnz())
}

func (s *Sparse) NumericConversion() value.Conversion {
	return value.Conversion{Target: "matrix", Fn: func(r value.Rep) value.Rep {
		return &Matrix{a: r.(*Sparse).realArray()}
	}}
}

// TryNarrowingConversion converts to dense storage when automatic
// mutation is on and the compressed form is no smaller than the dense
// one.
func (s *Sparse) TryNarrowingConversion() value.Rep {
	if !sparseAutoMutate.Load() {
		return nil
	}
	const word = 8
	sparseBytes := len(s.vals)*2*word + (s.cols+1)*word
	if sparseBytes < s.rows*s.cols*word {
		return nil
	}
	a := s.realArray()
	if a.isScalar() {
		return &Scalar{V: a.data[0]}
	}
	return &Matrix{a: a}
}

func (s *Sparse) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	args, err := parenArgs(idx, s.TypeName())
	if err != nil {
		return value.Undefined, err
	}
	a, err := s.realArray().index(args)
	if err != nil {
		return value.Undefined, err
	}
	return value.NewValue(sparseFrom(a)), nil
}

// at returns element (i, j), searching the column's sorted row indices.
func (s *Sparse) at(i, j int) float64 {
	lo, hi := s.colPtr[j], s.colPtr[j+1]
	k := lo + sort.SearchInts(s.rowIdx[lo:hi], i)
	if k < hi && s.rowIdx[k] == i {
		return s.vals[k]
	}
	return 0
}

// ---------------------------------------------------------------------------
// Kernels
// ---------------------------------------------------------------------------

// sparseMerge combines two equal-shaped sparse matrices column by column.
// f(0, 0) must be 0.
func sparseMerge(ctx context.Context, op string, x, y *Sparse, f func(p, q float64) float64) (*Sparse, error) {
	if x.rows != y.rows || x.cols != y.cols {
		return nil, nonconformant(op, x.Dims(), y.Dims())
	}
	out := &Sparse{rows: x.rows, cols: x.cols, colPtr: make([]int, x.cols+1)}
	emit := func(i int, v float64) {
		if v != 0 {
			out.rowIdx = append(out.rowIdx, i)
			out.vals = append(out.vals, v)
		}
	}
	for j := 0; j < x.cols; j++ {
		if j%pollEvery == 0 {
			if err := value.Poll(ctx); err != nil {
				return nil, err
			}
		}
		p, pe := x.colPtr[j], x.colPtr[j+1]
		q, qe := y.colPtr[j], y.colPtr[j+1]
		for p < pe || q < qe {
			switch {
			case q >= qe || (p < pe && x.rowIdx[p] < y.rowIdx[q]):
				emit(x.rowIdx[p], f(x.vals[p], 0))
				p++
			case p >= pe || y.rowIdx[q] < x.rowIdx[p]:
				emit(y.rowIdx[q], f(0, y.vals[q]))
				q++
			default:
				emit(x.rowIdx[p], f(x.vals[p], y.vals[q]))
				p++
				q++
			}
		}
		out.colPtr[j+1] = len(out.vals)
	}
	return out, nil
}

func sparseBinary(op string, f func(p, q float64) float64) value.BinaryFunc {
	return func(ctx context.Context, a, b value.Rep) (value.Value, error) {
		out, err := sparseMerge(ctx, op, a.(*Sparse), b.(*Sparse), f)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewValue(out), nil
	}
}

// sparseScale multiplies every stored entry by a scalar. The zero pattern
// is unchanged unless the scalar is zero or not finite; those cases go
// through dense storage.
func sparseScale(s *Sparse, k float64) *Sparse {
	if k == 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return sparseFrom(mapArray(s.realArray(), func(x float64) float64 { return x * k }))
	}
	out := s.Clone().(*Sparse)
	for i := range out.vals {
		out.vals[i] *= k
	}
	return out
}

func sparseMulScalar(ctx context.Context, a, b value.Rep) (value.Value, error) {
	return value.NewValue(sparseScale(a.(*Sparse), b.(*Scalar).V)), nil
}

func scalarMulSparse(ctx context.Context, a, b value.Rep) (value.Value, error) {
	return value.NewValue(sparseScale(b.(*Sparse), a.(*Scalar).V)), nil
}

func sparseDivScalar(ctx context.Context, a, b value.Rep) (value.Value, error) {
	k := b.(*Scalar).V
	if k == 0 {
		divideByZero()
	}
	return value.NewValue(sparseScale(a.(*Sparse), 1/k)), nil
}

// sparseMul is the sparse by sparse product, accumulating one dense
// column at a time.
func sparseMul(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := a.(*Sparse), b.(*Sparse)
	if x.cols != y.rows {
		return value.Undefined, nonconformant("*", x.Dims(), y.Dims())
	}
	out := &Sparse{rows: x.rows, cols: y.cols, colPtr: make([]int, y.cols+1)}
	acc := make([]float64, x.rows)
	for j := 0; j < y.cols; j++ {
		if err := value.Poll(ctx); err != nil {
			return value.Undefined, err
		}
		for q := y.colPtr[j]; q < y.colPtr[j+1]; q++ {
			k, ykj := y.rowIdx[q], y.vals[q]
			for p := x.colPtr[k]; p < x.colPtr[k+1]; p++ {
				acc[x.rowIdx[p]] += x.vals[p] * ykj
			}
		}
		for i, v := range acc {
			if v != 0 {
				out.rowIdx = append(out.rowIdx, i)
				out.vals = append(out.vals, v)
				acc[i] = 0
			}
		}
		out.colPtr[j+1] = len(out.vals)
	}
	return value.NewValue(out), nil
}

// sparseMulMatrix is sparse * dense, giving a dense result.
func sparseMulMatrix(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := a.(*Sparse), realOf(b)
	if x.cols != y.rows {
		return value.Undefined, nonconformant("*", x.Dims(), y.dims())
	}
	out := newArray[float64](x.rows, y.cols)
	for j := 0; j < y.cols; j++ {
		if err := value.Poll(ctx); err != nil {
			return value.Undefined, err
		}
		for k := 0; k < x.cols; k++ {
			ykj := y.data[j*y.rows+k]
			if ykj == 0 {
				continue
			}
			for p := x.colPtr[k]; p < x.colPtr[k+1]; p++ {
				out.data[j*out.rows+x.rowIdx[p]] += x.vals[p] * ykj
			}
		}
	}
	return realResult(out), nil
}

// sparseSolve is a\b for a sparse square a, solved densely.
func sparseSolve(ctx context.Context, a, b value.Rep) (value.Value, error) {
	x, y := a.(*Sparse), realOf(b)
	out, err := solve(ctx, `\`, x.realArray(), y)
	if err != nil {
		return value.Undefined, err
	}
	return realResult(out), nil
}

func sparseTranspose(ctx context.Context, a value.Rep) (value.Value, error) {
	s := a.(*Sparse)
	out := &Sparse{rows: s.cols, cols: s.rows, colPtr: make([]int, s.rows+1)}
	for _, i := range s.rowIdx {
		out.colPtr[i+1]++
	}
	for i := 0; i < s.rows; i++ {
		out.colPtr[i+1] += out.colPtr[i]
	}
	next := append([]int(nil), out.colPtr[:s.rows]...)
	out.rowIdx = make([]int, len(s.vals))
	out.vals = make([]float64, len(s.vals))
	for j := 0; j < s.cols; j++ {
		for k := s.colPtr[j]; k < s.colPtr[j+1]; k++ {
			i := s.rowIdx[k]
			out.rowIdx[next[i]] = j
			out.vals[next[i]] = s.vals[k]
			next[i]++
		}
	}
	return value.NewValue(out), nil
}

func sparseUMinus(ctx context.Context, a value.Rep) (value.Value, error) {
	return value.NewValue(sparseScale(a.(*Sparse), -1)), nil
}

// sparseAssign stores through a dense copy and recompresses.
func sparseAssign(ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Rep) error {
	s := lhs.(*Sparse)
	args, err := parenArgs(idx, s.TypeName())
	if err != nil {
		return err
	}
	a := s.realArray()
	if err := a.assign(args, realOf(rhs), 0); err != nil {
		return err
	}
	*s = *sparseFrom(a)
	return nil
}
