package value

import "context"

// Function shapes stored in the operation tables. Implementations receive
// the concrete representations and return a freshly constructed Value.
// Failures are returned as errors; long loops should call Poll(ctx).
type (
	UnaryFunc         func(ctx context.Context, a Rep) (Value, error)
	NonConstUnaryFunc func(ctx context.Context, a Rep) error
	BinaryFunc        func(ctx context.Context, a, b Rep) (Value, error)
	CatFunc           func(ctx context.Context, a, b Rep, raIdx []int) (Value, error)
	AssignFunc        func(ctx context.Context, lhs Rep, idx Index, rhs Rep) error
	AssignAnyFunc     func(ctx context.Context, lhs Rep, idx Index, rhs Value) error
)

// tables holds the dense operation tables. Every two-type table is a flat
// slice of n*n entries addressed as t1*n+t2, where n is the capacity.
type tables struct {
	n int

	unary     [NumUnaryOps][]UnaryFunc
	nonConst  [NumUnaryOps][]NonConstUnaryFunc
	binary    [NumBinaryOps][]BinaryFunc
	compound  [][]BinaryFunc
	cat       []CatFunc
	assign    [NumAssignOps][]AssignFunc
	assignAny [NumAssignOps][]AssignAnyFunc

	prefAssign []TypeID
	typeConv   []ConvFunc
	widening   []ConvFunc
}

func newTables(n int, compoundOps int) tables {
	var t tables
	t.compound = make([][]BinaryFunc, compoundOps)
	t.resize(n)
	return t
}

// resize grows every table to capacity n, preserving entries.
func (t *tables) resize(n int) {
	old := t.n
	for i := range t.unary {
		t.unary[i] = grow1(t.unary[i], n, nil)
		t.nonConst[i] = grow1(t.nonConst[i], n, nil)
	}
	for i := range t.binary {
		t.binary[i] = grow2(t.binary[i], old, n, nil)
	}
	for i := range t.compound {
		t.compound[i] = grow2(t.compound[i], old, n, nil)
	}
	t.cat = grow2(t.cat, old, n, nil)
	for i := range t.assign {
		t.assign[i] = grow2(t.assign[i], old, n, nil)
		t.assignAny[i] = grow1(t.assignAny[i], n, nil)
	}
	t.prefAssign = grow2(t.prefAssign, old, n, NoType)
	t.typeConv = grow2(t.typeConv, old, n, nil)
	t.widening = grow2(t.widening, old, n, nil)
	t.n = n
}

// addCompound appends the table for a newly defined compound operator.
func (t *tables) addCompound() {
	t.compound = append(t.compound, make([]BinaryFunc, t.n*t.n))
}

func (t *tables) in(id TypeID) bool {
	return id >= 0 && int(id) < t.n
}

func (t *tables) at(t1, t2 TypeID) int {
	return int(t1)*t.n + int(t2)
}

func grow1[T any](s []T, n int, fill T) []T {
	if len(s) >= n {
		return s
	}
	out := make([]T, n)
	copy(out, s)
	for i := len(s); i < n; i++ {
		out[i] = fill
	}
	return out
}

func grow2[T any](s []T, oldN, newN int, fill T) []T {
	if oldN >= newN && len(s) == newN*newN {
		return s
	}
	out := make([]T, newN*newN)
	for i := range out {
		out[i] = fill
	}
	for i := 0; i < oldN; i++ {
		copy(out[i*newN:i*newN+oldN], s[i*oldN:(i+1)*oldN])
	}
	return out
}
