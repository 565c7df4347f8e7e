package value

import (
	"context"
	"fmt"
)

// trep is a minimal real-valued representation for exercising dispatch.
type trep struct {
	name   string
	data   []float64
	dims   Dims
	chain  []string // successive numeric conversion targets
	fail   bool     // numeric conversion produces nothing
	object bool
}

// narrowing and emptyOf are fixed per type name.
var (
	narrowing = map[string]string{"M": "S"}
	emptyOf   = map[string]string{"S": "M", "M": "M"}
)

func scalar(name string, x float64) *trep {
	return &trep{name: name, data: []float64{x}, dims: Dims{1, 1}}
}

func matrix(name string, rows, cols int, xs ...float64) *trep {
	data := make([]float64, rows*cols)
	copy(data, xs)
	return &trep{name: name, data: data, dims: Dims{rows, cols}}
}

func (r *trep) TypeName() string { return r.name }

func (r *trep) ClassName() string {
	if r.object {
		return "object"
	}
	return "double"
}

func (r *trep) Dims() Dims { return r.dims }

func (r *trep) Clone() Rep {
	c := *r
	c.data = append([]float64(nil), r.data...)
	c.dims = append(Dims(nil), r.dims...)
	return &c
}

func (r *trep) IsClassObject() bool { return r.object }

func (r *trep) NumericConversion() Conversion {
	if len(r.chain) == 0 {
		return Conversion{}
	}
	target, rest, fail := r.chain[0], r.chain[1:], r.fail
	return Conversion{Target: target, Fn: func(x Rep) Rep {
		if fail {
			return nil
		}
		c := x.(*trep).Clone().(*trep)
		c.name = target
		c.chain = rest
		return c
	}}
}

func (r *trep) TryNarrowingConversion() Rep {
	to, ok := narrowing[r.name]
	if !ok || len(r.data) != 1 {
		return nil
	}
	return scalar(to, r.data[0])
}

func (r *trep) EmptyClone() Rep {
	name, ok := emptyOf[r.name]
	if !ok {
		name = r.name
	}
	return &trep{name: name, dims: Dims{0, 0}}
}

func (r *trep) Index(ctx context.Context, idx Index) (Value, error) {
	if idx.Kind != IndexParen || len(idx.Args) != 1 {
		return Undefined, fmt.Errorf("unsupported index %s", idx)
	}
	k := int(idx.Args[0].Rep().(*trep).data[0])
	if k < 1 || k > len(r.data) {
		return Undefined, fmt.Errorf("index (%d): out of bound %d", k, len(r.data))
	}
	return NewValue(scalar("S", r.data[k-1])), nil
}

func (r *trep) String() string {
	return fmt.Sprintf("%s%v", r.name, r.data)
}

func num(v Value) []float64 {
	return v.Rep().(*trep).data
}

// elementwise returns a BinaryFunc applying fn, broadcasting scalars. The
// result takes the type of the non-scalar operand, else resultName.
func elementwise(resultName string, fn func(x, y float64) float64) BinaryFunc {
	return func(ctx context.Context, a, b Rep) (Value, error) {
		ra, rb := a.(*trep), b.(*trep)
		n := max(len(ra.data), len(rb.data))
		dims := ra.dims
		if len(rb.data) > len(ra.data) {
			dims = rb.dims
		}
		out := &trep{name: resultName, data: make([]float64, n), dims: append(Dims(nil), dims...)}
		for i := range out.data {
			if err := Poll(ctx); err != nil {
				return Undefined, err
			}
			x, y := ra.data[0], rb.data[0]
			if len(ra.data) > 1 {
				x = ra.data[i]
			}
			if len(rb.data) > 1 {
				y = rb.data[i]
			}
			out.data[i] = fn(x, y)
		}
		return NewValue(out), nil
	}
}

func add(x, y float64) float64 { return x + y }

// storeElem is an AssignFunc writing a single element at a(k), growing a
// row vector as needed.
func storeElem(ctx context.Context, lhs Rep, idx Index, rhs Rep) error {
	l, r := lhs.(*trep), rhs.(*trep)
	if idx.IsWhole() {
		return fmt.Errorf("whole assignment not supported")
	}
	k := int(idx.Args[0].Rep().(*trep).data[0])
	for len(l.data) < k {
		l.data = append(l.data, 0)
	}
	l.data[k-1] = r.data[0]
	if l.dims.Numel() != len(l.data) {
		l.dims = Dims{1, len(l.data)}
	}
	return nil
}

// newTestDispatcher registers the named types in order.
func newTestDispatcher(names ...string) (*Dispatcher, map[string]TypeID) {
	d := NewDispatcher(Options{})
	ids := make(map[string]TypeID)
	for _, n := range names {
		ids[n] = d.RegisterType(n, "double", scalar(n, 0))
	}
	return d, ids
}

func idx(k float64) Index {
	return Paren(NewValue(scalar("S", k)))
}
