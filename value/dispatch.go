package value

import (
	"context"
	"fmt"
)

// ---------------------------------------------------------------------------
// Operator resolution
//
// Every entry point follows the same shape: class override if an operand
// is a class object, exact table probe, then at most one conversion per
// operand and a single retry. Results are narrowed before they are
// returned.
// ---------------------------------------------------------------------------

func numericConversionOf(r Rep) Conversion {
	if c, ok := r.(NumericConverter); ok {
		return c.NumericConversion()
	}
	return Conversion{}
}

func numericDemotionOf(r Rep) Conversion {
	if c, ok := r.(NumericDemoter); ok {
		return c.NumericDemotion()
	}
	return Conversion{}
}

// convertOperands applies at most one conversion to each operand. When
// converting one side alone reaches a registered entry the other side is
// left alone. Demotions are only tried when no numeric conversion is
// offered by either operand. It reports whether anything was converted.
func (d *Dispatcher) convertOperands(a, b Rep, has func(t1, t2 TypeID) bool) (Rep, Rep, bool, bool) {
	ra, rb, converted, failed := d.convertWith(a, b, numericConversionOf, has)
	if converted || failed {
		return ra, rb, converted, failed
	}
	return d.convertWith(a, b, numericDemotionOf, has)
}

func (d *Dispatcher) convertWith(a, b Rep, pick func(Rep) Conversion, has func(t1, t2 TypeID) bool) (Rep, Rep, bool, bool) {
	c1, c2 := pick(a), pick(b)
	if !c1.Valid() && !c2.Valid() {
		return a, b, false, false
	}

	t1, t2 := d.TypeID(a.TypeName()), d.TypeID(b.TypeName())
	if c2.Valid() && has(t1, d.TypeID(c2.Target)) {
		c1 = Conversion{}
	} else if c1.Valid() && has(d.TypeID(c1.Target), t2) {
		c2 = Conversion{}
	}

	ra, rb := a, b
	if c1.Valid() {
		if ra = c1.Fn(a); ra == nil {
			return nil, nil, true, true
		}
	}
	if c2.Valid() {
		if rb = c2.Fn(b); rb == nil {
			return nil, nil, true, true
		}
	}
	return ra, rb, true, false
}

// finish turns an implementation's result into a dispatch result. A
// result that is one of the operands gets its own counted reference.
func (d *Dispatcher) finish(op string, v Value, err error, operands ...Value) (Value, error) {
	if err != nil {
		return Undefined, operatorFailure(op, err)
	}
	if !v.IsDefined() {
		return Undefined, operatorFailure(op, fmt.Errorf("operator %s: %w", op, ErrUndefined))
	}
	for _, o := range operands {
		if v.s == o.s {
			v = v.Copy()
			break
		}
	}
	v.MaybeMutate()
	return v, nil
}

// BinaryOp evaluates a op b.
func (d *Dispatcher) BinaryOp(ctx context.Context, op BinaryOp, a, b Value) (Value, error) {
	name := op.String()
	if !a.IsDefined() || !b.IsDefined() {
		return Undefined, errUndefinedOperand(name)
	}

	if a.IsClassObject() || b.IsClassObject() {
		f := d.LookupBinaryClassOp(op)
		if f == nil {
			d.count(KindBinary, int(op), a, b, OutcomeMiss)
			return Undefined, errBinaryOp(name, a.TypeName(), b.TypeName())
		}
		d.count(KindBinary, int(op), a, b, OutcomeClass)
		v, err := f(ctx, a, b)
		return d.finish(name, v, err, a, b)
	}

	t1, t2 := d.TypeOf(a), d.TypeOf(b)
	if f := d.LookupBinaryOp(op, t1, t2); f != nil {
		d.count(KindBinary, int(op), a, b, OutcomeExact)
		v, err := f(ctx, a.Rep(), b.Rep())
		return d.finish(name, v, err, a, b)
	}

	has := func(t1, t2 TypeID) bool { return d.LookupBinaryOp(op, t1, t2) != nil }
	ra, rb, converted, failed := d.convertOperands(a.Rep(), b.Rep(), has)
	if failed {
		d.count(KindBinary, int(op), a, b, OutcomeConversionFailed)
		return Undefined, errBinaryOpConv(name)
	}
	if converted {
		if f := d.LookupBinaryOp(op, d.TypeID(ra.TypeName()), d.TypeID(rb.TypeName())); f != nil {
			d.count(KindBinary, int(op), a, b, OutcomeConverted)
			v, err := f(ctx, ra, rb)
			return d.finish(name, v, err, a, b)
		}
	}

	d.count(KindBinary, int(op), a, b, OutcomeMiss)
	return Undefined, errBinaryOp(name, a.TypeName(), b.TypeName())
}

// CompoundBinaryOp evaluates a compound operator, falling back to its
// decomposition when no entry is registered for the operand types.
func (d *Dispatcher) CompoundBinaryOp(ctx context.Context, op CompoundBinaryOp, a, b Value) (Value, error) {
	name := d.CompoundOpName(op)
	if !a.IsDefined() || !b.IsDefined() {
		return Undefined, errUndefinedOperand(name)
	}

	if a.IsClassObject() || b.IsClassObject() {
		if f := d.LookupCompoundBinaryClassOp(op); f != nil {
			d.count(KindCompound, int(op), a, b, OutcomeClass)
			v, err := f(ctx, a, b)
			return d.finish(name, v, err, a, b)
		}
		return d.decompose(ctx, op, name, a, b)
	}

	t1, t2 := d.TypeOf(a), d.TypeOf(b)
	if f := d.LookupCompoundBinaryOp(op, t1, t2); f != nil {
		d.count(KindCompound, int(op), a, b, OutcomeExact)
		v, err := f(ctx, a.Rep(), b.Rep())
		return d.finish(name, v, err, a, b)
	}
	return d.decompose(ctx, op, name, a, b)
}

func (d *Dispatcher) decompose(ctx context.Context, op CompoundBinaryOp, name string, a, b Value) (Value, error) {
	d.mu.RLock()
	var fn DecomposeFunc
	if op >= 0 && int(op) < len(d.compoundOps) {
		fn = d.compoundOps[op].decompose
	}
	d.mu.RUnlock()

	if fn == nil {
		d.count(KindCompound, int(op), a, b, OutcomeMiss)
		return Undefined, errBinaryOp(name, a.TypeName(), b.TypeName())
	}
	d.count(KindCompound, int(op), a, b, OutcomeDecomposed)
	v, err := fn(ctx, d, a, b)
	return d.finish(name, v, err, a, b)
}

// CatOp concatenates b onto a, placing b at offset raIdx in the result.
func (d *Dispatcher) CatOp(ctx context.Context, a, b Value, raIdx []int) (Value, error) {
	if !a.IsDefined() || !b.IsDefined() {
		return Undefined, errUndefinedOperand("cat")
	}

	t1, t2 := d.TypeOf(a), d.TypeOf(b)
	if f := d.LookupCatOp(t1, t2); f != nil {
		d.count(KindCat, 0, a, b, OutcomeExact)
		v, err := f(ctx, a.Rep(), b.Rep(), raIdx)
		return d.finish("cat", v, err, a, b)
	}

	has := func(t1, t2 TypeID) bool { return d.LookupCatOp(t1, t2) != nil }
	ra, rb, converted, failed := d.convertOperands(a.Rep(), b.Rep(), has)
	if failed {
		d.count(KindCat, 0, a, b, OutcomeConversionFailed)
		return Undefined, errCatOpConv()
	}
	if converted {
		if f := d.LookupCatOp(d.TypeID(ra.TypeName()), d.TypeID(rb.TypeName())); f != nil {
			d.count(KindCat, 0, a, b, OutcomeConverted)
			v, err := f(ctx, ra, rb, raIdx)
			return d.finish("cat", v, err, a, b)
		}
	}

	d.count(KindCat, 0, a, b, OutcomeMiss)
	return Undefined, errCatOp(a.TypeName(), b.TypeName())
}

// HorzCat returns the offset that places b to the right of a.
func HorzCat(a Value) []int {
	return []int{0, a.Dims().Cols()}
}

// VertCat returns the offset that places b below a.
func VertCat(a Value) []int {
	return []int{a.Dims().Rows(), 0}
}

// UnaryOp evaluates op v.
func (d *Dispatcher) UnaryOp(ctx context.Context, op UnaryOp, v Value) (Value, error) {
	name := op.String()
	if !v.IsDefined() {
		return Undefined, errUndefinedOperand(name)
	}

	if v.IsClassObject() {
		f := d.LookupUnaryClassOp(op)
		if f == nil {
			d.count(KindUnary, int(op), v, Undefined, OutcomeMiss)
			return Undefined, errUnaryOp(name, v.TypeName())
		}
		d.count(KindUnary, int(op), v, Undefined, OutcomeClass)
		res, err := f(ctx, v)
		return d.finish(name, res, err, v)
	}

	t := d.TypeOf(v)
	if f := d.LookupUnaryOp(op, t); f != nil {
		d.count(KindUnary, int(op), v, Undefined, OutcomeExact)
		res, err := f(ctx, v.Rep())
		return d.finish(name, res, err, v)
	}

	cf := numericConversionOf(v.Rep())
	if !cf.Valid() {
		d.count(KindUnary, int(op), v, Undefined, OutcomeMiss)
		return Undefined, errUnaryOp(name, v.TypeName())
	}
	tmp := cf.Fn(v.Rep())
	if tmp == nil {
		d.count(KindUnary, int(op), v, Undefined, OutcomeConversionFailed)
		return Undefined, errUnaryOpConv(name)
	}
	if f := d.LookupUnaryOp(op, d.TypeID(tmp.TypeName())); f != nil {
		d.count(KindUnary, int(op), v, Undefined, OutcomeConverted)
		res, err := f(ctx, tmp)
		return d.finish(name, res, err, v)
	}

	d.count(KindUnary, int(op), v, Undefined, OutcomeMiss)
	return Undefined, errUnaryOp(name, v.TypeName())
}

// ---------------------------------------------------------------------------
// Predefined compound operators
// ---------------------------------------------------------------------------

func unaryLeft(u UnaryOp, op BinaryOp) DecomposeFunc {
	return func(ctx context.Context, d *Dispatcher, a, b Value) (Value, error) {
		ta, err := d.UnaryOp(ctx, u, a)
		if err != nil {
			return Undefined, err
		}
		defer ta.Release()
		return d.BinaryOp(ctx, op, ta, b)
	}
}

func unaryRight(u UnaryOp, op BinaryOp) DecomposeFunc {
	return func(ctx context.Context, d *Dispatcher, a, b Value) (Value, error) {
		tb, err := d.UnaryOp(ctx, u, b)
		if err != nil {
			return Undefined, err
		}
		defer tb.Release()
		return d.BinaryOp(ctx, op, a, tb)
	}
}

// builtinCompoundOps lists the predefined compound operators in the order
// of their CompoundBinaryOp constants.
func builtinCompoundOps() []compoundOp {
	return []compoundOp{
		OpTransMul:  {"transtimes", unaryLeft(OpTranspose, OpMul)},
		OpMulTrans:  {"timestrans", unaryRight(OpTranspose, OpMul)},
		OpHermMul:   {"hermtimes", unaryLeft(OpHermitian, OpMul)},
		OpMulHerm:   {"timesherm", unaryRight(OpHermitian, OpMul)},
		OpTransLDiv: {"transldiv", unaryLeft(OpTranspose, OpLDiv)},
		OpHermLDiv:  {"hermldiv", unaryLeft(OpHermitian, OpLDiv)},
		OpElNotAnd:  {"notand", unaryLeft(OpNot, OpElAnd)},
		OpElNotOr:   {"notor", unaryLeft(OpNot, OpElOr)},
		OpElAndNot:  {"andnot", unaryRight(OpNot, OpElAnd)},
		OpElOrNot:   {"ornot", unaryRight(OpNot, OpElOr)},
	}
}
