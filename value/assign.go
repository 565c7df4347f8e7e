package value

import "context"

// ---------------------------------------------------------------------------
// Mutating entry points
//
// These operate on a *Value that the caller owns as a variable slot. A
// representation is only mutated in place when the handle is its sole
// owner; otherwise it is cloned first or the operation falls back to
// building a new value and rebinding the slot.
// ---------------------------------------------------------------------------

// take replaces v's representation with n's, transferring n's reference.
func (v *Value) take(n Value) {
	if v.s == n.s {
		n.Release()
		return
	}
	v.Release()
	*v = n
}

// NonConstUnaryOp applies op to v in place.
//
// For ++ and -- the value must be defined. The registered in-place
// implementation runs on a unique copy of the representation; on a miss
// one numeric conversion is tried. Other operators mutate in place only
// when v is unshared and an in-place implementation exists, and otherwise
// rebind v to UnaryOp(op, v).
func (v *Value) NonConstUnaryOp(ctx context.Context, d *Dispatcher, op UnaryOp) error {
	name := op.String()

	if op != OpIncr && op != OpDecr {
		if v.IsDefined() && v.RefCount() == 1 {
			if f := d.LookupNonConstUnaryOp(op, d.TypeOf(*v)); f != nil {
				d.count(KindNonConstUnary, int(op), *v, Undefined, OutcomeExact)
				if err := f(ctx, v.Rep()); err != nil {
					return operatorFailure(name, err)
				}
				v.MaybeMutate()
				return nil
			}
		}
		res, err := d.UnaryOp(ctx, op, *v)
		if err != nil {
			return err
		}
		v.take(res)
		return nil
	}

	if !v.IsDefined() {
		return errUndefinedIncr(name)
	}

	if f := d.LookupNonConstUnaryOp(op, d.TypeOf(*v)); f != nil {
		d.count(KindNonConstUnary, int(op), *v, Undefined, OutcomeExact)
		v.MakeUnique()
		if err := f(ctx, v.Rep()); err != nil {
			return operatorFailure(name, err)
		}
		v.MaybeMutate()
		return nil
	}

	cf := numericConversionOf(v.Rep())
	if !cf.Valid() {
		d.count(KindNonConstUnary, int(op), *v, Undefined, OutcomeMiss)
		return errUnaryOp(name, v.TypeName())
	}
	tmp := cf.Fn(v.Rep())
	if tmp == nil {
		d.count(KindNonConstUnary, int(op), *v, Undefined, OutcomeConversionFailed)
		return errUnaryOpConv(name)
	}
	f := d.LookupNonConstUnaryOp(op, d.TypeID(tmp.TypeName()))
	if f == nil {
		d.count(KindNonConstUnary, int(op), *v, Undefined, OutcomeMiss)
		return errUnaryOp(name, v.TypeName())
	}
	d.count(KindNonConstUnary, int(op), *v, Undefined, OutcomeConverted)
	if err := f(ctx, tmp); err != nil {
		return operatorFailure(name, err)
	}
	v.replaceRep(tmp)
	v.MaybeMutate()
	return nil
}

// AssignOp performs the non-indexed assignment v op= rhs. Plain = rebinds
// v to share rhs. A compound operator updates v in place when v is
// unshared and an assignment op is registered for the operand types, and
// otherwise rebinds v to BinaryOp(op, v, rhs).
func (v *Value) AssignOp(ctx context.Context, d *Dispatcher, op AssignOp, rhs Value) error {
	if op == OpAsnEq {
		if !rhs.IsDefined() {
			return errUndefinedOperand(op.String())
		}
		v.Set(rhs)
		return nil
	}
	if !v.IsDefined() {
		return errUndefinedComputed(op.String(), false)
	}
	if !rhs.IsDefined() {
		return errUndefinedOperand(op.String())
	}

	if v.RefCount() == 1 {
		if f := d.LookupAssignOp(op, d.TypeOf(*v), d.TypeOf(rhs)); f != nil {
			d.count(KindAssign, int(op), *v, rhs, OutcomeExact)
			if err := f(ctx, v.Rep(), Index{}, rhs.Rep()); err != nil {
				return operatorFailure(op.String(), err)
			}
			v.MaybeMutate()
			return nil
		}
	}

	bop, _ := op.BinaryOp()
	res, err := d.BinaryOp(ctx, bop, *v, rhs)
	if err != nil {
		return err
	}
	v.take(res)
	return nil
}

// Assign performs v(chain) op= rhs, where chain is a subscript chain such
// as s.field(2){1}. An empty chain is a plain AssignOp.
//
// For a compound operator the current element is read, combined with rhs
// through the corresponding binary operator, and stored back with =. When
// resolution fails v keeps its old value.
func (v *Value) Assign(ctx context.Context, d *Dispatcher, op AssignOp, chain []Index, rhs Value) error {
	chain = trimWhole(chain)
	if len(chain) == 0 {
		return v.AssignOp(ctx, d, op, rhs)
	}
	if !rhs.IsDefined() {
		return errUndefinedOperand(op.String())
	}

	t := rhs.Copy()
	defer t.Release()
	if op != OpAsnEq {
		if !v.IsDefined() {
			return errUndefinedComputed(op.String(), true)
		}
		cur, err := d.Subsref(ctx, *v, chain)
		if err != nil {
			return err
		}
		bop, _ := op.BinaryOp()
		res, err := d.BinaryOp(ctx, bop, cur, rhs)
		cur.Release()
		if err != nil {
			return err
		}
		t.take(res)
	}

	defined := v.IsDefined()
	work := *v
	*v = Undefined
	if err := d.assignInto(ctx, &work, chain, t); err != nil {
		if defined {
			*v = work
		} else {
			work.Release()
		}
		return err
	}
	*v = work
	return nil
}

func trimWhole(chain []Index) []Index {
	out := chain[:0:0]
	for _, idx := range chain {
		if !idx.IsWhole() {
			out = append(out, idx)
		}
	}
	return out
}

// assignInto stores rhs at chain inside lhs, recursing one level at a time.
func (d *Dispatcher) assignInto(ctx context.Context, lhs *Value, chain []Index, rhs Value) error {
	if err := Poll(ctx); err != nil {
		return err
	}
	if !lhs.IsDefined() {
		empty, err := d.emptyFor(chain[0], rhs)
		if err != nil {
			return err
		}
		lhs.take(empty)
	}
	if len(chain) == 1 {
		a := indexedAssign{d: d, idx: chain[0], lname: lhs.TypeName(), rname: rhs.TypeName()}
		return a.store(ctx, lhs, rhs, 0)
	}

	sub, err := d.subsref(ctx, *lhs, chain[:1], true)
	if err != nil {
		return err
	}
	defer sub.Release()
	if err := d.assignInto(ctx, &sub, chain[1:], rhs); err != nil {
		return err
	}
	a := indexedAssign{d: d, idx: chain[0], lname: lhs.TypeName(), rname: sub.TypeName()}
	return a.store(ctx, lhs, sub, 0)
}

// emptyFor returns the value an undefined variable starts from when first
// assigned through idx.
func (d *Dispatcher) emptyFor(idx Index, rhs Value) (Value, error) {
	if idx.Kind == IndexParen {
		if ec, ok := rhs.Rep().(EmptyCloner); ok {
			return NewValueExact(ec.EmptyClone()), nil
		}
	}
	d.mu.RLock()
	t, ok := d.emptyConv[idx.Kind]
	var proto Rep
	if ok {
		proto = d.types[t].Prototype.Rep()
	}
	d.mu.RUnlock()
	if proto != nil {
		if ec, ok := proto.(EmptyCloner); ok {
			return NewValueExact(ec.EmptyClone()), nil
		}
		return NewValueExact(proto.Clone()), nil
	}
	return Undefined, errEmptyConv(rhs.TypeName(), idx.Kind)
}

// RegisterEmptyConv sets the type an undefined variable starts from when
// it is first assigned through an index of the given kind. For paren
// indices the right-hand side's own empty form takes precedence.
func (d *Dispatcher) RegisterEmptyConv(kind IndexKind, t TypeID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t < 0 || int(t) >= len(d.types) {
		panic("opdispatch: empty conversion to unregistered type")
	}
	old, replaced := d.emptyConv[kind]
	if replaced && old != t {
		d.duplicate("overriding empty conversion for index '%c'", kind)
	}
	d.emptyConv[kind] = t
	return replaced
}

// indexedAssign resolves one level of lhs(idx) = rhs.
type indexedAssign struct {
	d   *Dispatcher
	idx Index
	// operand types before any conversion, for diagnostics
	lname, rname string
}

// Conversion stages. Each store call may move only to a later stage, so
// every operand is converted at most once.
const (
	stageFull      = iota // every resolution step
	stageConverted        // after a numeric conversion: exact, any, widening
	stageFinal            // exact and any only
)

// store tries, in order: the exact assign op, the assign-any op, a
// type-conv of rhs to the lhs type, widening the lhs to its preferred
// storage type, and a biased numeric conversion of one or both operands.
func (a *indexedAssign) store(ctx context.Context, lhs *Value, rhs Value, stage int) error {
	d := a.d
	eq := OpAsnEq.String()
	tl, tr := d.TypeOf(*lhs), d.TypeOf(rhs)

	if f := d.LookupAssignOp(OpAsnEq, tl, tr); f != nil {
		d.count(KindAssign, int(OpAsnEq), *lhs, rhs, a.outcome(stage))
		lhs.MakeUnique()
		if err := f(ctx, lhs.Rep(), a.idx, rhs.Rep()); err != nil {
			return operatorFailure(eq, err)
		}
		lhs.MaybeMutate()
		return nil
	}
	if f := d.LookupAssignAnyOp(OpAsnEq, tl); f != nil {
		d.count(KindAssign, int(OpAsnEq), *lhs, rhs, a.outcome(stage))
		lhs.MakeUnique()
		if err := f(ctx, lhs.Rep(), a.idx, rhs); err != nil {
			return operatorFailure(eq, err)
		}
		lhs.MaybeMutate()
		return nil
	}
	if stage == stageFinal {
		d.count(KindAssign, int(OpAsnEq), *lhs, rhs, OutcomeMiss)
		return errNoAssignConversion(eq, a.lname, a.rname)
	}

	if stage == stageFull {
		if cf := d.LookupTypeConvOp(tr, tl); cf != nil {
			r := cf(rhs.Rep())
			if r == nil {
				d.count(KindAssign, int(OpAsnEq), *lhs, rhs, OutcomeConversionFailed)
				return errAssignConversionFailed(eq, a.lname, a.rname)
			}
			conv := NewValueExact(r)
			defer conv.Release()
			return a.store(ctx, lhs, conv, stageFinal)
		}
	}

	if tres := d.LookupPrefAssignConv(tl, tr); tres != NoType {
		cf := d.LookupWideningOp(tl, tres)
		if cf == nil {
			d.count(KindAssign, int(OpAsnEq), *lhs, rhs, OutcomeMiss)
			return errIndexedAssignment(eq, a.lname, a.rname)
		}
		w := cf(lhs.Rep())
		if w == nil {
			d.count(KindAssign, int(OpAsnEq), *lhs, rhs, OutcomeConversionFailed)
			return errAssignConversionFailed(eq, a.lname, a.rname)
		}
		wide := NewValueExact(w)
		if err := a.store(ctx, &wide, rhs, stageFinal); err != nil {
			wide.Release()
			return err
		}
		lhs.take(wide)
		return nil
	}

	if stage != stageFull {
		d.count(KindAssign, int(OpAsnEq), *lhs, rhs, OutcomeMiss)
		return errNoAssignConversion(eq, a.lname, a.rname)
	}
	return a.convert(ctx, lhs, rhs, tl, tr)
}

// convert applies one numeric conversion to rhs, to lhs, or to both, and
// retries. When converting one side alone reaches a storable pairing the
// other is left alone.
func (a *indexedAssign) convert(ctx context.Context, lhs *Value, rhs Value, tl, tr TypeID) error {
	d := a.d
	eq := OpAsnEq.String()
	storable := func(l, r TypeID) bool {
		return d.LookupAssignOp(OpAsnEq, l, r) != nil || d.LookupPrefAssignConv(l, r) != NoType
	}

	cr, cl := numericConversionOf(rhs.Rep()), numericConversionOf(lhs.Rep())
	if cr.Valid() && storable(tl, d.TypeID(cr.Target)) {
		cl = Conversion{}
	} else if cl.Valid() && storable(d.TypeID(cl.Target), tr) {
		cr = Conversion{}
	}
	if !cr.Valid() && !cl.Valid() {
		d.count(KindAssign, int(OpAsnEq), *lhs, rhs, OutcomeMiss)
		return errNoAssignConversion(eq, a.lname, a.rname)
	}

	newRHS := rhs.Copy()
	defer newRHS.Release()
	if cr.Valid() {
		r := cr.Fn(rhs.Rep())
		if r == nil {
			d.count(KindAssign, int(OpAsnEq), *lhs, rhs, OutcomeConversionFailed)
			return errAssignConversionFailed(eq, a.lname, a.rname)
		}
		newRHS.take(NewValueExact(r))
	}
	if !cl.Valid() {
		return a.store(ctx, lhs, newRHS, stageConverted)
	}

	l := cl.Fn(lhs.Rep())
	if l == nil {
		d.count(KindAssign, int(OpAsnEq), *lhs, rhs, OutcomeConversionFailed)
		return errAssignConversionFailed(eq, a.lname, a.rname)
	}
	newLHS := NewValueExact(l)
	if err := a.store(ctx, &newLHS, newRHS, stageConverted); err != nil {
		newLHS.Release()
		return err
	}
	lhs.take(newLHS)
	return nil
}

func (a *indexedAssign) outcome(stage int) Outcome {
	if stage == stageFull {
		return OutcomeExact
	}
	return OutcomeConverted
}

// Subsref reads v(chain). Every level must be indexable and the result
// must be defined.
func (d *Dispatcher) Subsref(ctx context.Context, v Value, chain []Index) (Value, error) {
	return d.subsref(ctx, v, trimWhole(chain), false)
}

// subsref walks chain. With allowMissing an undefined final element is
// returned as Undefined rather than an error, so that assignment can
// create it.
func (d *Dispatcher) subsref(ctx context.Context, v Value, chain []Index, allowMissing bool) (Value, error) {
	if !v.IsDefined() {
		return Undefined, errUndefinedOperand("index")
	}
	cur := v.Copy()
	for i, idx := range chain {
		ix, ok := cur.Rep().(Indexer)
		if !ok {
			name := cur.TypeName()
			cur.Release()
			return Undefined, errNotIndexable(name, idx.Kind)
		}
		next, err := ix.Index(ctx, idx)
		cur.Release()
		if err != nil {
			return Undefined, operatorFailure("index", err)
		}
		if !next.IsDefined() {
			if allowMissing && i == len(chain)-1 {
				return Undefined, nil
			}
			return Undefined, errUndefinedOperand("index")
		}
		cur = next
	}
	return cur, nil
}
