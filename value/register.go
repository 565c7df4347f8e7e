package value

import "fmt"

// ---------------------------------------------------------------------------
// Operation table registration and lookup
//
// Every Register* call stores its function at one slot. Registering into an
// occupied slot overwrites it (last writer wins), logs a warning and
// returns true. Lookups return nil on a miss.
// ---------------------------------------------------------------------------

// checkTypesLocked panics unless every id is a registered type.
func (d *Dispatcher) checkTypesLocked(ids ...TypeID) {
	for _, id := range ids {
		if id < 0 || int(id) >= len(d.types) {
			panic(fmt.Sprintf("opdispatch: operation registered for unregistered type id %d", id))
		}
	}
}

// RegisterUnaryOp installs fn for op applied to type t.
func (d *Dispatcher) RegisterUnaryOp(op UnaryOp, t TypeID, fn UnaryFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkTypesLocked(t)
	slot := &d.t.unary[op][t]
	replaced := *slot != nil
	if replaced {
		d.duplicate("overriding unary op '%s' for types '%s'", op, d.nameLocked(t))
	}
	*slot = fn
	return replaced
}

// LookupUnaryOp returns the function for op on type t.
func (d *Dispatcher) LookupUnaryOp(op UnaryOp, t TypeID) UnaryFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.t.in(t) {
		return nil
	}
	return d.t.unary[op][t]
}

// RegisterNonConstUnaryOp installs an in-place fn for op on type t.
func (d *Dispatcher) RegisterNonConstUnaryOp(op UnaryOp, t TypeID, fn NonConstUnaryFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkTypesLocked(t)
	slot := &d.t.nonConst[op][t]
	replaced := *slot != nil
	if replaced {
		d.duplicate("overriding non-const unary op '%s' for types '%s'", op, d.nameLocked(t))
	}
	*slot = fn
	return replaced
}

// LookupNonConstUnaryOp returns the in-place function for op on type t.
func (d *Dispatcher) LookupNonConstUnaryOp(op UnaryOp, t TypeID) NonConstUnaryFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.t.in(t) {
		return nil
	}
	return d.t.nonConst[op][t]
}

// RegisterBinaryOp installs fn for op applied to (t1, t2).
func (d *Dispatcher) RegisterBinaryOp(op BinaryOp, t1, t2 TypeID, fn BinaryFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkTypesLocked(t1, t2)
	slot := &d.t.binary[op][d.t.at(t1, t2)]
	replaced := *slot != nil
	if replaced {
		d.duplicate("overriding binary op '%s' for types '%s' and '%s'", op, d.nameLocked(t1), d.nameLocked(t2))
	}
	*slot = fn
	return replaced
}

// LookupBinaryOp returns the function for op on (t1, t2).
func (d *Dispatcher) LookupBinaryOp(op BinaryOp, t1, t2 TypeID) BinaryFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.t.in(t1) || !d.t.in(t2) {
		return nil
	}
	return d.t.binary[op][d.t.at(t1, t2)]
}

// RegisterCompoundBinaryOp installs fn for a compound op on (t1, t2).
func (d *Dispatcher) RegisterCompoundBinaryOp(op CompoundBinaryOp, t1, t2 TypeID, fn BinaryFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if op < 0 || int(op) >= len(d.t.compound) {
		panic("opdispatch: undefined compound operator")
	}
	d.checkTypesLocked(t1, t2)
	slot := &d.t.compound[op][d.t.at(t1, t2)]
	replaced := *slot != nil
	if replaced {
		d.duplicate("overriding compound binary op '%s' for types '%s' and '%s'",
			d.compoundOps[op].name, d.nameLocked(t1), d.nameLocked(t2))
	}
	*slot = fn
	return replaced
}

// LookupCompoundBinaryOp returns the function for a compound op on (t1, t2).
func (d *Dispatcher) LookupCompoundBinaryOp(op CompoundBinaryOp, t1, t2 TypeID) BinaryFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if op < 0 || int(op) >= len(d.t.compound) || !d.t.in(t1) || !d.t.in(t2) {
		return nil
	}
	return d.t.compound[op][d.t.at(t1, t2)]
}

// RegisterCatOp installs the concatenation function for (t1, t2).
func (d *Dispatcher) RegisterCatOp(t1, t2 TypeID, fn CatFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkTypesLocked(t1, t2)
	slot := &d.t.cat[d.t.at(t1, t2)]
	replaced := *slot != nil
	if replaced {
		d.duplicate("overriding concatenation operator for types '%s' and '%s'", d.nameLocked(t1), d.nameLocked(t2))
	}
	*slot = fn
	return replaced
}

// LookupCatOp returns the concatenation function for (t1, t2).
func (d *Dispatcher) LookupCatOp(t1, t2 TypeID) CatFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.t.in(t1) || !d.t.in(t2) {
		return nil
	}
	return d.t.cat[d.t.at(t1, t2)]
}

// RegisterAssignOp installs an indexed assignment for (lhs, rhs).
func (d *Dispatcher) RegisterAssignOp(op AssignOp, tl, tr TypeID, fn AssignFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkTypesLocked(tl, tr)
	slot := &d.t.assign[op][d.t.at(tl, tr)]
	replaced := *slot != nil
	if replaced {
		d.duplicate("overriding assignment operator '%s' for types '%s' and '%s'", op, d.nameLocked(tl), d.nameLocked(tr))
	}
	*slot = fn
	return replaced
}

// LookupAssignOp returns the assignment function for (lhs, rhs).
func (d *Dispatcher) LookupAssignOp(op AssignOp, tl, tr TypeID) AssignFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.t.in(tl) || !d.t.in(tr) {
		return nil
	}
	return d.t.assign[op][d.t.at(tl, tr)]
}

// RegisterAssignAnyOp installs an assignment accepting any right-hand type.
func (d *Dispatcher) RegisterAssignAnyOp(op AssignOp, tl TypeID, fn AssignAnyFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkTypesLocked(tl)
	slot := &d.t.assignAny[op][tl]
	replaced := *slot != nil
	if replaced {
		d.duplicate("overriding assignment operator '%s' for types '%s'", op, d.nameLocked(tl))
	}
	*slot = fn
	return replaced
}

// LookupAssignAnyOp returns the any-rhs assignment function for lhs.
func (d *Dispatcher) LookupAssignAnyOp(op AssignOp, tl TypeID) AssignAnyFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.t.in(tl) {
		return nil
	}
	return d.t.assignAny[op][tl]
}

// RegisterPrefAssignConv records the type the storage of an lhs should
// widen to before an element of type tr is assigned into it.
func (d *Dispatcher) RegisterPrefAssignConv(tl, tr, tresult TypeID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkTypesLocked(tl, tr, tresult)
	slot := &d.t.prefAssign[d.t.at(tl, tr)]
	replaced := *slot != NoType
	if replaced {
		d.duplicate("overriding assignment conversion for types '%s' and '%s'", d.nameLocked(tl), d.nameLocked(tr))
	}
	*slot = tresult
	return replaced
}

// LookupPrefAssignConv returns the preferred storage type, or NoType.
func (d *Dispatcher) LookupPrefAssignConv(tl, tr TypeID) TypeID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.t.in(tl) || !d.t.in(tr) {
		return NoType
	}
	return d.t.prefAssign[d.t.at(tl, tr)]
}

// RegisterTypeConvOp installs a conversion from t to tresult used to make
// a value usable where tresult is required.
func (d *Dispatcher) RegisterTypeConvOp(t, tresult TypeID, fn ConvFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkTypesLocked(t, tresult)
	slot := &d.t.typeConv[d.t.at(t, tresult)]
	replaced := *slot != nil
	if replaced {
		d.duplicate("overriding type conversion op for '%s' to '%s'", d.nameLocked(t), d.nameLocked(tresult))
	}
	*slot = fn
	return replaced
}

// LookupTypeConvOp returns the conversion from t to tresult.
func (d *Dispatcher) LookupTypeConvOp(t, tresult TypeID) ConvFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.t.in(t) || !d.t.in(tresult) {
		return nil
	}
	return d.t.typeConv[d.t.at(t, tresult)]
}

// RegisterWideningOp installs a widening from t to tresult, used to widen
// assignment storage.
func (d *Dispatcher) RegisterWideningOp(t, tresult TypeID, fn ConvFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkTypesLocked(t, tresult)
	slot := &d.t.widening[d.t.at(t, tresult)]
	replaced := *slot != nil
	if replaced {
		d.duplicate("overriding widening op for '%s' to '%s'", d.nameLocked(t), d.nameLocked(tresult))
	}
	*slot = fn
	return replaced
}

// LookupWideningOp returns the widening from t to tresult.
func (d *Dispatcher) LookupWideningOp(t, tresult TypeID) ConvFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.t.in(t) || !d.t.in(tresult) {
		return nil
	}
	return d.t.widening[d.t.at(t, tresult)]
}
