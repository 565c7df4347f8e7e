package value

import "context"

// ---------------------------------------------------------------------------
// Class dispatch overrides
//
// One function per operator, consulted before the type tables whenever an
// operand is a class object. The function sees whole Values and does its
// own type resolution.
// ---------------------------------------------------------------------------

// UnaryClassFunc implements a unary operator for class objects.
type UnaryClassFunc func(ctx context.Context, a Value) (Value, error)

// BinaryClassFunc implements a binary operator for class objects.
type BinaryClassFunc func(ctx context.Context, a, b Value) (Value, error)

// RegisterUnaryClassOp installs the class override for op.
func (d *Dispatcher) RegisterUnaryClassOp(op UnaryOp, fn UnaryClassFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	replaced := d.classUnary[op] != nil
	if replaced {
		d.duplicate("overriding unary class op '%s'", op)
	}
	d.classUnary[op] = fn
	return replaced
}

// LookupUnaryClassOp returns the class override for op, or nil.
func (d *Dispatcher) LookupUnaryClassOp(op UnaryOp) UnaryClassFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.classUnary[op]
}

// RegisterBinaryClassOp installs the class override for op.
func (d *Dispatcher) RegisterBinaryClassOp(op BinaryOp, fn BinaryClassFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	replaced := d.classBinary[op] != nil
	if replaced {
		d.duplicate("overriding binary class op '%s'", op)
	}
	d.classBinary[op] = fn
	return replaced
}

// LookupBinaryClassOp returns the class override for op, or nil.
func (d *Dispatcher) LookupBinaryClassOp(op BinaryOp) BinaryClassFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.classBinary[op]
}

// RegisterCompoundBinaryClassOp installs the class override for a
// compound operator.
func (d *Dispatcher) RegisterCompoundBinaryClassOp(op CompoundBinaryOp, fn BinaryClassFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if op < 0 || int(op) >= len(d.classCompound) {
		panic("opdispatch: undefined compound operator")
	}
	replaced := d.classCompound[op] != nil
	if replaced {
		d.duplicate("overriding compound binary class op '%s'", d.compoundOps[op].name)
	}
	d.classCompound[op] = fn
	return replaced
}

// LookupCompoundBinaryClassOp returns the class override for a compound
// operator, or nil.
func (d *Dispatcher) LookupCompoundBinaryClassOp(op CompoundBinaryOp) BinaryClassFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if op < 0 || int(op) >= len(d.classCompound) {
		return nil
	}
	return d.classCompound[op]
}
