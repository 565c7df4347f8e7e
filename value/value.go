package value

import (
	"fmt"
	"sync/atomic"
)

// shared is the reference-counted cell a group of Values points at.
type shared struct {
	rep  Rep
	refs atomic.Int32
}

func newShared(r Rep) *shared {
	s := &shared{rep: r}
	s.refs.Store(1)
	return s
}

// Value is the type-erased handle the evaluator passes around.
//
// A Value owns one reference to a shared representation. Copy adds a
// reference without copying the representation; MakeUnique clones it when
// more than one handle refers to it. Nothing mutates a representation
// while it is shared.
//
// Plain Go assignment of a Value duplicates the handle without counting
// it. Use Copy whenever a second live handle is intended.
//
// The zero Value is undefined.
type Value struct {
	s *shared
}

// Undefined is the undefined value.
var Undefined = Value{}

// NewValue wraps r and applies narrowing. A nil r yields Undefined.
func NewValue(r Rep) Value {
	if r == nil {
		return Value{}
	}
	v := Value{s: newShared(r)}
	v.MaybeMutate()
	return v
}

// NewValueExact wraps r without narrowing.
func NewValueExact(r Rep) Value {
	if r == nil {
		return Value{}
	}
	return Value{s: newShared(r)}
}

// IsDefined reports whether v holds a representation.
func (v Value) IsDefined() bool {
	return v.s != nil && v.s.rep != nil
}

// Rep returns the held representation, or nil when undefined.
// Callers must not mutate it unless RefCount is 1.
func (v Value) Rep() Rep {
	if v.s == nil {
		return nil
	}
	return v.s.rep
}

// RefCount returns the number of handles sharing the representation.
func (v Value) RefCount() int {
	if v.s == nil {
		return 0
	}
	return int(v.s.refs.Load())
}

// TypeName returns the representation's type name.
func (v Value) TypeName() string {
	if !v.IsDefined() {
		return "<undefined>"
	}
	return v.s.rep.TypeName()
}

// ClassName returns the representation's class name.
func (v Value) ClassName() string {
	if !v.IsDefined() {
		return ""
	}
	return v.s.rep.ClassName()
}

// Dims returns the dimensions of the held value.
func (v Value) Dims() Dims {
	if !v.IsDefined() {
		return Dims{0, 0}
	}
	return v.s.rep.Dims()
}

// IsClassObject reports whether the representation is a class object.
func (v Value) IsClassObject() bool {
	if !v.IsDefined() {
		return false
	}
	co, ok := v.s.rep.(ClassObject)
	return ok && co.IsClassObject()
}

// Copy returns a new handle sharing v's representation.
func (v Value) Copy() Value {
	if v.s == nil {
		return Value{}
	}
	v.s.refs.Add(1)
	return Value{s: v.s}
}

// Release drops v's reference and leaves v undefined. The representation
// is dropped once the last reference goes away, releasing the elements of
// a Container.
func (v *Value) Release() {
	if v.s == nil {
		return
	}
	if v.s.refs.Add(-1) == 0 {
		if c, ok := v.s.rep.(Container); ok {
			c.ReleaseElements()
		}
		v.s.rep = nil
	}
	v.s = nil
}

// Set rebinds v to share rhs's representation, releasing the old one.
func (v *Value) Set(rhs Value) {
	if v.s == rhs.s {
		return
	}
	n := rhs.Copy()
	v.Release()
	*v = n
}

// MakeUnique clones the representation if it is shared, so that the
// caller may mutate it. It is a no-op for an unshared value.
func (v *Value) MakeUnique() {
	if v.s == nil || v.s.refs.Load() <= 1 {
		return
	}
	clone := v.s.rep.Clone()
	v.s.refs.Add(-1)
	v.s = newShared(clone)
}

// MaybeMutate replaces the representation with its narrowed form, if any.
// Other handles sharing the old representation keep it.
func (v *Value) MaybeMutate() {
	if !v.IsDefined() {
		return
	}
	n, ok := v.s.rep.(Narrower)
	if !ok {
		return
	}
	tmp := n.TryNarrowingConversion()
	if tmp == nil || tmp == v.s.rep {
		return
	}
	v.replaceRep(tmp)
}

// replaceRep swaps in r for this handle only.
func (v *Value) replaceRep(r Rep) {
	if v.s.refs.Load() == 1 {
		v.s.rep = r
		return
	}
	v.s.refs.Add(-1)
	v.s = newShared(r)
}

func (v Value) String() string {
	if !v.IsDefined() {
		return "<undefined>"
	}
	if s, ok := v.s.rep.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("<%s %s>", v.s.rep.TypeName(), v.s.rep.Dims())
}

// TryNarrowing applies one narrowing step to r, returning nil when r does
// not narrow.
func TryNarrowing(r Rep) Rep {
	if n, ok := r.(Narrower); ok {
		return n.TryNarrowingConversion()
	}
	return nil
}
