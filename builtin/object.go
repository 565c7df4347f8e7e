package builtin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chazu/opdispatch/value"
)

// Object is an instance of a user-defined class. Its operators are
// resolved through the class dispatch override, never the type tables.
type Object struct {
	class string
	props *Struct
}

// NewObject returns an object of class with no properties.
func NewObject(class string) value.Value {
	return value.NewValue(&Object{class: class, props: newStruct()})
}

func (o *Object) TypeName() string    { return "object" }
func (o *Object) ClassName() string   { return o.class }
func (o *Object) Dims() value.Dims    { return value.Dims{1, 1} }
func (o *Object) IsClassObject() bool { return true }
func (o *Object) String() string      { return "<" + o.class + " object>" }

func (o *Object) Clone() value.Rep {
	return &Object{class: o.class, props: o.props.Clone().(*Struct)}
}

// ReleaseElements drops the object's reference to each property.
func (o *Object) ReleaseElements() { o.props.ReleaseElements() }

// Get returns a copy of property name, or Undefined.
func (o *Object) Get(name string) value.Value { return o.props.Get(name) }

// Set stores a copy of v as property name.
func (o *Object) Set(name string, v value.Value) { o.props.Set(name, v) }

func (o *Object) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	if idx.Kind != value.IndexField {
		return value.Undefined, fmt.Errorf("'%s' object cannot be indexed with %c", o.class, idx.Kind)
	}
	return o.props.Get(idx.Field), nil
}

func objectAssign(ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Value) error {
	o := lhs.(*Object)
	if idx.Kind != value.IndexField {
		return fmt.Errorf("'%s' object cannot be indexed with %c", o.class, idx.Kind)
	}
	o.props.Set(idx.Field, rhs)
	return nil
}

// Method implements one overloaded operator of a class.
type Method func(ctx context.Context, args ...value.Value) (value.Value, error)

// Classes maps class names to their operator methods. Method names
// follow the usual overload names: plus, minus, mtimes and so on.
type Classes struct {
	mu      sync.RWMutex
	methods map[string]map[string]Method
}

// NewClasses returns an empty class method registry.
func NewClasses() *Classes {
	return &Classes{methods: make(map[string]map[string]Method)}
}

// Define sets method name of class, replacing any earlier definition.
func (c *Classes) Define(class, name string, fn Method) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.methods[class]
	if m == nil {
		m = make(map[string]Method)
		c.methods[class] = m
	}
	m[name] = fn
}

// Lookup returns method name of class.
func (c *Classes) Lookup(class, name string) (Method, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.methods[class][name]
	return fn, ok
}

// Methods returns the sorted method names defined for class.
func (c *Classes) Methods(class string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.methods[class]))
	for n := range c.methods[class] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var unaryMethods = map[value.UnaryOp]string{
	value.OpNot:       "not",
	value.OpUPlus:     "uplus",
	value.OpUMinus:    "uminus",
	value.OpTranspose: "transpose",
	value.OpHermitian: "ctranspose",
}

var binaryMethods = map[value.BinaryOp]string{
	value.OpAdd:    "plus",
	value.OpSub:    "minus",
	value.OpMul:    "mtimes",
	value.OpDiv:    "mrdivide",
	value.OpPow:    "mpower",
	value.OpLDiv:   "mldivide",
	value.OpLT:     "lt",
	value.OpLE:     "le",
	value.OpEQ:     "eq",
	value.OpGE:     "ge",
	value.OpGT:     "gt",
	value.OpNE:     "ne",
	value.OpElMul:  "times",
	value.OpElDiv:  "rdivide",
	value.OpElPow:  "power",
	value.OpElLDiv: "ldivide",
	value.OpElAnd:  "and",
	value.OpElOr:   "or",
}

// MethodName returns the overload name for a binary operator.
func MethodName(op value.BinaryOp) (string, bool) {
	n, ok := binaryMethods[op]
	return n, ok
}

// dispatchClass picks the class whose method handles an operation: the
// leftmost class object among the operands.
func dispatchClass(args ...value.Value) string {
	for _, a := range args {
		if a.IsClassObject() {
			return a.ClassName()
		}
	}
	return ""
}

// Install registers class overrides on d for every operator with an
// overload name. A class that lacks the method reports the operator as
// not implemented for the operand types.
func (c *Classes) Install(d *value.Dispatcher) {
	for op, name := range unaryMethods {
		d.RegisterUnaryClassOp(op, func(ctx context.Context, a value.Value) (value.Value, error) {
			fn, ok := c.Lookup(dispatchClass(a), name)
			if !ok {
				return value.Undefined, value.NotImplemented(op.String(), a.ClassName())
			}
			return fn(ctx, a)
		})
	}
	for op, name := range binaryMethods {
		d.RegisterBinaryClassOp(op, func(ctx context.Context, a, b value.Value) (value.Value, error) {
			fn, ok := c.Lookup(dispatchClass(a, b), name)
			if !ok {
				return value.Undefined, value.NotImplemented(op.String(), a.ClassName(), b.ClassName())
			}
			return fn(ctx, a, b)
		})
	}
}
