package value

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// TypeID identifies a registered representation. IDs are dense, start at 0
// and are never reused.
type TypeID int

// NoType is returned by lookups that find no type.
const NoType TypeID = -1

// DefaultCapacity is the initial table capacity.
const DefaultCapacity = 16

// MaxTypes bounds table growth. Registering more types is fatal.
const MaxTypes = 1024

// TypeRecord describes one registered representation.
type TypeRecord struct {
	Name      string
	ClassName string
	Prototype Value
}

// Options configures a Dispatcher.
type Options struct {
	// InitialCapacity is the starting table size; it doubles on growth.
	InitialCapacity int
	// Strict makes duplicate registration panic instead of warning.
	Strict bool
	// Stats enables per-(operator, types) dispatch counters.
	Stats bool
	// Logger receives diagnostics. Defaults to "opdispatch.value".
	Logger commonlog.Logger
}

// DecomposeFunc evaluates a compound operator in terms of simpler ones.
type DecomposeFunc func(ctx context.Context, d *Dispatcher, a, b Value) (Value, error)

type compoundOp struct {
	name      string
	decompose DecomposeFunc
}

// Dispatcher owns the type registry, the operation tables and the class
// dispatch overrides, and resolves operators against them.
//
// A Dispatcher is built once at startup by an install routine and then
// used read-mostly for the life of the process. Registration takes the
// write lock; lookups take the read lock, so growth during extension
// loading is safe against concurrent evaluation.
type Dispatcher struct {
	mu     sync.RWMutex
	id     uuid.UUID
	log    commonlog.Logger
	strict bool

	byName map[string]TypeID
	types  []TypeRecord

	t           tables
	compoundOps []compoundOp

	classUnary    [NumUnaryOps]UnaryClassFunc
	classBinary   [NumBinaryOps]BinaryClassFunc
	classCompound []BinaryClassFunc

	// emptyConv maps a subscript kind to the type an undefined variable
	// starts from when first assigned through that kind of index.
	emptyConv map[IndexKind]TypeID

	stats *Stats
}

// NewDispatcher creates an empty dispatcher with the predefined compound
// operators defined.
func NewDispatcher(opts Options) *Dispatcher {
	n := opts.InitialCapacity
	if n <= 0 {
		n = DefaultCapacity
	}
	if n > MaxTypes {
		n = MaxTypes
	}
	lg := opts.Logger
	if lg == nil {
		lg = commonlog.GetLogger("opdispatch.value")
	}
	d := &Dispatcher{
		id:        uuid.New(),
		log:       lg,
		strict:    opts.Strict,
		byName:    make(map[string]TypeID),
		types:     make([]TypeRecord, 0, n),
		t:         newTables(n, 0),
		emptyConv: make(map[IndexKind]TypeID),
	}
	if opts.Stats {
		d.stats = NewStats()
	}
	for _, c := range builtinCompoundOps() {
		d.DefineCompoundOp(c.name, c.decompose)
	}
	return d
}

// ID returns the dispatcher's instance id, used to correlate diagnostics.
func (d *Dispatcher) ID() uuid.UUID { return d.id }

// Stats returns the dispatch counters, or nil if disabled.
func (d *Dispatcher) Stats() *Stats { return d.stats }

// duplicate reports an overwritten registration.
func (d *Dispatcher) duplicate(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if d.strict {
		panic("opdispatch: " + msg)
	}
	d.log.Warningf("%s", msg)
}

// ---------------------------------------------------------------------------
// Type registry
// ---------------------------------------------------------------------------

// RegisterType installs a representation under name and returns its id.
// Registering an existing name returns the existing id unchanged.
func (d *Dispatcher) RegisterType(name, className string, prototype Rep) TypeID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.byName[name]; ok {
		return id
	}

	id := TypeID(len(d.types))
	d.ensureCapacityLocked(id)
	d.byName[name] = id
	d.types = append(d.types, TypeRecord{
		Name:      name,
		ClassName: className,
		Prototype: NewValueExact(prototype),
	})
	d.log.Debugf("registered type '%s' (%s) as %d", name, className, id)
	return id
}

// ensureCapacityLocked grows the tables by doubling until id fits.
func (d *Dispatcher) ensureCapacityLocked(id TypeID) {
	if int(id) < d.t.n {
		return
	}
	if int(id) >= MaxTypes {
		panic(fmt.Sprintf("opdispatch: cannot grow operation tables past %d types", MaxTypes))
	}
	n := d.t.n
	for int(id) >= n {
		n *= 2
	}
	if n > MaxTypes {
		n = MaxTypes
	}
	d.t.resize(n)
}

// TypeID returns the id registered for name, or NoType.
func (d *Dispatcher) TypeID(name string) TypeID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id, ok := d.byName[name]; ok {
		return id
	}
	return NoType
}

// TypeOf returns the id of v's representation, or NoType.
func (d *Dispatcher) TypeOf(v Value) TypeID {
	if !v.IsDefined() {
		return NoType
	}
	return d.TypeID(v.Rep().TypeName())
}

// TypeName returns the name registered for id, or "".
func (d *Dispatcher) TypeName(id TypeID) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id < 0 || int(id) >= len(d.types) {
		return ""
	}
	return d.types[id].Name
}

// LookupType returns a fresh, unshared copy of the prototype registered
// under name, or Undefined.
func (d *Dispatcher) LookupType(name string) Value {
	d.mu.RLock()
	id, ok := d.byName[name]
	var proto Rep
	if ok {
		proto = d.types[id].Prototype.Rep()
	}
	d.mu.RUnlock()
	if proto == nil {
		return Undefined
	}
	return NewValueExact(proto.Clone())
}

// TypeNames returns the registered type names in registration order.
func (d *Dispatcher) TypeNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, len(d.types))
	for i, r := range d.types {
		names[i] = r.Name
	}
	return names
}

// Record returns the record for id.
func (d *Dispatcher) Record(id TypeID) (TypeRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id < 0 || int(id) >= len(d.types) {
		return TypeRecord{}, false
	}
	return d.types[id], true
}

// NumTypes returns the number of registered types.
func (d *Dispatcher) NumTypes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.types)
}

// Capacity returns the current table capacity.
func (d *Dispatcher) Capacity() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.t.n
}

// nameLocked returns a printable name for id; callers hold mu.
func (d *Dispatcher) nameLocked(id TypeID) string {
	if id >= 0 && int(id) < len(d.types) {
		return d.types[id].Name
	}
	return fmt.Sprintf("<type %d>", id)
}

// ---------------------------------------------------------------------------
// Compound operator namespace
// ---------------------------------------------------------------------------

// DefineCompoundOp adds a compound operator and returns its id. The
// decomposition is used whenever no table entry matches. Defining an
// existing name returns its id and replaces the decomposition.
func (d *Dispatcher) DefineCompoundOp(name string, decompose DecomposeFunc) CompoundBinaryOp {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.compoundOps {
		if c.name == name {
			if decompose != nil {
				d.compoundOps[i].decompose = decompose
			}
			return CompoundBinaryOp(i)
		}
	}
	d.compoundOps = append(d.compoundOps, compoundOp{name: name, decompose: decompose})
	d.t.addCompound()
	d.classCompound = append(d.classCompound, nil)
	return CompoundBinaryOp(len(d.compoundOps) - 1)
}

// CompoundOpName returns the name of a compound operator.
func (d *Dispatcher) CompoundOpName(op CompoundBinaryOp) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if op < 0 || int(op) >= len(d.compoundOps) {
		return "<unknown>"
	}
	return d.compoundOps[op].name
}

// LookupCompoundOp returns the compound operator named name.
func (d *Dispatcher) LookupCompoundOp(name string) (CompoundBinaryOp, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i, c := range d.compoundOps {
		if c.name == name {
			return CompoundBinaryOp(i), true
		}
	}
	return 0, false
}
